package references

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsym/alsym/internal/model"
	"github.com/alsym/alsym/internal/store"
)

func record(name string) model.TypeRef {
	return model.TypeRef{Name: "Record", Subtype: name}
}

func fixture(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(nil)
	s.Ingest(model.Package{Name: "Base", Version: "1.0"}, []*model.Object{
		{
			ID: 18, Name: "Customer", Type: model.TypeTable,
			Fields: []model.Field{
				{ID: 1, Name: "No.", Type: model.TypeRef{Name: "Code", Length: 20}},
				{ID: 21, Name: "Customer Posting Group", Type: model.TypeRef{Name: "Code", Length: 20},
					Properties: []model.Property{{Name: "TableRelation", Value: `"Customer Posting Group"`}}},
			},
		},
		{ID: 92, Name: "Customer Posting Group", Type: model.TypeTable},
		{
			ID: 36, Name: "Sales Header", Type: model.TypeTable,
			Fields: []model.Field{
				{ID: 2, Name: "Sell-to Customer No.", Type: model.TypeRef{Name: "Code", Length: 20},
					Properties: []model.Property{{Name: "TableRelation", Value: "Customer"}}},
				{ID: 4, Name: "Bill-to Customer No.", Type: model.TypeRef{Name: "Code", Length: 20},
					Properties: []model.Property{{Name: "TableRelation", Value: `Customer."No." WHERE (Blocked = CONST(" "))`}}},
			},
		},
		{
			ID: 37, Name: "Sales Line", Type: model.TypeTable,
			Fields: []model.Field{
				{ID: 6, Name: "No.", Type: model.TypeRef{Name: "Code", Length: 20},
					Properties: []model.Property{{Name: "TableRelation",
						Value: `IF (Type = CONST(" ")) "Standard Text" ELSE IF (Type = CONST(Customer)) Customer ELSE IF (Type = CONST(Item)) Item`}}},
			},
		},
		{ID: 21, Name: "Customer Card", Type: model.TypePage, SourceTable: "Customer",
			Properties: []model.Property{{Name: "SourceTable", Value: "Customer"}}},
		{
			ID: 101, Name: "Customer - List", Type: model.TypeReport,
			DataItems: []model.DataItem{{Name: "Cust", Table: "Customer"}},
		},
		{
			ID: 80, Name: "Sales-Post", Type: model.TypeCodeunit,
			Variables: []model.Variable{{Name: "Cust", Type: record("Customer")}},
			Procedures: []model.Procedure{
				{Name: "CheckCustomer", Parameters: []model.Parameter{{Name: "Customer", Type: record("Customer"), ByRef: true}}},
				{Name: "GetCustomer", ReturnType: &model.TypeRef{Name: "Record", Subtype: "Customer"}},
			},
		},
		{
			ID: 50100, Name: "Customer Ext", Type: model.TypePage,
			Properties: []model.Property{{Name: "Extends", Value: `"Customer Card"`}},
		},
		{ID: 27, Name: "Item", Type: model.TypeTable},
	}, false)
	return s
}

type edgeSummary struct {
	Source string
	Member string
	Kind   model.RelationKind
	Field  string
}

func summarize(edges []model.Edge) []edgeSummary {
	out := make([]edgeSummary, 0, len(edges))
	for _, e := range edges {
		out = append(out, edgeSummary{e.Source, e.SourceMember, e.Kind, e.TargetField})
	}
	return out
}

func TestResolveSourceTable(t *testing.T) {
	r := New(fixture(t), nil)
	edges := r.Resolve(Query{Target: "Customer", Kind: model.RelationSourceTable})

	assert.Equal(t, []edgeSummary{
		{"Customer - List", "Cust", model.RelationSourceTable, ""},
		{"Customer Card", "", model.RelationSourceTable, ""},
	}, summarize(edges))
	for _, e := range edges {
		assert.Equal(t, "Customer", e.Target)
		assert.Empty(t, e.Context)
	}
}

func TestResolveSourceTableWithFields(t *testing.T) {
	r := New(fixture(t), nil)

	any := summarize(r.Resolve(Query{Target: "customer", Kind: model.RelationSourceTable, Field: AnyField}))
	assert.Equal(t, []edgeSummary{
		{"Customer - List", "Cust", model.RelationSourceTable, ""},
		{"Customer Card", "", model.RelationSourceTable, ""},
		{"Sales Header", "Bill-to Customer No.", model.RelationSourceTable, "No."},
		{"Sales Header", "Sell-to Customer No.", model.RelationSourceTable, ""},
		{"Sales Line", "No.", model.RelationSourceTable, ""},
	}, any)

	named := summarize(r.Resolve(Query{Target: "Customer", Kind: model.RelationSourceTable, Field: "no."}))
	assert.Contains(t, named, edgeSummary{"Customer Card", "", model.RelationSourceTable, ""})
	assert.Contains(t, named, edgeSummary{"Sales Header", "Bill-to Customer No.", model.RelationSourceTable, "No."})
	assert.NotContains(t, named, edgeSummary{"Sales Header", "Sell-to Customer No.", model.RelationSourceTable, ""})
}

func TestResolveTableRelation(t *testing.T) {
	r := New(fixture(t), nil)

	t.Run("without field only declared tables", func(t *testing.T) {
		edges := r.Resolve(Query{Target: "Customer", Kind: model.RelationTableRelation})
		assert.Equal(t, []edgeSummary{
			{"Customer - List", "Cust", model.RelationTableRelation, ""},
			{"Customer Card", "", model.RelationTableRelation, ""},
		}, summarize(edges))
	})

	t.Run("any field adds field relations", func(t *testing.T) {
		edges := r.Resolve(Query{Target: "Customer", Kind: model.RelationTableRelation, Field: AnyField, IncludeContext: true})
		require.Len(t, edges, 5)
		assert.Equal(t, "Customer - List", edges[0].Source)
		assert.Equal(t, "Customer Card", edges[1].Source)
		assert.Equal(t, "Sales Header", edges[2].Source)
		assert.Equal(t, "Bill-to Customer No.", edges[2].SourceMember)
		assert.Equal(t, "Sales Header", edges[3].Source)
		assert.Equal(t, "Sell-to Customer No.", edges[3].SourceMember)
		assert.Equal(t, "Sales Line", edges[4].Source)
		assert.Contains(t, edges[4].Context, "ELSE IF")
		for _, e := range edges {
			assert.Equal(t, model.RelationTableRelation, e.Kind)
		}
	})

	t.Run("field narrows relations", func(t *testing.T) {
		edges := summarize(r.Resolve(Query{Target: "Customer", Kind: model.RelationTableRelation, Field: "No."}))
		assert.Contains(t, edges, edgeSummary{"Sales Header", "Bill-to Customer No.", model.RelationTableRelation, "No."})
		assert.NotContains(t, edges, edgeSummary{"Sales Line", "No.", model.RelationTableRelation, ""})
	})

	item := r.Resolve(Query{Target: "Item", Kind: model.RelationTableRelation, Field: AnyField})
	require.Len(t, item, 1)
	assert.Equal(t, "Sales Line", item[0].Source)
	assert.Empty(t, r.Resolve(Query{Target: "Item", Kind: model.RelationTableRelation}))

	group := r.Resolve(Query{Target: "Customer Posting Group", Kind: model.RelationTableRelation, Field: AnyField})
	require.Len(t, group, 1)
	assert.Equal(t, "Customer", group[0].Source)
}

func TestResolveExtends(t *testing.T) {
	r := New(fixture(t), nil)
	edges := r.Resolve(Query{Target: "Customer Card", Kind: model.RelationExtends, IncludeContext: true})

	require.Len(t, edges, 1)
	assert.Equal(t, "Customer Ext", edges[0].Source)
	assert.Equal(t, model.RelationExtends, edges[0].Kind)
	assert.Equal(t, `Extends = "Customer Card"`, edges[0].Context)
}

func TestResolveDeclarations(t *testing.T) {
	r := New(fixture(t), nil)

	t.Run("variable", func(t *testing.T) {
		edges := r.Resolve(Query{Target: "Customer", Kind: model.RelationVariable})
		assert.Equal(t, []edgeSummary{{"Sales-Post", "Cust", model.RelationVariable, ""}}, summarize(edges))
	})

	t.Run("parameter", func(t *testing.T) {
		edges := r.Resolve(Query{Target: "Customer", Kind: model.RelationParameter, IncludeContext: true})
		require.Len(t, edges, 1)
		assert.Equal(t, "CheckCustomer.Customer", edges[0].SourceMember)
		assert.Equal(t, "procedure CheckCustomer(var Customer: Record Customer)", edges[0].Context)
	})

	t.Run("return type", func(t *testing.T) {
		edges := r.Resolve(Query{Target: "Customer", Kind: model.RelationReturnType})
		assert.Equal(t, []edgeSummary{{"Sales-Post", "GetCustomer", model.RelationReturnType, ""}}, summarize(edges))
	})

	t.Run("table usage covers every site", func(t *testing.T) {
		edges := r.Resolve(Query{Target: "Customer", Kind: model.RelationTableUsage})
		require.Len(t, edges, 3)
		for _, e := range edges {
			assert.Equal(t, model.RelationTableUsage, e.Kind)
			assert.Equal(t, "Sales-Post", e.Source)
		}
	})
}

func TestResolveAllKinds(t *testing.T) {
	r := New(fixture(t), nil)
	edges := r.Resolve(Query{Target: "Customer"})

	kinds := make(map[model.RelationKind]int)
	for _, e := range edges {
		kinds[e.Kind]++
	}
	assert.Equal(t, 2, kinds[model.RelationSourceTable])
	assert.Equal(t, 3, kinds[model.RelationTableRelation])
	assert.Equal(t, 1, kinds[model.RelationVariable])
	assert.Equal(t, 1, kinds[model.RelationParameter])
	assert.Equal(t, 1, kinds[model.RelationReturnType])
	assert.Zero(t, kinds[model.RelationTableUsage])
}

func TestResolveSourceTypeFilter(t *testing.T) {
	r := New(fixture(t), nil)
	edges := r.Resolve(Query{Target: "Customer", SourceType: model.TypePage})
	assert.Equal(t, []edgeSummary{{"Customer Card", "", model.RelationSourceTable, ""}}, summarize(edges))
}

func TestResolveUnknownTarget(t *testing.T) {
	r := New(fixture(t), nil)
	edges := r.Resolve(Query{Target: "Does Not Exist"})
	assert.NotNil(t, edges)
	assert.Empty(t, edges)

	assert.Empty(t, r.Resolve(Query{Target: ""}))
}

func TestResolveIsStableAndMemoized(t *testing.T) {
	s := fixture(t)
	r := New(s, nil)
	q := Query{Target: "Customer"}

	first := r.Resolve(q)
	second := r.Resolve(q)
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(1), r.CacheHits())

	// callers own the returned slice
	second[0].Source = "mutated"
	assert.NotEqual(t, "mutated", r.Resolve(q)[0].Source)
}

func TestResolveSeesNewIngest(t *testing.T) {
	s := fixture(t)
	r := New(s, nil)
	before := r.Resolve(Query{Target: "Customer", Kind: model.RelationSourceTable})

	s.Ingest(model.Package{Name: "Ext", Version: "1.0"}, []*model.Object{
		{ID: 50000, Name: "Customer Overview", Type: model.TypePage, SourceTable: "Customer"},
	}, false)

	after := r.Resolve(Query{Target: "Customer", Kind: model.RelationSourceTable})
	assert.Len(t, after, len(before)+1)
}

func TestParseTableRelation(t *testing.T) {
	tests := []struct {
		in   string
		want []relationTarget
	}{
		{"Customer", []relationTarget{{Table: "Customer"}}},
		{`"Sales Header"."No."`, []relationTarget{{Table: "Sales Header", Field: "No."}}},
		{
			`"Sales Header"."No." WHERE ("Document Type" = FIELD("Document Type"))`,
			[]relationTarget{{Table: "Sales Header", Field: "No.", Filter: `"Document Type" = FIELD("Document Type")`}},
		},
		{
			`IF (Type = CONST(Item)) Item ELSE IF (Type = CONST(Resource)) Resource ELSE "G/L Account"`,
			[]relationTarget{
				{Table: "Item", Condition: "Type = CONST(Item)"},
				{Table: "Resource", Condition: "Type = CONST(Resource)"},
				{Table: "G/L Account"},
			},
		},
		{`"Else Table"`, []relationTarget{{Table: "Else Table"}}},
		{"IF (broken", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTableRelation(tt.in))
		})
	}
}
