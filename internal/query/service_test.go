package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/alsym/alsym/internal/errors"
	"github.com/alsym/alsym/internal/model"
	"github.com/alsym/alsym/internal/normalize"
	"github.com/alsym/alsym/internal/packages"
	"github.com/alsym/alsym/internal/references"
	"github.com/alsym/alsym/internal/store"
)

type fakeLoader struct {
	requests []packages.LoadRequest
	err      error
}

func (f *fakeLoader) Load(_ context.Context, req packages.LoadRequest) (*packages.Report, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &packages.Report{RunID: "run", Path: req.Path}, nil
}

func intPtr(i int) *int    { return &i }
func boolPtr(b bool) *bool { return &b }

func newService(t *testing.T, objects ...*model.Object) (*Service, *store.Store, *fakeLoader) {
	t.Helper()
	st := store.New(nil)
	if len(objects) > 0 {
		st.Ingest(model.Package{Name: "App", Version: "1.0"}, objects, false)
	}
	loader := &fakeLoader{}
	return NewService(st, references.New(st, nil), loader, Config{}, nil), st, loader
}

func customer() *model.Object {
	return &model.Object{
		ID: 18, Name: "Customer", Type: model.TypeTable,
		Properties: []model.Property{{Name: "Caption", Value: "Customer"}, {Name: "DataClassification", Value: "CustomerContent"}},
		Fields: []model.Field{
			{ID: 1, Name: "No.", Type: model.TypeRef{Name: "Code", Length: 20}},
			{ID: 2, Name: "Name", Type: model.TypeRef{Name: "Text", Length: 100}},
		},
		Keys: []model.Key{{Name: "PK", Fields: []string{"No."}}},
	}
}

func TestSearchDefaultsToSummaryMode(t *testing.T) {
	svc, _, _ := newService(t, customer(), &model.Object{ID: 21, Name: "Customer Card", Type: model.TypePage, SourceTable: "Customer"})

	res, err := svc.Search(SearchParams{Pattern: "Cust*"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 20, res.Limit)
	require.Len(t, res.Objects, 2)

	table := res.Objects[0]
	assert.Equal(t, "Customer", table.Name)
	assert.Equal(t, 2, table.Counts.Fields)
	assert.Equal(t, model.DomainSales, table.Domain)
	assert.Nil(t, table.Fields)
	assert.Nil(t, table.Properties)

	assert.Equal(t, "Customer", res.Objects[1].SourceTable)
}

func TestSearchIncludesMembersOnRequest(t *testing.T) {
	svc, _, _ := newService(t, customer())

	res, err := svc.Search(SearchParams{Pattern: "Customer", IncludeFields: true})
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Len(t, res.Objects[0].Fields, 2)
	assert.Nil(t, res.Objects[0].Properties)

	full, err := svc.Search(SearchParams{Pattern: "Customer", SummaryMode: boolPtr(false)})
	require.NoError(t, err)
	assert.Len(t, full.Objects[0].Fields, 2)
	assert.Len(t, full.Objects[0].Properties, 2)
}

func TestSearchValidation(t *testing.T) {
	svc, _, _ := newService(t, customer())

	tests := []struct {
		name   string
		params SearchParams
	}{
		{"zero limit", SearchParams{Limit: intPtr(0)}},
		{"limit too large", SearchParams{Limit: intPtr(501)}},
		{"negative offset", SearchParams{Offset: -1}},
		{"unknown type", SearchParams{ObjectType: "Widget"}},
		{"unknown domain", SearchParams{Domain: "Marketing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Search(tt.params)
			assert.True(t, apperrors.IsInvalidRequest(err), "got %v", err)
		})
	}
}

func TestSearchPaginationPartitions(t *testing.T) {
	var objects []*model.Object
	for i := 0; i < 30; i++ {
		objects = append(objects, &model.Object{ID: i + 1, Name: fmt.Sprintf("Report %02d", i), Type: model.TypeReport})
	}
	svc, _, _ := newService(t, objects...)

	first, err := svc.Search(SearchParams{Limit: intPtr(12)})
	require.NoError(t, err)
	second, err := svc.Search(SearchParams{Limit: intPtr(12), Offset: 12})
	require.NoError(t, err)
	third, err := svc.Search(SearchParams{Limit: intPtr(12), Offset: 24})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, page := range []*SearchResult{first, second, third} {
		for _, o := range page.Objects {
			assert.False(t, seen[o.Name], "duplicate %s", o.Name)
			seen[o.Name] = true
		}
	}
	assert.Len(t, seen, 30)
	assert.True(t, second.HasMore)
	assert.False(t, third.HasMore)
}

func TestGetDefinitionRoundTrip(t *testing.T) {
	doc := []byte(`{
		"Codeunits": [{
			"Id": 80, "Name": "Sales-Post",
			"Properties": [{"Name": "TableNo", "Value": "Sales Header"}, {"Name": "Permissions", "Value": "x"}, {"Name": "Permissions", "Value": "y"}],
			"Variables": [{"Name": "GLSetup", "TypeDefinition": {"Name": "Record", "Subtype": {"Name": "General Ledger Setup"}}}],
			"Methods": [
				{"Name": "Run", "Parameters": [{"Name": "SalesHeader", "IsVar": true, "TypeDefinition": {"Name": "Record", "Subtype": {"Name": "Sales Header"}}}]},
				{"Name": "GetPostingDate", "ReturnTypeDefinition": {"Name": "Date"}}
			]
		}],
		"Tables": [{"Id": 36, "Name": "Sales Header", "Fields": [
			{"Id": 1, "Name": "Document Type", "TypeDefinition": {"Name": "Enum", "Subtype": {"Name": "Sales Document Type"}}, "Properties": [{"Name": "Caption", "Value": "Document Type"}]},
			{"Id": 3, "Name": "No.", "TypeDefinition": {"Name": "Code", "Length": 20}}
		], "Keys": [{"Name": "Key1", "FieldNames": ["Document Type", "No."]}]}]
	}`)
	result, err := normalize.New(nil).Normalize(doc, "App")
	require.NoError(t, err)
	require.Len(t, result.Objects, 2)

	svc, _, _ := newService(t, result.Objects...)
	for _, src := range result.Objects {
		res, err := svc.GetDefinition(DefinitionParams{
			ObjectName:     src.Name,
			FieldLimit:     intPtr(NoLimit),
			ProcedureLimit: intPtr(NoLimit),
		})
		require.NoError(t, err)
		require.Equal(t, store.LookupFound, res.Status)

		v := res.Object
		assert.Equal(t, src.ID, v.ID)
		assert.Equal(t, src.Properties, v.Properties)
		assert.Equal(t, src.Fields, v.Fields)
		assert.Equal(t, src.Keys, v.Keys)
		assert.Equal(t, src.Procedures, v.Procedures)
		assert.Equal(t, src.Variables, v.Variables)
		assert.Nil(t, v.Truncated)
	}
}

func TestGetDefinitionLimits(t *testing.T) {
	obj := &model.Object{ID: 50000, Name: "Big", Type: model.TypeCodeunit}
	for i := 0; i < 60; i++ {
		obj.Procedures = append(obj.Procedures, model.Procedure{Name: fmt.Sprintf("Proc%d", i)})
	}
	svc, _, _ := newService(t, obj)

	res, err := svc.GetDefinition(DefinitionParams{ObjectName: "Big"})
	require.NoError(t, err)
	assert.Len(t, res.Object.Procedures, 50)
	require.NotNil(t, res.Object.Truncated)
	assert.True(t, res.Object.Truncated.Procedures)
	assert.Equal(t, 60, res.Object.Counts.Procedures)

	res, err = svc.GetDefinition(DefinitionParams{ObjectID: 50000, ProcedureLimit: intPtr(5)})
	require.NoError(t, err)
	assert.Len(t, res.Object.Procedures, 5)

	res, err = svc.GetDefinition(DefinitionParams{ObjectName: "Big", SummaryMode: true})
	require.NoError(t, err)
	assert.Nil(t, res.Object.Procedures)
	assert.Equal(t, 60, res.Object.Counts.Procedures)

	_, err = svc.GetDefinition(DefinitionParams{ObjectName: "Big", FieldLimit: intPtr(-2)})
	assert.True(t, apperrors.IsInvalidRequest(err))
}

func TestGetDefinitionOutcomes(t *testing.T) {
	svc, _, _ := newService(t,
		customer(),
		&model.Object{ID: 50000, Name: "Setup", Type: model.TypeTable},
		&model.Object{ID: 50000, Name: "Setup", Type: model.TypePage},
	)

	_, err := svc.GetDefinition(DefinitionParams{})
	assert.True(t, apperrors.IsInvalidRequest(err))

	res, err := svc.GetDefinition(DefinitionParams{ObjectName: "Nope"})
	require.NoError(t, err)
	assert.Equal(t, store.LookupNotFound, res.Status)
	assert.Contains(t, res.Message, "NF001")

	res, err = svc.GetDefinition(DefinitionParams{ObjectName: "Setup"})
	require.NoError(t, err)
	assert.Equal(t, store.LookupAmbiguous, res.Status)
	assert.Len(t, res.Candidates, 2)

	res, err = svc.GetDefinition(DefinitionParams{ObjectName: "Setup", ObjectType: "page"})
	require.NoError(t, err)
	assert.Equal(t, store.LookupFound, res.Status)
	assert.Equal(t, model.TypePage, res.Object.Type)
}

func TestFindReferences(t *testing.T) {
	svc, _, _ := newService(t, customer(), &model.Object{
		ID: 21, Name: "Customer Card", Type: model.TypePage, SourceTable: "Customer",
		Properties: []model.Property{{Name: "SourceTable", Value: "Customer"}},
	})

	res, err := svc.FindReferences(ReferencesParams{TargetName: "Customer", RelationKind: "source_table"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "Customer Card", res.References[0].Source)

	empty, err := svc.FindReferences(ReferencesParams{TargetName: "Ghost"})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.NotNil(t, empty.References)

	_, err = svc.FindReferences(ReferencesParams{})
	assert.True(t, apperrors.IsInvalidRequest(err))
	_, err = svc.FindReferences(ReferencesParams{TargetName: "Customer", RelationKind: "calls"})
	assert.True(t, apperrors.IsInvalidRequest(err))
}

func TestSearchMembers(t *testing.T) {
	svc, _, _ := newService(t, customer())

	res, err := svc.SearchMembers(MembersParams{ObjectName: "Customer", MemberKind: "fields", Pattern: "Na*"})
	require.NoError(t, err)
	require.Len(t, res.Members, 1)
	assert.Equal(t, "Name", res.Members[0].Name)
	assert.NotNil(t, res.Members[0].Field)
	assert.Equal(t, "Customer", res.Object.Name)

	brief, err := svc.SearchMembers(MembersParams{ObjectName: "Customer", MemberKind: "fields", IncludeDetails: boolPtr(false)})
	require.NoError(t, err)
	require.Len(t, brief.Members, 2)
	assert.Nil(t, brief.Members[0].Field)
	assert.Equal(t, "Code[20]", brief.Members[0].Detail)

	missing, err := svc.SearchMembers(MembersParams{ObjectName: "Ghost", MemberKind: "fields"})
	require.NoError(t, err)
	assert.Equal(t, store.LookupNotFound, missing.Status)
	assert.Empty(t, missing.Members)

	_, err = svc.SearchMembers(MembersParams{ObjectName: "Customer", MemberKind: "triggers"})
	assert.True(t, apperrors.IsInvalidRequest(err))
	_, err = svc.SearchMembers(MembersParams{MemberKind: "fields"})
	assert.True(t, apperrors.IsInvalidRequest(err))
}

func TestGetSummary(t *testing.T) {
	codeunit := &model.Object{
		ID: 80, Name: "Sales-Post", Type: model.TypeCodeunit,
		Procedures: []model.Procedure{
			{Name: "OnRun"},
			{Name: "PostSalesLines"},
			{Name: "CheckMandatoryFields"},
			{Name: "CalcInvoiceDiscount"},
			{Name: "OnBeforePostSalesDoc", Attributes: []string{"IntegrationEvent(false, false)"}},
			{Name: "GetPostingDate"},
			{Name: "DoSomething"},
			{Name: "PostInternal", Properties: []model.Property{{Name: "Access", Value: "Internal"}}},
		},
	}
	svc, _, _ := newService(t, customer(), codeunit, &model.Object{
		ID: 21, Name: "Customer Card", Type: model.TypePage, SourceTable: "Customer",
	})

	res, err := svc.GetSummary(SummaryParams{ObjectName: "Sales-Post"})
	require.NoError(t, err)
	require.NotNil(t, res.Summary)

	groups := make(map[Purpose][]string)
	var order []Purpose
	for _, g := range res.Summary.Groups {
		groups[g.Purpose] = g.Procedures
		order = append(order, g.Purpose)
	}
	assert.Equal(t, []string{"OnBeforePostSalesDoc"}, groups[PurposeEvents])
	assert.Equal(t, []string{"PostSalesLines", "PostInternal"}, groups[PurposePosting])
	assert.Equal(t, []string{"CheckMandatoryFields"}, groups[PurposeValidation])
	assert.Equal(t, []string{"CalcInvoiceDiscount"}, groups[PurposeCalculation])
	assert.Equal(t, []string{"GetPostingDate"}, groups[PurposeRetrieval])
	assert.Equal(t, []string{"OnRun", "DoSomething"}, groups[PurposeOther])
	assert.Equal(t, PurposeEvents, order[0])
	assert.Equal(t, PurposeOther, order[len(order)-1])

	assert.Equal(t, []string{"procedure OnRun()", "procedure PostSalesLines()"}, res.Summary.EntryPoints)

	table, err := svc.GetSummary(SummaryParams{ObjectName: "customer", ObjectType: "Table"})
	require.NoError(t, err)
	assert.Equal(t, []string{"No."}, table.Summary.PrimaryKey)
	assert.Equal(t, 1, table.Summary.References["source_table"])
	assert.Contains(t, table.Summary.Properties, model.Property{Name: "Caption", Value: "Customer"})

	missing, err := svc.GetSummary(SummaryParams{ObjectName: "Ghost"})
	require.NoError(t, err)
	assert.Equal(t, "not_found", missing.Status)
}

func TestPackagesActions(t *testing.T) {
	svc, st, loader := newService(t, customer())
	ctx := context.Background()

	res, err := svc.Packages(ctx, PackagesParams{Action: "load", Path: "/tmp/pkgs"})
	require.NoError(t, err)
	require.NotNil(t, res.Report)
	require.Len(t, loader.requests, 1)
	assert.True(t, loader.requests[0].AutoDiscover)
	assert.False(t, loader.requests[0].ForceReload)

	_, err = svc.Packages(ctx, PackagesParams{Action: "load", AutoDiscover: boolPtr(false), ForceReload: true})
	require.NoError(t, err)
	assert.False(t, loader.requests[1].AutoDiscover)
	assert.True(t, loader.requests[1].ForceReload)

	st.Ingest(model.Package{Name: "App", Version: "2.0"}, []*model.Object{customer()}, false)
	list, err := svc.Packages(ctx, PackagesParams{Action: "LIST"})
	require.NoError(t, err)
	assert.Len(t, list.Packages, 2)

	stats, err := svc.Packages(ctx, PackagesParams{Action: "stats"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stats.TotalObjects)
	assert.Equal(t, 2, stats.Stats.LoadedPackages)

	_, err = svc.Packages(ctx, PackagesParams{Action: "purge"})
	assert.True(t, apperrors.IsInvalidRequest(err))
	_, err = svc.Packages(ctx, PackagesParams{})
	assert.True(t, apperrors.IsInvalidRequest(err))

	loader.err = apperrors.InvalidRequest("no package path given and none configured")
	_, err = svc.Packages(ctx, PackagesParams{Action: "load"})
	assert.True(t, apperrors.IsInvalidRequest(err))
}

func TestClassifyProcedure(t *testing.T) {
	tests := map[string]Purpose{
		"PostDocument":     PurposePosting,
		"SalesPost":        PurposePosting,
		"ValidateShipment": PurposeValidation,
		"IsEmpty":          PurposeValidation,
		"CalculateTotals":  PurposeCalculation,
		"InsertLine":       PurposeCreation,
		"UpdateAmounts":    PurposeModification,
		"DeleteLines":      PurposeDeletion,
		"FindFirstLine":    PurposeRetrieval,
		"OnAfterInsert":    PurposeEvents,
		"OnRun":            PurposeOther,
		"Onward":           PurposeOther,
		"Settle":           PurposeOther,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, classifyProcedure(&model.Procedure{Name: name}))
		})
	}
}
