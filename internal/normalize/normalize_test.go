package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/alsym/alsym/internal/errors"
	"github.com/alsym/alsym/internal/model"
)

const legacyDocument = `{
	"Name": "Base Application",
	"Publisher": "Microsoft",
	"Version": "24.0.0.0",
	"AppId": "437dbf0e-84ff-417a-965d-ed2bb9650972",
	"Tables": [
		{
			"Id": 18,
			"Name": "Customer",
			"ReferenceSourceFileName": "src/Customer.Table.al",
			"Properties": [
				{"Name": "Caption", "Value": "Customer"},
				{"Name": "DataCaptionFields", "Value": "No.,Name"},
				{"Name": "Caption", "Value": "Duplicate"}
			],
			"Fields": [
				{"Id": 1, "Name": "No.", "TypeDefinition": {"Name": "Code[20]"}},
				{"Id": 2, "Name": "Name", "TypeDefinition": {"Name": "Text", "Length": 100},
				 "Properties": [{"Name": "Caption", "Value": "Name"}]},
				{"Id": 21, "Name": "Customer Posting Group", "TypeDefinition": {"Name": "Code[20]"},
				 "Properties": [{"Name": "TableRelation", "Value": "\"Customer Posting Group\""}]}
			],
			"Keys": [
				{"Name": "Key1", "FieldNames": ["No."], "Properties": [{"Name": "Clustered", "Value": true}]}
			],
			"Methods": [
				{"Name": "GetTotalBalance", "ReturnTypeDefinition": {"Name": "Decimal"}}
			]
		}
	],
	"Pages": [
		{
			"Id": 21,
			"Name": "Customer Card",
			"Properties": [{"Name": "SourceTable", "Value": "Customer"}, {"Name": "PageType", "Value": "Card"}],
			"Controls": [
				{"Id": 1, "Name": "General", "Kind": "Group", "Controls": [
					{"Id": 2, "Name": "No.", "Kind": "Field", "Properties": [{"Name": "SourceExpr", "Value": "Rec.\"No.\""}]},
					{"Id": 3, "Name": "Name", "Kind": "Field"}
				]}
			]
		}
	],
	"Codeunits": [
		{
			"Id": 80,
			"Name": "Sales-Post",
			"Variables": [{"Name": "GLSetup", "TypeDefinition": {"Name": "Record", "Subtype": {"Name": "General Ledger Setup", "Id": 98}}}],
			"Methods": [
				{
					"Name": "Run",
					"Parameters": [
						{"Name": "SalesHeader", "IsVar": true, "TypeDefinition": {"Name": "Record", "Subtype": {"Name": "Sales Header", "Id": 36}, "Temporary": false}}
					]
				},
				{
					"Name": "OnBeforePostSalesDoc",
					"Attributes": [{"Name": "IntegrationEvent"}],
					"Parameters": [{"Name": "CommitIsSuppressed", "ByReference": true, "Type": "Boolean"}]
				}
			]
		}
	],
	"Reports": [
		{
			"Id": 101,
			"Name": "Customer - List",
			"DataItems": [
				{
					"Name": "CustomerItem",
					"RelatedTable": "Customer",
					"Columns": [
						{"Name": "No_Customer", "SourceExpression": "\"No.\""},
						{"Name": "Name_Customer", "SourceExpr": "Name"}
					],
					"DataItems": [
						{"Name": "Ledger", "SourceTable": "Cust. Ledger Entry"}
					]
				}
			]
		}
	],
	"EnumTypes": [
		{"Id": 36, "Name": "Sales Document Type", "Values": [{"Id": 0, "Name": "Quote"}, {"Id": 1, "Name": "Order"}]}
	],
	"Interfaces": [
		{"Name": "Price Calculation", "Methods": [{"Name": "Init"}]}
	]
}`

func normalize(t *testing.T, doc string) *Result {
	t.Helper()
	result, err := New(zap.NewNop()).Normalize([]byte(doc), "Base Application")
	require.NoError(t, err)
	return result
}

func findObject(t *testing.T, result *Result, typ model.ObjectType, name string) *model.Object {
	t.Helper()
	for _, obj := range result.Objects {
		if obj.Type == typ && obj.Name == name {
			return obj
		}
	}
	t.Fatalf("object %s %q not found", typ, name)
	return nil
}

func TestNormalize_LegacyDocument(t *testing.T) {
	result := normalize(t, legacyDocument)

	assert.Empty(t, result.Warnings)
	assert.Equal(t, Header{
		Name:      "Base Application",
		Publisher: "Microsoft",
		Version:   "24.0.0.0",
		AppID:     "437dbf0e-84ff-417a-965d-ed2bb9650972",
	}, result.Header)
	require.Len(t, result.Objects, 6)

	var order []model.ObjectType
	for _, obj := range result.Objects {
		order = append(order, obj.Type)
		assert.Equal(t, "Base Application", obj.Package)
	}
	assert.Equal(t, []model.ObjectType{
		model.TypeTable, model.TypePage, model.TypeCodeunit, model.TypeReport, model.TypeEnum, model.TypeInterface,
	}, order)
}

func TestNormalize_Table(t *testing.T) {
	customer := findObject(t, normalize(t, legacyDocument), model.TypeTable, "Customer")

	assert.Equal(t, 18, customer.ID)
	assert.Equal(t, "src/Customer.Table.al", customer.SourceFile)
	assert.Equal(t, []model.Property{
		{Name: "Caption", Value: "Customer"},
		{Name: "DataCaptionFields", Value: "No.,Name"},
		{Name: "Caption", Value: "Duplicate"},
	}, customer.Properties, "order and duplicates are preserved")

	require.Len(t, customer.Fields, 3)
	assert.Equal(t, model.TypeRef{Name: "Code", Length: 20}, customer.Fields[0].Type)
	assert.Equal(t, model.TypeRef{Name: "Text", Length: 100}, customer.Fields[1].Type)
	assert.Equal(t, []model.Property{{Name: "TableRelation", Value: `"Customer Posting Group"`}}, customer.Fields[2].Properties)

	require.Len(t, customer.Keys, 1)
	assert.Equal(t, []string{"No."}, customer.Keys[0].Fields)
	assert.Equal(t, []model.Property{{Name: "Clustered", Value: "true"}}, customer.Keys[0].Properties)

	require.Len(t, customer.Procedures, 1)
	require.NotNil(t, customer.Procedures[0].ReturnType)
	assert.Equal(t, "Decimal", customer.Procedures[0].ReturnType.Name)
}

func TestNormalize_PageControlTree(t *testing.T) {
	page := findObject(t, normalize(t, legacyDocument), model.TypePage, "Customer Card")

	assert.Equal(t, "Customer", page.SourceTable)
	require.Len(t, page.Controls, 1)
	assert.Equal(t, "General", page.Controls[0].Name)
	assert.Equal(t, "Group", page.Controls[0].Kind)
	require.Len(t, page.Controls[0].Children, 2)
	assert.Equal(t, "No.", page.Controls[0].Children[0].Name)
	assert.Equal(t, "Name", page.Controls[0].Children[1].Name)
	assert.Nil(t, page.Controls[0].Children[1].Properties, "missing property list yields an empty list")
}

func TestNormalize_CodeunitProcedures(t *testing.T) {
	cu := findObject(t, normalize(t, legacyDocument), model.TypeCodeunit, "Sales-Post")

	require.Len(t, cu.Variables, 1)
	assert.Equal(t, model.TypeRef{Name: "Record", Subtype: "General Ledger Setup", SubtypeID: 98}, cu.Variables[0].Type)

	require.Len(t, cu.Procedures, 2)
	run := cu.Procedures[0]
	assert.Equal(t, "Run", run.Name)
	require.Len(t, run.Parameters, 1)
	assert.True(t, run.Parameters[0].ByRef)
	assert.Equal(t, "Sales Header", run.Parameters[0].Type.Subtype)
	assert.Nil(t, run.ReturnType)

	event := cu.Procedures[1]
	assert.Equal(t, []string{"IntegrationEvent"}, event.Attributes)
	require.Len(t, event.Parameters, 1)
	assert.True(t, event.Parameters[0].ByRef, "ByReference is the alternate by-reference key")
	assert.Equal(t, "Boolean", event.Parameters[0].Type.Name)
}

func TestNormalize_ReportDataItems(t *testing.T) {
	report := findObject(t, normalize(t, legacyDocument), model.TypeReport, "Customer - List")

	require.Len(t, report.DataItems, 1)
	item := report.DataItems[0]
	assert.Equal(t, "Customer", item.Table)
	require.Len(t, item.Columns, 2)
	assert.Equal(t, `"No."`, item.Columns[0].Expression)
	assert.Equal(t, "Name", item.Columns[1].Expression, "SourceExpr is the alternate expression key")
	require.Len(t, item.Children, 1)
	assert.Equal(t, "Cust. Ledger Entry", item.Children[0].Table)
}

func TestNormalize_EnumTypesMapToEnum(t *testing.T) {
	enum := findObject(t, normalize(t, legacyDocument), model.TypeEnum, "Sales Document Type")

	require.Len(t, enum.Values, 2)
	assert.Equal(t, model.EnumValue{ID: 1, Name: "Order"}, enum.Values[1])
}

func TestNormalize_ModernNamespaces(t *testing.T) {
	doc := `{
		"Tables": [{"Id": 1, "Name": "Root Table"}],
		"Namespaces": [
			{
				"Name": "Microsoft",
				"Namespaces": [
					{
						"Name": "Sales",
						"Tables": [{"Id": 36, "Name": "Sales Header"}],
						"Enums": [{"Id": 1, "Name": "Sales Line Type"}]
					}
				],
				"Codeunits": [{"Id": 2, "Name": "Utility"}]
			}
		]
	}`
	result := normalize(t, doc)

	require.Len(t, result.Objects, 4)
	assert.Equal(t, "Root Table", result.Objects[0].Name)
	assert.Equal(t, "", result.Objects[0].Namespace)
	assert.Equal(t, "Utility", result.Objects[1].Name)
	assert.Equal(t, "Microsoft", result.Objects[1].Namespace)
	assert.Equal(t, "Sales Header", result.Objects[2].Name)
	assert.Equal(t, "Microsoft.Sales", result.Objects[2].Namespace)
	assert.Equal(t, model.TypeEnum, result.Objects[3].Type)
}

func TestNormalize_FirstVariantWins(t *testing.T) {
	doc := `{
		"Codeunits": [{
			"Id": 1,
			"Name": "Both",
			"Methods": [{"Name": "FromMethods"}],
			"Procedures": [{"Name": "FromProcedures"}, {"Name": "Another"}]
		}, {
			"Id": 2,
			"Name": "Legacy",
			"Procedures": [{"Name": "OnlyProcedures"}]
		}],
		"Queries": [{
			"Id": 5,
			"Name": "Top Customers",
			"Elements": [{"Name": "Cust", "DataItemTable": "Customer", "Columns": [{"Name": "No", "SourceExpr": "\"No.\""}]}]
		}]
	}`
	result := normalize(t, doc)

	both := findObject(t, result, model.TypeCodeunit, "Both")
	require.Len(t, both.Procedures, 1)
	assert.Equal(t, "FromMethods", both.Procedures[0].Name)

	legacy := findObject(t, result, model.TypeCodeunit, "Legacy")
	require.Len(t, legacy.Procedures, 1)
	assert.Equal(t, "OnlyProcedures", legacy.Procedures[0].Name)

	query := findObject(t, result, model.TypeQuery, "Top Customers")
	require.Len(t, query.DataItems, 1)
	assert.Equal(t, "Customer", query.DataItems[0].Table)
}

func TestNormalize_MalformedObjectIsSkipped(t *testing.T) {
	doc := `{
		"Tables": [
			{"Id": 18, "Name": "Customer", "Fields": "not a list"},
			{"Id": 23, "Name": "Vendor"}
		]
	}`
	result := normalize(t, doc)

	require.Len(t, result.Objects, 1)
	assert.Equal(t, "Vendor", result.Objects[0].Name)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "Table 18 Customer", result.Warnings[0].Object)
	assert.True(t, errors.Is(result.Warnings[0], apperrors.ErrPartialObjectFailure))
}

func TestNormalize_DiscardsAnonymousEntries(t *testing.T) {
	doc := `{
		"Tables": [{"Properties": []}, {"Id": 0, "Name": ""}, {"Name": "Setup"}],
		"Pages": [{"Id": 9}]
	}`
	result := normalize(t, doc)

	require.Len(t, result.Objects, 1)
	assert.Equal(t, "Setup", result.Objects[0].Name)
	assert.Equal(t, 0, result.Objects[0].ID, "absent id is valid")
	assert.Equal(t, 2, result.Discarded)
	require.Len(t, result.Warnings, 1, "id without a name is an object failure")
}

func TestNormalize_MalformedDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"invalid json", `{"Tables": [`},
		{"array root", `[{"Id": 1}]`},
		{"null root", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).Normalize([]byte(tt.doc), "Broken App")
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrDecodeFailure))
			assert.Contains(t, err.Error(), "Broken App")
		})
	}
}

func TestNormalize_MalformedCollectionIsLocal(t *testing.T) {
	doc := `{"Tables": {"Id": 1}, "Pages": [{"Id": 1, "Name": "Ok"}]}`
	result := normalize(t, doc)

	require.Len(t, result.Objects, 1)
	assert.Len(t, result.Warnings, 1)
}

func TestNormalize_DepthCap(t *testing.T) {
	doc := `{
		"Pages": [{
			"Id": 1,
			"Name": "Deep",
			"Controls": [{"Name": "L1", "Controls": [{"Name": "L2", "Controls": [{"Name": "L3"}]}]}]
		}],
		"Namespaces": [{"Name": "A", "Namespaces": [{"Name": "B", "Namespaces": [{"Name": "C", "Tables": [{"Id": 1, "Name": "Hidden"}]}]}]}]
	}`
	result, err := New(zap.NewNop()).WithMaxDepth(2).Normalize([]byte(doc), "App")
	require.NoError(t, err)

	require.Len(t, result.Objects, 1)
	page := result.Objects[0]
	require.Len(t, page.Controls, 1)
	require.Len(t, page.Controls[0].Children, 1)
	assert.Empty(t, page.Controls[0].Children[0].Children)
	assert.Len(t, result.Warnings, 2)
}

func TestNormalize_FlexibleScalars(t *testing.T) {
	doc := "\xEF\xBB\xBF" + `{
		"tables": [{
			"Id": "50100",
			"Name": "Flexible",
			"Properties": [
				{"Name": "Extensible", "Value": false},
				{"Name": "ObsoleteTag", "Value": 23.0},
				{"Name": "Permissions", "Value": {"TableData": ["Customer"]}}
			]
		}]
	}`
	result := normalize(t, doc)

	require.Len(t, result.Objects, 1)
	obj := result.Objects[0]
	assert.Equal(t, 50100, obj.ID)
	assert.Equal(t, []model.Property{
		{Name: "Extensible", Value: "false"},
		{Name: "ObsoleteTag", Value: "23.0"},
		{Name: "Permissions", Value: `{"TableData":["Customer"]}`},
	}, obj.Properties)
}

func TestParseTypeText(t *testing.T) {
	tests := []struct {
		input    string
		expected rawTypeRef
	}{
		{"Integer", rawTypeRef{Name: "Integer"}},
		{"Code[20]", rawTypeRef{Name: "Code", Length: 20}},
		{`Record "Sales Header"`, rawTypeRef{Name: "Record", Subtype: "Sales Header"}},
		{`Record Customer temporary`, rawTypeRef{Name: "Record", Subtype: "Customer", Temporary: true}},
		{`Codeunit "Sales-Post"`, rawTypeRef{Name: "Codeunit", Subtype: "Sales-Post"}},
		{"List of [Text]", rawTypeRef{Name: "List of [Text]"}},
		{"", rawTypeRef{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseTypeText(tt.input))
		})
	}
}
