package query

import (
	"strings"
	"unicode"

	"github.com/alsym/alsym/internal/model"
)

// Purpose is the inferred role of a procedure
type Purpose string

const (
	PurposeEvents       Purpose = "events"
	PurposePosting      Purpose = "posting"
	PurposeValidation   Purpose = "validation"
	PurposeCalculation  Purpose = "calculation"
	PurposeCreation     Purpose = "creation"
	PurposeModification Purpose = "modification"
	PurposeDeletion     Purpose = "deletion"
	PurposeRetrieval    Purpose = "retrieval"
	PurposeOther        Purpose = "other"
)

// purposeOrder is also the order groups appear in a summary
var purposeOrder = []Purpose{
	PurposeEvents,
	PurposePosting,
	PurposeValidation,
	PurposeCalculation,
	PurposeCreation,
	PurposeModification,
	PurposeDeletion,
	PurposeRetrieval,
	PurposeOther,
}

var purposePrefixes = []struct {
	purpose  Purpose
	prefixes []string
}{
	{PurposePosting, []string{"post", "unpost"}},
	{PurposeValidation, []string{"check", "validate", "test", "verify", "is", "has", "can"}},
	{PurposeCalculation, []string{"calc", "calculate", "compute", "sum", "total", "recalc"}},
	{PurposeCreation, []string{"create", "insert", "add", "new", "init", "initialize", "copy"}},
	{PurposeModification, []string{"modify", "update", "set", "change", "rename", "transfer"}},
	{PurposeDeletion, []string{"delete", "remove", "clear", "reset"}},
	{PurposeRetrieval, []string{"get", "find", "lookup", "show", "read", "load", "open", "select"}},
}

var eventAttributes = []string{"IntegrationEvent", "BusinessEvent", "InternalEvent", "EventSubscriber"}

// entryPointNames mark procedures that drive an object from outside
var entryPointNames = []string{"Run", "OnRun", "Code", "Execute", "Process"}

const maxEntryPoints = 10

// Summary is a categorized overview of one object
type Summary struct {
	Object      *ObjectView      `json:"object"`
	Groups      []ProcedureGroup `json:"procedureGroups,omitempty"`
	EntryPoints []string         `json:"entryPoints,omitempty"`
	PrimaryKey  []string         `json:"primaryKey,omitempty"`
	KeyFields   []string         `json:"keyFields,omitempty"`
	Properties  []model.Property `json:"properties,omitempty"`
	References  map[string]int   `json:"references,omitempty"`
}

// ProcedureGroup lists the procedures sharing a purpose
type ProcedureGroup struct {
	Purpose    Purpose  `json:"purpose"`
	Procedures []string `json:"procedures"`
}

// SummaryResult wraps a summary with the lookup outcome
type SummaryResult struct {
	Status     string        `json:"status"`
	Summary    *Summary      `json:"summary,omitempty"`
	Candidates []*ObjectView `json:"candidates,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// summaryProperties are lifted verbatim into a summary when present
var summaryProperties = []string{"Caption", "DataClassification", "PageType", "UsageCategory", "ApplicationArea", "Access", "Subtype", "TableType"}

func buildSummary(obj *model.Object) *Summary {
	s := &Summary{Object: summarize(obj)}

	groups := make(map[Purpose][]string)
	for i := range obj.Procedures {
		p := &obj.Procedures[i]
		purpose := classifyProcedure(p)
		groups[purpose] = append(groups[purpose], p.Name)
		if purpose != PurposeEvents && isEntryPoint(p, purpose) && len(s.EntryPoints) < maxEntryPoints {
			s.EntryPoints = append(s.EntryPoints, p.Signature())
		}
	}
	for _, purpose := range purposeOrder {
		if names := groups[purpose]; len(names) > 0 {
			s.Groups = append(s.Groups, ProcedureGroup{Purpose: purpose, Procedures: names})
		}
	}

	if len(obj.Keys) > 0 {
		s.PrimaryKey = obj.Keys[0].Fields
	}
	for _, f := range obj.Fields {
		if _, ok := model.FindProperty(f.Properties, "TableRelation"); ok {
			s.KeyFields = append(s.KeyFields, f.Name)
		}
	}

	for _, name := range summaryProperties {
		if v, ok := obj.Property(name); ok {
			s.Properties = append(s.Properties, model.Property{Name: name, Value: v})
		}
	}
	return s
}

// classifyProcedure infers a purpose from event attributes and the leading
// word of the procedure name
func classifyProcedure(p *model.Procedure) Purpose {
	for _, attr := range p.Attributes {
		for _, ev := range eventAttributes {
			if strings.HasPrefix(strings.ToLower(attr), strings.ToLower(ev)) {
				return PurposeEvents
			}
		}
	}
	if isEventName(p.Name) {
		return PurposeEvents
	}

	word := strings.ToLower(leadingWord(p.Name))
	for _, row := range purposePrefixes {
		for _, prefix := range row.prefixes {
			if word == prefix {
				return row.purpose
			}
		}
	}
	if strings.Contains(strings.ToLower(p.Name), "post") {
		return PurposePosting
	}
	return PurposeOther
}

// isEventName matches the OnSomething convention
func isEventName(name string) bool {
	if len(name) < 3 || !strings.HasPrefix(name, "On") {
		return false
	}
	r := rune(name[2])
	return unicode.IsUpper(r) && name != "OnRun"
}

// leadingWord returns the first camel-case word of a procedure name:
// "CalcInvDiscount" yields "Calc", "GetSalesHeader" yields "Get"
func leadingWord(name string) string {
	for i, r := range name {
		if i > 0 && (unicode.IsUpper(r) || r == '_' || r == ' ') {
			return name[:i]
		}
	}
	return name
}

func isEntryPoint(p *model.Procedure, purpose Purpose) bool {
	if access, ok := model.FindProperty(p.Properties, "Access"); ok && !strings.EqualFold(access, "Public") {
		return false
	}
	if local, ok := model.FindProperty(p.Properties, "Local"); ok && strings.EqualFold(local, "true") {
		return false
	}
	if purpose == PurposePosting {
		return true
	}
	for _, name := range entryPointNames {
		if strings.EqualFold(p.Name, name) || strings.HasPrefix(p.Name, name) && len(p.Name) > len(name) && unicode.IsUpper(rune(p.Name[len(name)])) {
			return true
		}
	}
	return false
}
