package query

import "github.com/alsym/alsym/internal/model"

// NoLimit disables a field or procedure limit
const NoLimit = -1

// ObjectView is the response form of an object. In summary mode only the
// identity and the member counts are filled in.
type ObjectView struct {
	ID          int              `json:"id,omitempty"`
	Name        string           `json:"name"`
	Type        model.ObjectType `json:"type"`
	Package     string           `json:"package"`
	Namespace   string           `json:"namespace,omitempty"`
	Domain      model.Domain     `json:"domain,omitempty"`
	SourceTable string           `json:"sourceTable,omitempty"`
	Counts      Counts           `json:"counts"`

	SourceFile string            `json:"sourceFile,omitempty"`
	Properties []model.Property  `json:"properties,omitempty"`
	Fields     []model.Field     `json:"fields,omitempty"`
	Keys       []model.Key       `json:"keys,omitempty"`
	Procedures []model.Procedure `json:"procedures,omitempty"`
	Variables  []model.Variable  `json:"variables,omitempty"`
	Controls   []model.Control   `json:"controls,omitempty"`
	DataItems  []model.DataItem  `json:"dataItems,omitempty"`
	Values     []model.EnumValue `json:"values,omitempty"`
	Truncated  *Truncation       `json:"truncated,omitempty"`
}

// Counts are the member counts of an object
type Counts struct {
	Properties int `json:"properties,omitempty"`
	Fields     int `json:"fields,omitempty"`
	Keys       int `json:"keys,omitempty"`
	Procedures int `json:"procedures,omitempty"`
	Variables  int `json:"variables,omitempty"`
	Controls   int `json:"controls,omitempty"`
	DataItems  int `json:"dataItems,omitempty"`
	Values     int `json:"values,omitempty"`
}

// Truncation reports which member lists were cut by a limit
type Truncation struct {
	Fields     bool `json:"fields,omitempty"`
	Procedures bool `json:"procedures,omitempty"`
}

// shape controls how much of an object goes into a view
type shape struct {
	summary        bool
	fields         bool
	procedures     bool
	fieldLimit     int
	procedureLimit int
}

func summarize(obj *model.Object) *ObjectView {
	return &ObjectView{
		ID:          obj.ID,
		Name:        obj.Name,
		Type:        obj.Type,
		Package:     obj.Package,
		Namespace:   obj.Namespace,
		Domain:      model.Classify(obj.Name),
		SourceTable: obj.SourceTable,
		Counts: Counts{
			Properties: len(obj.Properties),
			Fields:     len(obj.Fields),
			Keys:       len(obj.Keys),
			Procedures: len(obj.Procedures),
			Variables:  len(obj.Variables),
			Controls:   model.CountControls(obj.Controls),
			DataItems:  model.CountDataItems(obj.DataItems),
			Values:     len(obj.Values),
		},
	}
}

func (s shape) view(obj *model.Object) *ObjectView {
	v := summarize(obj)

	if s.fields {
		v.Fields, v.Keys = obj.Fields, obj.Keys
		if s.fieldLimit >= 0 && len(v.Fields) > s.fieldLimit {
			v.Fields = v.Fields[:s.fieldLimit]
			v.truncate().Fields = true
		}
	}
	if s.procedures {
		v.Procedures = obj.Procedures
		if s.procedureLimit >= 0 && len(v.Procedures) > s.procedureLimit {
			v.Procedures = v.Procedures[:s.procedureLimit]
			v.truncate().Procedures = true
		}
	}
	if s.summary {
		return v
	}

	v.SourceFile = obj.SourceFile
	v.Properties = obj.Properties
	v.Variables = obj.Variables
	v.Controls = obj.Controls
	v.DataItems = obj.DataItems
	v.Values = obj.Values
	return v
}

func (v *ObjectView) truncate() *Truncation {
	if v.Truncated == nil {
		v.Truncated = &Truncation{}
	}
	return v.Truncated
}

func summaries(objects []*model.Object) []*ObjectView {
	out := make([]*ObjectView, 0, len(objects))
	for _, obj := range objects {
		out = append(out, summarize(obj))
	}
	return out
}
