package normalize

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/alsym/alsym/internal/model"
)

var errMissingName = errors.New("object has an id but no name")

// base converts the members shared by every category. It returns nil for
// entries that carry neither id nor name.
func (w *walker) base(b *rawBase, typ model.ObjectType) (*model.Object, error) {
	if b.ID == 0 && b.Name == "" {
		return nil, nil
	}
	if b.Name == "" {
		return nil, errMissingName
	}

	obj := &model.Object{
		ID:         int(b.ID),
		Name:       string(b.Name),
		Type:       typ,
		SourceFile: string(b.ReferenceSourceFileName),
		Properties: properties(b.Properties),
		Procedures: procedures(first(b.Methods, b.Procedures)),
	}
	if len(b.Variables) > 0 {
		obj.Variables = make([]model.Variable, 0, len(b.Variables))
		for _, v := range b.Variables {
			obj.Variables = append(obj.Variables, model.Variable{
				Name: string(v.Name),
				Type: typeRef(firstType(v.TypeDefinition, v.Type)),
			})
		}
	}
	return obj, nil
}

func (w *walker) plain(entry json.RawMessage, typ model.ObjectType) (*model.Object, error) {
	var raw rawBase
	if err := json.Unmarshal(entry, &raw); err != nil {
		return nil, err
	}
	return w.base(&raw, typ)
}

func (w *walker) table(entry json.RawMessage) (*model.Object, error) {
	var raw rawTable
	if err := json.Unmarshal(entry, &raw); err != nil {
		return nil, err
	}
	obj, err := w.base(&raw.rawBase, model.TypeTable)
	if obj == nil || err != nil {
		return nil, err
	}

	if len(raw.Fields) > 0 {
		obj.Fields = make([]model.Field, 0, len(raw.Fields))
		for _, f := range raw.Fields {
			obj.Fields = append(obj.Fields, model.Field{
				ID:         int(f.ID),
				Name:       string(f.Name),
				Type:       typeRef(firstType(f.TypeDefinition, f.Type)),
				Properties: properties(f.Properties),
			})
		}
	}

	if len(raw.Keys) > 0 {
		obj.Keys = make([]model.Key, 0, len(raw.Keys))
		for _, k := range raw.Keys {
			names := first(k.FieldNames, k.Fields)
			fields := make([]string, 0, len(names))
			for _, name := range names {
				fields = append(fields, string(name))
			}
			obj.Keys = append(obj.Keys, model.Key{
				Name:       string(k.Name),
				Fields:     fields,
				Properties: properties(k.Properties),
			})
		}
	}
	return obj, nil
}

func (w *walker) page(entry json.RawMessage) (*model.Object, error) {
	var raw rawPage
	if err := json.Unmarshal(entry, &raw); err != nil {
		return nil, err
	}
	obj, err := w.base(&raw.rawBase, model.TypePage)
	if obj == nil || err != nil {
		return nil, err
	}

	if table, ok := obj.Property("SourceTable"); ok {
		obj.SourceTable = unquote(table)
	}
	obj.Controls = w.controls(first(raw.Controls, raw.Layout), obj, 1)
	return obj, nil
}

func (w *walker) controls(raw []rawControl, owner *model.Object, depth int) []model.Control {
	if len(raw) == 0 {
		return nil
	}
	if depth > w.n.maxDepth {
		w.warn(owner.String(), fmt.Errorf("control tree deeper than %d truncated", w.n.maxDepth))
		return nil
	}
	out := make([]model.Control, 0, len(raw))
	for _, c := range raw {
		out = append(out, model.Control{
			ID:         int(c.ID),
			Name:       string(c.Name),
			Kind:       string(c.Kind),
			Properties: properties(c.Properties),
			Children:   w.controls(first(c.Controls, c.Layout), owner, depth+1),
		})
	}
	return out
}

func (w *walker) dataSet(entry json.RawMessage, typ model.ObjectType) (*model.Object, error) {
	var raw rawDataSet
	if err := json.Unmarshal(entry, &raw); err != nil {
		return nil, err
	}
	obj, err := w.base(&raw.rawBase, typ)
	if obj == nil || err != nil {
		return nil, err
	}
	obj.DataItems = w.dataItems(first(raw.DataItems, raw.Elements, raw.Schema), obj, 1)
	return obj, nil
}

func (w *walker) dataItems(raw []rawDataItem, owner *model.Object, depth int) []model.DataItem {
	if len(raw) == 0 {
		return nil
	}
	if depth > w.n.maxDepth {
		w.warn(owner.String(), fmt.Errorf("data-item tree deeper than %d truncated", w.n.maxDepth))
		return nil
	}
	out := make([]model.DataItem, 0, len(raw))
	for _, d := range raw {
		props := properties(d.Properties)
		table, ok := firstString(d.RelatedTable, d.SourceTable, d.DataItemTable)
		if !ok {
			table, _ = model.FindProperty(props, "DataItemTable")
		}

		item := model.DataItem{
			Name:       string(d.Name),
			Table:      unquote(table),
			Properties: props,
			Children:   w.dataItems(first(d.DataItems, d.Elements), owner, depth+1),
		}
		if len(d.Columns) > 0 {
			item.Columns = make([]model.Column, 0, len(d.Columns))
			for _, c := range d.Columns {
				expr, _ := firstString(c.SourceExpression, c.SourceExpr)
				item.Columns = append(item.Columns, model.Column{
					Name:       string(c.Name),
					Expression: expr,
					Properties: properties(c.Properties),
				})
			}
		}
		out = append(out, item)
	}
	return out
}

func (w *walker) enum(entry json.RawMessage) (*model.Object, error) {
	var raw rawEnum
	if err := json.Unmarshal(entry, &raw); err != nil {
		return nil, err
	}
	obj, err := w.base(&raw.rawBase, model.TypeEnum)
	if obj == nil || err != nil {
		return nil, err
	}

	values := first(raw.Values, raw.EnumValues)
	if len(values) > 0 {
		obj.Values = make([]model.EnumValue, 0, len(values))
		for _, v := range values {
			obj.Values = append(obj.Values, model.EnumValue{
				ID:         int(v.ID),
				Name:       string(v.Name),
				Properties: properties(v.Properties),
			})
		}
	}
	return obj, nil
}

func procedures(raw []rawMethod) []model.Procedure {
	if len(raw) == 0 {
		return nil
	}
	out := make([]model.Procedure, 0, len(raw))
	for _, m := range raw {
		proc := model.Procedure{
			Name:       string(m.Name),
			Properties: properties(m.Properties),
		}
		for _, a := range m.Attributes {
			proc.Attributes = append(proc.Attributes, string(a.Name))
		}
		if len(m.Parameters) > 0 {
			proc.Parameters = make([]model.Parameter, 0, len(m.Parameters))
			for _, p := range m.Parameters {
				proc.Parameters = append(proc.Parameters, model.Parameter{
					Name:  string(p.Name),
					Type:  typeRef(firstType(p.TypeDefinition, p.Type)),
					ByRef: firstBool(p.IsVar, p.ByReference),
				})
			}
		}
		if rt := firstType(m.ReturnTypeDefinition, m.ReturnType); rt != nil && rt.Name != "" {
			ref := typeRef(rt)
			proc.ReturnType = &ref
		}
		out = append(out, proc)
	}
	return out
}

func properties(raw []rawProperty) []model.Property {
	if len(raw) == 0 {
		return nil
	}
	out := make([]model.Property, 0, len(raw))
	for _, p := range raw {
		out = append(out, model.Property{Name: string(p.Name), Value: string(p.Value)})
	}
	return out
}

func typeRef(raw *rawTypeRef) model.TypeRef {
	if raw == nil {
		return model.TypeRef{}
	}
	return model.TypeRef{
		Name:      raw.Name,
		Subtype:   raw.Subtype,
		SubtypeID: raw.SubtypeID,
		Length:    raw.Length,
		Temporary: raw.Temporary,
	}
}
