package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/alsym/alsym/internal/cli/ui"
	"github.com/alsym/alsym/internal/model"
	"github.com/alsym/alsym/internal/query"
	"github.com/alsym/alsym/internal/store"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	labelColor = color.New(color.FgWhite, color.Bold)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// render writes v as JSON or YAML, or calls tableFn for the table format
func (a *app) render(v any, tableFn func()) error {
	switch a.output {
	case formatJSON:
		return renderJSON(a.out, v)
	case formatYAML:
		return renderYAML(a.out, v)
	default:
		tableFn()
		return nil
	}
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderYAML goes through JSON first so keys match the JSON field names
func renderYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func (a *app) searchTable(res *query.SearchResult) {
	if len(res.Objects) == 0 {
		fmt.Fprintln(a.out, "(no objects)")
		return
	}
	t := newTable(a.out)
	t.AppendHeader(table.Row{"Type", "ID", "Name", "Package", "Domain", "Fields", "Procedures"})
	for _, obj := range res.Objects {
		t.AppendRow(table.Row{obj.Type, obj.ID, obj.Name, obj.Package, obj.Domain, obj.Counts.Fields, obj.Counts.Procedures})
	}
	t.Render()
	a.pageFooter(res.Offset, len(res.Objects), res.Total, res.HasMore)
}

func (a *app) pageFooter(offset, shown, total int, hasMore bool) {
	if shown == 0 {
		fmt.Fprintf(a.out, "(0 of %d)\n", total)
		return
	}
	more := ""
	if hasMore {
		more = fmt.Sprintf(", next page: --offset %d", offset+shown)
	}
	fmt.Fprintf(a.out, "(%d-%d of %d%s)\n", offset+1, offset+shown, total, more)
}

// lookupMiss prints the not-found message or the ambiguous candidates and
// reports whether the lookup missed
func (a *app) lookupMiss(status store.LookupStatus, message string, candidates []*query.ObjectView, name, objectType string) bool {
	switch status {
	case store.LookupNotFound:
		fmt.Fprint(a.out, ui.ObjectNotFound(message, name, objectType, a.suggest(name, objectType), color.NoColor))
		return true
	case store.LookupAmbiguous:
		warnColor.Fprintln(a.out, message)
		t := newTable(a.out)
		t.AppendHeader(table.Row{"Type", "ID", "Name", "Package"})
		for _, c := range candidates {
			t.AppendRow(table.Row{c.Type, c.ID, c.Name, c.Package})
		}
		t.Render()
		return true
	}
	return false
}

// suggest finds loaded object names close to a name that was not found
func (a *app) suggest(name, objectType string) []string {
	if a.ws == nil || name == "" {
		return nil
	}
	objects := a.ws.Store.View().Objects()
	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		if objectType == "" || strings.EqualFold(string(obj.Type), objectType) {
			names = append(names, obj.Name)
		}
	}
	return ui.FindSimilar(name, names, nil)
}

func (a *app) objectHeader(obj *query.ObjectView) {
	titleColor.Fprintf(a.out, "%s %d %q\n", obj.Type, obj.ID, obj.Name)
	line := func(label, value string) {
		if value == "" {
			return
		}
		labelColor.Fprintf(a.out, "  %-13s", label+":")
		fmt.Fprintln(a.out, value)
	}
	line("Package", obj.Package)
	line("Namespace", obj.Namespace)
	line("Domain", string(obj.Domain))
	line("Source table", obj.SourceTable)
	line("Source file", obj.SourceFile)
}

func (a *app) definitionTable(res *query.DefinitionResult, p query.DefinitionParams) {
	if a.lookupMiss(res.Status, res.Message, res.Candidates, p.ObjectName, p.ObjectType) {
		return
	}
	obj := res.Object
	a.objectHeader(obj)
	for _, p := range obj.Properties {
		labelColor.Fprintf(a.out, "  %-13s", p.Name+":")
		fmt.Fprintln(a.out, p.Value)
	}

	if len(obj.Fields) > 0 {
		fmt.Fprintln(a.out)
		t := newTable(a.out)
		t.SetTitle("Fields")
		t.AppendHeader(table.Row{"ID", "Name", "Type"})
		for _, f := range obj.Fields {
			t.AppendRow(table.Row{f.ID, f.Name, f.Type.String()})
		}
		t.Render()
	}
	if len(obj.Keys) > 0 {
		fmt.Fprintln(a.out)
		t := newTable(a.out)
		t.SetTitle("Keys")
		t.AppendHeader(table.Row{"Name", "Fields"})
		for _, k := range obj.Keys {
			t.AppendRow(table.Row{k.Name, strings.Join(k.Fields, ", ")})
		}
		t.Render()
	}
	if len(obj.Values) > 0 {
		fmt.Fprintln(a.out)
		t := newTable(a.out)
		t.SetTitle("Values")
		t.AppendHeader(table.Row{"ID", "Name"})
		for _, v := range obj.Values {
			t.AppendRow(table.Row{v.ID, v.Name})
		}
		t.Render()
	}
	if len(obj.Procedures) > 0 {
		fmt.Fprintln(a.out)
		labelColor.Fprintln(a.out, "Procedures")
		for i := range obj.Procedures {
			fmt.Fprintf(a.out, "  %s\n", obj.Procedures[i].Signature())
		}
	}
	if tr := obj.Truncated; tr != nil {
		var cut []string
		if tr.Fields {
			cut = append(cut, fmt.Sprintf("fields (%d total)", obj.Counts.Fields))
		}
		if tr.Procedures {
			cut = append(cut, fmt.Sprintf("procedures (%d total)", obj.Counts.Procedures))
		}
		warnColor.Fprintf(a.out, "\ntruncated: %s\n", strings.Join(cut, ", "))
	}
}

func (a *app) referencesTable(res *query.ReferencesResult, withContext bool) {
	if res.Total == 0 {
		fmt.Fprintf(a.out, "(no references to %s)\n", res.Target)
		return
	}
	t := newTable(a.out)
	header := table.Row{"Kind", "Source Type", "Source", "Member", "Field", "Package"}
	if withContext {
		header = append(header, "Context")
	}
	t.AppendHeader(header)
	for _, e := range res.References {
		row := table.Row{e.Kind, e.SourceType, e.Source, e.SourceMember, e.TargetField, e.SourcePackage}
		if withContext {
			row = append(row, e.Context)
		}
		t.AppendRow(row)
	}
	t.Render()
	fmt.Fprintf(a.out, "(%d references)\n", res.Total)
}

func (a *app) membersTable(res *query.MembersResult, p query.MembersParams) {
	if a.lookupMiss(res.Status, res.Message, res.Candidates, p.ObjectName, p.ObjectType) {
		return
	}
	titleColor.Fprintf(a.out, "%s of %s %q\n", res.Kind, res.Object.Type, res.Object.Name)
	t := newTable(a.out)
	t.AppendHeader(table.Row{"ID", "Name", "Detail"})
	for _, m := range res.Members {
		t.AppendRow(table.Row{m.ID, strings.Repeat("  ", m.Depth) + m.Name, m.Detail})
	}
	t.Render()
	a.pageFooter(res.Offset, len(res.Members), res.Total, res.HasMore)
}

func (a *app) summaryTable(res *query.SummaryResult, p query.SummaryParams) {
	if a.lookupMiss(store.LookupStatus(res.Status), res.Message, res.Candidates, p.ObjectName, p.ObjectType) {
		return
	}
	s := res.Summary
	a.objectHeader(s.Object)
	for _, p := range s.Properties {
		labelColor.Fprintf(a.out, "  %-13s", p.Name+":")
		fmt.Fprintln(a.out, p.Value)
	}
	if len(s.PrimaryKey) > 0 {
		labelColor.Fprintf(a.out, "  %-13s", "Primary key:")
		fmt.Fprintln(a.out, strings.Join(s.PrimaryKey, ", "))
	}

	if len(s.EntryPoints) > 0 {
		fmt.Fprintln(a.out)
		labelColor.Fprintln(a.out, "Entry points")
		for _, ep := range s.EntryPoints {
			fmt.Fprintf(a.out, "  %s\n", ep)
		}
	}
	for _, g := range s.Groups {
		fmt.Fprintln(a.out)
		labelColor.Fprintf(a.out, "%s (%d)\n", g.Purpose, len(g.Procedures))
		for _, name := range g.Procedures {
			fmt.Fprintf(a.out, "  %s\n", name)
		}
	}
	if len(s.References) > 0 {
		fmt.Fprintln(a.out)
		t := newTable(a.out)
		t.SetTitle("Incoming references")
		t.AppendHeader(table.Row{"Kind", "Count"})
		for _, kind := range sortedKeys(s.References) {
			t.AppendRow(table.Row{kind, s.References[kind]})
		}
		t.Render()
	}
}

func (a *app) packagesTable(res *query.PackagesResult) {
	switch {
	case res.Report != nil:
		r := res.Report
		t := newTable(a.out)
		t.AppendHeader(table.Row{"Package", "Publisher", "Version", "Objects", "Status", "File"})
		for _, p := range r.Packages {
			status := "loaded"
			switch {
			case p.Skipped:
				status = "already loaded"
			case p.Replaced:
				status = "reloaded"
			}
			if !p.Active {
				status += ", superseded"
			}
			t.AppendRow(table.Row{p.Package.Name, p.Package.Publisher, p.Package.Version, p.Objects, status, p.File})
		}
		t.Render()
		for _, f := range r.Failures {
			errorColor.Fprintf(a.out, "failed: %v\n", f)
		}
		if r.WarningCount > 0 {
			warnColor.Fprintf(a.out, "%d warnings\n", r.WarningCount)
		}
		fmt.Fprintf(a.out, "(%d of %d packages loaded, %d objects, %s)\n", r.Loaded(), r.Discovered, r.Objects, r.Duration)

	case res.Stats != nil:
		st := res.Stats
		t := newTable(a.out)
		t.AppendHeader(table.Row{"Type", "Objects"})
		types := make([]model.ObjectType, 0, len(st.ByType))
		for typ := range st.ByType {
			types = append(types, typ)
		}
		sort.Slice(types, func(i, j int) bool { return types[i].Ordinal() < types[j].Ordinal() })
		for _, typ := range types {
			t.AppendRow(table.Row{typ, st.ByType[typ]})
		}
		t.AppendFooter(table.Row{"Total", st.TotalObjects})
		t.Render()
		fmt.Fprintf(a.out, "(%d packages loaded, %d active)\n", st.LoadedPackages, st.ActivePackages)

	default:
		if len(res.Packages) == 0 {
			fmt.Fprintln(a.out, "(no packages loaded)")
			return
		}
		t := newTable(a.out)
		t.AppendHeader(table.Row{"Package", "Publisher", "Version", "Objects", "Active", "Loaded"})
		for _, p := range res.Packages {
			active := "yes"
			if !p.Active {
				active = "no"
			}
			t.AppendRow(table.Row{p.Name, p.Publisher, p.Version, p.Objects, active, p.LoadedAt.Format("15:04:05")})
		}
		t.Render()
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
