package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alsym/alsym/internal/query"
)

func newSearchCommand(o *globalOptions) *cobra.Command {
	var (
		p       query.SearchParams
		limit   int
		details bool
	)
	cmd := &cobra.Command{
		Use:   "search [pattern]",
		Short: "Find objects by name pattern",
		Long: `Find objects whose names match a wildcard pattern.

The pattern is case-insensitive and anchored: "*" matches any run of
characters and "?" exactly one. Without a pattern every object matches.`,
		Example: `  alsym search "Cust*" --type Table
  alsym search "*Posting*" --domain sales --details
  alsym search --package "Base Application" --limit 100 -o json`,
		Args: cobra.MaximumNArgs(1),
	}
	flags := cmd.Flags()
	flags.StringVarP(&p.ObjectType, "type", "t", "", "object type (Table, Page, Codeunit, ...)")
	flags.StringVar(&p.PackageName, "package", "", "package name")
	flags.StringVar(&p.Domain, "domain", "", "business domain (sales, purchasing, finance, ...)")
	flags.IntVarP(&limit, "limit", "n", 20, "page size")
	flags.IntVar(&p.Offset, "offset", 0, "page offset")
	flags.BoolVar(&details, "details", false, "include member details instead of counts")
	flags.BoolVar(&p.IncludeFields, "fields", false, "include fields")
	flags.BoolVar(&p.IncludeProcedures, "procedures", false, "include procedures")

	cmd.RunE = o.run(func(ctx context.Context, a *app, args []string) error {
		if len(args) == 1 {
			p.Pattern = args[0]
		}
		if cmd.Flags().Changed("limit") {
			p.Limit = &limit
		}
		if cmd.Flags().Changed("details") {
			summary := !details
			p.SummaryMode = &summary
		}

		ws, err := a.openWorkspace(ctx)
		if err != nil {
			return err
		}
		res, err := ws.Query.Search(p)
		if err != nil {
			return err
		}
		return a.render(res, func() { a.searchTable(res) })
	})
	return cmd
}

func newShowCommand(o *globalOptions) *cobra.Command {
	var (
		p              query.DefinitionParams
		fieldLimit     int
		procedureLimit int
	)
	cmd := &cobra.Command{
		Use:   "show <name|id>",
		Short: "Show the definition of an object",
		Long: `Show an object with its fields, keys, procedures and other members.

A numeric argument is taken as the object id, anything else as its name.
When several objects share the name, narrow the lookup with --type or
--package. Use -1 as a limit to list every field or procedure.`,
		Example: `  alsym show Customer --type Table
  alsym show 80 --type Codeunit --procedure-limit -1`,
		Args: cobra.ExactArgs(1),
	}
	flags := cmd.Flags()
	flags.StringVarP(&p.ObjectType, "type", "t", "", "object type")
	flags.StringVar(&p.PackageName, "package", "", "package name")
	flags.BoolVar(&p.SummaryMode, "summary", false, "show counts only")
	flags.IntVar(&fieldLimit, "field-limit", 100, "maximum fields shown, -1 for all")
	flags.IntVar(&procedureLimit, "procedure-limit", 50, "maximum procedures shown, -1 for all")

	cmd.RunE = o.run(func(ctx context.Context, a *app, args []string) error {
		if id, err := strconv.Atoi(args[0]); err == nil {
			p.ObjectID = id
		} else {
			p.ObjectName = args[0]
		}
		if cmd.Flags().Changed("field-limit") {
			p.FieldLimit = &fieldLimit
		}
		if cmd.Flags().Changed("procedure-limit") {
			p.ProcedureLimit = &procedureLimit
		}

		ws, err := a.openWorkspace(ctx)
		if err != nil {
			return err
		}
		res, err := ws.Query.GetDefinition(p)
		if err != nil {
			return err
		}
		return a.render(res, func() { a.definitionTable(res, p) })
	})
	return cmd
}

func newRefsCommand(o *globalOptions) *cobra.Command {
	var p query.ReferencesParams
	cmd := &cobra.Command{
		Use:   "refs <target>",
		Short: "Find references to an object or field",
		Long: `Find every object that points at the target: extensions, source tables,
table relations and variable, parameter or return type declarations.`,
		Example: `  alsym refs Customer
  alsym refs Customer --field "No." --kind table_relation --context
  alsym refs "Sales Header" --source-type Codeunit`,
		Args: cobra.ExactArgs(1),
	}
	flags := cmd.Flags()
	flags.StringVar(&p.FieldName, "field", "", "target field; \"*\" for any field")
	flags.StringVar(&p.RelationKind, "kind", "", "relation kind (extends, source_table, table_relation, field_usage, table_usage, variable, parameter, return_type)")
	flags.StringVar(&p.SourceType, "source-type", "", "only references from objects of this type")
	flags.BoolVar(&p.IncludeContext, "context", false, "include the text each reference came from")

	cmd.RunE = o.run(func(ctx context.Context, a *app, args []string) error {
		p.TargetName = args[0]
		ws, err := a.openWorkspace(ctx)
		if err != nil {
			return err
		}
		res, err := ws.Query.FindReferences(p)
		if err != nil {
			return err
		}
		return a.render(res, func() { a.referencesTable(res, p.IncludeContext) })
	})
	return cmd
}

func newMembersCommand(o *globalOptions) *cobra.Command {
	var (
		p         query.MembersParams
		limit     int
		noDetails bool
	)
	cmd := &cobra.Command{
		Use:   "members <object> <procedures|fields|controls|dataitems>",
		Short: "List the members of an object",
		Example: `  alsym members Customer fields --pattern "Na*"
  alsym members "Customer Card" controls --type Page`,
		Args: cobra.ExactArgs(2),
	}
	flags := cmd.Flags()
	flags.StringVarP(&p.ObjectType, "type", "t", "", "object type")
	flags.StringVar(&p.PackageName, "package", "", "package name")
	flags.StringVar(&p.Pattern, "pattern", "", "member name pattern")
	flags.IntVarP(&limit, "limit", "n", 20, "page size")
	flags.IntVar(&p.Offset, "offset", 0, "page offset")
	flags.BoolVar(&noDetails, "no-details", false, "omit member properties and signatures")

	cmd.RunE = o.run(func(ctx context.Context, a *app, args []string) error {
		p.ObjectName = args[0]
		p.MemberKind = args[1]
		if cmd.Flags().Changed("limit") {
			p.Limit = &limit
		}
		if noDetails {
			includeDetails := false
			p.IncludeDetails = &includeDetails
		}

		ws, err := a.openWorkspace(ctx)
		if err != nil {
			return err
		}
		res, err := ws.Query.SearchMembers(p)
		if err != nil {
			return err
		}
		return a.render(res, func() { a.membersTable(res, p) })
	})
	return cmd
}

func newSummaryCommand(o *globalOptions) *cobra.Command {
	var p query.SummaryParams
	cmd := &cobra.Command{
		Use:     "summary <object>",
		Short:   "Summarize what an object does",
		Example: `  alsym summary "Sales-Post" --type Codeunit`,
		Args:    cobra.ExactArgs(1),
	}
	flags := cmd.Flags()
	flags.StringVarP(&p.ObjectType, "type", "t", "", "object type")
	flags.StringVar(&p.PackageName, "package", "", "package name")

	cmd.RunE = o.run(func(ctx context.Context, a *app, args []string) error {
		p.ObjectName = args[0]
		ws, err := a.openWorkspace(ctx)
		if err != nil {
			return err
		}
		res, err := ws.Query.GetSummary(p)
		if err != nil {
			return err
		}
		return a.render(res, func() { a.summaryTable(res, p) })
	})
	return cmd
}
