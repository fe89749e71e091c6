package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/dialect/sql/sqlgraph"
)

type queryFlags struct {
	joins    []string
	restrict []string
	where    []string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.joins, "join", "j", nil, `relation route to join, such as "lines.product", or "*" for all`)
	cmd.Flags().StringArrayVar(&f.restrict, "join-where", nil, `join restriction "route:prop<op>value"`)
	cmd.Flags().StringArrayVarP(&f.where, "where", "w", nil, `root filter "prop<op>value", op is one of = != > >= < <= ~`)
}

// build returns the joins and root predicates of typ.
func (f *queryFlags) build(e *env, typ string) ([]*sqlgraph.Join, []sqlgraph.Predicate, error) {
	d, err := e.registry.Descriptor(typ)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "unknown type", err)
	}
	joins, err := parseJoins(e.registry, typ, f.joins)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "parsing joins", err)
	}
	if err := restrict(e.registry, typ, joins, f.restrict); err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "parsing join restrictions", err)
	}
	var preds []sqlgraph.Predicate
	for _, w := range f.where {
		p, err := parseWhere(d, w)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "parsing filter", err)
		}
		preds = append(preds, p)
	}
	return joins, preds, nil
}

type selectOptions struct {
	queryFlags
	order    []string
	limit    int
	offset   int
	strategy string
	distinct bool
	lock     bool
}

// SelectResult is the JSON output of the select command.
type SelectResult struct {
	Strategy   string      `json:"strategy"`
	Statements []statement `json:"statements"`
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &selectOptions{}
	cmd := &cobra.Command{
		Use:   "select <type>",
		Short: "Compile a graph select",
		Long: `Compile a select of the entities of <type> and the graph reached through
the joins. The statements of a two-query plan are shown for one root id.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(rootOpts, opts, args[0], cmd)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringArrayVarP(&opts.order, "order", "o", nil, `root ordering, "prop" or "-prop" for descending`)
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum number of roots")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "number of roots to skip")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "select strategy (exists|in|two_queries), default from the dialect")
	cmd.Flags().BoolVar(&opts.distinct, "distinct", false, "select distinct rows")
	cmd.Flags().BoolVar(&opts.lock, "lock", false, "lock the selected rows for update")
	return cmd
}

func runSelect(rootOpts *RootOptions, opts *selectOptions, typ string, cmd *cobra.Command) error {
	e, err := load(rootOpts)
	if err != nil {
		return err
	}
	joins, preds, err := opts.build(e, typ)
	if err != nil {
		return err
	}
	s := &sqlgraph.Select{
		Type:     typ,
		Joins:    joins,
		Where:    preds,
		Order:    parseOrder(opts.order),
		Limit:    opts.limit,
		Offset:   opts.offset,
		Distinct: opts.distinct,
		Lock:     opts.lock,
	}
	if opts.strategy != "" {
		if s.Strategy, err = dialect.ParseStrategy(opts.strategy); err != nil {
			return WrapExitError(ExitCommandError, "parsing strategy", err)
		}
	}
	eng, err := e.engine(rootOpts)
	if err != nil {
		return err
	}
	plan, err := eng.CompileSelect(s)
	if err != nil {
		return WrapExitError(ExitCommandError, "compiling select", err)
	}
	rootOpts.logger.Debug("select compiled", "type", typ, "strategy", plan.Strategy, "statements", len(plan.Queries))
	res := SelectResult{Strategy: plan.Strategy.String(), Statements: statements(eng.Dialect(), plan.Queries)}
	return newFormatter(rootOpts, cmd.OutOrStdout()).result(res, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "-- strategy: %s\n", res.Strategy); err != nil {
			return err
		}
		return writeStatements(w, res.Statements)
	})
}
