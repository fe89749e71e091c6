package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/syssam/relgraph/dialect/sql/sqlgraph"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "delete <type>",
		Short: "Compile a cascading delete",
		Long: `Compile a delete of the entities of <type> matching the filter and of the
rows reached from them through the joins. Without joins a single DELETE is
shown; with joins, the identifier select is followed by the deletes of the
root type.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, opts, args[0], cmd)
		},
	}
	opts.register(cmd)
	return cmd
}

func runDelete(rootOpts *RootOptions, opts *queryFlags, typ string, cmd *cobra.Command) error {
	e, err := load(rootOpts)
	if err != nil {
		return err
	}
	joins, preds, err := opts.build(e, typ)
	if err != nil {
		return err
	}
	eng, err := e.engine(rootOpts)
	if err != nil {
		return err
	}
	queries, err := eng.CompileDelete(&sqlgraph.Delete{Type: typ, Joins: joins, Where: preds})
	if err != nil {
		return WrapExitError(ExitCommandError, "compiling delete", err)
	}
	stmts := statements(eng.Dialect(), queries)
	return newFormatter(rootOpts, cmd.OutOrStdout()).result(stmts, func(w io.Writer) error {
		return writeStatements(w, stmts)
	})
}
