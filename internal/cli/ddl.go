package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	migrate "github.com/syssam/relgraph/dialect/sql/schema"
)

// NewDDLCommand creates the ddl command.
func NewDDLCommand(rootOpts *RootOptions) *cobra.Command {
	var drop bool
	cmd := &cobra.Command{
		Use:           "ddl",
		Short:         "Print the DDL of the schema",
		Long:          `Print the CREATE statements of the schema tables and sequences, or the DROP statements with --drop.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDDL(rootOpts, drop, cmd)
		},
	}
	cmd.Flags().BoolVar(&drop, "drop", false, "print DROP statements instead")
	return cmd
}

func runDDL(rootOpts *RootOptions, drop bool, cmd *cobra.Command) error {
	e, err := load(rootOpts)
	if err != nil {
		return err
	}
	gen := migrate.CreateSQL
	if drop {
		gen = migrate.DropSQL
	}
	stmts, err := gen(e.dialect, e.registry, migrate.WithConfig(e.config), migrate.WithLogger(rootOpts.logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "generating ddl", err)
	}
	return newFormatter(rootOpts, cmd.OutOrStdout()).result(stmts, func(w io.Writer) error {
		for _, s := range stmts {
			if _, err := fmt.Fprintf(w, "%s;\n", s); err != nil {
				return err
			}
		}
		return nil
	})
}
