package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	migrate "github.com/syssam/relgraph/dialect/sql/schema"
	"github.com/syssam/relgraph/schema"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the schema mapping",
		Long: `Check the entity metadata of the schema: identifiers, relation shapes,
relation targets and the derived tables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load(rootOpts)
			if err != nil {
				return err
			}
			return report(rootOpts, cmd, migrate.Validate(e.registry, e.config), "schema is invalid")
		},
	}
}

type diffOptions struct {
	dropColumn bool
	dropTable  bool
	notNull    bool
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &diffOptions{}
	cmd := &cobra.Command{
		Use:   "diff <current-schema>",
		Short: "Check a schema change for breaking table changes",
		Long: `Compare the tables of <current-schema> with the tables of --schema and
report the changes that would break existing data.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(rootOpts, opts, args[0], cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.dropColumn, "allow-drop-column", false, "report dropped columns as warnings")
	cmd.Flags().BoolVar(&opts.dropTable, "allow-drop-table", false, "report dropped tables as warnings")
	cmd.Flags().BoolVar(&opts.notNull, "allow-not-null", false, "allow nullable columns to become not null")
	return cmd
}

func runDiff(rootOpts *RootOptions, opts *diffOptions, currentPath string, cmd *cobra.Command) error {
	e, err := load(rootOpts)
	if err != nil {
		return err
	}
	current, err := schema.LoadYAMLFile(currentPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading current schema", err)
	}
	from, err := migrate.Tables(current, e.config)
	if err != nil {
		return WrapExitError(ExitCommandError, "deriving current tables", err)
	}
	to, err := migrate.Tables(e.registry, e.config)
	if err != nil {
		return WrapExitError(ExitCommandError, "deriving tables", err)
	}
	var vopts []migrate.ValidateOption
	if opts.dropColumn {
		vopts = append(vopts, migrate.AllowDropColumn())
	}
	if opts.dropTable {
		vopts = append(vopts, migrate.AllowDropTable())
	}
	if opts.notNull {
		vopts = append(vopts, migrate.AllowNullToNotNull())
	}
	return report(rootOpts, cmd, migrate.ValidateDiff(from, to, vopts...), "breaking changes detected")
}

func report(rootOpts *RootOptions, cmd *cobra.Command, res *migrate.ValidationResult, failure string) error {
	f := newFormatter(rootOpts, cmd.OutOrStdout())
	text := func(w io.Writer) error {
		_, err := fmt.Fprintln(w, res.String())
		return err
	}
	if res.HasErrors() {
		return f.failure(res, NewExitError(ExitFailure, failure), text)
	}
	return f.result(res, text)
}
