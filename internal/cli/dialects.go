package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/syssam/relgraph/dialect"
)

// DialectInfo is the capability summary of one dialect.
type DialectInfo struct {
	Name                string `json:"name"`
	MaxIdentifierLength int    `json:"max_identifier_length"`
	MaxParameters       int    `json:"max_parameters"`
	BatchInserts        bool   `json:"batch_inserts"`
	Paging              string `json:"paging"`
	Strategy            string `json:"strategy"`
	Locking             bool   `json:"locking"`
	LockingWithJoins    bool   `json:"locking_with_joins"`
	Sequences           bool   `json:"sequences"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "dialects",
		Short:         "List the supported dialects and their capabilities",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := dialectInfos()
			if err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd.OutOrStdout()).result(infos, func(w io.Writer) error {
				return writeDialects(w, infos)
			})
		},
	}
}

func dialectInfos() ([]DialectInfo, error) {
	var infos []DialectInfo
	for _, name := range dialect.Names() {
		d, err := dialect.For(name)
		if err != nil {
			return nil, err
		}
		_, seq := d.CreateSequenceSQL("s")
		infos = append(infos, DialectInfo{
			Name:                d.Name(),
			MaxIdentifierLength: d.MaxIdentifierLength(),
			MaxParameters:       d.MaxParameters(),
			BatchInserts:        d.SupportsBatchInserts(),
			Paging:              d.Paging().String(),
			Strategy:            d.SelectStrategy().String(),
			Locking:             d.SupportsLocking(false),
			LockingWithJoins:    d.SupportsLocking(true),
			Sequences:           seq,
		})
	}
	return infos, nil
}

func writeDialects(w io.Writer, infos []DialectInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIALECT\tIDENT\tPARAMS\tBATCH\tPAGING\tSTRATEGY\tLOCK\tLOCK+JOIN\tSEQUENCES")
	for _, i := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%t\t%s\t%s\t%t\t%t\t%t\n",
			i.Name, i.MaxIdentifierLength, i.MaxParameters, i.BatchInserts,
			i.Paging, i.Strategy, i.Locking, i.LockingWithJoins, i.Sequences)
	}
	return tw.Flush()
}
