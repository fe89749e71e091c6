// Command relgraph compiles graph statements over a YAML entity schema.
package main

import (
	"fmt"
	"os"

	"github.com/syssam/relgraph/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "relgraph:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
