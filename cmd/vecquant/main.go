// Command vecquant quantizes matrices, trains VQ/PQ codebooks, answers
// approximate dot-product queries on PQ codes and inspects stored artifacts.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "vecquant",
		Usage: "Uniform, vector and product quantization of float matrices",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			uniformCmd(),
			vqCmd(),
			pqCmd(),
			lookupCmd(),
			inspectCmd(),
			listCmd(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
