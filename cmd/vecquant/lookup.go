package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hupe1980/vecquant/quantization"
)

func lookupCmd() *cli.Command {
	var (
		artifact  string
		query     string
		queryFile string
		rows      string
		topK      int
	)

	return &cli.Command{
		Name:  "lookup",
		Usage: "Approximate dot products of a query with PQ-encoded rows",
		Flags: commonFlags(
			&cli.StringFlag{Name: "artifact", Aliases: []string{"a"}, Usage: "PQ artifact name", Required: true, Destination: &artifact},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "query vector as JSON array", Destination: &query},
			&cli.StringFlag{Name: "query-file", Usage: "file holding the query vector as JSON array", Destination: &queryFile},
			&cli.StringFlag{Name: "rows", Usage: "row selection such as 0,2,5-9 (default: all rows)", Destination: &rows},
			&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "print only the k best rows (0 = all, in row order)", Destination: &topK},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			if (query == "") == (queryFile == "") {
				return cli.Exit("error: exactly one of --query and --query-file is required", 1)
			}
			if queryFile != "" {
				data, err := os.ReadFile(queryFile)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: read query: %v", err), 1)
				}
				query = strings.TrimSpace(string(data))
			}

			q, err := parseVector(query)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			selection, err := parseRows(rows)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			e, err := setup(ctx, c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer e.close()

			a, _, err := e.c.Load(ctx, artifact)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load: %v", err), 1)
			}
			pa, ok := a.(*quantization.PQArtifact)
			if !ok {
				return cli.Exit(fmt.Sprintf("error: %s holds a %s artifact, lookup needs PQ", artifact, a.Type()), 1)
			}

			rebuilt, err := e.c.QuantizerFor(pa)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			pq := rebuilt.(*quantization.ProductQuantizer)

			var scores []quantization.RowScore
			if topK > 0 {
				scores, err = e.c.TopK(ctx, pq, pa.Codes(), q, topK, selection)
			} else {
				scores, err = e.c.DotProducts(ctx, pq, pa.Codes(), q, selection)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: lookup: %v", err), 1)
			}

			for _, s := range scores {
				_, _ = fmt.Fprintf(e.out, "%d\t%.9g\n", s.Row, s.Score)
			}
			return nil
		},
	}
}
