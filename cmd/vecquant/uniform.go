package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hupe1980/vecquant"
	"github.com/hupe1980/vecquant/quantization"
)

func uniformCmd() *cli.Command {
	var (
		input  string
		output string
		bits   int
		scale  float64
		strict bool
	)

	return &cli.Command{
		Name:  "uniform",
		Usage: "Quantize a matrix with one symmetric scale",
		Flags: commonFlags(
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "JSON matrix file (- for stdin)", Required: true, Destination: &input},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "artifact name", Value: "uniform.vqnt", Destination: &output},
			&cli.IntFlag{Name: "bits", Aliases: []string{"b"}, Usage: "bit width (2-32)", Value: 8, Destination: &bits},
			&cli.Float64Flag{Name: "scale", Usage: "use this scale instead of max|x|/qmax; out-of-range values are clamped", Destination: &scale},
			&cli.BoolFlag{Name: "strict", Usage: "fail on all-zero input", Destination: &strict},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			var extra []vecquant.Option
			if strict {
				extra = append(extra, vecquant.WithStrictDegeneracy())
			}

			e, err := setup(ctx, c, extra...)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer e.close()

			x, err := readMatrix(input)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read input: %v", err), 1)
			}

			var q *quantization.QuantizedTensor
			if c.IsSet("scale") {
				var report *quantization.ClampReport
				q, report, err = e.c.QuantizeWithScale(ctx, x, scale, bits)
				if err == nil && report.Any() {
					_, _ = fmt.Fprintf(e.out, "clamped: %d of %d values\n", report.Count, x.Len())
				}
			} else {
				q, err = e.c.Quantize(ctx, x, bits)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: quantize: %v", err), 1)
			}

			_, _ = fmt.Fprintf(e.out, "scale: %.9g (bits=%d, qmax=%d)\n", q.Scale(), q.NumBits(), q.QMax())

			decoded, err := quantization.Dequantize(q)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: dequantize: %v", err), 1)
			}
			return finish(ctx, e, output, q, x, decoded)
		},
	}
}
