package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hupe1980/vecquant/quantization"
	"github.com/hupe1980/vecquant/tensor"
)

func vqCmd() *cli.Command {
	var (
		input  string
		output string
		k      int
		mode   string
	)

	return &cli.Command{
		Name:  "vq",
		Usage: "Train a vector quantization codebook and encode a matrix",
		Flags: commonFlags(
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "JSON matrix file (- for stdin)", Required: true, Destination: &input},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "artifact name", Value: "vq.vqnt", Destination: &output},
			&cli.IntFlag{Name: "k", Usage: "number of centroids", Value: 16, Destination: &k},
			&cli.StringFlag{Name: "mode", Usage: "sample mode (scalars, rows)", Value: "scalars", Destination: &mode},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			sm, err := quantization.ParseSampleMode(mode)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			e, err := setup(ctx, c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer e.close()

			x, err := readMatrix(input)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read input: %v", err), 1)
			}

			vq, err := e.c.TrainVQ(ctx, x, k, sm)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: train: %v", err), 1)
			}

			stats := vq.Stats()
			_, _ = fmt.Fprintf(e.out, "trained: k=%d mode=%s iterations=%d converged=%t inertia=%.6g\n",
				k, sm, stats.Iterations, stats.Converged, stats.Inertia)

			return encodeAndFinish(ctx, e, vq, x, output)
		},
	}
}

func pqCmd() *cli.Command {
	var (
		input  string
		output string
		m      int
		k      int
	)

	return &cli.Command{
		Name:  "pq",
		Usage: "Train product quantization codebooks and encode a matrix",
		Flags: commonFlags(
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "JSON matrix file (- for stdin)", Required: true, Destination: &input},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "artifact name", Value: "pq.vqnt", Destination: &output},
			&cli.IntFlag{Name: "m", Usage: "number of subspaces (must divide the column count)", Value: 2, Destination: &m},
			&cli.IntFlag{Name: "k", Usage: "centroids per subspace", Value: 256, Destination: &k},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := setup(ctx, c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer e.close()

			x, err := readMatrix(input)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read input: %v", err), 1)
			}

			pq, err := e.c.TrainPQ(ctx, x, m, k)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: train: %v", err), 1)
			}

			_, _ = fmt.Fprintf(e.out, "trained: m=%d k=%d bits/code=%d compression=%.1fx\n",
				m, k, pq.BitsPerCode(), pq.CompressionRatio())

			return encodeAndFinish(ctx, e, pq, x, output)
		},
	}
}

func encodeAndFinish(ctx context.Context, e *env, q quantization.Quantizer, x *tensor.Tensor, output string) error {
	a, err := e.c.Encode(ctx, q, x)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: encode: %v", err), 1)
	}

	decoded, err := e.c.Decode(ctx, q, a)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: decode: %v", err), 1)
	}
	return finish(ctx, e, output, a, x, decoded)
}

// finish prints reconstruction metrics and saves the artifact.
func finish(ctx context.Context, e *env, output string, a quantization.Artifact, x, decoded *tensor.Tensor) error {
	report, err := e.c.Evaluate(x, decoded)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: evaluate: %v", err), 1)
	}
	_, _ = fmt.Fprintf(e.out, "reconstruction: %s\n", report)

	h, err := e.c.Save(ctx, output, a)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: save: %v", err), 1)
	}
	_, _ = fmt.Fprintf(e.out, "saved: %s (%s)\n", output, h)
	return nil
}
