package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hupe1980/vecquant/persistence"
	"github.com/hupe1980/vecquant/quantization"
)

func inspectCmd() *cli.Command {
	var (
		artifact string
		decode   bool
		against  string
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Show the header of a stored artifact",
		Flags: commonFlags(
			&cli.StringFlag{Name: "artifact", Aliases: []string{"a"}, Usage: "artifact name", Required: true, Destination: &artifact},
			&cli.BoolFlag{Name: "decode", Usage: "load and decode the payload as well", Destination: &decode},
			&cli.StringFlag{Name: "against", Usage: "JSON matrix to compare the reconstruction with (implies --decode)", Destination: &against},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := setup(ctx, c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer e.close()

			h, err := persistence.Stat(ctx, e.store, artifact)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			_, _ = fmt.Fprintf(e.out, "name:        %s\n", artifact)
			_, _ = fmt.Fprintf(e.out, "type:        %s\n", h.ArtifactType())
			_, _ = fmt.Fprintf(e.out, "id:          %s\n", h.ID)
			_, _ = fmt.Fprintf(e.out, "version:     %d\n", h.Version)
			_, _ = fmt.Fprintf(e.out, "codec:       %s\n", h.CodecName())
			_, _ = fmt.Fprintf(e.out, "compression: %s\n", h.CompressionType())
			_, _ = fmt.Fprintf(e.out, "payload:     %d bytes stored, %d raw\n", h.StoredSize, h.RawSize)
			_, _ = fmt.Fprintf(e.out, "crc32c:      %08x\n", h.Checksum)

			if !decode && against == "" {
				return nil
			}

			a, _, err := e.c.Load(ctx, artifact)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load: %v", err), 1)
			}
			rows, cols := a.Shape()
			_, _ = fmt.Fprintf(e.out, "shape:       %dx%d\n", rows, cols)
			describe(e, a)

			q, err := e.c.QuantizerFor(a)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			decoded, err := e.c.Decode(ctx, q, a)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: decode: %v", err), 1)
			}

			if against != "" {
				x, err := readMatrix(against)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: read matrix: %v", err), 1)
				}
				report, err := e.c.Evaluate(x, decoded)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: evaluate: %v", err), 1)
				}
				_, _ = fmt.Fprintf(e.out, "reconstruction: %s\n", report)
			}
			return nil
		},
	}
}

func describe(e *env, a quantization.Artifact) {
	switch a := a.(type) {
	case *quantization.QuantizedTensor:
		_, _ = fmt.Fprintf(e.out, "bits:        %d\n", a.NumBits())
		_, _ = fmt.Fprintf(e.out, "scale:       %.9g\n", a.Scale())
	case *quantization.VQArtifact:
		_, _ = fmt.Fprintf(e.out, "mode:        %s\n", a.Mode())
		_, _ = fmt.Fprintf(e.out, "centroids:   %d x %d\n", a.Codebook().K(), a.Codebook().Dim())
	case *quantization.PQArtifact:
		cb := a.Codebooks()[0]
		_, _ = fmt.Fprintf(e.out, "subspaces:   %d\n", a.NumSubvectors())
		_, _ = fmt.Fprintf(e.out, "centroids:   %d x %d per subspace\n", cb.K(), cb.Dim())
	}
}

func listCmd() *cli.Command {
	var prefix string

	return &cli.Command{
		Name:  "list",
		Usage: "List stored artifacts",
		Flags: commonFlags(
			&cli.StringFlag{Name: "prefix", Usage: "only list names with this prefix", Destination: &prefix},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := setup(ctx, c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer e.close()

			names, err := e.c.List(ctx, prefix)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: list: %v", err), 1)
			}
			for _, name := range names {
				_, _ = fmt.Fprintln(e.out, name)
			}
			return nil
		},
	}
}
