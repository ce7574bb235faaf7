package main

import "github.com/urfave/cli/v3"

var (
	configFile string

	storeDir       string
	s3Bucket       string
	s3Prefix       string
	s3Region       string
	s3Endpoint     string
	minioEndpoint  string
	minioAccessKey string
	minioSecretKey string
	minioBucket    string
	minioSecure    bool
	cacheEntries   int

	codecName   string
	compression string
	workers     int
	seed        int64
	maxIter     int
	tolerance   float64
	metricsAddr string

	logLevel  string
	logFormat string
)

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store-dir",
			Aliases:     []string{"dir"},
			Usage:       "local directory holding artifacts",
			Value:       "./artifacts",
			Destination: &storeDir,
		},
		&cli.StringFlag{
			Name:        "s3-bucket",
			Usage:       "store artifacts in this S3 bucket instead of a local directory",
			Destination: &s3Bucket,
		},
		&cli.StringFlag{
			Name:        "s3-prefix",
			Usage:       "key prefix inside the S3 bucket",
			Destination: &s3Prefix,
		},
		&cli.StringFlag{
			Name:        "s3-region",
			Usage:       "AWS region override",
			Destination: &s3Region,
		},
		&cli.StringFlag{
			Name:        "s3-endpoint",
			Usage:       "custom S3 endpoint (e.g. LocalStack)",
			Destination: &s3Endpoint,
		},
		&cli.StringFlag{
			Name:        "minio-endpoint",
			Usage:       "store artifacts in MinIO at host:port",
			Destination: &minioEndpoint,
		},
		&cli.StringFlag{
			Name:        "minio-access-key",
			Usage:       "MinIO access key",
			Sources:     cli.EnvVars("MINIO_ACCESS_KEY"),
			Destination: &minioAccessKey,
		},
		&cli.StringFlag{
			Name:        "minio-secret-key",
			Usage:       "MinIO secret key",
			Sources:     cli.EnvVars("MINIO_SECRET_KEY"),
			Destination: &minioSecretKey,
		},
		&cli.StringFlag{
			Name:        "minio-bucket",
			Usage:       "MinIO bucket (created if missing)",
			Value:       "vecquant",
			Destination: &minioBucket,
		},
		&cli.BoolFlag{
			Name:        "minio-secure",
			Usage:       "use HTTPS for MinIO",
			Destination: &minioSecure,
		},
		&cli.IntFlag{
			Name:        "cache-entries",
			Usage:       "cache this many artifacts in memory (0 = no cache)",
			Destination: &cacheEntries,
		},
	}
}

func runtimeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "YAML config file (default: <user config dir>/vecquant/config.yaml)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "codec",
			Usage:       "artifact payload codec (json, go-json)",
			Value:       "go-json",
			Destination: &codecName,
		},
		&cli.StringFlag{
			Name:        "compression",
			Usage:       "artifact payload compression (none, lz4, zstd)",
			Value:       "none",
			Destination: &compression,
		},
		&cli.IntFlag{
			Name:        "workers",
			Aliases:     []string{"j"},
			Usage:       "parallelism (0 = GOMAXPROCS)",
			Destination: &workers,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "codebook initialization seed",
			Destination: &seed,
		},
		&cli.IntFlag{
			Name:        "max-iterations",
			Usage:       "maximum Lloyd iterations",
			Value:       20,
			Destination: &maxIter,
		},
		&cli.Float64Flag{
			Name:        "tolerance",
			Usage:       "convergence tolerance of codebook training",
			Value:       1e-6,
			Destination: &tolerance,
		},
		&cli.StringFlag{
			Name:        "metrics-addr",
			Usage:       "serve Prometheus metrics on this address while the command runs",
			Destination: &metricsAddr,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "warn",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
	}
}

// commonFlags returns the flags shared by every subcommand.
func commonFlags(own ...cli.Flag) []cli.Flag {
	flags := append([]cli.Flag{}, own...)
	flags = append(flags, storeFlags()...)
	flags = append(flags, runtimeFlags()...)
	return append(flags, loggingFlags()...)
}
