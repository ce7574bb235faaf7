package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the vecquant configuration file.
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	StoreDir string `yaml:"store_dir"`

	S3 struct {
		Bucket   string `yaml:"bucket"`
		Prefix   string `yaml:"prefix"`
		Region   string `yaml:"region"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"s3"`

	MinIO struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		Secure    *bool  `yaml:"secure"`
	} `yaml:"minio"`

	CacheEntries *int `yaml:"cache_entries"`

	Codec         string   `yaml:"codec"`
	Compression   string   `yaml:"compression"`
	Workers       *int     `yaml:"workers"`
	Seed          *int64   `yaml:"seed"`
	MaxIterations *int     `yaml:"max_iterations"`
	Tolerance     *float64 `yaml:"tolerance"`
	MetricsAddr   string   `yaml:"metrics_addr"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "vecquant", "config.yaml")
}

// LoadConfig reads the config file at path, or the default location when
// path is empty. A missing default file yields a zero Config; a missing
// explicit file is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func setString(c *cli.Command, name string, dst *string, v string) {
	if v != "" && !c.IsSet(name) {
		*dst = v
	}
}

func setPtr[T any](c *cli.Command, name string, dst *T, v *T) {
	if v != nil && !c.IsSet(name) {
		*dst = *v
	}
}

// applyConfig applies config file values to flag variables whose flag was
// not explicitly set.
func applyConfig(c *cli.Command, cfg Config) {
	setString(c, "store-dir", &storeDir, cfg.StoreDir)

	setString(c, "s3-bucket", &s3Bucket, cfg.S3.Bucket)
	setString(c, "s3-prefix", &s3Prefix, cfg.S3.Prefix)
	setString(c, "s3-region", &s3Region, cfg.S3.Region)
	setString(c, "s3-endpoint", &s3Endpoint, cfg.S3.Endpoint)

	setString(c, "minio-endpoint", &minioEndpoint, cfg.MinIO.Endpoint)
	setString(c, "minio-access-key", &minioAccessKey, cfg.MinIO.AccessKey)
	setString(c, "minio-secret-key", &minioSecretKey, cfg.MinIO.SecretKey)
	setString(c, "minio-bucket", &minioBucket, cfg.MinIO.Bucket)
	setPtr(c, "minio-secure", &minioSecure, cfg.MinIO.Secure)
	setPtr(c, "cache-entries", &cacheEntries, cfg.CacheEntries)

	setString(c, "codec", &codecName, cfg.Codec)
	setString(c, "compression", &compression, cfg.Compression)
	setPtr(c, "workers", &workers, cfg.Workers)
	setPtr(c, "seed", &seed, cfg.Seed)
	setPtr(c, "max-iterations", &maxIter, cfg.MaxIterations)
	setPtr(c, "tolerance", &tolerance, cfg.Tolerance)
	setString(c, "metrics-addr", &metricsAddr, cfg.MetricsAddr)

	setString(c, "log-level", &logLevel, cfg.LogLevel)
	setString(c, "log-format", &logFormat, cfg.LogFormat)
}
