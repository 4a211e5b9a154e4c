package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
)

type Config struct {
	ResultsPath string
	OutDir      string
	Format      string

	LongPath string
	WidePath string
}

func (c Config) Validate() error {
	if c.ResultsPath == "" {
		return errors.New("missing -results")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	switch c.Format {
	case "long", "wide", "both":
	default:
		return errors.New("-format must be long, wide, or both")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		ResultsPath: filepath.FromSlash("out/results.json"),
		OutDir:      filepath.FromSlash("out"),
		Format:      "both",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.ResultsPath, "results", cfg.ResultsPath, "Path to the results JSON file")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Output directory for the CSV files")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Which exports to write: long, wide, or both")
	fs.StringVar(&cfg.LongPath, "long-file", "", "Optional path for the long CSV (default: <out>/themes_long.csv)")
	fs.StringVar(&cfg.WidePath, "wide-file", "", "Optional path for the wide CSV (default: <out>/themes_wide.csv)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.ResultsPath = filepath.Clean(cfg.ResultsPath)
	cfg.OutDir = filepath.Clean(cfg.OutDir)
	if cfg.LongPath == "" {
		cfg.LongPath = filepath.Join(cfg.OutDir, "themes_long.csv")
	} else {
		cfg.LongPath = filepath.Clean(cfg.LongPath)
	}
	if cfg.WidePath == "" {
		cfg.WidePath = filepath.Join(cfg.OutDir, "themes_wide.csv")
	} else {
		cfg.WidePath = filepath.Clean(cfg.WidePath)
	}
	return cfg, nil
}
