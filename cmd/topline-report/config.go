package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	DataPath  string
	IDColumn  string
	Questions []string

	WeightColumn string
	SplitColumn  string

	OutPath   string
	TablesOut string
	Title     string

	Summaries bool
	Model     string
	APIKey    string
	MaxChars  int
}

func (c Config) Validate() error {
	if c.DataPath == "" {
		return errors.New("missing -data")
	}
	if len(c.Questions) == 0 {
		return errors.New("missing -questions")
	}
	if c.OutPath == "" {
		return errors.New("missing -out")
	}
	if c.Summaries && c.Model == "" {
		return errors.New("missing -model (required with -summaries)")
	}
	if c.MaxChars < 0 {
		return errors.New("max-chars must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutPath: filepath.FromSlash("out/topline.md"),
		Title:   "Topline Report",
		Model:   "gpt-5-mini",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	var questions string
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "Path to the survey CSV (header row required)")
	fs.StringVar(&cfg.IDColumn, "id-column", "", "Respondent ID column (default: probe common names, then first column)")
	fs.StringVar(&questions, "questions", "", "Comma-separated closed-ended question columns to tabulate")
	fs.StringVar(&cfg.WeightColumn, "weight-column", "", "Optional per-row weight column (invalid weights count as 1.0)")
	fs.StringVar(&cfg.SplitColumn, "split-column", "", "Optional column to break each table out by segment")
	fs.StringVar(&cfg.OutPath, "out", cfg.OutPath, "Path for the markdown report")
	fs.StringVar(&cfg.TablesOut, "tables-json", "", "Optional path for the raw tables as JSON")
	fs.StringVar(&cfg.Title, "title", cfg.Title, "Report title")
	fs.BoolVar(&cfg.Summaries, "summaries", false, "Add a model-written prose summary under each table")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model for -summaries")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.IntVar(&cfg.MaxChars, "max-chars", 0, "Max chars of table text per summary prompt (0 = default budget)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	for _, q := range strings.Split(questions, ",") {
		q = strings.TrimSpace(q)
		if q != "" {
			cfg.Questions = append(cfg.Questions, q)
		}
	}
	if cfg.DataPath != "" {
		cfg.DataPath = filepath.Clean(cfg.DataPath)
	}
	cfg.OutPath = filepath.Clean(cfg.OutPath)
	if cfg.TablesOut != "" {
		cfg.TablesOut = filepath.Clean(cfg.TablesOut)
	}
	return cfg, nil
}
