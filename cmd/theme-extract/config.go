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
	OutPath   string
	Model     string
	APIKey    string

	CodebookPath      string
	CodebookMaxLabels int
	CodebookMinCount  int

	IndexPath  string
	ReportPath string

	TargetThemes     int
	MaxResponseChars int
	BatchChars       int
	MaxQuestions     int

	Resume      bool
	Concurrency int
}

func (c Config) Validate() error {
	if c.DataPath == "" {
		return errors.New("missing -data")
	}
	if c.OutPath == "" {
		return errors.New("missing -out")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.CodebookMaxLabels < 0 {
		return errors.New("codebook-max-labels must be >= 0")
	}
	if c.CodebookMinCount < 0 {
		return errors.New("codebook-min-count must be >= 0")
	}
	if c.TargetThemes < 0 {
		return errors.New("target-themes must be >= 0")
	}
	if c.MaxResponseChars < 0 {
		return errors.New("max-response-chars must be >= 0")
	}
	if c.BatchChars < 0 {
		return errors.New("batch-chars must be >= 0")
	}
	if c.MaxQuestions < 0 {
		return errors.New("max-questions must be >= 0")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutPath:           filepath.FromSlash("out/results.json"),
		Model:             "gpt-5-mini",
		CodebookMaxLabels: 40,
		CodebookMinCount:  0,
		TargetThemes:      8,
		Resume:            true,
		Concurrency:       3,
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	var questions string
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "Path to the survey CSV (header row required)")
	fs.StringVar(&cfg.IDColumn, "id-column", "", "Respondent ID column (default: probe common names, then first column)")
	fs.StringVar(&questions, "questions", "", "Comma-separated open-ended question columns (default: every non-ID column)")
	fs.StringVar(&cfg.OutPath, "out", cfg.OutPath, "Path for the results JSON file")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model to use (e.g. gpt-5-mini)")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.StringVar(&cfg.CodebookPath, "codebook", "", "Optional path for codebook.json (default: <out dir>/codebook.json)")
	fs.IntVar(&cfg.CodebookMaxLabels, "codebook-max-labels", cfg.CodebookMaxLabels, "Max codebook labels to include in the prompt (0 disables)")
	fs.IntVar(&cfg.CodebookMinCount, "codebook-min-count", cfg.CodebookMinCount, "Cull codebook labels with count < N at end of run (0 disables)")
	fs.StringVar(&cfg.IndexPath, "index", "", "Optional path for results.jsonl (default: <out dir>/results.jsonl)")
	fs.StringVar(&cfg.ReportPath, "report", "", "Optional path for a markdown theme report")
	fs.IntVar(&cfg.TargetThemes, "target-themes", cfg.TargetThemes, "Suggested theme count per question (0 = let the model decide)")
	fs.IntVar(&cfg.MaxResponseChars, "max-response-chars", 0, "Max chars of responses per prompt (0 = default budget)")
	fs.IntVar(&cfg.BatchChars, "batch-chars", 0, "Split a question's responses into batches of roughly N chars (0 = single batch)")
	fs.IntVar(&cfg.MaxQuestions, "max-questions", 0, "Code only the first N questions (0 = all)")
	fs.BoolVar(&cfg.Resume, "resume", cfg.Resume, "Skip questions that already have a successful result")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Max concurrent question inferences")

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
	if cfg.CodebookPath != "" {
		cfg.CodebookPath = filepath.Clean(cfg.CodebookPath)
	}
	if cfg.IndexPath != "" {
		cfg.IndexPath = filepath.Clean(cfg.IndexPath)
	}
	if cfg.ReportPath != "" {
		cfg.ReportPath = filepath.Clean(cfg.ReportPath)
	}
	return cfg, nil
}
