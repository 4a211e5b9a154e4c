package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type Config struct {
	ResultsPath string
	Question    string

	Select    string
	SelectAll bool

	Instructions     string
	InstructionsFile string
	EditsFile        string

	DataPath string
	IDColumn string

	Model  string
	APIKey string

	MaxResponseChars int
	DryRun           bool
	Pretty           bool
}

func (c Config) Validate() error {
	if c.ResultsPath == "" {
		return errors.New("missing -results")
	}
	if c.Question == "" {
		return errors.New("missing -question")
	}
	if c.Select == "" && !c.SelectAll {
		return errors.New("missing -select (or pass -all)")
	}
	if c.EditsFile == "" && c.Model == "" {
		return errors.New("missing -model (or pass -edits-file)")
	}
	if c.Instructions != "" && c.InstructionsFile != "" {
		return errors.New("pass -instructions or -instructions-file, not both")
	}
	if c.MaxResponseChars < 0 {
		return errors.New("max-response-chars must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		ResultsPath: filepath.FromSlash("out/results.json"),
		Model:       "gpt-5-mini",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.ResultsPath, "results", cfg.ResultsPath, "Path to the results JSON file")
	fs.StringVar(&cfg.Question, "question", "", "Question column whose themes to edit")
	fs.StringVar(&cfg.Select, "select", "", "Comma-separated theme indices to edit (0-based)")
	fs.BoolVar(&cfg.SelectAll, "all", false, "Select every theme for editing")
	fs.StringVar(&cfg.Instructions, "instructions", "", "Edit instructions for the model")
	fs.StringVar(&cfg.InstructionsFile, "instructions-file", "", "Path to a file holding the edit instructions")
	fs.StringVar(&cfg.EditsFile, "edits-file", "", "Path to a JSON array of edit operations; skips the model call")
	fs.StringVar(&cfg.DataPath, "data", "", "Optional survey CSV so the prompt includes the underlying responses")
	fs.StringVar(&cfg.IDColumn, "id-column", "", "Respondent ID column for -data")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model to use")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.IntVar(&cfg.MaxResponseChars, "max-response-chars", 0, "Max chars of responses in the prompt (0 = default budget)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Print the edited themes without saving")
	fs.BoolVar(&cfg.Pretty, "pretty", true, "Pretty-print the dry-run theme JSON")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.ResultsPath = filepath.Clean(cfg.ResultsPath)
	if cfg.InstructionsFile != "" {
		cfg.InstructionsFile = filepath.Clean(cfg.InstructionsFile)
	}
	if cfg.EditsFile != "" {
		cfg.EditsFile = filepath.Clean(cfg.EditsFile)
	}
	if cfg.DataPath != "" {
		cfg.DataPath = filepath.Clean(cfg.DataPath)
	}
	return cfg, nil
}

// parseSelection turns "-select 0,2,5" into sorted unique indices.
func parseSelection(s string) ([]int, error) {
	var out []int
	seen := map[int]struct{}{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad -select index %q", part)
		}
		if n < 0 {
			return nil, fmt.Errorf("bad -select index %d", n)
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("-select names no indices")
	}
	sort.Ints(out)
	return out, nil
}
