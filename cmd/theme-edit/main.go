package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/surveyforge/themecode/coding"
	"github.com/surveyforge/themecode/coding/provider"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := coding.LoadResultSet(cfg.ResultsPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	themes, ok := results.Themes(cfg.Question)
	if !ok {
		fmt.Fprintf(os.Stderr, "no themes for question %q in %s\n", cfg.Question, cfg.ResultsPath)
		os.Exit(2)
	}

	tracker := coding.NewSelectionTracker()
	if cfg.SelectAll {
		tracker.SelectAll(cfg.Question, themes)
	} else {
		indices, err := parseSelection(cfg.Select)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
		for _, i := range indices {
			if i >= len(themes) {
				fmt.Fprintf(os.Stderr, "-select index %d out of range (have %d themes)\n", i, len(themes))
				os.Exit(2)
			}
			tracker.Toggle(cfg.Question, themes[i].ID)
		}
	}
	selected := tracker.SelectedIndices(cfg.Question, themes)

	opsText, err := obtainOperations(ctx, cfg, themes, selected)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	items, err := coding.ExtractArray(opsText)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("parse operations: %w", err).Error())
		os.Exit(1)
	}
	batch := coding.DecodeBatch(items)
	result := coding.Apply(themes, batch)

	for _, s := range result.Skipped {
		note := ""
		if s.Note != "" {
			note = " (" + s.Note + ")"
		}
		fmt.Fprintf(os.Stderr, "skipped %s: %s%s\n", skippedKind(s), s.Reason, note)
	}

	if cfg.DryRun {
		var b []byte
		if cfg.Pretty {
			b, err = json.MarshalIndent(result.Themes, "", "  ")
		} else {
			b, err = json.Marshal(result.Themes)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Fprintln(os.Stdout, string(b))
		return
	}

	results.SetThemes(cfg.Question, result.Themes)
	if err := coding.SaveResultSet(cfg.ResultsPath, results); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "ops_applied=%d ops_skipped=%d themes=%d results=%s\n",
		len(result.Applied), len(result.Skipped), len(result.Themes), cfg.ResultsPath)
}

func skippedKind(s coding.SkippedOp) string {
	if s.Kind != "" {
		return string(s.Kind)
	}
	return "operation"
}

// obtainOperations produces the JSON operation array text, either from a
// local -edits-file or from a model call.
func obtainOperations(ctx context.Context, cfg Config, themes []coding.Theme, selected []int) (string, error) {
	if cfg.EditsFile != "" {
		b, err := os.ReadFile(cfg.EditsFile)
		if err != nil {
			return "", fmt.Errorf("read -edits-file: %w", err)
		}
		return string(b), nil
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("missing OPENAI_API_KEY (or pass -api-key)")
	}

	instructions := cfg.Instructions
	if cfg.InstructionsFile != "" {
		b, err := os.ReadFile(cfg.InstructionsFile)
		if err != nil {
			return "", fmt.Errorf("read -instructions-file: %w", err)
		}
		instructions = strings.TrimSpace(string(b))
	}

	var records []coding.Record
	if cfg.DataPath != "" {
		dataset, err := coding.LoadDataset(cfg.DataPath, cfg.IDColumn)
		if err != nil {
			return "", err
		}
		if dataset.HasColumn(cfg.Question) {
			records, err = dataset.Records(cfg.Question)
			if err != nil {
				return "", err
			}
		}
	}

	input, err := coding.BuildEditPrompt(coding.EditPromptParams{
		Question:         cfg.Question,
		Themes:           themes,
		AllowedIndices:   selected,
		Instructions:     instructions,
		Records:          records,
		MaxResponseChars: cfg.MaxResponseChars,
	})
	if err != nil {
		return "", err
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	text, err := provider.Chat(ctx, &client, cfg.Model, coding.EditInstructions, input, 4000)
	if err != nil {
		return "", fmt.Errorf("edit call: %s", provider.UpstreamErrorMessage(err))
	}
	return text, nil
}
