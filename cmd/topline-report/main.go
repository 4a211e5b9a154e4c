package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/surveyforge/themecode/coding"
	"github.com/surveyforge/themecode/coding/fileutils"
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

	dataset, err := coding.LoadDataset(cfg.DataPath, cfg.IDColumn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	opts := coding.ToplineOptions{
		WeightColumn: cfg.WeightColumn,
		SplitColumn:  cfg.SplitColumn,
	}
	var tables []coding.ToplineTable
	for _, q := range cfg.Questions {
		t, err := coding.ComputeTopline(dataset, q, opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
		tables = append(tables, t)
	}

	summaries := map[string]string{}
	summarized := 0
	if cfg.Summaries {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key)")
			os.Exit(2)
		}
		client := openai.NewClient(option.WithAPIKey(apiKey))

		for _, t := range tables {
			input := coding.BuildToplineSummaryInput([]coding.ToplineTable{t}, cfg.MaxChars)
			text, err := provider.Chat(ctx, &client, cfg.Model, coding.ToplineSummaryInstructions, input, 1000)
			if err != nil {
				fmt.Fprintf(os.Stderr, "summarize %s: %s\n", t.Question, provider.UpstreamErrorMessage(err))
				continue
			}
			text = strings.TrimSpace(text)
			if text != "" {
				summaries[t.Question] = text
				summarized++
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.OutPath), 0o755); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("mkdir -out dir: %w", err).Error())
		os.Exit(1)
	}

	report := coding.RenderToplineReport(tables, summaries, coding.ReportOptions{Title: cfg.Title})
	if err := fileutils.WriteFileAtomic(cfg.OutPath, []byte(report), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("write -out: %w", err).Error())
		os.Exit(1)
	}

	if cfg.TablesOut != "" {
		if err := fileutils.WriteJSONFile(cfg.TablesOut, tables, true); err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("write -tables-json: %w", err).Error())
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stdout, "tables=%d summaries=%d report=%s\n", len(tables), summarized, cfg.OutPath)
}
