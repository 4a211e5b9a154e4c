package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
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

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key)")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.OutPath), 0o755); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("mkdir -out dir: %w", err).Error())
		os.Exit(2)
	}

	dataset, err := coding.LoadDataset(cfg.DataPath, cfg.IDColumn)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	questions, err := resolveQuestions(cfg, dataset)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if cfg.MaxQuestions > 0 && len(questions) > cfg.MaxQuestions {
		questions = questions[:cfg.MaxQuestions]
	}

	codebookPath := cfg.CodebookPath
	if codebookPath == "" {
		codebookPath = filepath.Join(filepath.Dir(cfg.OutPath), "codebook.json")
	}
	indexPath := cfg.IndexPath
	if indexPath == "" {
		indexPath = filepath.Join(filepath.Dir(cfg.OutPath), "results.jsonl")
	}

	results, err := coding.LoadResultSet(cfg.OutPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	codebook, err := coding.LoadCodebook(codebookPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	coder := openAICoder{
		client:           &client,
		model:            cfg.Model,
		targetThemes:     cfg.TargetThemes,
		maxResponseChars: cfg.MaxResponseChars,
		batchChars:       cfg.BatchChars,
	}

	if cfg.Concurrency == 0 {
		cfg.Concurrency = 1
	}

	type questionOutcome struct {
		question string
		themes   []coding.Theme
		err      error
		rawText  string
	}

	var pending []string
	for _, q := range questions {
		if cfg.Resume {
			if _, ok := results.Themes(q); ok {
				continue
			}
		}
		pending = append(pending, q)
	}

	codebookExcerpt := coding.CodebookExcerpt(codebook, cfg.CodebookMaxLabels)

	sem := make(chan struct{}, cfg.Concurrency)
	outcomes := make(chan questionOutcome, len(pending))

	wg := sync.WaitGroup{}
	for _, q := range pending {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				outcomes <- questionOutcome{question: q, err: ctx.Err()}
				return
			default:
			}

			themes, rawText, err := coder.CodeQuestion(ctx, dataset, q, codebookExcerpt)
			outcomes <- questionOutcome{question: q, themes: themes, err: err, rawText: rawText}
		}(q)
	}

	wg.Wait()
	close(outcomes)

	coded, failed := 0, 0
	for o := range outcomes {
		if o.err != nil {
			if errors.Is(o.err, context.Canceled) {
				continue
			}
			failed++
			results.Fail(o.question, provider.UpstreamErrorMessage(o.err), o.rawText)
			fmt.Fprintf(os.Stderr, "code %s: %v\n", o.question, o.err)
			continue
		}
		coded++
		results.SetThemes(o.question, o.themes)
		stored, _ := results.Themes(o.question)
		coding.MergeCodebook(&codebook, o.question, stored)
	}

	if cfg.CodebookMinCount > 1 {
		coding.CullCodebook(&codebook, cfg.CodebookMinCount)
	}

	if err := coding.SaveResultSet(cfg.OutPath, results); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if err := coding.SaveCodebook(codebookPath, codebook); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	universes := map[string][]string{}
	for _, q := range results.QuestionNames() {
		if dataset.HasColumn(q) {
			if u, err := dataset.Universe(q); err == nil {
				universes[q] = u
			}
		}
	}

	var indexRecords []coding.ResultIndexRecord
	for _, q := range results.QuestionNames() {
		indexRecords = append(indexRecords, coding.BuildResultIndexRecord(q, results.Questions[q], universes[q], cfg.OutPath))
	}
	if err := coding.WriteResultsIndex(indexPath, indexRecords); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if cfg.ReportPath != "" {
		report := coding.RenderThemeReport(results, universes, coding.ReportOptions{Title: "Theme Report"})
		if err := fileutils.WriteFileAtomic(cfg.ReportPath, []byte(report), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("write -report: %w", err).Error())
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stdout, "questions_coded=%d failed=%d results=%s codebook=%s index=%s\n",
		coded, failed, cfg.OutPath, codebookPath, indexPath)
}

// resolveQuestions returns the question columns to code: the explicit list
// when given, else every column except the ID column.
func resolveQuestions(cfg Config, d *coding.Dataset) ([]string, error) {
	if len(cfg.Questions) > 0 {
		for _, q := range cfg.Questions {
			if !d.HasColumn(q) {
				return nil, fmt.Errorf("unknown question column %q", q)
			}
		}
		return cfg.Questions, nil
	}
	var out []string
	for _, c := range d.Columns() {
		if c == "" || c == d.IDColumn {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, errors.New("no question columns found (pass -questions)")
	}
	return out, nil
}

// extractTheme mirrors the theme JSON keys the model is asked to emit.
type extractTheme struct {
	ThemeLabel             string   `json:"ThemeLabel"`
	Definition             string   `json:"Definition"`
	RepresentativeKeywords []string `json:"RepresentativeKeywords"`
	ParticipantID          []string `json:"ParticipantID"`
}

type extractResponse struct {
	Themes []extractTheme `json:"themes"`
}

var extractSchema = provider.GenerateSchema[extractResponse]()

type openAICoder struct {
	client           *openai.Client
	model            string
	targetThemes     int
	maxResponseChars int
	batchChars       int
}

// CodeQuestion runs the initial thematic coding for one question column. When
// the responses exceed the batch budget, each batch is coded separately and
// the theme lists are concatenated. On failure the raw model text (if any) is
// returned for the failure marker.
func (c openAICoder) CodeQuestion(ctx context.Context, d *coding.Dataset, question string, codebookExcerpt string) ([]coding.Theme, string, error) {
	records, err := d.Records(question)
	if err != nil {
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", fmt.Errorf("no responses for %q", question)
	}

	batches := coding.SplitByBudget(records, c.batchChars)

	var themes []coding.Theme
	for _, batch := range batches {
		input, err := coding.BuildExtractPrompt(coding.ExtractPromptParams{
			Question:         question,
			Records:          batch,
			TargetThemes:     c.targetThemes,
			CodebookExcerpt:  codebookExcerpt,
			MaxResponseChars: c.maxResponseChars,
		})
		if err != nil {
			return nil, "", err
		}

		text, err := provider.ChatJSON(ctx, c.client, c.model, coding.ExtractInstructions, input, "ThemeExtraction", extractSchema, 4000)
		if err != nil {
			return nil, "", err
		}

		batchThemes, err := decodeExtraction(text)
		if err != nil {
			return nil, text, fmt.Errorf("decode extraction for %q: %w", question, err)
		}
		themes = append(themes, batchThemes...)
	}
	return themes, "", nil
}

// decodeExtraction parses the model's theme output: the schema-shaped object
// first, then a bare theme array recovered from surrounding text.
func decodeExtraction(text string) ([]coding.Theme, error) {
	var resp extractResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &resp); err == nil && len(resp.Themes) > 0 {
		return toThemes(resp.Themes), nil
	}

	items, err := coding.ExtractArray(text)
	if err != nil {
		return nil, err
	}
	var out []extractTheme
	for _, raw := range items {
		var t extractTheme
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("theme element: %w", err)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, errors.New("model output contains no themes")
	}
	return toThemes(out), nil
}

func toThemes(in []extractTheme) []coding.Theme {
	out := make([]coding.Theme, 0, len(in))
	for _, t := range in {
		label := strings.TrimSpace(t.ThemeLabel)
		if label == "" {
			continue
		}
		out = append(out, coding.Theme{
			ThemeLabel:             label,
			Definition:             strings.TrimSpace(t.Definition),
			RepresentativeKeywords: t.RepresentativeKeywords,
			ParticipantID:          t.ParticipantID,
		})
	}
	return out
}
