package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/surveyforge/themecode/coding"
	"github.com/surveyforge/themecode/coding/fileutils"
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

	results, err := coding.LoadResultSet(cfg.ResultsPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if len(results.QuestionNames()) == 0 {
		fmt.Fprintf(os.Stderr, "no results in %s\n", cfg.ResultsPath)
		os.Exit(2)
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("mkdir -out: %w", err).Error())
		os.Exit(2)
	}

	longPath, widePath := "", ""
	if cfg.Format == "long" || cfg.Format == "both" {
		if err := writeExport(cfg.LongPath, results, coding.WriteLongCSV); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		longPath = cfg.LongPath
	}
	if cfg.Format == "wide" || cfg.Format == "both" {
		if err := writeExport(cfg.WidePath, results, coding.WriteWideCSV); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		widePath = cfg.WidePath
	}

	fmt.Fprintf(os.Stdout, "questions=%d long=%s wide=%s\n", len(results.QuestionNames()), longPath, widePath)
}

// writeExport renders one CSV into memory, then writes it atomically so a
// failed export never leaves a half-written file.
func writeExport(path string, rs *coding.ResultSet, render func(w io.Writer, rs *coding.ResultSet) error) error {
	var buf bytes.Buffer
	if err := render(&buf, rs); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := fileutils.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
