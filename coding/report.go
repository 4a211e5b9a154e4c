package coding

import (
	"fmt"
	"strings"
)

// ReportOptions controls markdown report rendering.
type ReportOptions struct {
	Title string

	// MaxSectionChars truncates each prose/summary section (0 = no limit).
	MaxSectionChars int
}

// RenderToplineReport assembles a markdown report from topline tables and
// optional per-question prose summaries (keyed by question).
func RenderToplineReport(tables []ToplineTable, summaries map[string]string, opts ReportOptions) string {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Topline Report"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdownInline(title))

	for _, t := range tables {
		fmt.Fprintf(&b, "## %s\n\n", escapeMarkdownInline(t.Question))
		fmt.Fprintf(&b, "Weighted base: %.1f\n\n", t.Base)

		header := "| Value | Weighted | % |"
		rule := "| --- | ---: | ---: |"
		for _, seg := range t.SegmentNames {
			header += fmt.Sprintf(" %s %% |", escapeMarkdownInline(seg))
			rule += " ---: |"
		}
		b.WriteString(header + "\n")
		b.WriteString(rule + "\n")
		for _, r := range t.Rows {
			fmt.Fprintf(&b, "| %s | %.1f | %.1f |", escapeMarkdownInline(r.Value), r.Weighted, r.Percent)
			for _, seg := range t.SegmentNames {
				fmt.Fprintf(&b, " %.1f |", r.Segments[seg].Percent)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")

		if sum := strings.TrimSpace(summaries[t.Question]); sum != "" {
			b.WriteString(truncateSection(sum, opts.MaxSectionChars))
			b.WriteString("\n\n")
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

// RenderThemeReport assembles a markdown overview of a result set: themes,
// definitions, and per-theme coverage. universes maps question to its
// respondent universe (nil entries fall back to the assigned-ID union).
func RenderThemeReport(rs *ResultSet, universes map[string][]string, opts ReportOptions) string {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Theme Report"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdownInline(title))

	for _, q := range rs.QuestionNames() {
		fmt.Fprintf(&b, "## %s\n\n", escapeMarkdownInline(q))

		r := rs.Questions[q]
		if !r.OK() {
			msg := strings.TrimSpace(r.Error)
			if msg == "" {
				msg = "model output could not be parsed"
			}
			fmt.Fprintf(&b, "extraction failed: %s\n\n---\n\n", escapeMarkdownInline(msg))
			continue
		}

		den := CoverageDenominator(universes[q], r.Themes)
		for i, t := range r.Themes {
			fmt.Fprintf(&b, "%d. **%s** (%.1f%% coverage)\n", i+1, escapeMarkdownInline(t.ThemeLabel), CoveragePercent(t, den))
			if def := strings.TrimSpace(t.Definition); def != "" {
				fmt.Fprintf(&b, "   %s\n", escapeMarkdownInline(truncateSection(def, opts.MaxSectionChars)))
			}
			if len(t.RepresentativeKeywords) > 0 {
				fmt.Fprintf(&b, "   keywords: %s\n", escapeMarkdownInline(strings.Join(t.RepresentativeKeywords, ", ")))
			}
		}
		b.WriteString("\n---\n\n")
	}
	return b.String()
}

func truncateSection(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func escapeMarkdownInline(s string) string {
	// Minimal: avoid accidental code fences/headers in labels and values.
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
