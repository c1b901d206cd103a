package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

const (
	outputText  = "text"
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"

	localeNone = "none"
)

// ReportLine is one extension's row in the report.
type ReportLine struct {
	Extension string `json:"extension" yaml:"extension"`
	FileStats `yaml:",inline"`
}

// Report is the sorted projection of an aggregate. Total is set only when
// there is more than one line.
type Report struct {
	Lines []ReportLine `json:"extensions" yaml:"extensions"`
	Total *FileStats   `json:"total,omitempty" yaml:"total,omitempty"`
}

// BuildReport drops extensions without tokens and sorts the rest by token
// count, highest first. Equal counts are ordered by extension name so the
// output never depends on map order.
func BuildReport(agg Aggregate) Report {
	lines := make([]ReportLine, 0, len(agg))
	kept := make(Aggregate, len(agg))
	for ext, s := range agg {
		if s.Tokens == 0 {
			continue
		}
		kept[ext] = s
		lines = append(lines, ReportLine{Extension: ext, FileStats: s})
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Tokens != lines[j].Tokens {
			return lines[i].Tokens > lines[j].Tokens
		}
		return lines[i].Extension < lines[j].Extension
	})

	r := Report{Lines: lines}
	if len(lines) > 1 {
		total := kept.total()
		r.Total = &total
	}
	return r
}

// NumberFormat renders counts for display.
type NumberFormat struct {
	printer *message.Printer // nil prints plain integers
}

// NewNumberFormat builds a formatter for a BCP 47 locale tag such as "en" or
// "de-CH". "none" or "" disables grouping.
func NewNumberFormat(locale string) (NumberFormat, error) {
	if locale == "" || strings.EqualFold(locale, localeNone) {
		return NumberFormat{}, nil
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return NumberFormat{}, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return NumberFormat{printer: message.NewPrinter(tag)}, nil
}

// Format renders n, grouped per the locale.
func (f NumberFormat) Format(n int64) string {
	if f.printer == nil {
		return strconv.FormatInt(n, 10)
	}
	return f.printer.Sprintf("%d", n)
}

func (f NumberFormat) statsLine(label string, s FileStats) string {
	return fmt.Sprintf("%s: %s tokens, %s lines, %s files",
		label, f.Format(s.Tokens), f.Format(s.Lines), f.Format(s.Files))
}

// TextLines renders the report in the plain line format.
func (r Report) TextLines(nf NumberFormat) []string {
	out := make([]string, 0, len(r.Lines)+1)
	for _, l := range r.Lines {
		out = append(out, nf.statsLine(l.Extension, l.FileStats))
	}
	if r.Total != nil {
		out = append(out, nf.statsLine("Total", *r.Total))
	}
	return out
}

// Render writes the report to w in the given output format.
func (r Report) Render(w io.Writer, format string, nf NumberFormat) error {
	switch format {
	case outputText, "":
		for _, line := range r.TextLines(nf) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	case outputTable:
		return r.renderTable(w, nf)
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func (r Report) renderTable(w io.Writer, nf NumberFormat) error {
	if len(r.Lines) == 0 {
		return nil
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"Extension", "Tokens", "Lines", "Files"})
	for _, l := range r.Lines {
		tbl.AppendRow(table.Row{l.Extension, nf.Format(l.Tokens), nf.Format(l.Lines), nf.Format(l.Files)})
	}
	if r.Total != nil {
		tbl.AppendFooter(table.Row{"Total", nf.Format(r.Total.Tokens), nf.Format(r.Total.Lines), nf.Format(r.Total.Files)})
	}
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	tbl.Render()
	return nil
}
