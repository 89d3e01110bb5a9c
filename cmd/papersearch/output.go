package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"go.yaml.in/yaml/v3"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"

	maxTitleWidth = 70
	maxVenueWidth = 30
)

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unsupported output format %q: use table, json or yaml", format)
}

// render writes v in the selected format, delegating table output to table.
func (a *app) render(v any, table func() error) error {
	switch a.output {
	case outputJSON:
		return writeJSON(a.out, v)
	case outputYAML:
		return writeYAML(a.out, v)
	default:
		return table()
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML emits v with the same field names as the JSON output by
// round-tripping through a generic JSON document.
func writeYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode output: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func writeSearchTable(w io.Writer, result *domain.EnhancedSearchResult) error {
	if err := writePaperTable(w, result.Papers); err != nil {
		return err
	}

	sources := make([]string, 0, len(result.Sources))
	for _, s := range result.Sources {
		sources = append(sources, string(s))
	}
	if len(sources) == 0 {
		sources = append(sources, "none")
	}
	_, err := fmt.Fprintf(w, "\n%d of %d papers from %s in %dms\n",
		len(result.Papers), result.Total, strings.Join(sources, ", "), result.SearchTime)
	return err
}

func writePaperTable(w io.Writer, papers []domain.Paper) error {
	if len(papers) == 0 {
		_, err := fmt.Fprintln(w, "No papers found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tYEAR\tCITES\tOA\tVENUE\tTITLE\tDOI")
	for i, p := range papers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			yearCell(p.Year),
			intCell(p.CitedByCount),
			oaCell(p.OpenAccess),
			truncate(firstNonEmpty(p.Venue, p.Journal), maxVenueWidth),
			truncate(p.Title, maxTitleWidth),
			dashIfEmpty(p.DOI),
		)
	}
	return tw.Flush()
}

func writeCitationTable(w io.Writer, r *domain.CitationRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Paper ID", r.PaperID},
		{"Title", r.Title},
		{"DOI", r.DOI},
		{"Citations", intCell(r.CitedByCount)},
		{"References", intCell(r.ReferenceCount)},
		{"Open access", oaCell(r.OpenAccess)},
		{"Venue", r.Venue},
		{"Venue type", string(r.VenueType)},
		{"Fields", strings.Join(r.FieldOfStudy, ", ")},
		{"TL;DR", r.TLDR},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", row[0], dashIfEmpty(row[1]))
	}
	return tw.Flush()
}

func intCell(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func yearCell(year int) string {
	if year == 0 {
		return "-"
	}
	return strconv.Itoa(year)
}

func oaCell(oa *domain.OpenAccessInfo) string {
	switch {
	case oa == nil:
		return "-"
	case oa.IsOA:
		return "yes"
	default:
		return "no"
	}
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= width {
		return dashIfEmpty(s)
	}
	return string(r[:width-3]) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
