package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestWritePaperTable(t *testing.T) {
	papers := []domain.Paper{
		{
			Title:        "Deep Learning",
			Year:         2015,
			Venue:        "Nature",
			DOI:          "10.1038/nature14539",
			CitedByCount: intPtr(50000),
			OpenAccess:   &domain.OpenAccessInfo{IsOA: false},
		},
		{Title: strings.Repeat("long title ", 20)},
	}

	var buf bytes.Buffer
	require.NoError(t, writePaperTable(&buf, papers))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#"))
	assert.Contains(t, lines[1], "50000")
	assert.Contains(t, lines[1], "Nature")
	assert.Contains(t, lines[1], " no ")
	assert.Contains(t, lines[2], "...")
	assert.NotContains(t, lines[2], strings.Repeat("long title ", 10))
}

func TestWritePaperTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePaperTable(&buf, nil))
	assert.Equal(t, "No papers found.\n", buf.String())
}

func TestWriteSearchTable_Footer(t *testing.T) {
	var buf bytes.Buffer
	result := domain.EmptySearchResult(domain.SearchFilters{}, 12)
	require.NoError(t, writeSearchTable(&buf, result))
	assert.Contains(t, buf.String(), "0 of 0 papers from none in 12ms")
}

func TestWriteCitationTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCitationTable(&buf, &domain.CitationRecord{
		PaperID:      "s2a",
		CitedByCount: intPtr(12),
		FieldOfStudy: []string{"Biology", "Medicine"},
	}))

	out := buf.String()
	assert.Contains(t, out, "s2a")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "Biology, Medicine")
	assert.Regexp(t, `References:\s+-`, out)
}

func TestWriteYAML_UsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, domain.CitationRecord{PaperID: "p1", CitedByCount: intPtr(3)}))
	assert.Contains(t, buf.String(), "paper_id: p1")
	assert.Contains(t, buf.String(), "cited_by_count: 3")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "-", truncate("", 10))
	assert.Equal(t, "a b", truncate("  a \n b ", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ünïcödé...", truncate("ünïcödéünïcödé", 10))
}

func TestFiltersFromFlags(t *testing.T) {
	a := &app{}
	cmd := newSearchCmd(a)
	f := cmd.Flags()
	require.NoError(t, f.Parse([]string{
		"--year-min", "2010",
		"--min-citations", "0",
		"--open-access=false",
		"--venue-type", "Journal, conference",
		"--field-of-study", "Biology",
		"--sort-order", "asc",
	}))

	filters, err := filtersFromFlags(f)
	require.NoError(t, err)
	require.NotNil(t, filters.PublicationYearMin)
	assert.Equal(t, 2010, *filters.PublicationYearMin)
	assert.Nil(t, filters.PublicationYearMax)
	require.NotNil(t, filters.MinCitations, "explicit zero is an active filter")
	assert.Equal(t, 0, *filters.MinCitations)
	require.NotNil(t, filters.OpenAccess)
	assert.False(t, *filters.OpenAccess)
	assert.Equal(t, []domain.VenueType{domain.VenueTypeJournal, domain.VenueTypeConference}, filters.VenueType)
	assert.Equal(t, []string{"Biology"}, filters.FieldOfStudy)
	assert.Equal(t, domain.SortOrderAsc, filters.SortOrder)
}

func TestFiltersFromFlags_Unset(t *testing.T) {
	f := pflag.NewFlagSet("search", pflag.ContinueOnError)
	f.AddFlagSet(newSearchCmd(&app{}).Flags())
	require.NoError(t, f.Parse(nil))

	filters, err := filtersFromFlags(f)
	require.NoError(t, err)
	assert.Nil(t, filters.PublicationYearMin)
	assert.Nil(t, filters.MinCitations)
	assert.Nil(t, filters.OpenAccess)
	assert.Empty(t, filters.VenueType)
	assert.Equal(t, domain.SortByRelevance, filters.EffectiveSortBy())
	assert.Equal(t, domain.SortOrderDesc, filters.EffectiveSortOrder())
}
