package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run an aggregated, enriched and ranked paper search",
		Long: `Search fetches papers for the query from OpenAlex, enriches papers that
have a DOI with Semantic Scholar citation data, removes duplicates, applies
the filters and sorts the result.`,
		Example: `  papersearch search "graph neural networks" --limit 5
  papersearch search "crispr" --year-min 2018 --min-citations 100 --sort-by cited_by_count -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := filtersFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}

			p, err := a.searchPipeline()
			if err != nil {
				return err
			}

			result := p.SearchPapers(cmd.Context(), strings.Join(args, " "), filters, limit)
			return a.render(result, func() error { return writeSearchTable(a.out, result) })
		},
	}

	f := cmd.Flags()
	f.Int("limit", 0, "maximum number of papers to return (default from config)")
	f.Int("year-min", 0, "earliest publication year (inclusive)")
	f.Int("year-max", 0, "latest publication year (inclusive)")
	f.Int("min-citations", 0, "minimum citation count; unknown counts as zero")
	f.Bool("open-access", false, "only open access papers (--open-access=false for closed only)")
	f.StringSlice("venue-type", nil, "accepted venue types: journal, conference, book, repository, other")
	f.StringSlice("field-of-study", nil, "accepted fields of study (case-insensitive substring)")
	f.String("sort-by", string(domain.SortByRelevance), "relevance, publication_date or cited_by_count")
	f.String("sort-order", string(domain.SortOrderDesc), "asc or desc")
	return cmd
}

// filtersFromFlags builds search filters. Only flags the user set become
// active predicates.
func filtersFromFlags(f *pflag.FlagSet) (domain.SearchFilters, error) {
	var filters domain.SearchFilters

	intFlag := func(name string) *int {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetInt(name)
		return &v
	}
	filters.PublicationYearMin = intFlag("year-min")
	filters.PublicationYearMax = intFlag("year-max")
	filters.MinCitations = intFlag("min-citations")

	if f.Changed("open-access") {
		v, _ := f.GetBool("open-access")
		filters.OpenAccess = &v
	}

	venues, _ := f.GetStringSlice("venue-type")
	for _, v := range venues {
		filters.VenueType = append(filters.VenueType, domain.VenueType(strings.ToLower(strings.TrimSpace(v))))
	}
	filters.FieldOfStudy, _ = f.GetStringSlice("field-of-study")

	sortBy, _ := f.GetString("sort-by")
	sortOrder, _ := f.GetString("sort-order")
	filters.SortBy = domain.SortField(sortBy)
	filters.SortOrder = domain.SortOrder(sortOrder)

	if err := filters.Validate(); err != nil {
		return domain.SearchFilters{}, err
	}
	return filters, nil
}
