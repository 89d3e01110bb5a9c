package domain

import "fmt"

// DefaultSearchLimit is the number of papers returned when no limit is given.
const DefaultSearchLimit = 20

// SearchFilters narrows and orders an aggregated search. Nil or empty fields
// are inactive.
type SearchFilters struct {
	PublicationYearMin *int        `json:"publication_year_min,omitempty"`
	PublicationYearMax *int        `json:"publication_year_max,omitempty"`
	MinCitations       *int        `json:"min_citations,omitempty"`
	OpenAccess         *bool       `json:"open_access,omitempty"`
	VenueType          []VenueType `json:"venue_type,omitempty"`
	FieldOfStudy       []string    `json:"field_of_study,omitempty"`
	SortBy             SortField   `json:"sort_by,omitempty"`
	SortOrder          SortOrder   `json:"sort_order,omitempty"`
}

// Validate checks the filters for values the pipeline cannot honor.
func (f SearchFilters) Validate() error {
	if !f.SortBy.IsValid() {
		return NewValidationError("sort_by", fmt.Sprintf("unsupported value %q", f.SortBy))
	}
	if !f.SortOrder.IsValid() {
		return NewValidationError("sort_order", fmt.Sprintf("unsupported value %q", f.SortOrder))
	}
	if f.MinCitations != nil && *f.MinCitations < 0 {
		return NewValidationError("min_citations", "must be non-negative")
	}
	if f.PublicationYearMin != nil && f.PublicationYearMax != nil && *f.PublicationYearMin > *f.PublicationYearMax {
		return NewValidationError("publication_year_min", "must not exceed publication_year_max")
	}
	for _, v := range f.VenueType {
		if !v.IsValid() {
			return NewValidationError("venue_type", fmt.Sprintf("unsupported value %q", v))
		}
	}
	return nil
}

// EffectiveSortBy returns the sort field, defaulting to relevance.
func (f SearchFilters) EffectiveSortBy() SortField {
	if f.SortBy == "" {
		return SortByRelevance
	}
	return f.SortBy
}

// EffectiveSortOrder returns the sort order, defaulting to ascending.
func (f SearchFilters) EffectiveSortOrder() SortOrder {
	if f.SortOrder == "" {
		return SortOrderAsc
	}
	return f.SortOrder
}

// EnhancedSearchResult is the output of an aggregated search.
type EnhancedSearchResult struct {
	Papers         []Paper       `json:"papers"`
	Total          int           `json:"total"`
	FiltersApplied SearchFilters `json:"filters_applied"`
	Sources        []SourceType  `json:"sources"`
	// SearchTime is the elapsed wall time in milliseconds.
	SearchTime int64 `json:"search_time"`
}

// EmptySearchResult returns a well-formed result with no papers.
func EmptySearchResult(filters SearchFilters, elapsedMs int64) *EnhancedSearchResult {
	return &EnhancedSearchResult{
		Papers:         []Paper{},
		Total:          0,
		FiltersApplied: filters,
		Sources:        []SourceType{},
		SearchTime:     elapsedMs,
	}
}

// CitationRecord is the enrichment payload returned by a citation lookup.
type CitationRecord struct {
	PaperID        string          `json:"paper_id"`
	Title          string          `json:"title,omitempty"`
	DOI            string          `json:"doi,omitempty"`
	CitedByCount   *int            `json:"cited_by_count,omitempty"`
	ReferenceCount *int            `json:"reference_count,omitempty"`
	OpenAccess     *OpenAccessInfo `json:"open_access,omitempty"`
	FieldOfStudy   []string        `json:"field_of_study,omitempty"`
	TLDR           string          `json:"tldr,omitempty"`
	Venue          string          `json:"venue,omitempty"`
	VenueType      VenueType       `json:"venue_type,omitempty"`
}
