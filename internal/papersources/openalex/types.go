// Package openalex provides the primary source adapter for the OpenAlex API.
//
// OpenAlex is a free, open catalog of scholarly works. The adapter issues a
// single works search per query, optionally biased by concept filters derived
// from the query text, and normalizes each work into a domain.Paper,
// rebuilding abstracts from OpenAlex's inverted-index representation.
//
// API Documentation: https://docs.openalex.org/
package openalex

// SearchResponse represents the top-level response from the OpenAlex works search endpoint.
type SearchResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Meta contains metadata about the search results.
type Meta struct {
	Count   int `json:"count"`
	DBTime  int `json:"db_response_time_ms"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Work represents an academic work (paper) in OpenAlex. Counts are pointers
// so an absent field is distinguishable from zero.
type Work struct {
	ID                   string       `json:"id"`
	DOI                  string       `json:"doi"`
	Title                string       `json:"title"`
	DisplayName          string       `json:"display_name"`
	PublicationYear      *int         `json:"publication_year"`
	Type                 string       `json:"type"`
	CitedByCount         *int         `json:"cited_by_count"`
	ReferencedWorksCount *int         `json:"referenced_works_count"`
	OpenAccess           *OpenAccess  `json:"open_access"`
	Authorships          []Authorship `json:"authorships"`
	PrimaryLocation      *Location    `json:"primary_location"`
	BestOALocation       *Location    `json:"best_oa_location"`
	Concepts             []Concept    `json:"concepts"`
	IDs                  IDs          `json:"ids"`

	// AbstractInvertedIndex maps each word to the positions where it occurs.
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

// OpenAccess contains open access information for a work.
type OpenAccess struct {
	IsOA                     bool   `json:"is_oa"`
	OAURL                    string `json:"oa_url"`
	OAStatus                 string `json:"oa_status"`
	AnyRepositoryHasFulltext bool   `json:"any_repository_has_fulltext"`
}

// Authorship represents an author's contribution to a work.
type Authorship struct {
	AuthorPosition string     `json:"author_position"`
	Author         AuthorInfo `json:"author"`
}

// AuthorInfo contains basic author information.
type AuthorInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Location represents where a work is available.
type Location struct {
	Source         *Source `json:"source"`
	LandingPageURL string  `json:"landing_page_url"`
	PDFURL         string  `json:"pdf_url"`
	IsOA           bool    `json:"is_oa"`
}

// Source represents a publication venue (journal, repository, etc.).
type Source struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

// Concept is a tag from the OpenAlex concept taxonomy.
type Concept struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Level       int     `json:"level"`
	Score       float64 `json:"score"`
}

// IDs contains various identifiers for a work.
type IDs struct {
	OpenAlex string `json:"openalex"`
	DOI      string `json:"doi"`
}
