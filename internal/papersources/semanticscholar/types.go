// Package semanticscholar provides the secondary enrichment adapter for the
// Semantic Scholar Graph and Recommendations APIs.
//
// Every operation is served through a cache-aside store: a result is fetched
// at most once per key within the cache TTL. Lookups never return errors;
// failures are logged and resolve to nil or an empty slice so that enriching
// one paper cannot abort a batch.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// SearchResponse represents the response from the paper search endpoint.
type SearchResponse struct {
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Next   int           `json:"next"`
	Data   []PaperResult `json:"data"`
}

// RecommendationsResponse represents the response from the
// recommendations-for-paper endpoint.
type RecommendationsResponse struct {
	RecommendedPapers []PaperResult `json:"recommendedPapers"`
}

// PaperResult represents a single paper in a Semantic Scholar response.
// Optional scalars are pointers so that fields the API omitted stay unknown.
type PaperResult struct {
	PaperID          string         `json:"paperId"`
	URL              string         `json:"url,omitempty"`
	Title            string         `json:"title"`
	Abstract         string         `json:"abstract,omitempty"`
	Year             *int           `json:"year,omitempty"`
	Venue            string         `json:"venue,omitempty"`
	Journal          *Journal       `json:"journal,omitempty"`
	PublicationTypes []string       `json:"publicationTypes,omitempty"`
	Authors          []Author       `json:"authors,omitempty"`
	CitationCount    *int           `json:"citationCount,omitempty"`
	ReferenceCount   *int           `json:"referenceCount,omitempty"`
	IsOpenAccess     *bool          `json:"isOpenAccess,omitempty"`
	OpenAccessPDF    *OpenAccessPDF `json:"openAccessPdf,omitempty"`
	FieldsOfStudy    []string       `json:"fieldsOfStudy,omitempty"`
	S2FieldsOfStudy  []S2Field      `json:"s2FieldsOfStudy,omitempty"`
	TLDR             *TLDR          `json:"tldr,omitempty"`
	ExternalIDs      *ExternalIDs   `json:"externalIds,omitempty"`
}

// ExternalIDs contains external identifiers for a paper.
type ExternalIDs struct {
	DOI   string `json:"DOI,omitempty"`
	ArXiv string `json:"ArXiv,omitempty"`
}

// Journal contains journal-specific information.
type Journal struct {
	Name   string `json:"name,omitempty"`
	Volume string `json:"volume,omitempty"`
	Pages  string `json:"pages,omitempty"`
}

// Author represents a paper author.
type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// OpenAccessPDF contains information about an open access PDF.
type OpenAccessPDF struct {
	URL    string `json:"url,omitempty"`
	Status string `json:"status,omitempty"`
}

// S2Field is a field of study assigned by Semantic Scholar's classifier.
type S2Field struct {
	Category string `json:"category"`
	Source   string `json:"source"`
}

// TLDR is an auto-generated one-sentence summary.
type TLDR struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text"`
}

// ErrorResponse represents an error response from the Semantic Scholar API.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
