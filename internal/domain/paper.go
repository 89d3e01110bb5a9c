package domain

import (
	"strings"
	"time"
)

// NoAbstract is the placeholder used when a source provides no abstract.
const NoAbstract = "No abstract available"

// UnknownJournal is the placeholder used when a source provides no venue.
const UnknownJournal = "Unknown Journal"

// OpenAccessInfo describes whether and where a free copy of a paper exists.
type OpenAccessInfo struct {
	IsOA                     bool   `json:"is_oa"`
	OAURL                    string `json:"oa_url,omitempty"`
	AnyRepositoryHasFulltext bool   `json:"any_repository_has_fulltext"`
}

// Paper is the normalized record flowing through the aggregation pipeline.
// Optional counts are pointers: nil means unknown, not zero.
type Paper struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Authors        []string        `json:"authors"`
	Abstract       string          `json:"abstract"`
	Year           int             `json:"year"`
	Journal        string          `json:"journal,omitempty"`
	Venue          string          `json:"venue,omitempty"`
	URL            string          `json:"url,omitempty"`
	DOI            string          `json:"doi,omitempty"`
	PDFURL         string          `json:"pdf_url,omitempty"`
	CitedByCount   *int            `json:"cited_by_count,omitempty"`
	ReferenceCount *int            `json:"reference_count,omitempty"`
	OpenAccess     *OpenAccessInfo `json:"open_access,omitempty"`
	FieldOfStudy   []string        `json:"field_of_study,omitempty"`
	VenueType      VenueType       `json:"venue_type,omitempty"`
	Source         SourceType      `json:"source"`
	TLDR           string          `json:"tldr,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	// SourceCitedByCount and SourceReferenceCount hold the counts reported
	// by the primary source. They back-fill CitedByCount and ReferenceCount
	// only after enrichment, so enrichment still sees those as unknown.
	SourceCitedByCount   *int `json:"-"`
	SourceReferenceCount *int `json:"-"`
}

// FirstAuthor returns the first listed author, or an empty string.
func (p *Paper) FirstAuthor() string {
	if len(p.Authors) == 0 {
		return ""
	}
	return p.Authors[0]
}

// DedupKey returns the key used to collapse duplicate records:
// the lowercased, trimmed title followed by the lowercased, trimmed first author.
func (p *Paper) DedupKey() string {
	return strings.ToLower(strings.TrimSpace(p.Title)) + strings.ToLower(strings.TrimSpace(p.FirstAuthor()))
}

// Citations returns the citation count, treating unknown as zero.
func (p *Paper) Citations() int {
	if p.CitedByCount == nil {
		return 0
	}
	return *p.CitedByCount
}

// FillSourceCounts copies the primary-source counts into CitedByCount and
// ReferenceCount where those are still unknown.
func (p *Paper) FillSourceCounts() {
	if p.CitedByCount == nil && p.SourceCitedByCount != nil {
		p.CitedByCount = IntPtr(*p.SourceCitedByCount)
	}
	if p.ReferenceCount == nil && p.SourceReferenceCount != nil {
		p.ReferenceCount = IntPtr(*p.SourceReferenceCount)
	}
}

// IsOpenAccess reports the paper's open access flag; a paper without
// open access data is reported as closed.
func (p *Paper) IsOpenAccess() bool {
	return p.OpenAccess != nil && p.OpenAccess.IsOA
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return &v
}

var (
	conferenceTerms = []string{"conference", "proceedings", "symposium", "workshop", "congress"}
	journalTerms    = []string{"journal", "transactions", "letters"}
	bookTerms       = []string{"book", "chapter", "monograph"}
	repositoryTerms = []string{"arxiv", "preprint", "biorxiv", "medrxiv", "ssrn", "repository"}
)

// ClassifyVenue derives a venue type from publication-type tags and the venue
// name. Categories are checked in order: conference, journal, book, repository.
// Anything else is classified as other.
func ClassifyVenue(publicationTypes []string, venueName string) VenueType {
	haystack := make([]string, 0, len(publicationTypes)+1)
	for _, t := range publicationTypes {
		haystack = append(haystack, strings.ToLower(t))
	}
	haystack = append(haystack, strings.ToLower(venueName))

	switch {
	case containsAny(haystack, conferenceTerms):
		return VenueTypeConference
	case containsAny(haystack, journalTerms):
		return VenueTypeJournal
	case containsAny(haystack, bookTerms):
		return VenueTypeBook
	case containsAny(haystack, repositoryTerms):
		return VenueTypeRepository
	default:
		return VenueTypeOther
	}
}

func containsAny(haystack, needles []string) bool {
	for _, h := range haystack {
		if h == "" {
			continue
		}
		for _, n := range needles {
			if strings.Contains(h, n) {
				return true
			}
		}
	}
	return false
}
