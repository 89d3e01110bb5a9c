// Package domain provides the shared paper schema, search value objects and
// error types used across the Paper Discovery Service.
package domain

// SourceType identifies the bibliographic source that produced a paper.
type SourceType string

const (
	SourceTypeOpenAlex        SourceType = "openalex"
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypeAnnasArchive    SourceType = "annas_archive"
)

// VenueType is a coarse classification of where a paper was published.
type VenueType string

const (
	VenueTypeJournal    VenueType = "journal"
	VenueTypeConference VenueType = "conference"
	VenueTypeBook       VenueType = "book"
	VenueTypeRepository VenueType = "repository"
	VenueTypeOther      VenueType = "other"
)

// IsValid reports whether v is one of the known venue types.
func (v VenueType) IsValid() bool {
	switch v {
	case VenueTypeJournal, VenueTypeConference, VenueTypeBook, VenueTypeRepository, VenueTypeOther:
		return true
	default:
		return false
	}
}

// IdentifierKind tells the citation lookup how to resolve an identifier.
type IdentifierKind string

const (
	IdentifierKindDOI   IdentifierKind = "doi"
	IdentifierKindTitle IdentifierKind = "title"
)

// IsValid reports whether k is a supported identifier kind.
func (k IdentifierKind) IsValid() bool {
	return k == IdentifierKindDOI || k == IdentifierKindTitle
}

// SortField selects the ranking applied to a search result.
type SortField string

const (
	SortByRelevance       SortField = "relevance"
	SortByPublicationDate SortField = "publication_date"
	SortByCitedByCount    SortField = "cited_by_count"
)

// IsValid reports whether f is a supported sort field. The empty value
// is accepted and means relevance.
func (f SortField) IsValid() bool {
	switch f {
	case "", SortByRelevance, SortByPublicationDate, SortByCitedByCount:
		return true
	default:
		return false
	}
}

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// IsValid reports whether o is a supported sort order. The empty value
// is accepted and means descending.
func (o SortOrder) IsValid() bool {
	return o == "" || o == SortOrderAsc || o == SortOrderDesc
}
