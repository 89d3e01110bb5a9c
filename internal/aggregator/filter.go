package aggregator

import (
	"slices"
	"strings"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// applyFilters returns the papers that satisfy every active predicate in f,
// preserving order.
func applyFilters(papers []domain.Paper, f domain.SearchFilters) []domain.Paper {
	out := make([]domain.Paper, 0, len(papers))
	for i := range papers {
		if matchesFilters(&papers[i], f) {
			out = append(out, papers[i])
		}
	}
	return out
}

func matchesFilters(p *domain.Paper, f domain.SearchFilters) bool {
	if f.PublicationYearMin != nil && p.Year < *f.PublicationYearMin {
		return false
	}
	if f.PublicationYearMax != nil && p.Year > *f.PublicationYearMax {
		return false
	}
	// Unknown citation counts compare as zero.
	if f.MinCitations != nil && p.Citations() < *f.MinCitations {
		return false
	}
	if f.OpenAccess != nil && p.IsOpenAccess() != *f.OpenAccess {
		return false
	}
	if len(f.VenueType) > 0 && !slices.Contains(f.VenueType, p.VenueType) {
		return false
	}
	if len(f.FieldOfStudy) > 0 && !matchesFieldOfStudy(p.FieldOfStudy, f.FieldOfStudy) {
		return false
	}
	return true
}

// matchesFieldOfStudy reports whether any paper field contains any wanted
// tag as a case-insensitive substring.
func matchesFieldOfStudy(fields, wanted []string) bool {
	for _, field := range fields {
		field = strings.ToLower(field)
		for _, tag := range wanted {
			if strings.Contains(field, strings.ToLower(tag)) {
				return true
			}
		}
	}
	return false
}
