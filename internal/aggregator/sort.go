package aggregator

import (
	"sort"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// Relevance score weights. The score mixes an unbounded citation count with
// a four-digit year.
const (
	relevanceCitationWeight = 0.7
	relevanceYearWeight     = 0.3
)

// relevanceScore ranks a paper for the relevance sort.
func relevanceScore(p *domain.Paper) float64 {
	return float64(p.Citations())*relevanceCitationWeight + float64(p.Year)*relevanceYearWeight
}

// sortPapers orders papers in place. The sort is stable: papers that compare
// equal keep their input order.
func sortPapers(papers []domain.Paper, by domain.SortField, order domain.SortOrder) {
	var compare func(a, b *domain.Paper) float64
	switch by {
	case domain.SortByPublicationDate:
		compare = func(a, b *domain.Paper) float64 { return float64(a.Year - b.Year) }
	case domain.SortByCitedByCount:
		compare = func(a, b *domain.Paper) float64 { return float64(a.Citations() - b.Citations()) }
	default:
		compare = func(a, b *domain.Paper) float64 { return relevanceScore(a) - relevanceScore(b) }
	}

	sign := 1.0
	if order == domain.SortOrderDesc {
		sign = -1.0
	}

	sort.SliceStable(papers, func(i, j int) bool {
		return sign*compare(&papers[i], &papers[j]) < 0
	})
}
