package openalex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryExpander_Match(t *testing.T) {
	e := NewQueryExpander(DefaultConceptRules())

	tests := []struct {
		query string
		want  []string
	}{
		{query: "military drone swarms", want: []string{"military"}},
		{query: "Deep-Learning models", want: []string{"ai"}},
		{query: "AI for clinical diagnosis", want: []string{"ai", "medical"}},
		{query: "the US Air Force logistics", want: []string{"military"}},
		{query: "maintenance of bridges", want: nil},
		{query: "armylike", want: nil},
		{query: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Match(tt.query))
		})
	}
}

func TestQueryExpander_ConceptFilter(t *testing.T) {
	t.Run("no match yields empty filter", func(t *testing.T) {
		e := NewQueryExpander(DefaultConceptRules())
		assert.Empty(t, e.ConceptFilter("soil erosion"))
	})

	t.Run("concept ids deduplicated in rule order", func(t *testing.T) {
		e := NewQueryExpander([]ConceptRule{
			{Name: "a", Keywords: []string{"alpha"}, ConceptIDs: []string{"C1", "C2"}},
			{Name: "b", Keywords: []string{"beta"}, ConceptIDs: []string{"C2", "C3"}},
		})
		assert.Equal(t, "concepts.id:C1|C2|C3", e.ConceptFilter("beta and alpha"))
	})

	t.Run("multi word keywords need the whole phrase", func(t *testing.T) {
		e := NewQueryExpander([]ConceptRule{
			{Name: "ml", Keywords: []string{"Machine Learning"}, ConceptIDs: []string{"C119857082"}},
		})
		assert.Equal(t, "concepts.id:C119857082", e.ConceptFilter("scalable machine   learning"))
		assert.Empty(t, e.ConceptFilter("machine vision learning"))
	})

	t.Run("nil and empty expanders never match", func(t *testing.T) {
		var nilExpander *QueryExpander
		assert.Empty(t, nilExpander.ConceptFilter("military"))
		assert.Empty(t, NewQueryExpander(nil).ConceptFilter("military"))
	})
}

func TestNormalizePhrase(t *testing.T) {
	assert.Equal(t, "graph neural networks", normalizePhrase("  Graph-Neural, NETWORKS! "))
	assert.Equal(t, "", normalizePhrase("--"))
}
