package openalex

import (
	"strings"
	"unicode"
)

// ConceptRule maps a cluster of query keywords to OpenAlex concept IDs.
// When any keyword appears in a query as a whole word (or word sequence),
// the rule's concepts are added to the search filter.
type ConceptRule struct {
	Name       string
	Keywords   []string
	ConceptIDs []string
}

// DefaultConceptRules returns the built-in keyword clusters.
//
// OpenAlex has no root concept for defence topics, so the military cluster
// leans on political science and engineering.
func DefaultConceptRules() []ConceptRule {
	return []ConceptRule{
		{
			Name: "military",
			Keywords: []string{
				"military", "defense", "defence", "warfare", "army", "navy",
				"air force", "missile", "weapon", "weapons", "combat", "battlefield",
			},
			ConceptIDs: []string{"C17744445", "C127413603"},
		},
		{
			Name: "ai",
			Keywords: []string{
				"ai", "artificial intelligence", "machine learning", "deep learning",
				"neural network", "neural networks", "llm", "transformer", "reinforcement learning",
			},
			ConceptIDs: []string{"C154945302", "C119857082", "C41008148"},
		},
		{
			Name: "medical",
			Keywords: []string{
				"medical", "medicine", "clinical", "patient", "patients", "disease",
				"diagnosis", "therapy", "cancer", "healthcare",
			},
			ConceptIDs: []string{"C71924100"},
		},
	}
}

// QueryExpander derives concept filters from free-text queries using a
// fixed rule table.
type QueryExpander struct {
	rules []compiledRule
}

type compiledRule struct {
	name       string
	keywords   []string
	conceptIDs []string
}

// NewQueryExpander compiles rules for matching. A nil or empty rule set
// never matches.
func NewQueryExpander(rules []ConceptRule) *QueryExpander {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		cr := compiledRule{name: r.Name, conceptIDs: r.ConceptIDs}
		for _, kw := range r.Keywords {
			if norm := normalizePhrase(kw); norm != "" {
				cr.keywords = append(cr.keywords, " "+norm+" ")
			}
		}
		compiled = append(compiled, cr)
	}
	return &QueryExpander{rules: compiled}
}

// Match returns the names of rules whose keywords occur in query, in rule order.
func (e *QueryExpander) Match(query string) []string {
	var names []string
	for _, r := range e.matching(query) {
		names = append(names, r.name)
	}
	return names
}

// ConceptFilter returns an OpenAlex filter clause such as
// "concepts.id:C1|C2" for the concepts matched by query, or "" when no
// rule matches. Concept IDs appear once, in rule order.
func (e *QueryExpander) ConceptFilter(query string) string {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range e.matching(query) {
		for _, id := range r.conceptIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	return "concepts.id:" + strings.Join(ids, "|")
}

func (e *QueryExpander) matching(query string) []compiledRule {
	if e == nil || len(e.rules) == 0 {
		return nil
	}
	norm := normalizePhrase(query)
	if norm == "" {
		return nil
	}
	padded := " " + norm + " "

	var matched []compiledRule
	for _, r := range e.rules {
		for _, kw := range r.keywords {
			if strings.Contains(padded, kw) {
				matched = append(matched, r)
				break
			}
		}
	}
	return matched
}

// normalizePhrase lowercases s and collapses every run of non-alphanumeric
// characters into a single space.
func normalizePhrase(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}
