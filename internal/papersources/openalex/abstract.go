package openalex

import (
	"strings"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

const (
	// maxAbstractLength is the rune count after which abstracts are cut.
	maxAbstractLength = 500

	// maxAbstractPosition bounds the slot array against hostile payloads.
	maxAbstractPosition = 100_000
)

// reconstructAbstract rebuilds abstract text from an inverted index mapping
// each word to its positions. Words are placed by position, empty slots are
// skipped, and the result is cut to 500 runes with a trailing "...". An empty
// index yields domain.NoAbstract.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return domain.NoAbstract
	}

	maxPos := -1
	for _, positions := range invertedIndex {
		for _, pos := range positions {
			if pos > maxPos && pos <= maxAbstractPosition {
				maxPos = pos
			}
		}
	}
	if maxPos < 0 {
		return domain.NoAbstract
	}

	slots := make([]string, maxPos+1)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			if pos >= 0 && pos < len(slots) {
				slots[pos] = word
			}
		}
	}

	var b strings.Builder
	for _, word := range slots {
		if word == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}

	text := b.String()
	if text == "" {
		return domain.NoAbstract
	}
	if runes := []rune(text); len(runes) > maxAbstractLength {
		return string(runes[:maxAbstractLength]) + "..."
	}
	return text
}
