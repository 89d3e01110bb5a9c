package openalex

import (
	"testing"
	"unicode/utf8"
)

func FuzzReconstructAbstract(f *testing.F) {
	f.Add("alpha", "beta", 0, 1)
	f.Add("", "x", -1, 3)
	f.Add("word", "word", 100_001, 2)
	f.Add("été", "\U0001F4A9", 5, 5)

	f.Fuzz(func(t *testing.T, w1, w2 string, p1, p2 int) {
		got := reconstructAbstract(map[string][]int{w1: {p1}, w2: {p2, p1}})

		if n := utf8.RuneCountInString(got); n > maxAbstractLength+3 {
			t.Fatalf("abstract has %d runes", n)
		}
		if got == "" {
			t.Fatal("abstract must never be empty")
		}
	})
}
