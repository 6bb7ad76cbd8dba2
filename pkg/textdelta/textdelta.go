// Package textdelta implements the pure text-delta function spec.md §6
// treats as an external black box: sentence-level tokenization followed by
// sequence matching. Grounded on
// original_source/simulator/text_delta.py (nltk sentence tokenization +
// difflib.SequenceMatcher.ratio()) — reimplemented without the Python nltk
// dependency using a punctuation-boundary sentence splitter and a
// Ratcliff/Obershelp-style ratio over the resulting sentence sequence.
package textdelta

import (
	"math"
	"strings"
)

// SentenceSequenceDelta computes a dissimilarity score in [0,1] between two
// texts: 0 means identical, 1 means completely disjoint. Deterministic
// given the same inputs, matching the stability guarantee spec.md §6
// requires of the engine's black-box delta function.
func SentenceSequenceDelta(oldText, newText string) float64 {
	oldSents := splitSentences(oldText)
	newSents := splitSentences(newText)

	ratio := sequenceRatio(oldSents, newSents)
	delta := 1.0 - ratio
	return roundTo(delta, 4)
}

// splitSentences performs a simple sentence-boundary split on '.', '!', '?'
// followed by whitespace (or end of string), trimming surrounding space.
// Empty text yields an empty sentence slice.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	var b strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		isBoundary := r == '.' || r == '!' || r == '?'
		atEnd := i == len(runes)-1
		nextIsSpaceOrEnd := atEnd || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t'
		if isBoundary && nextIsSpaceOrEnd {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// sequenceRatio implements difflib's ratio(): 2*M / T, where M is the total
// length of matching blocks found by a greedy longest-common-subsequence
// walk and T is the combined length of both sequences. Matching is exact
// string equality per sentence, matching SequenceMatcher(None, a, b) with no
// custom junk/auto-junk heuristics applied to a token sequence.
func sequenceRatio(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	matches := lcsLength(a, b)
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matches) / float64(total)
}

// lcsLength returns the length of the longest common subsequence of a and b
// via standard O(len(a)*len(b)) dynamic programming.
func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
