// Package similarity holds the pairwise text similarity strategies and the
// distributor that dispatches a method key to one of them.
package similarity

import (
	"math"
	"regexp"
	"strings"
)

// ShingleSize is the number of tokens per shingle.
const ShingleSize = 2

var (
	wordPattern    = regexp.MustCompile(`[\p{L}\p{N}\p{M}_]{2,}`)
	nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_]`)
)

// EditRatio is the normalized indel similarity of two strings:
// (len_a + len_b - distance) / (len_a + len_b), where a substitution costs 2.
// Identical strings score 1, strings without a common rune score 0.
func EditRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return float64(2*longestCommonSubsequence(ra, rb)) / float64(total)
}

func longestCommonSubsequence(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// BagOfWordsCosine is the cosine of the term-count vectors of both texts over
// their joint vocabulary. Tokens are word runs of two or more characters.
func BagOfWordsCosine(a, b string) float64 {
	return countCosine(countTokens(a), countTokens(b))
}

func countTokens(text string) map[string]float64 {
	counts := make(map[string]float64)
	for _, token := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		counts[token]++
	}
	return counts
}

// ShingleSimilarity compares the sets of contiguous 2-token shingles of both
// texts, by Jaccard index or by cosine of their indicator vectors.
func ShingleSimilarity(a, b string, jaccard bool) float64 {
	sa, sb := Shingles(a), Shingles(b)
	if jaccard {
		return jaccardIndex(sa, sb)
	}
	return countCosine(sa, sb)
}

// Shingles returns the set of contiguous ShingleSize-token shingles. Texts
// shorter than ShingleSize tokens have none.
func Shingles(text string) map[string]float64 {
	tokens := strings.Fields(nonWordPattern.ReplaceAllString(text, " "))
	out := make(map[string]float64)
	for i := 0; i+ShingleSize <= len(tokens); i++ {
		out[strings.Join(tokens[i:i+ShingleSize], " ")] = 1
	}
	return out
}

func jaccardIndex(a, b map[string]float64) float64 {
	intersection := 0
	for key := range a {
		if _, ok := b[key]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func countCosine(a, b map[string]float64) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot, normA, normB float64
	for key, va := range a {
		normA += va * va
		if vb, ok := b[key]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return clampUnit(dot / math.Sqrt(normA*normB))
}

// Cosine returns the cosine of two dense vectors of equal length, 0 when
// either has zero norm or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return clampUnit(dot / math.Sqrt(normA*normB))
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
