package dedupe

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// lengthSkewLimit rejects pairs whose lengths differ by more than this
// fraction of the shorter string before any expensive comparison.
const lengthSkewLimit = 0.3

// affixProbe is how many leading/trailing characters the cheap prefix/suffix
// check inspects, and the minimum length at which that check applies.
const (
	affixProbe    = 10
	affixMinRunes = 20
)

// tokenGateFactor scales the similarity threshold for the word-set gate in
// the pre-filter.
const tokenGateFactor = 0.8

// normalizeJoined lowercases, trims, and joins non-empty entries into the
// single comparison string used for near-duplicate scoring. Lowercasing makes
// step lists differing only in case score as identical.
func normalizeJoined(entries []string) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		t := strings.TrimSpace(e)
		if t == "" {
			continue
		}
		parts = append(parts, strings.ToLower(t))
	}
	return strings.Join(parts, "\n")
}

// prefilter reports whether a pair is worth scoring. It applies, in order:
// a length-skew rejection, then for longer strings a prefix/suffix probe
// backed by a token-set Jaccard gate. Pairs rejected here cannot plausibly
// exceed the similarity threshold.
func prefilter(a, b string, threshold float64) bool {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return false
	}

	minLen := la
	if lb < minLen {
		minLen = lb
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	if float64(diff) > lengthSkewLimit*float64(minLen) {
		return false
	}

	if minLen > affixMinRunes {
		if !runePrefixEqual(a, b, affixProbe) && !runeSuffixEqual(a, b, affixProbe) {
			if tokenJaccard(a, b) < tokenGateFactor*threshold {
				return false
			}
		}
	}
	return true
}

// similarityRatio computes an approximate sequence-similarity ratio in
// [0, 1]: twice the matched character count over the total length, the
// Ratcliff/Obershelp shape computed from a character diff.
func similarityRatio(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	matched := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			matched += utf8.RuneCountInString(d.Text)
		}
	}
	return 2 * float64(matched) / float64(la+lb)
}

// tokenJaccard computes Jaccard similarity over lower-cased whitespace
// tokens. Returns 0 when either side has no tokens.
func tokenJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func runePrefixEqual(a, b string, n int) bool {
	return firstRunes(a, n) == firstRunes(b, n)
}

func runeSuffixEqual(a, b string, n int) bool {
	return lastRunes(a, n) == lastRunes(b, n)
}

func firstRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func lastRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
