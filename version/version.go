// Package version compares port version-release strings.
//
// The algorithm is a direct port of prt-get's versioncomparator: it never
// claims to implement semver, and deliberately returns Undefined rather than
// guess when it cannot order two strings with confidence.
package version

import (
	"strconv"
	"strings"
)

// Result is the outcome of comparing two version-release strings.
type Result int

const (
	// Equal means both operands are the same version.
	Equal Result = iota
	// Less means v1 sorts before v2.
	Less
	// Greater means v1 sorts after v2.
	Greater
	// Undefined means the two operands cannot be ordered with confidence.
	Undefined
)

func (r Result) String() string {
	switch r {
	case Equal:
		return "EQUAL"
	case Less:
		return "LESS"
	case Greater:
		return "GREATER"
	default:
		return "UNDEFINED"
	}
}

// padSentinel right-pads the shorter token is compared against.
const padSentinel = "-1"

// preReleaseWords is the fixed ordered list of recognized pre-release tags.
var preReleaseWords = []string{"alpha", "beta", "gamma", "delta"}

// Compare decides the update direction between two version-release strings.
//
// Tokenization is two-level: operands are split on blocks (after normalizing
// '-' to '_'), then each block is split on '.'. Within a position, numeric
// tokens compare numerically; otherwise each token is further split into
// alternating digit/non-digit runs and compared sub-token by sub-token.
func Compare(v1, v2 string) Result {
	blocks1 := splitBlocks(v1)
	blocks2 := splitBlocks(v2)
	blocks1, blocks2 = padStrings(blocks1, blocks2)

	for i := range blocks1 {
		tokens1 := strings.Split(blocks1[i], ".")
		tokens2 := strings.Split(blocks2[i], ".")
		tokens1, tokens2 = padStrings(tokens1, tokens2)

		for j := range tokens1 {
			r := compareToken(tokens1[j], tokens2[j])
			if r != Equal {
				return r
			}
		}
	}

	return Equal
}

func splitBlocks(v string) []string {
	normalized := strings.ReplaceAll(v, "-", "_")
	return strings.Split(normalized, "_")
}

// padStrings right-pads the shorter of the two slices with padSentinel so
// both have equal length, returning new slices (inputs are not mutated).
func padStrings(a, b []string) ([]string, []string) {
	if len(a) == len(b) {
		return a, b
	}
	if len(a) < len(b) {
		a = padTo(a, len(b))
	} else {
		b = padTo(b, len(a))
	}
	return a, b
}

func padTo(s []string, n int) []string {
	out := make([]string, n)
	copy(out, s)
	for i := len(s); i < n; i++ {
		out[i] = padSentinel
	}
	return out
}

func compareToken(t1, t2 string) Result {
	n1, err1 := strconv.Atoi(t1)
	n2, err2 := strconv.Atoi(t2)
	if err1 == nil && err2 == nil {
		return compareInt(n1, n2)
	}

	sub1 := splitDigitRuns(t1)
	sub2 := splitDigitRuns(t2)
	sub1, sub2 = padStrings(sub1, sub2)

	for i := range sub1 {
		r := compareSubToken(sub1[i], sub2[i])
		if r != Equal {
			return r
		}
	}

	return Equal
}

// compareSubToken compares two sub-tokens produced by splitDigitRuns.
func compareSubToken(a, b string) Result {
	n1, err1 := strconv.Atoi(a)
	n2, err2 := strconv.Atoi(b)
	if err1 == nil && err2 == nil {
		return compareInt(n1, n2)
	}

	if len(a) == 1 && len(b) == 1 && err1 != nil && err2 != nil {
		return compareInt(int(a[0]), int(b[0]))
	}

	idx1 := preReleaseIndex(a)
	idx2 := preReleaseIndex(b)
	if idx1 >= 0 && idx2 >= 0 {
		return compareInt(idx1, idx2)
	}

	if a == b {
		return Equal
	}

	return Undefined
}

func preReleaseIndex(s string) int {
	lower := strings.ToLower(s)
	for i, w := range preReleaseWords {
		if lower == w {
			return i
		}
	}
	return -1
}

func compareInt(a, b int) Result {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

// splitDigitRuns breaks a token into alternating digit and non-digit runs,
// e.g. "2pre3" -> ["2", "pre", "3"].
func splitDigitRuns(s string) []string {
	if s == "" {
		return []string{""}
	}

	var runs []string
	var cur strings.Builder
	curDigit := isDigit(rune(s[0]))

	for _, r := range s {
		d := isDigit(r)
		if d != curDigit && cur.Len() > 0 {
			runs = append(runs, cur.String())
			cur.Reset()
		}
		cur.WriteRune(r)
		curDigit = d
	}
	if cur.Len() > 0 {
		runs = append(runs, cur.String())
	}

	return runs
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
