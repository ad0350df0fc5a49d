package schema

import (
	"math"
	"strconv"
	"strings"
)

// Ordinal maps A..E to 1..5. Unknown ratings map to 0.
func (r Rating) Ordinal() int {
	switch r {
	case RatingA:
		return 1
	case RatingB:
		return 2
	case RatingC:
		return 3
	case RatingD:
		return 4
	case RatingE:
		return 5
	default:
		return 0
	}
}

// Worse reports whether r is strictly worse than limit.
func (r Rating) Worse(limit Rating) bool {
	return r.Ordinal() > limit.Ordinal()
}

// ParseRating accepts letter ratings and the numeric form quality tools report ("1", "2.0").
func ParseRating(s string) (Rating, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if r := Rating(s); r.Ordinal() > 0 {
		return r, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	n := int(f)
	if float64(n) != f || n < 1 || n > len(AllRatings) {
		return "", false
	}
	return AllRatings[n-1], true
}

// ParseSeverity normalizes a severity label. Unrecognized labels report false.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := ValidSeverities[sev]; ok {
		return sev, true
	}
	return SeverityUnknown, false
}

// ProjectKey turns an "owner/name" repository into the key used by threshold overrides.
func ProjectKey(repository string) string {
	return strings.ReplaceAll(strings.TrimSpace(repository), "/", "_")
}

// NormalizeBranch strips the refs/heads/ prefix CI systems put on branch references.
func NormalizeBranch(ref string) string {
	return strings.TrimPrefix(strings.TrimSpace(ref), "refs/heads/")
}
