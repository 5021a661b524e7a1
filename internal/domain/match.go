package domain

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Similarity thresholds, tuned against the normalized Levenshtein ratio
// implemented by similarity below. Changing the metric means re-tuning.
const (
	regionMatchThreshold = 0.90
	streetMatchThreshold = 0.80
)

// NormalizeAddressPart canonicalizes an address component for comparison:
// lower-cased, punctuation stripped, whitespace runs collapsed to one
// space.
func NormalizeAddressPart(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// similarity is the normalized edit-distance ratio between two strings:
// 1 - levenshtein(a,b)/max(len(a),len(b)), computed over runes.
// Identical strings score 1.0, fully different strings 0.0.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

// AddressMatches reports whether a tracked address falls inside a
// record's affected area.
//
// Region rule: a record with no extracted regions never matches a
// tracked address that names a region; treating extraction failure as
// "area-wide" would flood subscribers with false positives. Otherwise
// the tracked region must fuzzy-match (at least 0.90) one record
// region.
//
// Street rule: once the region matched, a record with no streets is a
// whole-region outage and matches. Otherwise at least one record street
// must fuzzy-match (at least 0.80) the tracked street, or contain it as
// a substring (abbreviated street names: "Abovyan" vs "Abovyan street").
func AddressMatches(addr TrackedAddress, rec OutageRecord) bool {
	region := NormalizeAddressPart(addr.Region)
	if region != "" {
		if len(rec.Regions) == 0 {
			return false
		}
		if !anyMatch(region, rec.Regions, regionMatchThreshold, false) {
			return false
		}
	}

	if len(rec.Streets) == 0 {
		return true
	}
	street := NormalizeAddressPart(addr.Street)
	if street == "" {
		return true
	}
	return anyMatch(street, rec.Streets, streetMatchThreshold, true)
}

// anyMatch reports whether needle fuzzy-matches any of the candidates
// after normalization. With substrings enabled, a candidate containing
// the needle also counts.
func anyMatch(needle string, candidates []string, threshold float64, substrings bool) bool {
	for _, c := range candidates {
		cn := NormalizeAddressPart(c)
		if cn == "" {
			continue
		}
		if similarity(needle, cn) >= threshold {
			return true
		}
		if substrings && strings.Contains(cn, needle) {
			return true
		}
	}
	return false
}
