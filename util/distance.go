// Package util matches log labels against the names they should have.
package util

import "github.com/antzucaro/matchr"

// Contains reports whether list holds s.
func Contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Closest returns the candidate with the smallest Levenshtein distance to s,
// and that distance. The first candidate wins ties. It returns "", -1 when
// there are no candidates.
//
// Labels in logs are short (chromosome names, warning types), so the full
// distance is computed for every candidate.
func Closest(s string, candidates []string) (best string, distance int) {
	distance = -1
	for _, c := range candidates {
		if d := matchr.Levenshtein(s, c); distance < 0 || d < distance {
			best, distance = c, d
		}
	}
	return best, distance
}

// Missing returns the elements of want absent from got, in the order of
// want.
func Missing(got, want []string) []string {
	var r []string
	for _, w := range want {
		if !Contains(got, w) {
			r = append(r, w)
		}
	}
	return r
}
