package security

import "crypto/subtle"

// MatchEditCode reports whether supplied equals the stored edit code exactly.
// An empty stored code never matches.
func MatchEditCode(stored, supplied string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
