package notifications

import "strings"

const (
	// TypeWildcard matches every notification type name.
	TypeWildcard = "*"

	typeDelimiter = "."
)

// TypeMatches reports whether a type name matches pattern. Patterns are an
// exact name, a dotted prefix ending in ".*" or the global wildcard "*".
//
//	TypeMatches("open-edx.lms.reply", "open-edx.lms.*") // true
//	TypeMatches("open-edx.lms", "open-edx.lms.*")       // false
func TypeMatches(name, pattern string) bool {
	if name == pattern || pattern == TypeWildcard {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, typeDelimiter+TypeWildcard); ok {
		return strings.HasPrefix(name, prefix+typeDelimiter)
	}
	return false
}

// lookupPattern returns the value registered under the most specific pattern
// matching name: the exact name, then the longest dotted prefix wildcard,
// then "*".
func lookupPattern[V any](m map[string]V, name string) (V, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for i := strings.LastIndex(name, typeDelimiter); i > 0; i = strings.LastIndex(name[:i], typeDelimiter) {
		if v, ok := m[name[:i]+typeDelimiter+TypeWildcard]; ok {
			return v, true
		}
	}
	v, ok := m[TypeWildcard]
	return v, ok
}
