// pdp/engine/matcher.go
package engine

import (
	"strings"

	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
)

type matchKind int

const (
	matchWildcard matchKind = iota
	matchExact
	matchPrefix
	matchAttribute
)

// Matcher is a parsed pattern. Patterns are small tagged variants rather
// than a rule language: "*" matches anything, a trailing ":*" matches a
// hierarchy prefix, "attr:key=value" matches a subject attribute, anything
// else matches exactly.
type Matcher struct {
	kind      matchKind
	value     string
	attribute string
	expected  string
}

// ParseMatcher parses a pattern string into a Matcher.
func ParseMatcher(pattern string) Matcher {
	if pattern == "*" {
		return Matcher{kind: matchWildcard}
	}
	if attr, ok := strings.CutPrefix(pattern, "attr:"); ok {
		key, expected, found := strings.Cut(attr, "=")
		if found {
			return Matcher{kind: matchAttribute, attribute: key, expected: expected}
		}
	}
	if prefix, ok := strings.CutSuffix(pattern, ":*"); ok {
		return Matcher{kind: matchPrefix, value: prefix}
	}
	return Matcher{kind: matchExact, value: pattern}
}

// Matches evaluates the matcher against a plain value (resource or action).
func (m Matcher) Matches(value string) bool {
	switch m.kind {
	case matchWildcard:
		return true
	case matchExact:
		return m.value == value
	case matchPrefix:
		// Prefix matching is segment-aligned: "document:sensitive:*"
		// matches "document:sensitive:report.pdf" but not
		// "document:sensitives".
		return value == m.value || strings.HasPrefix(value, m.value+":")
	default:
		return false
	}
}

// subjectMatch is the result of matching a subject pattern: whether it
// matched and, when it matched through a role, which role carried it.
type subjectMatch struct {
	matched bool
	role    string
}

// matchSubject evaluates one subject pattern against the caller and their
// effective roles.
func matchSubject(pattern string, subject pdp_model.Subject, roles map[string]bool) subjectMatch {
	if pattern == "*" {
		return subjectMatch{matched: true}
	}
	if role, ok := strings.CutPrefix(pattern, "role:"); ok {
		if roles[role] {
			return subjectMatch{matched: true, role: role}
		}
		return subjectMatch{}
	}
	if userID, ok := strings.CutPrefix(pattern, "user:"); ok {
		return subjectMatch{matched: userID == subject.ID}
	}
	if appID, ok := strings.CutPrefix(pattern, "application:"); ok {
		return subjectMatch{matched: appID == subject.ApplicationID}
	}
	if attr, ok := strings.CutPrefix(pattern, "attr:"); ok {
		key, expected, found := strings.Cut(attr, "=")
		if !found {
			return subjectMatch{}
		}
		value, ok := subject.Attributes[key]
		if !ok {
			return subjectMatch{}
		}
		s, ok := value.(string)
		return subjectMatch{matched: ok && s == expected}
	}
	return subjectMatch{}
}
