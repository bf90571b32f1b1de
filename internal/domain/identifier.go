package domain

import "strings"

// tableUnsafe lists the characters replaced in backing-store identifiers, in
// the order the substitution passes run. The ordering is part of the
// contract: names must come out identical no matter which call site built
// them.
var tableUnsafe = []string{":", "-", "."}

// Sanitize joins parts with underscores and replaces every backing-store
// unsafe character with an underscore. Idempotent.
func Sanitize(parts ...string) string {
	name := strings.Join(parts, "_")
	for _, ch := range tableUnsafe {
		name = strings.Join(strings.Split(name, ch), "_")
	}
	return name
}

// SanitizeStrict is Sanitize with an additional pass replacing spaces, for
// call sites feeding identifiers into whitespace-separated interfaces.
func SanitizeStrict(parts ...string) string {
	return strings.Join(strings.Split(Sanitize(parts...), " "), "_")
}
