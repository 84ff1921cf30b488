package common

import (
	"strings"
)

// SanitizeLeadingDigit prefixes names that start with a digit with "Num"
// to keep identifiers valid in target languages.
func SanitizeLeadingDigit(name string) string {
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		return "Num" + name
	}
	return name
}

// CommonPrefix returns the longest '_'-terminated prefix shared by every
// name. It never consumes a whole name.
// Example: ["DOUBLE_STYLE_PLAIN", "DOUBLE_STYLE_SCIENTIFIC"] => "DOUBLE_STYLE_".
func CommonPrefix(names []string) string {
	if len(names) < 2 {
		return ""
	}
	prefix := names[0]
	for _, n := range names[1:] {
		for !strings.HasPrefix(n, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	idx := strings.LastIndexByte(prefix, '_')
	if idx < 0 {
		return ""
	}
	prefix = prefix[:idx+1]
	for _, n := range names {
		if n == prefix {
			return ""
		}
	}
	return prefix
}

// TrimPrefixAndSanitize drops prefix from an enumerator and makes the rest a
// valid PascalCase member name.
// Example: ("DOUBLE_STYLE_PLAIN", "DOUBLE_STYLE_") => "Plain", ("KEY_1", "KEY_") => "Num1".
func TrimPrefixAndSanitize(full, prefix string) string {
	member := SanitizeLeadingDigit(ToPascalCase(strings.TrimPrefix(full, prefix)))
	if member == "" {
		member = SanitizeLeadingDigit(ToPascalCase(full))
	}
	if member == "" {
		return full
	}
	return member
}
