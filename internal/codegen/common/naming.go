package common

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ToPascalCase joins words split on '_', '-' and whitespace, upper-casing the
// first letter of each. Words already in mixed case keep their inner casing,
// so "CompareTo" stays as is while "DOUBLE_STYLE" becomes "DoubleStyle".
func ToPascalCase(s string) string {
	if s == "" {
		return ""
	}

	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})

	var result strings.Builder
	for _, word := range words {
		if word == "" {
			continue
		}
		if word == strings.ToUpper(word) {
			word = strings.ToLower(word)
		}
		r, size := utf8.DecodeRuneInString(word)
		result.WriteRune(unicode.ToUpper(r))
		result.WriteString(word[size:])
	}

	return result.String()
}

func ToCamelCase(s string) string {
	pascal := ToPascalCase(s)
	if len(pascal) == 0 {
		return ""
	}
	r, size := utf8.DecodeRuneInString(pascal)
	return string(unicode.ToLower(r)) + pascal[size:]
}

func ToSnakeCase(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		isUpper := r >= 'A' && r <= 'Z'

		if i > 0 && isUpper {
			// "someWord" -> "some_word", "XMLParser" -> "xml_parser"
			prevIsLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextIsLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if (prevIsLower || nextIsLower) && runes[i-1] != '_' {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// FlatName turns a qualified C++ name into a C identifier fragment:
// "Tizen::Base::Double" -> "Tizen_Base_Double".
func FlatName(qualified string) string {
	return strings.ReplaceAll(strings.TrimPrefix(qualified, "::"), "::", "_")
}

// DottedName turns a C++ namespace into a .NET namespace.
func DottedName(qualified string) string {
	return strings.ReplaceAll(strings.TrimPrefix(qualified, "::"), "::", ".")
}
