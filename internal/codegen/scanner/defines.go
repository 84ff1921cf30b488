package scanner

import (
	"regexp"
	"strings"
)

type define struct {
	re    *regexp.Regexp
	value []byte
}

// compileDefines turns NAME or NAME=VALUE entries into whole-word
// replacements. A bare NAME expands to 1 like a -D flag would.
func compileDefines(defs []string) []define {
	out := make([]define, 0, len(defs))
	for _, d := range defs {
		name, value, ok := strings.Cut(d, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !ok {
			value = "1"
		}
		out = append(out, define{
			re:    regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`),
			value: []byte(value),
		})
	}
	return out
}

func applyDefines(src []byte, defs []define) []byte {
	for _, d := range defs {
		src = d.re.ReplaceAllLiteral(src, d.value)
	}
	return src
}
