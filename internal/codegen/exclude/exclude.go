// Package exclude marks declarations that must not be bound.
package exclude

import (
	"path"

	"github.com/cockroachdb/errors"

	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

// Rule selects declarations by exactly one key. Pattern is a glob over
// qualified names and only applies when configured explicitly.
type Rule struct {
	Header  string `yaml:"header,omitempty" json:"header,omitempty"`
	Name    string `yaml:"name,omitempty" json:"name,omitempty"`
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

func Header(h string) Rule { return Rule{Header: h} }

func Name(n string) Rule { return Rule{Name: n} }

func Pattern(p string) Rule { return Rule{Pattern: p} }

func (r Rule) String() string {
	switch {
	case r.Header != "":
		return "header:" + r.Header
	case r.Name != "":
		return "name:" + r.Name
	case r.Pattern != "":
		return "pattern:" + r.Pattern
	}
	return "empty"
}

func (r Rule) Validate() error {
	set := 0
	for _, v := range []string{r.Header, r.Name, r.Pattern} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return errors.Newf("exclusion rule %+v must set exactly one of header, name or pattern", r)
	}
	if r.Pattern != "" {
		if _, err := path.Match(r.Pattern, ""); err != nil {
			return errors.Wrapf(err, "exclusion pattern %q", r.Pattern)
		}
	}
	return nil
}

// Matches reports whether the rule selects d itself, ignoring cascading.
func (r Rule) Matches(d *symtab.Declaration) bool {
	switch {
	case r.Header != "":
		return d.Header == r.Header
	case r.Name != "":
		return d.QualifiedName == r.Name
	case r.Pattern != "":
		ok, _ := path.Match(r.Pattern, d.QualifiedName)
		return ok
	}
	return false
}

type Result struct {
	// Excluded is the number of excluded declarations in the table after application.
	Excluded int
	// Matches counts the non-namespace declarations each exclusion rule
	// selected directly, keyed by Rule.String.
	Matches map[string]int
	// Kept is Matches for keep rules.
	Kept map[string]int
	// Unmatched lists exclusion and keep rules that selected nothing, each once.
	Unmatched []Rule
}

// dedup drops repeated rules, keeping the first occurrence.
func dedup(rules []Rule) []Rule {
	seen := make(map[Rule]struct{}, len(rules))
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Apply sets Excluded on every declaration selected by rules. Excluding a
// class excludes all of its members. Keep rules protect a declaration, and
// the members of a kept class, from header rules; name and pattern rules
// always win. Flags are only ever set, so applying the same rules again
// yields the same table and the same Result.
func Apply(t *symtab.Table, rules, keep []Rule) Result {
	var res Result
	rules, keep = dedup(rules), dedup(keep)
	excludeHits := make([]int, len(rules))
	keepHits := make([]int, len(keep))

	var visit func(d *symtab.Declaration, parentExcluded, parentKept bool)
	visit = func(d *symtab.Declaration, parentExcluded, parentKept bool) {
		counted := d.Kind != symtab.KindNamespace
		byName, byHeader := false, false
		for i, r := range rules {
			if !r.Matches(d) {
				continue
			}
			if counted {
				excludeHits[i]++
			}
			if r.Header != "" {
				byHeader = true
			} else {
				byName = true
			}
		}
		kept := parentKept
		for i, r := range keep {
			if r.Matches(d) {
				if counted {
					keepHits[i]++
				}
				kept = true
			}
		}

		if parentExcluded || byName || (byHeader && !kept) {
			d.Excluded = true
		}
		if d.Excluded && counted {
			res.Excluded++
		}
		for _, m := range d.Members {
			visit(m, d.Excluded && d.Kind == symtab.KindClass, kept)
		}
	}
	for _, d := range t.Decls {
		visit(d, false, false)
	}

	res.Matches = make(map[string]int, len(rules))
	for i, r := range rules {
		res.Matches[r.String()] = excludeHits[i]
		if excludeHits[i] == 0 {
			res.Unmatched = append(res.Unmatched, r)
		}
	}
	res.Kept = make(map[string]int, len(keep))
	for i, r := range keep {
		res.Kept[r.String()] = keepHits[i]
		if keepHits[i] == 0 {
			res.Unmatched = append(res.Unmatched, r)
		}
	}
	return res
}
