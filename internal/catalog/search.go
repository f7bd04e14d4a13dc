package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Query selects records by display name.
type Query struct {
	Pattern         string
	CaseInsensitive bool
	UseRegex        bool
}

// matcher compiles q into a predicate.
func (q Query) matcher() (func(string) bool, error) {
	if q.UseRegex {
		// the pattern must stand alone so it cannot close the anchoring group
		if _, err := regexp.Compile(q.Pattern); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		expr := `^(?:` + q.Pattern + `)$`
		if q.CaseInsensitive {
			expr = `(?i)` + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		return re.MatchString, nil
	}

	if q.Pattern == "" {
		return func(string) bool { return true }, nil
	}
	if q.CaseInsensitive {
		pattern := strings.ToLower(q.Pattern)
		return func(name string) bool {
			return strings.Contains(strings.ToLower(name), pattern)
		}, nil
	}
	return func(name string) bool {
		return strings.Contains(name, q.Pattern)
	}, nil
}

// Search returns the records whose name matches q, in stream order. An
// empty pattern matches everything.
func (c *Catalog) Search(q Query) ([]Entry, error) {
	match, err := q.matcher()
	if err != nil {
		return nil, err
	}
	if q.UseRegex && q.Pattern == "" {
		// "^(?:)$" would only match the empty name
		match = func(string) bool { return true }
	}

	entries := make([]Entry, 0)
	for _, id := range c.order {
		r := c.records[id]
		if match(r.Name) {
			entries = append(entries, Entry{Name: r.Name, ID: id})
		}
	}
	return entries, nil
}

// Resolve returns the record named name. When several records share the
// name and describe the same layout, as happens when a header is compiled
// into many objects, the first in stream order wins; differing layouts are
// reported as an AmbiguousError.
func (c *Catalog) Resolve(name string) (*TypeRecord, error) {
	ids := c.byName[name]
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	first := c.records[ids[0]]
	want := fingerprint(first)
	for _, id := range ids[1:] {
		if fingerprint(c.records[id]) != want {
			return nil, &AmbiguousError{Name: name, IDs: append([]ID(nil), ids...)}
		}
	}
	return first, nil
}

// fingerprint summarises the layout of r. Member types are compared by the
// name of what they refer to so that equal layouts from different objects
// compare equal.
func fingerprint(r *TypeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%t", r.Kind, r.Size, r.Scoped)
	for _, base := range r.Bases {
		fmt.Fprintf(&b, "|b:%s:%d:%t", base.Name, base.Access, base.Virtual)
	}
	for _, m := range r.Members {
		fmt.Fprintf(&b, "|m:%s@%d:%t:%d:", m.Name, m.Offset, m.Static, m.Access)
		writeExprKey(&b, m.Type)
	}
	for _, e := range r.Enumerators {
		fmt.Fprintf(&b, "|e:%s=%s", e.Name, e.Value)
	}
	if r.Underlying != nil {
		b.WriteString("|u:")
		writeExprKey(&b, r.Underlying)
	}
	return b.String()
}

func writeExprKey(b *strings.Builder, e *TypeExpr) {
	if e == nil {
		return
	}
	fmt.Fprintf(b, "(%d %s %d %d %t %t", e.Kind, e.Name, e.Count, e.BitLength, e.Const, e.Volatile)
	writeExprKey(b, e.Elem)
	writeExprKey(b, e.Class)
	for _, p := range e.Params {
		writeExprKey(b, p)
	}
	b.WriteByte(')')
}
