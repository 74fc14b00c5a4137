package relational

import (
	"strconv"
	"strings"
)

// Dialect captures what differs between SQL engines.
type Dialect struct {
	Name   string
	Schema string
	// Numbered placeholders ($1, $2, ...) instead of "?".
	Numbered bool
	// Classify maps a driver error to a domain error kind, returning nil when
	// the error is not a recognised constraint violation.
	Classify func(err error, change Change) error
}

// Rebind rewrites "?" placeholders for dialects that number them.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
