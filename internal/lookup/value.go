package lookup

import (
	"fmt"
	"strings"
)

type Clause struct {
	Attribute string
	Value     string
}

// Candidate is a stored override for a key, applied to hosts whose
// attributes satisfy every clause of Match.
type Candidate struct {
	ID               int
	Match            string
	Value            any
	UseSystemDefault bool
}

// Clauses parses Match into its attribute=value pairs.
func (c *Candidate) Clauses() ([]Clause, error) {
	return ParseMatch(c.Match)
}

func (c *Candidate) Attributes() []string {
	clauses, err := c.Clauses()
	if err != nil {
		return nil
	}
	attrs := make([]string, len(clauses))
	for i, cl := range clauses {
		attrs[i] = cl.Attribute
	}
	return attrs
}

func ParseMatch(match string) ([]Clause, error) {
	match = strings.TrimSpace(match)
	if match == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidMatch)
	}
	var clauses []Clause
	seen := map[string]bool{}
	for _, part := range strings.Split(match, KeyDelimiter) {
		attr, value, found := strings.Cut(part, EqDelimiter)
		attr = strings.TrimSpace(attr)
		if !found || attr == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMatch, match)
		}
		if seen[attr] {
			return nil, fmt.Errorf("%w: attribute %v repeated in %q", ErrInvalidMatch, attr, match)
		}
		seen[attr] = true
		clauses = append(clauses, Clause{Attribute: attr, Value: strings.TrimSpace(value)})
	}
	return clauses, nil
}
