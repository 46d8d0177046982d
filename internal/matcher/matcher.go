package matcher

import (
	"slices"
	"strings"

	"primamateria.systems/enc/internal/facts"
	"primamateria.systems/enc/internal/lookup"
)

const HostgroupAttribute = "hostgroup"

// Attributes is the view of a host the matcher needs.
type Attributes interface {
	Attribute(name string) (string, bool)
	HostgroupChain() []string
}

// Match is the outcome of testing one candidate against one level.
type Match struct {
	// Distance is the index of the matched hostgroup in the host's chain,
	// 0 when the clause named the host's own hostgroup or no hostgroup at all.
	Distance int
	// Elements are the host values that satisfied each clause, in clause order.
	Elements []string
}

func (m Match) ElementName() string {
	return strings.Join(m.Elements, lookup.KeyDelimiter)
}

// Matches tests every clause of the candidate's match expression against the
// host. The candidate must belong to level, and all clauses must hold.
func Matches(level lookup.Level, c *lookup.Candidate, host Attributes) (Match, bool) {
	clauses, err := c.Clauses()
	if err != nil {
		return Match{}, false
	}
	attrs := make([]string, len(clauses))
	for i, cl := range clauses {
		attrs[i] = cl.Attribute
	}
	if !level.Equal(attrs) {
		return Match{}, false
	}
	var m Match
	for _, cl := range clauses {
		if cl.Attribute == HostgroupAttribute {
			distance := slices.Index(host.HostgroupChain(), cl.Value)
			if distance < 0 {
				return Match{}, false
			}
			m.Distance = distance
			m.Elements = append(m.Elements, cl.Value)
			continue
		}
		v, ok := host.Attribute(cl.Attribute)
		if !ok || v != cl.Value {
			return Match{}, false
		}
		m.Elements = append(m.Elements, v)
	}
	return m, true
}

var _ Attributes = (*facts.HostFacts)(nil)
