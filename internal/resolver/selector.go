package resolver

import (
	"cmp"
	"slices"

	"primamateria.systems/enc/internal/lookup"
	"primamateria.systems/enc/internal/matcher"
)

// Selected is a candidate eligible for a host, with the position that
// decides its precedence.
type Selected struct {
	Candidate   *lookup.Candidate
	Level       int
	Distance    int
	Element     string
	ElementName string
	order       int
}

func compareSelected(a, b Selected) int {
	if c := cmp.Compare(a.Level, b.Level); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	return cmp.Compare(a.order, b.order)
}

// Select returns every candidate of key that matches host, highest
// precedence first: by path level, then hostgroup distance (nearer first),
// then declaration order.
func Select(key *lookup.Key, host matcher.Attributes) []Selected {
	var result []Selected
	for levelIndex, level := range key.Path {
		for i, c := range key.Values {
			m, ok := matcher.Matches(level, c, host)
			if !ok {
				continue
			}
			result = append(result, Selected{
				Candidate:   c,
				Level:       levelIndex,
				Distance:    m.Distance,
				Element:     level.String(),
				ElementName: m.ElementName(),
				order:       i,
			})
		}
	}
	slices.SortStableFunc(result, compareSelected)
	return result
}

// Contributing drops candidates flagged to defer to the agent's default.
func Contributing(selected []Selected) []Selected {
	result := make([]Selected, 0, len(selected))
	for _, s := range selected {
		if !s.Candidate.UseSystemDefault {
			result = append(result, s)
		}
	}
	return result
}
