package facts

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/emirpasic/gods/sets/treeset"
)

var ErrUnknownFact = errors.New("invalid fact lookup")

// HostFacts is the attribute snapshot a host is classified against. It is
// built once per resolution and never mutated afterwards.
type HostFacts struct {
	Name            string
	Organization    string
	Location        string
	OperatingSystem string
	Domain          string
	Environment     string
	// Hostgroups is the host's hostgroup followed by its ancestors, nearest first.
	Hostgroups []string
	Classes    []string
	Facts      map[string]any
}

type FactsProvider interface {
	Attribute(name string) (string, bool)
	HostgroupChain() []string
	Lookup(string) (any, error)
	AssignedClasses() []string
	Pretty() string
}

func NewHostFacts(name string) *HostFacts {
	return &HostFacts{
		Name:  name,
		Facts: make(map[string]any),
	}
}

// Attribute returns the value of a matchable host attribute. Hostgroup
// returns the host's own hostgroup; use HostgroupChain for ancestors.
func (h *HostFacts) Attribute(name string) (string, bool) {
	switch name {
	case "fqdn", "name":
		return h.Name, h.Name != ""
	case "organization":
		return h.Organization, h.Organization != ""
	case "location":
		return h.Location, h.Location != ""
	case "os", "operatingsystem":
		return h.OperatingSystem, h.OperatingSystem != ""
	case "domain":
		return h.Domain, h.Domain != ""
	case "environment":
		return h.Environment, h.Environment != ""
	case "hostgroup":
		if len(h.Hostgroups) == 0 {
			return "", false
		}
		return h.Hostgroups[0], true
	}
	v, ok := h.Facts[name]
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

func (h *HostFacts) HostgroupChain() []string {
	return slices.Clone(h.Hostgroups)
}

// AssignedClasses returns the host's classes de-duplicated and sorted.
func (h *HostFacts) AssignedClasses() []string {
	set := treeset.NewWith(func(a, b interface{}) int {
		return cmp.Compare(a.(string), b.(string))
	})
	for _, c := range h.Classes {
		set.Add(c)
	}
	result := make([]string, 0, set.Size())
	for _, v := range set.Values() {
		result = append(result, v.(string))
	}
	return result
}

// Lookup resolves a dotted fact path such as "hostgroup.1" or "facts.kernel".
func (h *HostFacts) Lookup(arg string) (any, error) {
	input := strings.Split(arg, ".")
	switch input[0] {
	case "hostgroups":
		return h.HostgroupChain(), nil
	case "hostgroup":
		if len(input) == 1 {
			v, _ := h.Attribute("hostgroup")
			return v, nil
		}
		var index int
		if _, err := fmt.Sscanf(input[1], "%d", &index); err != nil || index < 0 || index >= len(h.Hostgroups) {
			return nil, fmt.Errorf("invalid hostgroup index %v: %w", input[1], ErrUnknownFact)
		}
		return h.Hostgroups[index], nil
	case "classes":
		return h.AssignedClasses(), nil
	case "facts":
		if len(input) == 1 {
			return maps.Clone(h.Facts), nil
		}
		return lookupNested(h.Facts, input[1:])
	}
	if v, ok := h.Attribute(input[0]); ok && len(input) == 1 {
		return v, nil
	}
	return lookupNested(h.Facts, input)
}

func lookupNested(m map[string]any, path []string) (any, error) {
	var current any = m
	for _, p := range path {
		next, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%v: %w", strings.Join(path, "."), ErrUnknownFact)
		}
		current, ok = next[p]
		if !ok {
			return nil, fmt.Errorf("%v: %w", strings.Join(path, "."), ErrUnknownFact)
		}
	}
	return current, nil
}

// Map flattens the facts into the data passed to value templates.
func (h *HostFacts) Map() map[string]any {
	result := map[string]any{
		"name":            h.Name,
		"fqdn":            h.Name,
		"organization":    h.Organization,
		"location":        h.Location,
		"os":              h.OperatingSystem,
		"operatingsystem": h.OperatingSystem,
		"domain":          h.Domain,
		"environment":     h.Environment,
		"hostgroups":      h.HostgroupChain(),
		"classes":         h.AssignedClasses(),
		"facts":           maps.Clone(h.Facts),
	}
	hg, _ := h.Attribute("hostgroup")
	result["hostgroup"] = hg
	return result
}

func (h *HostFacts) Pretty() string {
	var result string
	result += "Facts\n"
	result += fmt.Sprintf("Host: %v\n", h.Name)
	result += fmt.Sprintf("Organization: %v\n", h.Organization)
	result += fmt.Sprintf("Location: %v\n", h.Location)
	result += fmt.Sprintf("Operating System: %v\n", h.OperatingSystem)
	result += fmt.Sprintf("Domain: %v\n", h.Domain)
	result += fmt.Sprintf("Environment: %v\n", h.Environment)
	result += "Hostgroups: "
	for _, v := range h.Hostgroups {
		result += fmt.Sprintf("%v ", v)
	}
	result += "\nClasses: "
	for _, v := range h.AssignedClasses() {
		result += fmt.Sprintf("%v ", v)
	}
	keys := slices.Sorted(maps.Keys(h.Facts))
	if len(keys) > 0 {
		result += "\nFacts: "
		for _, k := range keys {
			result += fmt.Sprintf("\n  %v: %v", k, h.Facts[k])
		}
	}
	return result
}
