package classification

import (
	"primamateria.systems/enc/internal/facts"
	"primamateria.systems/enc/internal/lookup"
)

// Catalog is the read-only definition store a classification draws keys from.
type Catalog interface {
	ClassParameters(class string) []*lookup.Key
	GlobalVariables() []*lookup.Key
}

// Scope enumerates the keys that apply to a host.
type Scope interface {
	Keys(host *facts.HostFacts) []*lookup.Key
}

// ClassScope applies the overridable parameters of the host's classes.
type ClassScope struct {
	catalog Catalog
}

func (s ClassScope) Keys(host *facts.HostFacts) []*lookup.Key {
	var keys []*lookup.Key
	for _, class := range host.AssignedClasses() {
		for _, k := range s.catalog.ClassParameters(class) {
			if k.Override {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// GlobalScope applies every free-standing variable.
type GlobalScope struct {
	catalog Catalog
}

func (s GlobalScope) Keys(_ *facts.HostFacts) []*lookup.Key {
	return s.catalog.GlobalVariables()
}
