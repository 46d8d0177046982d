package classification

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"primamateria.systems/enc/internal/facts"
	"primamateria.systems/enc/internal/lookup"
	"primamateria.systems/enc/internal/resolver"
)

// Entry records the value a key resolved to and which host attributes
// produced it.
type Entry struct {
	Key          string   `json:"key" yaml:"key" toml:"key"`
	Value        any      `json:"value" yaml:"value" toml:"value"`
	Elements     []string `json:"element" yaml:"element" toml:"element"`
	ElementNames []string `json:"element_name" yaml:"element_name" toml:"element_name"`
}

// ValuesHash maps key ids to the entries of keys with a matching override.
type ValuesHash map[int]Entry

type resolvedKey struct {
	key   *lookup.Key
	value any
}

// Classification resolves every key of a scope for one host.
type Classification struct {
	host     *facts.HostFacts
	scope    Scope
	resolver *resolver.Resolver
	logger   *log.Logger
}

func newClassification(host *facts.HostFacts, scope Scope) *Classification {
	return &Classification{
		host:     host,
		scope:    scope,
		resolver: resolver.New(host),
		logger:   log.With("request", uuid.NewString(), "host", host.Name),
	}
}

// ValuesHash returns the entries of keys where at least one override
// contributed. Keys left at their default are not included.
func (c *Classification) ValuesHash() (ValuesHash, error) {
	values := make(ValuesHash)
	for _, key := range c.scope.Keys(c.host) {
		res, err := c.resolver.Resolve(key)
		if err != nil {
			return nil, fmt.Errorf("error resolving %v: %w", key.Name, err)
		}
		if res.FromDefault {
			continue
		}
		values[key.ID] = Entry{
			Key:          key.Name,
			Value:        res.Value,
			Elements:     res.Elements,
			ElementNames: res.ElementNames,
		}
	}
	return values, nil
}

// values resolves every key to its final typed value, dropping omitted keys.
// The first failing key aborts the whole classification.
func (c *Classification) values() ([]resolvedKey, error) {
	var result []resolvedKey
	for _, key := range c.scope.Keys(c.host) {
		res, err := c.resolver.Resolve(key)
		if err != nil {
			return nil, fmt.Errorf("error resolving %v: %w", key.Name, err)
		}
		value, ok, err := c.resolver.Value(key, res)
		if err != nil {
			return nil, fmt.Errorf("error resolving %v: %w", key.Name, err)
		}
		if !ok {
			c.logger.Debug("omitting key using system default", "key", key.Name)
			continue
		}
		c.logger.Debug("resolved key", "key", key.Name, "elements", res.Elements, "default", res.FromDefault)
		result = append(result, resolvedKey{key: key, value: value})
	}
	return result, nil
}

// ClassParam classifies the parameters of the classes assigned to a host.
type ClassParam struct {
	*Classification
}

func NewClassParam(host *facts.HostFacts, catalog Catalog) *ClassParam {
	return &ClassParam{newClassification(host, ClassScope{catalog: catalog})}
}

func (p *ClassParam) Classes() []string {
	return p.host.AssignedClasses()
}

// Enc maps every assigned class to its surfaced parameters. Classes without
// any surfaced parameter map to nil.
func (p *ClassParam) Enc() (map[string]map[string]any, error) {
	values, err := p.values()
	if err != nil {
		return nil, err
	}
	klasses := make(map[string]map[string]any)
	for _, class := range p.Classes() {
		klasses[class] = nil
	}
	for _, v := range values {
		if klasses[v.key.Class] == nil {
			klasses[v.key.Class] = make(map[string]any)
		}
		klasses[v.key.Class][v.key.Name] = v.value
	}
	return klasses, nil
}

// GlobalParam classifies free-standing variables.
type GlobalParam struct {
	*Classification
}

func NewGlobalParam(host *facts.HostFacts, catalog Catalog) *GlobalParam {
	return &GlobalParam{newClassification(host, GlobalScope{catalog: catalog})}
}

func (g *GlobalParam) Enc() (map[string]any, error) {
	values, err := g.values()
	if err != nil {
		return nil, err
	}
	result := make(map[string]any, len(values))
	for _, v := range values {
		result[v.key.Name] = v.value
	}
	return result, nil
}
