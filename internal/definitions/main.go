package definitions

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"primamateria.systems/enc/internal/facts"
	"primamateria.systems/enc/internal/lookup"
	"primamateria.systems/enc/internal/validators"
)

var (
	ErrHostNotFound      = errors.New("host not found")
	ErrHostgroupNotFound = errors.New("hostgroup not found")
	ErrHostgroupLoop     = errors.New("hostgroup ancestry loop")
)

type DefinitionsFilter struct {
	Hostname string
}

type Store interface {
	Load(context.Context, DefinitionsFilter) (*Catalog, error)
}

type StoreConfig interface {
	SourceType() string
	Validate() error
	String() string
}

// CandidateDefinition is the stored form of an override.
type CandidateDefinition struct {
	Match            string `toml:"match" yaml:"match" json:"match"`
	Value            any    `toml:"value" yaml:"value" json:"value"`
	UseSystemDefault bool   `toml:"use_system_default" yaml:"use_system_default" json:"use_system_default"`
}

// KeyDefinition is the stored form of a class parameter or global variable.
// Path is either a newline separated string or a list of levels.
type KeyDefinition struct {
	Key              string                `toml:"key" yaml:"key" json:"key"`
	Type             string                `toml:"type" yaml:"type" json:"type"`
	Path             any                   `toml:"path" yaml:"path" json:"path"`
	Override         bool                  `toml:"override" yaml:"override" json:"override"`
	MergeOverrides   bool                  `toml:"merge_overrides" yaml:"merge_overrides" json:"merge_overrides"`
	MergeDefault     bool                  `toml:"merge_default" yaml:"merge_default" json:"merge_default"`
	AvoidDuplicates  bool                  `toml:"avoid_duplicates" yaml:"avoid_duplicates" json:"avoid_duplicates"`
	Default          any                   `toml:"default" yaml:"default" json:"default"`
	UseSystemDefault bool                  `toml:"use_system_default" yaml:"use_system_default" json:"use_system_default"`
	Validator        *lookup.Validator     `toml:"validator" yaml:"validator" json:"validator"`
	Values           []CandidateDefinition `toml:"values" yaml:"values" json:"values"`
}

type ClassDefinition struct {
	Name       string          `toml:"name" yaml:"name" json:"name"`
	Parameters []KeyDefinition `toml:"parameters" yaml:"parameters" json:"parameters"`
}

type HostgroupDefinition struct {
	Parent  string   `toml:"parent" yaml:"parent" json:"parent"`
	Classes []string `toml:"classes" yaml:"classes" json:"classes"`
}

type HostDefinition struct {
	Organization    string         `toml:"organization" yaml:"organization" json:"organization"`
	Location        string         `toml:"location" yaml:"location" json:"location"`
	OperatingSystem string         `toml:"os" yaml:"os" json:"os"`
	Domain          string         `toml:"domain" yaml:"domain" json:"domain"`
	Environment     string         `toml:"environment" yaml:"environment" json:"environment"`
	Hostgroup       string         `toml:"hostgroup" yaml:"hostgroup" json:"hostgroup"`
	Classes         []string       `toml:"classes" yaml:"classes" json:"classes"`
	Facts           map[string]any `toml:"facts" yaml:"facts" json:"facts"`
}

// CatalogFile is the on-disk layout shared by every store.
type CatalogFile struct {
	Classes    []ClassDefinition              `toml:"classes" yaml:"classes" json:"classes"`
	Variables  []KeyDefinition                `toml:"variables" yaml:"variables" json:"variables"`
	Hostgroups map[string]HostgroupDefinition `toml:"hostgroups" yaml:"hostgroups" json:"hostgroups"`
	Hosts      map[string]HostDefinition      `toml:"hosts" yaml:"hosts" json:"hosts"`
}

// Catalog is the loaded, validated set of definitions.
type Catalog struct {
	classes    map[string][]*lookup.Key
	classOrder []string
	variables  []*lookup.Key
	hostgroups map[string]HostgroupDefinition
	hosts      map[string]HostDefinition
	nextID     int
}

func NewCatalog() *Catalog {
	return &Catalog{
		classes:    make(map[string][]*lookup.Key),
		hostgroups: make(map[string]HostgroupDefinition),
		hosts:      make(map[string]HostDefinition),
		nextID:     1,
	}
}

// Add merges a file into the catalog. A key defined again replaces the
// earlier metadata and appends its overrides after the existing ones.
func (c *Catalog) Add(f CatalogFile) error {
	for _, class := range f.Classes {
		if class.Name == "" {
			return errors.New("class without name")
		}
		if _, ok := c.classes[class.Name]; !ok {
			c.classes[class.Name] = nil
			c.classOrder = append(c.classOrder, class.Name)
		}
		for _, def := range class.Parameters {
			key, err := c.buildKey(def, class.Name)
			if err != nil {
				return err
			}
			c.classes[class.Name] = upsertKey(c.classes[class.Name], key)
		}
	}
	for _, def := range f.Variables {
		key, err := c.buildKey(def, "")
		if err != nil {
			return err
		}
		c.variables = upsertKey(c.variables, key)
	}
	for name, hg := range f.Hostgroups {
		c.hostgroups[name] = hg
	}
	for name, h := range f.Hosts {
		c.hosts[name] = h
	}
	return nil
}

func upsertKey(keys []*lookup.Key, key *lookup.Key) []*lookup.Key {
	i := slices.IndexFunc(keys, func(k *lookup.Key) bool { return k.Name == key.Name })
	if i < 0 {
		return append(keys, key)
	}
	key.ID = keys[i].ID
	key.Values = append(keys[i].Values, key.Values...)
	keys[i] = key
	return keys
}

func (c *Catalog) buildKey(def KeyDefinition, class string) (*lookup.Key, error) {
	keyType, err := lookup.ParseKeyType(def.Type)
	if err != nil {
		return nil, fmt.Errorf("key %v: %w", def.Key, err)
	}
	path, err := parsePath(def.Path)
	if err != nil {
		return nil, fmt.Errorf("key %v: %w", def.Key, err)
	}
	if len(path) == 0 {
		path = lookup.DefaultPath
	}
	key := &lookup.Key{
		ID:               c.nextID,
		Name:             def.Key,
		Class:            class,
		Type:             keyType,
		Path:             path,
		Override:         def.Override || class == "",
		MergeOverrides:   def.MergeOverrides,
		MergeDefault:     def.MergeDefault,
		AvoidDuplicates:  def.AvoidDuplicates,
		Default:          def.Default,
		UseSystemDefault: def.UseSystemDefault,
		Validator:        def.Validator,
	}
	c.nextID++
	for _, v := range def.Values {
		key.Values = append(key.Values, &lookup.Candidate{
			ID:               c.nextID,
			Match:            v.Match,
			Value:            v.Value,
			UseSystemDefault: v.UseSystemDefault,
		})
		c.nextID++
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if _, err := validators.New(key.Validator); err != nil {
		return nil, fmt.Errorf("key %v: %w", key.Name, err)
	}
	return key, nil
}

func parsePath(raw any) (lookup.Path, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return lookup.ParsePath(v)
	case []any:
		levels := make([]string, len(v))
		for i, l := range v {
			s, ok := l.(string)
			if !ok {
				return nil, fmt.Errorf("%w: level %v is not a string", lookup.ErrInvalidPath, l)
			}
			levels[i] = s
		}
		return lookup.ParsePath(strings.Join(levels, lookup.LevelDelimiter))
	case []string:
		return lookup.ParsePath(strings.Join(v, lookup.LevelDelimiter))
	}
	return nil, fmt.Errorf("%w: unsupported path %v", lookup.ErrInvalidPath, raw)
}

func (c *Catalog) ClassParameters(class string) []*lookup.Key {
	return c.classes[class]
}

func (c *Catalog) GlobalVariables() []*lookup.Key {
	return c.variables
}

func (c *Catalog) Classes() []string {
	return slices.Clone(c.classOrder)
}

func (c *Catalog) Hosts() []string {
	names := make([]string, 0, len(c.hosts))
	for name := range c.hosts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// HostgroupChain returns name followed by its ancestors, nearest first.
func (c *Catalog) HostgroupChain(name string) ([]string, error) {
	var chain []string
	for name != "" {
		if slices.Contains(chain, name) {
			return nil, fmt.Errorf("%w: %v", ErrHostgroupLoop, strings.Join(append(chain, name), " -> "))
		}
		hg, ok := c.hostgroups[name]
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrHostgroupNotFound, name)
		}
		chain = append(chain, name)
		name = hg.Parent
	}
	return chain, nil
}

// Host builds the attribute snapshot of a defined host. Classes of every
// hostgroup in its chain are inherited.
func (c *Catalog) Host(name string) (*facts.HostFacts, error) {
	def, ok := c.hosts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrHostNotFound, name)
	}
	h := facts.NewHostFacts(name)
	h.Organization = def.Organization
	h.Location = def.Location
	h.OperatingSystem = def.OperatingSystem
	h.Domain = def.Domain
	h.Environment = def.Environment
	chain, err := c.HostgroupChain(def.Hostgroup)
	if err != nil {
		return nil, fmt.Errorf("host %v: %w", name, err)
	}
	h.Hostgroups = chain
	h.Classes = append(h.Classes, def.Classes...)
	for _, hg := range chain {
		h.Classes = append(h.Classes, c.hostgroups[hg].Classes...)
	}
	for k, v := range def.Facts {
		h.Facts[k] = v
	}
	return h, nil
}
