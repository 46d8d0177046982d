package classification

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/emirpasic/gods/maps/treemap"
	"gopkg.in/yaml.v3"
	"primamateria.systems/enc/internal/facts"
)

var ErrTOMLNil = errors.New("toml cannot represent a nil value")

// Document is the classification handed to the configuration agent.
type Document struct {
	Classes     map[string]map[string]any `json:"classes" yaml:"classes" toml:"classes"`
	Parameters  map[string]any            `json:"parameters" yaml:"parameters" toml:"parameters"`
	Environment string                    `json:"environment,omitempty" yaml:"environment,omitempty" toml:"environment,omitempty"`
}

// Classify builds the full document for host: class parameters and global
// variables. Any key failing validation or rendering aborts the document.
func Classify(host *facts.HostFacts, catalog Catalog) (*Document, error) {
	classes, err := NewClassParam(host, catalog).Enc()
	if err != nil {
		return nil, fmt.Errorf("error classifying %v: %w", host.Name, err)
	}
	params, err := NewGlobalParam(host, catalog).Enc()
	if err != nil {
		return nil, fmt.Errorf("error classifying %v: %w", host.Name, err)
	}
	return &Document{
		Classes:     classes,
		Parameters:  params,
		Environment: host.Environment,
	}, nil
}

func (d *Document) ToYAML() ([]byte, error) {
	return yaml.Marshal(d)
}

func (d *Document) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// ToTOML encodes the document as TOML. Classes without parameters become
// empty tables. TOML has no null, so a nil value anywhere is an error
// instead of being dropped.
func (d *Document) ToTOML() ([]byte, error) {
	classes := make(map[string]map[string]any, len(d.Classes))
	for name, params := range d.Classes {
		if params == nil {
			params = map[string]any{}
		}
		if err := checkTOMLValue("classes."+name, params); err != nil {
			return nil, err
		}
		classes[name] = params
	}
	if err := checkTOMLValue("parameters", d.Parameters); err != nil {
		return nil, err
	}
	return encodeTOML(&Document{
		Classes:     classes,
		Parameters:  d.Parameters,
		Environment: d.Environment,
	})
}

func encodeTOML(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func checkTOMLValue(path string, value any) error {
	switch v := value.(type) {
	case nil:
		return fmt.Errorf("%v: %w", path, ErrTOMLNil)
	case map[string]any:
		for k, e := range v {
			if err := checkTOMLValue(path+"."+k, e); err != nil {
				return err
			}
		}
	case []any:
		for i, e := range v {
			if err := checkTOMLValue(path+"."+strconv.Itoa(i), e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Document) Encode(format string) ([]byte, error) {
	switch format {
	case "", "yaml":
		return d.ToYAML()
	case "json":
		return d.ToJSON()
	case "toml":
		return d.ToTOML()
	case "text":
		return []byte(d.Pretty()), nil
	}
	return nil, fmt.Errorf("unsupported output format %v", format)
}

func (d *Document) Pretty() string {
	var sb strings.Builder
	if d.Environment != "" {
		fmt.Fprintf(&sb, "Environment: %v\n", d.Environment)
	}
	sb.WriteString("Classes:\n")
	classes := treemap.NewWithStringComparator()
	for name, params := range d.Classes {
		classes.Put(name, params)
	}
	classes.Each(func(name, rawParams interface{}) {
		fmt.Fprintf(&sb, "  %v\n", name)
		params := rawParams.(map[string]any)
		sorted := treemap.NewWithStringComparator()
		for k, v := range params {
			sorted.Put(k, v)
		}
		sorted.Each(func(k, v interface{}) {
			fmt.Fprintf(&sb, "    %v: %v\n", k, v)
		})
	})
	sb.WriteString("Parameters:\n")
	params := treemap.NewWithStringComparator()
	for k, v := range d.Parameters {
		params.Put(k, v)
	}
	params.Each(func(k, v interface{}) {
		fmt.Fprintf(&sb, "  %v: %v\n", k, v)
	})
	return sb.String()
}

// Encode renders the values hash in format. TOML tables are keyed by the
// key id as a string.
func (v ValuesHash) Encode(format string) ([]byte, error) {
	switch format {
	case "", "yaml":
		return yaml.Marshal(v)
	case "json":
		return json.MarshalIndent(v, "", "  ")
	case "toml":
		entries := make(map[string]Entry, len(v))
		for id, e := range v {
			if err := checkTOMLValue(e.Key, e.Value); err != nil {
				return nil, err
			}
			entries[strconv.Itoa(id)] = e
		}
		return encodeTOML(entries)
	case "text":
		return []byte(v.Pretty()), nil
	}
	return nil, fmt.Errorf("unsupported output format %v", format)
}

func (v ValuesHash) Pretty() string {
	var sb strings.Builder
	sorted := treemap.NewWithIntComparator()
	for id, e := range v {
		sorted.Put(id, e)
	}
	sorted.Each(func(id, raw interface{}) {
		e := raw.(Entry)
		fmt.Fprintf(&sb, "%v %v: %v\n", id, e.Key, e.Value)
		for i, element := range e.Elements {
			fmt.Fprintf(&sb, "  %v (%v)\n", element, e.ElementNames[i])
		}
	})
	return sb.String()
}
