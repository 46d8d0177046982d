package templates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
	"primamateria.systems/enc/internal/facts"
)

var ErrTemplate = errors.New("error rendering template")

type MacroMap func(map[string]any) template.FuncMap

// Renderer expands templated values in the context of one host.
type Renderer struct {
	host   *facts.HostFacts
	vars   map[string]any
	macros MacroMap
}

func NewRenderer(host *facts.HostFacts) *Renderer {
	return &Renderer{
		host:   host,
		vars:   host.Map(),
		macros: loadDefaultMacros(host),
	}
}

// IsTemplate reports whether s contains template actions.
func IsTemplate(s string) bool {
	return strings.Contains(s, "{{")
}

// Render expands every templated string in value. Maps and slices are
// walked and a fresh copy is returned; other values are returned as is.
func (r *Renderer) Render(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return r.RenderString(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			rendered, err := r.Render(e)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			rendered, err := r.Render(e)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	}
	return value, nil
}

func (r *Renderer) RenderString(body string) (string, error) {
	if !IsTemplate(body) {
		return body, nil
	}
	tmpl, err := template.New("value").Option("missingkey=error").Funcs(r.macros(r.vars)).Parse(body)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrTemplate, body, err)
	}
	result := bytes.NewBuffer([]byte{})
	if err := tmpl.Execute(result, r.vars); err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrTemplate, body, err)
	}
	return result.String(), nil
}

func loadDefaultMacros(host *facts.HostFacts) MacroMap {
	return func(vars map[string]any) template.FuncMap {
		return template.FuncMap{
			"fact": func(arg string) (any, error) {
				return host.Lookup(arg)
			},
			"hostgroup": func(index int) (string, error) {
				chain := host.HostgroupChain()
				if index < 0 || index >= len(chain) {
					return "", fmt.Errorf("hostgroup %v out of range", index)
				}
				return chain[index], nil
			},
			"default": func(arg string, def any) any {
				val, ok := vars[arg]
				if ok && val != "" && val != nil {
					return val
				}
				return def
			},
			"exists": func(arg string) bool {
				_, err := host.Lookup(arg)
				return err == nil
			},
			"list": func(args ...any) []any {
				return args
			},
			"dict": func(args ...any) (map[string]any, error) {
				if len(args)%2 != 0 {
					return nil, errors.New("dict needs an even number of arguments")
				}
				result := make(map[string]any, len(args)/2)
				for i := 0; i < len(args); i += 2 {
					result[fmt.Sprint(args[i])] = args[i+1]
				}
				return result, nil
			},
			"toJson": func(arg any) (string, error) {
				out, err := json.Marshal(arg)
				return string(out), err
			},
			"toYaml": func(arg any) (string, error) {
				out, err := yaml.Marshal(arg)
				return strings.TrimSuffix(string(out), "\n"), err
			},
			"join": func(sep string, args any) (string, error) {
				switch v := args.(type) {
				case []string:
					return strings.Join(v, sep), nil
				case []any:
					parts := make([]string, len(v))
					for i, a := range v {
						parts[i] = fmt.Sprint(a)
					}
					return strings.Join(parts, sep), nil
				}
				return "", fmt.Errorf("cannot join %T", args)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
		}
	}
}
