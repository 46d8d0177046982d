package resolver

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/charmbracelet/log"
	"primamateria.systems/enc/internal/lookup"
)

const DefaultElement = "Default value"

// Resolved is the outcome of combining a key's eligible candidates with its
// default for one host.
type Resolved struct {
	Value        any
	Elements     []string
	ElementNames []string
	// FromDefault is set when no candidate contributed.
	FromDefault bool
	// Omit is set when every contributing source defers to the agent's default.
	Omit bool
	// Processed is set when Value was already rendered and cast during merging.
	Processed bool
}

func fallback(key *lookup.Key) *Resolved {
	return &Resolved{
		Value:       key.Default,
		FromDefault: true,
		Omit:        key.UseSystemDefault,
	}
}

// Merge combines the precedence-ordered selection into a single result.
// contribution renders and casts one stored value; it is only called for
// sources that take part in a merge.
func Merge(key *lookup.Key, selected []Selected, contribution func(any) (any, error)) (*Resolved, error) {
	contributing := Contributing(selected)
	if len(contributing) == 0 {
		return fallback(key), nil
	}
	if !key.Merges() {
		winner := contributing[0]
		return &Resolved{
			Value:        winner.Candidate.Value,
			Elements:     []string{winner.Element},
			ElementNames: []string{winner.ElementName},
		}, nil
	}
	switch key.Type {
	case lookup.KeyTypeArray:
		return mergeArray(key, contributing, contribution)
	case lookup.KeyTypeHash:
		return mergeHash(key, contributing, contribution)
	}
	return nil, fmt.Errorf("%w %v", lookup.ErrUnmergeableType, key.Name)
}

func useDefault(key *lookup.Key) bool {
	return key.MergeDefault && !key.UseSystemDefault
}

func mergeArray(key *lookup.Key, contributing []Selected, contribution func(any) (any, error)) (*Resolved, error) {
	result := &Resolved{Value: []any{}, Processed: true}
	var values []any
	add := func(v any) {
		if list, ok := v.([]any); ok {
			values = append(values, list...)
			return
		}
		if v != nil {
			values = append(values, v)
		}
	}
	for _, s := range contributing {
		v, err := contribution(s.Candidate.Value)
		if err != nil {
			return nil, err
		}
		add(v)
		result.Elements = append(result.Elements, s.Element)
		result.ElementNames = append(result.ElementNames, s.ElementName)
	}
	if useDefault(key) {
		v, err := contribution(key.Default)
		if err != nil {
			return nil, err
		}
		add(v)
		result.Elements = append(result.Elements, DefaultElement)
		result.ElementNames = append(result.ElementNames, DefaultElement)
	}
	if key.AvoidDuplicates {
		values = uniq(values)
	}
	if values != nil {
		result.Value = values
	}
	return result, nil
}

func uniq(values []any) []any {
	result := make([]any, 0, len(values))
	for _, v := range values {
		if !slices.ContainsFunc(result, func(seen any) bool { return reflect.DeepEqual(seen, v) }) {
			result = append(result, v)
		}
	}
	return result
}

func mergeHash(key *lookup.Key, contributing []Selected, contribution func(any) (any, error)) (*Resolved, error) {
	result := &Resolved{Processed: true}
	merged := map[string]any{}
	apply := func(v any, source string) {
		m, ok := v.(map[string]any)
		if !ok {
			if v != nil {
				log.Warn("skipping non hash value in merge", "key", key.Name, "source", source, "value", v)
			}
			return
		}
		merged = DeepMerge(merged, m)
	}
	if useDefault(key) {
		v, err := contribution(key.Default)
		if err != nil {
			return nil, err
		}
		apply(v, DefaultElement)
		result.Elements = append(result.Elements, DefaultElement)
		result.ElementNames = append(result.ElementNames, DefaultElement)
	}
	for _, s := range slices.Backward(contributing) {
		v, err := contribution(s.Candidate.Value)
		if err != nil {
			return nil, err
		}
		apply(v, s.Element)
		result.Elements = append(result.Elements, s.Element)
		result.ElementNames = append(result.ElementNames, s.ElementName)
	}
	result.Value = merged
	return result, nil
}

// DeepMerge returns a new map holding base overlaid with overlay. Nested
// maps are merged recursively; any other value in overlay replaces base's.
// Neither argument is modified.
func DeepMerge(base, overlay map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overlay {
		if nested, ok := v.(map[string]any); ok {
			if existing, ok := result[k].(map[string]any); ok {
				result[k] = DeepMerge(existing, nested)
				continue
			}
			result[k] = DeepMerge(map[string]any{}, nested)
			continue
		}
		result[k] = v
	}
	return result
}
