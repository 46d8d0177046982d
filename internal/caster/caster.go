package caster

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
	"primamateria.systems/enc/internal/lookup"
)

var ErrTypeCast = errors.New("type cast failed")

var (
	trueRegexp  = regexp.MustCompile(`(?i)^(true|t|yes|y|on|1)$`)
	falseRegexp = regexp.MustCompile(`(?i)^(false|f|no|n|off|0)$`)
)

// Cast converts value to keyType. A nil value is returned as is.
func Cast(keyType lookup.KeyType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	value = Normalize(value)
	var (
		result any
		err    error
	)
	switch keyType {
	case lookup.KeyTypeString, "":
		result, err = castString(value)
	case lookup.KeyTypeBoolean:
		result, err = castBoolean(value)
	case lookup.KeyTypeInteger:
		result, err = castInteger(value)
	case lookup.KeyTypeReal:
		result, err = castReal(value)
	case lookup.KeyTypeArray:
		result, err = castArray(value)
	case lookup.KeyTypeHash:
		result, err = castHash(value)
	case lookup.KeyTypeYAML:
		result, err = castYAML(value)
	case lookup.KeyTypeJSON:
		result, err = castJSON(value)
	default:
		err = fmt.Errorf("%w: %v", lookup.ErrInvalidKeyType, keyType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTypeCast, err)
	}
	return result, nil
}

// SoftCast is Cast with the failure downgraded to a warning: on error the
// original value is returned unchanged.
func SoftCast(keyType lookup.KeyType, value any) any {
	result, err := Cast(keyType, value)
	if err != nil {
		log.Warn(fmt.Sprintf("Unable to type cast %v to %v", value, keyType), "err", err)
		return value
	}
	return result
}

func castString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool, int, int64, float64:
		return fmt.Sprint(v), nil
	}
	return nil, fmt.Errorf("%v is not a string", value)
}

func castBoolean(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case int64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case string:
		s := strings.TrimSpace(v)
		if trueRegexp.MatchString(s) {
			return true, nil
		}
		if falseRegexp.MatchString(s) {
			return false, nil
		}
	}
	return nil, fmt.Errorf("%v is not a boolean", value)
}

func castInteger(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v < -math.MinInt64 {
			return int(v), nil
		}
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
		if err != nil {
			return nil, err
		}
		return int(i), nil
	}
	return nil, fmt.Errorf("%v is not an integer", value)
}

func castReal(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return nil, fmt.Errorf("%v is not a real", value)
}

func castArray(value any) (any, error) {
	if s, ok := value.(string); ok {
		parsed, err := parseStructured(s)
		if err != nil {
			return nil, err
		}
		value = parsed
	}
	if v, ok := value.([]any); ok {
		return v, nil
	}
	return nil, fmt.Errorf("%v is not an array", value)
}

func castHash(value any) (any, error) {
	if s, ok := value.(string); ok {
		parsed, err := parseStructured(s)
		if err != nil {
			return nil, err
		}
		value = parsed
	}
	if v, ok := value.(map[string]any); ok {
		return v, nil
	}
	return nil, fmt.Errorf("%v is not a hash", value)
}

func castYAML(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	var result any
	if err := yaml.Unmarshal([]byte(s), &result); err != nil {
		return nil, err
	}
	return Normalize(result), nil
}

func castJSON(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	var result any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(s)), &result); err != nil {
		return nil, err
	}
	return Normalize(result), nil
}

// parseStructured reads JSON or YAML; YAML is a superset, so one parser
// covers both literal forms.
func parseStructured(s string) (any, error) {
	var result any
	if err := yaml.Unmarshal([]byte(s), &result); err != nil {
		return nil, err
	}
	return Normalize(result), nil
}

// Normalize converts decoded data into map[string]any / []any trees so the
// merger only has to handle one shape.
func Normalize(value any) any {
	switch v := value.(type) {
	case nil, string, bool, int, float64:
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Normalize(e)
		}
		return out
	case int64:
		return int(v)
	case int32:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		return float64(v)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = Normalize(iter.Value().Interface())
		}
		return out
	}
	return value
}
