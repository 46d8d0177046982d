package validators

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"primamateria.systems/enc/internal/lookup"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrUnknownValidator = errors.New("unknown validator type")
)

const (
	TypeList   = "list"
	TypeRegexp = "regexp"
	TypeCEL    = "cel"
)

type ValidationError struct {
	Key   string
	Value any
	Rule  string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid value %v for %v (rule %q): %v", e.Value, e.Key, e.Rule, e.Err)
	}
	return fmt.Sprintf("invalid value %v for %v (rule %q)", e.Value, e.Key, e.Rule)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type Validator interface {
	Validate(value any) error
}

// compiled holds built validators keyed by their description.
var compiled sync.Map

// New builds the validator described by v. An empty description yields nil.
// Validators are built once per description and shared afterwards.
func New(v *lookup.Validator) (Validator, error) {
	if v.Empty() {
		return nil, nil
	}
	if cached, ok := compiled.Load(*v); ok {
		return cached.(Validator), nil
	}
	var (
		result Validator
		err    error
	)
	switch v.Type {
	case TypeList:
		result = NewListValidator(v.Rule)
	case TypeRegexp:
		result, err = NewRegexpValidator(v.Rule)
	case TypeCEL:
		result, err = NewCELValidator(v.Rule)
	default:
		err = fmt.Errorf("%w: %v", ErrUnknownValidator, v.Type)
	}
	if err != nil {
		return nil, err
	}
	actual, _ := compiled.LoadOrStore(*v, result)
	return actual.(Validator), nil
}

// Validate checks value for key, wrapping failures in a ValidationError.
// nil values are never validated.
func Validate(key *lookup.Key, value any) error {
	if key.Validator.Empty() || value == nil {
		return nil
	}
	v, err := New(key.Validator)
	if err != nil {
		return err
	}
	if err := v.Validate(value); err != nil {
		return &ValidationError{Key: key.Name, Value: value, Rule: key.Validator.Rule, Err: err}
	}
	return nil
}

type ListValidator struct {
	allowed []string
}

func NewListValidator(rule string) *ListValidator {
	var allowed []string
	for _, v := range strings.Split(rule, lookup.KeyDelimiter) {
		allowed = append(allowed, strings.TrimSpace(v))
	}
	return &ListValidator{allowed: allowed}
}

func (l *ListValidator) Validate(value any) error {
	s := fmt.Sprint(value)
	for _, a := range l.allowed {
		if a == s {
			return nil
		}
	}
	return fmt.Errorf("%v is not one of %v", s, strings.Join(l.allowed, ", "))
}

type RegexpValidator struct {
	re *regexp.Regexp
}

func NewRegexpValidator(rule string) (*RegexpValidator, error) {
	re, err := regexp.Compile(strings.Trim(rule, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid regexp validator %q: %w", rule, err)
	}
	return &RegexpValidator{re: re}, nil
}

func (r *RegexpValidator) Validate(value any) error {
	if !r.re.MatchString(fmt.Sprint(value)) {
		return fmt.Errorf("does not match %v", r.re)
	}
	return nil
}

// CELValidator evaluates a boolean CEL expression with the candidate bound
// to the variable "value".
type CELValidator struct {
	program cel.Program
}

func NewCELValidator(rule string) (*CELValidator, error) {
	env, err := cel.NewEnv(cel.Variable("value", cel.DynType))
	if err != nil {
		return nil, err
	}
	ast, iss := env.Compile(rule)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("invalid cel validator %q: %w", rule, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("cel validator %q must return a bool, got %v", rule, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &CELValidator{program: prg}, nil
}

func (c *CELValidator) Validate(value any) error {
	out, _, err := c.program.Eval(map[string]any{"value": value})
	if err != nil {
		return err
	}
	ok, isBool := out.Value().(bool)
	if !isBool || !ok {
		return errors.New("rejected by expression")
	}
	return nil
}
