package lookup

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrInvalidKeyType  = errors.New("invalid key type")
	ErrInvalidPath     = errors.New("invalid lookup path")
	ErrInvalidMatch    = errors.New("invalid match expression")
	ErrUnmergeableType = errors.New("merging enabled for non mergeable key")
	ErrAvoidDuplicates = errors.New("avoid_duplicates is only supported by array keys")
	ErrMergeDefault    = errors.New("merge_default requires merge_overrides")
)

type KeyType string

const (
	KeyTypeString  KeyType = "string"
	KeyTypeBoolean KeyType = "boolean"
	KeyTypeInteger KeyType = "integer"
	KeyTypeReal    KeyType = "real"
	KeyTypeArray   KeyType = "array"
	KeyTypeHash    KeyType = "hash"
	KeyTypeYAML    KeyType = "yaml"
	KeyTypeJSON    KeyType = "json"
)

var KeyTypes = []KeyType{
	KeyTypeString,
	KeyTypeBoolean,
	KeyTypeInteger,
	KeyTypeReal,
	KeyTypeArray,
	KeyTypeHash,
	KeyTypeYAML,
	KeyTypeJSON,
}

func ParseKeyType(s string) (KeyType, error) {
	if s == "" {
		return KeyTypeString, nil
	}
	t := KeyType(s)
	if !slices.Contains(KeyTypes, t) {
		return "", fmt.Errorf("%w: %v", ErrInvalidKeyType, s)
	}
	return t, nil
}

func (t KeyType) Mergeable() bool {
	return t == KeyTypeArray || t == KeyTypeHash
}

func (t KeyType) String() string {
	return string(t)
}

type Validator struct {
	Type string `toml:"type" yaml:"type" json:"type"`
	Rule string `toml:"rule" yaml:"rule" json:"rule"`
}

func (v *Validator) Empty() bool {
	return v == nil || v.Type == ""
}

// Key is a configurable value: a class parameter when Class is set, a
// global variable otherwise.
type Key struct {
	ID               int
	Name             string
	Class            string
	Type             KeyType
	Path             Path
	Override         bool
	MergeOverrides   bool
	MergeDefault     bool
	AvoidDuplicates  bool
	Default          any
	UseSystemDefault bool
	Validator        *Validator
	Values           []*Candidate
}

func (k *Key) String() string {
	return k.Name
}

func (k *Key) IsClassParameter() bool {
	return k.Class != ""
}

// Merges reports whether candidates are combined rather than picked.
func (k *Key) Merges() bool {
	return k.MergeOverrides && k.Type.Mergeable()
}

func (k *Key) Validate() error {
	if k.Name == "" {
		return errors.New("lookup key without name")
	}
	if _, err := ParseKeyType(string(k.Type)); err != nil {
		return fmt.Errorf("key %v: %w", k.Name, err)
	}
	if err := k.Path.Validate(); err != nil {
		return fmt.Errorf("key %v: %w", k.Name, err)
	}
	if k.MergeOverrides && !k.Type.Mergeable() {
		return fmt.Errorf("%w %v", ErrUnmergeableType, k.Name)
	}
	if k.AvoidDuplicates && k.Type != KeyTypeArray {
		return fmt.Errorf("key %v: %w", k.Name, ErrAvoidDuplicates)
	}
	if k.MergeDefault && !k.MergeOverrides {
		return fmt.Errorf("key %v: %w", k.Name, ErrMergeDefault)
	}
	for _, v := range k.Values {
		if _, err := v.Clauses(); err != nil {
			return fmt.Errorf("key %v: %w", k.Name, err)
		}
	}
	return nil
}
