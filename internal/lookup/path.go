package lookup

import (
	"fmt"
	"slices"
	"strings"
)

const (
	LevelDelimiter = "\n"
	KeyDelimiter   = ","
	EqDelimiter    = "="
)

var DefaultPath = Path{
	{"fqdn"},
	{"hostgroup"},
	{"os"},
	{"domain"},
}

// Level is one priority level of a path: the attributes that must all match.
type Level []string

func (l Level) String() string {
	return strings.Join(l, KeyDelimiter)
}

// Equal compares attribute sets, ignoring order.
func (l Level) Equal(attrs []string) bool {
	if len(l) != len(attrs) {
		return false
	}
	a := slices.Clone([]string(l))
	b := slices.Clone(attrs)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

func (l Level) Has(attr string) bool {
	return slices.Contains(l, attr)
}

// Path is an ordered list of levels; index 0 has the highest precedence.
type Path []Level

func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", LevelDelimiter))
	if s == "" {
		return nil, nil
	}
	var p Path
	for _, line := range strings.Split(s, LevelDelimiter) {
		var level Level
		for _, attr := range strings.Split(line, KeyDelimiter) {
			attr = strings.TrimSpace(attr)
			if attr == "" {
				return nil, fmt.Errorf("%w: empty attribute in level %q", ErrInvalidPath, line)
			}
			level = append(level, attr)
		}
		p = append(p, level)
	}
	return p, p.Validate()
}

func (p Path) Validate() error {
	for i, level := range p {
		if len(level) == 0 {
			return fmt.Errorf("%w: level %v is empty", ErrInvalidPath, i)
		}
		for _, attr := range level {
			if attr == "" {
				return fmt.Errorf("%w: level %v has an empty attribute", ErrInvalidPath, i)
			}
		}
		for j := range i {
			if p[j].Equal(level) {
				return fmt.Errorf("%w: level %q appears twice", ErrInvalidPath, level.String())
			}
		}
	}
	return nil
}

// Index returns the position of the level with exactly the given attributes.
func (p Path) Index(attrs []string) int {
	return slices.IndexFunc(p, func(l Level) bool {
		return l.Equal(attrs)
	})
}

func (p Path) String() string {
	levels := make([]string, len(p))
	for i, l := range p {
		levels[i] = l.String()
	}
	return strings.Join(levels, LevelDelimiter)
}
