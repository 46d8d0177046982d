package classification

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff compares two documents line by line in their YAML form.
func Diff(before, after *Document) ([]diffmatchpatch.Diff, error) {
	beforeYAML, err := before.ToYAML()
	if err != nil {
		return nil, fmt.Errorf("error encoding document: %w", err)
	}
	afterYAML, err := after.ToYAML()
	if err != nil {
		return nil, fmt.Errorf("error encoding document: %w", err)
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(beforeYAML), string(afterYAML))
	diffs := dmp.DiffMain(a, b, false)
	return dmp.DiffCharsToLines(diffs, lines), nil
}

func Changed(diffs []diffmatchpatch.Diff) bool {
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffEqual {
			return true
		}
	}
	return false
}

func PrettyDiff(diffs []diffmatchpatch.Diff) string {
	return diffmatchpatch.New().DiffPrettyText(diffs)
}
