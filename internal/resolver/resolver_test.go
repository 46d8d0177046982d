package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"primamateria.systems/enc/internal/facts"
	"primamateria.systems/enc/internal/lookup"
	"primamateria.systems/enc/internal/validators"
)

func testHost() *facts.HostFacts {
	h := facts.NewHostFacts("web01.example.com")
	h.Organization = "Organization 1"
	h.Location = "Location 1"
	h.OperatingSystem = "Redhat 6.1"
	h.Domain = "example.com"
	h.Hostgroups = []string{"base/web", "base"}
	return h
}

func mustPath(t *testing.T, s string) lookup.Path {
	t.Helper()
	p, err := lookup.ParsePath(s)
	require.NoError(t, err)
	return p
}

func candidate(match string, value any) *lookup.Candidate {
	return &lookup.Candidate{Match: match, Value: value}
}

func systemDefault(match string, value any) *lookup.Candidate {
	return &lookup.Candidate{Match: match, Value: value, UseSystemDefault: true}
}

func resolveValue(t *testing.T, key *lookup.Key) (any, bool, error) {
	t.Helper()
	r := New(testHost())
	res, err := r.Resolve(key)
	if err != nil {
		return nil, false, err
	}
	return r.Value(key, res)
}

func Test_Select(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		values []*lookup.Candidate
		want   []string
	}{
		{
			name: "level order beats declaration order",
			path: "organization\nlocation",
			values: []*lookup.Candidate{
				candidate("location=Location 1", "loc"),
				candidate("organization=Organization 1", "org"),
			},
			want: []string{"org", "loc"},
		},
		{
			name: "non matching candidates are skipped",
			path: "organization\nlocation",
			values: []*lookup.Candidate{
				candidate("location=Location 2", "loc"),
				candidate("organization=Organization 1", "org"),
			},
			want: []string{"org"},
		},
		{
			name: "candidates outside the path are ignored",
			path: "organization",
			values: []*lookup.Candidate{
				candidate("location=Location 1", "loc"),
			},
			want: nil,
		},
		{
			name: "nearer hostgroup first",
			path: "hostgroup",
			values: []*lookup.Candidate{
				candidate("hostgroup=base", "parent"),
				candidate("hostgroup=base/web", "child"),
			},
			want: []string{"child", "parent"},
		},
		{
			name: "same level ties keep declaration order",
			path: "os,domain",
			values: []*lookup.Candidate{
				candidate("os=Redhat 6.1,domain=example.com", "first"),
				candidate("domain=example.com,os=Redhat 6.1", "second"),
			},
			want: []string{"first", "second"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := &lookup.Key{Name: "k", Path: mustPath(t, tt.path), Values: tt.values}
			var got []string
			for _, s := range Select(key, testHost()) {
				got = append(got, s.Candidate.Value.(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_SelectElements(t *testing.T) {
	key := &lookup.Key{
		Name: "k",
		Path: mustPath(t, "hostgroup,organization\nlocation"),
		Values: []*lookup.Candidate{
			candidate("hostgroup=base,organization=Organization 1", "parent"),
		},
	}
	selected := Select(key, testHost())
	require.Len(t, selected, 1)
	assert.Equal(t, "hostgroup,organization", selected[0].Element)
	assert.Equal(t, "base,Organization 1", selected[0].ElementName)
	assert.Equal(t, 1, selected[0].Distance)
}

func Test_ScalarResolution(t *testing.T) {
	tests := []struct {
		name     string
		key      *lookup.Key
		want     any
		included bool
	}{
		{
			name: "default without overrides",
			key: &lookup.Key{
				Name: "cluster", Type: lookup.KeyTypeString, Path: lookup.Path{{"organization"}},
				Default: "secret",
			},
			want:     "secret",
			included: true,
		},
		{
			name: "highest level wins",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeString, Path: lookup.Path{{"organization"}, {"hostgroup"}, {"location"}},
				Values: []*lookup.Candidate{
					candidate("hostgroup=base", "parent"),
					candidate("hostgroup=base/web", "child"),
					candidate("organization=Organization 1", "org"),
				},
			},
			want:     "org",
			included: true,
		},
		{
			name: "nearer hostgroup wins",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeString, Path: lookup.Path{{"organization"}, {"hostgroup"}, {"location"}},
				UseSystemDefault: true,
				Values: []*lookup.Candidate{
					candidate("hostgroup=base", "parent"),
					candidate("hostgroup=base/web", "child"),
					systemDefault("location=Location 1", "loc"),
				},
			},
			want:     "child",
			included: true,
		},
		{
			name: "multi key matcher beats single key level",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeString, Path: mustPathNoT("organization\norganization,location\nlocation"),
				Default: "",
				Values: []*lookup.Candidate{
					candidate("location=Location 1", "test_incorrect"),
					candidate("organization=Organization 1,location=Location 1", "test_correct"),
				},
			},
			want:     "test_correct",
			included: true,
		},
		{
			name: "multi key matcher with nearer hostgroup",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeString, Path: mustPathNoT("hostgroup,organization\nlocation"),
				UseSystemDefault: true,
				Values: []*lookup.Candidate{
					candidate("hostgroup=base,organization=Organization 1", "parent"),
					candidate("hostgroup=base/web,organization=Organization 1", "child"),
					candidate("location=Location 1", "loc"),
				},
			},
			want:     "child",
			included: true,
		},
		{
			name: "multi key matcher needs every attribute",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeString, Path: mustPathNoT("organization,location\nlocation"),
				Values: []*lookup.Candidate{
					candidate("organization=Organization 2,location=Location 1", "wrong"),
					candidate("location=Location 1", "loc"),
				},
			},
			want:     "loc",
			included: true,
		},
		{
			name: "flagged default is omitted",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeString, Path: lookup.Path{{"location"}},
				Default: "x", UseSystemDefault: true,
			},
			included: false,
		},
		{
			name: "flagged override and flagged default are omitted",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeString, Path: lookup.Path{{"location"}},
				Default: "x", UseSystemDefault: true,
				Values: []*lookup.Candidate{systemDefault("location=Location 1", "test")},
			},
			included: false,
		},
		{
			name: "flagged override falls back to default",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeString, Path: lookup.Path{{"location"}},
				Default: "x",
				Values: []*lookup.Candidate{systemDefault("location=Location 1", "test")},
			},
			want:     "x",
			included: true,
		},
		{
			name: "flagged override is skipped for a lower one",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeString, Path: lookup.Path{{"organization"}, {"location"}},
				Default: "x", UseSystemDefault: true,
				Values: []*lookup.Candidate{
					systemDefault("organization=Organization 1", "org"),
					candidate("location=Location 1", "loc"),
				},
			},
			want:     "loc",
			included: true,
		},
		{
			name: "nil default passes through",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeInteger, Path: lookup.Path{{"location"}},
			},
			want:     nil,
			included: true,
		},
		{
			name: "integer override is cast",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeInteger, Path: lookup.Path{{"location"}},
				Values: []*lookup.Candidate{candidate("location=Location 1", "42")},
			},
			want:     42,
			included: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := resolveValue(t, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.included, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_HostgroupNearnessThreeDeep(t *testing.T) {
	host := testHost()
	host.Hostgroups = []string{"base/web/app", "base/web", "base"}

	tests := []struct {
		name   string
		values []*lookup.Candidate
		order  []string
		want   any
	}{
		{
			name: "parent beats grandparent",
			values: []*lookup.Candidate{
				candidate("hostgroup=base", "g"),
				candidate("hostgroup=base/web", "p"),
			},
			order: []string{"p", "g"},
			want:  "p",
		},
		{
			name: "own hostgroup beats ancestors",
			values: []*lookup.Candidate{
				candidate("hostgroup=base", "g"),
				candidate("hostgroup=base/web/app", "c"),
				candidate("hostgroup=base/web", "p"),
			},
			order: []string{"c", "p", "g"},
			want:  "c",
		},
		{
			name: "grandparent alone",
			values: []*lookup.Candidate{
				candidate("hostgroup=base", "g"),
				candidate("hostgroup=base/db", "other"),
			},
			order: []string{"g"},
			want:  "g",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := &lookup.Key{Name: "k", Type: lookup.KeyTypeString, Path: lookup.Path{{"hostgroup"}}, Values: tt.values}
			var order []string
			for _, s := range Select(key, host) {
				order = append(order, s.Candidate.Value.(string))
			}
			assert.Equal(t, tt.order, order)

			r := New(host)
			res, err := r.Resolve(key)
			require.NoError(t, err)
			got, ok, err := r.Value(key, res)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("hash merge favours nearer hostgroups", func(t *testing.T) {
		key := &lookup.Key{
			Name: "k", Type: lookup.KeyTypeHash, Path: lookup.Path{{"hostgroup"}}, MergeOverrides: true,
			Values: []*lookup.Candidate{
				candidate("hostgroup=base", map[string]any{"a": "g", "b": "g"}),
				candidate("hostgroup=base/web/app", map[string]any{"c": "c"}),
				candidate("hostgroup=base/web", map[string]any{"a": "p", "c": "p"}),
			},
		}
		r := New(host)
		res, err := r.Resolve(key)
		require.NoError(t, err)
		got, ok, err := r.Value(key, res)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, map[string]any{"a": "p", "b": "g", "c": "c"}, got)
	})
}

func mustPathNoT(s string) lookup.Path {
	p, err := lookup.ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func Test_ArrayMerge(t *testing.T) {
	tests := []struct {
		name         string
		key          *lookup.Key
		want         any
		wantElements []string
		wantNames    []string
	}{
		{
			name: "duplicates kept in precedence order",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeArray, MergeOverrides: true, Default: []any{},
				Path: lookup.Path{{"organization"}, {"location"}},
				Values: []*lookup.Candidate{
					candidate("location=Location 1", []any{"test"}),
					candidate("organization=Organization 1", []any{"test"}),
				},
			},
			want:         []any{"test", "test"},
			wantElements: []string{"organization", "location"},
			wantNames:    []string{"Organization 1", "Location 1"},
		},
		{
			name: "duplicates avoided",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeArray, MergeOverrides: true, AvoidDuplicates: true, Default: []any{},
				Path: lookup.Path{{"organization"}, {"location"}},
				Values: []*lookup.Candidate{
					candidate("location=Location 1", []any{"b", "a"}),
					candidate("organization=Organization 1", []any{"a", "c"}),
				},
			},
			want:         []any{"a", "c", "b"},
			wantElements: []string{"organization", "location"},
			wantNames:    []string{"Organization 1", "Location 1"},
		},
		{
			name: "default appended last",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeArray, MergeOverrides: true, MergeDefault: true, Default: []any{"d"},
				Path: lookup.Path{{"organization"}, {"location"}},
				Values: []*lookup.Candidate{
					candidate("location=Location 1", []any{"l"}),
					candidate("organization=Organization 1", []any{"o"}),
				},
			},
			want:         []any{"o", "l", "d"},
			wantElements: []string{"organization", "location", DefaultElement},
			wantNames:    []string{"Organization 1", "Location 1", DefaultElement},
		},
		{
			name: "templated values are parsed",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeArray, MergeOverrides: true,
				Path: lookup.Path{{"organization"}, {"location"}},
				Values: []*lookup.Candidate{
					candidate("location=Location 1", `{{ toJson (list 2 3) }}`),
					candidate("organization=Organization 1", "[1, 2]"),
				},
			},
			want:         []any{1, 2, 2, 3},
			wantElements: []string{"organization", "location"},
			wantNames:    []string{"Organization 1", "Location 1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(testHost()).Resolve(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Value)
			assert.Equal(t, tt.wantElements, res.Elements)
			assert.Equal(t, tt.wantNames, res.ElementNames)
			assert.True(t, res.Processed)
		})
	}
}

func Test_HashMerge(t *testing.T) {
	tests := []struct {
		name         string
		key          *lookup.Key
		want         any
		wantElements []string
	}{
		{
			name: "deep merge across levels",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeHash, MergeOverrides: true, Default: map[string]any{},
				Path: mustPathNoT("organization\nos\nlocation"),
				Values: []*lookup.Candidate{
					candidate("location=Location 1", map[string]any{"a": "x"}),
					candidate("organization=Organization 1", map[string]any{"ex": map[string]any{"b": "t2"}}),
					candidate("os=Redhat 6.1", map[string]any{"ex": map[string]any{"a": "t3"}}),
				},
			},
			want:         map[string]any{"a": "x", "ex": map[string]any{"a": "t3", "b": "t2"}},
			wantElements: []string{"location", "os", "organization"},
		},
		{
			name: "higher precedence wins conflicts",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeHash, MergeOverrides: true, Default: map[string]any{},
				Path: mustPathNoT("organization\nos\nlocation"),
				Values: []*lookup.Candidate{
					candidate("location=Location 1", map[string]any{"a": "test"}),
					candidate("organization=Organization 1", map[string]any{"example": map[string]any{"b": "test2"}}),
					candidate("os=Redhat 6.1", map[string]any{"example": map[string]any{"b": "test3"}}),
				},
			},
			want:         map[string]any{"a": "test", "example": map[string]any{"b": "test2"}},
			wantElements: []string{"location", "os", "organization"},
		},
		{
			name: "higher level replaces lower scalar",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeHash, MergeOverrides: true,
				Path: mustPathNoT("organization\nos\nlocation"),
				Values: []*lookup.Candidate{
					candidate("organization=Organization 1", map[string]any{"example": "test2"}),
					candidate("location=Location 1", map[string]any{"example": "test"}),
				},
			},
			want:         map[string]any{"example": "test2"},
			wantElements: []string{"location", "organization"},
		},
		{
			name: "default not merged without merge_default",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeHash, MergeOverrides: true, Default: map[string]any{"default": "example"},
				Path: mustPathNoT("organization\nos\nlocation"),
				Values: []*lookup.Candidate{
					candidate("organization=Organization 1", map[string]any{"a": "test2"}),
				},
			},
			want:         map[string]any{"a": "test2"},
			wantElements: []string{"organization"},
		},
		{
			name: "default merged at the bottom",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeHash, MergeOverrides: true, MergeDefault: true,
				Default: map[string]any{"default": "default", "example": map[string]any{"a": "lost"}},
				Path:    mustPathNoT("organization\nlocation"),
				Values: []*lookup.Candidate{
					candidate("location=Location 1", map[string]any{"example": map[string]any{"a": "test"}}),
					candidate("organization=Organization 1", map[string]any{"example": map[string]any{"b": "test2"}}),
				},
			},
			want:         map[string]any{"default": "default", "example": map[string]any{"a": "test", "b": "test2"}},
			wantElements: []string{DefaultElement, "location", "organization"},
		},
		{
			name: "flagged default is not merged",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeHash, MergeOverrides: true, MergeDefault: true, UseSystemDefault: true,
				Default: map[string]any{"default": "default"},
				Path:    mustPathNoT("organization\nlocation"),
				Values: []*lookup.Candidate{
					candidate("location=Location 1", map[string]any{"a": "b"}),
				},
			},
			want:         map[string]any{"a": "b"},
			wantElements: []string{"location"},
		},
		{
			name: "flagged overrides do not contribute",
			key: &lookup.Key{
				Name: "k", Type: lookup.KeyTypeHash, MergeOverrides: true,
				Path: mustPathNoT("organization\nlocation"),
				Values: []*lookup.Candidate{
					systemDefault("organization=Organization 1", map[string]any{"a": "org"}),
					candidate("location=Location 1", map[string]any{"b": "loc"}),
				},
			},
			want:         map[string]any{"b": "loc"},
			wantElements: []string{"location"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(testHost()).Resolve(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Value)
			assert.Equal(t, tt.wantElements, res.Elements)
		})
	}
}

func Test_HashMergeDoesNotModifySources(t *testing.T) {
	lower := map[string]any{"example": map[string]any{"a": "test"}}
	higher := map[string]any{"example": map[string]any{"b": "test2"}}
	key := &lookup.Key{
		Name: "k", Type: lookup.KeyTypeHash, MergeOverrides: true,
		Path: lookup.Path{{"organization"}, {"location"}},
		Values: []*lookup.Candidate{
			candidate("location=Location 1", lower),
			candidate("organization=Organization 1", higher),
		},
	}
	_, err := New(testHost()).Resolve(key)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"example": map[string]any{"a": "test"}}, lower)
	assert.Equal(t, map[string]any{"example": map[string]any{"b": "test2"}}, higher)
}

func Test_AllFlaggedMergeIsOmitted(t *testing.T) {
	key := &lookup.Key{
		Name: "k", Type: lookup.KeyTypeHash, MergeOverrides: true, UseSystemDefault: true, Default: map[string]any{},
		Path: mustPathNoT("organization\nos\nlocation"),
		Values: []*lookup.Candidate{
			systemDefault("location=Location 1", map[string]any{"example": map[string]any{"a": "test"}}),
			systemDefault("organization=Organization 1", map[string]any{"example": map[string]any{"b": "test2"}}),
			systemDefault("os=Redhat 6.1", map[string]any{"example": map[string]any{"a": "test3"}}),
		},
	}
	_, ok, err := resolveValue(t, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_TemplatedValues(t *testing.T) {
	key := &lookup.Key{
		Name: "k", Type: lookup.KeyTypeArray,
		Path:    mustPathNoT("organization\nos\nlocation"),
		Default: `{{ toJson (list 1 2) }}`,
	}
	got, ok, err := resolveValue(t, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []any{1, 2}, got)

	key.Values = []*lookup.Candidate{
		candidate("location=Location 1", `{{ toJson (list 2 3) }}`),
		candidate("organization=Organization 1", `{{ toJson (list 3 4) }}`),
		candidate("os=Redhat 6.1", `{{ toJson (list 4 5) }}`),
	}
	res, err := New(testHost()).Resolve(key)
	require.NoError(t, err)
	assert.Equal(t, `{{ toJson (list 3 4) }}`, res.Value)
	assert.Equal(t, []string{"organization"}, res.Elements)

	got, _, err = resolveValue(t, key)
	require.NoError(t, err)
	assert.Equal(t, []any{3, 4}, got)
}

func Test_ValidationAfterRendering(t *testing.T) {
	key := &lookup.Key{
		Name: "k", Type: lookup.KeyTypeString,
		Path:      mustPathNoT("organization\nos\nlocation"),
		Default:   `{{ "a" }}`,
		Validator: &lookup.Validator{Type: "list", Rule: "b"},
	}
	_, _, err := resolveValue(t, key)
	require.ErrorIs(t, err, validators.ErrValidation)

	key.Default = `{{ "b" }}`
	got, ok, err := resolveValue(t, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", got)

	key.Values = []*lookup.Candidate{candidate("location=Location 1", `{{ "c" }}`)}
	_, _, err = resolveValue(t, key)
	require.ErrorIs(t, err, validators.ErrValidation)
}

func Test_TemplateFailureIsFatal(t *testing.T) {
	key := &lookup.Key{
		Name: "k", Type: lookup.KeyTypeHash, MergeOverrides: true,
		Path: lookup.Path{{"location"}},
		Values: []*lookup.Candidate{
			candidate("location=Location 1", `{{ .missing }}`),
		},
	}
	_, err := New(testHost()).Resolve(key)
	require.Error(t, err)
}

func Test_ResolutionIsIdempotent(t *testing.T) {
	key := &lookup.Key{
		Name: "k", Type: lookup.KeyTypeHash, MergeOverrides: true, MergeDefault: true,
		Default: map[string]any{"d": 1},
		Path:    mustPathNoT("organization\nlocation"),
		Values: []*lookup.Candidate{
			candidate("location=Location 1", map[string]any{"a": map[string]any{"x": 1}}),
			candidate("organization=Organization 1", map[string]any{"a": map[string]any{"y": 2}}),
		},
	}
	first, _, err := resolveValue(t, key)
	require.NoError(t, err)
	second, _, err := resolveValue(t, key)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func Test_DeepMerge(t *testing.T) {
	base := map[string]any{"a": 1, "n": map[string]any{"x": 1, "y": map[string]any{"z": 1}}}
	overlay := map[string]any{"b": 2, "n": map[string]any{"y": map[string]any{"w": 2}}}
	got := DeepMerge(base, overlay)
	assert.Equal(t, map[string]any{
		"a": 1,
		"b": 2,
		"n": map[string]any{"x": 1, "y": map[string]any{"z": 1, "w": 2}},
	}, got)
	assert.Equal(t, map[string]any{"a": 1, "n": map[string]any{"x": 1, "y": map[string]any{"z": 1}}}, base)
}
