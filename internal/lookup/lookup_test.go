package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParsePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Path
		wantErr error
	}{
		{
			name:  "single level",
			input: "fqdn",
			want:  Path{{"fqdn"}},
		},
		{
			name:  "multiple levels",
			input: "fqdn\nhostgroup\nos\ndomain",
			want:  DefaultPath,
		},
		{
			name:  "multi attribute level",
			input: "organization\norganization, location\r\nlocation",
			want:  Path{{"organization"}, {"organization", "location"}, {"location"}},
		},
		{
			name:  "empty",
			input: "  ",
			want:  nil,
		},
		{
			name:    "empty attribute",
			input:   "fqdn,\nos",
			wantErr: ErrInvalidPath,
		},
		{
			name:    "empty level",
			input:   "fqdn\n\nos",
			wantErr: ErrInvalidPath,
		},
		{
			name:    "duplicate level",
			input:   "os,domain\nfqdn\ndomain,os",
			wantErr: ErrInvalidPath,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_PathIndex(t *testing.T) {
	p := Path{{"fqdn"}, {"organization", "location"}, {"os"}}
	assert.Equal(t, 1, p.Index([]string{"location", "organization"}))
	assert.Equal(t, 2, p.Index([]string{"os"}))
	assert.Equal(t, -1, p.Index([]string{"organization"}))
	assert.Equal(t, "fqdn\norganization,location\nos", p.String())
}

func Test_ParseMatch(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Clause
		wantErr bool
	}{
		{
			name:  "single clause",
			input: "fqdn=web01.example.com",
			want:  []Clause{{"fqdn", "web01.example.com"}},
		},
		{
			name:  "multiple clauses",
			input: "organization=Org 1,location=Loc 1",
			want:  []Clause{{"organization", "Org 1"}, {"location", "Loc 1"}},
		},
		{
			name:  "value containing equals",
			input: "facts.cmdline=quiet=1",
			want:  []Clause{{"facts.cmdline", "quiet=1"}},
		},
		{
			name:  "hostgroup title",
			input: "hostgroup=base/web",
			want:  []Clause{{"hostgroup", "base/web"}},
		},
		{
			name:    "missing value separator",
			input:   "fqdn",
			wantErr: true,
		},
		{
			name:    "empty attribute",
			input:   "=value",
			wantErr: true,
		},
		{
			name:    "repeated attribute",
			input:   "os=a,os=b",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMatch(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_ParseKeyType(t *testing.T) {
	for _, kt := range KeyTypes {
		got, err := ParseKeyType(string(kt))
		require.NoError(t, err)
		assert.Equal(t, kt, got)
	}
	got, err := ParseKeyType("")
	require.NoError(t, err)
	assert.Equal(t, KeyTypeString, got)
	_, err = ParseKeyType("set")
	assert.ErrorIs(t, err, ErrInvalidKeyType)
}

func Test_KeyValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     Key
		wantErr error
	}{
		{
			name: "valid scalar",
			key:  Key{Name: "port", Type: KeyTypeInteger, Path: DefaultPath},
		},
		{
			name: "valid merged array",
			key:  Key{Name: "ntp", Type: KeyTypeArray, Path: DefaultPath, MergeOverrides: true, MergeDefault: true, AvoidDuplicates: true},
		},
		{
			name:    "merging a string",
			key:     Key{Name: "motd", Type: KeyTypeString, Path: DefaultPath, MergeOverrides: true},
			wantErr: ErrUnmergeableType,
		},
		{
			name:    "avoid duplicates on a hash",
			key:     Key{Name: "opts", Type: KeyTypeHash, Path: DefaultPath, MergeOverrides: true, AvoidDuplicates: true},
			wantErr: ErrAvoidDuplicates,
		},
		{
			name:    "merge default without merging",
			key:     Key{Name: "opts", Type: KeyTypeHash, Path: DefaultPath, MergeDefault: true},
			wantErr: ErrMergeDefault,
		},
		{
			name:    "unknown type",
			key:     Key{Name: "opts", Type: "set", Path: DefaultPath},
			wantErr: ErrInvalidKeyType,
		},
		{
			name:    "bad candidate",
			key:     Key{Name: "opts", Type: KeyTypeString, Path: DefaultPath, Values: []*Candidate{{Match: "os"}}},
			wantErr: ErrInvalidMatch,
		},
		{
			name:    "duplicate levels",
			key:     Key{Name: "opts", Type: KeyTypeString, Path: Path{{"os"}, {"os"}}},
			wantErr: ErrInvalidPath,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func Test_KeyMerges(t *testing.T) {
	assert.True(t, (&Key{Type: KeyTypeHash, MergeOverrides: true}).Merges())
	assert.False(t, (&Key{Type: KeyTypeHash}).Merges())
	assert.False(t, (&Key{Type: KeyTypeYAML, MergeOverrides: true}).Merges())
}
