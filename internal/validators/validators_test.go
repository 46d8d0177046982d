package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"primamateria.systems/enc/internal/lookup"
)

func Test_Validate(t *testing.T) {
	tests := []struct {
		name      string
		validator *lookup.Validator
		value     any
		valid     bool
	}{
		{name: "no validator", validator: nil, value: "anything", valid: true},
		{name: "empty validator", validator: &lookup.Validator{}, value: "anything", valid: true},
		{name: "nil value", validator: &lookup.Validator{Type: TypeList, Rule: "a"}, value: nil, valid: true},
		{name: "list member", validator: &lookup.Validator{Type: TypeList, Rule: "a, b ,c"}, value: "b", valid: true},
		{name: "list non member", validator: &lookup.Validator{Type: TypeList, Rule: "a,b"}, value: "d"},
		{name: "list number", validator: &lookup.Validator{Type: TypeList, Rule: "80,443"}, value: 443, valid: true},
		{name: "regexp match", validator: &lookup.Validator{Type: TypeRegexp, Rule: "^web[0-9]+$"}, value: "web01", valid: true},
		{name: "regexp slashes", validator: &lookup.Validator{Type: TypeRegexp, Rule: "/^db/"}, value: "db1", valid: true},
		{name: "regexp mismatch", validator: &lookup.Validator{Type: TypeRegexp, Rule: "^web"}, value: "db1"},
		{name: "cel accepts", validator: &lookup.Validator{Type: TypeCEL, Rule: "value > 1024"}, value: 8080, valid: true},
		{name: "cel rejects", validator: &lookup.Validator{Type: TypeCEL, Rule: "value > 1024"}, value: 80},
		{name: "cel map", validator: &lookup.Validator{Type: TypeCEL, Rule: `"port" in value`}, value: map[string]any{"port": 1}, valid: true},
		{name: "cel list", validator: &lookup.Validator{Type: TypeCEL, Rule: "size(value) <= 2"}, value: []any{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := &lookup.Key{Name: "test", Validator: tt.validator}
			err := Validate(key, tt.value)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "test", verr.Key)
			assert.Equal(t, tt.value, verr.Value)
		})
	}
}

func Test_NewInvalid(t *testing.T) {
	_, err := New(&lookup.Validator{Type: "range", Rule: "1-2"})
	assert.ErrorIs(t, err, ErrUnknownValidator)
	_, err = New(&lookup.Validator{Type: TypeRegexp, Rule: "(unclosed"})
	assert.Error(t, err)
	_, err = New(&lookup.Validator{Type: TypeCEL, Rule: "1 + 1"})
	assert.Error(t, err)
	_, err = New(&lookup.Validator{Type: TypeCEL, Rule: "value >"})
	assert.Error(t, err)
}

func Test_NewCached(t *testing.T) {
	first, err := New(&lookup.Validator{Type: TypeCEL, Rule: "value != 0"})
	require.NoError(t, err)
	second, err := New(&lookup.Validator{Type: TypeCEL, Rule: "value != 0"})
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := New(&lookup.Validator{Type: TypeCEL, Rule: "value != 1"})
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}
