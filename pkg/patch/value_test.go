package patch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKeepsMemberOrder(t *testing.T) {
	v, err := DecodeBytes([]byte(`{"z": 1, "a": 2.5, "m": "s", "b": true, "n": null, "arr": ["x", 1], "obj": {"k": 1}}`))
	require.NoError(t, err)
	require.Equal(t, KindObject, v.Kind())

	var names []string
	for _, m := range v.Members() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"z", "a", "m", "b", "n", "arr", "obj"}, names)

	kinds := map[string]Kind{}
	for _, m := range v.Members() {
		kinds[m.Name] = m.Value.Kind()
	}
	assert.Equal(t, map[string]Kind{
		"z": KindLong, "a": KindDouble, "m": KindString, "b": KindBool,
		"n": KindNull, "arr": KindArray, "obj": KindObject,
	}, kinds)
}

func TestDecodeNumbers(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
	}{
		{"1", KindLong},
		{"-42", KindLong},
		{"1.0", KindDouble},
		{"1e3", KindDouble},
		{"99999999999999999999", KindDouble},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := DecodeBytes([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
		})
	}
}

func TestDecodeRejectsInvalidDocuments(t *testing.T) {
	for _, input := range []string{``, `{`, `{"a": }`, `{"a": 1} {"b": 2}`, `[1,]`} {
		_, err := DecodeBytes([]byte(input))
		assert.Error(t, err, "input %q", input)
	}
}

func TestDecodeBodyLimit(t *testing.T) {
	body := `{"modelName": "` + strings.Repeat("a", MaxBodySize) + `"}`
	_, err := Decode(strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestValueAccessors(t *testing.T) {
	v, err := DecodeBytes([]byte(`{"l": 3, "d": 1.5, "s": "x", "b": false, "a": ["p", "q"], "bad": ["p", 2]}`))
	require.NoError(t, err)

	l, _ := v.Field("l")
	n, err := l.AsLong()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	f, err := l.AsDouble()
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	d, _ := v.Field("d")
	_, err = d.AsLong()
	assert.EqualError(t, err, "Expected a LONG value, got a DOUBLE")

	s, _ := v.Field("s")
	_, err = s.AsBool()
	assert.EqualError(t, err, "Expected a BOOL value, got a STRING")

	a, _ := v.Field("a")
	strs, err := a.AsStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "q"}, strs)

	_, err = s.AsStrings()
	assert.EqualError(t, err, "Expected an ARRAY value, got a STRING")

	bad, _ := v.Field("bad")
	_, err = bad.AsStrings()
	assert.EqualError(t, err, "Expected a STRING value, got a LONG")

	_, ok := v.Field("missing")
	assert.False(t, ok)

	assert.Equal(t, map[string]interface{}{
		"l": int64(3), "d": 1.5, "s": "x", "b": false,
		"a":   []interface{}{"p", "q"},
		"bad": []interface{}{"p", int64(2)},
	}, v.Interface())
}
