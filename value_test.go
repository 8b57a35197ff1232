package gemcert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValueUnmarshalPreservesObjectOrder(t *testing.T) {
	var v FieldValue
	err := json.Unmarshal([]byte(`{"length":"5.2","width":"5.1","height":"3.2"}`), &v)
	require.NoError(t, err)

	require.Equal(t, KindObject, v.Kind())
	entries := v.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "length", entries[0].Key)
	assert.Equal(t, "width", entries[1].Key)
	assert.Equal(t, "height", entries[2].Key)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"length":"5.2","width":"5.1","height":"3.2"}`, string(out))
}

func TestFieldValueUnmarshalScalars(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind ValueKind
		str  string
	}{
		{"string", `"VVS1"`, KindString, "VVS1"},
		{"number", `2.35`, KindNumber, "2.35"},
		{"integer", `5`, KindNumber, "5"},
		{"bool", `true`, KindBool, "true"},
		{"null", `null`, KindNull, ""},
		{"list", `["Gold","Silver"]`, KindList, "Gold, Silver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v FieldValue
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &v))
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.str, v.String())
		})
	}
}

func TestFieldValueIsEmpty(t *testing.T) {
	assert.True(t, NullValue().IsEmpty())
	assert.True(t, StringValue("").IsEmpty())
	assert.True(t, ObjectValue().IsEmpty())
	assert.True(t, ListValue().IsEmpty())
	assert.False(t, StringValue("x").IsEmpty())
	assert.False(t, NumberValue(0).IsEmpty())
	assert.False(t, BoolValue(false).IsEmpty())
	assert.False(t, ListValue(StringValue("a")).IsEmpty())
}

func TestFieldValuesLookup(t *testing.T) {
	values := FieldValues{
		"color": StringValue("D"),
		"dimension": ObjectValue(
			FieldEntry{Key: "length", Value: StringValue("5.2")},
			FieldEntry{Key: "width", Value: StringValue("5.1")},
		),
	}

	assert.Equal(t, "D", values.Lookup("color").String())
	assert.Equal(t, "5.2", values.Lookup("dimension.length").String())
	assert.Equal(t, KindNull, values.Lookup("dimension.height").Kind())
	assert.Equal(t, KindNull, values.Lookup("missing").Kind())
	assert.Equal(t, KindNull, values.Lookup("color.nested").Kind())
}

func TestFieldValueNumber(t *testing.T) {
	n, ok := NumberValue(2.5).Number()
	require.True(t, ok)
	assert.Equal(t, 2.5, n)

	n, ok = StringValue(" 1.52 ").Number()
	require.True(t, ok)
	assert.Equal(t, 1.52, n)

	_, ok = StringValue("Natural Diamond").Number()
	assert.False(t, ok)

	_, ok = BoolValue(true).Number()
	assert.False(t, ok)
}

func TestFieldValuesRoundTrip(t *testing.T) {
	raw := `{"color":"E","carat":1.02,"treated":false,"dimension":{"length":"6.4","width":"6.4","height":"3.9"},"metal_types":["Gold","Platinum"]}`

	var values FieldValues
	require.NoError(t, json.Unmarshal([]byte(raw), &values))

	assert.Equal(t, "E", values.Lookup("color").String())
	assert.Equal(t, "1.02", values.Lookup("carat").String())
	assert.Equal(t, "false", values.Lookup("treated").String())
	assert.Equal(t, "6.4", values.Lookup("dimension.length").String())
	assert.Equal(t, "Gold, Platinum", values.Lookup("metal_types").String())

	out, err := json.Marshal(values)
	require.NoError(t, err)

	var reparsed FieldValues
	require.NoError(t, json.Unmarshal(out, &reparsed))
	assert.Equal(t, values.Lookup("dimension").Entries(), reparsed.Lookup("dimension").Entries())
}
