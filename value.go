package gemcert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind discriminates the closed set of shapes a certificate field value
// can take. Submitted values are admin-schema driven, so anything outside
// this set is rejected at decode time rather than smuggled through as `any`.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindList
)

// FieldValue is a tagged union over the JSON value shapes a dynamic
// certificate field may hold: string, number, bool, nested object (composite
// fields) or list (checkbox selections). Object entries preserve the key
// order of the incoming JSON so rendering stays deterministic.
type FieldValue struct {
	kind    ValueKind
	str     string
	num     float64
	boolean bool
	entries []FieldEntry
	items   []FieldValue
}

// FieldEntry is one key/value pair of an object-kind FieldValue.
type FieldEntry struct {
	Key   string
	Value FieldValue
}

// FieldValues holds a certificate's submitted values keyed by field_name.
type FieldValues map[string]FieldValue

// NullValue returns the null FieldValue. The zero FieldValue is also null.
func NullValue() FieldValue { return FieldValue{kind: KindNull} }

// StringValue wraps a string.
func StringValue(s string) FieldValue { return FieldValue{kind: KindString, str: s} }

// NumberValue wraps a number.
func NumberValue(n float64) FieldValue { return FieldValue{kind: KindNumber, num: n} }

// BoolValue wraps a bool.
func BoolValue(b bool) FieldValue { return FieldValue{kind: KindBool, boolean: b} }

// ObjectValue wraps ordered key/value entries.
func ObjectValue(entries ...FieldEntry) FieldValue {
	return FieldValue{kind: KindObject, entries: entries}
}

// ListValue wraps an ordered list of values.
func ListValue(items ...FieldValue) FieldValue {
	return FieldValue{kind: KindList, items: items}
}

// Kind returns the union discriminator.
func (v FieldValue) Kind() ValueKind { return v.kind }

// IsEmpty reports whether the value counts as "not provided" for required
// field checks: null, the empty string, or an object/list with no entries.
func (v FieldValue) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == ""
	case KindObject:
		return len(v.entries) == 0
	case KindList:
		return len(v.items) == 0
	default:
		return false
	}
}

// String renders the value in its natural scalar form. Objects and lists
// render their non-empty leaves comma-joined in encounter order.
func (v FieldValue) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindObject:
		parts := make([]string, 0, len(v.entries))
		for _, e := range v.entries {
			if s := e.Value.String(); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case KindList:
		parts := make([]string, 0, len(v.items))
		for _, item := range v.items {
			if s := item.String(); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// Number returns the numeric form of the value where one exists.
func (v FieldValue) Number() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Entries returns the ordered entries of an object value, nil otherwise.
func (v FieldValue) Entries() []FieldEntry {
	if v.kind != KindObject {
		return nil
	}
	return v.entries
}

// Get returns the value stored under key in an object value.
func (v FieldValue) Get(key string) (FieldValue, bool) {
	if v.kind != KindObject {
		return FieldValue{}, false
	}
	for _, e := range v.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return FieldValue{}, false
}

// Lookup resolves a dotted path ("dimension.length") against the value map.
// A missing segment resolves to the null value, never an error.
func (m FieldValues) Lookup(path string) FieldValue {
	segments := strings.Split(path, ".")
	current, ok := m[segments[0]]
	if !ok {
		return NullValue()
	}
	for _, seg := range segments[1:] {
		current, ok = current.Get(seg)
		if !ok {
			return NullValue()
		}
	}
	return current
}

// MarshalJSON emits the value in its native JSON shape, preserving object
// key order.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.boolean)
	case KindObject:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, e := range v.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.Key)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := e.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			val, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

// UnmarshalJSON decodes any JSON value into the union. Object key order is
// preserved via token streaming.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func decodeValue(dec *json.Decoder) (FieldValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return FieldValue{}, err
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (FieldValue, error) {
	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return FieldValue{}, fmt.Errorf("parse number %q: %w", t.String(), err)
		}
		return NumberValue(f), nil
	case json.Delim:
		switch t {
		case '{':
			entries := []FieldEntry{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return FieldValue{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return FieldValue{}, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return FieldValue{}, err
				}
				entries = append(entries, FieldEntry{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return FieldValue{}, err
			}
			return ObjectValue(entries...), nil
		case '[':
			items := []FieldValue{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return FieldValue{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return FieldValue{}, err
			}
			return ListValue(items...), nil
		}
	}
	return FieldValue{}, fmt.Errorf("unexpected token %v", tok)
}
