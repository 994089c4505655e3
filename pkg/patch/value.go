package patch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxBodySize is the largest patch document accepted, in bytes.
const MaxBodySize = 1000 * 1000

// Kind is the type of a JSON value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindLong
	KindDouble
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindBool:
		return "BOOL"
	case KindLong:
		return "LONG"
	case KindDouble:
		return "DOUBLE"
	case KindString:
		return "STRING"
	case KindArray:
		return "ARRAY"
	case KindObject:
		return "OBJECT"
	}
	return "UNKNOWN"
}

// Member is a named value of an object.
type Member struct {
	Name  string
	Value Value
}

// Value is a decoded JSON value. Objects keep their members in document order.
type Value struct {
	kind    Kind
	b       bool
	l       int64
	d       float64
	s       string
	entries []Value
	members []Member
}

// Null returns the JSON null value.
func Null() Value { return Value{kind: KindNull} }

// Kind returns the type of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull returns true for JSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Members returns the members of an object in document order.
func (v Value) Members() []Member { return v.members }

// Entries returns the entries of an array.
func (v Value) Entries() []Value { return v.entries }

// Field returns the last member of an object with the given name.
func (v Value) Field(name string) (Value, bool) {
	for i := len(v.members) - 1; i >= 0; i-- {
		if v.members[i].Name == name {
			return v.members[i].Value, true
		}
	}
	return Value{}, false
}

// Interface converts the value to plain Go values: nil, bool, int64,
// float64, string, []interface{} and map[string]interface{}.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindLong:
		return v.l
	case KindDouble:
		return v.d
	case KindString:
		return v.s
	case KindArray:
		out := make([]interface{}, 0, len(v.entries))
		for _, e := range v.entries {
			out = append(out, e.Interface())
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.members))
		for _, m := range v.members {
			out[m.Name] = m.Value.Interface()
		}
		return out
	}
	return nil
}

func kindError(expected Kind, got Value) error {
	article := "a"
	if expected == KindArray || expected == KindObject {
		article = "an"
	}
	return fmt.Errorf("Expected %s %s value, got a %s", article, expected, got.kind)
}

// AsLong returns the value of a LONG.
func (v Value) AsLong() (int64, error) {
	if v.kind != KindLong {
		return 0, kindError(KindLong, v)
	}
	return v.l, nil
}

// AsDouble returns the value of a DOUBLE or a LONG.
func (v Value) AsDouble() (float64, error) {
	switch v.kind {
	case KindDouble:
		return v.d, nil
	case KindLong:
		return float64(v.l), nil
	}
	return 0, kindError(KindDouble, v)
}

// AsString returns the value of a STRING.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", kindError(KindString, v)
	}
	return v.s, nil
}

// AsBool returns the value of a BOOL.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, kindError(KindBool, v)
	}
	return v.b, nil
}

// AsStrings returns the entries of an ARRAY of STRINGs.
func (v Value) AsStrings() ([]string, error) {
	if v.kind != KindArray {
		return nil, kindError(KindArray, v)
	}
	out := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		s, err := e.AsString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Decode reads one JSON document of at most MaxBodySize bytes.
func Decode(r io.Reader) (Value, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return Value{}, fmt.Errorf("error reading request body: %w", err)
	}
	if len(data) > MaxBodySize {
		return Value{}, fmt.Errorf("request body exceeds %d bytes", MaxBodySize)
	}
	return DecodeBytes(data)
}

// DecodeBytes parses one JSON document.
func DecodeBytes(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("invalid JSON: trailing data after document")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Value{kind: KindBool, b: t}, nil
	case string:
		return Value{kind: KindString, s: t}, nil
	case json.Number:
		return numberValue(t)
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

func decodeObject(dec *json.Decoder) (Value, error) {
	v := Value{kind: KindObject, members: []Member{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		name, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected object key, got %v", tok)
		}
		member, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		v.members = append(v.members, Member{Name: name, Value: member})
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	v := Value{kind: KindArray, entries: []Value{}}
	for dec.More() {
		entry, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		v.entries = append(v.entries, entry)
	}
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func numberValue(n json.Number) (Value, error) {
	if !strings.ContainsAny(n.String(), ".eE") {
		if l, err := n.Int64(); err == nil {
			return Value{kind: KindLong, l: l}, nil
		}
	}
	d, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("invalid number %s", n)
	}
	return Value{kind: KindDouble, d: d}, nil
}
