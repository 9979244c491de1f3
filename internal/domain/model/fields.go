// Package model holds the practice history data shapes shared across layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Field is one named input of a practice attempt.
type Field struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Fields is an ordered list of inputs. It encodes as a JSON object whose key
// order follows the list, and decodes objects keeping their key order.
type Fields []Field

// Get returns the content of the first field called name.
func (f Fields) Get(name string) (string, bool) {
	for _, fld := range f {
		if fld.Name == name {
			return fld.Content, true
		}
	}
	return "", false
}

// Value returns the content of name or "".
func (f Fields) Value(name string) string {
	v, _ := f.Get(name)
	return v
}

// Without returns a copy of f minus every field whose name is in names.
func (f Fields) Without(names ...string) Fields {
	out := make(Fields, 0, len(f))
next:
	for _, fld := range f {
		for _, n := range names {
			if fld.Name == n {
				continue next
			}
		}
		out = append(out, fld)
	}
	return out
}

// Map flattens f into a map; later duplicates win.
func (f Fields) Map() map[string]string {
	m := make(map[string]string, len(f))
	for _, fld := range f {
		m[fld.Name] = fld.Content
	}
	return m
}

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	return append(Fields(nil), f...)
}

// MarshalJSON encodes f as an ordered JSON object.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fld := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(fld.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(fld.Content)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order. Non-string values
// are kept as their compact JSON text.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("model: fields must be a JSON object, got %v", tok)
	}

	out := Fields{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("model: unexpected key %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out = append(out, Field{Name: key, Content: rawContent(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

func rawContent(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		return buf.String()
	}
	return string(raw)
}

// Score is one scored category of an attempt.
type Score struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
	Max      float64 `json:"max"`
}

// InferMax guesses the scale of a bare score value: 10 for values up to 10,
// 100 above.
func InferMax(v float64) float64 {
	if v <= 10 {
		return 10
	}
	return 100
}

// Percent returns the score as a percentage of its maximum.
func (s Score) Percent() float64 {
	if s.Max <= 0 {
		return 0
	}
	return s.Value / s.Max * 100
}

// FormatValue renders a score value without trailing zeros.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
