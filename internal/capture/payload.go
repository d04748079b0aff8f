package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/pretty"
)

// Pair is one name/value entry of a header or query mapping.
type Pair struct {
	Name  string
	Value string
}

// Pairs is an ordered name/value mapping. Decoding keeps the order of the
// JSON object; list values expand into one pair per element.
type Pairs []Pair

// Get returns the first value whose name matches case-insensitively.
func (p Pairs) Get(name string) (string, bool) {
	for _, kv := range p {
		if strings.EqualFold(kv.Name, name) {
			return kv.Value, true
		}
	}
	return "", false
}

// Map flattens the pairs into a map. Later duplicates are joined with ", ".
func (p Pairs) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, kv := range p {
		if prev, ok := m[kv.Name]; ok {
			m[kv.Name] = prev + ", " + kv.Value
			continue
		}
		m[kv.Name] = kv.Value
	}
	return m
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Pairs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("pairs: expected object, got %v", tok)
	}

	var out Pairs
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out = append(out, expand(name, raw)...)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// MarshalJSON writes the pairs as an object in order. Repeated names are
// grouped into a list at the position of their first occurrence.
func (p Pairs) MarshalJSON() ([]byte, error) {
	var order []string
	groups := make(map[string][]string)
	for _, kv := range p {
		if _, seen := groups[kv.Name]; !seen {
			order = append(order, kv.Name)
		}
		groups[kv.Name] = append(groups[kv.Name], kv.Value)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(name)
		buf.Write(key)
		buf.WriteByte(':')
		var val []byte
		if vals := groups[name]; len(vals) == 1 {
			val, _ = json.Marshal(vals[0])
		} else {
			val, _ = json.Marshal(vals)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func expand(name string, raw json.RawMessage) []Pair {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err == nil {
			pairs := make([]Pair, 0, len(items))
			for _, item := range items {
				pairs = append(pairs, Pair{Name: name, Value: scalar(item)})
			}
			return pairs
		}
	}
	return []Pair{{Name: name, Value: scalar(trimmed)}}
}

func scalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

// Payload is an opaque captured body: a structured JSON value, a JSON
// encoded string, or empty.
type Payload json.RawMessage

// UnmarshalJSON implements json.Unmarshaler.
func (p *Payload) UnmarshalJSON(data []byte) error {
	if p == nil {
		return fmt.Errorf("capture.Payload: UnmarshalJSON on nil pointer")
	}
	*p = append((*p)[0:0], data...)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

// IsEmpty reports whether the payload carries nothing worth showing.
func (p Payload) IsEmpty() bool {
	s := strings.TrimSpace(string(p))
	return s == "" || s == "null" || s == `""`
}

// Text returns the payload as it would be sent on the wire: string payloads
// are unquoted, structured payloads are compact JSON.
func (p Payload) Text() string {
	if p.IsEmpty() {
		return ""
	}
	var s string
	if err := json.Unmarshal(p, &s); err == nil {
		return s
	}
	return string(pretty.Ugly(p))
}

// Pretty renders the payload for display. Strings holding JSON are
// expanded; other strings are returned as-is.
func (p Payload) Pretty() string {
	if p.IsEmpty() {
		return "null"
	}
	var s string
	if err := json.Unmarshal(p, &s); err == nil {
		if json.Valid([]byte(s)) {
			return strings.TrimRight(string(pretty.Pretty([]byte(s))), "\n")
		}
		return s
	}
	if !json.Valid(p) {
		return string(p)
	}
	return strings.TrimRight(string(pretty.Pretty(p)), "\n")
}

// NewPayload builds a payload from an arbitrary value.
func NewPayload(v any) Payload {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return Payload(data)
}
