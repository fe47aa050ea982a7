package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Properties is an ordered map of property name to raw JSON value. Declaration
// order is preserved across Set/Clone so that renders which are sensitive to
// property iteration order (e.g. the reconciler's probe renders) are stable.
type Properties struct {
	order []string
	value map[string]json.RawMessage
}

// NewProperties returns an empty Properties map.
func NewProperties() Properties {
	return Properties{}
}

// PropertiesFromMap builds a Properties value from a plain Go map, encoding
// each value to JSON. Iteration order follows Go's randomized map order, so
// this constructor should only be used where order does not matter (tests,
// one-off fixtures) - catalog and instance code should build Properties via
// repeated Set calls to get a deterministic order.
func PropertiesFromMap(m map[string]any) (Properties, error) {
	p := NewProperties()
	for k, v := range m {
		raw, err := json.Marshal(v)
		if err != nil {
			return Properties{}, err
		}
		p = p.SetRaw(k, raw)
	}
	return p, nil
}

// Has reports whether the property is set.
func (p Properties) Has(name string) bool {
	_, ok := p.value[name]
	return ok
}

// Get returns the raw JSON value of the property and whether it was set.
func (p Properties) Get(name string) (json.RawMessage, bool) {
	if p.value == nil {
		return nil, false
	}
	v, ok := p.value[name]
	return v, ok
}

// GetString returns the property decoded as a string.
func (p Properties) GetString(name string) (string, bool) {
	raw, ok := p.Get(name)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Set encodes value to JSON and stores it under name, returning a new
// Properties value. The receiver is left unmodified.
func (p Properties) Set(name string, value any) (Properties, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Properties{}, err
	}
	return p.SetRaw(name, raw), nil
}

// SetRaw stores a pre-encoded JSON value under name, returning a new
// Properties value.
func (p Properties) SetRaw(name string, raw json.RawMessage) Properties {
	next := p.Clone()
	if _, exists := next.value[name]; !exists {
		next.order = append(next.order, name)
	}
	next.value[name] = append(json.RawMessage{}, raw...)
	return next
}

// Remove deletes name, returning a new Properties value.
func (p Properties) Remove(name string) Properties {
	if !p.Has(name) {
		return p.Clone()
	}
	next := p.Clone()
	delete(next.value, name)
	for i, k := range next.order {
		if k == name {
			next.order = append(next.order[:i:i], next.order[i+1:]...)
			break
		}
	}
	return next
}

// Keys returns the property names in declaration order.
func (p Properties) Keys() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of properties.
func (p Properties) Len() int {
	return len(p.order)
}

// Clone returns a deep, independent copy.
func (p Properties) Clone() Properties {
	next := Properties{
		order: make([]string, len(p.order)),
		value: make(map[string]json.RawMessage, len(p.value)),
	}
	copy(next.order, p.order)
	for k, v := range p.value {
		next.value[k] = append(json.RawMessage{}, v...)
	}
	return next
}

// MergeOverride returns a new Properties value where every key set in
// override replaces (or adds to) the receiver's value for that key, keeping
// the receiver's order for untouched keys and appending new keys from
// override in override's order.
func (p Properties) MergeOverride(override Properties) Properties {
	next := p.Clone()
	for _, k := range override.order {
		next = next.SetRaw(k, override.value[k])
	}
	return next
}

// Equal reports whether two Properties maps contain the same keys and
// byte-equivalent JSON values, independent of declaration order.
func (p Properties) Equal(other Properties) bool {
	if len(p.value) != len(other.value) {
		return false
	}
	for k, v := range p.value {
		ov, ok := other.value[k]
		if !ok || !bytes.Equal(normalizeJSON(v), normalizeJSON(ov)) {
			return false
		}
	}
	return true
}

func normalizeJSON(raw json.RawMessage) []byte {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

// MarshalJSON encodes Properties as a JSON object whose keys are written in
// declaration order; UnmarshalJSON reads them back in that same order.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(p.value[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into Properties, using the order keys
// appear in the input.
func (p *Properties) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	// Re-scan to recover source order, since map iteration order is random.
	order := make([]string, 0, len(raw))
	d2 := json.NewDecoder(bytes.NewReader(data))
	tok, err := d2.Token()
	if err != nil || tok != json.Delim('{') {
		*p = Properties{value: raw, order: sortedKeys(raw)}
		return nil
	}
	for d2.More() {
		keyTok, err := d2.Token()
		if err != nil {
			break
		}
		key, _ := keyTok.(string)
		order = append(order, key)
		var v json.RawMessage
		if err := d2.Decode(&v); err != nil {
			break
		}
	}
	*p = Properties{value: raw, order: order}
	return nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
