package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Object is a decoded JSON object that remembers the order its keys appeared
// in. Attendee entries without an "email" field are read by their first key,
// which a plain map cannot answer.
type Object struct {
	Keys   []string
	Values map[string]any
}

// DecodeObject decodes raw, which must hold a single JSON object. Nested
// values decode as they would into an any. A repeated key keeps its first
// position and its last value.
func DecodeObject(raw []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return Object{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Object{}, errors.New("json value is not an object")
	}

	obj := Object{Values: map[string]any{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Object{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Object{}, fmt.Errorf("unexpected object key %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return Object{}, err
		}
		if _, dup := obj.Values[key]; !dup {
			obj.Keys = append(obj.Keys, key)
		}
		obj.Values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return Object{}, err
	}
	if _, err := dec.Token(); err == nil {
		return Object{}, errors.New("trailing data after json object")
	}
	return obj, nil
}

// FirstKey returns the key that appeared first.
func (o Object) FirstKey() (string, bool) {
	if len(o.Keys) == 0 {
		return "", false
	}
	return o.Keys[0], true
}

// MarshalJSON writes the keys back in their original order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.Values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
