package mapping

import (
	"bytes"
	"encoding/json"
)

// Object is a decoded mapping that is encoded to JSON in the key order of the
// mock file.
type Object struct {
	keys   []string
	values map[string]any
}

func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Set replaces the value of an existing key in place.
func (o *Object) Set(key string, value any) *Object {
	if o.values == nil {
		o.values = make(map[string]any)
	}

	if _, found := o.values[key]; !found {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value

	return o
}

func (o *Object) Get(key string) (any, bool) {
	value, found := o.values[key]
	return value, found
}

func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

func (o *Object) Len() int {
	return len(o.keys)
}

func (o *Object) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')

	for i, key := range o.keys {
		if i > 0 {
			buffer.WriteByte(',')
		}

		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		encodedValue, err := json.Marshal(o.values[key])
		if err != nil {
			return nil, err
		}

		buffer.Write(encodedKey)
		buffer.WriteByte(':')
		buffer.Write(encodedValue)
	}

	buffer.WriteByte('}')

	return buffer.Bytes(), nil
}
