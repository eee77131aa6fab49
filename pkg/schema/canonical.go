package schema

import (
	"bytes"
	"encoding/json"
)

// CanonicalJSON serializes v through one shared encoding path: object keys
// sorted lexicographically at every depth, no insignificant whitespace,
// and integer/float distinction preserved via json.Number round-tripping.
//
// Every digest in this module is computed over exactly these bytes, and
// exactly these bytes are what gets sent on the wire — never hash bytes
// produced by any other encoder.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	// json.Marshal sorts map[string]any keys lexicographically and emits
	// json.Number literally, giving us both required properties in one pass.
	return json.Marshal(generic)
}
