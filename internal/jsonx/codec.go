package jsonx

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Decode parses raw into a generic tree. Numbers stay json.Number so ids and
// amounts survive a round trip unchanged.
func Decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

// Compact encodes v without insignificant whitespace and without HTML
// escaping. Object keys come out sorted, so equal trees encode to equal
// bytes.
func Compact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
