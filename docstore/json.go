package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ParseDocument decodes a JSON object. Integral numbers become int64, other
// numbers float64 and nested objects Documents.
func ParseDocument(data []byte) (Document, error) {
	v, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(Document)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidDocument)
	}
	return doc, nil
}

// ParseDocuments decodes a JSON array of objects with the rules of
// ParseDocument.
func ParseDocuments(data []byte) ([]Document, error) {
	v, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidDocument)
	}
	docs := make([]Document, len(items))
	for i, item := range items {
		doc, ok := item.(Document)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrInvalidDocument, i)
		}
		docs[i] = doc
	}
	return docs, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return normalizeJSON(raw), nil
}

func normalizeJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(Document, len(t))
		for k, val := range t {
			out[k] = normalizeJSON(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalizeJSON(val)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil && !math.IsInf(f, 0) {
			return f
		}
		return t.String()
	default:
		return v
	}
}
