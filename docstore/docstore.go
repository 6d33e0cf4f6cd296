package docstore

import "context"

// IDField is the primary key of every document.
const IDField = "_id"

// Document is a schemaless record. Values are JSON like: strings, numbers,
// bools, nil, []any and nested documents.
type Document map[string]any

// Filter selects documents with Mongo query semantics. An empty filter
// matches every document.
type Filter map[string]any

// Update describes a change with update operators such as $set.
type Update map[string]any

// UpdateResult reports how many documents matched the filter and how many of
// them actually changed.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// Collection is the subset of a document collection the helpers rely on.
type Collection interface {
	// Find returns every document matching filter in the store's natural order.
	Find(ctx context.Context, filter Filter) ([]Document, error)
	// InsertOne stores doc and returns its _id, generating one when doc has none.
	InsertOne(ctx context.Context, doc Document) (any, error)
	// UpdateMany applies update to every document matching filter.
	UpdateMany(ctx context.Context, filter Filter, update Update) (UpdateResult, error)
}

// ID returns the _id of the document, nil when unset.
func (d Document) ID() any {
	return d[IDField]
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(d).(Document)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		out := make(Document, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case map[string]any:
		out := make(Document, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	default:
		return v
	}
}
