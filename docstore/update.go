package docstore

import (
	"fmt"
	"strings"
)

// Apply returns a copy of doc with update applied and whether anything
// changed. Supported operators are $set and $unset; dotted $set paths create
// the intermediate documents they need. Replacement style updates without
// operators are rejected.
func Apply(doc Document, update Update) (Document, bool, error) {
	if len(update) == 0 {
		return nil, false, fmt.Errorf("%w: update is empty", ErrInvalidUpdate)
	}

	out := doc.Clone()
	if out == nil {
		out = Document{}
	}

	for _, op := range sortedKeys(update) {
		fields, ok := asMap(update[op])
		if !ok {
			if !strings.HasPrefix(op, "$") {
				return nil, false, fmt.Errorf("%w: %q is not an update operator", ErrInvalidUpdate, op)
			}
			return nil, false, fmt.Errorf("%w: %s needs a document", ErrInvalidUpdate, op)
		}

		for _, path := range sortedKeys(fields) {
			if path == IDField || strings.HasPrefix(path, IDField+".") {
				if op == "$set" && equalValues(doc[IDField], fields[path]) {
					continue
				}
				return nil, false, ErrImmutableID
			}

			var err error
			switch op {
			case "$set":
				err = setPath(out, path, cloneValue(fields[path]))
			case "$unset":
				unsetPath(out, path)
			default:
				if !strings.HasPrefix(op, "$") {
					return nil, false, fmt.Errorf("%w: %q is not an update operator", ErrInvalidUpdate, op)
				}
				return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op)
			}
			if err != nil {
				return nil, false, err
			}
		}
	}

	return out, !equalValues(map[string]any(doc), map[string]any(out)), nil
}

func setPath(doc Document, path string, value any) error {
	segments := strings.Split(path, ".")
	current := map[string]any(doc)
	for _, segment := range segments[:len(segments)-1] {
		if segment == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidUpdate, path)
		}
		next, present := current[segment]
		if !present || next == nil {
			child := Document{}
			current[segment] = child
			current = child
			continue
		}
		m, ok := asMap(next)
		if !ok {
			return fmt.Errorf("%w: cannot create field in %q, %s is not a document", ErrInvalidUpdate, path, segment)
		}
		current = m
	}

	last := segments[len(segments)-1]
	if last == "" {
		return fmt.Errorf("%w: empty segment in %q", ErrInvalidUpdate, path)
	}
	current[last] = value
	return nil
}

func unsetPath(doc Document, path string) {
	segments := strings.Split(path, ".")
	current := map[string]any(doc)
	for _, segment := range segments[:len(segments)-1] {
		m, ok := asMap(current[segment])
		if !ok {
			return
		}
		current = m
	}
	delete(current, segments[len(segments)-1])
}
