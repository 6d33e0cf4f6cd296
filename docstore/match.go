package docstore

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Match reports whether doc satisfies filter.
//
// Supported: field equality (an array field matches when the whole array or
// any element equals the value, a null value matches a missing field), dotted
// paths with numeric array indexes, $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin,
// $exists, $elemMatch, $size and the top level $and, $or, $nor. Numbers
// compare by value regardless of their Go type.
func Match(doc Document, filter Filter) (bool, error) {
	for _, key := range sortedKeys(filter) {
		ok, err := matchKey(doc, key, filter[key])
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchKey(doc Document, key string, cond any) (bool, error) {
	switch key {
	case "$and", "$or", "$nor":
		clauses, err := clauseList(key, cond)
		if err != nil {
			return false, err
		}
		return matchLogical(doc, key, clauses)
	}
	if strings.HasPrefix(key, "$") {
		return false, fmt.Errorf("%w: %s", ErrUnsupportedOperator, key)
	}

	value, exists := lookup(doc, key)
	if ops, ok := operatorMap(cond); ok {
		return matchOperators(value, exists, ops)
	}
	return matchEquality(value, exists, cond), nil
}

func matchLogical(doc Document, op string, clauses []Filter) (bool, error) {
	for _, clause := range clauses {
		ok, err := Match(doc, clause)
		if err != nil {
			return false, err
		}
		switch {
		case op == "$and" && !ok:
			return false, nil
		case op == "$or" && ok:
			return true, nil
		case op == "$nor" && ok:
			return false, nil
		}
	}
	return op != "$or", nil
}

func clauseList(op string, cond any) ([]Filter, error) {
	items, ok := asList(cond)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%w: %s needs a non empty array", ErrInvalidFilter, op)
	}
	clauses := make([]Filter, len(items))
	for i, item := range items {
		m, ok := asMap(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s entries must be documents", ErrInvalidFilter, op)
		}
		clauses[i] = Filter(m)
	}
	return clauses, nil
}

// operatorMap returns cond as an operator expression when every key of it
// starts with "$". A document with plain keys is an equality target.
func operatorMap(cond any) (map[string]any, bool) {
	m, ok := asMap(cond)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func matchOperators(value any, exists bool, ops map[string]any) (bool, error) {
	for _, op := range sortedKeys(ops) {
		ok, err := matchOperator(value, exists, op, ops[op])
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOperator(value any, exists bool, op string, arg any) (bool, error) {
	switch op {
	case "$eq":
		return matchEquality(value, exists, arg), nil
	case "$ne":
		return !matchEquality(value, exists, arg), nil
	case "$in", "$nin":
		candidates, ok := asList(arg)
		if !ok {
			return false, fmt.Errorf("%w: %s needs an array", ErrInvalidFilter, op)
		}
		found := false
		for _, candidate := range candidates {
			if matchEquality(value, exists, candidate) {
				found = true
				break
			}
		}
		return found == (op == "$in"), nil
	case "$exists":
		want, ok := arg.(bool)
		if !ok {
			return false, fmt.Errorf("%w: $exists needs a bool", ErrInvalidFilter)
		}
		return exists == want, nil
	case "$gt", "$gte", "$lt", "$lte":
		if !exists {
			return false, nil
		}
		return anyElement(value, func(v any) bool { return compareOp(op, v, arg) }), nil
	case "$size":
		n, ok := toInt64(arg)
		if !ok {
			return false, fmt.Errorf("%w: $size needs an integer", ErrInvalidFilter)
		}
		items, isList := asList(value)
		return exists && isList && int64(len(items)) == n, nil
	case "$elemMatch":
		return matchElem(value, exists, arg)
	}
	return false, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op)
}

func matchElem(value any, exists bool, arg any) (bool, error) {
	cond, ok := asMap(arg)
	if !ok {
		return false, fmt.Errorf("%w: $elemMatch needs a document", ErrInvalidFilter)
	}
	items, isList := asList(value)
	if !exists || !isList {
		return false, nil
	}

	ops, isOps := operatorMap(cond)
	for _, item := range items {
		var (
			ok  bool
			err error
		)
		if isOps {
			ok, err = matchOperators(item, true, ops)
		} else if sub, isDoc := asMap(item); isDoc {
			ok, err = Match(Document(sub), Filter(cond))
		}
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// matchEquality applies Mongo equality: a missing field equals null and an
// array field equals a scalar it contains.
func matchEquality(value any, exists bool, target any) bool {
	if !exists {
		return target == nil
	}
	if equalValues(value, target) {
		return true
	}
	if items, ok := asList(value); ok {
		for _, item := range items {
			if equalValues(item, target) {
				return true
			}
		}
	}
	return false
}

func anyElement(value any, pred func(any) bool) bool {
	if items, ok := asList(value); ok {
		for _, item := range items {
			if pred(item) {
				return true
			}
		}
		return false
	}
	return pred(value)
}

func compareOp(op string, a, b any) bool {
	cmp, ok := compareValues(a, b)
	if !ok {
		return false
	}
	switch op {
	case "$gt":
		return cmp > 0
	case "$gte":
		return cmp >= 0
	case "$lt":
		return cmp < 0
	default:
		return cmp <= 0
	}
}

// compareValues orders two numbers or two strings. ok is false for any other
// pair, which never satisfies a range operator.
func compareValues(a, b any) (int, bool) {
	if af, aok := toFloat64(a); aok {
		bf, bok := toFloat64(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return 0, false
	}
	return strings.Compare(as, bs), true
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(b); ok {
			return ai == bi
		}
	}
	if af, ok := toFloat64(a); ok {
		bf, ok := toFloat64(b)
		return ok && af == bf
	}

	if am, ok := asMap(a); ok {
		bm, ok := asMap(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, present := bm[k]
			if !present || !equalValues(av, bv) {
				return false
			}
		}
		return true
	}

	if al, ok := asList(a); ok {
		bl, ok := asList(b)
		if !ok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !equalValues(al[i], bl[i]) {
				return false
			}
		}
		return true
	}

	if _, ok := asList(b); ok {
		return false
	}
	if _, ok := asMap(b); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// lookup resolves a dotted path. Numeric segments index into arrays.
func lookup(doc Document, path string) (any, bool) {
	var current any = map[string]any(doc)
	for _, segment := range strings.Split(path, ".") {
		if m, ok := asMap(current); ok {
			next, present := m[segment]
			if !present {
				return nil, false
			}
			current = next
			continue
		}
		if items, ok := asList(current); ok {
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(items) {
				return nil, false
			}
			current = items[idx]
			continue
		}
		return nil, false
	}
	return current, true
}

// sortedKeys makes evaluation order, and so the reported error, deterministic.
func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case Document:
		return t, true
	case Filter:
		return t, true
	case Update:
		return t, true
	case map[string]any:
		return t, true
	}
	return nil, false
}

// asList accepts []any and any other slice or array except []byte.
func asList(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		f := float64(n)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), true
		}
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
