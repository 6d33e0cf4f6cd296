package instrument

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Serializer renders call arguments and results into the text stored in the
// input and output logs.
type Serializer interface {
	// SerializeArgs renders the positional arguments of one call as a tuple.
	SerializeArgs(args ...any) string
	// SerializeResult renders the value returned by one call.
	SerializeResult(result any) string
}

// Arguments lets an operation input expand into several positional arguments
// when it is written to the input log.
type Arguments interface {
	Arguments() []any
}

// Args is a ready made Arguments implementation for multi argument operations.
type Args []any

func (a Args) Arguments() []any { return a }

// defaultSerializer renders values with reflection. Strings are quoted, byte
// slices get a b prefix, maps are sorted by key so the output is deterministic.
type defaultSerializer struct{}

// NewDefaultSerializer returns the reflection based Serializer used by New.
func NewDefaultSerializer() Serializer {
	return &defaultSerializer{}
}

// SerializeArgs renders args as "(a, b, c)".
func (s *defaultSerializer) SerializeArgs(args ...any) string {
	if len(args) == 1 {
		if expanded, ok := args[0].(Arguments); ok {
			args = expanded.Arguments()
		}
	}

	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = s.serializeValue(arg)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// SerializeResult keeps textual results verbatim so a stored key reads back
// exactly as it was returned.
func (s *defaultSerializer) SerializeResult(result any) string {
	switch v := result.(type) {
	case nil:
		return "nil"
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	}
	return s.serializeValue(result)
}

func (s *defaultSerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Func:
		return fmt.Sprintf("func:%p", v)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.String:
		return strconv.Quote(rv.String())
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return "b" + strconv.Quote(string(rv.Bytes()))
		}
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeList(rv)
	case reflect.Array:
		return s.serializeList(rv)
	case reflect.Map:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeMap(rv)
	case reflect.Struct:
		return s.serializeStruct(rv, rt)
	}

	if isBasicKind(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	return s.jsonFallback(v)
}

func (s *defaultSerializer) serializeList(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = s.serializeValue(rv.Index(i).Interface())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (s *defaultSerializer) serializeMap(rv reflect.Value) string {
	type pair struct{ key, value string }

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{
			key:   s.serializeValue(iter.Key().Interface()),
			value: s.serializeValue(iter.Value().Interface()),
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.key + ": " + p.value
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// serializeStruct only looks at exported fields.
func (s *defaultSerializer) serializeStruct(rv reflect.Value, rt reflect.Type) string {
	parts := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+": "+s.serializeValue(rv.Field(i).Interface()))
	}
	return rt.Name() + "{" + strings.Join(parts, ", ") + "}"
}

func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

func (s *defaultSerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("fallback:%T", v)
	}
	return "json:" + string(data)
}
