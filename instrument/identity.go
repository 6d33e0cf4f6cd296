package instrument

import (
	"reflect"
	"runtime"
	"strings"
	"unicode"
)

// Keys are the store keys that hold the state of one operation identity.
type Keys struct {
	Counter string
	Inputs  string
	Outputs string
}

func keysFor(prefix, identity string) Keys {
	base := prefix + identity
	return Keys{
		Counter: base,
		Inputs:  base + ":inputs",
		Outputs: base + ":outputs",
	}
}

// IdentityOf derives an operation identity from a function value using its
// runtime name, reduced to "pkg.Type.Method" (or "pkg.Func").
//
// Method values such as c.Store resolve to the method, not the receiver, so two
// instances of the same type share an identity. Closures resolve to their
// compiler generated names (pkg.Outer.func1), which are only stable for a given
// build. Returns "" when fn is not a function.
func IdentityOf(fn any) string {
	if fn == nil {
		return ""
	}
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return ""
	}

	f := runtime.FuncForPC(rv.Pointer())
	if f == nil {
		return ""
	}

	name := strings.TrimSuffix(f.Name(), "-fm")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.NewReplacer("(*", "", "(", "", ")", "").Replace(name)
}

// namespacePrefix turns a free form namespace into a key prefix.
func namespacePrefix(namespace string) string {
	ns := toSnake(namespace)
	if ns == "" {
		return ""
	}
	return ns + ":"
}

// toSnake converts the provided string to snake_case using ASCII-aware rules.
// Punctuation collapses into single underscores so a namespace never injects
// the ":" separator used between key segments.
func toSnake(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	lastUnderscore := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if (unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower) && !lastUnderscore {
					b.WriteByte('_')
					lastUnderscore = true
				}
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false

		case unicode.IsLower(r), unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false

		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.Trim(b.String(), "_")
}
