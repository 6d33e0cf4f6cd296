package instrument

import (
	"errors"
	"strings"
	"testing"
)

type point struct {
	X, Y   int
	hidden string
}

type label string

func (l label) String() string { return "label:" + string(l) }

func TestDefaultSerializer_SerializeArgs(t *testing.T) {
	serializer := NewDefaultSerializer()
	ptr := 7

	tests := []struct {
		name string
		args []any
		want string
	}{
		{name: "no args", args: nil, want: "()"},
		{name: "string is quoted", args: []any{"foo"}, want: `("foo")`},
		{name: "quote escaping", args: []any{`say "hi"`}, want: `("say \"hi\"")`},
		{name: "bytes", args: []any{[]byte("bar")}, want: `(b"bar")`},
		{name: "binary bytes", args: []any{[]byte{0x00, 0xff}}, want: `(b"\x00\xff")`},
		{name: "int", args: []any{42}, want: "(42)"},
		{name: "float", args: []any{3.5}, want: "(3.5)"},
		{name: "several", args: []any{1, "a", true}, want: `(1, "a", true)`},
		{name: "nil", args: []any{nil}, want: "(nil)"},
		{name: "pointer", args: []any{&ptr}, want: "(7)"},
		{name: "nil pointer", args: []any{(*int)(nil)}, want: "(nil)"},
		{name: "slice", args: []any{[]string{"Algebra", "C"}}, want: `(["Algebra", "C"])`},
		{name: "nil slice", args: []any{[]int(nil)}, want: "(nil)"},
		{name: "array", args: []any{[2]int{1, 2}}, want: "([1, 2])"},
		{name: "struct skips unexported", args: []any{point{X: 1, Y: 2, hidden: "x"}}, want: "(point{X: 1, Y: 2})"},
		{name: "expanded Args", args: []any{Args{"k", 1}}, want: `("k", 1)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeArgs(tt.args...)
			if got != tt.want {
				t.Errorf("SerializeArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultSerializer_MapsAreDeterministic(t *testing.T) {
	serializer := NewDefaultSerializer()
	m := map[string]int{"c": 3, "a": 1, "b": 2}

	want := `({"a": 1, "b": 2, "c": 3})`
	for i := 0; i < 20; i++ {
		if got := serializer.SerializeArgs(m); got != want {
			t.Fatalf("SerializeArgs() = %v, want %v", got, want)
		}
	}
}

func TestDefaultSerializer_Functions(t *testing.T) {
	serializer := NewDefaultSerializer()
	fn := func() {}

	got := serializer.SerializeArgs(fn)
	if !strings.HasPrefix(got, "(func:0x") {
		t.Errorf("expected function pointer rendering, got %v", got)
	}
	if again := serializer.SerializeArgs(fn); again != got {
		t.Errorf("function rendering not stable: %v vs %v", got, again)
	}
}

func TestDefaultSerializer_SerializeResult(t *testing.T) {
	serializer := NewDefaultSerializer()

	tests := []struct {
		name   string
		result any
		want   string
	}{
		{name: "string verbatim", result: "0b6f3c2e-key", want: "0b6f3c2e-key"},
		{name: "bytes verbatim", result: []byte("raw"), want: "raw"},
		{name: "stringer", result: label("x"), want: "label:x"},
		{name: "error", result: errors.New("boom"), want: "boom"},
		{name: "nil", result: nil, want: "nil"},
		{name: "int", result: 12, want: "12"},
		{name: "slice", result: []int{1, 2}, want: "[1, 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := serializer.SerializeResult(tt.result); got != tt.want {
				t.Errorf("SerializeResult() = %v, want %v", got, tt.want)
			}
		})
	}
}
