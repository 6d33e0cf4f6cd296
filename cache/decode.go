package cache

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Decoder turns the raw bytes of a stored value into a Go value.
type Decoder func(raw []byte) (any, error)

// AsDecoder adapts a typed decode function to a Decoder.
func AsDecoder[T any](decode func([]byte) (T, error)) Decoder {
	return func(raw []byte) (any, error) {
		return decode(raw)
	}
}

// DecodeBytes returns raw unchanged.
func DecodeBytes(raw []byte) ([]byte, error) {
	return raw, nil
}

// DecodeString requires raw to be valid UTF-8.
func DecodeString(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: value is not valid UTF-8", ErrDecode)
	}
	return string(raw), nil
}

// DecodeInt accepts a base 10 integer literal with an optional sign and
// nothing else, surrounding whitespace included.
func DecodeInt(raw []byte) (int64, error) {
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrDecode, raw)
	}
	return n, nil
}

// DecodeFloat accepts anything strconv.ParseFloat does, which covers every
// float rendering Store produces.
func DecodeFloat(raw []byte) (float64, error) {
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrDecode, raw)
	}
	return f, nil
}

// DecodeFloat32 parses raw at float32 precision. A float32 stored with Store
// comes back bit for bit, while DecodeFloat returns its shortest decimal as a
// float64, so float32(0.1) reads back as 0.1 rather than
// float64(float32(0.1)).
func DecodeFloat32(raw []byte) (float32, error) {
	f, err := strconv.ParseFloat(string(raw), 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a float32", ErrDecode, raw)
	}
	return float32(f), nil
}

// encodeValue renders the values Store accepts. Numbers are stored as their
// decimal text so they decode with DecodeInt, DecodeFloat or DecodeFloat32.
func encodeValue(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case int:
		return []byte(strconv.FormatInt(int64(v), 10)), nil
	case int8:
		return []byte(strconv.FormatInt(int64(v), 10)), nil
	case int16:
		return []byte(strconv.FormatInt(int64(v), 10)), nil
	case int32:
		return []byte(strconv.FormatInt(int64(v), 10)), nil
	case int64:
		return []byte(strconv.FormatInt(v, 10)), nil
	case uint:
		return []byte(strconv.FormatUint(uint64(v), 10)), nil
	case uint8:
		return []byte(strconv.FormatUint(uint64(v), 10)), nil
	case uint16:
		return []byte(strconv.FormatUint(uint64(v), 10)), nil
	case uint32:
		return []byte(strconv.FormatUint(uint64(v), 10)), nil
	case uint64:
		return []byte(strconv.FormatUint(v, 10)), nil
	case float32:
		return []byte(strconv.FormatFloat(float64(v), 'f', -1, 32)), nil
	case float64:
		return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
}
