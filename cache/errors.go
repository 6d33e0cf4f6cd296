package cache

import goerrors "github.com/goliatone/go-errors"

const (
	TextCodeDecode           = "CACHE_DECODE"
	TextCodeUnsupportedValue = "CACHE_UNSUPPORTED_VALUE"
)

var (
	// ErrDecode is returned when a stored value exists but the decoder rejects
	// it. A missing key is not an error; see Retrieve.
	ErrDecode = goerrors.New("stored value cannot be decoded", goerrors.CategoryBadInput).
			WithTextCode(TextCodeDecode)

	// ErrUnsupportedValue is returned by Store for values other than text,
	// bytes and numbers.
	ErrUnsupportedValue = goerrors.New("unsupported value type", goerrors.CategoryBadInput).
				WithTextCode(TextCodeUnsupportedValue)
)
