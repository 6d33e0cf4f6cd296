package docstore

import goerrors "github.com/goliatone/go-errors"

const (
	TextCodeUnsupportedOperator = "DOCSTORE_UNSUPPORTED_OPERATOR"
	TextCodeInvalidFilter       = "DOCSTORE_INVALID_FILTER"
	TextCodeInvalidUpdate       = "DOCSTORE_INVALID_UPDATE"
	TextCodeImmutableID         = "DOCSTORE_IMMUTABLE_ID"
	TextCodeDuplicateID         = "DOCSTORE_DUPLICATE_ID"
	TextCodeInvalidDocument     = "DOCSTORE_INVALID_DOCUMENT"
)

var (
	// ErrUnsupportedOperator is returned for query or update operators the
	// matcher does not implement.
	ErrUnsupportedOperator = goerrors.New("unsupported operator", goerrors.CategoryBadInput).
				WithTextCode(TextCodeUnsupportedOperator)

	// ErrInvalidFilter is returned when an operator receives an argument of the wrong shape.
	ErrInvalidFilter = goerrors.New("invalid filter", goerrors.CategoryBadInput).
				WithTextCode(TextCodeInvalidFilter)

	// ErrInvalidUpdate is returned for updates without operators or with malformed paths.
	ErrInvalidUpdate = goerrors.New("invalid update", goerrors.CategoryBadInput).
				WithTextCode(TextCodeInvalidUpdate)

	// ErrImmutableID is returned when an update would change a document's _id.
	ErrImmutableID = goerrors.New("the _id field cannot be modified", goerrors.CategoryBadInput).
			WithTextCode(TextCodeImmutableID)

	// ErrDuplicateID is returned by InsertOne when the _id is already taken.
	ErrDuplicateID = goerrors.New("duplicate _id", goerrors.CategoryConflict).
			WithTextCode(TextCodeDuplicateID)

	// ErrInvalidDocument is returned when encoded documents cannot be decoded.
	ErrInvalidDocument = goerrors.New("invalid document", goerrors.CategoryBadInput).
				WithTextCode(TextCodeInvalidDocument)
)
