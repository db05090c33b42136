package importer

import "errors"

// Sentinel errors for imports.
var (
	ErrHeader = errors.New("invalid csv header")
	ErrOpen   = errors.New("cannot open import file")
)
