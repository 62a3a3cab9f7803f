package domain

import (
	"errors"
	"fmt"
)

// ErrCategoryNotFound is returned by Resolve when a link does not map onto
// the built tree.
var ErrCategoryNotFound = errors.New("category not found")

// DuplicateKeyError reports an offer whose article or barcode was already
// claimed earlier in the run. It aborts the remaining offers of the current
// product only.
type DuplicateKeyError struct {
	Article string
	Barcode string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate offer key: article %q, barcode %q", e.Article, e.Barcode)
}
