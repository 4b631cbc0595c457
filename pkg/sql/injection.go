package sql

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
)

// CheckIdentifierArgument screens a caller-supplied identifier (a table or
// collection name passed to Sample) with libinjection before it is spliced
// into generated SQL. This supplements, never replaces, the keyword filter;
// it applies to individual values only, never to whole query text.
func CheckIdentifierArgument(name string) error {
	if name == "" {
		return nil
	}
	if isSQLi, fingerprint := libinjection.IsSQLi(name); isSQLi {
		return fmt.Errorf("%w: identifier %q matches injection fingerprint %s",
			apperrors.ErrUnsafeQuery, name, fingerprint)
	}
	return nil
}
