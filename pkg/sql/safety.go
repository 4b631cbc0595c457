package sql

import (
	"strings"

	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
)

// forbiddenKeywords are rejected whenever they appear anywhere in the
// upper-cased query text, as plain substrings, not tokens. This is
// intentionally conservative and over-rejects (a string literal containing
// "update" is refused); collaborators rely on anything plausibly dangerous
// being rejected, so the filter may only ever be strengthened, never loosened.
var forbiddenKeywords = []string{
	"DROP",
	"DELETE",
	"INSERT",
	"UPDATE",
	"ALTER",
	"CREATE",
	"TRUNCATE",
	"EXECUTE",
	"EXEC",
	"REPLACE",
	"ATTACH",
	"DETACH",
}

// ValidateReadOnly rejects mutating statement text before anything executes.
// Returns apperrors.ErrUnsafeQuery naming the first keyword found.
func ValidateReadOnly(query string) error {
	upper := strings.ToUpper(query)
	for _, keyword := range forbiddenKeywords {
		if strings.Contains(upper, keyword) {
			return apperrors.UnsafeQueryError(keyword)
		}
	}
	return nil
}
