package sql

import (
	"regexp"
	"strings"
)

// Dialect translation rewrites a MySQL-flavored dump statement into SQLite
// vocabulary before replay. Deliberately heuristic and bounded: type names are
// substituted by family, engine-specific clauses are stripped, and quoting is
// normalized. It is not a SQL parser.
var (
	// Type families, substituted in order. Length qualifiers are dropped with
	// the type name (VARCHAR(255) -> TEXT).
	textTypePattern = regexp.MustCompile(`(?i)\b(?:VARCHAR|CHAR)\s*\(\s*\d+\s*\)|\b(?:LONGTEXT|MEDIUMTEXT|TINYTEXT|VARCHAR|NVARCHAR)\b|\bENUM\s*\([^)]*\)`)
	intTypePattern  = regexp.MustCompile(`(?i)\b(?:BIGINT|MEDIUMINT|SMALLINT|TINYINT|INT)\s*\(\s*\d+\s*\)|\b(?:BIGINT|MEDIUMINT|SMALLINT|TINYINT)\b`)
	realTypePattern = regexp.MustCompile(`(?i)\b(?:DECIMAL|NUMERIC)\s*\(\s*\d+\s*(?:,\s*\d+\s*)?\)|\b(?:DECIMAL|NUMERIC|DOUBLE(?:\s+PRECISION)?|FLOAT)\b`)
	timeTypePattern = regexp.MustCompile(`(?i)\b(?:DATETIME|TIMESTAMP|DATE|TIME)\b`)

	// Engine-specific clauses with no SQLite equivalent.
	enginePattern        = regexp.MustCompile(`(?i)\s*ENGINE\s*=\s*\w+`)
	charsetPattern       = regexp.MustCompile(`(?i)\s*DEFAULT\s+CHARSET\s*=\s*\w+|\s*CHARACTER\s+SET\s+\w+`)
	collatePattern       = regexp.MustCompile(`(?i)\s*COLLATE[\s=]+[\w]+`)
	autoIncSeedPattern   = regexp.MustCompile(`(?i)\s*AUTO_INCREMENT\s*=\s*\d+`)
	unsignedPattern      = regexp.MustCompile(`(?i)\s+UNSIGNED\b`)
	onUpdateStampPattern = regexp.MustCompile(`(?i)\s*ON\s+UPDATE\s+CURRENT_TIMESTAMP`)

	// AUTOINCREMENT is only legal immediately after PRIMARY KEY in the
	// embedded engine; anywhere else the attribute is dropped and rowid
	// assignment covers it.
	pkAutoIncPattern   = regexp.MustCompile(`(?i)\bPRIMARY\s+KEY\s+AUTO_INCREMENT\b`)
	bareAutoIncPattern = regexp.MustCompile(`(?i)\s*\bAUTO_INCREMENT\b`)
)

// TranslateStatement rewrites one foreign statement for replay into the
// embedded engine. Idempotent on already-translated text.
func TranslateStatement(stmt string) string {
	translated := stmt

	// Clause stripping first, so the seed form AUTO_INCREMENT=n is gone before
	// the keyword rewrite.
	translated = enginePattern.ReplaceAllString(translated, "")
	translated = charsetPattern.ReplaceAllString(translated, "")
	translated = collatePattern.ReplaceAllString(translated, "")
	translated = autoIncSeedPattern.ReplaceAllString(translated, "")
	translated = unsignedPattern.ReplaceAllString(translated, "")
	translated = onUpdateStampPattern.ReplaceAllString(translated, "")

	translated = pkAutoIncPattern.ReplaceAllString(translated, "PRIMARY KEY AUTOINCREMENT")
	translated = bareAutoIncPattern.ReplaceAllString(translated, "")

	translated = textTypePattern.ReplaceAllString(translated, "TEXT")
	translated = intTypePattern.ReplaceAllString(translated, "INTEGER")
	translated = realTypePattern.ReplaceAllString(translated, "REAL")
	translated = timeTypePattern.ReplaceAllString(translated, "TEXT")

	// Identifier quoting: backticks -> double quotes.
	translated = strings.ReplaceAll(translated, "`", `"`)

	return strings.TrimSpace(translated)
}

// sessionStatementPrefixes identify driver/session-management statements with
// no equivalent in the embedded engine. They are skipped before translation,
// not treated as failures.
var sessionStatementPrefixes = []string{
	"CREATE DATABASE",
	"CREATE SCHEMA",
	"USE ",
	"SET ",
	"START TRANSACTION",
	"BEGIN",
	"COMMIT",
	"ROLLBACK",
	"LOCK TABLES",
	"UNLOCK TABLES",
}

// IsSessionStatement reports whether the statement manages the connection or
// transaction rather than defining or populating data.
func IsSessionStatement(stmt string) bool {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	for _, prefix := range sessionStatementPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}
