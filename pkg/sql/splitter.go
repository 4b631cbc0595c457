package sql

import "strings"

// SplitStatements splits a SQL script into `;`-terminated statements while
// honoring string literals, backtick-quoted identifiers, `--` line comments,
// and `/* */` block comments. Comment text is dropped; empty statements are
// not returned.
func SplitStatements(script string) []string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateBacktick
		stateLineComment
		stateBlockComment
	)

	var statements []string
	var current strings.Builder

	state := stateNormal
	runes := []rune(script)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		current.Reset()
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case ch == ';':
				flush()
				continue
			case ch == '\'':
				state = stateSingleQuote
			case ch == '"':
				state = stateDoubleQuote
			case ch == '`':
				state = stateBacktick
			case ch == '-' && next == '-':
				state = stateLineComment
				i++
				continue
			case ch == '/' && next == '*':
				state = stateBlockComment
				i++
				continue
			}
			current.WriteRune(ch)

		case stateSingleQuote:
			current.WriteRune(ch)
			if ch == '\\' && next != 0 {
				current.WriteRune(next)
				i++
				continue
			}
			if ch == '\'' {
				state = stateNormal
			}

		case stateDoubleQuote:
			current.WriteRune(ch)
			if ch == '"' {
				state = stateNormal
			}

		case stateBacktick:
			current.WriteRune(ch)
			if ch == '`' {
				state = stateNormal
			}

		case stateLineComment:
			if ch == '\n' {
				state = stateNormal
				current.WriteRune(ch)
			}

		case stateBlockComment:
			if ch == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	flush()
	return statements
}
