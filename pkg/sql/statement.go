// Package sql holds the statement and identifier checks shared by the
// datasource adapters.
package sql

import (
	"errors"
	"strings"
)

// ErrMultipleStatements indicates a metadata query contains more than one statement.
var ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

// NormalizeStatement trims a metadata query, strips one trailing semicolon and
// rejects anything that still contains a statement separator.
//
// Semicolons inside string literals, [bracketed] or "double-quoted"
// identifiers and comments are not separators. Quoted names use the doubled
// closing character as escape (]] '' "").
func NormalizeStatement(query string) (string, error) {
	normalized := stripTrailingSemicolon(strings.TrimSpace(query))
	if hasSeparator(normalized) {
		return "", ErrMultipleStatements
	}
	return normalized, nil
}

// hasSeparator scans byte-wise; every delimiter is ASCII so multi-byte
// runes never match.
func hasSeparator(query string) bool {
	n := len(query)
	for i := 0; i < n; i++ {
		switch query[i] {
		case ';':
			return true
		case '\'':
			i = skipQuoted(query, i+1, '\'')
		case '"':
			i = skipQuoted(query, i+1, '"')
		case '[':
			i = skipQuoted(query, i+1, ']')
		case '-':
			if i+1 < n && query[i+1] == '-' {
				if nl := strings.IndexByte(query[i:], '\n'); nl >= 0 {
					i += nl
				} else {
					i = n
				}
			}
		case '/':
			if i+1 < n && query[i+1] == '*' {
				if end := strings.Index(query[i+2:], "*/"); end >= 0 {
					i += end + 3
				} else {
					i = n
				}
			}
		}
	}
	return false
}

// skipQuoted returns the index of the closing delimiter that ends a quoted
// run starting at start, or len(query) when it never closes.
func skipQuoted(query string, start int, closing byte) int {
	for i := start; i < len(query); i++ {
		if query[i] != closing {
			continue
		}
		if i+1 < len(query) && query[i+1] == closing {
			i++
			continue
		}
		return i
	}
	return len(query)
}

func stripTrailingSemicolon(query string) string {
	query = strings.TrimRight(query, " \t\n\r")
	if strings.HasSuffix(query, ";") {
		query = strings.TrimRight(strings.TrimSuffix(query, ";"), " \t\n\r")
	}
	return query
}
