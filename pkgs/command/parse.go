package command

import (
	"strconv"
	"strings"

	"github.com/espalier-cmd/espalier/pkgs/cmderr"
)

// divider separates tokens in a command line.
const divider = ' '

// ParseResult is the outcome of a node's own parsing step. Consumed is the
// number of characters of the given text the node read; it must be at least
// one for any non-terminal match.
type ParseResult struct {
	Value    any
	Consumed int
}

// ParseFunc is the self-parse contract for custom argument nodes: consume a
// prefix of text and return the parsed value, or return a *cmderr.Error
// whose kind descends from cmderr.Syntax and whose Offset is the number of
// characters consumed before the failure point.
type ParseFunc func(text string) (ParseResult, error)

// nextToken returns the leading run of non-divider characters.
func nextToken(text string) string {
	if i := strings.IndexByte(text, divider); i >= 0 {
		return text[:i]
	}
	return text
}

// skipDivider drops the token dividers that separate a consumed token from
// the rest of the line.
func skipDivider(text string) string {
	i := 0
	for i < len(text) && text[i] == divider {
		i++
	}
	return text[i:]
}

// parseInteger reads a maximal token and converts it to int64. On conversion
// failure the error offset spans the whole attempted token.
func parseInteger(text string) (ParseResult, error) {
	tok := nextToken(text)
	value, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return ParseResult{}, cmderr.New(cmderr.InvalidInteger, len(tok), "invalid integer %q", tok)
	}
	return ParseResult{Value: value, Consumed: len(tok)}, nil
}

// parseFloat reads a maximal token and converts it to float64.
func parseFloat(text string) (ParseResult, error) {
	tok := nextToken(text)
	value, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return ParseResult{}, cmderr.New(cmderr.InvalidFloat, len(tok), "invalid float %q", tok)
	}
	return ParseResult{Value: value, Consumed: len(tok)}, nil
}

// parseNumber reads a maximal token and converts it to int64 when possible,
// else float64.
func parseNumber(text string) (ParseResult, error) {
	tok := nextToken(text)
	if value, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return ParseResult{Value: value, Consumed: len(tok)}, nil
	}
	if value, err := strconv.ParseFloat(tok, 64); err == nil {
		return ParseResult{Value: value, Consumed: len(tok)}, nil
	}
	return ParseResult{}, cmderr.New(cmderr.InvalidNumber, len(tok), "invalid number %q", tok)
}

// parseText reads the maximal run of non-divider characters.
func parseText(text string) (ParseResult, error) {
	tok := nextToken(text)
	if tok == "" {
		return ParseResult{}, cmderr.New(cmderr.Syntax, 0, "expected text")
	}
	return ParseResult{Value: tok, Consumed: len(tok)}, nil
}

// parseQuotableText behaves like parseText unless the text starts with a
// double quote. A quoted run supports the escapes \" and \\; the consumed
// length includes both quote characters while the decoded value excludes
// them.
func parseQuotableText(text string) (ParseResult, error) {
	if !strings.HasPrefix(text, `"`) {
		return parseText(text)
	}
	var decoded strings.Builder
	escaped := false
	for i := 1; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			if c != '"' && c != '\\' {
				return ParseResult{}, cmderr.New(cmderr.IllegalEscape, i+1, `illegal escape \%c in quoted text`, c)
			}
			decoded.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			return ParseResult{Value: decoded.String(), Consumed: i + 1}, nil
		default:
			decoded.WriteByte(c)
		}
	}
	return ParseResult{}, cmderr.New(cmderr.UnterminatedQuote, len(text), "unterminated quoted text")
}

// parseGreedy consumes the entire remaining text verbatim.
func parseGreedy(text string) (ParseResult, error) {
	if text == "" {
		return ParseResult{}, cmderr.New(cmderr.Syntax, 0, "expected text")
	}
	return ParseResult{Value: text, Consumed: len(text)}, nil
}
