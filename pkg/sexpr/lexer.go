package sexpr

import (
	"fmt"
	"io"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenSymbol
	TokenString
)

// Token represents a lexical token with its source line.
type Token struct {
	Type  TokenType
	Value string
	Line  int
}

// Lexer tokenizes S-expressions. The whole input is buffered up front;
// board files are read once and scanned by byte offset, with the line
// counter advanced as the cursor moves. All structural characters are
// ASCII, so multi-byte runes only ever appear inside symbols and
// strings and pass through untouched.
type Lexer struct {
	src     []byte
	pos     int
	line    int
	readErr error
}

// NewLexer creates a new lexer.
func NewLexer(r io.Reader) *Lexer {
	src, err := io.ReadAll(r)
	return &Lexer{src: src, line: 1, readErr: err}
}

// NextToken reads the next token from the input.
func (l *Lexer) NextToken() (Token, error) {
	if l.readErr != nil {
		return Token{}, l.readErr
	}

	l.skipBlank()
	if l.pos >= len(l.src) {
		return Token{Type: TokenEOF, Line: l.line}, nil
	}

	switch c := l.src[l.pos]; c {
	case '(':
		l.pos++
		return Token{Type: TokenLeftParen, Value: "(", Line: l.line}, nil
	case ')':
		l.pos++
		return Token{Type: TokenRightParen, Value: ")", Line: l.line}, nil
	case '"':
		return l.lexString()
	default:
		return l.lexSymbol(), nil
	}
}

// skipBlank advances past whitespace and # / ; line comments.
func (l *Lexer) skipBlank() {
	for l.pos < len(l.src) {
		switch c := l.src[l.pos]; {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '#' || c == ';':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

// lexString scans a quoted string, resolving backslash escapes.
func (l *Lexer) lexString() (Token, error) {
	startLine := l.line
	l.pos++ // opening quote

	var out []byte
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		switch c {
		case '"':
			return Token{Type: TokenString, Value: string(out), Line: startLine}, nil
		case '\\':
			if l.pos >= len(l.src) {
				return Token{}, fmt.Errorf("line %d: unterminated string escape", startLine)
			}
			esc := l.src[l.pos]
			l.pos++
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, esc)
			}
		case '\n':
			l.line++
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return Token{}, fmt.Errorf("line %d: unterminated string", startLine)
}

// lexSymbol scans a bare symbol up to the next delimiter. Newlines
// cannot appear inside a symbol, so the line counter stays put.
func (l *Lexer) lexSymbol() Token {
	start := l.pos
	for l.pos < len(l.src) && !isDelimiter(l.src[l.pos]) {
		l.pos++
	}
	return Token{Type: TokenSymbol, Value: string(l.src[start:l.pos]), Line: l.line}
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '(', ')', '"':
		return true
	}
	return false
}
