package sexpr

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Parser parses S-expressions from a lexer.
type Parser struct {
	lexer   *Lexer
	current Token
}

// NewParser creates a new parser from an io.Reader.
func NewParser(r io.Reader) *Parser {
	return &Parser{
		lexer: NewLexer(r),
	}
}

// ParseAll parses all top-level S-expressions from the input.
func (p *Parser) ParseAll() ([]*Node, error) {
	var result []*Node

	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	p.current = tok

	for p.current.Type != TokenEOF {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		result = append(result, expr)

		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		p.current = tok
	}

	return result, nil
}

// parseExpr parses a single S-expression.
func (p *Parser) parseExpr() (*Node, error) {
	switch p.current.Type {
	case TokenLeftParen:
		return p.parseList()

	case TokenSymbol:
		return &Node{Value: p.current.Value, Line: p.current.Line}, nil

	case TokenString:
		return &Node{Value: p.current.Value, Quoted: true, Line: p.current.Line}, nil

	case TokenRightParen:
		return nil, fmt.Errorf("line %d: unexpected ')'", p.current.Line)

	case TokenEOF:
		return nil, fmt.Errorf("line %d: unexpected EOF", p.current.Line)

	default:
		return nil, fmt.Errorf("line %d: unexpected token type %v", p.current.Line, p.current.Type)
	}
}

// parseList parses a list: ( ... )
func (p *Parser) parseList() (*Node, error) {
	if p.current.Type != TokenLeftParen {
		return nil, fmt.Errorf("line %d: expected '(', got %v", p.current.Line, p.current.Type)
	}

	node := &Node{Children: []*Node{}, Line: p.current.Line}

	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		p.current = tok

		if p.current.Type == TokenRightParen {
			break
		}

		if p.current.Type == TokenEOF {
			return nil, fmt.Errorf("line %d: unexpected EOF in list", node.Line)
		}

		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, elem)
	}

	return node, nil
}

// Parse parses all S-expressions from a reader.
func Parse(r io.Reader) ([]*Node, error) {
	return NewParser(r).ParseAll()
}

// ParseString parses all S-expressions from a string.
func ParseString(input string) ([]*Node, error) {
	return Parse(strings.NewReader(input))
}

// ParseFile parses all S-expressions from a file.
func ParseFile(filename string) ([]*Node, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}
