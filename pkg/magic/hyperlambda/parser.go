package hyperlambda

import (
	"strings"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
)

// IndentSize is the number of spaces per nesting level.
const IndentSize = 3

// maxParts is name, type and value.
const maxParts = 3

// part is one separator-delimited component of a line
type part struct {
	text string
	tok  Token
}

// Parser builds a node tree from Hyperlambda tokens
type Parser struct {
	l *Lexer
}

// NewParser creates a new Hyperlambda parser
func NewParser(input string) *Parser {
	return &Parser{l: NewLexer(input)}
}

// Parse returns an unnamed root node holding one child per top-level line.
func (p *Parser) Parse() (*lambda.Node, error) {
	root := lambda.New("", nil)
	// parents[level] is the node that receives children at that level
	parents := []*lambda.Node{root}

	for {
		tok, err := p.l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			return root, nil
		}

		spaces := len(tok.Literal)
		if spaces%IndentSize != 0 {
			return nil, perrors.NewWithPosition("PARSE-0002", tok.Line, tok.Column, map[string]any{"Spaces": spaces})
		}
		level := spaces / IndentSize
		if level > len(parents)-1 {
			return nil, perrors.NewWithPosition("PARSE-0003", tok.Line, tok.Column, nil)
		}

		parts, err := p.readLine()
		if err != nil {
			return nil, err
		}
		node, err := buildNode(parts)
		if err != nil {
			return nil, err
		}

		parents = parents[:level+1]
		parents[level].Add(node)
		parents = append(parents, node)
	}
}

// readLine collects the parts of one line, consuming its line ending.
func (p *Parser) readLine() ([]part, error) {
	var parts []part
	expectValue := true
	var last Token

	for {
		tok, err := p.l.NextToken()
		if err != nil {
			return nil, err
		}

		switch tok.Type {
		case WORD, STRING, RAWSTRING:
			if !expectValue {
				return nil, perrors.NewWithPosition("PARSE-0007", tok.Line, tok.Column, map[string]any{"Token": tok.Literal})
			}
			parts = append(parts, part{text: tok.Literal, tok: tok})
			expectValue = false

		case SEPARATOR:
			if expectValue {
				// empty component, as in ":value"
				parts = append(parts, part{tok: tok})
			}
			expectValue = true

		case NEWLINE, EOF:
			if expectValue {
				return nil, perrors.NewWithPosition("PARSE-0005", last.Line, last.Column, map[string]any{"Token": parts[len(parts)-1].text})
			}
			if len(parts) > maxParts {
				extra := parts[maxParts]
				return nil, perrors.NewWithPosition("PARSE-0006", extra.tok.Line, extra.tok.Column, nil)
			}
			return parts, nil

		default:
			return nil, perrors.NewWithPosition("PARSE-0007", tok.Line, tok.Column, map[string]any{"Token": tok.Literal})
		}
		last = tok
	}
}

// buildNode turns name, name:value or name:type:value into a node.
func buildNode(parts []part) (*lambda.Node, error) {
	node := lambda.New(parts[0].text, nil)
	switch len(parts) {
	case 2:
		node.Value = parts[1].text
	case 3:
		tag := parts[1]
		if !lambda.IsKnownType(tag.text) {
			return nil, perrors.NewWithPosition("PARSE-0004", tag.tok.Line, tag.tok.Column, map[string]any{"Type": tag.text})
		}
		value, err := lambda.FromString(parts[2].text, tag.text)
		if err != nil {
			return nil, conversionError(err, parts[2], tag.text)
		}
		node.Value = value
	}
	return node, nil
}

func conversionError(err error, p part, tag string) error {
	me, ok := err.(*perrors.MagicError)
	if !ok {
		return err
	}
	if me.IsSyntaxError() {
		return me.WithPosition(p.tok.Line, p.tok.Column)
	}
	reason := me.Message
	if r, ok := me.Data["Reason"].(string); ok {
		reason = r
	}
	return perrors.NewWithPosition("PARSE-0009", p.tok.Line, p.tok.Column, map[string]any{
		"Value":  abbreviate(p.text),
		"Type":   tag,
		"Reason": reason,
	})
}

func abbreviate(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 40 {
		return s[:37] + "..."
	}
	return s
}
