package hyperlambda

import (
	"fmt"
	"strconv"
	"strings"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
)

// TokenType represents different types of Hyperlambda tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Layout
	INDENT  // leading spaces of a line
	NEWLINE // \r\n or \n

	// Content
	WORD      // bare text up to the next separator or line end
	STRING    // "quoted" or 'quoted', escapes decoded
	RAWSTRING // @"multi-line", "" decoded

	SEPARATOR // :
)

// Token represents a single Hyperlambda token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// String returns a string representation of the token type
func (t TokenType) String() string {
	switch t {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case INDENT:
		return "INDENT"
	case NEWLINE:
		return "NEWLINE"
	case WORD:
		return "WORD"
	case STRING:
		return "STRING"
	case RAWSTRING:
		return "RAWSTRING"
	case SEPARATOR:
		return "SEPARATOR"
	default:
		return fmt.Sprintf("TokenType(%d)", t)
	}
}

// Lexer tokenizes Hyperlambda input
type Lexer struct {
	input       string
	pos         int // current position in input
	line        int // current line number (1-indexed)
	column      int // current column number (1-indexed, in runes)
	atLineStart bool
}

// NewLexer creates a new Hyperlambda lexer
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1, column: 1, atLineStart: true}
}

// ch returns the byte at the current position, or 0 at end of input
func (l *Lexer) ch() byte {
	return l.peek(0)
}

// peek returns the byte n positions ahead without advancing
func (l *Lexer) peek(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

// advance consumes one byte, tracking line and column
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	c := l.input[l.pos]
	l.pos++
	switch {
	case c == '\n':
		l.line++
		l.column = 1
	case c&0xC0 != 0x80:
		// count runes, not continuation bytes
		l.column++
	}
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) atNewline() bool {
	return l.ch() == '\n' || (l.ch() == '\r' && l.peek(1) == '\n') || l.ch() == '\r'
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	if l.atLineStart {
		return l.readIndent()
	}

	tok := Token{Line: l.line, Column: l.column}

	switch {
	case l.atEOF():
		tok.Type = EOF
		return tok, nil
	case l.atNewline():
		tok.Type = NEWLINE
		tok.Literal = l.readNewline()
		l.atLineStart = true
		return tok, nil
	case l.ch() == ':':
		tok.Type = SEPARATOR
		tok.Literal = ":"
		l.advance()
		return tok, nil
	case l.ch() == '"' || l.ch() == '\'':
		lit, err := l.readString()
		if err != nil {
			return tok, err
		}
		tok.Type = STRING
		tok.Literal = lit
		return tok, nil
	case l.ch() == '@' && l.peek(1) == '"':
		lit, err := l.readRawString()
		if err != nil {
			return tok, err
		}
		tok.Type = RAWSTRING
		tok.Literal = lit
		return tok, nil
	default:
		tok.Type = WORD
		tok.Literal = l.readWord()
		return tok, nil
	}
}

// readIndent consumes blank lines and comment lines, then returns the
// indentation of the next content line, or EOF.
func (l *Lexer) readIndent() (Token, error) {
	for {
		line := l.line
		start := l.pos
		for l.ch() == ' ' {
			l.advance()
		}
		spaces := l.pos - start

		switch {
		case l.atEOF():
			return Token{Type: EOF, Line: l.line, Column: l.column}, nil
		case l.atNewline():
			l.readNewline()
			continue
		case l.ch() == '/' && l.peek(1) == '/':
			l.skipLineComment()
			continue
		case l.ch() == '/' && l.peek(1) == '*':
			if err := l.skipBlockComment(); err != nil {
				return Token{}, err
			}
			continue
		}

		l.atLineStart = false
		return Token{Type: INDENT, Literal: strings.Repeat(" ", spaces), Line: line, Column: 1}, nil
	}
}

func (l *Lexer) readNewline() string {
	if l.ch() == '\r' && l.peek(1) == '\n' {
		l.advance()
		l.advance()
		return "\r\n"
	}
	c := l.ch()
	if c == '\r' {
		// a lone CR ends a line but does not move the line counter in advance()
		l.pos++
		l.line++
		l.column = 1
		return "\r"
	}
	l.advance()
	return string(c)
}

// skipLineComment skips a // comment including its line ending
func (l *Lexer) skipLineComment() {
	for !l.atEOF() && !l.atNewline() {
		l.advance()
	}
	if !l.atEOF() {
		l.readNewline()
	}
}

// skipBlockComment skips a /* */ comment and the rest of the line it ends on
func (l *Lexer) skipBlockComment() error {
	line, col := l.line, l.column
	end := strings.Index(l.input[l.pos+2:], "*/")
	if end < 0 {
		return perrors.NewWithPosition("PARSE-0011", line, col, nil)
	}
	stop := l.pos + 2 + end + 2
	for l.pos < stop {
		if l.ch() == '\r' && l.peek(1) != '\n' {
			l.readNewline()
			continue
		}
		l.advance()
	}
	for l.ch() == ' ' {
		l.advance()
	}
	if l.atEOF() {
		return nil
	}
	if !l.atNewline() {
		return perrors.NewWithPosition("PARSE-0007", l.line, l.column, map[string]any{"Token": l.restOfLine()})
	}
	l.readNewline()
	return nil
}

func (l *Lexer) restOfLine() string {
	rest := l.input[l.pos:]
	if i := strings.IndexAny(rest, "\r\n"); i >= 0 {
		return rest[:i]
	}
	return rest
}

// readWord reads bare text up to a separator or the end of the line
func (l *Lexer) readWord() string {
	start := l.pos
	for !l.atEOF() && !l.atNewline() && l.ch() != ':' {
		l.advance()
	}
	return l.input[start:l.pos]
}

// readString reads a single-line quoted string with escape sequences
func (l *Lexer) readString() (string, error) {
	line, col := l.line, l.column
	quote := l.ch()
	l.advance()

	var sb strings.Builder
	for {
		if l.atEOF() || l.atNewline() {
			return "", perrors.NewWithPosition("PARSE-0001", line, col, nil)
		}
		c := l.ch()
		if c == quote {
			l.advance()
			return sb.String(), nil
		}
		if c != '\\' {
			sb.WriteByte(c)
			l.advance()
			continue
		}

		l.advance()
		esc := l.ch()
		switch esc {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '"', '\'':
			sb.WriteByte(esc)
		case 'x':
			if l.pos+5 > len(l.input) {
				return "", perrors.NewWithPosition("PARSE-0008", l.line, l.column, map[string]any{"Escape": "x"})
			}
			hex := l.input[l.pos+1 : l.pos+5]
			r, err := strconv.ParseUint(hex, 16, 32)
			if err != nil {
				return "", perrors.NewWithPosition("PARSE-0008", l.line, l.column, map[string]any{"Escape": "x" + hex})
			}
			sb.WriteRune(rune(r))
			for range 4 {
				l.advance()
			}
		case 0:
			return "", perrors.NewWithPosition("PARSE-0001", line, col, nil)
		default:
			return "", perrors.NewWithPosition("PARSE-0008", l.line, l.column, map[string]any{"Escape": string(esc)})
		}
		l.advance()
	}
}

// readRawString reads an @"..." string that may span lines; "" stands for one quote
func (l *Lexer) readRawString() (string, error) {
	line, col := l.line, l.column
	l.advance() // @
	l.advance() // "

	var sb strings.Builder
	for {
		if l.atEOF() {
			return "", perrors.NewWithPosition("PARSE-0001", line, col, nil)
		}
		c := l.ch()
		if c == '"' {
			if l.peek(1) == '"' {
				sb.WriteByte('"')
				l.advance()
				l.advance()
				continue
			}
			l.advance()
			return sb.String(), nil
		}
		if c == '\r' && l.peek(1) != '\n' {
			sb.WriteString(l.readNewline())
			continue
		}
		sb.WriteByte(c)
		l.advance()
	}
}
