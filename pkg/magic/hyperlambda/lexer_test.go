package hyperlambda

import (
	"testing"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
)

func lexAll(t *testing.T, input string) []Token {
	t.Helper()
	l := NewLexer(input)
	var toks []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("NextToken() error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

func TestLexLines(t *testing.T) {
	tests := []struct {
		input    string
		expected []Token
	}{
		{
			"foo",
			[]Token{{INDENT, "", 1, 1}, {WORD, "foo", 1, 1}, {EOF, "", 1, 4}},
		},
		{
			"foo:bar\r\n   x:int:3",
			[]Token{
				{INDENT, "", 1, 1}, {WORD, "foo", 1, 1}, {SEPARATOR, ":", 1, 4}, {WORD, "bar", 1, 5}, {NEWLINE, "\r\n", 1, 8},
				{INDENT, "   ", 2, 1}, {WORD, "x", 2, 4}, {SEPARATOR, ":", 2, 5}, {WORD, "int", 2, 6},
				{SEPARATOR, ":", 2, 9}, {WORD, "3", 2, 10}, {EOF, "", 2, 11},
			},
		},
		{
			"log.info:hello world",
			[]Token{{INDENT, "", 1, 1}, {WORD, "log.info", 1, 1}, {SEPARATOR, ":", 1, 9}, {WORD, "hello world", 1, 10}, {EOF, "", 1, 21}},
		},
		{
			`a:"x:y"`,
			[]Token{{INDENT, "", 1, 1}, {WORD, "a", 1, 1}, {SEPARATOR, ":", 1, 2}, {STRING, "x:y", 1, 3}, {EOF, "", 1, 8}},
		},
		{
			"\n\n   \nb\n",
			[]Token{{INDENT, "", 4, 1}, {WORD, "b", 4, 1}, {NEWLINE, "\n", 4, 2}, {EOF, "", 5, 1}},
		},
		{
			"// comment\r\n/* block\r\n comment */\r\nc",
			[]Token{{INDENT, "", 4, 1}, {WORD, "c", 4, 1}, {EOF, "", 4, 2}},
		},
	}

	for _, tt := range tests {
		toks := lexAll(t, tt.input)
		if len(toks) != len(tt.expected) {
			t.Errorf("input %q: got %d tokens %v, want %d", tt.input, len(toks), toks, len(tt.expected))
			continue
		}
		for i, expected := range tt.expected {
			if toks[i] != expected {
				t.Errorf("input %q token[%d]: got %+v, want %+v", tt.input, i, toks[i], expected)
			}
		}
	}
}

func TestLexStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		typ      TokenType
		expected string
	}{
		{"double quoted", `"hello"`, STRING, "hello"},
		{"single quoted", `'it'`, STRING, "it"},
		{"escapes", `"a\tb\nc\\d\"e"`, STRING, "a\tb\nc\\d\"e"},
		{"single quote escape", `'don\'t'`, STRING, "don't"},
		{"unicode escape", `"caf\x00e9"`, STRING, "café"},
		{"raw", "@\"line 1\r\nline \"\"2\"\"\"", RAWSTRING, "line 1\r\nline \"2\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLexer(tt.input)
			if _, err := l.NextToken(); err != nil { // indent
				t.Fatal(err)
			}
			tok, err := l.NextToken()
			if err != nil {
				t.Fatalf("NextToken() error: %v", err)
			}
			if tok.Type != tt.typ || tok.Literal != tt.expected {
				t.Errorf("got %s %q, want %s %q", tok.Type, tok.Literal, tt.typ, tt.expected)
			}
		})
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  string
	}{
		{"unterminated string", `a:"abc`, "PARSE-0001"},
		{"string broken by newline", "a:\"abc\ndef\"", "PARSE-0001"},
		{"unterminated raw string", `a:@"abc`, "PARSE-0001"},
		{"bad escape", `a:"\q"`, "PARSE-0008"},
		{"bad unicode escape", `a:"\xZZZZ"`, "PARSE-0008"},
		{"unterminated comment", "/* never closed", "PARSE-0011"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLexer(tt.input)
			var err error
			for range 20 {
				var tok Token
				tok, err = l.NextToken()
				if err != nil || tok.Type == EOF {
					break
				}
			}
			if !perrors.HasCode(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}
