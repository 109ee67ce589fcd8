package lambda

import (
	"iter"
	"strings"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
)

// Expression is a compiled, immutable path of iterators.
type Expression struct {
	source    string
	iterators []Iterator
}

// segment is one raw path component before compilation.
type segment struct {
	prefix byte // 0, '\\', '=' or '@' in front of a quoted segment
	text   string
	quoted bool
}

// ParseExpression compiles a '/'-delimited path.
// A segment wrapped in double quotes may contain '/'.
func ParseExpression(source string) (*Expression, error) {
	x := &Expression{source: source}
	if source == "" {
		return x, nil
	}
	segments, err := splitSegments(source)
	if err != nil {
		return nil, err
	}
	for _, seg := range segments {
		it, err := compileSegment(seg, source)
		if err != nil {
			return nil, err
		}
		x.iterators = append(x.iterators, it)
	}
	return x, nil
}

// MustParseExpression is ParseExpression for sources known to be valid.
func MustParseExpression(source string) *Expression {
	x, err := ParseExpression(source)
	if err != nil {
		panic(err)
	}
	return x
}

// String returns the expression's source text.
func (x *Expression) String() string {
	return x.source
}

// Iterators returns the compiled chain.
func (x *Expression) Iterators() []Iterator {
	return x.iterators
}

// Evaluate returns a lazy sequence of the nodes the expression resolves to,
// starting from identity. The tree is read at iteration time.
func (x *Expression) Evaluate(identity *Node) (iter.Seq[*Node], error) {
	var seq iter.Seq[*Node] = func(yield func(*Node) bool) {
		yield(identity)
	}
	for _, it := range x.iterators {
		if b, ok := it.(binder); ok {
			bound, err := b.bind(identity, x)
			if err != nil {
				return nil, err
			}
			it = bound
		}
		seq = it.Evaluate(identity, seq)
	}
	return seq, nil
}

// Nodes evaluates the expression and collects the result.
func (x *Expression) Nodes(identity *Node) ([]*Node, error) {
	seq, err := x.Evaluate(identity)
	if err != nil {
		return nil, err
	}
	var out []*Node
	for n := range seq {
		out = append(out, n)
	}
	return out, nil
}

func splitSegments(source string) ([]segment, error) {
	var segments []segment
	i := 0
	for {
		seg, next, err := readSegment(source, i)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
		if next >= len(source) {
			return segments, nil
		}
		i = next + 1 // skip '/'
		if i == len(source) {
			return nil, invalidSegment("", source)
		}
	}
}

// readSegment reads from start up to the next unquoted '/' and returns the
// index of that separator, or len(source).
func readSegment(source string, start int) (segment, int, error) {
	rest := source[start:]
	var prefix byte
	body := rest
	if len(rest) > 1 && (rest[0] == '\\' || rest[0] == '=' || rest[0] == '@') && rest[1] == '"' {
		prefix = rest[0]
		body = rest[1:]
	}
	if !strings.HasPrefix(body, `"`) {
		end := strings.IndexByte(rest, '/')
		if end < 0 {
			end = len(rest)
		}
		return segment{text: rest[:end]}, start + end, nil
	}

	var sb strings.Builder
	offset := len(rest) - len(body)
	for i := 1; i < len(body); i++ {
		switch c := body[i]; c {
		case '\\':
			if i+1 < len(body) && (body[i+1] == '"' || body[i+1] == '\\') {
				sb.WriteByte(body[i+1])
				i++
				continue
			}
			sb.WriteByte(c)
		case '"':
			end := start + offset + i + 1
			if end < len(source) && source[end] != '/' {
				return segment{}, 0, invalidSegment(rest, source)
			}
			return segment{prefix: prefix, text: sb.String(), quoted: true}, end, nil
		default:
			sb.WriteByte(c)
		}
	}
	return segment{}, 0, invalidSegment(rest, source)
}

func compileSegment(seg segment, source string) (Iterator, error) {
	if seg.quoted {
		switch seg.prefix {
		case '=':
			return valueIterator{value: seg.text}, nil
		case '@':
			return scanIterator{name: seg.text}, nil
		default:
			return nameIterator{name: seg.text}, nil
		}
	}

	text := seg.text
	switch text {
	case "":
		return nil, invalidSegment(text, source)
	case "*":
		return childrenIterator{}, nil
	case "#":
		return dereferenceIterator{}, nil
	case "-":
		return previousIterator{}, nil
	case "+":
		return nextIterator{}, nil
	case ".":
		return parentIterator{}, nil
	case "..":
		return rootIterator{}, nil
	case "**":
		return descendantsIterator{}, nil
	}

	switch text[0] {
	case '\\':
		return nameIterator{name: text[1:]}, nil
	case '=':
		return valueIterator{value: text[1:]}, nil
	case '@':
		if len(text) == 1 {
			return nil, invalidSegment(text, source)
		}
		return scanIterator{name: text[1:]}, nil
	case '{':
		if !strings.HasSuffix(text, "}") {
			break
		}
		idx, ok := parseIndex(text[1 : len(text)-1])
		if !ok {
			return nil, invalidSegment(text, source)
		}
		return indirectIterator{index: idx}, nil
	case '[':
		if !strings.HasSuffix(text, "]") {
			break
		}
		start, count, ok := strings.Cut(text[1:len(text)-1], ",")
		if !ok {
			return nil, invalidSegment(text, source)
		}
		s, ok1 := parseIndex(strings.TrimSpace(start))
		c, ok2 := parseIndex(strings.TrimSpace(count))
		if !ok1 || !ok2 {
			return nil, invalidSegment(text, source)
		}
		return sliceIterator{start: s, count: c}, nil
	}

	if idx, ok := parseIndex(text); ok {
		return nthChildIterator{index: idx}, nil
	}
	return nameIterator{name: text}, nil
}

// parseIndex accepts a non-empty run of ASCII digits.
func parseIndex(s string) (int, bool) {
	if s == "" || len(s) > 9 {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func invalidSegment(seg, source string) error {
	return perrors.New("PARSE-0010", map[string]any{"Segment": seg, "Expression": source})
}
