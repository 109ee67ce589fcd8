package hyperlambda

import (
	"strings"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
)

// LineEnding terminates every generated line.
const LineEnding = "\r\n"

// Generator renders node trees as Hyperlambda
type Generator struct {
	sb strings.Builder
	// node values currently being rendered
	active map[*lambda.Node]bool
}

// NewGenerator creates a new Hyperlambda generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders nodes at the given nesting level and returns the text so far.
func (g *Generator) Generate(nodes []*lambda.Node, level int) (string, error) {
	for _, n := range nodes {
		if err := g.writeNode(n, level); err != nil {
			return "", err
		}
	}
	return g.sb.String(), nil
}

func (g *Generator) writeNode(n *lambda.Node, level int) error {
	g.sb.WriteString(strings.Repeat(" ", level*IndentSize))
	g.sb.WriteString(quote(n.Name))

	switch v := n.Value.(type) {
	case nil:
	case string:
		g.sb.WriteString(":")
		g.sb.WriteString(quote(v))
	case *lambda.Node:
		if v == nil {
			break
		}
		text, err := g.nodeValue(n.Name, v)
		if err != nil {
			return err
		}
		g.sb.WriteString(":node:")
		g.sb.WriteString(quote(text))
	default:
		tag, text, err := lambda.ToString(v)
		if err != nil {
			return err
		}
		g.sb.WriteString(":")
		g.sb.WriteString(tag)
		g.sb.WriteString(":")
		g.sb.WriteString(quote(text))
	}
	g.sb.WriteString(LineEnding)

	for _, c := range n.Children() {
		if err := g.writeNode(c, level+1); err != nil {
			return err
		}
	}
	return nil
}

// nodeValue renders the children of a node value. A value that contains itself
// is reported instead of rendered.
func (g *Generator) nodeValue(name string, v *lambda.Node) (string, error) {
	if g.active[v] {
		return "", perrors.New("TYPE-0007", map[string]any{"Name": name})
	}
	if g.active == nil {
		g.active = make(map[*lambda.Node]bool)
	}
	g.active[v] = true
	defer delete(g.active, v)
	return (&Generator{active: g.active}).Generate(v.Children(), 0)
}

// quote picks the lightest form that parses back to s: bare, "quoted" or @"raw".
func quote(s string) string {
	switch {
	case strings.ContainsAny(s, "\r\n"):
		return `@"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	case needsQuotes(s):
		var sb strings.Builder
		sb.WriteByte('"')
		for _, r := range s {
			switch r {
			case '"':
				sb.WriteString(`\"`)
			case '\\':
				sb.WriteString(`\\`)
			case '\t':
				sb.WriteString(`\t`)
			default:
				sb.WriteRune(r)
			}
		}
		sb.WriteByte('"')
		return sb.String()
	default:
		return s
	}
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	if strings.ContainsRune(s, ':') {
		return true
	}
	if strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		return true
	}
	switch s[0] {
	case '"', '\'':
		return true
	case '@':
		return strings.HasPrefix(s, `@"`)
	case '/':
		return strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/*")
	}
	return false
}
