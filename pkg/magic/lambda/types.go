package lambda

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/shopspring/decimal"
)

// Char is a single character value, distinct from int32.
type Char rune

// DateLayout is the canonical text form of date values: UTC with millisecond precision.
const DateLayout = "2006-01-02T15:04:05.000Z"

// dateLayouts are accepted when parsing date values, tried in order.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Converter maps a type tag to its text conversions.
type Converter struct {
	Match      func(v any) bool
	ToString   func(v any) (string, error)
	FromString func(s string) (any, error)
}

// customConverters holds types registered by collaborators.
// RegisterConverter must only be called during initialization.
var customConverters = map[string]Converter{}

// customOrder keeps lookup deterministic.
var customOrder []string

// RegisterConverter adds a type tag to the converter vocabulary.
func RegisterConverter(tag string, c Converter) {
	if _, exists := customConverters[tag]; !exists {
		customOrder = append(customOrder, tag)
	}
	customConverters[tag] = c
}

// Node codec hooks, registered by the hyperlambda package to avoid an import cycle.
var (
	parseNodeFn    func(string) (*Node, error)
	generateNodeFn func(*Node) (string, error)
)

// RegisterNodeCodec installs the functions used to convert node values to and from text.
func RegisterNodeCodec(parse func(string) (*Node, error), generate func(*Node) (string, error)) {
	parseNodeFn = parse
	generateNodeFn = generate
}

// TypeTags returns the builtin type vocabulary followed by registered tags.
func TypeTags() []string {
	tags := []string{"string", "int", "uint", "long", "ulong", "decimal", "double", "float",
		"bool", "date", "time", "guid", "char", "byte", "x", "node"}
	return append(tags, customOrder...)
}

// TypeOf returns the type tag of a value. Nil has the empty tag.
func TypeOf(v any) (string, bool) {
	switch v.(type) {
	case nil:
		return "", true
	case string:
		return "string", true
	case int32:
		return "int", true
	case uint32:
		return "uint", true
	case int64:
		return "long", true
	case uint64:
		return "ulong", true
	case decimal.Decimal:
		return "decimal", true
	case float64:
		return "double", true
	case float32:
		return "float", true
	case bool:
		return "bool", true
	case time.Time:
		return "date", true
	case time.Duration:
		return "time", true
	case uuid.UUID:
		return "guid", true
	case Char:
		return "char", true
	case byte:
		return "byte", true
	case *Expression:
		return "x", true
	case *Node:
		return "node", true
	}
	for _, tag := range customOrder {
		if customConverters[tag].Match(v) {
			return tag, true
		}
	}
	return "", false
}

// TypeName describes a value's type for error messages.
func TypeName(v any) string {
	if v == nil {
		return "null"
	}
	if tag, ok := TypeOf(v); ok {
		return tag
	}
	return fmt.Sprintf("%T", v)
}

// ToString returns the type tag and canonical text of a value.
func ToString(v any) (string, string, error) {
	switch t := v.(type) {
	case nil:
		return "", "", nil
	case string:
		return "string", t, nil
	case int32:
		return "int", strconv.FormatInt(int64(t), 10), nil
	case uint32:
		return "uint", strconv.FormatUint(uint64(t), 10), nil
	case int64:
		return "long", strconv.FormatInt(t, 10), nil
	case uint64:
		return "ulong", strconv.FormatUint(t, 10), nil
	case decimal.Decimal:
		return "decimal", t.String(), nil
	case float64:
		return "double", strconv.FormatFloat(t, 'f', -1, 64), nil
	case float32:
		return "float", strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	case bool:
		return "bool", strconv.FormatBool(t), nil
	case time.Time:
		return "date", t.UTC().Format(DateLayout), nil
	case time.Duration:
		return "time", strconv.FormatInt(t.Milliseconds(), 10), nil
	case uuid.UUID:
		return "guid", t.String(), nil
	case Char:
		return "char", string(rune(t)), nil
	case byte:
		return "byte", strconv.FormatUint(uint64(t), 10), nil
	case *Expression:
		return "x", t.String(), nil
	case *Node:
		if generateNodeFn == nil {
			return "", "", perrors.New("TYPE-0006", map[string]any{"Type": "node"})
		}
		text, err := generateNodeFn(t)
		return "node", text, err
	}
	if tag, ok := TypeOf(v); ok {
		text, err := customConverters[tag].ToString(v)
		return tag, text, err
	}
	return "", "", perrors.New("TYPE-0006", map[string]any{"Type": fmt.Sprintf("%T", v)})
}

// FromString converts text to a value of the type named by tag.
func FromString(text, tag string) (any, error) {
	v, err := fromString(text, tag)
	if err != nil {
		if perrors.Code(err) != "" {
			return nil, err
		}
		return nil, perrors.New("TYPE-0004", map[string]any{
			"Actual": "'" + text + "'",
			"Type":   tag,
			"Reason": err.Error(),
		})
	}
	return v, nil
}

func fromString(text, tag string) (any, error) {
	switch tag {
	case "", "string":
		return text, nil
	case "int":
		i, err := strconv.ParseInt(text, 10, 32)
		return int32(i), err
	case "uint":
		i, err := strconv.ParseUint(text, 10, 32)
		return uint32(i), err
	case "long":
		return strconv.ParseInt(text, 10, 64)
	case "ulong":
		return strconv.ParseUint(text, 10, 64)
	case "decimal":
		return decimal.NewFromString(text)
	case "double":
		return strconv.ParseFloat(text, 64)
	case "float":
		f, err := strconv.ParseFloat(text, 32)
		return float32(f), err
	case "bool":
		return strconv.ParseBool(text)
	case "date":
		return ParseDate(text)
	case "time":
		ms, err := strconv.ParseInt(text, 10, 64)
		return time.Duration(ms) * time.Millisecond, err
	case "guid":
		return uuid.Parse(text)
	case "char":
		if utf8.RuneCountInString(text) != 1 {
			return nil, fmt.Errorf("expected exactly one character")
		}
		r, _ := utf8.DecodeRuneInString(text)
		return Char(r), nil
	case "byte":
		i, err := strconv.ParseUint(text, 10, 8)
		return byte(i), err
	case "x":
		return ParseExpression(text)
	case "node":
		if parseNodeFn == nil {
			return nil, fmt.Errorf("no hyperlambda codec registered")
		}
		return parseNodeFn(text)
	}
	if c, ok := customConverters[tag]; ok {
		return c.FromString(text)
	}
	return nil, perrors.New("TYPE-0002", map[string]any{"Type": tag})
}

// ParseDate parses the accepted date layouts and normalizes to UTC milliseconds.
func ParseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date '%s'", text)
}

// IsKnownType reports whether tag names a builtin or registered type.
func IsKnownType(tag string) bool {
	for _, t := range TypeTags() {
		if t == tag {
			return true
		}
	}
	return false
}

// Convert coerces v to the type named by tag.
func Convert(v any, tag string) (any, error) {
	if !IsKnownType(tag) {
		return nil, perrors.New("TYPE-0002", map[string]any{"Type": tag})
	}
	if v == nil {
		return nil, nil
	}
	if current, ok := TypeOf(v); ok && current == tag {
		return v, nil
	}
	_, text, err := ToString(v)
	if err != nil {
		return nil, err
	}
	out, err := fromString(text, tag)
	if err != nil {
		return nil, perrors.New("TYPE-0004", map[string]any{
			"Actual": TypeName(v),
			"Type":   tag,
			"Reason": err.Error(),
		})
	}
	return out, nil
}
