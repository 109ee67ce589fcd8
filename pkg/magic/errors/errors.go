// Package errors provides structured error types for the Magic runtime.
//
// This package defines MagicError, a unified error type that represents
// codec, interpreter, dispatch and leaf slot failures with enough metadata
// for display and programmatic handling.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassSyntax     ErrorClass = "syntax"     // Hyperlambda and expression syntax
	ClassStructure  ErrorClass = "structure"  // Wrong arity or child names for a construct
	ClassDispatch   ErrorClass = "dispatch"   // Unknown slot, sync/async mismatch
	ClassType       ErrorClass = "type"       // Value access and conversion
	ClassValidation ErrorClass = "validation" // Leaf slot validators
	ClassState      ErrorClass = "state"      // Missing ambient scope, runaway loops
	ClassDatabase   ErrorClass = "database"   // Data slots
)

// MagicError represents any error raised while parsing or executing a lambda.
type MagicError struct {
	Class   ErrorClass     `json:"class"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Line    int            `json:"line"`   // 1-based line (0 if unknown)
	Column  int            `json:"column"` // 1-based column (0 if unknown)
	File    string         `json:"file,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *MagicError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *MagicError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *MagicError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassSyntax:
		sb.WriteString("Syntax error")
	default:
		sb.WriteString("Runtime error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *MagicError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *MagicError) WithFile(file string) *MagicError {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *MagicError) WithPosition(line, column int) *MagicError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// IsSyntaxError returns true if this error came from the codec or expression compiler.
func (e *MagicError) IsSyntaxError() bool {
	return e.Class == ClassSyntax
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Syntax errors (PARSE-0xxx)
	// ========================================
	"PARSE-0001": {
		Class:    ClassSyntax,
		Template: "unterminated string literal",
	},
	"PARSE-0002": {
		Class:    ClassSyntax,
		Template: "indentation must be a multiple of 3 spaces, found {{.Spaces}}",
	},
	"PARSE-0003": {
		Class:    ClassSyntax,
		Template: "indentation increases by more than one level",
	},
	"PARSE-0004": {
		Class:    ClassSyntax,
		Template: "unknown type '{{.Type}}'",
	},
	"PARSE-0005": {
		Class:    ClassSyntax,
		Template: "illegal trailing separator after '{{.Token}}'",
		Hints:    []string{"use {{.Token}}:\"\" for an empty string value"},
	},
	"PARSE-0006": {
		Class:    ClassSyntax,
		Template: "too many separators, expected name:type:value",
	},
	"PARSE-0007": {
		Class:    ClassSyntax,
		Template: "unexpected token '{{.Token}}'",
	},
	"PARSE-0008": {
		Class:    ClassSyntax,
		Template: "invalid escape sequence '\\{{.Escape}}'",
	},
	"PARSE-0009": {
		Class:    ClassSyntax,
		Template: "cannot convert '{{.Value}}' to {{.Type}}: {{.Reason}}",
	},
	"PARSE-0010": {
		Class:    ClassSyntax,
		Template: "invalid expression segment '{{.Segment}}' in '{{.Expression}}'",
	},
	"PARSE-0011": {
		Class:    ClassSyntax,
		Template: "unterminated comment",
	},

	// ========================================
	// Structural errors (LAMBDA-0xxx)
	// ========================================
	"LAMBDA-0001": {
		Class:    ClassStructure,
		Template: "'{{.Slot}}' requires exactly {{.Expected}} children, got {{.Got}}",
	},
	"LAMBDA-0002": {
		Class:    ClassStructure,
		Template: "'{{.Slot}}' requires a '{{.Name}}' child",
	},
	"LAMBDA-0003": {
		Class:    ClassStructure,
		Template: "'{{.Slot}}' must come immediately after {{.After}}",
	},
	"LAMBDA-0004": {
		Class:    ClassStructure,
		Template: "'{{.Slot}}' cannot have a child named '{{.Child}}'",
	},
	"LAMBDA-0005": {
		Class:    ClassStructure,
		Template: "'{{.Slot}}' declares '{{.Name}}' more than once",
	},
	"LAMBDA-0006": {
		Class:    ClassState,
		Template: "cannot invoke '{{.Name}}' from a synchronous eval",
		Hints:    []string{"use wait.eval to execute asynchronous slots"},
	},
	"LAMBDA-0007": {
		Class:    ClassState,
		Template: "while loop exceeded maximum iterations ({{.Max}})",
	},
	"LAMBDA-0008": {
		Class:    ClassStructure,
		Template: "'{{.Slot}}' requires a value",
	},
	"LAMBDA-0009": {
		Class:    ClassStructure,
		Template: "'{{.Slot}}' requires an expression value",
	},
	"LAMBDA-0010": {
		Class:    ClassStructure,
		Template: "'{{.Slot}}' cannot have both a value and children",
	},
	"LAMBDA-0011": {
		Class:    ClassStructure,
		Template: "'{{.Slot}}' requires at least {{.Expected}} children, got {{.Got}}",
	},
	"LAMBDA-0012": {
		Class:    ClassStructure,
		Template: "'{{.Slot}}' must be the last child of '{{.Parent}}'",
	},

	// ========================================
	// Dispatch errors (SLOT-0xxx)
	// ========================================
	"SLOT-0001": {
		Class:    ClassDispatch,
		Template: "no slot named '{{.Name}}'",
		// Hint "Did you mean `X`?" added dynamically by fuzzy matching
	},
	"SLOT-0002": {
		Class:    ClassDispatch,
		Template: "slot '{{.Name}}' can only be invoked asynchronously",
	},
	"SLOT-0003": {
		Class:    ClassDispatch,
		Template: "slot '{{.Name}}' cannot be invoked asynchronously",
	},
	"SLOT-0004": {
		Class:    ClassDispatch,
		Template: "slot '{{.Name}}' is registered more than once",
	},
	"SLOT-0005": {
		Class:    ClassDispatch,
		Template: "no dynamic slot named '{{.Name}}'",
	},
	"SLOT-0006": {
		Class:    ClassDispatch,
		Template: "invalid slot registration: {{.Reason}}",
	},

	// ========================================
	// Type errors (TYPE-0xxx)
	// ========================================
	"TYPE-0001": {
		Class:    ClassType,
		Template: "type mismatch: expected {{.Expected}}, got {{.Actual}}",
	},
	"TYPE-0002": {
		Class:    ClassType,
		Template: "unknown type '{{.Type}}'",
	},
	"TYPE-0003": {
		Class:    ClassType,
		Template: "expression '{{.Expression}}' yielded {{.Count}} results where at most one was expected",
	},
	"TYPE-0004": {
		Class:    ClassType,
		Template: "cannot convert {{.Actual}} to {{.Type}}: {{.Reason}}",
	},
	"TYPE-0005": {
		Class:    ClassType,
		Template: "values of type {{.Type}} cannot be ordered",
	},
	"TYPE-0006": {
		Class:    ClassType,
		Template: "cannot serialize value of type {{.Type}}",
	},
	"TYPE-0007": {
		Class:    ClassType,
		Template: "node value of '{{.Name}}' contains itself and cannot be serialized",
	},
	"TYPE-0008": {
		Class:    ClassType,
		Template: "expression '{{.Expression}}' resolves to its own node",
	},

	// ========================================
	// State errors (STATE-0xxx)
	// ========================================
	"STATE-0001": {
		Class:    ClassState,
		Template: "'{{.Slot}}' used outside of a result scope",
	},
	"STATE-0002": {
		Class:    ClassState,
		Template: "'{{.Slot}}' used outside of a '{{.Scope}}' scope",
	},
	"STATE-0003": {
		Class:    ClassState,
		Template: "transaction has already been {{.State}}",
	},

	// ========================================
	// Database errors (DB-0xxx)
	// ========================================
	"DB-0001": {
		Class:    ClassDatabase,
		Template: "unknown database connection '{{.Name}}'",
	},
	"DB-0002": {
		Class:    ClassDatabase,
		Template: "database error: {{.Error}}",
	},

	// ========================================
	// Validation errors (VALID-0xxx)
	// ========================================
	"VALID-0001": {
		Class:    ClassValidation,
		Template: "{{.Message}}",
	},
}

// New creates a MagicError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *MagicError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &MagicError{
			Class:   ClassState,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &MagicError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a MagicError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *MagicError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// NewSimple creates a simple error without using the catalog.
func NewSimple(class ErrorClass, message string) *MagicError {
	return &MagicError{
		Class:   class,
		Message: message,
	}
}

func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// Code returns the catalog code of the first MagicError in err's chain, or "".
func Code(err error) string {
	var me *MagicError
	if stderrors.As(err, &me) {
		return me.Code
	}
	return ""
}

// HasCode reports whether err wraps a MagicError with the given code.
func HasCode(err error, code string) bool {
	return Code(err) == code
}

// ClassOf returns the class of the first MagicError in err's chain, or "".
func ClassOf(err error) ErrorClass {
	var me *MagicError
	if stderrors.As(err, &me) {
		return me.Class
	}
	return ""
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns the best match if the distance is within the threshold, otherwise empty string.
// The threshold grows with the length of the input.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	// Short words (1-3): max 1 edit
	// Medium words (4-6): max 2 edits
	// Longer words (7+): max 3 edits
	threshold := 1
	if len(input) >= 4 && len(input) <= 6 {
		threshold = 2
	} else if len(input) >= 7 {
		threshold = 3
	}

	if bestDistance <= 0 || bestDistance > threshold {
		return ""
	}

	return bestMatch
}

// NewUndefinedSlot creates a slot-not-found error with an optional "did you mean" hint.
func NewUndefinedSlot(name string, available []string) *MagicError {
	err := New("SLOT-0001", map[string]any{"Name": name})
	if suggestion := FindClosestMatch(name, available); suggestion != "" {
		err.Hints = append(err.Hints, fmt.Sprintf("Did you mean `%s`?", suggestion))
	}
	return err
}
