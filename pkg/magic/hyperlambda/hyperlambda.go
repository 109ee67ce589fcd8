// Package hyperlambda implements the Hyperlambda text format, the line-oriented
// serialization of lambda node trees.
//
// Each line holds one node, nested by three spaces per level:
//
//	.data
//	   name:Thomas
//	   age:int:57
//	if
//	   eq
//	      get-value:x:@.data/*/age
//	      .:int:57
//	   .lambda
//	      log.info:match
//
// A line is name, name:value or name:type:value. Values without a type are
// strings. Strings containing separators are written "quoted", and strings
// spanning lines are written @"raw" with doubled quotes.
package hyperlambda

import (
	"github.com/sambeau/magic/pkg/magic/lambda"
)

func init() {
	// Let the type converter handle node values without importing this package
	lambda.RegisterNodeCodec(Parse, Generate)
}

// Parse converts Hyperlambda text into an unnamed root node holding the lines as children.
func Parse(text string) (*lambda.Node, error) {
	return NewParser(text).Parse()
}

// MustParse is Parse for text known to be valid, such as embedded programs.
func MustParse(text string) *lambda.Node {
	n, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return n
}

// Generate renders the children of n.
func Generate(n *lambda.Node) (string, error) {
	return NewGenerator().Generate(n.Children(), 0)
}

// GenerateNode renders n itself along with its descendants.
func GenerateNode(n *lambda.Node) (string, error) {
	return NewGenerator().Generate([]*lambda.Node{n}, 0)
}

// Validate reports the first syntax error in text, if any.
func Validate(text string) error {
	_, err := Parse(text)
	return err
}

// Format parses and regenerates text in canonical form.
func Format(text string) (string, error) {
	n, err := Parse(text)
	if err != nil {
		return "", err
	}
	return Generate(n)
}
