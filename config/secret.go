package config

import (
	"regexp"

	"gopkg.in/yaml.v3"
)

// SecretString is a connection string that may carry credentials.
//
// The raw text is only reachable through Value, which the data layer uses to
// open the database. Everything that prints configuration goes through String:
// a DSN tagged !secret in magic.yaml prints as [hidden], and an untagged DSN
// prints with any embedded password masked.
type SecretString struct {
	raw    string
	tagged bool
}

// NewSecretString returns a DSN that prints as [hidden].
func NewSecretString(raw string) SecretString {
	return SecretString{raw: raw, tagged: true}
}

// Value is the DSN handed to database/sql.
func (s SecretString) Value() string {
	return s.raw
}

// IsSecret reports whether the DSN was tagged !secret.
func (s SecretString) IsSecret() bool {
	return s.tagged
}

func (s SecretString) String() string {
	switch {
	case s.raw == "":
		return ""
	case s.tagged:
		return "[hidden]"
	}
	return maskPassword(s.raw)
}

var (
	// postgres://user:pw@host and user:pw@tcp(host)/db
	userinfoPassword = regexp.MustCompile(`^((?:[a-z][a-z0-9+.-]*://)?[^:@/]*:)[^@/]*@`)
	// lib/pq key=value form
	keywordPassword = regexp.MustCompile(`(?i)\bpassword=('[^']*'|\S+)`)
)

func maskPassword(dsn string) string {
	dsn = userinfoPassword.ReplaceAllString(dsn, "${1}***@")
	return keywordPassword.ReplaceAllString(dsn, "password=***")
}

func (s *SecretString) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.raw = raw
	s.tagged = node.Tag == "!secret"
	return nil
}

// MarshalYAML writes the printable form, so a dumped configuration never
// contains credentials. The !secret tag is preserved.
func (s SecretString) MarshalYAML() (any, error) {
	if !s.tagged {
		return s.String(), nil
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!secret", Value: s.String()}, nil
}
