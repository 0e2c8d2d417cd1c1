package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Options is the parsed provider options mapping.
type Options map[string]any

// ParseOptions decodes the string-encoded options literal.
// The literal must be a mapping. Anything else fails with ErrConfigParse;
// an empty literal yields empty options.
func ParseOptions(literal string) (Options, error) {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return Options{}, nil
	}

	var raw any
	if err := yaml.Unmarshal([]byte(literal), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a mapping, got %T", ErrConfigParse, raw)
	}

	return Options(m), nil
}

// Validate checks the options against a JSON Schema document.
// Violations are reported as ErrInvalidCredentials; option values never
// appear in the error text.
func (o Options) Validate(schema string) error {
	if schema == "" {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(map[string]any(o)),
	)
	if err != nil {
		return fmt.Errorf("storage: invalid provider schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.Field()+": "+e.Description())
	}
	return fmt.Errorf("%w: %s", ErrInvalidCredentials, strings.Join(msgs, "; "))
}

// Decode copies the options into a typed provider struct using its json tags.
func (o Options) Decode(v any) error {
	data, err := json.Marshal(map[string]any(o))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return nil
}

// String returns a value from the options, or "" if absent or not a string.
func (o Options) String(key string) string {
	s, _ := o[key].(string)
	return s
}
