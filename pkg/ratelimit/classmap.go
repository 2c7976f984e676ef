package ratelimit

import (
	"fmt"
	"strings"
)

// ClassRule maps a path prefix to a limit class.
type ClassRule struct {
	// Prefix is the request path prefix, e.g. "/v1/ai/".
	Prefix string `yaml:"prefix"`

	// Class is the limit class applied to matching paths.
	Class string `yaml:"class"`
}

// ClassMapper resolves an endpoint path to its limit class via a declarative
// ordered prefix table, keeping the engine free of endpoint-specific
// knowledge. The first matching rule wins; paths matching no rule get the
// default class.
type ClassMapper struct {
	rules        []ClassRule
	defaultClass string
}

// NewClassMapper creates a mapper from an ordered rule list and a default
// class. Rules with an empty prefix or class are rejected.
func NewClassMapper(rules []ClassRule, defaultClass string) (*ClassMapper, error) {
	if defaultClass == "" {
		return nil, fmt.Errorf("default limit class cannot be empty")
	}
	for i, rule := range rules {
		if rule.Prefix == "" {
			return nil, fmt.Errorf("endpoint rule %d: prefix cannot be empty", i)
		}
		if rule.Class == "" {
			return nil, fmt.Errorf("endpoint rule %d (%s): class cannot be empty", i, rule.Prefix)
		}
	}

	return &ClassMapper{
		rules:        append([]ClassRule(nil), rules...),
		defaultClass: defaultClass,
	}, nil
}

// ClassForPath returns the limit class for the given request path.
func (m *ClassMapper) ClassForPath(path string) string {
	for _, rule := range m.rules {
		if strings.HasPrefix(path, rule.Prefix) {
			return rule.Class
		}
	}
	return m.defaultClass
}

// Validate checks that every class referenced by the mapper exists in the
// registry. Called at startup so an unknown class is a deployment failure,
// not a request-time surprise.
func (m *ClassMapper) Validate(registry *Registry) error {
	if !registry.Has(m.defaultClass) {
		return fmt.Errorf("default class: %w", NewUnknownClassError(m.defaultClass))
	}
	for _, rule := range m.rules {
		if !registry.Has(rule.Class) {
			return fmt.Errorf("endpoint rule %q: %w", rule.Prefix, NewUnknownClassError(rule.Class))
		}
	}
	return nil
}

// Rules returns a copy of the ordered rule table.
func (m *ClassMapper) Rules() []ClassRule {
	return append([]ClassRule(nil), m.rules...)
}

// DefaultClass returns the fallback class for unmatched paths.
func (m *ClassMapper) DefaultClass() string {
	return m.defaultClass
}
