// Package notice decodes inbound error-report payloads (Hoptoad v1 wire
// format) into normalized reports.
package notice

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformed is returned when the payload cannot be decoded or a required
// field is missing. Handlers map it to a client error before any persistence.
var ErrMalformed = errors.New("malformed notice payload")

// Report is a normalized inbound error report. It lives for the duration of
// one request and is never persisted directly.
type Report struct {
	ErrorClass   string
	ErrorMessage string
	Backtrace    []string // nil when the payload carried no usable backtrace

	APIKey      string
	ProjectKey  string
	TrackerName string
	Category    string
	AssignedTo  string
	Priority    string

	// Opaque snapshots, passed through for audit rendering only.
	Request     map[string]any
	Session     map[string]any
	Environment map[string]any
}

type document struct {
	Notice *body `yaml:"notice"`
}

type body struct {
	APIKey       string         `yaml:"api_key"`
	ErrorClass   string         `yaml:"error_class"`
	ErrorMessage string         `yaml:"error_message"`
	Back         []string       `yaml:"back"`
	Backtrace    []string       `yaml:"backtrace"`
	Request      map[string]any `yaml:"request"`
	Session      map[string]any `yaml:"session"`
	Environment  map[string]any `yaml:"environment"`
}

// Parse decodes a raw notice document. The notifier clients post YAML with a
// top-level "notice" key whose api_key field is itself a serialized YAML
// document carrying the shared secret and routing parameters.
func Parse(raw []byte) (*Report, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Notice == nil {
		return nil, fmt.Errorf("%w: missing notice element", ErrMalformed)
	}

	n := doc.Notice
	if n.ErrorClass == "" {
		return nil, fmt.Errorf("%w: missing error_class", ErrMalformed)
	}
	if n.ErrorMessage == "" {
		return nil, fmt.Errorf("%w: missing error_message", ErrMalformed)
	}

	params, err := parseRouteParams(n.APIKey)
	if err != nil {
		return nil, err
	}

	// Legacy clients send "back", newer ones "backtrace". Prefer the first
	// when non-empty; an empty list counts as no backtrace at all.
	backtrace := n.Back
	if len(backtrace) == 0 {
		backtrace = n.Backtrace
	}
	if len(backtrace) == 0 {
		backtrace = nil
	}

	return &Report{
		ErrorClass:   n.ErrorClass,
		ErrorMessage: n.ErrorMessage,
		Backtrace:    backtrace,
		APIKey:       params["api_key"],
		ProjectKey:   params["project"],
		TrackerName:  params["tracker"],
		Category:     params["category"],
		AssignedTo:   params["assigned_to"],
		Priority:     params["priority"],
		Request:      n.Request,
		Session:      n.Session,
		Environment:  n.Environment,
	}, nil
}

// parseRouteParams decodes the nested api_key document. Ruby notifiers
// serialize symbol keys, so ":api_key" and "api_key" are equivalent.
func parseRouteParams(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]string{}, nil
	}

	var decoded map[string]string
	if err := yaml.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: api_key element: %v", ErrMalformed, err)
	}

	params := make(map[string]string, len(decoded))
	for k, v := range decoded {
		params[strings.TrimPrefix(k, ":")] = v
	}
	return params, nil
}
