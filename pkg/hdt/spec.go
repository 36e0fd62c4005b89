package hdt

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Spec is the string-keyed configuration map understood by the façades.
// Recognized keys are the Spec* constants; unknown keys pass through so
// implementations can define their own.
type Spec map[string]string

// NewSpec creates an empty specification.
func NewSpec() Spec {
	return make(Spec)
}

// Get returns the value for key, or "" when unset.
func (s Spec) Get(key string) string {
	if s == nil {
		return ""
	}
	return s[key]
}

// GetDefault returns the value for key, or def when unset.
func (s Spec) GetDefault(key, def string) string {
	if v := s.Get(key); v != "" {
		return v
	}
	return def
}

// Set stores a value.
func (s Spec) Set(key, value string) {
	s[key] = value
}

// Bool interprets the value for key as a boolean flag.
func (s Spec) Bool(key string) bool {
	return s.Get(key) == "true"
}

// Order returns the configured component order, defaulting to SPO.
func (s Spec) Order() Order {
	if o := ParseOrder(s.Get(SpecTriplesOrder)); o != OrderUnknown {
		return o
	}
	return OrderSPO
}

// Clone returns an independent copy.
func (s Spec) Clone() Spec {
	out := make(Spec, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// SpecFromYAML loads a specification from a flat YAML mapping of scalar
// keys to scalar values.
func SpecFromYAML(r io.Reader) (Spec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading spec: %w", err)
	}

	raw := make(map[string]string)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding spec yaml: %v", ErrParse, err)
	}

	spec := make(Spec, len(raw))
	for k, v := range raw {
		spec[k] = v
	}
	return spec, nil
}
