// Package config fills tagged structs from the process environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Option adjusts how Load reads the environment.
type Option func(*env.Options)

// WithPrefix prepends prefix to every variable name, so `env:"PORT"` reads
// PREFIX_PORT when prefix is "PREFIX_".
func WithPrefix(prefix string) Option {
	return func(o *env.Options) { o.Prefix = prefix }
}

// WithEnvironment reads from vars instead of os.Environ. Tests use it to
// avoid touching process state.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) { o.Environment = vars }
}

// Load parses the environment into cfg, a pointer to a struct carrying
// `env` and `envDefault` tags. Fields tagged `file` read the named file's
// content, which suits mounted secrets. Every failing field is reported,
// not just the first.
func Load(cfg any, opts ...Option) error {
	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}
	if err := env.ParseWithOptions(cfg, o); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
