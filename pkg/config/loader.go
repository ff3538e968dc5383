package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Option configures Load.
type Option func(*options)

type options struct {
	envFiles   []string
	yamlFile   string
	prefix     string
	skipChecks bool
}

// WithEnvFiles loads the given dotenv files before parsing. Missing files are
// ignored; variables already present in the process environment are kept.
// Defaults to ".env".
func WithEnvFiles(paths ...string) Option {
	return func(o *options) {
		o.envFiles = paths
	}
}

// WithYAMLFile overlays values from a YAML file after environment parsing.
// Keys present in the file win over environment variables and defaults.
// An empty path disables the overlay.
func WithYAMLFile(path string) Option {
	return func(o *options) {
		o.yamlFile = path
	}
}

// WithPrefix prepends prefix to every env tag name.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithoutValidation skips `validate` struct tag checks.
func WithoutValidation() Option {
	return func(o *options) {
		o.skipChecks = true
	}
}

// Load fills v from dotenv files, environment variables (`env` and
// `envDefault` tags), an optional YAML file (`yaml` tags) and finally checks
// `validate` tags.
//
// Example:
//
//	type WorkerConfig struct {
//		PurgeSchedule string `env:"NOTIFICATIONS_PURGE_SCHEDULE" envDefault:"@daily" validate:"required"`
//	}
//
//	var cfg WorkerConfig
//	if err := config.Load(&cfg, config.WithYAMLFile(os.Getenv("CONFIG_FILE"))); err != nil {
//		// handle error
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := &options{envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(o)
	}

	for _, path := range o.envFiles {
		// the file is optional; godotenv never overrides variables already set
		_ = godotenv.Load(path)
	}

	if err := env.ParseWithOptions(v, env.Options{Prefix: o.prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	if o.yamlFile != "" {
		if err := decodeYAMLFile(o.yamlFile, v); err != nil {
			return err
		}
	}

	if o.skipChecks {
		return nil
	}
	return Validate(v)
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// Validate checks `validate` struct tags of v.
func Validate(v any) error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(v); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}

func decodeYAMLFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrReadingFile, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return errors.Join(ErrReadingFile, fmt.Errorf("%s: %w", path, err))
	}
	return nil
}
