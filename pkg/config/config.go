// Package config loads jackc and desktop settings from defaults, an
// optional YAML file and JACKC_* environment variables.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Jobs bounds how many files are compiled concurrently.
	Jobs int `yaml:"jobs" validate:"min=1,max=64"`
	// OutDir receives generated files; empty means next to each source.
	OutDir     string `yaml:"out_dir"`
	EmitXML    bool   `yaml:"emit_xml"`
	EmitVM     bool   `yaml:"emit_vm"`
	Resolution bool   `yaml:"resolution"`

	// MaxSteps caps VM execution; 0 means unlimited.
	MaxSteps int `yaml:"max_steps" validate:"min=0"`
	// Scale is the desktop window zoom factor.
	Scale   int  `yaml:"scale" validate:"min=1,max=4"`
	Verbose bool `yaml:"verbose"`
}

func Default() *Config {
	return &Config{
		Jobs:     min(runtime.NumCPU(), 64),
		EmitVM:   true,
		MaxSteps: 50_000_000,
		Scale:    2,
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped when
// path is empty) and then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Jobs, err = envInt("JACKC_JOBS", c.Jobs); err != nil {
		return err
	}
	if c.MaxSteps, err = envInt("JACKC_MAX_STEPS", c.MaxSteps); err != nil {
		return err
	}
	if c.Scale, err = envInt("JACKC_SCALE", c.Scale); err != nil {
		return err
	}
	if c.EmitXML, err = envBool("JACKC_XML", c.EmitXML); err != nil {
		return err
	}
	if c.Verbose, err = envBool("JACKC_VERBOSE", c.Verbose); err != nil {
		return err
	}
	c.OutDir = getEnv("JACKC_OUT", c.OutDir)
	return nil
}

// Validate checks the field ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, defaultValue bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
