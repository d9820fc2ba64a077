package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SourcePath string // entry file of the compilation
	OutputPath string // empty means standard output
	ConfigPath string // optional pipeline configuration file

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.SourcePath == "" {
		return nil, errors.New("SourcePath is a required configuration field and cannot be empty")
	}

	return &cfg, nil
}
