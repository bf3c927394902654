package app

import (
	"errors"
	"fmt"
)

// Commands understood by App.Run.
const (
	CmdInspect = "inspect"
	CmdOutputs = "outputs"
	CmdStatus  = "status"
	CmdRun     = "run"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command string

	ManifestPath string // stage manifest file or directory
	ConfigPath   string // flow configuration file (yaml)
	CachePath    string // staleness cache file
	Stage        string // stage name the command applies to

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	switch cfg.Command {
	case CmdInspect:
	case CmdOutputs, CmdStatus, CmdRun:
		if cfg.Stage == "" {
			return nil, fmt.Errorf("command %q requires a stage name", cfg.Command)
		}
		if cfg.ConfigPath == "" {
			return nil, fmt.Errorf("command %q requires a flow config", cfg.Command)
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	return &cfg, nil
}
