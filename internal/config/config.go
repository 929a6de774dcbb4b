// Package config defines the CLI surface parsed by kong. Values load from
// config files (JSON/YAML/TOML), environment variables, and flags, in that
// priority order.
package config

import (
	"github.com/ffpad/ffpad/internal/cmd"
)

// LogConfig groups the logging flags shared by all commands.
type LogConfig struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"FFPAD_LOG_LEVEL"`
	File    string `help:"Write logs to this file instead of stdout/stderr" env:"FFPAD_LOG_FILE"`
	RawFile string `help:"Write raw report hex dumps to this file" env:"FFPAD_LOG_RAW_FILE"`
}

// CLI is the root command tree.
type CLI struct {
	Config string    `help:"Path to config file" env:"FFPAD_CONFIG"`
	Log    LogConfig `embed:"" prefix:"log."`

	Run  cmd.Run        `cmd:"" default:"withargs" help:"Run the controller gadget"`
	Key  cmd.Key        `cmd:"" help:"Inspect a controller key bundle"`
	Init cmd.ConfigInit `cmd:"" help:"Generate a configuration template"`
}
