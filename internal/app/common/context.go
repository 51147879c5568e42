package common

import (
	"go.uber.org/zap"

	"cachesweep/internal/infra/config"
)

type contextKey string

const ContextKeyApp contextKey = "appctx"

type GlobalOptions struct {
	JSON       bool
	Debug      bool
	Yes        bool
	NoRunLog   bool
	ConfigPath string
	PolicyPath string
	LogDir     string
}

type AppContext struct {
	Options  GlobalOptions
	Settings config.Settings
	Policy   Policy
	Logger   *zap.Logger

	// Warnings collected while building the context, surfaced by every
	// command result.
	Warnings []string
}
