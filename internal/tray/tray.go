package tray

import (
	logx "notibridge/pkg/logx"
)

// Config controls the desktop notification renderer.
type Config struct {
	AppName string
	Icon    string
	// TimeoutMS is the on-screen duration hint; -1 lets the desktop decide.
	TimeoutMS int
}

// New returns the platform renderer. On platforms without a desktop
// notification service the renderer degrades to logging.
func New(cfg Config, log logx.Logger) *Renderer {
	if cfg.AppName == "" {
		cfg.AppName = "notibridge"
	}
	if cfg.TimeoutMS == 0 {
		cfg.TimeoutMS = -1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return newRenderer(cfg, log)
}
