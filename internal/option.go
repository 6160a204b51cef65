package internal

import (
	"io"

	"github.com/starford/argument/internal/clipboard"
	"github.com/starford/argument/internal/share"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	clipboard clipboard.Sink
	share     share.Sink
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput sets where the JSON log stream goes. Defaults to stdout for
// serve and stderr for the MCP stdio server.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithClipboard overrides the clipboard sink selected by clipboard.mode.
func WithClipboard(s clipboard.Sink) Option {
	return func(a *application) {
		a.clipboard = s
	}
}

// WithShareSink overrides the share sink selected by share.mode.
func WithShareSink(s share.Sink) Option {
	return func(a *application) {
		a.share = s
	}
}
