package runtime

import (
	"fmt"
	"io"
	"os"

	"github.com/harunnryd/nightowl/internal/config"
)

type Mode string

const (
	// ModeServe runs every transport plus the HTTP server, holding the data directory lock.
	ModeServe Mode = "serve"
	// ModeChat runs the pipeline behind a terminal REPL with no network listeners.
	ModeChat Mode = "chat"
)

type RuntimeBuilder interface {
	WithConfig(cfg *config.Config) RuntimeBuilder
	WithMode(mode Mode) RuntimeBuilder
	WithOutput(out io.Writer) RuntimeBuilder
	Build() (*Runtime, error)
}

type DefaultRuntimeBuilder struct {
	cfg  *config.Config
	mode Mode
	out  io.Writer
}

func NewRuntimeBuilder() RuntimeBuilder {
	return &DefaultRuntimeBuilder{}
}

func (b *DefaultRuntimeBuilder) WithConfig(cfg *config.Config) RuntimeBuilder {
	b.cfg = cfg
	return b
}

func (b *DefaultRuntimeBuilder) WithMode(mode Mode) RuntimeBuilder {
	b.mode = mode
	return b
}

// WithOutput sets where chat replies are printed.
func (b *DefaultRuntimeBuilder) WithOutput(out io.Writer) RuntimeBuilder {
	b.out = out
	return b
}

func (b *DefaultRuntimeBuilder) Build() (*Runtime, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if b.mode == "" {
		b.mode = ModeServe
	}
	if b.mode != ModeServe && b.mode != ModeChat {
		return nil, fmt.Errorf("unknown runtime mode %q", b.mode)
	}
	if b.out == nil {
		b.out = os.Stdout
	}

	return NewRuntime(b.cfg, b.mode, b.out)
}
