// Package state builds the AppState container shared by every command handler. It is
// constructed explicitly and passed in; nothing in the companion reads it from a global.
package state

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/teachcharlie/tcagent/internal/companion/config"
	"github.com/teachcharlie/tcagent/internal/companion/eventbus"
	"github.com/teachcharlie/tcagent/internal/companion/mcpconfig"
	"github.com/teachcharlie/tcagent/internal/companion/paths"
	"github.com/teachcharlie/tcagent/internal/companion/settings"
	"github.com/teachcharlie/tcagent/internal/companion/sidecar"
)

// AppState owns the config mirror and the sidecar record. Each sits behind its own
// lock inside Config and Sidecar; no call path holds both.
type AppState struct {
	Paths    *paths.Paths
	Settings *settings.Settings
	Config   *config.Store
	MCP      *mcpconfig.Writer
	Sidecar  *sidecar.Supervisor
	Events   *eventbus.Bus
}

type Option func(*options)

type options struct {
	launcher sidecar.Launcher
}

// WithLauncher replaces the connector launcher, mainly for tests.
func WithLauncher(l sidecar.Launcher) Option {
	return func(o *options) { o.launcher = l }
}

// New wires an AppState rooted at p. A nil s uses settings.Default().
func New(p *paths.Paths, s *settings.Settings, opts ...Option) *AppState {
	if s == nil {
		s = settings.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	bus := eventbus.New(s.Events.PublishTimeout)
	sup := sidecar.NewSupervisor(bus,
		sidecar.WithLauncher(o.launcher),
		sidecar.WithCommand(s.Connector.Command),
		sidecar.WithKillTimeout(s.Sidecar.KillTimeout),
	)

	mcpCommand := s.Connector.MCPCommand
	if mcpCommand == "" {
		mcpCommand = s.Connector.Command
	}

	return &AppState{
		Paths:    p,
		Settings: s,
		Config:   config.NewStore(p.ConfigFile()),
		MCP:      mcpconfig.NewWriter(p.MCPConfigFile(), mcpCommand),
		Sidecar:  sup,
		Events:   bus,
	}
}

// Shutdown stops a running connector and closes every event subscription.
func (a *AppState) Shutdown(ctx context.Context) {
	running, err := a.Sidecar.Status()
	if err == nil && running {
		if err := a.Sidecar.Stop(ctx); err != nil {
			log.Ctx(ctx).Error().Str("error", err.ErrorAll()).Msg("unable to stop connector on shutdown")
		}
	}
	a.Events.Shutdown()
}
