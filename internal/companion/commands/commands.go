// Package commands is the surface the shell calls into. Each command is a method on
// Handler; Invoke dispatches the same commands by name with a loosely typed argument
// map, which is how the shell transport delivers them.
package commands

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/teachcharlie/tcagent/internal/common/apperrors"
	"github.com/teachcharlie/tcagent/internal/companion/config"
	"github.com/teachcharlie/tcagent/internal/companion/state"
)

// Handler runs commands against an injected AppState.
type Handler struct {
	app *state.AppState
}

func NewHandler(app *state.AppState) *Handler {
	return &Handler{app: app}
}

// State returns the AppState the handler was built with.
func (h *Handler) State() *state.AppState {
	return h.app
}

// LoadConfig reads config.json, returning an unset record if it does not exist.
func (h *Handler) LoadConfig(ctx context.Context) (config.Record, apperrors.Error) {
	r, err := h.app.Config.Load()
	if err != nil {
		log.Ctx(ctx).Error().Str("error", err.ErrorAll()).Msg("load_config failed")
	}
	return r, err
}

// StoreConfig replaces config.json with r.
func (h *Handler) StoreConfig(ctx context.Context, r config.Record) apperrors.Error {
	if err := h.app.Config.Store(r); err != nil {
		log.Ctx(ctx).Error().Str("error", err.ErrorAll()).Msg("store_config failed")
		return err
	}
	return nil
}

// WriteMCPConfig regenerates mcp-config.json and returns its path.
func (h *Handler) WriteMCPConfig(ctx context.Context, token, apiURL string) (string, apperrors.Error) {
	path, err := h.app.MCP.Write(token, apiURL)
	if err != nil {
		log.Ctx(ctx).Error().Str("error", err.ErrorAll()).Msg("write_mcp_config failed")
		return "", err
	}
	return path, nil
}

func (h *Handler) StartSidecar(ctx context.Context, token, apiURL string) apperrors.Error {
	return h.app.Sidecar.Start(ctx, token, apiURL)
}

func (h *Handler) StopSidecar(ctx context.Context) apperrors.Error {
	return h.app.Sidecar.Stop(ctx)
}

// SidecarStatus returns the last recorded state, not a live probe.
func (h *Handler) SidecarStatus(ctx context.Context) (bool, apperrors.Error) {
	return h.app.Sidecar.Status()
}

// GetConfigPath returns the absolute path of config.json, for display.
func (h *Handler) GetConfigPath(ctx context.Context) string {
	return h.app.Config.Path()
}
