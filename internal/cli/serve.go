package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/teachcharlie/tcagent/internal/companion/commands"
	"github.com/teachcharlie/tcagent/internal/companion/server"
	"github.com/teachcharlie/tcagent/internal/companion/state"
)

func newServeCmd() *cobra.Command {
	var listen string
	var autoStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the command server for the desktop shell",
		Long: `Run the command server on a loopback address. The desktop shell invokes
commands with POST /commands/{name} and follows GET /events for sidecar-status changes.
The connector is stopped when the server exits.

Examples:
  tcagent serve
  tcagent serve --listen 127.0.0.1:9000 --auto-start`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				env.settings.Server.ListenAddr = listen
				if err := env.settings.Validate(); err != nil {
					return fmt.Errorf("%s", err.ErrorAll())
				}
			}
			return runServer(cmd.Context(), autoStart)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from companion.toml)")
	cmd.Flags().BoolVar(&autoStart, "auto-start", false, "Start the connector at launch when auto_start is set in config.json")
	return cmd
}

func runServer(ctx context.Context, autoStart bool) error {
	slog := log.With().Str("state", "init").Logger()

	if err := env.paths.EnsureBaseDir(); err != nil {
		return fmt.Errorf("creating base directory: %w", err)
	}

	app := state.New(env.paths, env.settings)
	handler := commands.NewHandler(app)

	s, err := server.CreateNewServer(handler, env.settings)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	s.MountHandlers()

	serverErrors, shutdown, err := s.Serve(ctx)
	if err != nil {
		return err
	}

	if autoStart {
		autoStartConnector(ctx, handler)
	}

	var runErr error
	select {
	case err := <-serverErrors:
		runErr = fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info().Msg("shutdown signal received")
		shutdown()
	}

	app.Shutdown(context.WithoutCancel(ctx))
	slog.Info().Msg("server stopped")
	return runErr
}

// autoStartConnector mirrors what the shell does at launch: when auto_start is set
// and a token is stored, start the connector and refresh the MCP descriptor.
// Failures are logged; the server keeps running.
func autoStartConnector(ctx context.Context, h *commands.Handler) {
	rec, err := h.LoadConfig(ctx)
	if err != nil {
		log.Error().Str("error", err.ErrorAll()).Msg("auto-start: unable to load config")
		return
	}
	if !rec.AutoStartEnabled() {
		log.Debug().Msg("auto-start disabled in config")
		return
	}
	c := credentials{}.resolve(rec)
	if c.token == "" {
		log.Warn().Msg("auto-start: no token stored, connector not started")
		return
	}
	if err := h.StartSidecar(ctx, c.token, c.apiURL); err != nil {
		log.Error().Str("error", err.ErrorAll()).Msg("auto-start: unable to start connector")
		return
	}
	if _, err := h.WriteMCPConfig(ctx, c.token, c.apiURL); err != nil {
		log.Error().Str("error", err.ErrorAll()).Msg("auto-start: unable to write mcp config")
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
}
