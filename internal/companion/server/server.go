// Package server exposes the command surface to the shell over HTTP on a loopback
// address. Commands are POSTed by name; status events stream back as newline
// delimited JSON.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/teachcharlie/tcagent/internal/common/middleware"
	"github.com/teachcharlie/tcagent/internal/companion/commands"
	"github.com/teachcharlie/tcagent/internal/companion/eventbus"
	"github.com/teachcharlie/tcagent/internal/companion/settings"
)

// CommandServer routes shell requests to a commands.Handler.
type CommandServer struct {
	Router   *chi.Mux
	handler  *commands.Handler
	events   *eventbus.Bus
	settings *settings.Settings
}

// CreateNewServer returns a server for h. A nil s uses settings.Default().
func CreateNewServer(h *commands.Handler, s *settings.Settings) (*CommandServer, error) {
	if h == nil || h.State() == nil {
		return nil, fmt.Errorf("command handler is required")
	}
	if s == nil {
		s = settings.Default()
	}
	return &CommandServer{
		Router:   chi.NewRouter(),
		handler:  h,
		events:   h.State().Events,
		settings: s,
	}, nil
}

// MountHandlers installs middleware and routes.
func (s *CommandServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	if s.settings.Server.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.Router.Use(versionCheck)

	s.Router.Route("/commands", func(r chi.Router) {
		r.Get("/", s.listCommands)
		r.Post("/{name}", s.invokeCommand)
	})
	s.Router.Get("/events", s.streamEvents)
	s.Router.Get("/version", s.getVersion)
	s.Router.Get("/ready", s.getReadiness)

	if zerolog.GlobalLevel() <= zerolog.TraceLevel {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			log.Trace().Str("method", method).Str("route", route).Msg("route")
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("error walking router")
		}
	}
}

// HandleCORS allows the shell's webview origin to call the server.
func (s *CommandServer) HandleCORS(next http.Handler) http.Handler {
	origins := s.settings.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"tauri://localhost", "http://tauri.localhost", "http://localhost:*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", APIVersionHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}

// Serve listens on the configured address until ctx is done or the listener fails.
// The returned function shuts the server down, giving open requests five seconds.
func (s *CommandServer) Serve(ctx context.Context) (<-chan error, func(), error) {
	addr := s.settings.Server.ListenAddr
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("command server started")
		serverErrors <- srv.Serve(ln)
	}()

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("could not stop server gracefully")
			if err := srv.Close(); err != nil {
				log.Error().Err(err).Msg("could not stop server")
			}
		}
	}
	return serverErrors, shutdown, nil
}
