package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/teachcharlie/tcagent/internal/common/httpx"
	"github.com/teachcharlie/tcagent/internal/companion/commands"
)

// CommandRsp is the body of a successful command response.
type CommandRsp struct {
	Result any `json:"result"`
}

// ListCommandsRsp lists the registered command names.
type ListCommandsRsp struct {
	Commands []string `json:"commands"`
}

// GetVersionRsp represents the response for version information.
type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *CommandServer) invokeCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	args := map[string]any{}
	if err := httpx.GetRequestData(r, &args); err != nil {
		var httpErr *httpx.Error
		if errors.As(err, &httpErr) {
			httpErr.Send(w)
			return
		}
		httpx.ErrUnableToParseReqData().Send(w)
		return
	}

	log.Ctx(ctx).Debug().Str("command", name).Msg("invoke")
	result, err := s.handler.Invoke(ctx, name, args)
	if err != nil {
		httpx.SendError(w, err)
		return
	}
	httpx.SendJsonRsp(ctx, w, http.StatusOK, &CommandRsp{Result: result})
}

func (s *CommandServer) listCommands(w http.ResponseWriter, r *http.Request) {
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, &ListCommandsRsp{Commands: commands.Names()})
}

// streamEvents writes one JSON event per line until the client goes away or the
// bus shuts down. The optional event query parameter narrows the subscription.
func (s *CommandServer) streamEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.ErrStreamingNotSupported().Send(w)
		return
	}

	pattern := r.URL.Query().Get("event")
	if pattern == "" {
		pattern = "*"
	}
	ch, unsubscribe := s.events.Subscribe(pattern, 16)
	defer unsubscribe()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := enc.Encode(ev); err != nil {
				log.Ctx(ctx).Debug().Err(err).Msg("event stream closed")
				return
			}
			flusher.Flush()
		}
	}
}

func (s *CommandServer) getVersion(w http.ResponseWriter, r *http.Request) {
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, &GetVersionRsp{
		ServerVersion: "tcagent: " + Version,
		ApiVersion:    APIVersion,
	})
}

func (s *CommandServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
