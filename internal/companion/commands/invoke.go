package commands

import (
	"context"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/teachcharlie/tcagent/internal/common/apperrors"
	"github.com/teachcharlie/tcagent/internal/companion/agentcommon"
	"github.com/teachcharlie/tcagent/internal/companion/config"
)

const (
	CmdLoadConfig     = "load_config"
	CmdStoreConfig    = "store_config"
	CmdWriteMCPConfig = "write_mcp_config"
	CmdStartSidecar   = "start_sidecar"
	CmdStopSidecar    = "stop_sidecar"
	CmdSidecarStatus  = "sidecar_status"
	CmdGetConfigPath  = "get_config_path"
)

// SidecarArgs carries the credentials for start_sidecar and write_mcp_config.
type SidecarArgs struct {
	Token  string `mapstructure:"token"`
	APIURL string `mapstructure:"apiUrl"`
}

// StoreConfigArgs carries the record for store_config.
type StoreConfigArgs struct {
	Config config.Record `mapstructure:"config"`
}

type commandFunc func(ctx context.Context, h *Handler, args map[string]any) (any, apperrors.Error)

var registry = map[string]commandFunc{
	CmdLoadConfig: func(ctx context.Context, h *Handler, _ map[string]any) (any, apperrors.Error) {
		r, err := h.LoadConfig(ctx)
		if err != nil {
			return nil, err
		}
		return r, nil
	},
	CmdStoreConfig: func(ctx context.Context, h *Handler, args map[string]any) (any, apperrors.Error) {
		var a StoreConfigArgs
		if err := decodeArgs(args, &a, "config"); err != nil {
			return nil, err
		}
		return nil, h.StoreConfig(ctx, a.Config)
	},
	CmdWriteMCPConfig: func(ctx context.Context, h *Handler, args map[string]any) (any, apperrors.Error) {
		var a SidecarArgs
		if err := decodeArgs(args, &a, "token", "apiUrl"); err != nil {
			return nil, err
		}
		path, err := h.WriteMCPConfig(ctx, a.Token, a.APIURL)
		if err != nil {
			return nil, err
		}
		return path, nil
	},
	CmdStartSidecar: func(ctx context.Context, h *Handler, args map[string]any) (any, apperrors.Error) {
		var a SidecarArgs
		if err := decodeArgs(args, &a, "token", "apiUrl"); err != nil {
			return nil, err
		}
		return nil, h.StartSidecar(ctx, a.Token, a.APIURL)
	},
	CmdStopSidecar: func(ctx context.Context, h *Handler, _ map[string]any) (any, apperrors.Error) {
		return nil, h.StopSidecar(ctx)
	},
	CmdSidecarStatus: func(ctx context.Context, h *Handler, _ map[string]any) (any, apperrors.Error) {
		running, err := h.SidecarStatus(ctx)
		if err != nil {
			return nil, err
		}
		return running, nil
	},
	CmdGetConfigPath: func(ctx context.Context, h *Handler, _ map[string]any) (any, apperrors.Error) {
		return h.GetConfigPath(ctx), nil
	},
}

// Names returns the registered command names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named command. Unknown names fail with ErrUnknownCommand and
// malformed arguments with ErrInvalidArgs.
func (h *Handler) Invoke(ctx context.Context, name string, args map[string]any) (any, apperrors.Error) {
	fn, ok := registry[name]
	if !ok {
		return nil, agentcommon.ErrUnknownCommand.Msg("unknown command: " + name)
	}
	return fn(ctx, h, args)
}

// argAliases maps snake_case keys some callers send to the names the shell uses.
var argAliases = map[string]string{
	"api_url": "apiUrl",
}

func decodeArgs(args map[string]any, out any, required ...string) apperrors.Error {
	normalized := make(map[string]any, len(args))
	for k, v := range args {
		normalized[k] = v
	}
	for from, to := range argAliases {
		if v, ok := normalized[from]; ok {
			if _, exists := normalized[to]; !exists {
				normalized[to] = v
			}
			delete(normalized, from)
		}
	}

	for _, key := range required {
		v, ok := normalized[key]
		if !ok {
			return agentcommon.ErrInvalidArgs.Msg("missing required key " + key)
		}
		if v == nil {
			return agentcommon.ErrInvalidArgs.Msg("required key " + key + " is null")
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return agentcommon.ErrInvalidArgs.Err(err)
	}
	if err := dec.Decode(normalized); err != nil {
		return agentcommon.ErrInvalidArgs.Err(err)
	}
	return nil
}
