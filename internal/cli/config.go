package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"

	"github.com/teachcharlie/tcagent/internal/companion/config"
)

// settableKeys are the config.json members accepted by "config set".
var settableKeys = map[string]bool{
	"api_url":       true,
	"mcp_token":     true,
	"clerk_session": true,
	"auto_start":    true,
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the stored configuration",
	}

	var output string
	var showSecrets bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored configuration",
		Long: `Print config.json. Tokens are masked unless --show-secrets is given.

Examples:
  tcagent config show
  tcagent config show -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := config.NewStore(env.paths.ConfigFile()).Load()
			if err != nil {
				return fmt.Errorf("%s", err.ErrorAll())
			}
			if !showSecrets {
				rec = maskRecord(rec)
			}
			if output == "yaml" {
				out, yerr := yaml.Marshal(rec)
				if yerr != nil {
					return fmt.Errorf("unable to format yaml: %w", yerr)
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
				return nil
			}
			printJSON(rec)
			return nil
		},
	}
	showCmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print tokens unmasked")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the path of config.json",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			path := config.NewStore(env.paths.ConfigFile()).Path()
			if jsonOutput {
				printJSON(map[string]string{"path": path})
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set key=value [key=value...]",
		Short: "Set configuration values",
		Long: `Set one or more members of config.json. The value null unsets a member.
Keys: api_url, mcp_token, clerk_session, auto_start.

Examples:
  tcagent config set api_url=https://app.teachcharlie.ai
  tcagent config set auto_start=true mcp_token=null`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := config.NewStore(env.paths.ConfigFile())
			rec, err := store.Load()
			if err != nil {
				return fmt.Errorf("%s", err.ErrorAll())
			}
			updated, aerr := applyAssignments(rec, args)
			if aerr != nil {
				return aerr
			}
			if err := store.Store(updated); err != nil {
				return fmt.Errorf("%s", err.ErrorAll())
			}
			printOK(cmd, "configuration updated", map[string]any{"path": store.Path()})
			return nil
		},
	}

	configCmd.AddCommand(showCmd, pathCmd, setCmd)
	return configCmd
}

// applyAssignments edits the JSON form of rec with each key=value pair.
func applyAssignments(rec config.Record, assignments []string) (config.Record, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return rec, err
	}
	doc := string(raw)

	for _, a := range assignments {
		key, val, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return rec, fmt.Errorf("invalid assignment %q, expected key=value", a)
		}
		if !settableKeys[key] {
			return rec, fmt.Errorf("unknown config key %q", key)
		}

		switch {
		case val == "null":
			doc, err = sjson.SetRaw(doc, key, "null")
		case key == "auto_start":
			b, perr := strconv.ParseBool(val)
			if perr != nil {
				return rec, fmt.Errorf("auto_start must be true, false or null")
			}
			doc, err = sjson.Set(doc, key, b)
		default:
			doc, err = sjson.Set(doc, key, val)
		}
		if err != nil {
			return rec, fmt.Errorf("unable to set %s: %w", key, err)
		}
	}

	var out config.Record
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return rec, err
	}
	return out, nil
}

func maskRecord(r config.Record) config.Record {
	m := r.Clone()
	if m.MCPToken != nil {
		m.MCPToken = config.String(mask(*m.MCPToken))
	}
	if m.SessionToken != nil {
		m.SessionToken = config.String(mask(*m.SessionToken))
	}
	return m
}

func mask(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", 8) + string(r[len(r)-4:])
}

func init() {
	rootCmd.AddCommand(newConfigCmd())
}
