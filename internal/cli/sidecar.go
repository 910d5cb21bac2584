package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teachcharlie/tcagent/internal/companion/config"
	"github.com/teachcharlie/tcagent/pkg/api"
)

var serverAddr string

func newClient() (*api.Client, error) {
	addr := serverAddr
	if addr == "" {
		addr = env.settings.Server.ListenAddr
	}
	return api.NewClient(addr, api.WithTimeout(30*time.Second))
}

func newSidecarCmd() *cobra.Command {
	sidecarCmd := &cobra.Command{
		Use:   "sidecar",
		Short: "Control the connector through a running tcagent server",
	}
	sidecarCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "Command server address (default from companion.toml)")

	var creds credentials
	var writeMCP bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the connector",
		Long: `Start tc-connector. Starting while it is already running does nothing.

Examples:
  tcagent sidecar start
  tcagent sidecar start --token <token> --write-mcp-config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newClient()
			if err != nil {
				return err
			}
			rec, lerr := config.NewStore(env.paths.ConfigFile()).Load()
			if lerr != nil {
				return fmt.Errorf("%s", lerr.ErrorAll())
			}
			c := creds.resolve(rec)
			if c.token == "" {
				return errors.New("no token: pass --token, set " + tokenEnv + " or store mcp_token")
			}
			if err := client.StartSidecar(ctx, c.token, c.apiURL); err != nil {
				return err
			}
			fields := map[string]any{"running": true}
			if writeMCP {
				path, err := client.WriteMCPConfig(ctx, c.token, c.apiURL)
				if err != nil {
					return err
				}
				fields["mcpConfig"] = path
			}
			printOK(cmd, "connector running", fields)
			return nil
		},
	}
	addCredentialFlags(startCmd, &creds)
	startCmd.Flags().BoolVar(&writeMCP, "write-mcp-config", false, "Also write mcp-config.json")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the connector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			if err := client.StopSidecar(cmd.Context()); err != nil {
				return err
			}
			printOK(cmd, "connector stopped", map[string]any{"running": false})
			return nil
		},
	}

	var watch bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the last known connector state",
		Long: `Print whether the server last recorded the connector as running. This is the
state after the last start or stop, not a live check of the process.

Examples:
  tcagent sidecar status
  tcagent sidecar status --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newClient()
			if err != nil {
				return err
			}
			running, err := client.SidecarStatus(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd, running)
			if !watch {
				return nil
			}
			return client.Events(ctx, api.SidecarStatusEvent, func(ev api.Event) error {
				printStatus(cmd, ev.Payload == "running")
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep printing status changes")

	sidecarCmd.AddCommand(startCmd, stopCmd, statusCmd)
	return sidecarCmd
}

func printStatus(cmd *cobra.Command, running bool) {
	if jsonOutput {
		printJSON(map[string]any{"result": 1, "running": running})
		return
	}
	if running {
		okLabel.Fprintln(cmd.OutOrStdout(), "running")
	} else {
		errorLabel.Fprintln(cmd.OutOrStdout(), "stopped")
	}
}

func init() {
	rootCmd.AddCommand(newSidecarCmd())
}
