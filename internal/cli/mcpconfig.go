package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teachcharlie/tcagent/internal/companion/config"
	"github.com/teachcharlie/tcagent/internal/companion/mcpconfig"
)

func newMCPConfigCmd() *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp-config",
		Short: "Manage the MCP descriptor for external MCP clients",
	}

	var creds credentials
	writeCmd := &cobra.Command{
		Use:   "write",
		Short: "Write mcp-config.json",
		Long: `Write mcp-config.json so an MCP client can launch tc-connector with your token.

Examples:
  tcagent mcp-config write
  tcagent mcp-config write --token <token> --api-url http://localhost:3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := config.NewStore(env.paths.ConfigFile()).Load()
			if err != nil {
				return fmt.Errorf("%s", err.ErrorAll())
			}
			c := creds.resolve(rec)
			if c.token == "" {
				return errors.New("no token: pass --token, set " + tokenEnv + " or store mcp_token")
			}

			command := env.settings.Connector.MCPCommand
			if command == "" {
				command = env.settings.Connector.Command
			}
			path, werr := mcpconfig.NewWriter(env.paths.MCPConfigFile(), command).Write(c.token, c.apiURL)
			if werr != nil {
				return fmt.Errorf("%s", werr.ErrorAll())
			}
			printOK(cmd, "wrote "+path, map[string]any{"path": path})
			return nil
		},
	}
	addCredentialFlags(writeCmd, &creds)

	mcpCmd.AddCommand(writeCmd)
	return mcpCmd
}

func init() {
	rootCmd.AddCommand(newMCPConfigCmd())
}
