package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/h2non/filetype"
	"github.com/spf13/cobra"

	"github.com/teachcharlie/tcagent/internal/companion/config"
	"github.com/teachcharlie/tcagent/internal/companion/sidecar"
	"github.com/teachcharlie/tcagent/pkg/api"
)

// Known executable binary types
var binaryTypes = map[string]bool{
	"elf":   true, // Linux
	"macho": true, // macOS
	"exe":   true, // Windows
}

type check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the local installation",
		Long: `Check that config.json parses, that tc-connector can be found and is a native
executable, and whether a command server is answering.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := runChecks(cmd.Context())
			failed := false
			for _, c := range checks {
				failed = failed || !c.OK
			}
			if jsonOutput {
				result := 1
				if failed {
					result = 0
				}
				printJSON(map[string]any{"result": result, "checks": checks})
			} else {
				for _, c := range checks {
					if c.OK {
						okLabel.Fprintf(cmd.OutOrStdout(), "[ok]   ")
					} else {
						errorLabel.Fprintf(cmd.OutOrStdout(), "[fail] ")
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", c.Name, c.Detail)
				}
			}
			if failed {
				return ErrAlreadyHandled
			}
			return nil
		},
	}
}

func runChecks(ctx context.Context) []check {
	var checks []check

	store := config.NewStore(env.paths.ConfigFile())
	if _, err := store.Load(); err != nil {
		checks = append(checks, check{Name: "config", Detail: err.ErrorAll()})
	} else {
		checks = append(checks, check{Name: "config", OK: true, Detail: store.Path()})
	}

	checks = append(checks, connectorCheck(env.settings.Connector.Command))
	checks = append(checks, serverCheck(ctx, env.settings.Server.ListenAddr))
	return checks
}

// serverCheck never fails: the shell starts the server on demand.
func serverCheck(ctx context.Context, addr string) check {
	client, err := api.NewClient(addr, api.WithReadyAttempts(1), api.WithTimeout(time.Second))
	if err != nil {
		return check{Name: "server", Detail: err.Error()}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := waitForServer(ctx, client); err != nil {
		return check{Name: "server", OK: true, Detail: "not running at " + addr}
	}
	return check{Name: "server", OK: true, Detail: "answering at " + addr}
}

func waitForServer(ctx context.Context, client *api.Client) error {
	if err := client.WaitReady(ctx); err != nil {
		return fmt.Errorf("command server not reachable: %w", err)
	}
	return nil
}

func connectorCheck(command string) check {
	path, err := sidecar.ResolveCommand(command)
	if err != nil {
		return check{Name: "connector", Detail: err.Error()}
	}
	isBinary, err := isBinaryExecutable(path)
	if err != nil {
		return check{Name: "connector", Detail: err.Error()}
	}
	if !isBinary {
		return check{Name: "connector", Detail: path + " is not a native executable"}
	}
	return check{Name: "connector", OK: true, Detail: path}
}

func isBinaryExecutable(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	// Read first 261 bytes (enough for filetype sniffing)
	header := make([]byte, 261)
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false, err
	}

	kind, err := filetype.Match(header[:n])
	if err != nil {
		return false, err
	}
	if kind == filetype.Unknown {
		return false, nil
	}

	return binaryTypes[kind.Extension], nil
}

func init() {
	rootCmd.AddCommand(newDoctorCmd())
}
