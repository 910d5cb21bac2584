// Package cli implements the tcagent command line: the command server, local config
// and MCP descriptor management, and sidecar control through a running server.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teachcharlie/tcagent/internal/common/logtrace"
	"github.com/teachcharlie/tcagent/internal/companion/paths"
	"github.com/teachcharlie/tcagent/internal/companion/server"
	"github.com/teachcharlie/tcagent/internal/companion/settings"
)

var (
	// Global flags
	jsonOutput   bool
	homeDir      string
	settingsFile string
	logLevel     string
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// env is resolved once per invocation in preRunHandlePersistents.
var env struct {
	paths    *paths.Paths
	settings *settings.Settings
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tcagent [command] [flags]",
	Short: "tcagent - Teach Charlie desktop companion",
	Long: `tcagent keeps the Teach Charlie credentials on this machine and supervises the
tc-connector process that talks to the Teach Charlie service.

Examples:
  # Run the command server the desktop shell talks to
  tcagent serve

  # Show the stored configuration
  tcagent config show

  # Start the connector through a running server
  tcagent sidecar start --token <token>`,
	PersistentPreRunE: preRunHandlePersistents,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Base directory (default $"+paths.HomeEnv+" or ~/"+paths.DirName+")")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "Path to companion.toml (default <home>/"+paths.SettingsFileName+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override")

	rootCmd.AddCommand(newVersionCmd())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(map[string]any{
				"result": 0,
				"error":  err.Error(),
			})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// preRunHandlePersistents resolves the base directory, loads <home>/.env and
// companion.toml, and initialises logging.
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	if homeDir != "" {
		env.paths = paths.New(homeDir)
	} else {
		env.paths = paths.MustDefault()
	}

	// no error if .env doesn't exist
	_ = godotenv.Load(env.paths.EnvFile())

	file := settingsFile
	if file == "" {
		file = env.paths.SettingsFile()
	}
	s, err := settings.Load(file)
	if err != nil {
		return fmt.Errorf("%s", err.ErrorAll())
	}
	env.settings = s

	level := s.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logtrace.InitLogger(logtrace.Options{Level: level, Console: true})
	return nil
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tcagent",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{
					"version":    server.Version,
					"apiVersion": server.APIVersion,
					"home":       env.paths.BaseDir(),
				})
				return
			}
			cmd.Printf("tcagent %s (api %s)\n", server.Version, server.APIVersion)
			cmd.Printf("Home: %s\n", env.paths.BaseDir())
		},
	}
}

// printJSON prints the given value as indented JSON to stdout
func printJSON(data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}

// printOK prints a success line, or {"result":1,...} with --json.
func printOK(cmd *cobra.Command, msg string, fields map[string]any) {
	if jsonOutput {
		out := map[string]any{"result": 1}
		for k, v := range fields {
			out[k] = v
		}
		printJSON(out)
		return
	}
	okLabel.Fprint(cmd.OutOrStdout(), "ok: ")
	fmt.Fprintln(cmd.OutOrStdout(), msg)
}
