// Package paths resolves the per-user base directory and the fixed file names the
// companion reads and writes inside it.
package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const (
	// DirName is the base directory under the user's home directory.
	DirName = ".teach-charlie"

	ConfigFileName    = "config.json"
	MCPConfigFileName = "mcp-config.json"
	SettingsFileName  = "companion.toml"
	EnvFileName       = ".env"

	// HomeEnv overrides the base directory when set.
	HomeEnv = "TCAGENT_HOME"
)

// Paths locates companion files under one base directory.
type Paths struct {
	baseDir string
}

// New returns Paths rooted at baseDir. The directory is not created.
func New(baseDir string) *Paths {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		abs = filepath.Clean(baseDir)
	}
	return &Paths{baseDir: abs}
}

// Default resolves the base directory from TCAGENT_HOME or the user's home directory.
func Default() (*Paths, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return New(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	if home == "" {
		return nil, fmt.Errorf("could not determine home directory")
	}
	return New(filepath.Join(home, DirName)), nil
}

// MustDefault is Default for startup code. A missing home directory is an
// environment precondition failure and terminates the process.
func MustDefault() *Paths {
	p, err := Default()
	if err != nil {
		log.Fatal().Err(err).Msg("unable to resolve companion base directory")
	}
	return p
}

func (p *Paths) BaseDir() string       { return p.baseDir }
func (p *Paths) ConfigFile() string    { return filepath.Join(p.baseDir, ConfigFileName) }
func (p *Paths) MCPConfigFile() string { return filepath.Join(p.baseDir, MCPConfigFileName) }
func (p *Paths) SettingsFile() string  { return filepath.Join(p.baseDir, SettingsFileName) }
func (p *Paths) EnvFile() string       { return filepath.Join(p.baseDir, EnvFileName) }

// EnsureBaseDir creates the base directory and any missing parents.
func (p *Paths) EnsureBaseDir() error {
	return os.MkdirAll(p.baseDir, 0700)
}
