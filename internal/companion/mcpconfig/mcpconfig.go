// Package mcpconfig writes the MCP descriptor that tells an external MCP client how to
// invoke the connector. The file is produced for that client only and never read back.
package mcpconfig

import (
	"encoding/json"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/teachcharlie/tcagent/internal/common/apperrors"
	"github.com/teachcharlie/tcagent/internal/companion/agentcommon"
	"github.com/teachcharlie/tcagent/internal/companion/config"
)

const (
	// ServerName is the key the connector is registered under in mcpServers.
	ServerName = "teach-charlie"

	// DefaultCommand is the connector command written into the descriptor.
	DefaultCommand = agentcommon.ConnectorCommand
)

// Server is one entry of mcpServers.
type Server struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// Descriptor is the document written to mcp-config.json.
type Descriptor struct {
	MCPServers map[string]Server `json:"mcpServers"`
}

// Build returns the descriptor for the given credentials.
func Build(command, token, apiURL string) Descriptor {
	if command == "" {
		command = DefaultCommand
	}
	return Descriptor{
		MCPServers: map[string]Server{
			ServerName: {
				Command: command,
				Args:    agentcommon.ConnectorArgs(token, apiURL),
			},
		},
	}
}

// Writer regenerates mcp-config.json in full on every Write.
type Writer struct {
	path    string
	command string
}

// NewWriter returns a Writer for path. An empty command selects DefaultCommand.
func NewWriter(path, command string) *Writer {
	if command == "" {
		command = DefaultCommand
	}
	return &Writer{path: path, command: command}
}

// Path returns the absolute path of the descriptor file.
func (w *Writer) Path() string {
	return w.path
}

// Write builds the descriptor, writes it and returns the absolute path written.
func (w *Writer) Write(token, apiURL string) (string, apperrors.Error) {
	data, err := json.MarshalIndent(Build(w.command, token, apiURL), "", "  ")
	if err != nil {
		return "", agentcommon.ErrFormat.MsgErr("unable to serialize mcp config", err)
	}
	data = append(data, '\n')

	if err := config.WriteFileAtomic(w.path, data, 0600); err != nil {
		return "", err
	}

	abs, aerr := filepath.Abs(w.path)
	if aerr != nil {
		abs = w.path
	}
	log.Debug().Str("path", abs).Msg("mcp config written")
	return abs, nil
}
