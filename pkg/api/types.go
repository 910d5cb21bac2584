package api

// Config mirrors the companion's configuration record on the wire. A nil field is unset.
type Config struct {
	APIURL       *string `json:"api_url" yaml:"api_url"`
	MCPToken     *string `json:"mcp_token" yaml:"mcp_token"`
	SessionToken *string `json:"clerk_session" yaml:"clerk_session"`
	AutoStart    *bool   `json:"auto_start" yaml:"auto_start"`
}

// Event is one line of the /events stream.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// VersionInfo is returned by /version.
type VersionInfo struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

// SidecarStatusEvent is the event name for connector transitions.
const SidecarStatusEvent = "sidecar-status"

// APIVersion is the command API version this client speaks.
const APIVersion = "1.0.0"

const apiVersionHeader = "X-Tcagent-Api-Version"
