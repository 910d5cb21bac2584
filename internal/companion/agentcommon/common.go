package agentcommon

// TopicSidecarStatus is the event name the shell listens on for sidecar transitions.
const TopicSidecarStatus = "sidecar-status"

// SidecarStatus is the payload of a sidecar-status event.
type SidecarStatus string

const (
	SidecarRunning SidecarStatus = "running"
	SidecarStopped SidecarStatus = "stopped"
)

// ConnectorCommand is the connector executable name.
const ConnectorCommand = "tc-connector"

// DefaultAPIURL is used when neither the caller nor the stored config names an API URL.
const DefaultAPIURL = "https://app.teachcharlie.ai"

// ConnectorArgs returns the argument vector the connector is launched with.
// The same vector is written into the MCP descriptor.
func ConnectorArgs(token, apiURL string) []string {
	return []string{"--token", token, "--api-url", apiURL}
}
