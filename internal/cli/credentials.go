package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/teachcharlie/tcagent/internal/companion/agentcommon"
	"github.com/teachcharlie/tcagent/internal/companion/config"
)

const (
	tokenEnv  = "TC_TOKEN"
	apiURLEnv = "TC_API_URL"
)

type credentials struct {
	token  string
	apiURL string
}

func addCredentialFlags(cmd *cobra.Command, c *credentials) {
	cmd.Flags().StringVar(&c.token, "token", "", "Connector token (default $"+tokenEnv+" or mcp_token from config.json)")
	cmd.Flags().StringVar(&c.apiURL, "api-url", "", "Teach Charlie API URL (default $"+apiURLEnv+", api_url from config.json, or "+agentcommon.DefaultAPIURL+")")
}

// resolve fills unset values from the environment, then rec, then the default API URL.
func (c credentials) resolve(rec config.Record) credentials {
	out := c
	if out.token == "" {
		out.token = os.Getenv(tokenEnv)
	}
	if out.token == "" {
		out.token = config.Deref(rec.MCPToken)
	}
	if out.apiURL == "" {
		out.apiURL = os.Getenv(apiURLEnv)
	}
	if out.apiURL == "" {
		out.apiURL = config.Deref(rec.APIURL)
	}
	if out.apiURL == "" {
		out.apiURL = agentcommon.DefaultAPIURL
	}
	return out
}
