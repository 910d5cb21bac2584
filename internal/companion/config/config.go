// Package config persists the companion's configuration record to config.json and keeps
// an in-memory mirror of the last loaded or stored record.
package config

// Record is the persisted configuration. Every field is optional; a nil field is unset
// and serializes as null. Tokens and URLs are opaque strings.
type Record struct {
	APIURL       *string `json:"api_url" yaml:"api_url" mapstructure:"api_url"`
	MCPToken     *string `json:"mcp_token" yaml:"mcp_token" mapstructure:"mcp_token"`
	SessionToken *string `json:"clerk_session" yaml:"clerk_session" mapstructure:"clerk_session"`
	AutoStart    *bool   `json:"auto_start" yaml:"auto_start" mapstructure:"auto_start"`
}

// String returns a pointer to s for populating Record fields.
func String(s string) *string { return &s }

// Bool returns a pointer to b for populating Record fields.
func Bool(b bool) *bool { return &b }

// Clone returns a deep copy so callers never share field storage with the mirror.
func (r Record) Clone() Record {
	var c Record
	if r.APIURL != nil {
		c.APIURL = String(*r.APIURL)
	}
	if r.MCPToken != nil {
		c.MCPToken = String(*r.MCPToken)
	}
	if r.SessionToken != nil {
		c.SessionToken = String(*r.SessionToken)
	}
	if r.AutoStart != nil {
		c.AutoStart = Bool(*r.AutoStart)
	}
	return c
}

// AutoStartEnabled reports whether auto_start is set and true.
func (r Record) AutoStartEnabled() bool {
	return r.AutoStart != nil && *r.AutoStart
}

// IsEmpty reports whether every field is unset.
func (r Record) IsEmpty() bool {
	return r.APIURL == nil && r.MCPToken == nil && r.SessionToken == nil && r.AutoStart == nil
}

// Deref returns the value of s or "" when unset.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
