package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachcharlie/tcagent/internal/companion/agentcommon"
	"github.com/teachcharlie/tcagent/internal/companion/config"
)

func TestApplyAssignments(t *testing.T) {
	base := config.Record{
		APIURL:   config.String("http://localhost:3000"),
		MCPToken: config.String("tok"),
	}

	tests := []struct {
		name        string
		assignments []string
		check       func(t *testing.T, r config.Record)
		wantErr     bool
	}{
		{
			name:        "set string",
			assignments: []string{"mcp_token=new-token"},
			check: func(t *testing.T, r config.Record) {
				assert.Equal(t, "new-token", config.Deref(r.MCPToken))
				assert.Equal(t, "http://localhost:3000", config.Deref(r.APIURL))
			},
		},
		{
			name:        "clear with null",
			assignments: []string{"api_url=null"},
			check: func(t *testing.T, r config.Record) {
				assert.Nil(t, r.APIURL)
				assert.Equal(t, "tok", config.Deref(r.MCPToken))
			},
		},
		{
			name:        "bool and session",
			assignments: []string{"auto_start=true", "clerk_session=sess"},
			check: func(t *testing.T, r config.Record) {
				require.NotNil(t, r.AutoStart)
				assert.True(t, *r.AutoStart)
				assert.Equal(t, "sess", config.Deref(r.SessionToken))
			},
		},
		{
			name:        "value containing equals",
			assignments: []string{"mcp_token=a=b"},
			check: func(t *testing.T, r config.Record) {
				assert.Equal(t, "a=b", config.Deref(r.MCPToken))
			},
		},
		{name: "unknown key", assignments: []string{"theme=dark"}, wantErr: true},
		{name: "missing equals", assignments: []string{"mcp_token"}, wantErr: true},
		{name: "bad bool", assignments: []string{"auto_start=maybe"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyAssignments(base, tt.assignments)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}

	// base is untouched
	assert.Equal(t, "tok", config.Deref(base.MCPToken))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "********wxyz", mask("secret-wxyz"))
	assert.Equal(t, "***", mask("äöü"))
	assert.Equal(t, "********крет", mask("ключ-секрет"))

	r := config.Record{MCPToken: config.String("token-1234"), APIURL: config.String("http://x")}
	m := maskRecord(r)
	assert.Equal(t, "********1234", config.Deref(m.MCPToken))
	assert.Nil(t, m.SessionToken)
	assert.Equal(t, "http://x", config.Deref(m.APIURL))
	assert.Equal(t, "token-1234", config.Deref(r.MCPToken))
}

func TestCredentialsResolve(t *testing.T) {
	rec := config.Record{
		APIURL:   config.String("http://stored"),
		MCPToken: config.String("stored-token"),
	}

	t.Run("flags win", func(t *testing.T) {
		t.Setenv(tokenEnv, "env-token")
		c := credentials{token: "flag-token", apiURL: "http://flag"}.resolve(rec)
		assert.Equal(t, "flag-token", c.token)
		assert.Equal(t, "http://flag", c.apiURL)
	})

	t.Run("environment before record", func(t *testing.T) {
		t.Setenv(tokenEnv, "env-token")
		t.Setenv(apiURLEnv, "")
		c := credentials{}.resolve(rec)
		assert.Equal(t, "env-token", c.token)
		assert.Equal(t, "http://stored", c.apiURL)
	})

	t.Run("default api url", func(t *testing.T) {
		t.Setenv(tokenEnv, "")
		t.Setenv(apiURLEnv, "")
		c := credentials{}.resolve(config.Record{})
		assert.Empty(t, c.token)
		assert.Equal(t, agentcommon.DefaultAPIURL, c.apiURL)
	})
}

func TestIsBinaryExecutable(t *testing.T) {
	dir := t.TempDir()

	elf := make([]byte, 64)
	copy(elf, []byte{0x7f, 'E', 'L', 'F', 2, 1, 1})
	elfPath := filepath.Join(dir, "tc-connector")
	require.NoError(t, os.WriteFile(elfPath, elf, 0755))

	scriptPath := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\necho hi\n"), 0755))

	ok, err := isBinaryExecutable(elfPath)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = isBinaryExecutable(scriptPath)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = isBinaryExecutable(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	assert.True(t, connectorCheck(elfPath).OK)
	assert.False(t, connectorCheck(scriptPath).OK)
	assert.False(t, connectorCheck(filepath.Join(dir, "missing")).OK)
}

func TestServerCheckNotRunning(t *testing.T) {
	c := serverCheck(context.Background(), "127.0.0.1:1")
	assert.True(t, c.OK)
	assert.Contains(t, c.Detail, "not running")
}
