package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teachcharlie/tcagent/internal/companion/commands"
	"github.com/teachcharlie/tcagent/internal/companion/paths"
	"github.com/teachcharlie/tcagent/internal/companion/server"
	"github.com/teachcharlie/tcagent/internal/companion/sidecar"
	"github.com/teachcharlie/tcagent/internal/companion/state"
)

type proc struct {
	once sync.Once
	done chan struct{}
}

func (p *proc) Pid() int { return 55 }
func (p *proc) Kill() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
func (p *proc) Wait() error { <-p.done; return nil }

type launcher struct{}

func (launcher) Launch(context.Context, string, []string) (sidecar.Process, error) {
	return &proc{done: make(chan struct{})}, nil
}

func newTestClient(t *testing.T) (*Client, *state.AppState) {
	t.Helper()
	app := state.New(paths.New(t.TempDir()), nil, state.WithLauncher(launcher{}))
	srv, err := server.CreateNewServer(commands.NewHandler(app), nil)
	require.NoError(t, err)
	srv.MountHandlers()
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(func() {
		app.Shutdown(context.Background())
		ts.Close()
	})

	c, err := NewClient(ts.URL, WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c, app
}

func str(s string) *string { return &s }

func TestClientCommands(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.WaitReady(ctx))

	cfg, err := c.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg.APIURL)

	on := true
	require.NoError(t, c.StoreConfig(ctx, Config{APIURL: str("https://app.teachcharlie.ai"), MCPToken: str("T"), AutoStart: &on}))
	cfg, err = c.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://app.teachcharlie.ai", *cfg.APIURL)
	assert.Equal(t, "T", *cfg.MCPToken)
	assert.Nil(t, cfg.SessionToken)
	assert.True(t, *cfg.AutoStart)

	path, err := c.WriteMCPConfig(ctx, "T", "U")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	cp, err := c.ConfigPath(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cp)

	running, err := c.SidecarStatus(ctx)
	require.NoError(t, err)
	assert.False(t, running)
	require.NoError(t, c.StartSidecar(ctx, "T", "U"))
	running, err = c.SidecarStatus(ctx)
	require.NoError(t, err)
	assert.True(t, running)
	require.NoError(t, c.StopSidecar(ctx))

	v, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, APIVersion, v.ApiVersion)
}

func TestClientCommandError(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.Invoke(context.Background(), "reboot", nil)
	require.Error(t, err)
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, http.StatusNotFound, cmdErr.StatusCode)
	assert.Contains(t, cmdErr.Message, "reboot")
}

func TestClientEvents(t *testing.T) {
	c, app := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []Event
	done := make(chan error, 1)
	go func() {
		done <- c.Events(ctx, SidecarStatusEvent, func(ev Event) error {
			got = append(got, ev)
			if len(got) == 2 {
				return io.EOF
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return app.Events.SubscriberCount() > 0 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, c.StartSidecar(ctx, "T", "U"))
	require.NoError(t, c.StopSidecar(ctx))

	require.NoError(t, <-done)
	require.Len(t, got, 2)
	assert.Equal(t, Event{Event: SidecarStatusEvent, Payload: "running"}, got[0])
	assert.Equal(t, "stopped", got[1].Payload)
}

func TestWaitReadyGivesUp(t *testing.T) {
	c, err := NewClient("127.0.0.1:1", WithReadyAttempts(2), WithRetryDelay(time.Millisecond), WithTimeout(200*time.Millisecond))
	require.NoError(t, err)
	assert.Error(t, c.WaitReady(context.Background()))
}

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}
