package sidecar

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/teachcharlie/tcagent/internal/common/logtrace"
	"github.com/teachcharlie/tcagent/internal/companion/agentcommon"
)

// Process is a launched connector.
type Process interface {
	Pid() int
	// Kill requests termination. It does not wait for the process to exit.
	Kill() error
	// Wait blocks until the process exits. It is safe to call more than once.
	Wait() error
}

// Launcher starts the connector process.
type Launcher interface {
	Launch(ctx context.Context, name string, args []string) (Process, error)
}

// ExecLauncher launches the connector with os/exec. The child is not bound to ctx
// since it outlives the request that started it.
type ExecLauncher struct{}

var _ Launcher = ExecLauncher{}

func (ExecLauncher) Launch(ctx context.Context, name string, args []string) (Process, error) {
	path, err := ResolveCommand(name)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(path, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{cmd: cmd}
	p.drain.Add(2)
	go p.forward("stdout", stdout)
	go p.forward("stderr", stderr)

	log.Ctx(ctx).Info().Int("pid", cmd.Process.Pid).Str("command", path).Msg("connector launched")
	return p, nil
}

type execProcess struct {
	cmd   *exec.Cmd
	drain sync.WaitGroup

	waitOnce sync.Once
	waitErr  error
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *execProcess) Wait() error {
	p.waitOnce.Do(func() {
		// pipes must be fully read before cmd.Wait closes them
		p.drain.Wait()
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

// forward copies connector output lines into the debug log without interpreting them.
func (p *execProcess) forward(stream string, r io.Reader) {
	defer p.drain.Done()
	logger := logtrace.Component("connector").With().Str("stream", stream).Int("pid", p.cmd.Process.Pid).Logger()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		logger.Debug().Msg(sc.Text())
	}
	// drain whatever a too-long line left behind
	io.Copy(io.Discard, r)
}

// ResolveCommand locates the connector. A name containing a path separator is used
// as is. A bare name is looked up beside the running executable first, then on PATH.
func ResolveCommand(name string) (string, error) {
	if name == "" {
		name = agentcommon.ConnectorCommand
	}
	if strings.ContainsRune(name, os.PathSeparator) || strings.Contains(name, "/") {
		if _, err := os.Stat(name); err != nil {
			return "", err
		}
		return name, nil
	}

	if exe, err := os.Executable(); err == nil {
		candidates := []string{filepath.Join(filepath.Dir(exe), name)}
		if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
			candidates = append(candidates, candidates[0]+".exe")
		}
		for _, c := range candidates {
			if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
				return c, nil
			}
		}
	}

	return exec.LookPath(name)
}
