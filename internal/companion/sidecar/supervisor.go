// Package sidecar supervises the single connector process. The supervisor keeps a
// cached record of the last transition; Status never probes the process, so a
// connector that exits on its own is still reported as running until Stop.
// Status events are delivered in the order the transitions happened.
package sidecar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/teachcharlie/tcagent/internal/common/apperrors"
	"github.com/teachcharlie/tcagent/internal/companion/agentcommon"
)

// DefaultKillTimeout bounds how long Stop waits for the termination request.
const DefaultKillTimeout = 10 * time.Second

// Notifier receives status events after each successful transition.
type Notifier interface {
	Publish(name string, payload any) int
}

// record is the cached sidecar state. running is true exactly when handle is set.
type record struct {
	handle  Process
	running bool
}

// Supervisor owns at most one connector process.
type Supervisor struct {
	mu       sync.Mutex
	rec      record
	poisoned bool

	// emitMu is acquired before mu is released and held while publishing.
	emitMu sync.Mutex

	launcher    Launcher
	command     string
	notifier    Notifier
	killTimeout time.Duration
}

type Option func(*Supervisor)

// WithLauncher replaces the os/exec launcher.
func WithLauncher(l Launcher) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.launcher = l
		}
	}
}

// WithCommand sets the connector command. Empty keeps tc-connector.
func WithCommand(cmd string) Option {
	return func(s *Supervisor) {
		if cmd != "" {
			s.command = cmd
		}
	}
}

func WithKillTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.killTimeout = d
		}
	}
}

// NewSupervisor returns a stopped supervisor. A nil notifier discards events.
func NewSupervisor(n Notifier, opts ...Option) *Supervisor {
	s := &Supervisor{
		launcher:    ExecLauncher{},
		command:     agentcommon.ConnectorCommand,
		notifier:    n,
		killTimeout: DefaultKillTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withLock runs fn under the sidecar lock. A panic inside fn poisons the lock and
// every later call fails with ErrLock. When fn reports a transition, withLock returns
// with emitMu held and the caller must finish with publish.
func (s *Supervisor) withLock(fn func() (agentcommon.SidecarStatus, apperrors.Error)) (status agentcommon.SidecarStatus, err apperrors.Error) {
	s.mu.Lock()
	defer func() {
		if r := recover(); r != nil {
			s.poisoned = true
			log.Error().Interface("panic", r).Msg("panic while holding sidecar lock")
			status = ""
			err = agentcommon.ErrLock.Msg(fmt.Sprintf("sidecar lock poisoned: %v", r))
		}
		if err == nil && status != "" {
			s.emitMu.Lock()
		}
		s.mu.Unlock()
	}()
	if s.poisoned {
		return "", agentcommon.ErrLock.Msg("sidecar lock poisoned")
	}
	return fn()
}

// Start launches the connector unless one is already recorded as running. The lock is
// held across the launch so concurrent starts spawn at most once.
func (s *Supervisor) Start(ctx context.Context, token, apiURL string) apperrors.Error {
	status, err := s.withLock(func() (agentcommon.SidecarStatus, apperrors.Error) {
		if s.rec.running {
			return "", nil
		}
		p, err := s.launcher.Launch(ctx, s.command, agentcommon.ConnectorArgs(token, apiURL))
		if err != nil {
			return "", agentcommon.ErrSpawn.MsgErr("failed to start sidecar", err)
		}
		if p == nil {
			return "", agentcommon.ErrSpawn.Msg("failed to start sidecar: no process handle")
		}
		s.rec = record{handle: p, running: true}
		go s.reap(p)
		return agentcommon.SidecarRunning, nil
	})
	if err != nil {
		log.Ctx(ctx).Error().Str("error", err.ErrorAll()).Msg("sidecar start failed")
		return err
	}
	if status != "" {
		s.publish(ctx, status)
	}
	return nil
}

// Stop terminates the recorded connector. With nothing running it succeeds and still
// reports stopped. If termination fails the handle is kept and the record stays running.
func (s *Supervisor) Stop(ctx context.Context) apperrors.Error {
	status, err := s.withLock(func() (agentcommon.SidecarStatus, apperrors.Error) {
		h := s.rec.handle
		s.rec.handle = nil
		if h != nil {
			if err := s.kill(h); err != nil {
				s.rec.handle = h
				return "", err
			}
		}
		s.rec = record{}
		return agentcommon.SidecarStopped, nil
	})
	if err != nil {
		log.Ctx(ctx).Error().Str("error", err.ErrorAll()).Msg("sidecar stop failed")
		return err
	}
	s.publish(ctx, status)
	return nil
}

// Status returns the cached running flag.
func (s *Supervisor) Status() (bool, apperrors.Error) {
	running := false
	_, err := s.withLock(func() (agentcommon.SidecarStatus, apperrors.Error) {
		running = s.rec.running
		return "", nil
	})
	return running, err
}

// kill is called with the lock held.
func (s *Supervisor) kill(h Process) apperrors.Error {
	done := make(chan error, 1)
	go func() { done <- h.Kill() }()

	timer := time.NewTimer(s.killTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			return agentcommon.ErrKill.MsgErr("failed to stop sidecar", err)
		}
		return nil
	case <-timer.C:
		return agentcommon.ErrKill.Msg(fmt.Sprintf("failed to stop sidecar: timed out after %s", s.killTimeout))
	}
}

// reap waits for p to exit so it does not linger as a zombie. An exit that Stop did
// not request is logged; the cached record is left alone.
func (s *Supervisor) reap(p Process) {
	err := p.Wait()

	s.mu.Lock()
	expected := s.rec.handle != p
	s.mu.Unlock()

	ev := log.Debug()
	if !expected {
		ev = log.Warn()
	}
	ev.Int("pid", p.Pid()).AnErr("exit", err).Bool("requested", expected).Msg("connector exited")
}

// publish delivers status and releases emitMu.
func (s *Supervisor) publish(ctx context.Context, status agentcommon.SidecarStatus) {
	defer s.emitMu.Unlock()
	if s.notifier == nil {
		return
	}
	n := s.notifier.Publish(agentcommon.TopicSidecarStatus, status)
	log.Ctx(ctx).Debug().Str("status", string(status)).Int("delivered", n).Msg("sidecar status published")
}
