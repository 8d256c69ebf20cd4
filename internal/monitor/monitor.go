// Package monitor drives the steady-state control loop: wait for the session
// to come up, then poll for unread conversations, process each at most once
// per rolling dedup window, and decide which failures end the run.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ajramos/wareply/internal/browser"
	"github.com/ajramos/wareply/internal/config"
	"github.com/ajramos/wareply/internal/locator"
	"github.com/ajramos/wareply/internal/services"
)

// State identifies the monitor's lifecycle phase.
type State int

const (
	StateAwaitingSession State = iota
	StateMonitoring
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateAwaitingSession:
		return "awaiting-session"
	case StateMonitoring:
		return "monitoring"
	case StateTerminating:
		return "terminating"
	default:
		return "unknown"
	}
}

// SessionProbe answers whether the underlying browser connection is still
// alive, telling a dead session apart from an ambiguous scrape failure.
type SessionProbe interface {
	Healthy(ctx context.Context) bool
}

// Monitor owns the control loop. It runs on a single goroutine; the
// processed-set is touched by nobody else.
type Monitor struct {
	resolver  services.ElementResolver
	scanner   services.ChatScanner
	processor services.ConversationProcessor
	probe     SessionProbe
	config    *config.Config
	logger    *slog.Logger

	state     State
	processed map[string]struct{}
	cycles    int
}

// New creates a monitor. probe may be nil, in which case ambiguous scan
// failures are treated as transient.
func New(resolver services.ElementResolver, scanner services.ChatScanner, processor services.ConversationProcessor, probe SessionProbe, cfg *config.Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		resolver:  resolver,
		scanner:   scanner,
		processor: processor,
		probe:     probe,
		config:    cfg,
		logger:    logger,
		state:     StateAwaitingSession,
		processed: make(map[string]struct{}),
	}
}

// Run executes the state machine until the context is canceled or a fatal
// condition is hit. Cancellation is the normal shutdown path and returns nil;
// the two fatal conditions return ErrSessionTimeout and ErrSessionLost.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.awaitSession(ctx); err != nil {
		m.state = StateTerminating
		return err
	}

	m.state = StateMonitoring
	m.logger.Info("session established, monitoring for unread conversations",
		"poll_interval", m.config.GetPollInterval().String(),
		"dedup_window_cycles", m.config.Monitor.DedupWindowCycles)

	for {
		if ctx.Err() != nil {
			m.state = StateTerminating
			m.logger.Info("shutdown requested")
			return nil
		}

		if err := m.runCycle(ctx); err != nil {
			m.state = StateTerminating
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		m.cycles++
		if m.cycles >= m.config.Monitor.DedupWindowCycles {
			// Counter-driven wholesale clear: the rolling window is
			// measured in cycles, not wall-clock time.
			m.logger.Debug("dedup window elapsed, clearing processed set",
				"processed", len(m.processed))
			m.processed = make(map[string]struct{})
			m.cycles = 0
		}

		if !m.pause(ctx, m.config.GetPollInterval()) {
			m.state = StateTerminating
			m.logger.Info("shutdown requested")
			return nil
		}
	}
}

// State returns the current lifecycle phase.
func (m *Monitor) State() State {
	return m.state
}

// awaitSession blocks until the session-ready indicator appears. The long
// timeout leaves the operator room to scan the QR code on a fresh profile.
func (m *Monitor) awaitSession(ctx context.Context) error {
	timeout := m.config.GetStartupTimeout()
	m.logger.Info("waiting for session", "timeout", timeout.String())

	_, err := m.resolver.AwaitResolve(ctx, locator.RoleSessionReady, timeout)
	if err != nil {
		if ctx.Err() != nil {
			// Interrupt during the wait is a clean shutdown.
			return nil
		}
		if browser.IsDisconnected(err) {
			return fmt.Errorf("browser gone while waiting for session: %w", services.ErrSessionLost)
		}
		return fmt.Errorf("no session after %s: %w", timeout, services.ErrSessionTimeout)
	}
	return nil
}

// runCycle performs one scan-and-process pass. It returns an error only for
// fatal conditions; everything else is logged and absorbed so the loop keeps
// its cadence.
func (m *Monitor) runCycle(ctx context.Context) error {
	conversations, err := m.scanner.FindUnread(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if m.isSessionLost(ctx, err) {
			return fmt.Errorf("scan failed: %w", services.ErrSessionLost)
		}
		m.logger.Warn("scan failed, retrying next cycle", "error", err)
		return nil
	}

	if len(conversations) > 0 {
		m.logger.Debug("unread conversations found", "count", len(conversations))
	}

	for _, conv := range conversations {
		if ctx.Err() != nil {
			return nil
		}
		if _, done := m.processed[conv.Key]; done {
			m.logger.Debug("already handled this window, skipping", "conversation", conv.Key)
			continue
		}

		err := m.processor.Process(ctx, conv)

		// Marked regardless of outcome: a conversation whose content
		// cannot be processed must not be retried every cycle until
		// the window resets.
		m.processed[conv.Key] = struct{}{}

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if m.isSessionLost(ctx, err) {
				return fmt.Errorf("processing %q: %w", conv.Key, services.ErrSessionLost)
			}
			m.logger.Warn("conversation failed, skipped for this window",
				"conversation", conv.Key,
				"skippable", services.IsSkippable(err),
				"error", err)
		}

		if !m.pause(ctx, m.config.GetConversationPause()) {
			return nil
		}
	}
	return nil
}

// isSessionLost decides whether an error means the browser is gone. A clear
// disconnect marker is enough on its own. Skippable pipeline errors never
// are; for anything ambiguous the probe gets the final word when one is
// wired.
func (m *Monitor) isSessionLost(ctx context.Context, err error) bool {
	if browser.IsDisconnected(err) {
		return true
	}
	if services.IsSkippable(err) {
		return false
	}
	if m.probe != nil && !m.probe.Healthy(ctx) {
		return true
	}
	return false
}

// pause sleeps for d unless the context ends first. Reports whether the full
// pause elapsed.
func (m *Monitor) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
