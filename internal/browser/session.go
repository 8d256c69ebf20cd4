// Package browser owns the Chrome session lifecycle. It wraps chromedp with
// the small surface the responder needs: launch against a persistent profile,
// navigate to the entry page, and run bounded DevTools actions on the live
// document.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/ajramos/wareply/internal/config"
)

// launchTimeout bounds Chrome startup and the first navigation. Login can
// take far longer and is waited for separately by the monitor loop.
const launchTimeout = 60 * time.Second

// Session is a live Chrome instance bound to a persistent profile directory.
// All page interaction for one run goes through a single Session; it is not
// safe for concurrent use.
type Session struct {
	cfg    config.BrowserConfig
	logger *slog.Logger

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	closeOnce sync.Once
}

// NewSession prepares a session around cfg. Nothing launches until Start.
func NewSession(cfg config.BrowserConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{cfg: cfg, logger: logger}
}

// Start launches Chrome with the configured profile, injects the
// automation-masking script and navigates to the entry URL. The caller's
// context bounds only the launch; the browser stays alive until Close.
func (s *Session) Start(ctx context.Context) error {
	if err := s.prepareProfileDir(); err != nil {
		return err
	}

	// The allocator hangs off the background context so the browser
	// outlives whatever deadline the caller used for startup.
	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(context.Background(), s.buildOptions()...)
	s.browserCtx, s.browserCancel = chromedp.NewContext(s.allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}),
	)

	s.logger.Info("launching browser",
		"profile", s.cfg.ProfileDir,
		"headless", s.cfg.Headless,
		"url", s.cfg.EntryURL)

	launchCtx, cancel := context.WithTimeout(ctx, launchTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- chromedp.Run(s.browserCtx,
			chromedp.ActionFunc(func(ctx context.Context) error {
				_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
				return err
			}),
			chromedp.Navigate(s.cfg.EntryURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.Close()
			return fmt.Errorf("failed to start browser: %w", err)
		}
		return nil
	case <-launchCtx.Done():
		s.Close()
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("browser did not come up within %s", launchTimeout)
	}
}

func (s *Session) prepareProfileDir() error {
	if s.cfg.ProfileDir == "" {
		return errors.New("profile directory not configured")
	}
	if err := os.MkdirAll(s.cfg.ProfileDir, 0o755); err != nil {
		return fmt.Errorf("failed to create profile dir: %w", err)
	}
	// A crashed run leaves Chrome's singleton locks behind, which makes the
	// next launch fail with "profile in use".
	for _, name := range []string{"SingletonLock", "SingletonSocket", "SingletonCookie"} {
		if err := os.Remove(filepath.Join(s.cfg.ProfileDir, name)); err == nil {
			s.logger.Warn("removed stale profile lock", "file", name)
		}
	}
	return nil
}

func (s *Session) buildOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(s.cfg.ProfileDir),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		// The entry page probes for driven browsers and degrades the
		// session when it finds one, so the usual automation tells are
		// switched off.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-infobars", true),

		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-session-crashed-bubble", true),
		chromedp.Flag("hide-crash-restore-bubble", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
	)
	if s.cfg.WindowWidth > 0 && s.cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(s.cfg.WindowWidth, s.cfg.WindowHeight))
	} else {
		opts = append(opts, chromedp.Flag("start-maximized", true))
	}
	if !s.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	return opts
}

// run executes actions against the live page, bounded by timeout and by the
// caller's context.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.browserCtx == nil {
		return errors.New("browser not started")
	}
	runCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Healthy reports whether the page still answers DevTools calls. It tells a
// dead session apart from a transient scrape failure.
func (s *Session) Healthy(ctx context.Context) bool {
	var state string
	err := s.run(ctx, 5*time.Second, chromedp.Evaluate("document.readyState", &state))
	return err == nil && state != ""
}

// IsDisconnected reports whether err means the browser itself went away
// rather than a single operation failing. chromedp surfaces a dead browser
// as a canceled context or a dropped websocket.
func IsDisconnected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"websocket: close",
		"websocket: bad handshake",
		"connection reset by peer",
		"broken pipe",
		"target closed",
		"browser closed",
		"chrome failed to start",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Close tears the browser down. Safe to call more than once and after a
// failed Start.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.browserCancel != nil {
			s.browserCancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
	})
}
