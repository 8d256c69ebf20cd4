package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ajramos/wareply/internal/browser"
	"github.com/ajramos/wareply/internal/config"
	"github.com/ajramos/wareply/internal/db"
	"github.com/ajramos/wareply/internal/llm"
	"github.com/ajramos/wareply/internal/locator"
	"github.com/ajramos/wareply/internal/monitor"
	"github.com/ajramos/wareply/internal/services"
	"github.com/ajramos/wareply/internal/version"
)

func main() {
	os.Exit(run())
}

// run wires the whole responder and returns the process exit code: 0 on
// clean shutdown or interrupt, 1 when no session could be established or the
// browser was lost. There are no CLI flags; everything lives in the config
// file.
func run() int {
	fmt.Fprintln(os.Stderr, version.GetVersionString())

	configPath := config.ConfigPath()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load configuration from %s: %v\n", configPath, err)
		cfg = config.DefaultConfig()
	}

	logger, logCleanup, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not open log file: %v\n", err)
		return 1
	}
	defer logCleanup()

	table := locator.DefaultTable()
	if cfg.SelectorsFile != "" {
		sc, err := config.LoadSelectorsFromFile(cfg.SelectorsFile)
		if err != nil {
			logger.Error("invalid selectors file", "path", cfg.SelectorsFile, "error", err)
			return 1
		}
		if err := table.ApplyOverrides(sc); err != nil {
			logger.Error("invalid selectors file", "path", cfg.SelectorsFile, "error", err)
			return 1
		}
		logger.Info("selector overrides applied", "path", cfg.SelectorsFile)
	}

	provider, err := llm.NewProviderFromConfig(&cfg.LLM)
	if err != nil {
		logger.Error("could not configure reply provider", "error", err)
		return 1
	}
	logger.Info("reply provider ready", "provider", provider.Name())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// A second signal bypasses graceful shutdown.
		<-ctx.Done()
		stop()
	}()

	sess := browser.NewSession(cfg.Browser, logger)
	if err := sess.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info("interrupted during startup")
			return 0
		}
		logger.Error("could not start browser session", "error", err)
		return 1
	}
	defer sess.Close()

	var journal services.ReplyJournal
	if cfg.Journal.Enabled {
		path := cfg.Journal.Path
		if path == "" {
			path = config.DefaultJournalPath()
		}
		store, err := db.Open(ctx, path)
		if err != nil {
			// The journal is an audit extension; never block replies on it.
			logger.Warn("reply journal unavailable, continuing without it", "path", path, "error", err)
		} else {
			defer store.Close()
			journal = store
			logger.Info("reply journal enabled", "path", path)
		}
	}

	resolver := locator.NewResolver(sess, table, logger)
	scanner := services.NewChatScannerService(sess, resolver, table, logger)
	reader := services.NewMessageReaderService(sess, resolver, cfg, logger)
	replies := services.NewReplyService(provider, cfg, logger)
	sender := services.NewReplySenderService(sess, resolver, cfg, logger)
	processor := services.NewConversationProcessorService(sess, reader, replies, sender, journal, cfg, logger)

	mon := monitor.New(resolver, scanner, processor, sess, cfg, logger)
	if err := mon.Run(ctx); err != nil {
		switch {
		case errors.Is(err, services.ErrSessionTimeout):
			logger.Error("no session established within the startup timeout", "error", err)
		case errors.Is(err, services.ErrSessionLost):
			logger.Error("browser session lost", "error", err)
		default:
			logger.Error("monitor failed", "error", err)
		}
		return 1
	}

	logger.Info("clean shutdown")
	return 0
}

// newLogger builds the process logger: text handler to stderr, or to the
// configured log file when one is set.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	cleanup := func() {}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}
		w = f
		cleanup = func() { _ = f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, nil))
	slog.SetDefault(logger)
	return logger, cleanup, nil
}
