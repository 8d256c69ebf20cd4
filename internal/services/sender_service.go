package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ajramos/wareply/internal/config"
	"github.com/ajramos/wareply/internal/locator"
)

// ReplySenderServiceImpl implements ReplySender
type ReplySenderServiceImpl struct {
	page     PageActions
	resolver ElementResolver
	config   *config.Config
	logger   *slog.Logger
}

// NewReplySenderService creates a new reply sender service
func NewReplySenderService(page PageActions, resolver ElementResolver, cfg *config.Config, logger *slog.Logger) *ReplySenderServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplySenderServiceImpl{page: page, resolver: resolver, config: cfg, logger: logger}
}

// SendReply types the reply into the compose box and submits it. Interior
// newlines are committed as soft line breaks; only the final Enter submits.
// Every failure comes back as an error value; nothing here may panic into
// the monitor loop.
func (s *ReplySenderServiceImpl) SendReply(ctx context.Context, text string) error {
	box, err := s.resolver.AwaitResolve(ctx, locator.RoleComposeBox, s.config.GetElementWait())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrComposeUnavailable, err)
	}

	// FocusNode already falls back from a real click to element.focus()
	// when something overlays the box and intercepts the pointer.
	if err := s.page.FocusNode(ctx, box); err != nil {
		return fmt.Errorf("%w: focus failed: %v", ErrComposeUnavailable, err)
	}
	if !settle(ctx, s.config.GetFocusDelay()) {
		return ctx.Err()
	}

	if err := s.page.TypeText(ctx, text); err != nil {
		return fmt.Errorf("failed to type reply: %w", err)
	}
	if !settle(ctx, s.config.GetPreSendDelay()) {
		return ctx.Err()
	}

	if err := s.page.Submit(ctx); err != nil {
		return fmt.Errorf("failed to submit reply: %w", err)
	}
	return nil
}
