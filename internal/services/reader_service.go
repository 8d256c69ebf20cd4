package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ajramos/wareply/internal/config"
	"github.com/ajramos/wareply/internal/locator"
)

// defaultContactName is returned when no header title strategy resolves.
// ContactName must never fail its caller; a reply addressed generically
// beats no reply.
const defaultContactName = "Contacto"

// MessageReaderServiceImpl implements MessageReader
type MessageReaderServiceImpl struct {
	page     PageActions
	resolver ElementResolver
	config   *config.Config
	logger   *slog.Logger
}

// NewMessageReaderService creates a new message reader service
func NewMessageReaderService(page PageActions, resolver ElementResolver, cfg *config.Config, logger *slog.Logger) *MessageReaderServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageReaderServiceImpl{page: page, resolver: resolver, config: cfg, logger: logger}
}

// LastInboundMessage returns the text of the newest incoming message in the
// open conversation. "Newest" means last in DOM order, which is an assumption
// about how the host page renders history, not a verified contract. Empty or
// whitespace-only text maps to ErrNotFound: media, audio and sticker messages
// have no text to react to and are reported rather than retried.
func (s *MessageReaderServiceImpl) LastInboundMessage(ctx context.Context) (string, error) {
	if _, err := s.resolver.AwaitResolve(ctx, locator.RoleChatPanel, s.config.GetElementWait()); err != nil {
		return "", fmt.Errorf("conversation panel did not appear: %w", err)
	}
	if !settle(ctx, s.config.GetRenderDelay()) {
		return "", ctx.Err()
	}

	bubbles, err := s.resolver.ResolveAll(ctx, locator.RoleMessageIn, nil)
	if err != nil {
		return "", fmt.Errorf("no incoming messages found: %w", err)
	}
	last := bubbles[len(bubbles)-1]

	var text string
	if textNode, err := s.resolver.Resolve(ctx, locator.RoleMessageText, last); err == nil {
		text, _ = s.page.NodeText(ctx, textNode)
	}
	if strings.TrimSpace(text) == "" {
		// The bubble may carry its text outside the known span structure.
		text, _ = s.page.NodeText(ctx, last)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("last incoming message has no text payload: %w", ErrNotFound)
	}
	return text, nil
}

// ContactName returns the display name from the open conversation's header,
// or a fixed placeholder when the header cannot be read.
func (s *MessageReaderServiceImpl) ContactName(ctx context.Context) string {
	title, err := s.resolver.Resolve(ctx, locator.RoleChatHeaderTitle, nil)
	if err != nil {
		s.logger.Debug("chat header title not resolved, using placeholder", "error", err)
		return defaultContactName
	}
	name, err := s.page.NodeText(ctx, title)
	if err != nil || strings.TrimSpace(name) == "" {
		return defaultContactName
	}
	return strings.TrimSpace(name)
}
