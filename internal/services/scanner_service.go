package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chromedp/cdproto/cdp"

	"github.com/ajramos/wareply/internal/browser"
	"github.com/ajramos/wareply/internal/locator"
	"github.com/ajramos/wareply/internal/render"
)

// ancestorWalkDepth bounds the upward walk used when every closest()-based
// strategy fails to find the badge's row.
const ancestorWalkDepth = 10

// ChatScannerServiceImpl implements ChatScanner
type ChatScannerServiceImpl struct {
	page     PageActions
	resolver ElementResolver
	table    *locator.Table
	logger   *slog.Logger
}

// NewChatScannerService creates a new chat scanner service
func NewChatScannerService(page PageActions, resolver ElementResolver, table *locator.Table, logger *slog.Logger) *ChatScannerServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatScannerServiceImpl{page: page, resolver: resolver, table: table, logger: logger}
}

// FindUnread locates every unread badge and maps each one to its clickable
// conversation row. Badges whose row cannot be resolved are dropped with a
// warning. Rows come back in discovery order; nothing about recency is
// guaranteed.
func (s *ChatScannerServiceImpl) FindUnread(ctx context.Context) ([]Conversation, error) {
	badges, err := s.resolver.ResolveAll(ctx, locator.RoleUnreadBadge, nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan for unread badges: %w", err)
	}

	rowSelectors := s.table.CSSQueries(locator.RoleConversationRow)
	conversations := make([]Conversation, 0, len(badges))
	for _, badge := range badges {
		row, err := s.resolveRow(ctx, badge, rowSelectors)
		if err != nil {
			return nil, err
		}
		if row == nil {
			s.logger.Warn("unread badge without a resolvable conversation row, dropping",
				"role", locator.RoleConversationRow, "badge", badge.BackendNodeID)
			continue
		}
		conversations = append(conversations, Conversation{
			Key: s.conversationKey(ctx, row),
			Row: row,
		})
	}
	return conversations, nil
}

// resolveRow finds the badge's conversation-row ancestor: the acceptance
// selectors via closest() in priority order, then a bounded upward walk
// checking the same selectors level by level. nil means no ancestor accepted.
func (s *ChatScannerServiceImpl) resolveRow(ctx context.Context, badge *cdp.Node, selectors []string) (*cdp.Node, error) {
	for i, sel := range selectors {
		row, err := s.page.AncestorBySelector(ctx, badge, sel)
		if err != nil {
			if browser.IsDisconnected(err) {
				return nil, err
			}
			s.logger.Debug("ancestor strategy failed",
				"role", locator.RoleConversationRow, "strategy", i, "error", err)
			continue
		}
		if row != nil {
			return row, nil
		}
	}

	row, err := s.page.AncestorByWalk(ctx, badge, selectors, ancestorWalkDepth)
	if err != nil {
		if browser.IsDisconnected(err) {
			return nil, err
		}
		s.logger.Debug("ancestor walk failed",
			"role", locator.RoleConversationRow, "error", err)
		return nil, nil
	}
	return row, nil
}

// conversationKey derives the dedup key for a row: accessibility label, then
// the stable data attribute, then the first visible text line, then node
// identity. The key only has to be stable for the length of one dedup
// window, not across restarts.
func (s *ChatScannerServiceImpl) conversationKey(ctx context.Context, row *cdp.Node) string {
	if label, err := s.page.NodeAttribute(ctx, row, "aria-label"); err == nil && label != "" {
		return label
	}
	if id, err := s.page.NodeAttribute(ctx, row, "data-id"); err == nil && id != "" {
		return id
	}
	if html, err := s.page.NodeHTML(ctx, row); err == nil {
		if line := render.FirstLine(html); line != "" {
			return line
		}
	}
	return fmt.Sprintf("node:%d", row.BackendNodeID)
}
