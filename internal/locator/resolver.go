package locator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"

	"github.com/ajramos/wareply/internal/browser"
)

// awaitPollInterval is how often a bounded wait re-runs the strategy list.
const awaitPollInterval = 500 * time.Millisecond

// DOM is the query surface the resolver needs from the browser session.
type DOM interface {
	QueryAll(ctx context.Context, kind, query string, within *cdp.Node) ([]*cdp.Node, error)
}

// Resolver resolves roles against a live page through a DOM query surface.
type Resolver struct {
	dom    DOM
	table  *Table
	logger *slog.Logger
}

// NewResolver creates a resolver over the given query surface and role table.
func NewResolver(dom DOM, table *Table, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{dom: dom, table: table, logger: logger}
}

// Resolve returns the first element matched by the highest-priority strategy
// that matches anything. A strategy that errors or matches nothing is skipped;
// only a lost browser aborts the walk. All strategies exhausted → ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, role string, within *cdp.Node) (*cdp.Node, error) {
	nodes, err := r.ResolveAll(ctx, role, within)
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

// ResolveAll returns every element matched by the first strategy that matches
// at least one, preserving document order within that strategy.
func (r *Resolver) ResolveAll(ctx context.Context, role string, within *cdp.Node) ([]*cdp.Node, error) {
	strategies := r.table.Strategies(role)
	if len(strategies) == 0 {
		return nil, fmt.Errorf("role %q: %w", role, ErrNotFound)
	}

	for i, strategy := range strategies {
		nodes, err := r.dom.QueryAll(ctx, strategy.Kind, strategy.Query, within)
		if err != nil {
			if browser.IsDisconnected(err) {
				return nil, err
			}
			// Stale/not-found class: this strategy failed, not the role.
			r.logger.Debug("strategy failed",
				"role", role, "strategy", i, "kind", strategy.Kind, "error", err)
			continue
		}
		if len(nodes) > 0 {
			if i > 0 {
				r.logger.Debug("resolved by fallback strategy",
					"role", role, "strategy", i, "matches", len(nodes))
			}
			return nodes, nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", role, ErrNotFound)
}

// AwaitResolve polls Resolve until it succeeds or the timeout expires. A
// timeout yields ErrNotFound, the same condition as an immediate miss, so
// callers have a single class to handle.
func (r *Resolver) AwaitResolve(ctx context.Context, role string, timeout time.Duration) (*cdp.Node, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(awaitPollInterval)
	defer ticker.Stop()

	for {
		node, err := r.Resolve(ctx, role, nil)
		if err == nil {
			return node, nil
		}
		if browser.IsDisconnected(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("role %q not found within %s: %w", role, timeout, ErrNotFound)
		case <-ticker.C:
		}
	}
}
