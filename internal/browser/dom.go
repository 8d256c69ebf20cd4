package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/ajramos/wareply/internal/config"
)

const (
	queryTimeout = 3 * time.Second
	clickTimeout = 10 * time.Second
	typeTimeout  = 30 * time.Second
)

// markerSeq feeds the data attribute used to hand elements found by page
// script back to the DevTools node tree.
var markerSeq atomic.Uint64

// QueryAll returns every node currently matching the strategy, scoped to
// within when it is non-nil. It does not wait: an empty page yields an empty
// slice, and callers decide whether to poll.
func (s *Session) QueryAll(ctx context.Context, kind, query string, within *cdp.Node) ([]*cdp.Node, error) {
	switch kind {
	case config.StrategyCSS:
		opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
		if within != nil {
			opts = append(opts, chromedp.FromNode(within))
		}
		var nodes []*cdp.Node
		if err := s.run(ctx, queryTimeout, chromedp.Nodes(query, &nodes, opts...)); err != nil {
			return nil, err
		}
		return nodes, nil
	case config.StrategyXPath:
		if within != nil {
			return s.xpathFrom(ctx, within, query)
		}
		var nodes []*cdp.Node
		if err := s.run(ctx, queryTimeout,
			chromedp.Nodes(query, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
			return nil, err
		}
		return nodes, nil
	default:
		return nil, fmt.Errorf("unknown selector kind %q", kind)
	}
}

// xpathFrom evaluates an XPath expression relative to a node. DevTools
// searches are always document-wide, so relative expressions run as page
// script with the node as context, and matches are handed back through
// one-shot marker attributes.
func (s *Session) xpathFrom(ctx context.Context, within *cdp.Node, expr string) ([]*cdp.Node, error) {
	marker := fmt.Sprintf("data-wareply-%d", markerSeq.Add(1))
	fn := fmt.Sprintf(`function() {
		var res = document.evaluate(%s, this, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		var n = 0;
		for (var i = 0; i < res.snapshotLength; i++) {
			var el = res.snapshotItem(i);
			if (el && el.setAttribute) { el.setAttribute(%q, "1"); n++; }
		}
		return n;
	}`, strconv.Quote(expr), marker)

	var count int
	if err := s.CallOnNode(ctx, within, fn, &count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	nodes, err := s.QueryAll(ctx, config.StrategyCSS, "["+marker+"]", nil)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		_ = s.CallOnNode(ctx, n, fmt.Sprintf("function() { this.removeAttribute(%q); }", marker), nil)
	}
	return nodes, nil
}

// ClickNode clicks a node, falling back to scrolling it into view and
// finally to a synthetic element.click(). Rows in a virtualized list are
// frequently half off-screen, so the fallbacks get hit routinely.
func (s *Session) ClickNode(ctx context.Context, node *cdp.Node) error {
	if node == nil {
		return errors.New("click: nil node")
	}

	err := s.run(ctx, clickTimeout, chromedp.MouseClickNode(node))
	if err == nil {
		return nil
	}
	if IsDisconnected(err) {
		return err
	}

	scrollErr := s.run(ctx, clickTimeout,
		chromedp.ScrollIntoView([]cdp.NodeID{node.NodeID}, chromedp.ByNodeID),
		chromedp.MouseClickNode(node),
	)
	if scrollErr == nil {
		return nil
	}
	if IsDisconnected(scrollErr) {
		return scrollErr
	}

	if jsErr := s.CallOnNode(ctx, node, "function() { this.click(); }", nil); jsErr != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// FocusNode gives a node keyboard focus, preferring a real click so the
// page's own focus handlers run.
func (s *Session) FocusNode(ctx context.Context, node *cdp.Node) error {
	err := s.ClickNode(ctx, node)
	if err == nil {
		return nil
	}
	if IsDisconnected(err) {
		return err
	}
	// Pointer-based focus misses some contenteditable hosts; fall back to
	// programmatic focus.
	if jsErr := s.CallOnNode(ctx, node, "function() { this.focus(); }", nil); jsErr != nil {
		return err
	}
	return nil
}

// TypeText types text into the focused element. Interior newlines are
// entered as Shift+Enter so the page treats them as soft line breaks rather
// than submits. Nothing is submitted here; see Submit.
func (s *Session) TypeText(ctx context.Context, text string) error {
	lines := strings.Split(text, "\n")
	var actions []chromedp.Action
	for i, line := range lines {
		if line != "" {
			actions = append(actions, chromedp.KeyEvent(line))
		}
		if i < len(lines)-1 {
			actions = append(actions, chromedp.KeyEvent(kb.Enter, chromedp.KeyModifiers(input.ModifierShift)))
		}
	}
	if len(actions) == 0 {
		return nil
	}
	return s.run(ctx, typeTimeout, actions...)
}

// Submit presses Enter in the focused element.
func (s *Session) Submit(ctx context.Context) error {
	return s.run(ctx, clickTimeout, chromedp.KeyEvent(kb.Enter))
}

// CallOnNode runs fn, a JS function expression, with the node bound as
// `this`. When out is non-nil the JSON return value is unmarshaled into it.
func (s *Session) CallOnNode(ctx context.Context, node *cdp.Node, fn string, out interface{}) error {
	if node == nil {
		return errors.New("call on node: nil node")
	}
	return s.run(ctx, queryTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		if out != nil && res != nil && res.Value != nil {
			return json.Unmarshal(res.Value, out)
		}
		return nil
	}))
}

// NodeText returns the trimmed innerText of a node. innerText honors CSS
// visibility, which matches what a reader of the page sees.
func (s *Session) NodeText(ctx context.Context, node *cdp.Node) (string, error) {
	var text string
	if err := s.CallOnNode(ctx, node, "function() { return this.innerText || this.textContent || ''; }", &text); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// NodeHTML returns the outer HTML of a node.
func (s *Session) NodeHTML(ctx context.Context, node *cdp.Node) (string, error) {
	var htmlStr string
	err := s.run(ctx, queryTimeout,
		chromedp.OuterHTML([]cdp.NodeID{node.NodeID}, &htmlStr, chromedp.ByNodeID))
	if err != nil {
		return "", err
	}
	return htmlStr, nil
}

// NodeAttribute returns the current value of an attribute, empty when the
// attribute is absent. It reads the live DOM rather than the snapshot taken
// at query time.
func (s *Session) NodeAttribute(ctx context.Context, node *cdp.Node, name string) (string, error) {
	fn := fmt.Sprintf("function() { return this.getAttribute(%s) || ''; }", strconv.Quote(name))
	var val string
	if err := s.CallOnNode(ctx, node, fn, &val); err != nil {
		return "", err
	}
	return val, nil
}

// AncestorBySelector returns the nearest ancestor of node matching a CSS
// selector, or nil when none matches within the document.
func (s *Session) AncestorBySelector(ctx context.Context, node *cdp.Node, selector string) (*cdp.Node, error) {
	fn := fmt.Sprintf("function() { return this.closest(%s); }", strconv.Quote(selector))
	return s.nodeFromScript(ctx, node, fn)
}

// AncestorByWalk climbs at most maxLevels parents looking for one matching
// any of the selectors. It covers rows where closest() is defeated by
// wrapper elements that reset selector scope.
func (s *Session) AncestorByWalk(ctx context.Context, node *cdp.Node, selectors []string, maxLevels int) (*cdp.Node, error) {
	quoted := make([]string, len(selectors))
	for i, sel := range selectors {
		quoted[i] = strconv.Quote(sel)
	}
	fn := fmt.Sprintf(`function() {
		var sels = [%s];
		var el = this;
		for (var i = 0; i < %d && el; i++) {
			for (var j = 0; j < sels.length; j++) {
				if (el.matches && el.matches(sels[j])) { return el; }
			}
			el = el.parentElement;
		}
		return null;
	}`, strings.Join(quoted, ", "), maxLevels)
	return s.nodeFromScript(ctx, node, fn)
}

// nodeFromScript runs fn with node as `this`, expects it to return an
// element or null, and hands the element back as a DevTools node. The
// element is tagged with a one-shot data attribute so it can be re-queried
// through the normal node tree, then untagged.
func (s *Session) nodeFromScript(ctx context.Context, node *cdp.Node, fn string) (*cdp.Node, error) {
	marker := fmt.Sprintf("data-wareply-%d", markerSeq.Add(1))
	wrapper := fmt.Sprintf(`function() {
		var el = (%s).call(this);
		if (!el || !el.setAttribute) { return false; }
		el.setAttribute(%q, "1");
		return true;
	}`, fn, marker)

	var found bool
	if err := s.CallOnNode(ctx, node, wrapper, &found); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	nodes, err := s.QueryAll(ctx, config.StrategyCSS, "["+marker+"]", nil)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	target := nodes[0]
	_ = s.CallOnNode(ctx, target, fmt.Sprintf("function() { this.removeAttribute(%q); }", marker), nil)
	return target, nil
}
