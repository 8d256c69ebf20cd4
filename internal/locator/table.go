// Package locator resolves logical UI roles ("compose box", "unread badge")
// to live DOM nodes. Each role carries an ordered list of locate strategies
// ranked by expected stability: semantic data attributes first, accessibility
// attributes second, generic structure last. The host page is versioned
// independently of this tool and breaks selectors without notice; falling
// through the list turns a hard failure into a soft one for as long as any
// one strategy still matches.
package locator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ajramos/wareply/internal/config"
)

// ErrNotFound is returned when every strategy for a role came up empty. It
// is the non-fatal "try again next cycle" condition of the whole pipeline;
// callers classify it with errors.Is.
var ErrNotFound = errors.New("element not found")

// Logical roles with compiled-in strategy lists.
const (
	// RoleSessionReady matches the chat-list pane that only exists once
	// the QR scan completed and the session loaded.
	RoleSessionReady = "session-ready"

	// RoleUnreadBadge matches the unread-count indicator on a chat row.
	RoleUnreadBadge = "unread-badge"

	// RoleConversationRow holds the acceptance selectors for the clickable
	// row ancestor of an unread badge. Resolved via closest()/ancestor
	// walk rather than a document query, so every strategy must be css.
	RoleConversationRow = "conversation-row"

	// RoleChatPanel matches the message history pane of an open chat.
	RoleChatPanel = "chat-panel"

	// RoleMessageIn matches one incoming message bubble.
	RoleMessageIn = "message-in"

	// RoleMessageText matches the text span inside a message bubble;
	// resolved within a RoleMessageIn node.
	RoleMessageText = "message-text"

	// RoleComposeBox matches the contenteditable input of an open chat.
	RoleComposeBox = "compose-box"

	// RoleChatHeaderTitle matches the contact name in the chat header.
	RoleChatHeaderTitle = "chat-header-title"
)

// Strategy is one way of locating the element(s) for a role.
type Strategy struct {
	Kind  string // config.StrategyCSS or config.StrategyXPath
	Query string
}

// Table maps roles to their ordered strategy lists. Built once at startup
// (compiled defaults, optionally overridden per role from the selectors
// file) and read-only afterwards.
type Table struct {
	roles map[string][]Strategy
}

// DefaultTable returns the compiled-in role table.
func DefaultTable() *Table {
	css := func(q string) Strategy { return Strategy{Kind: config.StrategyCSS, Query: q} }
	xpath := func(q string) Strategy { return Strategy{Kind: config.StrategyXPath, Query: q} }

	return &Table{roles: map[string][]Strategy{
		RoleSessionReady: {
			css("#side"),
			css(`div[data-testid="chat-list"]`),
			css(`div[role="application"]`),
		},
		RoleUnreadBadge: {
			css(`span[data-testid="icon-unread-count"]`),
			// aria-label text differs by UI language; cover the Spanish
			// and English variants seen in the wild.
			xpath(`//span[contains(@aria-label, "no le") or contains(@aria-label, "unread") or contains(@aria-label, "sin leer")]`),
		},
		RoleConversationRow: {
			css(`[data-testid="cell-frame-container"]`),
			css(`[role="listitem"]`),
			css(`[role="row"], [role="option"]`),
		},
		RoleChatPanel: {
			css(`div[data-testid="conversation-panel-messages"]`),
			css(`div[role="application"] div[role="row"]`),
		},
		RoleMessageIn: {
			css(`div.message-in`),
			css(`div[class*="message-in"]`),
			xpath(`//div[contains(@class, "message-in")]`),
		},
		RoleMessageText: {
			css(`span.selectable-text span`),
			// Relative to the bubble node the reader scopes this to.
			xpath(`.//span[@dir="ltr"]`),
		},
		RoleComposeBox: {
			css(`div[data-testid="conversation-compose-box-input"] div[contenteditable="true"]`),
			css(`footer div[contenteditable="true"][role="textbox"]`),
			css(`footer div[contenteditable="true"]`),
			xpath(`//div[@contenteditable="true"][@data-tab="10"]`),
		},
		RoleChatHeaderTitle: {
			css(`header span[data-testid="conversation-info-header-chat-title"] span`),
			css(`header div[data-testid="conversation-title"] span`),
			css(`header span[title]`),
		},
	}}
}

// Strategies returns the ordered strategy list for a role, nil when the role
// is unknown. The returned slice must not be mutated.
func (t *Table) Strategies(role string) []Strategy {
	return t.roles[role]
}

// Roles returns every known role name, sorted.
func (t *Table) Roles() []string {
	names := make([]string, 0, len(t.roles))
	for name := range t.roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CSSQueries returns just the css query strings of a role, in strategy
// order. The ancestor walk uses these as acceptance predicates, where an
// XPath expression cannot serve.
func (t *Table) CSSQueries(role string) []string {
	var queries []string
	for _, s := range t.roles[role] {
		if s.Kind == config.StrategyCSS {
			queries = append(queries, s.Query)
		}
	}
	return queries
}

// ApplyOverrides replaces the strategy lists of the roles named in the
// selectors file, wholesale per role. Roles not mentioned keep their
// compiled defaults; unknown role names are rejected so a typo fails loudly
// at startup instead of silently leaving a stale default in place.
func (t *Table) ApplyOverrides(sc *config.SelectorsConfig) error {
	if sc == nil {
		return nil
	}
	for role, strategies := range sc.Roles {
		if _, ok := t.roles[role]; !ok {
			return fmt.Errorf("unknown role %q in selectors file (known roles: %v)", role, t.Roles())
		}
		replacement := make([]Strategy, 0, len(strategies))
		for _, s := range strategies {
			replacement = append(replacement, Strategy{Kind: s.Kind, Query: s.Query})
		}
		t.roles[role] = replacement
	}
	return nil
}
