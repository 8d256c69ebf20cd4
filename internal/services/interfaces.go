// Package services holds the per-conversation pipeline: scan for unread
// conversations, read the latest inbound message, generate a reply and inject
// it into the page. Each service does one stage; the processor composes them
// and contains their failures so one broken conversation never takes down the
// monitor loop.
package services

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
)

// Conversation is one detected unread conversation: the dedup key and the
// clickable row handle. The handle is only valid within the cycle that
// discovered it; the page rebuilds its tree continuously.
type Conversation struct {
	Key string
	Row *cdp.Node
}

// ChatScanner finds unread conversations in the chat list
type ChatScanner interface {
	FindUnread(ctx context.Context) ([]Conversation, error)
}

// MessageReader extracts content from the currently open conversation
type MessageReader interface {
	LastInboundMessage(ctx context.Context) (string, error)
	ContactName(ctx context.Context) string
}

// ReplyGenerator turns (contact, message) into reply text
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, contact, message string) (string, error)
}

// ReplySender injects reply text into the open conversation's compose box
type ReplySender interface {
	SendReply(ctx context.Context, text string) error
}

// ConversationProcessor handles one conversation end to end
type ConversationProcessor interface {
	Process(ctx context.Context, conv Conversation) error
}

// ReplyJournal optionally records each processed conversation's outcome.
// Write-only: nothing in the pipeline ever reads it back.
type ReplyJournal interface {
	RecordReply(ctx context.Context, conversationKey, contact, message, reply, status string) error
}

// ElementResolver resolves logical UI roles to live nodes, implemented by
// locator.Resolver.
type ElementResolver interface {
	Resolve(ctx context.Context, role string, within *cdp.Node) (*cdp.Node, error)
	ResolveAll(ctx context.Context, role string, within *cdp.Node) ([]*cdp.Node, error)
	AwaitResolve(ctx context.Context, role string, timeout time.Duration) (*cdp.Node, error)
}

// PageActions is the browser surface the services drive, implemented by
// browser.Session.
type PageActions interface {
	ClickNode(ctx context.Context, node *cdp.Node) error
	FocusNode(ctx context.Context, node *cdp.Node) error
	TypeText(ctx context.Context, text string) error
	Submit(ctx context.Context) error
	NodeText(ctx context.Context, node *cdp.Node) (string, error)
	NodeHTML(ctx context.Context, node *cdp.Node) (string, error)
	NodeAttribute(ctx context.Context, node *cdp.Node, name string) (string, error)
	AncestorBySelector(ctx context.Context, node *cdp.Node, selector string) (*cdp.Node, error)
	AncestorByWalk(ctx context.Context, node *cdp.Node, selectors []string, maxLevels int) (*cdp.Node, error)
}
