package services

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/mock"

	"github.com/ajramos/wareply/internal/config"
)

// fastConfig returns a config with near-zero settle delays so pipeline tests
// run at test speed.
func fastConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Monitor.ElementWait = "10ms"
	cfg.Monitor.ChatOpenDelay = "1ms"
	cfg.Monitor.RenderDelay = "1ms"
	cfg.Monitor.FocusDelay = "1ms"
	cfg.Monitor.PreSendDelay = "1ms"
	cfg.Monitor.ConversationPause = "1ms"
	cfg.LLM.Timeout = "50ms"
	cfg.LLM.ReplyTemplate = "" // keep tests off the filesystem
	return cfg
}

func testNode(id int64) *cdp.Node {
	return &cdp.Node{NodeID: cdp.NodeID(id), BackendNodeID: cdp.BackendNodeID(id)}
}

// MockPageActions implements PageActions for testing
type MockPageActions struct {
	mock.Mock
}

func (m *MockPageActions) ClickNode(ctx context.Context, node *cdp.Node) error {
	args := m.Called(ctx, node)
	return args.Error(0)
}

func (m *MockPageActions) FocusNode(ctx context.Context, node *cdp.Node) error {
	args := m.Called(ctx, node)
	return args.Error(0)
}

func (m *MockPageActions) TypeText(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

func (m *MockPageActions) Submit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPageActions) NodeText(ctx context.Context, node *cdp.Node) (string, error) {
	args := m.Called(ctx, node)
	return args.String(0), args.Error(1)
}

func (m *MockPageActions) NodeHTML(ctx context.Context, node *cdp.Node) (string, error) {
	args := m.Called(ctx, node)
	return args.String(0), args.Error(1)
}

func (m *MockPageActions) NodeAttribute(ctx context.Context, node *cdp.Node, name string) (string, error) {
	args := m.Called(ctx, node, name)
	return args.String(0), args.Error(1)
}

func (m *MockPageActions) AncestorBySelector(ctx context.Context, node *cdp.Node, selector string) (*cdp.Node, error) {
	args := m.Called(ctx, node, selector)
	if n := args.Get(0); n != nil {
		return n.(*cdp.Node), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPageActions) AncestorByWalk(ctx context.Context, node *cdp.Node, selectors []string, maxLevels int) (*cdp.Node, error) {
	args := m.Called(ctx, node, selectors, maxLevels)
	if n := args.Get(0); n != nil {
		return n.(*cdp.Node), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockElementResolver implements ElementResolver for testing
type MockElementResolver struct {
	mock.Mock
}

func (m *MockElementResolver) Resolve(ctx context.Context, role string, within *cdp.Node) (*cdp.Node, error) {
	args := m.Called(ctx, role, within)
	if n := args.Get(0); n != nil {
		return n.(*cdp.Node), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockElementResolver) ResolveAll(ctx context.Context, role string, within *cdp.Node) ([]*cdp.Node, error) {
	args := m.Called(ctx, role, within)
	if n := args.Get(0); n != nil {
		return n.([]*cdp.Node), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockElementResolver) AwaitResolve(ctx context.Context, role string, timeout time.Duration) (*cdp.Node, error) {
	args := m.Called(ctx, role, timeout)
	if n := args.Get(0); n != nil {
		return n.(*cdp.Node), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockLLMProvider implements llm.Provider for testing
type MockLLMProvider struct {
	mock.Mock
}

func (m *MockLLMProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockLLMProvider) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockMessageReader implements MessageReader for testing
type MockMessageReader struct {
	mock.Mock
}

func (m *MockMessageReader) LastInboundMessage(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockMessageReader) ContactName(ctx context.Context) string {
	args := m.Called(ctx)
	return args.String(0)
}

// MockReplyGenerator implements ReplyGenerator for testing
type MockReplyGenerator struct {
	mock.Mock
}

func (m *MockReplyGenerator) GenerateReply(ctx context.Context, contact, message string) (string, error) {
	args := m.Called(ctx, contact, message)
	return args.String(0), args.Error(1)
}

// MockReplySender implements ReplySender for testing
type MockReplySender struct {
	mock.Mock
}

func (m *MockReplySender) SendReply(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

// MockReplyJournal implements ReplyJournal for testing
type MockReplyJournal struct {
	mock.Mock
}

func (m *MockReplyJournal) RecordReply(ctx context.Context, conversationKey, contact, message, reply, status string) error {
	args := m.Called(ctx, conversationKey, contact, message, reply, status)
	return args.Error(0)
}
