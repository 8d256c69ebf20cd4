package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type processorFixture struct {
	page    *MockPageActions
	reader  *MockMessageReader
	replies *MockReplyGenerator
	sender  *MockReplySender
	journal *MockReplyJournal
}

func newProcessorFixture(withJournal bool) (*ConversationProcessorServiceImpl, *processorFixture) {
	f := &processorFixture{
		page:    &MockPageActions{},
		reader:  &MockMessageReader{},
		replies: &MockReplyGenerator{},
		sender:  &MockReplySender{},
	}
	var journal ReplyJournal
	if withJournal {
		f.journal = &MockReplyJournal{}
		journal = f.journal
	}
	s := NewConversationProcessorService(f.page, f.reader, f.replies, f.sender, journal, fastConfig(), nil)
	return s, f
}

func conv(id int64, key string) Conversation {
	return Conversation{Key: key, Row: testNode(id)}
}

func TestProcess_HappyPath(t *testing.T) {
	s, f := newProcessorFixture(false)
	c := conv(1, "Maria")

	f.page.On("ClickNode", mock.Anything, c.Row).Return(nil)
	f.reader.On("ContactName", mock.Anything).Return("Maria")
	f.reader.On("LastInboundMessage", mock.Anything).Return("hola, estas?", nil)
	f.replies.On("GenerateReply", mock.Anything, "Maria", "hola, estas?").
		Return("hola! te respondo en un rato", nil)
	f.sender.On("SendReply", mock.Anything, "hola! te respondo en un rato").Return(nil)

	assert.NoError(t, s.Process(context.Background(), c))
	f.sender.AssertExpectations(t)
}

func TestProcess_NoTextPayloadSkipsBeforeGenerator(t *testing.T) {
	// Empty inbound text → NOT_FOUND → abort with no error and no
	// generator call. The monitor still marks the conversation processed.
	s, f := newProcessorFixture(false)
	c := conv(1, "Maria")

	f.page.On("ClickNode", mock.Anything, c.Row).Return(nil)
	f.reader.On("ContactName", mock.Anything).Return("Maria")
	f.reader.On("LastInboundMessage", mock.Anything).
		Return("", fmt.Errorf("no text payload: %w", ErrNotFound))

	assert.NoError(t, s.Process(context.Background(), c))
	f.replies.AssertNotCalled(t, "GenerateReply", mock.Anything, mock.Anything, mock.Anything)
	f.sender.AssertNotCalled(t, "SendReply", mock.Anything, mock.Anything)
}

func TestProcess_GeneratorTimeoutSkipsSender(t *testing.T) {
	s, f := newProcessorFixture(false)
	c := conv(1, "Maria")

	f.page.On("ClickNode", mock.Anything, c.Row).Return(nil)
	f.reader.On("ContactName", mock.Anything).Return("Maria")
	f.reader.On("LastInboundMessage", mock.Anything).Return("hola", nil)
	f.replies.On("GenerateReply", mock.Anything, "Maria", "hola").
		Return("", fmt.Errorf("gemini: %w", ErrGeneratorTimeout))

	start := time.Now()
	err := s.Process(context.Background(), c)
	assert.ErrorIs(t, err, ErrGeneratorTimeout)
	assert.True(t, IsSkippable(err))
	assert.Less(t, time.Since(start), time.Second, "no extra delay beyond the generator timeout")
	f.sender.AssertNotCalled(t, "SendReply", mock.Anything, mock.Anything)
}

func TestProcess_OpenFailure(t *testing.T) {
	s, f := newProcessorFixture(false)
	c := conv(1, "Maria")
	f.page.On("ClickNode", mock.Anything, c.Row).Return(fmt.Errorf("click intercepted"))

	err := s.Process(context.Background(), c)
	assert.Error(t, err)
	f.reader.AssertNotCalled(t, "LastInboundMessage", mock.Anything)
}

func TestProcess_SendFailureContained(t *testing.T) {
	s, f := newProcessorFixture(false)
	c := conv(1, "Maria")

	f.page.On("ClickNode", mock.Anything, c.Row).Return(nil)
	f.reader.On("ContactName", mock.Anything).Return("Maria")
	f.reader.On("LastInboundMessage", mock.Anything).Return("hola", nil)
	f.replies.On("GenerateReply", mock.Anything, "Maria", "hola").Return("respuesta", nil)
	f.sender.On("SendReply", mock.Anything, "respuesta").
		Return(fmt.Errorf("compose gone: %w", ErrComposeUnavailable))

	err := s.Process(context.Background(), c)
	assert.ErrorIs(t, err, ErrComposeUnavailable)
	assert.False(t, IsFatal(err))
}

func TestProcess_PanicIsContained(t *testing.T) {
	s, f := newProcessorFixture(false)
	c := conv(1, "Maria")

	f.page.On("ClickNode", mock.Anything, c.Row).Return(nil)
	f.reader.On("ContactName", mock.Anything).Return("Maria")
	f.reader.On("LastInboundMessage", mock.Anything).
		Run(func(mock.Arguments) { panic("stale node dereference") }).
		Return("", nil)

	var err error
	assert.NotPanics(t, func() { err = s.Process(context.Background(), c) })
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestProcess_JournalRecordsOutcome(t *testing.T) {
	s, f := newProcessorFixture(true)
	c := conv(1, "Maria")

	f.page.On("ClickNode", mock.Anything, c.Row).Return(nil)
	f.reader.On("ContactName", mock.Anything).Return("Maria")
	f.reader.On("LastInboundMessage", mock.Anything).Return("hola", nil)
	f.replies.On("GenerateReply", mock.Anything, "Maria", "hola").Return("respuesta", nil)
	f.sender.On("SendReply", mock.Anything, "respuesta").Return(nil)
	f.journal.On("RecordReply", mock.Anything, "Maria", "Maria", "hola", "respuesta", statusReplied).
		Return(nil)

	assert.NoError(t, s.Process(context.Background(), c))
	f.journal.AssertExpectations(t)
}

func TestProcess_JournalFailureDoesNotFailProcessing(t *testing.T) {
	s, f := newProcessorFixture(true)
	c := conv(1, "Maria")

	f.page.On("ClickNode", mock.Anything, c.Row).Return(nil)
	f.reader.On("ContactName", mock.Anything).Return("Maria")
	f.reader.On("LastInboundMessage", mock.Anything).Return("hola", nil)
	f.replies.On("GenerateReply", mock.Anything, "Maria", "hola").Return("respuesta", nil)
	f.sender.On("SendReply", mock.Anything, "respuesta").Return(nil)
	f.journal.On("RecordReply", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("disk full"))

	assert.NoError(t, s.Process(context.Background(), c))
}
