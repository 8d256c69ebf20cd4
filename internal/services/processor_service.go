package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ajramos/wareply/internal/config"
	"github.com/ajramos/wareply/internal/render"
)

// previewWidth bounds message and reply excerpts in log lines.
const previewWidth = 80

// Journal status values, one row per processed conversation.
const (
	statusReplied = "replied"
	statusSkipped = "skipped"
	statusFailed  = "failed"
)

// ConversationProcessorServiceImpl implements ConversationProcessor
type ConversationProcessorServiceImpl struct {
	page    PageActions
	reader  MessageReader
	replies ReplyGenerator
	sender  ReplySender
	journal ReplyJournal // nil when the journal is disabled
	config  *config.Config
	logger  *slog.Logger
}

// NewConversationProcessorService creates a new conversation processor
func NewConversationProcessorService(page PageActions, reader MessageReader, replies ReplyGenerator, sender ReplySender, journal ReplyJournal, cfg *config.Config, logger *slog.Logger) *ConversationProcessorServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationProcessorServiceImpl{
		page:    page,
		reader:  reader,
		replies: replies,
		sender:  sender,
		journal: journal,
		config:  cfg,
		logger:  logger,
	}
}

// Process handles one conversation end to end: open, read, generate, send.
// Every failure is contained at this boundary — the returned error is for
// logging and classification only, and a panic anywhere in the pipeline is
// converted into an error instead of escaping into the monitor loop.
func (s *ConversationProcessorServiceImpl) Process(ctx context.Context, conv Conversation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversation processing panicked: %v", r)
			s.logger.Error("recovered panic while processing conversation",
				"conversation", conv.Key, "panic", r)
		}
	}()

	if err := s.page.ClickNode(ctx, conv.Row); err != nil {
		return fmt.Errorf("failed to open conversation: %w", err)
	}
	if !settle(ctx, s.config.GetChatOpenDelay()) {
		return ctx.Err()
	}

	contact := s.reader.ContactName(ctx)

	message, err := s.reader.LastInboundMessage(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Info("conversation has no text payload, skipping",
				"conversation", conv.Key, "contact", contact)
			s.record(ctx, conv.Key, contact, "", "", statusSkipped)
			return nil
		}
		s.record(ctx, conv.Key, contact, "", "", statusFailed)
		return fmt.Errorf("failed to read last message: %w", err)
	}
	s.logger.Info("new message",
		"conversation", conv.Key,
		"contact", contact,
		"message", render.Preview(message, previewWidth))

	reply, err := s.replies.GenerateReply(ctx, contact, message)
	if err != nil {
		s.record(ctx, conv.Key, contact, message, "", statusFailed)
		return fmt.Errorf("failed to generate reply: %w", err)
	}
	s.logger.Info("generated reply",
		"conversation", conv.Key,
		"reply", render.Preview(reply, previewWidth))

	if err := s.sender.SendReply(ctx, reply); err != nil {
		s.record(ctx, conv.Key, contact, message, reply, statusFailed)
		return fmt.Errorf("failed to send reply: %w", err)
	}

	s.logger.Info("reply sent", "conversation", conv.Key, "contact", contact)
	s.record(ctx, conv.Key, contact, message, reply, statusReplied)
	return nil
}

// record writes the journal row when journaling is enabled. Journal failures
// are logged and swallowed; an audit extension must not affect replies.
func (s *ConversationProcessorServiceImpl) record(ctx context.Context, key, contact, message, reply, status string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordReply(ctx, key, contact, message, reply, status); err != nil {
		s.logger.Warn("failed to record reply in journal", "conversation", key, "error", err)
	}
}
