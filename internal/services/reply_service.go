package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ajramos/wareply/internal/config"
	"github.com/ajramos/wareply/internal/llm"
)

// ansiEscapes matches the terminal escape sequences CLI backends leave in
// their output.
var ansiEscapes = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// promptHazards are the characters stripped from page-derived text before it
// enters a prompt: anything that could act as quoting, escaping or command
// syntax on the far side of the trust boundary.
const promptHazards = "\"'`\\$!\n\r"

// ReplyServiceImpl implements ReplyGenerator
type ReplyServiceImpl struct {
	provider llm.Provider
	config   *config.Config
	logger   *slog.Logger
}

// NewReplyService creates a new reply generation service
func NewReplyService(provider llm.Provider, cfg *config.Config, logger *slog.Logger) *ReplyServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplyServiceImpl{provider: provider, config: cfg, logger: logger}
}

// GenerateReply builds the prompt from sanitized inputs and asks the
// configured provider for reply text, bounded by the configured timeout.
// Timeout, backend failure and empty output each map to their own sentinel;
// all three skip the conversation, none is fatal.
func (s *ReplyServiceImpl) GenerateReply(ctx context.Context, contact, message string) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("%w: no provider configured", ErrGeneratorFailed)
	}

	prompt := s.config.LLM.GetReplyPrompt()
	prompt = strings.ReplaceAll(prompt, "{{name}}", sanitizeForPrompt(contact))
	prompt = strings.ReplaceAll(prompt, "{{message}}", sanitizeForPrompt(message))

	genCtx, cancel := context.WithTimeout(ctx, s.config.GetLLMTimeout())
	defer cancel()

	out, err := s.provider.Generate(genCtx, prompt)
	if err != nil {
		if errors.Is(err, ErrGeneratorTimeout) || errors.Is(err, ErrEmptyReply) {
			return "", err
		}
		if genCtx.Err() != nil && ctx.Err() == nil {
			return "", fmt.Errorf("%s: %w", s.provider.Name(), ErrGeneratorTimeout)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrGeneratorFailed, s.provider.Name(), err)
	}

	reply := strings.TrimSpace(ansiEscapes.ReplaceAllString(out, ""))
	if reply == "" {
		return "", fmt.Errorf("%s: %w", s.provider.Name(), ErrEmptyReply)
	}
	return reply, nil
}

// sanitizeForPrompt replaces each hazardous character with a single space,
// preserving the relative order of everything else.
func sanitizeForPrompt(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(promptHazards, r) {
			return ' '
		}
		return r
	}, s)
}
