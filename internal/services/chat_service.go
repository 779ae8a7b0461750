package services

import (
	"context"

	"convolab/internal/llm"
	"convolab/pkg/logger"

	"go.uber.org/zap"
)

// FallbackAnswer is what users see whenever the completion API could not answer.
const FallbackAnswer = "Error connecting to AI. Please try again."

// Completer is satisfied by *llm.Client.
type Completer interface {
	Complete(ctx context.Context, prompt, model string) llm.Result
}

type ChatService struct {
	completer Completer
	logger    *logger.Logger
}

func NewChatService(completer Completer, l *logger.Logger) *ChatService {
	if l == nil {
		l = logger.NewNop()
	}
	return &ChatService{completer: completer, logger: l}
}

// Ask relays prompt and always returns text: the completion on success,
// FallbackAnswer otherwise. Failures are logged, never returned.
func (s *ChatService) Ask(ctx context.Context, prompt, model string) string {
	res := s.completer.Complete(ctx, prompt, model)
	if res.OK() {
		return res.Text
	}

	fields := []zap.Field{
		zap.String("outcome", res.Outcome.String()),
		zap.Error(res.Err),
	}
	if res.Status != 0 {
		fields = append(fields, zap.Int("status", res.Status))
	}
	if res.Body != "" {
		fields = append(fields, zap.String("body", res.Body))
	}
	s.logger.WithContext(ctx).Warn("completion request failed", fields...)

	return FallbackAnswer
}
