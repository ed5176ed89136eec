package llm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/llm-steps/internal/pipeline"
)

// Model binds a Client to one configured model and implements pipeline.LLM.
type Model struct {
	Client      Client
	Provider    string
	ModelID     string
	Temperature float64
	MaxTokens   int
	// Timeout bounds one call; zero leaves the caller's context alone.
	Timeout time.Duration
	Logger  *zap.Logger
}

func (m Model) Type() string { return strings.ToLower(strings.TrimSpace(m.Provider)) }

func (m Model) Call(ctx context.Context, prompt pipeline.Prompt) (string, error) {
	request := ChatCompletionRequest{
		Model:               m.ModelID,
		MaxCompletionTokens: m.MaxTokens,
	}
	if system := strings.TrimSpace(prompt.System); system != "" {
		request.Messages = append(request.Messages, ChatMessage{Role: "system", Content: system})
	}
	request.Messages = append(request.Messages, ChatMessage{Role: "user", Content: strings.TrimSpace(prompt.User)})

	// Several current models only accept their default temperature of 1, so 0 and 1 are omitted.
	if m.Temperature != 0 && m.Temperature != 1 {
		temperature := m.Temperature
		request.Temperature = &temperature
	}

	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	started := time.Now()
	response, err := m.Client.CreateChatCompletion(ctx, request)
	if m.Logger != nil {
		m.Logger.Debug("llm call finished",
			zap.String("model", m.ModelID),
			zap.Duration("duration", time.Since(started)),
			zap.Bool("ok", err == nil))
	}
	return response, err
}
