// Package llm talks to OpenAI-compatible chat completion endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	chatCompletionsPath     = "/chat/completions"
	bodyPreviewLimit        = 512
	httpStatusErrorFormat   = "llm http error %d: %s"
	decodeErrorFormat       = "decode chat completion: %w (body=%s)"
	noChoicesErrorFormat    = "chat completion returned no choices (status=%d body=%s)"
	parseErrorFormat        = "chat completion parse error: %w (body=%s)"
	refusalErrorFormat      = "chat completion refusal: %s"
	emptyMessageErrorFormat = "chat completion returned empty message (finish_reason=%s)"
)

// Client posts chat completion requests.
type Client struct {
	HTTPBaseURL string
	APIKey      string
	HTTPClient  *http.Client
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	Temperature         *float64      `json:"temperature,omitempty"`
}

type chatMessageResponse struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Refusal json.RawMessage `json:"refusal,omitempty"`
}

type chatCompletionChoice struct {
	Message      chatMessageResponse `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatCompletionResponse struct {
	Choices []chatCompletionChoice `json:"choices"`
}

func truncateForLog(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

// CreateChatCompletion returns the trimmed text of the first choice. Refusals and empty
// messages are errors.
func (c Client) CreateChatCompletion(ctx context.Context, requestPayload ChatCompletionRequest) (string, error) {
	requestBytes, marshalErr := json.Marshal(requestPayload)
	if marshalErr != nil {
		return "", marshalErr
	}
	endpoint := strings.TrimRight(c.HTTPBaseURL, "/") + chatCompletionsPath
	httpRequest, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBytes))
	if buildErr != nil {
		return "", buildErr
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	httpResponse, httpErr := httpClient.Do(httpRequest)
	if httpErr != nil {
		return "", httpErr
	}
	defer func(closer io.ReadCloser) { _ = closer.Close() }(httpResponse.Body)

	bodyBytes, readErr := io.ReadAll(httpResponse.Body)
	if readErr != nil {
		return "", readErr
	}
	bodyPreview := truncateForLog(string(bodyBytes), bodyPreviewLimit)

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return "", fmt.Errorf(httpStatusErrorFormat, httpResponse.StatusCode, bodyPreview)
	}

	var completion chatCompletionResponse
	if decodeErr := json.Unmarshal(bodyBytes, &completion); decodeErr != nil {
		return "", fmt.Errorf(decodeErrorFormat, decodeErr, bodyPreview)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf(noChoicesErrorFormat, httpResponse.StatusCode, bodyPreview)
	}

	choice := completion.Choices[0]
	content, extractErr := extractMessageContent(choice.Message)
	if extractErr != nil {
		return "", fmt.Errorf(parseErrorFormat, extractErr, bodyPreview)
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf(emptyMessageErrorFormat, choice.FinishReason)
	}
	return trimmed, nil
}

func extractMessageContent(message chatMessageResponse) (string, error) {
	if refusal := decodeRefusal(message.Refusal); refusal != "" {
		return "", fmt.Errorf(refusalErrorFormat, refusal)
	}
	if len(message.Content) == 0 || string(message.Content) == "null" {
		return "", nil
	}
	var asString string
	if err := json.Unmarshal(message.Content, &asString); err == nil {
		return asString, nil
	}
	var parts []any
	if err := json.Unmarshal(message.Content, &parts); err == nil {
		return strings.Join(flattenText(parts), "\n"), nil
	}
	return "", fmt.Errorf("unsupported message content: %s", truncateForLog(string(message.Content), 240))
}

// flattenText collects text from content parts such as [{"type":"text","text":"..."}].
func flattenText(value any) []string {
	switch typed := value.(type) {
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	case []any:
		var collected []string
		for _, item := range typed {
			collected = append(collected, flattenText(item)...)
		}
		return collected
	case map[string]any:
		for _, key := range []string{"text", "content", "value"} {
			if nested, ok := typed[key]; ok {
				return flattenText(nested)
			}
		}
		return nil
	default:
		return nil
	}
}

func decodeRefusal(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var refusal string
	if err := json.Unmarshal(raw, &refusal); err == nil {
		return strings.TrimSpace(refusal)
	}
	return strings.TrimSpace(truncateForLog(string(raw), 200))
}
