package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"

	"chat-mate/internal/application"
	"chat-mate/internal/domain"
	"chat-mate/internal/infra"
)

const defaultMaxTokens = 1024

type ClaudeClient struct {
	apiKey       string
	httpClient   *http.Client
	baseURL      string
	model        string
	systemPrompt string
	maxTokens    int
}

func NewClaudeClient(apiKey, model, systemPrompt string, maxTokens int, timeout time.Duration) *ClaudeClient {
	return NewClaudeClientWithURL(apiKey, model, systemPrompt, maxTokens, "https://api.anthropic.com/v1", timeout)
}

func NewClaudeClientWithURL(apiKey, model, systemPrompt string, maxTokens int, baseURL string, timeout time.Duration) *ClaudeClient {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &ClaudeClient{
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		model:        model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
	Stream    bool      `json:"stream"`
}

// streamEvent covers the SSE payloads the reply loop cares about.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ClaudeClient) Name() string {
	return "anthropic"
}

func (c *ClaudeClient) NewConversation() application.Conversation {
	return &conversation{client: c}
}

type conversation struct {
	client *ClaudeClient

	mu       sync.Mutex
	messages []message
}

func (c *conversation) StreamReply(ctx context.Context, prompt string) iter.Seq2[string, error] {
	var once sync.Once
	return func(yield func(string, error) bool) {
		first := false
		once.Do(func() { first = true })
		if !first {
			yield("", domain.ErrStreamConsumed)
			return
		}

		user := message{Role: "user", Content: prompt}

		c.mu.Lock()
		messages := append(append([]message{}, c.messages...), user)
		c.mu.Unlock()

		reply, ok := c.client.stream(ctx, messages, yield)
		if !ok {
			return
		}

		c.mu.Lock()
		c.messages = append(c.messages, user, message{Role: "assistant", Content: reply})
		c.mu.Unlock()
	}
}

func (c *ClaudeClient) stream(ctx context.Context, messages []message, yield func(string, error) bool) (string, bool) {
	reqBody := request{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    c.systemPrompt,
		Messages:  messages,
		Stream:    true,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		yield("", fmt.Errorf("marshaling request: %w", err))
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		yield("", fmt.Errorf("creating request: %w", err))
		return "", false
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		yield("", fmt.Errorf("sending request: %w", err))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		yield("", infra.NewStatusError("claude", resp))
		return "", false
	}

	var reply strings.Builder
	for ev, err := range infra.ReadSSE(resp.Body) {
		if err != nil {
			yield("", err)
			return "", false
		}

		if ev.Data == "" {
			continue
		}

		var payload streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			yield("", fmt.Errorf("decoding event %q: %w", ev.Event, err))
			return "", false
		}

		switch payload.Type {
		case "content_block_delta":
			if payload.Delta.Type != "text_delta" || payload.Delta.Text == "" {
				continue
			}
			reply.WriteString(payload.Delta.Text)
			if !yield(payload.Delta.Text, nil) {
				return "", false
			}
		case "error":
			yield("", fmt.Errorf("claude %s: %s", payload.Error.Type, payload.Error.Message))
			return "", false
		case "message_stop":
			return reply.String(), true
		}
	}

	return reply.String(), true
}
