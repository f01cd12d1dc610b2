package gemini

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

type Client struct {
	apiKey       string
	httpClient   *http.Client
	baseURL      string
	model        string
	systemPrompt string
	maxTokens    int
}

func NewClient(apiKey, model, systemPrompt string, maxTokens int, timeout time.Duration) *Client {
	return NewClientWithURL(apiKey, model, systemPrompt, maxTokens, "https://generativelanguage.googleapis.com/v1beta", timeout)
}

func NewClientWithURL(apiKey, model, systemPrompt string, maxTokens int, baseURL string, timeout time.Duration) *Client {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Client{
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		model:        model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
	}
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type request struct {
	Contents         []content         `json:"contents"`
	SystemInstruct   *content          `json:"systemInstruction,omitempty"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (c *Client) Name() string {
	return "gemini"
}

// NewConversation starts an empty chat; its contents grow with each completed exchange.
func (c *Client) NewConversation() application.Conversation {
	return &conversation{client: c}
}

type conversation struct {
	client *Client

	mu       sync.Mutex
	contents []content
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

		user := content{Role: "user", Parts: []part{{Text: prompt}}}

		c.mu.Lock()
		contents := append(append([]content{}, c.contents...), user)
		c.mu.Unlock()

		reply, ok := c.client.stream(ctx, contents, yield)
		if !ok {
			return
		}

		c.mu.Lock()
		c.contents = append(c.contents, user, content{Role: "model", Parts: []part{{Text: reply}}})
		c.mu.Unlock()
	}
}

// stream yields each chunk's text and reports whether the stream completed.
func (c *Client) stream(ctx context.Context, contents []content, yield func(string, error) bool) (string, bool) {
	reqBody := request{Contents: contents}
	if c.systemPrompt != "" {
		reqBody.SystemInstruct = &content{Parts: []part{{Text: c.systemPrompt}}}
	}
	if c.maxTokens > 0 {
		reqBody.GenerationConfig = &generationConfig{MaxOutputTokens: c.maxTokens}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		yield("", fmt.Errorf("marshaling request: %w", err))
		return "", false
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		yield("", fmt.Errorf("creating request: %w", err))
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		yield("", fmt.Errorf("sending request: %w", err))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		yield("", infra.NewStatusError("gemini", resp))
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

		var chunk response
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			yield("", fmt.Errorf("decoding chunk: %w", err))
			return "", false
		}
		if chunk.Error != nil {
			yield("", fmt.Errorf("gemini error: %s", chunk.Error.Message))
			return "", false
		}
		if len(chunk.Candidates) == 0 {
			continue
		}

		var text strings.Builder
		for _, p := range chunk.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
		if text.Len() == 0 {
			continue
		}

		reply.WriteString(text.String())
		if !yield(text.String(), nil) {
			return "", false
		}
	}

	return reply.String(), true
}
