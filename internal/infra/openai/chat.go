package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"chat-mate/internal/application"
	"chat-mate/internal/domain"
)

type ChatClient struct {
	client       *goopenai.Client
	model        string
	systemPrompt string
	maxTokens    int
}

func NewChatClient(apiKey, model, systemPrompt string, maxTokens int, timeout time.Duration) *ChatClient {
	return NewChatClientWithURL(apiKey, model, systemPrompt, maxTokens, "", timeout)
}

func NewChatClientWithURL(apiKey, model, systemPrompt string, maxTokens int, baseURL string, timeout time.Duration) *ChatClient {
	if model == "" {
		model = goopenai.GPT4oMini
	}
	return &ChatClient{
		client:       newClient(apiKey, baseURL, timeout),
		model:        model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
	}
}

func (c *ChatClient) Name() string {
	return "openai"
}

func (c *ChatClient) NewConversation() application.Conversation {
	conv := &conversation{client: c}
	if c.systemPrompt != "" {
		conv.messages = append(conv.messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: c.systemPrompt,
		})
	}
	return conv
}

type conversation struct {
	client *ChatClient

	mu       sync.Mutex
	messages []goopenai.ChatCompletionMessage
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

		user := goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt}

		c.mu.Lock()
		messages := append(append([]goopenai.ChatCompletionMessage{}, c.messages...), user)
		c.mu.Unlock()

		stream, err := c.client.client.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
			Model:     c.client.model,
			Messages:  messages,
			MaxTokens: c.client.maxTokens,
			Stream:    true,
		})
		if err != nil {
			yield("", fmt.Errorf("openai: %w", apiMessage(err)))
			return
		}
		defer stream.Close()

		var reply strings.Builder
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				yield("", fmt.Errorf("openai: %w", apiMessage(err)))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			fragment := resp.Choices[0].Delta.Content
			if fragment == "" {
				continue
			}
			reply.WriteString(fragment)
			if !yield(fragment, nil) {
				return
			}
		}

		c.mu.Lock()
		c.messages = append(c.messages, user, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleAssistant,
			Content: reply.String(),
		})
		c.mu.Unlock()
	}
}
