package pushover

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"chat-mate/internal/application"
	"chat-mate/internal/infra"
)

const defaultURL = "https://api.pushover.net/1/messages.json"

// Client pushes pipeline failures to a phone. Notifications are sent in the
// background so a slow push never holds up the pipeline.
type Client struct {
	token      string
	userKey    string
	url        string
	httpClient *http.Client
	retry      infra.RetryConfig
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewClient(token, userKey string, logger *slog.Logger) *Client {
	return NewClientWithURL(token, userKey, defaultURL, logger)
}

func NewClientWithURL(token, userKey, apiURL string, logger *slog.Logger) *Client {
	return &Client{
		token:      token,
		userKey:    userKey,
		url:        apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      infra.DefaultRetryConfig(),
		logger:     logger,
	}
}

// Enabled reports whether both credentials are set.
func (c *Client) Enabled() bool {
	return c.token != "" && c.userKey != ""
}

func (c *Client) Present(ctx context.Context, ev application.Event) error {
	if ev.Kind != application.EventFailure || !c.Enabled() {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Notify(ctx, ev.Text); err != nil {
			c.logger.Warn("pushover notification failed", "error", err)
		}
	}()
	return nil
}

// Wait blocks until every pending notification has been sent or given up.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if !c.Enabled() {
		return nil
	}

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("message", message)
	data.Set("title", "Chat-Mate")

	return infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			c.url,
			strings.NewReader(data.Encode()),
		)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending notification: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return infra.NewStatusError("pushover", resp)
		}

		return nil
	})
}
