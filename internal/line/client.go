package line

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// DefaultReplyURL is the Messaging API reply endpoint.
const DefaultReplyURL = "https://api.line.me/v2/bot/message/reply"

// maxMessages is the Messaging API limit per reply.
const maxMessages = 5

type ClientConfig struct {
	AccessToken string
	ReplyURL    string
	Timeout     time.Duration
}

// Client sends replies. Failed deliveries are returned, never retried.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(config ClientConfig) *Client {
	if config.ReplyURL == "" {
		config.ReplyURL = DefaultReplyURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     slog.Default(),
	}
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

// Reply delivers messages for replyToken.
func (c *Client) Reply(ctx context.Context, replyToken string, messages []Message) error {
	if replyToken == "" {
		return errors.New("reply token is empty")
	}
	if len(messages) == 0 {
		return nil
	}
	if len(messages) > maxMessages {
		return errors.Errorf("too many messages: %d (max %d)", len(messages), maxMessages)
	}

	body, err := json.Marshal(replyRequest{ReplyToken: replyToken, Messages: messages})
	if err != nil {
		return errors.Wrap(err, "failed to marshal reply")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.ReplyURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create reply request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "reply request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("reply rejected", "status", resp.StatusCode, "body", string(detail))
		return errors.Errorf("reply failed with status %d", resp.StatusCode)
	}
	return nil
}
