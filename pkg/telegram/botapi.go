package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// ErrUnauthorized is returned when the Bot API rejects the token.
var ErrUnauthorized = errors.New("telegram: bot token rejected")

// Bot is the account behind a bot token.
type Bot struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// BotClient calls the few Bot API methods the host needs.
type BotClient struct {
	Token   string
	BaseURL string
	HTTP    *http.Client
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// GetMe checks the token and returns the bot account.
func (c *BotClient) GetMe(ctx context.Context) (*Bot, error) {
	var bot Bot
	if err := c.call(ctx, "getMe", &bot); err != nil {
		return nil, err
	}
	return &bot, nil
}

func (c *BotClient) call(ctx context.Context, method string, out interface{}) error {
	if c.Token == "" {
		return ErrNoBotToken
	}
	base := c.BaseURL
	if base == "" {
		base = DefaultAPIURL
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	url := strings.TrimSuffix(base, "/") + "/bot" + c.Token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		// The URL carries the token; keep it out of logs.
		return fmt.Errorf("telegram: %s: request failed", method)
	}
	defer resp.Body.Close()

	var r apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("telegram: %s: decode response: %w", method, err)
	}
	if !r.OK {
		if r.ErrorCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return fmt.Errorf("telegram: %s: %d %s", method, r.ErrorCode, r.Description)
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("telegram: %s: decode result: %w", method, err)
	}
	return nil
}
