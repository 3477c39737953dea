package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/web3-frozen/yield-monitor/internal/monitor"
)

const telegramAPI = "https://api.telegram.org/bot"

// Bot posts alert messages to a single Telegram chat.
type Bot struct {
	token   string
	chatID  int64
	logger  *slog.Logger
	client  *http.Client
	apiBase string
}

func NewBot(token string, chatID int64, logger *slog.Logger) *Bot {
	return &Bot{
		token:   token,
		chatID:  chatID,
		logger:  logger,
		client:  &http.Client{Timeout: 30 * time.Second},
		apiBase: telegramAPI,
	}
}

// Notify sends the formatted alert to the configured chat.
func (b *Bot) Notify(ctx context.Context, a monitor.Alert) error {
	return b.SendMessage(ctx, b.chatID, monitor.FormatAlert(a))
}

// SendMessage sends a text message to a Telegram chat.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiBase+b.token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		// url.Error text carries the request URL, which holds the token.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("telegram API error %d: %s", resp.StatusCode, errResp.Description)
	}
	b.logger.Debug("telegram message sent", "chat_id", chatID)
	return nil
}
