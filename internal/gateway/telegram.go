package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
)

// TelegramGateway sends reminders through the Telegram Bot API.
type TelegramGateway struct {
	baseURL string
	token   string
	client  *http.Client
	log     *logger.Logger
}

// NewTelegramGateway creates a new Telegram gateway
func NewTelegramGateway(baseURL, token string, log *logger.Logger) *TelegramGateway {
	return &TelegramGateway{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// Credential returns the bot token
func (g *TelegramGateway) Credential() string {
	return g.token
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Send posts a sendMessage call to the Bot API. Failures are classified:
// 403 means the user blocked the bot and 400 means a malformed chat, both
// permanent; 429, 5xx and transport errors are transient.
func (g *TelegramGateway) Send(ctx context.Context, userID, content string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID: userID,
		Text:   content,
	})
	if err != nil {
		return domain.NewPermanentSendError(fmt.Errorf("marshal sendMessage request: %w", err))
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", g.baseURL, g.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return domain.NewPermanentSendError(fmt.Errorf("build sendMessage request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.NewTransientSendError(fmt.Errorf("telegram request failed: %w", err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiResp sendMessageResponse
	if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.OK {
		return nil
	}

	g.log.Warn("telegram send rejected", "user_id", userID, "status", resp.StatusCode, "body", string(body))

	return classifyStatus(resp.StatusCode, apiResp.Description)
}

// classifyStatus maps a Bot API status code to a SendError kind.
func classifyStatus(status int, description string) error {
	err := fmt.Errorf("telegram API status %d: %s", status, description)

	switch {
	case status == http.StatusForbidden, status == http.StatusNotFound:
		// Bot blocked by the user or chat gone.
		return domain.NewPermanentSendError(err)
	case status >= 400 && status < 500 && status != http.StatusTooManyRequests:
		// Malformed request will not self-correct.
		return domain.NewPermanentSendError(err)
	default:
		// 429, 5xx, or an OK status with an undecodable body.
		return domain.NewTransientSendError(err)
	}
}
