package api

import (
	"context"
	"fmt"
	"strings"

	"chess-champ-bot/internal/config"
	"chess-champ-bot/internal/constants"

	"golang.org/x/time/rate"
)

// TelegramClient is the outbound half of the chat transport.
type TelegramClient struct {
	*Client
	token string
}

func NewTelegramClient(cfg *config.Config) *TelegramClient {
	return &TelegramClient{
		Client: newClient(
			strings.TrimRight(cfg.TelegramBaseURL, "/"),
			rate.Limit(constants.TelegramRateLimit),
			constants.TelegramBurst,
			nil,
		),
		token: cfg.TelegramToken,
	}
}

func (c *TelegramClient) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, name)
}

func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	resp, err := postJSON[TelegramResponse](ctx, c.Client, c.method("sendMessage"), SendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("telegram sendMessage: %s", resp.Description)
	}
	return nil
}

type SendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type TelegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Update is the subset of a Telegram webhook update the bot reads.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64           `json:"message_id"`
	From      *User           `json:"from"`
	Chat      Chat            `json:"chat"`
	Date      int64           `json:"date"`
	Text      string          `json:"text"`
	Entities  []MessageEntity `json:"entities"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type MessageEntity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}
