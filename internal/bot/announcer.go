package bot

import (
	"context"
	"fmt"

	"chess-champ-bot/internal/api"
	"chess-champ-bot/internal/config"
	"chess-champ-bot/internal/service"

	"github.com/rs/zerolog"
)

// Announcer posts daily championship results to the configured group chat.
// With no chat configured it only renders the text.
type Announcer struct {
	messenger Messenger
	chatID    int64
	logger    zerolog.Logger
}

func NewAnnouncer(telegram *api.TelegramClient, cfg *config.Config, logger zerolog.Logger) *Announcer {
	return newAnnouncer(telegram, cfg.AnnounceChatID, logger)
}

func newAnnouncer(messenger Messenger, chatID int64, logger zerolog.Logger) *Announcer {
	return &Announcer{messenger: messenger, chatID: chatID, logger: logger}
}

func (a *Announcer) Announce(ctx context.Context, result *service.DailyResult) (string, error) {
	text := FormatAnnouncement(result)
	if a.chatID == 0 {
		a.logger.Info().Str("date", result.Date).Msg("no announce chat configured, skipping post")
		return text, nil
	}

	if err := a.messenger.SendMessage(ctx, a.chatID, text); err != nil {
		return text, fmt.Errorf("failed to post announcement: %w", err)
	}
	a.logger.Info().Str("date", result.Date).Int64("chat_id", a.chatID).Msg("championship announced")
	return text, nil
}
