package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chess-champ-bot/internal/api"
	"chess-champ-bot/internal/constants"
	"chess-champ-bot/internal/domain"

	"github.com/rs/zerolog"
)

type lichessAPI interface {
	GetGames(ctx context.Context, handle string, since, until time.Time, max int) (*api.LichessGamesPage, error)
}

type Lichess struct {
	client lichessAPI
	logger zerolog.Logger
}

func NewLichess(client *api.LichessClient, logger zerolog.Logger) *Lichess {
	return newLichess(client, logger)
}

func newLichess(client lichessAPI, logger zerolog.Logger) *Lichess {
	return &Lichess{client: client, logger: logger.With().Str("platform", string(domain.PlatformLichess)).Logger()}
}

func (l *Lichess) Platform() domain.Platform { return domain.PlatformLichess }

func (l *Lichess) FetchGames(ctx context.Context, handle string, from, to time.Time) ([]domain.GameRecord, error) {
	page, err := l.client.GetGames(ctx, handle, from, to, constants.LichessPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to export games: %w", err)
	}

	if page.Skipped > 0 {
		l.logger.Warn().Str("handle", handle).Int("skipped", page.Skipped).Msg("skipped malformed ndjson lines")
	}
	if len(page.Games) >= constants.LichessPageSize {
		l.logger.Warn().Str("handle", handle).Int("page_size", constants.LichessPageSize).Msg("game export hit page size, window may be truncated")
	}

	games := make([]domain.GameRecord, 0, len(page.Games))
	for _, g := range page.Games {
		games = append(games, convertLichessGame(g))
	}
	return games, nil
}

func convertLichessGame(g api.LichessGame) domain.GameRecord {
	ts := g.LastMoveAt
	if ts == 0 {
		ts = g.CreatedAt
	}
	return domain.GameRecord{
		ID:       g.ID,
		Platform: domain.PlatformLichess,
		EndedAt:  time.UnixMilli(ts).UTC(),
		Speed:    domain.Speed(g.Speed),
		Rated:    g.Rated,
		URL:      "https://lichess.org/" + g.ID,
		White:    domain.Side{Handle: g.Players.White.Name(), Rating: g.Players.White.Rating},
		Black:    domain.Side{Handle: g.Players.Black.Name(), Rating: g.Players.Black.Rating},
		Winner:   g.Winner,
	}
}

// Classify applies the lichess vocabulary: the winner color decides, no
// winner is a draw.
func (l *Lichess) Classify(game domain.GameRecord, handle string) (domain.Outcome, bool) {
	var color string
	switch {
	case handle != "" && strings.EqualFold(game.White.Handle, handle):
		color = "white"
	case handle != "" && strings.EqualFold(game.Black.Handle, handle):
		color = "black"
	default:
		return domain.Outcome{}, false
	}

	switch game.Winner {
	case "":
		return domain.Outcome{}, true
	case color:
		return domain.Outcome{Win: 1}, true
	default:
		return domain.Outcome{Loss: 1}, true
	}
}
