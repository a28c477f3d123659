package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chess-champ-bot/internal/api"
	"chess-champ-bot/internal/domain"

	"github.com/rs/zerolog"
)

// maxArchiveSpan bounds how many monthly archives one window may pull.
const maxArchiveSpan = 3

var chessComForfeits = map[string]bool{
	"resigned":  true,
	"timeout":   true,
	"abandoned": true,
}

type chessComAPI interface {
	GetArchives(ctx context.Context, handle string) (*api.ChessComArchivesResponse, error)
	GetMonthlyGames(ctx context.Context, handle string, year, month int) (*api.ChessComGamesResponse, error)
}

type ChessCom struct {
	client chessComAPI
	logger zerolog.Logger
}

func NewChessCom(client *api.ChessComClient, logger zerolog.Logger) *ChessCom {
	return newChessCom(client, logger)
}

func newChessCom(client chessComAPI, logger zerolog.Logger) *ChessCom {
	return &ChessCom{client: client, logger: logger.With().Str("platform", string(domain.PlatformChessCom)).Logger()}
}

func (c *ChessCom) Platform() domain.Platform { return domain.PlatformChessCom }

type archiveMonth struct{ year, month int }

// FetchGames lists the handle's archives and pulls the most recent one. When
// the window reaches back into earlier UTC months that have archives, those are
// pulled too: a local month starts five hours before its UTC archive does, and
// a player with no games yet this month has last month as the latest archive.
func (c *ChessCom) FetchGames(ctx context.Context, handle string, from, to time.Time) ([]domain.GameRecord, error) {
	archives, err := c.client.GetArchives(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	if len(archives.Archives) == 0 {
		c.logger.Debug().Str("handle", handle).Msg("no archives")
		return nil, nil
	}

	months, err := c.archivesFor(archives.Archives, from, to)
	if err != nil {
		return nil, err
	}

	var games []domain.GameRecord
	for i, m := range months {
		resp, err := c.client.GetMonthlyGames(ctx, handle, m.year, m.month)
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("failed to fetch archive %04d/%02d: %w", m.year, m.month, err)
			}
			// earlier months only add to the latest archive
			c.logger.Warn().Err(err).Str("handle", handle).Int("year", m.year).Int("month", m.month).Msg("skipping earlier archive")
			continue
		}
		for _, g := range resp.Games {
			games = append(games, convertChessComGame(g))
		}
	}

	c.logger.Debug().Str("handle", handle).Int("archives", len(months)).Int("game_count", len(games)).Msg("fetched games")
	return games, nil
}

func (c *ChessCom) archivesFor(urls []string, from, to time.Time) ([]archiveMonth, error) {
	available := make(map[archiveMonth]bool, len(urls))
	var latest archiveMonth
	for _, u := range urls {
		y, m, err := api.ArchiveMonth(u)
		if err != nil {
			c.logger.Warn().Err(err).Str("archive", u).Msg("skipping malformed archive url")
			continue
		}
		am := archiveMonth{y, m}
		available[am] = true
		if am.year > latest.year || (am.year == latest.year && am.month > latest.month) {
			latest = am
		}
	}
	if latest.year == 0 {
		return nil, fmt.Errorf("no usable archive urls")
	}

	wanted := []archiveMonth{latest}
	if from.IsZero() {
		return wanted, nil
	}
	if to.IsZero() || to.Before(from) {
		to = time.Now()
	}

	cursor := time.Date(from.UTC().Year(), from.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < maxArchiveSpan && cursor.Before(to); i++ {
		am := archiveMonth{cursor.Year(), int(cursor.Month())}
		if am != latest && available[am] {
			wanted = append(wanted, am)
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return wanted, nil
}

func convertChessComGame(g api.ChessComGame) domain.GameRecord {
	id := g.UUID
	if id == "" {
		id = g.URL
	}
	return domain.GameRecord{
		ID:       id,
		Platform: domain.PlatformChessCom,
		EndedAt:  time.Unix(g.EndTime, 0).UTC(),
		Speed:    domain.Speed(g.TimeClass),
		Rated:    g.Rated,
		URL:      g.URL,
		White:    domain.Side{Handle: g.White.Username, Result: g.White.Result, Rating: g.White.Rating},
		Black:    domain.Side{Handle: g.Black.Username, Result: g.Black.Result, Rating: g.Black.Rating},
	}
}

// Classify applies the chess.com vocabulary: a win is the subject's own "win"
// or the opponent forfeiting, a loss is the mirror. Everything else is a draw.
func (c *ChessCom) Classify(game domain.GameRecord, handle string) (domain.Outcome, bool) {
	var me, opp domain.Side
	switch {
	case strings.EqualFold(game.White.Handle, handle):
		me, opp = game.White, game.Black
	case strings.EqualFold(game.Black.Handle, handle):
		me, opp = game.Black, game.White
	default:
		return domain.Outcome{}, false
	}

	switch {
	case me.Result == "win" || chessComForfeits[opp.Result]:
		return domain.Outcome{Win: 1}, true
	case opp.Result == "win" || chessComForfeits[me.Result]:
		return domain.Outcome{Loss: 1}, true
	}
	return domain.Outcome{}, true
}
