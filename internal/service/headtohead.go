package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chess-champ-bot/internal/constants"
	"chess-champ-bot/internal/domain"
	"chess-champ-bot/internal/localtime"
	"chess-champ-bot/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// NotRegisteredError names the usernames that have no linked handle.
type NotRegisteredError struct {
	Usernames []string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("not registered: %s", strings.Join(e.Usernames, ", "))
}

func (e *NotRegisteredError) Is(target error) bool { return target == ErrNotRegistered }

// PlatformRecord is the head-to-head tally on one platform, counted from
// the first player's side only.
type PlatformRecord struct {
	Platform    domain.Platform `json:"platform"`
	HandleA     string          `json:"handle_a"`
	HandleB     string          `json:"handle_b"`
	Games       int             `json:"games"`
	WinsA       int             `json:"wins_a"`
	WinsB       int             `json:"wins_b"`
	Draws       int             `json:"draws"`
	LastGameURL string          `json:"last_game_url,omitempty"`
	Unavailable bool            `json:"unavailable,omitempty"`
}

type HeadToHead struct {
	A         string           `json:"a"`
	B         string           `json:"b"`
	Month     string           `json:"month"`
	Platforms []PlatformRecord `json:"platforms"`
}

func (h *HeadToHead) TotalGames() int {
	n := 0
	for _, p := range h.Platforms {
		n += p.Games
	}
	return n
}

type HeadToHeadService struct {
	players  PlayerStore
	registry AdapterRegistry
	logger   zerolog.Logger
}

func NewHeadToHeadService(players PlayerStore, registry AdapterRegistry, logger zerolog.Logger) *HeadToHeadService {
	return &HeadToHeadService{players: players, registry: registry, logger: logger}
}

// Compare tallies this local month's games between two registered users on
// every platform both have linked.
func (s *HeadToHeadService) Compare(ctx context.Context, a, b string, now time.Time) (*HeadToHead, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	ida, idb, err := s.resolve(ctx, a, b)
	if err != nil {
		return nil, err
	}

	window := MonthWindow(now)
	result := &HeadToHead{
		A:     ida.Username,
		B:     idb.Username,
		Month: localtime.ToLocal(window.Start).Format("2006-01"),
	}

	for _, p := range domain.Platforms {
		ha, hb := ida.Handle(p), idb.Handle(p)
		if ha == "" || hb == "" {
			continue
		}
		result.Platforms = append(result.Platforms, PlatformRecord{Platform: p, HandleA: ha, HandleB: hb})
	}

	var g errgroup.Group
	for i := range result.Platforms {
		g.Go(func() error {
			s.tally(ctx, window, &result.Platforms[i])
			return nil
		})
	}
	_ = g.Wait()

	return result, nil
}

func (s *HeadToHeadService) resolve(ctx context.Context, a, b string) (*domain.PlayerIdentity, *domain.PlayerIdentity, error) {
	var missing []string
	lookup := func(name string) (*domain.PlayerIdentity, error) {
		p, err := s.players.Get(ctx, name)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !p.HasAnyHandle()) {
			missing = append(missing, name)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load player %s: %w", name, err)
		}
		return p, nil
	}

	ida, err := lookup(a)
	if err != nil {
		return nil, nil, err
	}
	idb, err := lookup(b)
	if err != nil {
		return nil, nil, err
	}
	if len(missing) > 0 {
		return nil, nil, &NotRegisteredError{Usernames: missing}
	}
	return ida, idb, nil
}

func (s *HeadToHeadService) tally(ctx context.Context, window Window, rec *PlatformRecord) {
	adapter, err := s.registry.Get(rec.Platform)
	if err != nil {
		rec.Unavailable = true
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	games, err := adapter.FetchGames(fetchCtx, rec.HandleA, window.Start, window.End)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("platform", rec.Platform.String()).
			Str("handle", rec.HandleA).
			Msg("head-to-head fetch failed")
		rec.Unavailable = true
		return
	}

	var last time.Time
	for _, game := range games {
		if !window.Includes(game) {
			continue
		}
		opponent, ok := game.Opponent(rec.HandleA)
		if !ok || !strings.EqualFold(opponent.Handle, rec.HandleB) {
			continue
		}

		outcome, _ := adapter.Classify(game, rec.HandleA)
		rec.Games++
		switch {
		case outcome.Win > 0:
			rec.WinsA++
		case outcome.Loss > 0:
			rec.WinsB++
		default:
			rec.Draws++
		}
		if !game.EndedAt.Before(last) {
			last = game.EndedAt
			rec.LastGameURL = game.URL
		}
	}
}
