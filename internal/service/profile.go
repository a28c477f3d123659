package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chess-champ-bot/internal/api"
	"chess-champ-bot/internal/constants"
	"chess-champ-bot/internal/domain"
	"chess-champ-bot/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrNotRegistered = errors.New("player not registered")

type ChessComProfiles interface {
	GetStats(ctx context.Context, handle string) (*api.ChessComStatsResponse, error)
	GetProfile(ctx context.Context, handle string) (*api.ChessComProfileResponse, error)
}

type LichessProfiles interface {
	GetUser(ctx context.Context, handle string) (*api.LichessUserResponse, error)
}

// Ratings holds the current ratings on one platform. Nil fields were not
// reported.
type Ratings struct {
	Handle     string `json:"handle"`
	Rapid      *int   `json:"rapid,omitempty"`
	Blitz      *int   `json:"blitz,omitempty"`
	Bullet     *int   `json:"bullet,omitempty"`
	Puzzle     *int   `json:"puzzle,omitempty"`
	PuzzleRush *int   `json:"puzzle_rush,omitempty"`
	// Unavailable is set when the platform could not be reached or the handle
	// does not exist there.
	Unavailable bool `json:"unavailable,omitempty"`
}

type Profile struct {
	Username string   `json:"username,omitempty"`
	ChessCom *Ratings `json:"chesscom,omitempty"`
	Lichess  *Ratings `json:"lichess,omitempty"`
}

type ProfileService struct {
	chessCom ChessComProfiles
	lichess  LichessProfiles
	players  PlayerStore
	logger   zerolog.Logger
}

func NewProfileService(chessCom *api.ChessComClient, lichess *api.LichessClient, players PlayerStore, logger zerolog.Logger) *ProfileService {
	return newProfileService(chessCom, lichess, players, logger)
}

func newProfileService(chessCom ChessComProfiles, lichess LichessProfiles, players PlayerStore, logger zerolog.Logger) *ProfileService {
	return &ProfileService{chessCom: chessCom, lichess: lichess, players: players, logger: logger}
}

// Exists reports whether handle is a known account on p. Transport failures
// are returned as errors, a missing account as false.
func (s *ProfileService) Exists(ctx context.Context, p domain.Platform, handle string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	var err error
	switch p {
	case domain.PlatformChessCom:
		_, err = s.chessCom.GetProfile(ctx, handle)
	case domain.PlatformLichess:
		var user *api.LichessUserResponse
		user, err = s.lichess.GetUser(ctx, handle)
		if err == nil && user.Disabled {
			return false, nil
		}
	default:
		return false, fmt.Errorf("unknown platform %q", p)
	}

	if errors.Is(err, api.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("platform", p.String()).Str("handle", handle).Msg("failed to verify handle")
		return false, err
	}
	return true, nil
}

// Lookup resolves the ratings to show for /stats. An empty query means the
// sender; a query naming a registered user shows that user's handles; any
// other query is taken as a Chess.com handle.
func (s *ProfileService) Lookup(ctx context.Context, sender, query string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	query = strings.TrimPrefix(strings.TrimSpace(query), "@")

	var identity domain.PlayerIdentity
	switch {
	case query == "":
		p, err := s.players.Get(ctx, sender)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !p.HasAnyHandle()) {
			return nil, ErrNotRegistered
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load player %s: %w", sender, err)
		}
		identity = *p
	default:
		p, err := s.players.Get(ctx, query)
		switch {
		case err == nil && p.HasAnyHandle():
			identity = *p
		case err == nil || errors.Is(err, repository.ErrNotFound):
			identity = domain.PlayerIdentity{ChessCom: query}
		default:
			return nil, fmt.Errorf("failed to load player %s: %w", query, err)
		}
	}

	return s.Ratings(ctx, identity), nil
}

// Ratings fetches both platforms concurrently. A platform that fails is
// marked unavailable rather than failing the whole profile.
func (s *ProfileService) Ratings(ctx context.Context, identity domain.PlayerIdentity) *Profile {
	profile := &Profile{Username: identity.Username}

	var g errgroup.Group
	if identity.ChessCom != "" {
		g.Go(func() error {
			profile.ChessCom = s.chessComRatings(ctx, identity.ChessCom)
			return nil
		})
	}
	if identity.Lichess != "" {
		g.Go(func() error {
			profile.Lichess = s.lichessRatings(ctx, identity.Lichess)
			return nil
		})
	}
	_ = g.Wait()

	return profile
}

func (s *ProfileService) chessComRatings(ctx context.Context, handle string) *Ratings {
	r := &Ratings{Handle: handle}

	fetchCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	stats, err := s.chessCom.GetStats(fetchCtx, handle)
	if err != nil {
		s.logger.Warn().Err(err).Str("handle", handle).Str("platform", domain.PlatformChessCom.String()).Msg("failed to fetch stats")
		r.Unavailable = true
		return r
	}

	r.Rapid = lastRating(stats.ChessRapid)
	r.Blitz = lastRating(stats.ChessBlitz)
	r.Bullet = lastRating(stats.ChessBullet)
	if stats.Tactics != nil && stats.Tactics.Highest != nil {
		r.Puzzle = &stats.Tactics.Highest.Rating
	}
	if stats.PuzzleRush != nil && stats.PuzzleRush.Best != nil {
		r.PuzzleRush = &stats.PuzzleRush.Best.Score
	}
	return r
}

func (s *ProfileService) lichessRatings(ctx context.Context, handle string) *Ratings {
	r := &Ratings{Handle: handle}

	fetchCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	user, err := s.lichess.GetUser(fetchCtx, handle)
	if err != nil {
		s.logger.Warn().Err(err).Str("handle", handle).Str("platform", domain.PlatformLichess.String()).Msg("failed to fetch stats")
		r.Unavailable = true
		return r
	}

	r.Rapid = perfRating(user.Perfs.Rapid)
	r.Blitz = perfRating(user.Perfs.Blitz)
	r.Bullet = perfRating(user.Perfs.Bullet)
	r.Puzzle = perfRating(user.Perfs.Puzzle)
	return r
}

func lastRating(r *api.ChessComRating) *int {
	if r == nil || r.Last == nil {
		return nil
	}
	v := r.Last.Rating
	return &v
}

func perfRating(p *api.LichessPerf) *int {
	if p == nil || p.Games == 0 {
		return nil
	}
	v := p.Rating
	return &v
}
