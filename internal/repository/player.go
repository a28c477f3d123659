package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chess-champ-bot/internal/db"
	"chess-champ-bot/internal/domain"

	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("not found")

type PlayerRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *PlayerRepository) Get(ctx context.Context, username string) (*domain.PlayerIdentity, error) {
	player, err := r.queries.GetPlayer(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	identity := toIdentity(player)
	return &identity, nil
}

// Upsert links the non-empty handles of identity to its username. Existing
// handles are kept when the new value is empty.
func (r *PlayerRepository) Upsert(ctx context.Context, identity domain.PlayerIdentity) error {
	now := time.Now().UTC()
	err := r.queries.UpsertPlayer(ctx, db.UpsertPlayerParams{
		Username:         identity.Username,
		ChesscomUsername: identity.ChessCom,
		LichessUsername:  identity.Lichess,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		r.logger.Error().Err(err).Str("username", identity.Username).Msg("failed to upsert player")
		return fmt.Errorf("failed to upsert player %s: %w", identity.Username, err)
	}

	r.logger.Debug().
		Str("username", identity.Username).
		Str("chesscom", identity.ChessCom).
		Str("lichess", identity.Lichess).
		Msg("player upserted")
	return nil
}

// List returns every identity with at least one linked handle.
func (r *PlayerRepository) List(ctx context.Context) ([]domain.PlayerIdentity, error) {
	players, err := r.queries.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.PlayerIdentity, len(players))
	for i, p := range players {
		result[i] = toIdentity(p)
	}
	return result, nil
}

func toIdentity(p db.Player) domain.PlayerIdentity {
	return domain.PlayerIdentity{
		Username:  p.Username,
		ChessCom:  p.ChesscomUsername,
		Lichess:   p.LichessUsername,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
