package repository

import (
	"context"
	"database/sql"
	"errors"

	"chess-champ-bot/internal/db"
	"chess-champ-bot/internal/domain"

	"github.com/rs/zerolog"
)

type ScoreRepository struct {
	queries *db.Queries
	logger  zerolog.Logger
}

func NewScoreRepository(queries *db.Queries, logger zerolog.Logger) *ScoreRepository {
	return &ScoreRepository{queries: queries, logger: logger}
}

// Get returns the cumulative score of username, zero when it has never been
// awarded.
func (r *ScoreRepository) Get(ctx context.Context, username string) (int, error) {
	score, err := r.queries.GetScore(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(score.TotalScore), nil
}

// List returns up to limit scores, highest first.
func (r *ScoreRepository) List(ctx context.Context, limit int) ([]domain.CumulativeScore, error) {
	scores, err := r.queries.ListScores(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	result := make([]domain.CumulativeScore, len(scores))
	for i, s := range scores {
		result[i] = domain.CumulativeScore{
			Username:   s.Username,
			TotalScore: int(s.TotalScore),
			UpdatedAt:  s.UpdatedAt,
		}
	}
	return result, nil
}
