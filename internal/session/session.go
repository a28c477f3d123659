package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chess-champ-bot/internal/config"
	"chess-champ-bot/internal/db"
	"chess-champ-bot/internal/domain"

	"github.com/rs/zerolog"
)

// Store keeps registration dialogue state per Telegram user. Get returns nil
// when the user has no live session.
type Store interface {
	Get(ctx context.Context, userID int64) (*domain.RegistrationSession, error)
	Save(ctx context.Context, s domain.RegistrationSession) error
	Delete(ctx context.Context, userID int64) error
}

// NewStore returns a redis backed store when REDIS_URL is configured, the
// sqlite store otherwise.
func NewStore(cfg *config.Config, queries *db.Queries, logger zerolog.Logger) (Store, error) {
	if cfg.RedisURL != "" {
		store, err := NewRedisStore(cfg.RedisURL, cfg.SessionTTL, logger)
		if err != nil {
			return nil, err
		}
		logger.Info().Dur("ttl", cfg.SessionTTL).Msg("using redis registration sessions")
		return store, nil
	}
	logger.Info().Dur("ttl", cfg.SessionTTL).Msg("using sqlite registration sessions")
	return NewSQLStore(queries, cfg.SessionTTL, logger), nil
}

type SQLStore struct {
	queries *db.Queries
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

func NewSQLStore(queries *db.Queries, ttl time.Duration, logger zerolog.Logger) *SQLStore {
	return &SQLStore{queries: queries, ttl: ttl, now: time.Now, logger: logger}
}

func (s *SQLStore) Get(ctx context.Context, userID int64) (*domain.RegistrationSession, error) {
	row, err := s.queries.GetRegistrationSession(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration session: %w", err)
	}

	if !row.ExpiresAt.After(s.now()) {
		s.logger.Debug().Int64("user_id", userID).Msg("registration session expired")
		if err := s.queries.DeleteRegistrationSession(ctx, userID); err != nil {
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to delete expired session")
		}
		return nil, nil
	}

	return &domain.RegistrationSession{
		UserID:    row.UserID,
		Username:  row.Username,
		Step:      domain.RegistrationStep(row.Step),
		ChessCom:  row.ChesscomUsername,
		Lichess:   row.LichessUsername,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

// Save stores s and extends its expiry by the store TTL.
func (s *SQLStore) Save(ctx context.Context, sess domain.RegistrationSession) error {
	err := s.queries.UpsertRegistrationSession(ctx, db.UpsertRegistrationSessionParams{
		UserID:           sess.UserID,
		Username:         sess.Username,
		Step:             string(sess.Step),
		ChesscomUsername: sess.ChessCom,
		LichessUsername:  sess.Lichess,
		ExpiresAt:        s.now().Add(s.ttl).UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save registration session: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, userID int64) error {
	if err := s.queries.DeleteRegistrationSession(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete registration session: %w", err)
	}
	return nil
}

// Sweep removes every expired session.
func (s *SQLStore) Sweep(ctx context.Context) (int64, error) {
	return s.queries.DeleteExpiredRegistrationSessions(ctx, s.now().UTC())
}
