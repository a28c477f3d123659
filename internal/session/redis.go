package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"chess-champ-bot/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "chessbot:registration:"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps sessions as JSON values expiring after the TTL.
type RedisStore struct {
	rdb    redisClient
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

func NewRedisStore(redisURL string, ttl time.Duration, logger zerolog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("connected to redis")
	return newRedisStore(rdb, ttl, logger), nil
}

func newRedisStore(rdb redisClient, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now, logger: logger}
}

func (s *RedisStore) Get(ctx context.Context, userID int64) (*domain.RegistrationSession, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration session: %w", err)
	}

	var sess domain.RegistrationSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("discarding unreadable registration session")
		return nil, nil
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess domain.RegistrationSession) error {
	sess.ExpiresAt = s.now().Add(s.ttl).UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode registration session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(sess.UserID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save registration session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete registration session: %w", err)
	}
	return nil
}

func sessionKey(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}
