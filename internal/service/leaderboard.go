package service

import (
	"context"
	"fmt"
	"time"

	"chess-champ-bot/internal/config"
	"chess-champ-bot/internal/constants"
	"chess-champ-bot/internal/domain"
	"chess-champ-bot/internal/metrics"
	"chess-champ-bot/internal/platform"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type PlayerStore interface {
	Get(ctx context.Context, username string) (*domain.PlayerIdentity, error)
	List(ctx context.Context) ([]domain.PlayerIdentity, error)
	Upsert(ctx context.Context, identity domain.PlayerIdentity) error
}

type AdapterRegistry interface {
	Get(p domain.Platform) (platform.Adapter, error)
	Classify(game domain.GameRecord, handle string) (domain.Outcome, bool)
}

// FetchReport counts what happened during one fan-out. Failed fetches
// contribute zero games.
type FetchReport struct {
	Attempted int `json:"attempted"`
	Failed    int `json:"failed"`
	Games     int `json:"games"`
	Counted   int `json:"counted"`
	Anomalies int `json:"anomalies"`
}

type Leaderboard struct {
	Window  Window
	Entries []domain.StandingsEntry
	// Players is the number of registered players considered.
	Players int
	Report  FetchReport
}

type LeaderboardService struct {
	players     PlayerStore
	registry    AdapterRegistry
	metrics     *metrics.Metrics
	concurrency int
	logger      zerolog.Logger
}

func NewLeaderboardService(
	cfg *config.Config,
	players PlayerStore,
	registry AdapterRegistry,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *LeaderboardService {
	concurrency := cfg.FetchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &LeaderboardService{
		players:     players,
		registry:    registry,
		metrics:     m,
		concurrency: concurrency,
		logger:      logger,
	}
}

type fetchJob struct {
	username string
	handle   string
	platform domain.Platform
}

type fetchResult struct {
	games []domain.GameRecord
	err   error
}

// Compute fetches every registered player's games for the window and ranks
// them. Only a failure to list players is returned as an error.
func (s *LeaderboardService) Compute(ctx context.Context, window Window) (*Leaderboard, error) {
	start := time.Now()
	defer func() {
		s.metrics.LeaderboardTime.Observe(time.Since(start).Seconds())
		s.metrics.LeaderboardRuns.WithLabelValues(string(window.Kind)).Inc()
	}()

	players, err := s.players.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list players")
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	jobs := buildJobs(players)
	results := s.collect(ctx, jobs, window)

	agg := NewAggregator(players, window, s.registry, s.logger)
	report := FetchReport{Attempted: len(jobs)}
	for i, job := range jobs {
		res := results[i]
		if res.err != nil {
			report.Failed++
			continue
		}
		report.Games += len(res.games)
		for _, game := range res.games {
			if agg.Add(job.username, job.handle, game) {
				report.Counted++
			}
		}
	}
	report.Anomalies = agg.Anomalies()
	for p, n := range agg.AnomaliesByPlatform() {
		s.metrics.ClassifyAnomalies.WithLabelValues(p.String()).Add(float64(n))
	}

	entries := Rank(agg.Stats())

	s.logger.Info().
		Str("window", string(window.Kind)).
		Str("date", window.DateKey).
		Str("speed", string(window.Speed)).
		Int("players", len(players)).
		Int("fetches", report.Attempted).
		Int("failed", report.Failed).
		Int("games", report.Games).
		Int("counted", report.Counted).
		Int("anomalies", report.Anomalies).
		Int("qualified", len(entries)).
		Dur("elapsed", time.Since(start)).
		Msg("leaderboard computed")

	return &Leaderboard{
		Window:  window,
		Entries: entries,
		Players: len(players),
		Report:  report,
	}, nil
}

func buildJobs(players []domain.PlayerIdentity) []fetchJob {
	var jobs []fetchJob
	for _, p := range players {
		for _, pl := range domain.Platforms {
			if handle := p.Handle(pl); handle != "" {
				jobs = append(jobs, fetchJob{username: p.Username, handle: handle, platform: pl})
			}
		}
	}
	return jobs
}

// collect runs the fetches with bounded concurrency. Each goroutine writes
// only its own slot of the result slice.
func (s *LeaderboardService) collect(ctx context.Context, jobs []fetchJob, window Window) []fetchResult {
	results := make([]fetchResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = s.fetch(ctx, job, window)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *LeaderboardService) fetch(ctx context.Context, job fetchJob, window Window) fetchResult {
	adapter, err := s.registry.Get(job.platform)
	if err != nil {
		return fetchResult{err: err}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	games, err := adapter.FetchGames(fetchCtx, job.handle, window.Start, window.End)
	if err != nil {
		s.metrics.Fetches.WithLabelValues(job.platform.String(), "error").Inc()
		s.logger.Warn().
			Err(err).
			Str("username", job.username).
			Str("handle", job.handle).
			Str("platform", job.platform.String()).
			Msg("fetch failed, counting zero games")
		return fetchResult{err: err}
	}

	s.metrics.Fetches.WithLabelValues(job.platform.String(), "ok").Inc()
	s.metrics.GamesFetched.WithLabelValues(job.platform.String()).Add(float64(len(games)))
	return fetchResult{games: games}
}
