package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chess-champ-bot/internal/constants"
	"chess-champ-bot/internal/domain"
	"chess-champ-bot/internal/localtime"
	"chess-champ-bot/internal/metrics"
	"chess-champ-bot/internal/repository"

	"github.com/rs/zerolog"
)

type LeaderboardComputer interface {
	Compute(ctx context.Context, window Window) (*Leaderboard, error)
}

type ChampionStore interface {
	GetByDate(ctx context.Context, date string) (*domain.DailyChampionRecord, error)
	Recent(ctx context.Context, limit int) ([]domain.DailyChampionRecord, error)
	Award(ctx context.Context, record domain.DailyChampionRecord) (*domain.DailyChampionRecord, bool, error)
}

type ScoreStore interface {
	Get(ctx context.Context, username string) (int, error)
	List(ctx context.Context, limit int) ([]domain.CumulativeScore, error)
}

// Announcer renders a finished daily run and delivers it where configured. It
// returns the rendered text.
type Announcer interface {
	Announce(ctx context.Context, result *DailyResult) (string, error)
}

// DailyResult is the outcome of one scheduled run. Created is false when the
// date had already been awarded.
type DailyResult struct {
	Date         string                      `json:"date"`
	Standings    []domain.StandingsEntry     `json:"standings,omitempty"`
	Record       *domain.DailyChampionRecord `json:"record,omitempty"`
	Created      bool                        `json:"created"`
	Announcement string                      `json:"announcement,omitempty"`
	Report       FetchReport                 `json:"report"`
}

type ChampionshipService struct {
	leaderboard LeaderboardComputer
	champions   ChampionStore
	scores      ScoreStore
	announcer   Announcer
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

func NewChampionshipService(
	leaderboard LeaderboardComputer,
	champions ChampionStore,
	scores ScoreStore,
	announcer Announcer,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ChampionshipService {
	return &ChampionshipService{
		leaderboard: leaderboard,
		champions:   champions,
		scores:      scores,
		announcer:   announcer,
		metrics:     m,
		logger:      logger,
	}
}

// ComputeDailyStandings ranks every player over the local day containing
// date.
func (s *ChampionshipService) ComputeDailyStandings(ctx context.Context, date time.Time) ([]domain.StandingsEntry, FetchReport, error) {
	board, err := s.leaderboard.Compute(ctx, DayWindow(date))
	if err != nil {
		return nil, FetchReport{}, err
	}
	return board.Entries, board.Report, nil
}

// AwardDaily records the podium for the local day containing date and credits
// 300/200/100 points. An already awarded date returns the stored record
// untouched. Empty standings award nothing and return nil.
func (s *ChampionshipService) AwardDaily(ctx context.Context, date time.Time, standings []domain.StandingsEntry) (*domain.DailyChampionRecord, error) {
	record, _, err := s.award(ctx, localtime.LocalDateKey(date), standings)
	return record, err
}

func (s *ChampionshipService) award(ctx context.Context, key string, standings []domain.StandingsEntry) (*domain.DailyChampionRecord, bool, error) {
	existing, err := s.existing(ctx, key)
	if err != nil {
		s.metrics.Championships.WithLabelValues("error").Inc()
		return nil, false, err
	}
	if existing != nil {
		s.metrics.Championships.WithLabelValues("existing").Inc()
		s.logger.Info().Str("date", key).Str("first", existing.First.Username).Msg("daily championship already awarded")
		return existing, false, nil
	}

	if len(standings) == 0 {
		s.metrics.Championships.WithLabelValues("empty").Inc()
		s.logger.Info().Str("date", key).Msg("no qualifying players, nothing awarded")
		return nil, false, nil
	}

	record, created, err := s.champions.Award(ctx, podium(key, standings))
	if err != nil {
		s.metrics.Championships.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("date", key).Msg("failed to award daily championship")
		return nil, false, fmt.Errorf("failed to award daily championship for %s: %w", key, err)
	}

	if created {
		s.metrics.Championships.WithLabelValues("awarded").Inc()
	} else {
		// lost a create race to a concurrent run
		s.metrics.Championships.WithLabelValues("existing").Inc()
	}
	return record, created, nil
}

func (s *ChampionshipService) existing(ctx context.Context, key string) (*domain.DailyChampionRecord, error) {
	record, err := s.champions.GetByDate(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("date", key).Msg("failed to look up daily champion")
		return nil, fmt.Errorf("failed to look up daily champion for %s: %w", key, err)
	}
	return record, nil
}

func podium(key string, standings []domain.StandingsEntry) domain.DailyChampionRecord {
	points := []int{constants.FirstPlacePoints, constants.SecondPlacePoints, constants.ThirdPlacePoints}
	places := make([]domain.Placement, 0, len(points))
	for i := 0; i < len(points) && i < len(standings); i++ {
		places = append(places, domain.Placement{
			Username: standings[i].Username,
			Points:   points[i],
			WinRate:  standings[i].WinRate,
		})
	}

	record := domain.DailyChampionRecord{Date: key, First: places[0]}
	if len(places) > 1 {
		record.Second = &places[1]
	}
	if len(places) > 2 {
		record.Third = &places[2]
	}
	return record
}

// RunDaily is the scheduled entry point: it derives the local date from now,
// computes the day's standings, awards the podium and announces the result.
// A date that was already awarded is returned without refetching games.
func (s *ChampionshipService) RunDaily(ctx context.Context, now time.Time) (*DailyResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ChampionshipTimeout)
	defer cancel()

	key := localtime.LocalDateKey(now)
	result := &DailyResult{Date: key}

	s.logger.Info().Time("now", now).Str("date", key).Msg("running daily championship")

	existing, err := s.existing(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.metrics.Championships.WithLabelValues("existing").Inc()
		s.logger.Info().Str("date", key).Msg("daily championship already awarded, skipping")
		result.Record = existing
		return result, nil
	}

	standings, report, err := s.ComputeDailyStandings(ctx, now)
	if err != nil {
		s.metrics.Championships.WithLabelValues("error").Inc()
		return nil, err
	}
	result.Standings = standings
	result.Report = report

	record, created, err := s.award(ctx, key, standings)
	if err != nil {
		return nil, err
	}
	result.Record = record
	result.Created = created

	if !created {
		return result, nil
	}

	text, err := s.announcer.Announce(ctx, result)
	if err != nil {
		// the award is committed; a failed announcement is not retried
		s.logger.Warn().Err(err).Str("date", key).Msg("failed to post championship announcement")
	}
	result.Announcement = text

	return result, nil
}

// Standings returns cumulative championship scores, highest first.
func (s *ChampionshipService) Standings(ctx context.Context) ([]domain.CumulativeScore, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	scores, err := s.scores.List(ctx, constants.StandingsPageLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list scores")
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	return scores, nil
}

// RecentChampions returns up to limit daily records, newest first.
func (s *ChampionshipService) RecentChampions(ctx context.Context, limit int) ([]domain.DailyChampionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if limit <= 0 {
		limit = constants.RecentChampionLimit
	}
	records, err := s.champions.Recent(ctx, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list recent champions")
		return nil, fmt.Errorf("failed to list recent champions: %w", err)
	}
	return records, nil
}

func (s *ChampionshipService) Score(ctx context.Context, username string) (int, error) {
	return s.scores.Get(ctx, username)
}
