package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chess-champ-bot/internal/db"
	"chess-champ-bot/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type ChampionRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewChampionRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *ChampionRepository {
	return &ChampionRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *ChampionRepository) GetByDate(ctx context.Context, date string) (*domain.DailyChampionRecord, error) {
	row, err := r.queries.GetDailyChampion(ctx, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	record := toRecord(row)
	return &record, nil
}

// Recent returns up to limit records, newest date first.
func (r *ChampionRepository) Recent(ctx context.Context, limit int) ([]domain.DailyChampionRecord, error) {
	rows, err := r.queries.ListRecentChampions(ctx, int64(limit))
	if err != nil {
		return nil, err
	}

	result := make([]domain.DailyChampionRecord, len(rows))
	for i, row := range rows {
		result[i] = toRecord(row)
	}
	return result, nil
}

// Award stores record and credits each placement's points in one transaction.
// When a record for the same date already exists nothing is written and the
// stored record is returned with created set to false.
func (r *ChampionRepository) Award(ctx context.Context, record domain.DailyChampionRecord) (*domain.DailyChampionRecord, bool, error) {
	if record.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate nanoid: %w", err)
		}
		record.ID = id
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	inserted, err := qtx.InsertDailyChampion(ctx, toInsertParams(record))
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert daily champion for %s: %w", record.Date, err)
	}

	if inserted == 0 {
		existing, err := qtx.GetDailyChampion(ctx, record.Date)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load daily champion for %s: %w", record.Date, err)
		}
		r.logger.Info().Str("date", record.Date).Str("id", existing.ID).Msg("daily champion already recorded")
		stored := toRecord(existing)
		return &stored, false, nil
	}

	for _, p := range record.Placements() {
		err := qtx.AddScore(ctx, db.AddScoreParams{
			Username:  p.Username,
			Points:    int64(p.Points),
			UpdatedAt: record.CreatedAt,
		})
		if err != nil {
			return nil, false, fmt.Errorf("failed to add %d points to %s: %w", p.Points, p.Username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit daily champion for %s: %w", record.Date, err)
	}

	r.logger.Info().
		Str("date", record.Date).
		Str("id", record.ID).
		Str("first", record.First.Username).
		Int("placements", len(record.Placements())).
		Msg("daily champion recorded")
	return &record, true, nil
}

func toInsertParams(record domain.DailyChampionRecord) db.InsertDailyChampionParams {
	params := db.InsertDailyChampionParams{
		Date:         record.Date,
		ID:           record.ID,
		FirstPlace:   record.First.Username,
		FirstScore:   int64(record.First.Points),
		WinRateFirst: record.First.WinRate,
		CreatedAt:    record.CreatedAt,
	}
	if p := record.Second; p != nil {
		params.SecondPlace = &p.Username
		params.SecondScore = int64(p.Points)
		params.WinRateSecond = &p.WinRate
	}
	if p := record.Third; p != nil {
		params.ThirdPlace = &p.Username
		params.ThirdScore = int64(p.Points)
		params.WinRateThird = &p.WinRate
	}
	return params
}

func toRecord(row db.DailyChampion) domain.DailyChampionRecord {
	record := domain.DailyChampionRecord{
		ID:   row.ID,
		Date: row.Date,
		First: domain.Placement{
			Username: row.FirstPlace,
			Points:   int(row.FirstScore),
			WinRate:  row.WinRateFirst,
		},
		CreatedAt: row.CreatedAt,
	}
	record.Second = toPlacement(row.SecondPlace, row.SecondScore, row.WinRateSecond)
	record.Third = toPlacement(row.ThirdPlace, row.ThirdScore, row.WinRateThird)
	return record
}

func toPlacement(username *string, points int64, winRate *float64) *domain.Placement {
	if username == nil {
		return nil
	}
	p := &domain.Placement{Username: *username, Points: int(points)}
	if winRate != nil {
		p.WinRate = *winRate
	}
	return p
}
