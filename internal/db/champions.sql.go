package db

import (
	"context"
	"time"
)

const insertDailyChampion = `
INSERT INTO daily_champions (
    date, id, first_place, second_place, third_place,
    first_score, second_score, third_score,
    win_rate_first, win_rate_second, win_rate_third, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (date) DO NOTHING
`

type InsertDailyChampionParams struct {
	Date          string
	ID            string
	FirstPlace    string
	SecondPlace   *string
	ThirdPlace    *string
	FirstScore    int64
	SecondScore   int64
	ThirdScore    int64
	WinRateFirst  float64
	WinRateSecond *float64
	WinRateThird  *float64
	CreatedAt     time.Time
}

// InsertDailyChampion returns the number of rows inserted, zero when a record
// for the date already exists.
func (q *Queries) InsertDailyChampion(ctx context.Context, arg InsertDailyChampionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertDailyChampion,
		arg.Date,
		arg.ID,
		arg.FirstPlace,
		arg.SecondPlace,
		arg.ThirdPlace,
		arg.FirstScore,
		arg.SecondScore,
		arg.ThirdScore,
		arg.WinRateFirst,
		arg.WinRateSecond,
		arg.WinRateThird,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const dailyChampionColumns = `
    date, id, first_place, second_place, third_place,
    first_score, second_score, third_score,
    win_rate_first, win_rate_second, win_rate_third, created_at
`

const getDailyChampion = `SELECT` + dailyChampionColumns + `FROM daily_champions WHERE date = ?`

func (q *Queries) GetDailyChampion(ctx context.Context, date string) (DailyChampion, error) {
	row := q.db.QueryRowContext(ctx, getDailyChampion, date)
	var i DailyChampion
	err := row.Scan(
		&i.Date,
		&i.ID,
		&i.FirstPlace,
		&i.SecondPlace,
		&i.ThirdPlace,
		&i.FirstScore,
		&i.SecondScore,
		&i.ThirdScore,
		&i.WinRateFirst,
		&i.WinRateSecond,
		&i.WinRateThird,
		&i.CreatedAt,
	)
	return i, err
}

const listRecentChampions = `SELECT` + dailyChampionColumns + `FROM daily_champions ORDER BY date DESC LIMIT ?`

func (q *Queries) ListRecentChampions(ctx context.Context, limit int64) ([]DailyChampion, error) {
	rows, err := q.db.QueryContext(ctx, listRecentChampions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailyChampion
	for rows.Next() {
		var i DailyChampion
		if err := rows.Scan(
			&i.Date,
			&i.ID,
			&i.FirstPlace,
			&i.SecondPlace,
			&i.ThirdPlace,
			&i.FirstScore,
			&i.SecondScore,
			&i.ThirdScore,
			&i.WinRateFirst,
			&i.WinRateSecond,
			&i.WinRateThird,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
