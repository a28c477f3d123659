package db

import (
	"context"
	"time"
)

const addScore = `
INSERT INTO user_scores (username, total_score, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (username) DO UPDATE SET
    total_score = user_scores.total_score + excluded.total_score,
    updated_at  = excluded.updated_at
`

type AddScoreParams struct {
	Username  string
	Points    int64
	UpdatedAt time.Time
}

func (q *Queries) AddScore(ctx context.Context, arg AddScoreParams) error {
	_, err := q.db.ExecContext(ctx, addScore, arg.Username, arg.Points, arg.UpdatedAt)
	return err
}

const getScore = `
SELECT username, total_score, updated_at
FROM user_scores
WHERE username = ?
`

func (q *Queries) GetScore(ctx context.Context, username string) (UserScore, error) {
	row := q.db.QueryRowContext(ctx, getScore, username)
	var i UserScore
	err := row.Scan(&i.Username, &i.TotalScore, &i.UpdatedAt)
	return i, err
}

const listScores = `
SELECT username, total_score, updated_at
FROM user_scores
ORDER BY total_score DESC, username ASC
LIMIT ?
`

func (q *Queries) ListScores(ctx context.Context, limit int64) ([]UserScore, error) {
	rows, err := q.db.QueryContext(ctx, listScores, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserScore
	for rows.Next() {
		var i UserScore
		if err := rows.Scan(&i.Username, &i.TotalScore, &i.UpdatedAt); err != nil {
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
