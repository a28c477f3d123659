package db

import (
	"context"
	"time"
)

const upsertPlayer = `
INSERT INTO players (username, chesscom_username, lichess_username, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (username) DO UPDATE SET
    chesscom_username = CASE WHEN excluded.chesscom_username != '' THEN excluded.chesscom_username ELSE players.chesscom_username END,
    lichess_username  = CASE WHEN excluded.lichess_username != '' THEN excluded.lichess_username ELSE players.lichess_username END,
    updated_at        = excluded.updated_at
`

type UpsertPlayerParams struct {
	Username         string
	ChesscomUsername string
	LichessUsername  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (q *Queries) UpsertPlayer(ctx context.Context, arg UpsertPlayerParams) error {
	_, err := q.db.ExecContext(ctx, upsertPlayer,
		arg.Username,
		arg.ChesscomUsername,
		arg.LichessUsername,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getPlayer = `
SELECT username, chesscom_username, lichess_username, created_at, updated_at
FROM players
WHERE username = ?
`

func (q *Queries) GetPlayer(ctx context.Context, username string) (Player, error) {
	row := q.db.QueryRowContext(ctx, getPlayer, username)
	var i Player
	err := row.Scan(
		&i.Username,
		&i.ChesscomUsername,
		&i.LichessUsername,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listPlayers = `
SELECT username, chesscom_username, lichess_username, created_at, updated_at
FROM players
WHERE chesscom_username != '' OR lichess_username != ''
ORDER BY username
`

func (q *Queries) ListPlayers(ctx context.Context) ([]Player, error) {
	rows, err := q.db.QueryContext(ctx, listPlayers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Player
	for rows.Next() {
		var i Player
		if err := rows.Scan(
			&i.Username,
			&i.ChesscomUsername,
			&i.LichessUsername,
			&i.CreatedAt,
			&i.UpdatedAt,
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
