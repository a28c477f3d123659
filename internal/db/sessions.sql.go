package db

import (
	"context"
	"time"
)

const upsertRegistrationSession = `
INSERT INTO registration_sessions (user_id, username, step, chesscom_username, lichess_username, expires_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    username          = excluded.username,
    step              = excluded.step,
    chesscom_username = excluded.chesscom_username,
    lichess_username  = excluded.lichess_username,
    expires_at        = excluded.expires_at
`

type UpsertRegistrationSessionParams struct {
	UserID           int64
	Username         string
	Step             string
	ChesscomUsername string
	LichessUsername  string
	ExpiresAt        time.Time
}

func (q *Queries) UpsertRegistrationSession(ctx context.Context, arg UpsertRegistrationSessionParams) error {
	_, err := q.db.ExecContext(ctx, upsertRegistrationSession,
		arg.UserID,
		arg.Username,
		arg.Step,
		arg.ChesscomUsername,
		arg.LichessUsername,
		arg.ExpiresAt,
	)
	return err
}

const getRegistrationSession = `
SELECT user_id, username, step, chesscom_username, lichess_username, expires_at
FROM registration_sessions
WHERE user_id = ?
`

func (q *Queries) GetRegistrationSession(ctx context.Context, userID int64) (RegistrationSession, error) {
	row := q.db.QueryRowContext(ctx, getRegistrationSession, userID)
	var i RegistrationSession
	err := row.Scan(
		&i.UserID,
		&i.Username,
		&i.Step,
		&i.ChesscomUsername,
		&i.LichessUsername,
		&i.ExpiresAt,
	)
	return i, err
}

const deleteRegistrationSession = `DELETE FROM registration_sessions WHERE user_id = ?`

func (q *Queries) DeleteRegistrationSession(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, deleteRegistrationSession, userID)
	return err
}

const deleteExpiredRegistrationSessions = `DELETE FROM registration_sessions WHERE expires_at <= ?`

func (q *Queries) DeleteExpiredRegistrationSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredRegistrationSessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
