package db

import (
	"time"
)

type Player struct {
	Username         string
	ChesscomUsername string
	LichessUsername  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type UserScore struct {
	Username   string
	TotalScore int64
	UpdatedAt  time.Time
}

type DailyChampion struct {
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

type RegistrationSession struct {
	UserID           int64
	Username         string
	Step             string
	ChesscomUsername string
	LichessUsername  string
	ExpiresAt        time.Time
}
