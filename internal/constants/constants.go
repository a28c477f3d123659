package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second

	// the daily job fans out to every registered player
	ChampionshipTimeout = 2 * time.Minute
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

// scoring
const (
	MinQualifyingGames = 3
	WeightFactor       = 100.0
	ScoreTieEpsilon    = 0.01

	FirstPlacePoints  = 300
	SecondPlacePoints = 200
	ThirdPlacePoints  = 100
)

const (
	LichessPageSize     = 200
	RecentChampionLimit = 7
	StandingsPageLimit  = 50
)

// upstream request budgets, requests per second
const (
	ChessComRateLimit = 8
	ChessComBurst     = 8
	LichessRateLimit  = 3
	LichessAuthRate   = 6
	LichessBurst      = 4
	TelegramRateLimit = 25
	TelegramBurst     = 5
)

// inbound budget per client address on the JSON API
const (
	PublicAPIRateLimit = 2
	PublicAPIBurst     = 10
)
