package domain

import (
	"math"
	"strings"
	"time"

	"chess-champ-bot/internal/constants"
)

type Platform string

const (
	PlatformChessCom Platform = "chess.com"
	PlatformLichess  Platform = "lichess"
)

var Platforms = []Platform{PlatformChessCom, PlatformLichess}

func (p Platform) String() string { return string(p) }

// Speed is the game time class. Values outside the three filterable speeds are
// kept as reported by the platform.
type Speed string

const (
	SpeedBullet Speed = "bullet"
	SpeedBlitz  Speed = "blitz"
	SpeedRapid  Speed = "rapid"
)

// ParseSpeed returns the filterable speed named by s.
func ParseSpeed(s string) (Speed, bool) {
	switch Speed(strings.ToLower(s)) {
	case SpeedBullet:
		return SpeedBullet, true
	case SpeedBlitz:
		return SpeedBlitz, true
	case SpeedRapid:
		return SpeedRapid, true
	}
	return "", false
}

// PlayerIdentity maps a Telegram username to platform handles.
type PlayerIdentity struct {
	Username  string
	ChessCom  string
	Lichess   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p PlayerIdentity) Handle(platform Platform) string {
	switch platform {
	case PlatformChessCom:
		return p.ChessCom
	case PlatformLichess:
		return p.Lichess
	}
	return ""
}

func (p PlayerIdentity) HasAnyHandle() bool {
	return p.ChessCom != "" || p.Lichess != ""
}

type Side struct {
	Handle string
	// Result is the per-side chess.com result code; empty for lichess.
	Result string
	Rating int
}

// GameRecord is one finished game as fetched from a platform.
type GameRecord struct {
	ID       string
	Platform Platform
	EndedAt  time.Time
	Speed    Speed
	Rated    bool
	URL      string
	White    Side
	Black    Side
	// Winner is "white", "black" or empty for a lichess draw.
	Winner string
}

// Opponent returns the side that is not handle, and whether handle played.
func (g GameRecord) Opponent(handle string) (Side, bool) {
	switch {
	case strings.EqualFold(g.White.Handle, handle):
		return g.Black, true
	case strings.EqualFold(g.Black.Handle, handle):
		return g.White, true
	}
	return Side{}, false
}

// Outcome of one game for one participant. The zero value is a draw.
type Outcome struct {
	Win  int
	Loss int
}

func (o Outcome) IsDraw() bool { return o.Win == 0 && o.Loss == 0 }

type PlayerDayStats struct {
	Username      string  `json:"username"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	TotalGames    int     `json:"total_games"`
	WinRate       float64 `json:"win_rate"`
	WeightedScore float64 `json:"weighted_score"`
	ChessComGames int     `json:"chesscom_games"`
	LichessGames  int     `json:"lichess_games"`
}

// Apply folds one outcome into the running totals and recomputes the derived
// fields.
func (s *PlayerDayStats) Apply(o Outcome) {
	s.Wins += o.Win
	s.Losses += o.Loss
	s.recompute()
}

func (s *PlayerDayStats) recompute() {
	s.TotalGames = s.Wins + s.Losses
	if s.TotalGames == 0 {
		s.WinRate = 0
		s.WeightedScore = 0
		return
	}
	s.WinRate = float64(s.Wins) / float64(s.TotalGames) * 100
	if s.TotalGames >= constants.MinQualifyingGames {
		s.WeightedScore = (s.WinRate / 100) * math.Sqrt(float64(s.TotalGames)) * constants.WeightFactor
	} else {
		s.WeightedScore = 0
	}
}

func (s *PlayerDayStats) CountGame(platform Platform) {
	switch platform {
	case PlatformChessCom:
		s.ChessComGames++
	case PlatformLichess:
		s.LichessGames++
	}
}

type StandingsEntry struct {
	PlayerDayStats
	Rank int `json:"rank"`
}

type Placement struct {
	Username string  `json:"username"`
	Points   int     `json:"points"`
	WinRate  float64 `json:"win_rate"`
}

// DailyChampionRecord is the immutable record of one day's award. Second and
// Third are nil when fewer players qualified.
type DailyChampionRecord struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"`
	First     Placement  `json:"first"`
	Second    *Placement `json:"second,omitempty"`
	Third     *Placement `json:"third,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (r DailyChampionRecord) Placements() []Placement {
	out := []Placement{r.First}
	if r.Second != nil {
		out = append(out, *r.Second)
	}
	if r.Third != nil {
		out = append(out, *r.Third)
	}
	return out
}

type CumulativeScore struct {
	Username   string    `json:"username"`
	TotalScore int       `json:"total_score"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type RegistrationStep string

const (
	StepChoosePlatform     RegistrationStep = "waiting_for_platform"
	StepChessComHandle     RegistrationStep = "waiting_for_chess_username"
	StepLichessHandle      RegistrationStep = "waiting_for_lichess_username"
	StepAdditionalPlatform RegistrationStep = "waiting_for_additional_platform"
)

// RegistrationSession is the per-user dialogue state for /start.
type RegistrationSession struct {
	UserID    int64            `json:"user_id"`
	Username  string           `json:"username"`
	Step      RegistrationStep `json:"step"`
	ChessCom  string           `json:"chesscom,omitempty"`
	Lichess   string           `json:"lichess,omitempty"`
	ExpiresAt time.Time        `json:"expires_at"`
}
