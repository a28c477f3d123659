package service

import (
	"strings"
	"time"

	"chess-champ-bot/internal/domain"
	"chess-champ-bot/internal/localtime"

	"github.com/rs/zerolog"
)

type WindowKind string

const (
	WindowDay   WindowKind = "day"
	WindowMonth WindowKind = "month"
)

// Window selects the games a leaderboard counts.
type Window struct {
	Kind WindowKind
	// Start is local midnight of the day or of the 1st of the month.
	Start time.Time
	// End bounds the upstream fetch.
	End time.Time
	// DateKey is the local date for day windows.
	DateKey string
	// Speed restricts counted games to one time class when set.
	Speed domain.Speed
}

// DayWindow covers the local day containing t.
func DayWindow(t time.Time) Window {
	return Window{
		Kind:    WindowDay,
		Start:   localtime.StartOfLocalDay(t),
		End:     localtime.EndOfLocalDay(t),
		DateKey: localtime.LocalDateKey(t),
	}
}

// MonthWindow covers the local month containing now, up to now.
func MonthWindow(now time.Time) Window {
	return Window{
		Kind:  WindowMonth,
		Start: localtime.StartOfLocalMonth(now),
		End:   now,
	}
}

func (w Window) WithSpeed(s domain.Speed) Window {
	w.Speed = s
	return w
}

// Includes reports whether game counts toward the window. Day windows compare
// local date keys; month windows keep every game ending at or after Start.
func (w Window) Includes(game domain.GameRecord) bool {
	switch w.Kind {
	case WindowDay:
		if localtime.LocalDateKey(game.EndedAt) != w.DateKey {
			return false
		}
	case WindowMonth:
		if game.EndedAt.Before(w.Start) {
			return false
		}
	default:
		return false
	}
	if w.Speed != "" && game.Speed != w.Speed {
		return false
	}
	return true
}

type Classifier interface {
	Classify(game domain.GameRecord, handle string) (domain.Outcome, bool)
}

// Aggregator folds classified games into per-player running totals. It is
// not safe for concurrent use; callers fold on one goroutine.
type Aggregator struct {
	window     Window
	classifier Classifier
	stats      map[string]*domain.PlayerDayStats
	order      []string
	seen       map[string]struct{}
	anomalies  map[domain.Platform]int
	logger     zerolog.Logger
}

// NewAggregator seeds zero stats for every player so players without games
// are still present.
func NewAggregator(players []domain.PlayerIdentity, window Window, classifier Classifier, logger zerolog.Logger) *Aggregator {
	a := &Aggregator{
		window:     window,
		classifier: classifier,
		stats:      make(map[string]*domain.PlayerDayStats, len(players)),
		seen:       make(map[string]struct{}),
		anomalies:  make(map[domain.Platform]int),
		logger:     logger,
	}
	for _, p := range players {
		key := strings.ToLower(p.Username)
		if _, ok := a.stats[key]; ok {
			continue
		}
		a.stats[key] = &domain.PlayerDayStats{Username: p.Username}
		a.order = append(a.order, key)
	}
	return a
}

// Add folds game into username's totals when it falls in the window. It
// returns whether the game was counted. A game already counted for the same
// player is ignored.
func (a *Aggregator) Add(username, handle string, game domain.GameRecord) bool {
	stats, ok := a.stats[strings.ToLower(username)]
	if !ok {
		a.logger.Warn().Str("username", username).Msg("game for unregistered player ignored")
		return false
	}
	if !a.window.Includes(game) {
		return false
	}

	if game.ID != "" {
		dedupe := strings.ToLower(username) + "|" + string(game.Platform) + "|" + game.ID
		if _, dup := a.seen[dedupe]; dup {
			return false
		}
		a.seen[dedupe] = struct{}{}
	}

	outcome, matched := a.classifier.Classify(game, handle)
	if !matched {
		a.anomalies[game.Platform]++
		a.logger.Warn().
			Str("username", username).
			Str("handle", handle).
			Str("platform", game.Platform.String()).
			Str("game_id", game.ID).
			Str("white", game.White.Handle).
			Str("black", game.Black.Handle).
			Msg("handle played neither side, counted as draw")
	}

	stats.Apply(outcome)
	stats.CountGame(game.Platform)
	return true
}

// Stats returns the totals in seeding order.
func (a *Aggregator) Stats() []domain.PlayerDayStats {
	out := make([]domain.PlayerDayStats, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, *a.stats[key])
	}
	return out
}

func (a *Aggregator) Anomalies() int {
	total := 0
	for _, n := range a.anomalies {
		total += n
	}
	return total
}

// AnomaliesByPlatform returns the per-platform anomaly counts.
func (a *Aggregator) AnomaliesByPlatform() map[domain.Platform]int {
	out := make(map[domain.Platform]int, len(a.anomalies))
	for p, n := range a.anomalies {
		out[p] = n
	}
	return out
}
