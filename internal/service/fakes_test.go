package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chess-champ-bot/internal/config"
	"chess-champ-bot/internal/domain"
	"chess-champ-bot/internal/metrics"
	"chess-champ-bot/internal/platform"
	"chess-champ-bot/internal/repository"

	"github.com/rs/zerolog"
)

type fakePlayers struct {
	mu      sync.Mutex
	players map[string]domain.PlayerIdentity
	listErr error
	upsert  error
}

func newFakePlayers(ids ...domain.PlayerIdentity) *fakePlayers {
	f := &fakePlayers{players: map[string]domain.PlayerIdentity{}}
	for _, id := range ids {
		f.players[strings.ToLower(id.Username)] = id
	}
	return f
}

func (f *fakePlayers) Get(_ context.Context, username string) (*domain.PlayerIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[strings.ToLower(username)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakePlayers) List(_ context.Context) ([]domain.PlayerIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.PlayerIdentity
	for _, p := range f.players {
		if p.HasAnyHandle() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlayers) Upsert(_ context.Context, identity domain.PlayerIdentity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsert != nil {
		return f.upsert
	}
	key := strings.ToLower(identity.Username)
	cur := f.players[key]
	cur.Username = identity.Username
	if identity.ChessCom != "" {
		cur.ChessCom = identity.ChessCom
	}
	if identity.Lichess != "" {
		cur.Lichess = identity.Lichess
	}
	f.players[key] = cur
	return nil
}

// fakeAdapter serves canned games per handle and classifies by the Winner
// color.
type fakeAdapter struct {
	platform domain.Platform
	games    map[string][]domain.GameRecord
	errs     map[string]error

	mu    sync.Mutex
	calls []string
}

func newFakeAdapter(p domain.Platform) *fakeAdapter {
	return &fakeAdapter{platform: p, games: map[string][]domain.GameRecord{}, errs: map[string]error{}}
}

func (f *fakeAdapter) Platform() domain.Platform { return f.platform }

func (f *fakeAdapter) FetchGames(_ context.Context, handle string, _, _ time.Time) ([]domain.GameRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, handle)
	f.mu.Unlock()
	if err := f.errs[strings.ToLower(handle)]; err != nil {
		return nil, err
	}
	return f.games[strings.ToLower(handle)], nil
}

func (f *fakeAdapter) Classify(game domain.GameRecord, handle string) (domain.Outcome, bool) {
	var color string
	switch {
	case strings.EqualFold(game.White.Handle, handle):
		color = "white"
	case strings.EqualFold(game.Black.Handle, handle):
		color = "black"
	default:
		return domain.Outcome{}, false
	}
	switch game.Winner {
	case "":
		return domain.Outcome{}, true
	case color:
		return domain.Outcome{Win: 1}, true
	default:
		return domain.Outcome{Loss: 1}, true
	}
}

func (f *fakeAdapter) add(handle string, games ...domain.GameRecord) {
	key := strings.ToLower(handle)
	f.games[key] = append(f.games[key], games...)
}

var gameSeq int

// game builds a finished game between white and black at t.
func game(p domain.Platform, white, black, winner string, t time.Time) domain.GameRecord {
	gameSeq++
	return domain.GameRecord{
		ID:       fmt.Sprintf("g%d", gameSeq),
		Platform: p,
		EndedAt:  t,
		Speed:    domain.SpeedBlitz,
		Rated:    true,
		URL:      fmt.Sprintf("https://example.test/game/%d", gameSeq),
		White:    domain.Side{Handle: white},
		Black:    domain.Side{Handle: black},
		Winner:   winner,
	}
}

// record plays wins then losses for handle against opp, all at t.
func record(p domain.Platform, handle, opp string, wins, losses int, t time.Time) []domain.GameRecord {
	var out []domain.GameRecord
	for i := 0; i < wins; i++ {
		out = append(out, game(p, handle, opp, "white", t))
	}
	for i := 0; i < losses; i++ {
		out = append(out, game(p, handle, opp, "black", t))
	}
	return out
}

func newRegistry(adapters ...platform.Adapter) *platform.Registry {
	return platform.NewRegistry(adapters...)
}

func testConfig() *config.Config {
	return &config.Config{FetchConcurrency: 4}
}

type fakeChampions struct {
	mu       sync.Mutex
	records  map[string]domain.DailyChampionRecord
	scores   map[string]int
	awards   int
	getErr   error
	awardErr error
}

func newFakeChampions() *fakeChampions {
	return &fakeChampions{records: map[string]domain.DailyChampionRecord{}, scores: map[string]int{}}
}

func (f *fakeChampions) GetByDate(_ context.Context, date string) (*domain.DailyChampionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.records[date]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (f *fakeChampions) Recent(_ context.Context, limit int) ([]domain.DailyChampionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DailyChampionRecord
	for _, r := range f.records {
		out = append(out, r)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeChampions) Award(_ context.Context, rec domain.DailyChampionRecord) (*domain.DailyChampionRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.awardErr != nil {
		return nil, false, f.awardErr
	}
	if existing, ok := f.records[rec.Date]; ok {
		return &existing, false, nil
	}
	f.awards++
	rec.ID = "rec-" + rec.Date
	f.records[rec.Date] = rec
	for _, p := range rec.Placements() {
		f.scores[p.Username] += p.Points
	}
	return &rec, true, nil
}

func (f *fakeChampions) Get(_ context.Context, username string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scores[username], nil
}

func (f *fakeChampions) List(_ context.Context, limit int) ([]domain.CumulativeScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CumulativeScore
	for name, total := range f.scores {
		out = append(out, domain.CumulativeScore{Username: name, TotalScore: total})
	}
	return out, nil
}

type fakeAnnouncer struct {
	mu      sync.Mutex
	results []*DailyResult
	err     error
}

func (f *fakeAnnouncer) Announce(_ context.Context, res *DailyResult) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, res)
	return "announced " + res.Date, f.err
}

var errUpstream = errors.New("upstream unavailable")

func nop() zerolog.Logger { return zerolog.Nop() }

func newMetrics() *metrics.Metrics { return metrics.New() }
