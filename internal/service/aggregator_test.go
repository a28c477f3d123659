package service

import (
	"math/rand/v2"
	"testing"
	"time"

	"chess-champ-bot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	// local midnight of 2024-03-10 in UTC+5
	day     = time.Date(2024, 3, 9, 19, 0, 0, 0, time.UTC)
	players = []domain.PlayerIdentity{
		{Username: "alice", ChessCom: "alice_cc", Lichess: "alice_li"},
		{Username: "bob", ChessCom: "bob_cc"},
	}
)

func TestDayWindowBoundaries(t *testing.T) {
	w := DayWindow(day.Add(6 * time.Hour))
	assert.Equal(t, "2024-03-10", w.DateKey)
	assert.Equal(t, day, w.Start)
	assert.Equal(t, day.Add(24*time.Hour), w.End)

	at := func(ts time.Time) domain.GameRecord { return domain.GameRecord{EndedAt: ts} }

	assert.True(t, w.Includes(at(day)), "local midnight belongs to the day")
	assert.False(t, w.Includes(at(day.Add(-time.Second))))
	assert.True(t, w.Includes(at(day.Add(24*time.Hour-time.Second))))
	assert.False(t, w.Includes(at(day.Add(24*time.Hour))))
}

func TestMonthWindow(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	w := MonthWindow(now)

	assert.Equal(t, time.Date(2024, 2, 29, 19, 0, 0, 0, time.UTC), w.Start)
	assert.True(t, w.Includes(domain.GameRecord{EndedAt: w.Start}))
	assert.False(t, w.Includes(domain.GameRecord{EndedAt: w.Start.Add(-time.Minute)}))
}

func TestWindowSpeedFilter(t *testing.T) {
	w := DayWindow(day).WithSpeed(domain.SpeedBullet)

	assert.True(t, w.Includes(domain.GameRecord{EndedAt: day, Speed: domain.SpeedBullet}))
	assert.False(t, w.Includes(domain.GameRecord{EndedAt: day, Speed: domain.SpeedBlitz}))
}

func TestAggregatorCountsBothPlatforms(t *testing.T) {
	chess := newFakeAdapter(domain.PlatformChessCom)
	lichess := newFakeAdapter(domain.PlatformLichess)
	agg := NewAggregator(players, DayWindow(day), newRegistry(chess, lichess), nop())

	for _, g := range record(domain.PlatformChessCom, "alice_cc", "x", 2, 1, day.Add(time.Hour)) {
		assert.True(t, agg.Add("alice", "alice_cc", g))
	}
	for _, g := range record(domain.PlatformLichess, "alice_li", "y", 1, 0, day.Add(2*time.Hour)) {
		assert.True(t, agg.Add("alice", "alice_li", g))
	}
	draw := game(domain.PlatformLichess, "alice_li", "y", "", day.Add(3*time.Hour))
	assert.True(t, agg.Add("alice", "alice_li", draw))

	stats := agg.Stats()
	require.Len(t, stats, 2)

	alice := stats[0]
	assert.Equal(t, "alice", alice.Username)
	assert.Equal(t, 3, alice.Wins)
	assert.Equal(t, 1, alice.Losses)
	assert.Equal(t, 4, alice.TotalGames, "draws are not counted")
	assert.Equal(t, 3, alice.ChessComGames)
	assert.Equal(t, 2, alice.LichessGames)
	assert.InDelta(t, 150.0, alice.WeightedScore, 0.001)

	assert.Equal(t, domain.PlayerDayStats{Username: "bob"}, stats[1], "seeded players stay present")
}

func TestAggregatorSkipsOutOfWindow(t *testing.T) {
	chess := newFakeAdapter(domain.PlatformChessCom)
	agg := NewAggregator(players, DayWindow(day), newRegistry(chess), nop())

	assert.False(t, agg.Add("bob", "bob_cc", game(domain.PlatformChessCom, "bob_cc", "x", "white", day.Add(-time.Minute))))
	assert.False(t, agg.Add("bob", "bob_cc", game(domain.PlatformChessCom, "bob_cc", "x", "white", day.Add(25*time.Hour))))
	assert.False(t, agg.Add("nobody", "n", game(domain.PlatformChessCom, "n", "x", "white", day)))
	assert.Zero(t, agg.Stats()[1].TotalGames)
}

func TestAggregatorDeduplicates(t *testing.T) {
	chess := newFakeAdapter(domain.PlatformChessCom)
	agg := NewAggregator(players, DayWindow(day), newRegistry(chess), nop())

	g := game(domain.PlatformChessCom, "bob_cc", "x", "white", day)
	assert.True(t, agg.Add("bob", "bob_cc", g))
	assert.False(t, agg.Add("bob", "bob_cc", g))
	assert.Equal(t, 1, agg.Stats()[1].Wins)
}

func TestAggregatorAnomalyCountsAsDraw(t *testing.T) {
	chess := newFakeAdapter(domain.PlatformChessCom)
	agg := NewAggregator(players, DayWindow(day), newRegistry(chess), nop())

	g := game(domain.PlatformChessCom, "someone", "else", "white", day)
	assert.True(t, agg.Add("bob", "bob_cc", g))

	bob := agg.Stats()[1]
	assert.Zero(t, bob.TotalGames)
	assert.Equal(t, 1, bob.ChessComGames)
	assert.Equal(t, 1, agg.Anomalies())
	assert.Equal(t, map[domain.Platform]int{domain.PlatformChessCom: 1}, agg.AnomaliesByPlatform())
}

func TestAggregatorOrderIndependent(t *testing.T) {
	chess := newFakeAdapter(domain.PlatformChessCom)
	registry := newRegistry(chess)

	type entry struct {
		username, handle string
		game             domain.GameRecord
	}
	var feed []entry
	for _, g := range record(domain.PlatformChessCom, "alice_cc", "bob_cc", 4, 3, day.Add(time.Hour)) {
		feed = append(feed, entry{"alice", "alice_cc", g}, entry{"bob", "bob_cc", g})
	}

	fold := func(items []entry) []domain.PlayerDayStats {
		agg := NewAggregator(players, DayWindow(day), registry, nop())
		for _, e := range items {
			agg.Add(e.username, e.handle, e.game)
		}
		return agg.Stats()
	}

	want := fold(feed)
	assert.Equal(t, 4, want[0].Wins)
	assert.Equal(t, 3, want[1].Wins, "the same game is counted from each side")

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		shuffled := append([]entry(nil), feed...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, fold(shuffled))
	}
}
