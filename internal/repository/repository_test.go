package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"chess-champ-bot/internal/database"
	"chess-champ-bot/internal/db"
	"chess-champ-bot/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*sql.DB, *db.Queries) {
	t.Helper()
	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "bot.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB, db.New(sqlDB)
}

func TestPlayerRepositoryUpsertLinksSecondPlatform(t *testing.T) {
	sqlDB, queries := newTestDB(t)
	repo := NewPlayerRepository(sqlDB, queries, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, domain.PlayerIdentity{Username: "alice", ChessCom: "AliceCC"}))
	require.NoError(t, repo.Upsert(ctx, domain.PlayerIdentity{Username: "alice", Lichess: "alice_li"}))

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "AliceCC", got.ChessCom)
	assert.Equal(t, "alice_li", got.Lichess)

	// username lookups ignore case
	got, err = repo.Get(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestPlayerRepositoryGetMissing(t *testing.T) {
	sqlDB, queries := newTestDB(t)
	repo := NewPlayerRepository(sqlDB, queries, zerolog.Nop())

	_, err := repo.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlayerRepositoryListSkipsEmptyIdentities(t *testing.T) {
	sqlDB, queries := newTestDB(t)
	repo := NewPlayerRepository(sqlDB, queries, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, domain.PlayerIdentity{Username: "bob", Lichess: "bobby"}))
	require.NoError(t, repo.Upsert(ctx, domain.PlayerIdentity{Username: "ghost"}))
	require.NoError(t, repo.Upsert(ctx, domain.PlayerIdentity{Username: "alice", ChessCom: "ali"}))

	players, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "alice", players[0].Username)
	assert.Equal(t, "bob", players[1].Username)
}

func threePlaceRecord(date string) domain.DailyChampionRecord {
	return domain.DailyChampionRecord{
		Date:   date,
		First:  domain.Placement{Username: "alice", Points: 300, WinRate: 100},
		Second: &domain.Placement{Username: "bob", Points: 200, WinRate: 80},
		Third:  &domain.Placement{Username: "carol", Points: 100, WinRate: 60},
	}
}

func TestChampionRepositoryAwardCreditsScores(t *testing.T) {
	sqlDB, queries := newTestDB(t)
	champions := NewChampionRepository(sqlDB, queries, zerolog.Nop())
	scores := NewScoreRepository(queries, zerolog.Nop())
	ctx := context.Background()

	record, created, err := champions.Award(ctx, threePlaceRecord("2024-03-10"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, record.ID)

	for name, want := range map[string]int{"alice": 300, "bob": 200, "carol": 100, "dave": 0} {
		got, err := scores.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	stored, err := champions.GetByDate(ctx, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, record.ID, stored.ID)
	require.NotNil(t, stored.Third)
	assert.Equal(t, "carol", stored.Third.Username)
	assert.InDelta(t, 60.0, stored.Third.WinRate, 1e-9)
}

func TestChampionRepositoryAwardIsIdempotent(t *testing.T) {
	sqlDB, queries := newTestDB(t)
	champions := NewChampionRepository(sqlDB, queries, zerolog.Nop())
	scores := NewScoreRepository(queries, zerolog.Nop())
	ctx := context.Background()

	first, created, err := champions.Award(ctx, threePlaceRecord("2024-03-10"))
	require.NoError(t, err)
	require.True(t, created)

	other := threePlaceRecord("2024-03-10")
	other.First.Username = "mallory"
	second, created, err := champions.Award(ctx, other)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice", second.First.Username)

	total, err := scores.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 300, total)
	total, err = scores.Get(ctx, "mallory")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestChampionRepositoryAwardConcurrent(t *testing.T) {
	sqlDB, queries := newTestDB(t)
	champions := NewChampionRepository(sqlDB, queries, zerolog.Nop())
	scores := NewScoreRepository(queries, zerolog.Nop())
	ctx := context.Background()

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[string]struct{}{}
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, ok, err := champions.Award(ctx, threePlaceRecord("2024-03-11"))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				created++
			}
			ids[record.ID] = struct{}{}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)

	total, err := scores.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 300, total)
}

func TestChampionRepositoryPartialPodium(t *testing.T) {
	sqlDB, queries := newTestDB(t)
	champions := NewChampionRepository(sqlDB, queries, zerolog.Nop())
	ctx := context.Background()

	_, _, err := champions.Award(ctx, domain.DailyChampionRecord{
		Date:  "2024-03-12",
		First: domain.Placement{Username: "solo", Points: 300, WinRate: 75},
	})
	require.NoError(t, err)

	stored, err := champions.GetByDate(ctx, "2024-03-12")
	require.NoError(t, err)
	assert.Nil(t, stored.Second)
	assert.Nil(t, stored.Third)
	assert.Len(t, stored.Placements(), 1)
}

func TestChampionRepositoryRecentAndScoresOrdering(t *testing.T) {
	sqlDB, queries := newTestDB(t)
	champions := NewChampionRepository(sqlDB, queries, zerolog.Nop())
	scores := NewScoreRepository(queries, zerolog.Nop())
	ctx := context.Background()

	for _, date := range []string{"2024-03-01", "2024-03-03", "2024-03-02"} {
		_, _, err := champions.Award(ctx, threePlaceRecord(date))
		require.NoError(t, err)
	}

	recent, err := champions.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2024-03-03", recent[0].Date)
	assert.Equal(t, "2024-03-02", recent[1].Date)

	list, err := scores.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alice", list[0].Username)
	assert.Equal(t, 900, list[0].TotalScore)
	assert.Equal(t, "carol", list[2].Username)
}

func TestChampionRepositoryGetMissing(t *testing.T) {
	sqlDB, queries := newTestDB(t)
	champions := NewChampionRepository(sqlDB, queries, zerolog.Nop())

	_, err := champions.GetByDate(context.Background(), "2024-01-01")
	assert.ErrorIs(t, err, ErrNotFound)
}
