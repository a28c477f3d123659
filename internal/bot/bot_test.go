package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"chess-champ-bot/internal/api"
	"chess-champ-bot/internal/domain"
	"chess-champ-bot/internal/metrics"
	"chess-champ-bot/internal/service"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	chatID int64
	text   string
}

type fakeMessenger struct {
	sent []sent
	err  error
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{chatID, text})
	return nil
}

type fakeLeaderboards struct {
	board   *service.Leaderboard
	err     error
	windows []service.Window
}

func (f *fakeLeaderboards) Compute(_ context.Context, window service.Window) (*service.Leaderboard, error) {
	f.windows = append(f.windows, window)
	if f.err != nil {
		return nil, f.err
	}
	b := *f.board
	b.Window = window
	return &b, nil
}

type fakeChampionships struct {
	scores  []domain.CumulativeScore
	records []domain.DailyChampionRecord
	limit   int
}

func (f *fakeChampionships) Standings(context.Context) ([]domain.CumulativeScore, error) {
	return f.scores, nil
}

func (f *fakeChampionships) RecentChampions(_ context.Context, limit int) ([]domain.DailyChampionRecord, error) {
	f.limit = limit
	return f.records, nil
}

type fakeProfiles struct {
	profile *service.Profile
	err     error
	queries []string
}

func (f *fakeProfiles) Lookup(_ context.Context, sender, query string) (*service.Profile, error) {
	f.queries = append(f.queries, sender+"|"+query)
	return f.profile, f.err
}

type fakeHeadToHead struct {
	result *service.HeadToHead
	err    error
	pairs  [][2]string
}

func (f *fakeHeadToHead) Compare(_ context.Context, a, b string, _ time.Time) (*service.HeadToHead, error) {
	f.pairs = append(f.pairs, [2]string{a, b})
	return f.result, f.err
}

type fakeRegistration struct {
	started []service.Sender
	texts   []string
	handled bool
}

func (f *fakeRegistration) Start(_ context.Context, sender service.Sender) ([]string, error) {
	f.started = append(f.started, sender)
	return []string{"welcome", "choose"}, nil
}

func (f *fakeRegistration) Handle(_ context.Context, _ service.Sender, text string) ([]string, bool, error) {
	f.texts = append(f.texts, text)
	if !f.handled {
		return nil, false, nil
	}
	return []string{"ok: " + text}, true, nil
}

type fixture struct {
	messenger     *fakeMessenger
	leaderboards  *fakeLeaderboards
	championships *fakeChampionships
	profiles      *fakeProfiles
	headToHead    *fakeHeadToHead
	registration  *fakeRegistration
	metrics       *metrics.Metrics
	handler       *Handler
}

var now = time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		messenger:     &fakeMessenger{},
		leaderboards:  &fakeLeaderboards{board: &service.Leaderboard{Players: 1}},
		championships: &fakeChampionships{},
		profiles:      &fakeProfiles{},
		headToHead:    &fakeHeadToHead{},
		registration:  &fakeRegistration{},
		metrics:       metrics.New(),
	}
	f.handler = newHandler(f.messenger, f.leaderboards, f.championships, f.profiles, f.headToHead, f.registration, f.metrics, zerolog.Nop())
	f.handler.now = func() time.Time { return now }
	return f
}

func message(text string, entities ...api.MessageEntity) api.Update {
	return api.Update{
		UpdateID: 1,
		Message: &api.Message{
			From:     &api.User{ID: 42, Username: "alice"},
			Chat:     api.Chat{ID: -100, Type: "group"},
			Text:     text,
			Entities: entities,
		},
	}
}

func (f *fixture) send(t *testing.T, update api.Update) []string {
	t.Helper()
	require.NoError(t, f.handler.HandleUpdate(context.Background(), update))
	var out []string
	for _, s := range f.messenger.sent {
		assert.Equal(t, int64(-100), s.chatID)
		out = append(out, s.text)
	}
	return out
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		want command
		ok   bool
	}{
		{text: "/top", want: command{name: "top", args: []string{}}, ok: true},
		{text: "/TOP@ChessChampBot  blitz ", want: command{name: "top", args: []string{"blitz"}}, ok: true},
		{text: "/score @a @b", want: command{name: "score", args: []string{"@a", "@b"}}, ok: true},
		{text: "magnus", ok: false},
		{text: "   ", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := parseCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want.name, got.name)
				assert.Equal(t, tt.want.args, got.args)
			}
		})
	}
}

func TestTopDefaultsToToday(t *testing.T) {
	f := newFixture()
	f.leaderboards.board.Entries = service.Rank([]domain.PlayerDayStats{
		{Username: "alice", Wins: 5, TotalGames: 5, WinRate: 100, WeightedScore: 223.6},
		{Username: "bob", Wins: 4, Losses: 1, TotalGames: 5, WinRate: 80, WeightedScore: 178.9},
		{Username: "carol", Wins: 3, Losses: 2, TotalGames: 5, WinRate: 60, WeightedScore: 134.2},
		{Username: "dave", Wins: 2, Losses: 3, TotalGames: 5, WinRate: 40, WeightedScore: 89.4},
	})

	replies := f.send(t, message("/top"))
	require.Len(t, replies, 1)

	require.Len(t, f.leaderboards.windows, 1)
	assert.Equal(t, service.WindowDay, f.leaderboards.windows[0].Kind)
	assert.Equal(t, "2024-03-10", f.leaderboards.windows[0].DateKey)

	text := replies[0]
	assert.Contains(t, text, "Today's Leaderboard")
	assert.Contains(t, text, "🥇 alice: 100.0% (W: 5 L: 0)")
	assert.Contains(t, text, "🥈 bob: 80.0% (W: 4 L: 1)")
	assert.Contains(t, text, "🥉 carol: 60.0%")
	assert.Contains(t, text, "4. dave: 40.0%")
	assert.Contains(t, text, topFooter)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Commands.WithLabelValues("top")))
}

func TestTopOptions(t *testing.T) {
	tests := []struct {
		option string
		kind   service.WindowKind
		speed  domain.Speed
	}{
		{option: "bugun", kind: service.WindowDay},
		{option: "today", kind: service.WindowDay},
		{option: "month", kind: service.WindowMonth},
		{option: "Blitz", kind: service.WindowMonth, speed: domain.SpeedBlitz},
		{option: "bullet", kind: service.WindowMonth, speed: domain.SpeedBullet},
		{option: "rapid", kind: service.WindowMonth, speed: domain.SpeedRapid},
	}

	for _, tt := range tests {
		t.Run(tt.option, func(t *testing.T) {
			f := newFixture()
			f.send(t, message("/top "+tt.option))

			require.Len(t, f.leaderboards.windows, 1)
			assert.Equal(t, tt.kind, f.leaderboards.windows[0].Kind)
			assert.Equal(t, tt.speed, f.leaderboards.windows[0].Speed)
		})
	}
}

func TestTopHelpAndUnknownOption(t *testing.T) {
	for _, option := range []string{"help", "weekly"} {
		f := newFixture()
		replies := f.send(t, message("/top "+option))
		require.Len(t, replies, 1)
		assert.Contains(t, replies[0], "Available /top commands")
		assert.Empty(t, f.leaderboards.windows)
	}
}

func TestTopNoQualifiers(t *testing.T) {
	f := newFixture()

	replies := f.send(t, message("/top bullet"))
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "No qualifying players found for bullet games this month")
}

func TestTopComputeError(t *testing.T) {
	f := newFixture()
	f.leaderboards.err = errors.New("db locked")

	err := f.handler.HandleUpdate(context.Background(), message("/top"))
	assert.Error(t, err)
	require.Len(t, f.messenger.sent, 1)
	assert.Equal(t, msgTopError, f.messenger.sent[0].text)
}

func TestScoreReadsMentionEntities(t *testing.T) {
	f := newFixture()
	f.headToHead.result = &service.HeadToHead{
		A: "alice", B: "bob", Month: "2024-03",
		Platforms: []service.PlatformRecord{{
			Platform: domain.PlatformChessCom, HandleA: "a_cc", HandleB: "b_cc",
			Games: 3, WinsA: 2, WinsB: 1, LastGameURL: "https://www.chess.com/game/live/1",
		}},
	}

	// the emoji is two UTF-16 code units
	text := "/score 🔥 @alice @bob"
	replies := f.send(t, message(text,
		api.MessageEntity{Type: "bot_command", Offset: 0, Length: 6},
		api.MessageEntity{Type: "mention", Offset: 10, Length: 6},
		api.MessageEntity{Type: "mention", Offset: 17, Length: 4},
	))

	assert.Equal(t, [][2]string{{"alice", "bob"}}, f.headToHead.pairs)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "@alice wins: 2")
	assert.Contains(t, replies[0], "@bob wins: 1")
	assert.Contains(t, replies[0], "Last game: https://www.chess.com/game/live/1")
}

func TestScoreWithoutEntities(t *testing.T) {
	f := newFixture()
	f.headToHead.result = &service.HeadToHead{A: "alice", B: "bob", Month: "2024-03"}

	replies := f.send(t, message("/score @alice @bob"))
	assert.Equal(t, [][2]string{{"alice", "bob"}}, f.headToHead.pairs)
	assert.Equal(t, []string{"📊 No games found between @alice and @bob this month."}, replies)
}

func TestScoreUsage(t *testing.T) {
	f := newFixture()

	replies := f.send(t, message("/score @alice"))
	assert.Equal(t, []string{msgScoreUsage}, replies)
	assert.Empty(t, f.headToHead.pairs)
}

func TestScoreNotRegistered(t *testing.T) {
	f := newFixture()
	f.headToHead.err = &service.NotRegisteredError{Usernames: []string{"bob"}}

	replies := f.send(t, message("/score @alice @bob"))
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "@bob haven't registered")
}

func TestStatsNotRegistered(t *testing.T) {
	f := newFixture()
	f.profiles.err = service.ErrNotRegistered

	replies := f.send(t, message("/stats"))
	assert.Equal(t, []string{msgStatsUsage}, replies)
	assert.Equal(t, []string{"alice|"}, f.profiles.queries)
}

func TestStatsFormatsBothPlatforms(t *testing.T) {
	f := newFixture()
	blitz := 3200
	f.profiles.profile = &service.Profile{
		Username: "alice",
		ChessCom: &service.Ratings{Handle: "magnus", Blitz: &blitz},
		Lichess:  &service.Ratings{Handle: "DrNykterstein", Unavailable: true},
	}

	replies := f.send(t, message("/stats @alice"))
	require.Len(t, replies, 1)
	assert.Equal(t, []string{"alice|@alice"}, f.profiles.queries)
	assert.Contains(t, replies[0], "📊 Stats for @alice:")
	assert.Contains(t, replies[0], "⚡ Blitz: 3200")
	assert.Contains(t, replies[0], "♟ Rapid: N/A")
	assert.Contains(t, replies[0], "♟️ Lichess (DrNykterstein)\n⚠️ Could not fetch stats.")
}

func TestStandings(t *testing.T) {
	f := newFixture()
	f.championships.scores = []domain.CumulativeScore{
		{Username: "alice", TotalScore: 900},
		{Username: "bob", TotalScore: 500},
		{Username: "carol", TotalScore: 300},
		{Username: "dave", TotalScore: 100},
	}

	replies := f.send(t, message("/standings"))
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "🥇 alice: 900 points")
	assert.Contains(t, replies[0], "4️⃣ dave: 100 points")
}

func TestStandingsRecent(t *testing.T) {
	f := newFixture()
	f.championships.records = []domain.DailyChampionRecord{{
		Date:   "2024-03-09",
		First:  domain.Placement{Username: "alice", Points: 300, WinRate: 100},
		Second: &domain.Placement{Username: "bob", Points: 200, WinRate: 75},
	}}

	replies := f.send(t, message("/standings champions"))
	require.Len(t, replies, 1)
	assert.Equal(t, 7, f.championships.limit)
	assert.Contains(t, replies[0], "📅 Mar 9:\n🥇 alice (100.0%)\n🥈 bob (75.0%)")
	assert.NotContains(t, replies[0], "🥉")
}

func TestStartAndFreeText(t *testing.T) {
	f := newFixture()

	replies := f.send(t, message("/start"))
	assert.Equal(t, []string{"welcome", "choose"}, replies)
	assert.Equal(t, []service.Sender{{ID: 42, Username: "alice"}}, f.registration.started)

	f.messenger.sent = nil
	f.registration.handled = true
	replies = f.send(t, message("magnus"))
	assert.Equal(t, []string{"ok: magnus"}, replies)
}

func TestIgnoresUnknownAndUnhandled(t *testing.T) {
	f := newFixture()

	assert.Empty(t, f.send(t, message("/weather")))
	assert.Empty(t, f.send(t, message("just chatting")))
	assert.Equal(t, []string{"just chatting"}, f.registration.texts)
	assert.Empty(t, f.send(t, api.Update{}))
}

func TestSendFailureIsReturned(t *testing.T) {
	f := newFixture()
	f.messenger.err = errors.New("403 blocked")

	err := f.handler.HandleUpdate(context.Background(), message("/help"))
	assert.ErrorContains(t, err, "403 blocked")
}

func TestAnnouncer(t *testing.T) {
	res := &service.DailyResult{
		Date: "2024-03-10",
		Standings: []domain.StandingsEntry{
			{PlayerDayStats: domain.PlayerDayStats{Username: "alice", Wins: 5, TotalGames: 5, WinRate: 100}, Rank: 1},
			{PlayerDayStats: domain.PlayerDayStats{Username: "bob", Wins: 3, Losses: 1, TotalGames: 4, WinRate: 75}, Rank: 2},
		},
		Record: &domain.DailyChampionRecord{
			Date:   "2024-03-10",
			First:  domain.Placement{Username: "alice", Points: 300, WinRate: 100},
			Second: &domain.Placement{Username: "bob", Points: 200, WinRate: 75},
		},
		Created: true,
	}

	t.Run("posts to configured chat", func(t *testing.T) {
		m := &fakeMessenger{}
		text, err := newAnnouncer(m, -555, zerolog.Nop()).Announce(context.Background(), res)
		require.NoError(t, err)

		assert.Contains(t, text, "🏆 DAILY CHAMPIONSHIP RESULTS - March 10, 2024")
		assert.Contains(t, text, "🥇 CHAMPION: alice\n   Win Rate: 100.0% (5W-0L)\n   Awarded: +300 points 🎉")
		assert.Contains(t, text, "🥈 Runner-up: bob\n   Win Rate: 75.0% (3W-1L)\n   Awarded: +200 points")
		assert.NotContains(t, text, "Third place")
		assert.Contains(t, text, "Total qualifying players: 2")
		assert.Equal(t, []sent{{-555, text}}, m.sent)
	})

	t.Run("renders only without chat", func(t *testing.T) {
		m := &fakeMessenger{}
		text, err := newAnnouncer(m, 0, zerolog.Nop()).Announce(context.Background(), res)
		require.NoError(t, err)
		assert.NotEmpty(t, text)
		assert.Empty(t, m.sent)
	})

	t.Run("send failure keeps text", func(t *testing.T) {
		m := &fakeMessenger{err: errors.New("timeout")}
		text, err := newAnnouncer(m, 1, zerolog.Nop()).Announce(context.Background(), res)
		assert.Error(t, err)
		assert.NotEmpty(t, text)
	})
}
