// Package bot turns Telegram updates into service calls and canned replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"chess-champ-bot/internal/api"
	"chess-champ-bot/internal/constants"
	"chess-champ-bot/internal/domain"
	"chess-champ-bot/internal/metrics"
	"chess-champ-bot/internal/service"

	"github.com/rs/zerolog"
)

type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Leaderboards interface {
	Compute(ctx context.Context, window service.Window) (*service.Leaderboard, error)
}

type Championships interface {
	Standings(ctx context.Context) ([]domain.CumulativeScore, error)
	RecentChampions(ctx context.Context, limit int) ([]domain.DailyChampionRecord, error)
}

type Profiles interface {
	Lookup(ctx context.Context, sender, query string) (*service.Profile, error)
}

type HeadToHeads interface {
	Compare(ctx context.Context, a, b string, now time.Time) (*service.HeadToHead, error)
}

type Registrations interface {
	Start(ctx context.Context, sender service.Sender) ([]string, error)
	Handle(ctx context.Context, sender service.Sender, text string) ([]string, bool, error)
}

type Handler struct {
	messenger     Messenger
	leaderboards  Leaderboards
	championships Championships
	profiles      Profiles
	headToHead    HeadToHeads
	registration  Registrations
	metrics       *metrics.Metrics
	now           func() time.Time
	logger        zerolog.Logger
}

func NewHandler(
	telegram *api.TelegramClient,
	leaderboards *service.LeaderboardService,
	championships *service.ChampionshipService,
	profiles *service.ProfileService,
	headToHead *service.HeadToHeadService,
	registration *service.RegistrationService,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Handler {
	return newHandler(telegram, leaderboards, championships, profiles, headToHead, registration, m, logger)
}

func newHandler(
	messenger Messenger,
	leaderboards Leaderboards,
	championships Championships,
	profiles Profiles,
	headToHead HeadToHeads,
	registration Registrations,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		messenger:     messenger,
		leaderboards:  leaderboards,
		championships: championships,
		profiles:      profiles,
		headToHead:    headToHead,
		registration:  registration,
		metrics:       m,
		now:           time.Now,
		logger:        logger,
	}
}

// command is a parsed "/name@bot arg1 arg2" message.
type command struct {
	name string
	args []string
}

func parseCommand(text string) (command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return command{}, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return command{name: strings.ToLower(name), args: fields[1:]}, true
}

func (c command) arg(i int) string {
	if i < len(c.args) {
		return c.args[i]
	}
	return ""
}

// HandleUpdate processes one webhook update and sends the replies. Errors are
// for logging only; the user always gets canned text.
func (h *Handler) HandleUpdate(ctx context.Context, update api.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot || strings.TrimSpace(msg.Text) == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	sender := service.Sender{ID: msg.From.ID, Username: msg.From.Username}
	log := h.logger.With().
		Int64("update_id", update.UpdateID).
		Int64("chat_id", msg.Chat.ID).
		Int64("user_id", sender.ID).
		Logger()

	cmd, isCommand := parseCommand(msg.Text)
	var (
		replies []string
		err     error
	)
	if isCommand {
		replies, err = h.dispatch(ctx, cmd, sender, msg)
		if replies != nil {
			h.metrics.Commands.WithLabelValues(cmd.name).Inc()
		}
	} else {
		replies, _, err = h.registration.Handle(ctx, sender, msg.Text)
	}

	if err != nil {
		log.Error().Err(err).Str("command", cmd.name).Msg("failed to handle message")
		if len(replies) == 0 {
			replies = []string{msgGenericError}
		}
	}

	for _, text := range replies {
		if sendErr := h.messenger.SendMessage(ctx, msg.Chat.ID, text); sendErr != nil {
			log.Error().Err(sendErr).Msg("failed to send reply")
			return fmt.Errorf("failed to send reply: %w", sendErr)
		}
	}
	return err
}

// dispatch returns nil replies for commands the bot does not know, so other
// bots' commands in group chats stay unanswered.
func (h *Handler) dispatch(ctx context.Context, cmd command, sender service.Sender, msg *api.Message) ([]string, error) {
	switch cmd.name {
	case "start":
		return h.registration.Start(ctx, sender)
	case "help":
		return []string{helpText()}, nil
	case "stats":
		return h.stats(ctx, sender, cmd)
	case "top":
		return h.top(ctx, cmd)
	case "score":
		return h.score(ctx, msg)
	case "standings":
		return h.standings(ctx, cmd)
	}
	return nil, nil
}

func (h *Handler) stats(ctx context.Context, sender service.Sender, cmd command) ([]string, error) {
	query := cmd.arg(0)
	if query == "" && sender.Username == "" {
		return []string{msgStatsUsage}, nil
	}

	profile, err := h.profiles.Lookup(ctx, sender.Username, query)
	if errors.Is(err, service.ErrNotRegistered) {
		return []string{msgStatsUsage}, nil
	}
	if err != nil {
		return []string{msgStatsError}, err
	}
	return []string{formatProfile(profile)}, nil
}

// topWindow maps a /top option to its window. ok is false for help and
// unknown options.
func topWindow(option string, now time.Time) (key string, window service.Window, ok bool) {
	switch option {
	case "", "bugun", "today":
		return "day", service.DayWindow(now), true
	case "month":
		return "month", service.MonthWindow(now), true
	}
	if speed, isSpeed := domain.ParseSpeed(option); isSpeed {
		return option, service.MonthWindow(now).WithSpeed(speed), true
	}
	return "", service.Window{}, false
}

func (h *Handler) top(ctx context.Context, cmd command) ([]string, error) {
	key, window, ok := topWindow(strings.ToLower(cmd.arg(0)), h.now())
	if !ok {
		return []string{topHelp()}, nil
	}

	board, err := h.leaderboards.Compute(ctx, window)
	if err != nil {
		return []string{msgTopError}, err
	}
	return []string{formatLeaderboard(key, board)}, nil
}

// mentions returns the @usernames in msg, read from the entities Telegram
// attached. Entity offsets count UTF-16 code units.
func mentions(msg *api.Message) []string {
	units := utf16.Encode([]rune(msg.Text))

	var out []string
	for _, e := range msg.Entities {
		if e.Type != "mention" || e.Offset < 0 || e.Length < 2 || e.Offset+e.Length > len(units) {
			continue
		}
		out = append(out, string(utf16.Decode(units[e.Offset+1:e.Offset+e.Length])))
	}
	if len(out) > 0 {
		return out
	}

	// clients that omit entities
	cmd, _ := parseCommand(msg.Text)
	for _, a := range cmd.args {
		if strings.HasPrefix(a, "@") && len(a) > 1 {
			out = append(out, a[1:])
		}
	}
	return out
}

func (h *Handler) score(ctx context.Context, msg *api.Message) ([]string, error) {
	names := mentions(msg)
	if len(names) != 2 {
		return []string{msgScoreUsage}, nil
	}

	result, err := h.headToHead.Compare(ctx, names[0], names[1], h.now())
	var nre *service.NotRegisteredError
	if errors.As(err, &nre) {
		return []string{fmt.Sprintf(
			"⚠️ %s haven't registered a chess username yet. They should use /start first.",
			"@"+strings.Join(nre.Usernames, ", @"),
		)}, nil
	}
	if err != nil {
		return []string{msgScoreError}, err
	}
	return []string{formatHeadToHead(result)}, nil
}

func (h *Handler) standings(ctx context.Context, cmd command) ([]string, error) {
	switch strings.ToLower(cmd.arg(0)) {
	case "recent", "champions":
		records, err := h.championships.RecentChampions(ctx, constants.RecentChampionLimit)
		if err != nil {
			return []string{msgStandingsError}, err
		}
		return []string{formatRecentChampions(records)}, nil
	}

	scores, err := h.championships.Standings(ctx)
	if err != nil {
		return []string{msgStandingsError}, err
	}
	return []string{formatStandings(scores)}, nil
}

const (
	msgGenericError   = "🚨 Something went wrong. Please try again later."
	msgStatsUsage     = "⚠️ Please provide a Chess.com username or register using /start first."
	msgStatsError     = "🚨 Error while fetching stats."
	msgTopError       = "🚨 Error generating leaderboard. Type /top help to see available commands."
	msgScoreUsage     = "⚠️ Please mention exactly two users to compare their head-to-head scores.\nExample: /score @user1 @user2"
	msgScoreError     = "🚨 Error fetching head-to-head stats."
	msgStandingsError = "🚨 Error retrieving championship standings. Please try again later."
)
