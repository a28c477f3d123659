package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"chess-champ-bot/internal/constants"
	"chess-champ-bot/internal/domain"
	"chess-champ-bot/internal/repository"
	"chess-champ-bot/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type HandleVerifier interface {
	Exists(ctx context.Context, p domain.Platform, handle string) (bool, error)
}

// Sender identifies the Telegram user talking to the bot.
type Sender struct {
	ID       int64
	Username string
}

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// handle length limits per platform
var handleRules = map[domain.Platform]string{
	domain.PlatformChessCom: "min=3,max=25,handle",
	domain.PlatformLichess:  "min=3,max=20,handle",
}

var (
	yesAnswers = []string{"ҳа", "бале", "yes", "y", "ha", "bale"}
	noAnswers  = []string{"не", "нест", "no", "n", "ne", "nest"}
)

// RegistrationService drives the /start dialogue. Dialogue state lives in the
// session store, keyed by Telegram user id.
type RegistrationService struct {
	sessions session.Store
	players  PlayerStore
	verifier HandleVerifier
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewRegistrationService(sessions session.Store, players PlayerStore, verifier HandleVerifier, logger zerolog.Logger) *RegistrationService {
	v := validator.New()
	_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return handlePattern.MatchString(fl.Field().String())
	})
	return &RegistrationService{
		sessions: sessions,
		players:  players,
		verifier: verifier,
		validate: v,
		logger:   logger,
	}
}

// Start opens a dialogue for sender, carrying over any handles already
// linked.
func (s *RegistrationService) Start(ctx context.Context, sender Sender) ([]string, error) {
	if sender.Username == "" {
		return []string{msgNoTelegramUsername}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	sess := domain.RegistrationSession{
		UserID:   sender.ID,
		Username: sender.Username,
		Step:     domain.StepChoosePlatform,
	}

	existing, err := s.players.Get(ctx, sender.Username)
	switch {
	case err == nil:
		sess.ChessCom = existing.ChessCom
		sess.Lichess = existing.Lichess
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to load player %s: %w", sender.Username, err)
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", sender.ID).Str("username", sender.Username).Msg("registration started")

	msgs := []string{msgWelcome}
	if sess.ChessCom != "" || sess.Lichess != "" {
		msgs = append(msgs, registeredSummary(sess.Username, sess.ChessCom, sess.Lichess))
	}
	return append(msgs, msgChoosePlatform), nil
}

// Handle advances sender's dialogue with one free-text reply. handled is false
// when sender has no open dialogue.
func (s *RegistrationService) Handle(ctx context.Context, sender Sender, text string) (replies []string, handled bool, err error) {
	sess, err := s.sessions.Get(ctx, sender.ID)
	if err != nil {
		return nil, false, err
	}
	if sess == nil {
		return nil, false, nil
	}
	if sess.Username == "" {
		sess.Username = sender.Username
	}

	text = strings.TrimSpace(text)

	switch sess.Step {
	case domain.StepChoosePlatform:
		replies, err = s.choosePlatform(ctx, sess, text)
	case domain.StepChessComHandle:
		replies, err = s.linkHandle(ctx, sess, domain.PlatformChessCom, text)
	case domain.StepLichessHandle:
		replies, err = s.linkHandle(ctx, sess, domain.PlatformLichess, text)
	case domain.StepAdditionalPlatform:
		replies, err = s.additionalPlatform(ctx, sess, text)
	default:
		s.logger.Warn().Int64("user_id", sender.ID).Str("step", string(sess.Step)).Msg("unknown registration step, resetting")
		err = s.sessions.Delete(ctx, sender.ID)
		replies = []string{msgStartOver}
	}
	return replies, true, err
}

func (s *RegistrationService) choosePlatform(ctx context.Context, sess *domain.RegistrationSession, text string) ([]string, error) {
	switch strings.ToLower(text) {
	case "1", "chess.com", "chesscom":
		sess.Step = domain.StepChessComHandle
		return []string{msgChessComSelected}, s.sessions.Save(ctx, *sess)
	case "2", "lichess":
		sess.Step = domain.StepLichessHandle
		return []string{msgLichessSelected}, s.sessions.Save(ctx, *sess)
	}
	return []string{msgInvalidChoice}, nil
}

func (s *RegistrationService) linkHandle(ctx context.Context, sess *domain.RegistrationSession, p domain.Platform, handle string) ([]string, error) {
	if err := s.validate.Var(handle, handleRules[p]); err != nil {
		return []string{invalidHandle(p)}, nil
	}

	ok, err := s.verifier.Exists(ctx, p, handle)
	if err != nil {
		return []string{msgVerifyUnavailable}, nil
	}
	if !ok {
		return []string{fmt.Sprintf("❌ %s user \"%s\" not found. Please check the spelling and try again:", platformLabel(p), handle)}, nil
	}

	identity := domain.PlayerIdentity{Username: sess.Username}
	switch p {
	case domain.PlatformChessCom:
		sess.ChessCom = handle
		identity.ChessCom = handle
	case domain.PlatformLichess:
		sess.Lichess = handle
		identity.Lichess = handle
	}

	if err := s.players.Upsert(ctx, identity); err != nil {
		s.logger.Error().Err(err).Str("username", sess.Username).Str("platform", p.String()).Msg("registration failed")
		return []string{msgSaveFailed}, nil
	}

	s.logger.Info().
		Str("username", sess.Username).
		Str("platform", p.String()).
		Str("handle", handle).
		Msg("handle linked")

	replies := []string{msgSuccess + "\n\n" + registeredSummary(sess.Username, sess.ChessCom, sess.Lichess) + "\n\n" + msgNowYouCan}

	other := domain.PlatformLichess
	if p == domain.PlatformLichess {
		other = domain.PlatformChessCom
	}
	if sess.ChessCom != "" && sess.Lichess != "" {
		return replies, s.sessions.Delete(ctx, sess.UserID)
	}

	sess.Step = domain.StepAdditionalPlatform
	if err := s.sessions.Save(ctx, *sess); err != nil {
		return replies, err
	}
	return append(replies, fmt.Sprintf(
		"➕ Оё шумо мехоҳед %[1]s-ро низ илова кунед?\n➕ Would you like to also add %[1]s?\n\nҶавоб диҳед: ҳа/бале/yes ё не/нест/no",
		platformLabel(other),
	)), nil
}

func (s *RegistrationService) additionalPlatform(ctx context.Context, sess *domain.RegistrationSession, text string) ([]string, error) {
	answer := strings.ToLower(text)
	switch {
	case slices.Contains(yesAnswers, answer):
		if sess.ChessCom == "" {
			sess.Step = domain.StepChessComHandle
			return []string{msgEnterChessCom}, s.sessions.Save(ctx, *sess)
		}
		sess.Step = domain.StepLichessHandle
		return []string{msgEnterLichess}, s.sessions.Save(ctx, *sess)
	case slices.Contains(noAnswers, answer):
		return []string{msgDeclined}, s.sessions.Delete(ctx, sess.UserID)
	}
	return []string{msgYesOrNo}, nil
}

func platformLabel(p domain.Platform) string {
	if p == domain.PlatformChessCom {
		return "Chess.com"
	}
	return "Lichess"
}

func invalidHandle(p domain.Platform) string {
	limit := 25
	if p == domain.PlatformLichess {
		limit = 20
	}
	return fmt.Sprintf("❌ Invalid username. %s usernames must be 3-%d characters of letters, digits, _ or -. Please try again:", platformLabel(p), limit)
}

func registeredSummary(username, chessCom, lichess string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 Telegram: @%s", username)
	if chessCom != "" {
		fmt.Fprintf(&b, "\n♟️ Chess.com: %s", chessCom)
	}
	if lichess != "" {
		fmt.Fprintf(&b, "\n♟️ Lichess: %s", lichess)
	}
	return b.String()
}

const (
	msgNoTelegramUsername = "❌ Unable to get your Telegram username. Please set one in Telegram settings and try /start again."
	msgWelcome            = "👋 Хуш омадед! / Welcome!"
	msgChoosePlatform     = "Платформаро интихоб кунед / Choose your platform:\n\n1️⃣ Chess.com\n2️⃣ Lichess"
	msgChessComSelected   = "♟️ Chess.com танланди! / Chess.com selected!\n\nЛутфан номи корбарии Chess.com-и худро ворид кунед:\nPlease enter your Chess.com username:"
	msgLichessSelected    = "♟️ Lichess танланди! / Lichess selected!\n\nЛутфан номи корбарии Lichess-и худро ворид кунед:\nPlease enter your Lichess username:"
	msgInvalidChoice      = "❌ Интихоби нодуруст. Лутфан 1 ё 2-ро интихоб кунед:\n❌ Invalid choice. Please select 1 or 2:\n\n1️⃣ Chess.com\n2️⃣ Lichess"
	msgVerifyUnavailable  = "⚠️ Could not verify the username right now. Please try again in a moment:"
	msgSaveFailed         = "❌ Хатогӣ ҳангоми сабт. / Error during registration. Please try again later."
	msgSuccess            = "✅ Муваффақият! Шумо сабт шудед! / Success! You are registered!"
	msgNowYouCan          = "Ҳозир шумо метавонед:\nNow you can use:\n📊 /stats - Омори шахмат / View your chess statistics\n🏆 /top - Рейтинг / See leaderboards\n⚔️ /score @user1 @user2 - Муқоисаи бозигарон / Compare players"
	msgEnterChessCom      = "♟️ Лутфан номи корбарии Chess.com-и худро ворид кунед:\n♟️ Please enter your Chess.com username:"
	msgEnterLichess       = "♟️ Лутфан номи корбарии Lichess-и худро ворид кунед:\n♟️ Please enter your Lichess username:"
	msgDeclined           = "✅ Хуб! Шумо ҳар вақт метавонед платформаи дигарро бо /start илова кунед.\n✅ Great! You can always add the other platform later with /start."
	msgYesOrNo            = "❌ Лутфан ҳа/бале/yes ё не/нест/no ҷавоб диҳед:\n❌ Please answer yes or no:"
	msgStartOver          = "⚠️ Registration was reset. Please send /start to begin again."
)
