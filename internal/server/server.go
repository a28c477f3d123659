package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"chess-champ-bot/internal/api"
	"chess-champ-bot/internal/bot"
	"chess-champ-bot/internal/config"
	"chess-champ-bot/internal/constants"
	"chess-champ-bot/internal/domain"
	"chess-champ-bot/internal/localtime"
	"chess-champ-bot/internal/metrics"
	"chess-champ-bot/internal/middleware"
	"chess-champ-bot/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update api.Update) error
}

type Championship interface {
	RunDaily(ctx context.Context, now time.Time) (*service.DailyResult, error)
	Standings(ctx context.Context) ([]domain.CumulativeScore, error)
	RecentChampions(ctx context.Context, limit int) ([]domain.DailyChampionRecord, error)
}

type Leaderboards interface {
	Compute(ctx context.Context, window service.Window) (*service.Leaderboard, error)
}

type Server struct {
	updates       UpdateHandler
	championship  Championship
	leaderboards  Leaderboards
	metrics       *metrics.Metrics
	cronSecret    string
	webhookSecret string
	limiter       *middleware.IPRateLimiter
	now           func() time.Time
	logger        zerolog.Logger
}

func NewServer(
	cfg *config.Config,
	handler *bot.Handler,
	championship *service.ChampionshipService,
	leaderboards *service.LeaderboardService,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	return newServer(cfg, handler, championship, leaderboards, m, logger)
}

func newServer(
	cfg *config.Config,
	updates UpdateHandler,
	championship Championship,
	leaderboards Leaderboards,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	return &Server{
		updates:       updates,
		championship:  championship,
		leaderboards:  leaderboards,
		metrics:       m,
		cronSecret:    cfg.CronSecret,
		webhookSecret: cfg.TelegramWebhookSecret,
		limiter:       middleware.NewIPRateLimiter(rate.Limit(constants.PublicAPIRateLimit), constants.PublicAPIBurst),
		now:           time.Now,
		logger:        logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(s.logger))
	r.Use(chimw.Recoverer)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.With(middleware.WebhookSecret(s.webhookSecret)).Post("/telegram/webhook", s.webhook)

	r.Route("/cron", func(r chi.Router) {
		r.Use(middleware.CronAuth(s.cronSecret, s.logger))
		r.Get("/daily-championship", s.dailyChampionship)
		r.Post("/daily-championship", s.dailyChampionship)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(c.Handler)
		r.Use(middleware.RateLimit(s.limiter))
		r.Get("/standings", s.standings)
		r.Get("/champions", s.champions)
		r.Get("/leaderboard", s.leaderboard)
	})

	return r
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	var update api.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Warn().Err(err).Msg("invalid telegram update")
		writeError(w, http.StatusBadRequest, "invalid update")
		return
	}

	// Telegram redelivers on non-2xx, so failures are logged and acknowledged.
	if err := s.updates.HandleUpdate(r.Context(), update); err != nil {
		log.Error().Err(err).Int64("update_id", update.UpdateID).Msg("failed to handle update")
	}
	w.WriteHeader(http.StatusOK)
}

type dailyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*service.DailyResult
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) dailyChampionship(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	now := s.now()

	log.Info().Time("now", now).Str("user_agent", r.UserAgent()).Msg("daily championship triggered")

	// runs to completion even if the scheduler disconnects
	result, err := s.championship.RunDaily(context.WithoutCancel(r.Context()), now)
	if err != nil {
		log.Error().Err(err).Msg("daily championship failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := dailyResponse{Success: true, DailyResult: result, Timestamp: now.UTC()}
	switch {
	case result.Record == nil:
		resp.Message = "No qualifying players today"
	case result.Created:
		resp.Message = "Daily championship processed successfully"
	default:
		resp.Message = "Daily championship already awarded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) standings(w http.ResponseWriter, r *http.Request) {
	scores, err := s.championship.Standings(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load standings")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if scores == nil {
		scores = []domain.CumulativeScore{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"standings": scores})
}

func (s *Server) champions(w http.ResponseWriter, r *http.Request) {
	limit := constants.RecentChampionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > constants.StandingsPageLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		limit = n
	}

	records, err := s.championship.RecentChampions(r.Context(), limit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load champions")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if records == nil {
		records = []domain.DailyChampionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"champions": records})
}

type leaderboardResponse struct {
	Period  string                  `json:"period"`
	Date    string                  `json:"date,omitempty"`
	Speed   domain.Speed            `json:"speed,omitempty"`
	Players int                     `json:"players"`
	Entries []domain.StandingsEntry `json:"entries"`
	Report  service.FetchReport     `json:"report"`
}

var errBadQuery = errors.New("bad query")

func (s *Server) window(r *http.Request) (service.Window, error) {
	q := r.URL.Query()
	now := s.now()

	var window service.Window
	switch q.Get("period") {
	case "", "day":
		at := now
		if key := q.Get("date"); key != "" {
			t, err := localtime.ParseDateKey(key)
			if err != nil {
				return window, errBadQuery
			}
			at = t
		}
		window = service.DayWindow(at)
	case "month":
		window = service.MonthWindow(now)
	default:
		return window, errBadQuery
	}

	if v := q.Get("speed"); v != "" {
		speed, ok := domain.ParseSpeed(v)
		if !ok {
			return window, errBadQuery
		}
		window = window.WithSpeed(speed)
	}
	return window, nil
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	window, err := s.window(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "period must be day or month, date YYYY-MM-DD, speed bullet|blitz|rapid")
		return
	}

	board, err := s.leaderboards.Compute(r.Context(), window)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to compute leaderboard")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	entries := board.Entries
	if entries == nil {
		entries = []domain.StandingsEntry{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		Period:  string(window.Kind),
		Date:    window.DateKey,
		Speed:   window.Speed,
		Players: board.Players,
		Entries: entries,
		Report:  board.Report,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
