package fx

import (
	"database/sql"

	"chess-champ-bot/internal/api"
	"chess-champ-bot/internal/bot"
	"chess-champ-bot/internal/config"
	"chess-champ-bot/internal/database"
	"chess-champ-bot/internal/db"
	"chess-champ-bot/internal/logger"
	"chess-champ-bot/internal/metrics"
	"chess-champ-bot/internal/platform"
	"chess-champ-bot/internal/repository"
	"chess-champ-bot/internal/server"
	"chess-champ-bot/internal/service"
	"chess-champ-bot/internal/session"

	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

// Core is the league pipeline shared with the operator CLI. The config
// provider is left to the caller.
var Core = fx.Options(
	logger.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	metrics.Module,
	// repos
	fx.Provide(fx.Annotate(repository.NewPlayerRepository, fx.As(fx.Self(), new(service.PlayerStore)))),
	fx.Provide(fx.Annotate(repository.NewScoreRepository, fx.As(new(service.ScoreStore)))),
	fx.Provide(fx.Annotate(repository.NewChampionRepository, fx.As(new(service.ChampionStore)))),
	// api clients
	fx.Provide(api.NewChessComClient),
	fx.Provide(api.NewLichessClient),
	// platforms
	fx.Provide(platform.NewChessCom),
	fx.Provide(platform.NewLichess),
	fx.Provide(fx.Annotate(platform.ProvideRegistry, fx.As(fx.Self(), new(service.AdapterRegistry)))),
	// svc
	fx.Provide(fx.Annotate(service.NewLeaderboardService, fx.As(fx.Self(), new(service.LeaderboardComputer)))),
	fx.Provide(api.NewTelegramClient),
	fx.Provide(fx.Annotate(bot.NewAnnouncer, fx.As(new(service.Announcer)))),
	fx.Provide(service.NewChampionshipService),
)

var Module = fx.Options(
	config.Module,
	Core,
	fx.Provide(session.NewStore),
	fx.Provide(fx.Annotate(service.NewProfileService, fx.As(fx.Self(), new(service.HandleVerifier)))),
	fx.Provide(service.NewHeadToHeadService),
	fx.Provide(service.NewRegistrationService),
	fx.Provide(bot.NewHandler),
	// server
	fx.Provide(server.NewServer),
)
