package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"chess-champ-bot/internal/config"
	"chess-champ-bot/internal/constants"

	"golang.org/x/time/rate"
)

type ChessComClient struct {
	*Client
}

func NewChessComClient(cfg *config.Config) *ChessComClient {
	return &ChessComClient{
		Client: newClient(
			strings.TrimRight(cfg.ChessComBaseURL, "/"),
			rate.Limit(constants.ChessComRateLimit),
			constants.ChessComBurst,
			map[string]string{"User-Agent": "chess-champ-bot"},
		),
	}
}

func (c *ChessComClient) playerURL(handle string) string {
	return fmt.Sprintf("%s/pub/player/%s", c.baseURL, url.PathEscape(strings.ToLower(handle)))
}

func (c *ChessComClient) GetArchives(ctx context.Context, handle string) (*ChessComArchivesResponse, error) {
	return doRequest[ChessComArchivesResponse](ctx, c.Client, c.playerURL(handle)+"/games/archives")
}

func (c *ChessComClient) GetMonthlyGames(ctx context.Context, handle string, year, month int) (*ChessComGamesResponse, error) {
	u := fmt.Sprintf("%s/games/%04d/%02d", c.playerURL(handle), year, month)
	return doRequest[ChessComGamesResponse](ctx, c.Client, u)
}

func (c *ChessComClient) GetStats(ctx context.Context, handle string) (*ChessComStatsResponse, error) {
	return doRequest[ChessComStatsResponse](ctx, c.Client, c.playerURL(handle)+"/stats")
}

func (c *ChessComClient) GetProfile(ctx context.Context, handle string) (*ChessComProfileResponse, error) {
	return doRequest[ChessComProfileResponse](ctx, c.Client, c.playerURL(handle))
}

// ArchiveMonth extracts the year and month from an archive URL such as
// https://api.chess.com/pub/player/hikaru/games/2025/03.
func ArchiveMonth(archiveURL string) (year, month int, err error) {
	parts := strings.Split(strings.TrimRight(archiveURL, "/"), "/")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("malformed archive url %q", archiveURL)
	}
	year, err = strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed archive year in %q: %w", archiveURL, err)
	}
	month, err = strconv.Atoi(parts[len(parts)-1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("malformed archive month in %q", archiveURL)
	}
	return year, month, nil
}

type ChessComArchivesResponse struct {
	Archives []string `json:"archives"`
}

type ChessComGamesResponse struct {
	Games []ChessComGame `json:"games"`
}

type ChessComGame struct {
	URL         string         `json:"url"`
	UUID        string         `json:"uuid"`
	EndTime     int64          `json:"end_time"`
	TimeClass   string         `json:"time_class"`
	TimeControl string         `json:"time_control"`
	Rated       bool           `json:"rated"`
	Rules       string         `json:"rules"`
	White       ChessComPlayer `json:"white"`
	Black       ChessComPlayer `json:"black"`
}

type ChessComPlayer struct {
	Username string `json:"username"`
	Result   string `json:"result"`
	Rating   int    `json:"rating"`
}

type ChessComRating struct {
	Last *struct {
		Rating int `json:"rating"`
	} `json:"last"`
}

type ChessComStatsResponse struct {
	ChessRapid  *ChessComRating `json:"chess_rapid"`
	ChessBlitz  *ChessComRating `json:"chess_blitz"`
	ChessBullet *ChessComRating `json:"chess_bullet"`
	Tactics     *struct {
		Highest *struct {
			Rating int `json:"rating"`
		} `json:"highest"`
	} `json:"tactics"`
	PuzzleRush *struct {
		Best *struct {
			Score int `json:"score"`
		} `json:"best"`
	} `json:"puzzle_rush"`
}

type ChessComProfileResponse struct {
	Username string `json:"username"`
	PlayerID int64  `json:"player_id"`
	Status   string `json:"status"`
}
