package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chess-champ-bot/internal/config"
	"chess-champ-bot/internal/constants"

	"golang.org/x/time/rate"
)

type LichessClient struct {
	*Client
	authenticated bool
}

func NewLichessClient(cfg *config.Config) *LichessClient {
	headers := map[string]string{"User-Agent": "chess-champ-bot"}
	limit := rate.Limit(constants.LichessRateLimit)
	if cfg.LichessToken != "" {
		headers["Authorization"] = "Bearer " + cfg.LichessToken
		limit = rate.Limit(constants.LichessAuthRate)
	}

	return &LichessClient{
		Client: newClient(
			strings.TrimRight(cfg.LichessBaseURL, "/"),
			limit,
			constants.LichessBurst,
			headers,
		),
		authenticated: cfg.LichessToken != "",
	}
}

func (c *LichessClient) Authenticated() bool { return c.authenticated }

// LichessGamesPage is one NDJSON export. Skipped counts lines that failed to
// parse.
type LichessGamesPage struct {
	Games   []LichessGame
	Skipped int
}

// GetGames exports rated games finished in [since, until).
func (c *LichessClient) GetGames(ctx context.Context, handle string, since, until time.Time, max int) (*LichessGamesPage, error) {
	q := url.Values{}
	q.Set("max", strconv.Itoa(max))
	q.Set("rated", "true")
	q.Set("moves", "false")
	q.Set("tags", "false")
	q.Set("opening", "false")
	if !since.IsZero() {
		q.Set("since", strconv.FormatInt(since.UnixMilli(), 10))
	}
	if !until.IsZero() {
		q.Set("until", strconv.FormatInt(until.UnixMilli(), 10))
	}

	u := fmt.Sprintf("%s/api/games/user/%s?%s", c.baseURL, url.PathEscape(handle), q.Encode())
	body, err := c.do(ctx, request{url: u, accept: "application/x-ndjson"})
	if err != nil {
		return nil, err
	}

	return ParseLichessNDJSON(body), nil
}

// ParseLichessNDJSON decodes one game per line, skipping blank and malformed
// lines.
func ParseLichessNDJSON(body []byte) *LichessGamesPage {
	page := &LichessGamesPage{}
	reader := bufio.NewReader(bytes.NewReader(body))

	for {
		raw, err := reader.ReadBytes('\n')
		if line := bytes.TrimSpace(raw); len(line) > 0 {
			var g LichessGame
			if jerr := json.Unmarshal(line, &g); jerr != nil {
				page.Skipped++
			} else {
				page.Games = append(page.Games, g)
			}
		}
		if err != nil {
			break
		}
	}
	return page
}

func (c *LichessClient) GetUser(ctx context.Context, handle string) (*LichessUserResponse, error) {
	u := fmt.Sprintf("%s/api/user/%s", c.baseURL, url.PathEscape(handle))
	return doRequest[LichessUserResponse](ctx, c.Client, u)
}

type LichessGame struct {
	ID         string `json:"id"`
	Rated      bool   `json:"rated"`
	Speed      string `json:"speed"`
	Perf       string `json:"perf"`
	CreatedAt  int64  `json:"createdAt"`
	LastMoveAt int64  `json:"lastMoveAt"`
	Status     string `json:"status"`
	Winner     string `json:"winner"`
	Players    struct {
		White LichessPlayer `json:"white"`
		Black LichessPlayer `json:"black"`
	} `json:"players"`
}

type LichessPlayer struct {
	User *struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"user"`
	Rating int `json:"rating"`
	// set for anonymous and AI opponents
	AILevel int `json:"aiLevel"`
}

func (p LichessPlayer) Name() string {
	if p.User == nil {
		return ""
	}
	return p.User.Name
}

type LichessPerf struct {
	Rating int `json:"rating"`
	Games  int `json:"games"`
}

type LichessUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Disabled bool   `json:"disabled"`
	Perfs    struct {
		Bullet *LichessPerf `json:"bullet"`
		Blitz  *LichessPerf `json:"blitz"`
		Rapid  *LichessPerf `json:"rapid"`
		Puzzle *LichessPerf `json:"puzzle"`
	} `json:"perfs"`
}
