// Command chessbotctl runs the league pipeline by hand: print standings,
// award a day, or dump the games a handle played.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"chess-champ-bot/internal/config"
	"chess-champ-bot/internal/db"
	"chess-champ-bot/internal/domain"
	fxmodules "chess-champ-bot/internal/fx"
	"chess-champ-bot/internal/localtime"
	"chess-champ-bot/internal/platform"
	"chess-champ-bot/internal/service"
	"chess-champ-bot/internal/session"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

type deps struct {
	fx.In

	Leaderboards *service.LeaderboardService
	Championship *service.ChampionshipService
	Registry     *platform.Registry
	Queries      *db.Queries
	Config       *config.Config
	Logger       zerolog.Logger
}

// withDeps boots the shared module graph for one command.
func withDeps(c *cli.Context, fn func(ctx context.Context, d deps) error) error {
	var d deps
	app := fx.New(
		fx.Provide(config.LoadOptional),
		fxmodules.Core,
		fx.NopLogger,
		fx.Invoke(func(in deps) { d = in }),
	)
	if err := app.Err(); err != nil {
		return err
	}

	ctx := c.Context
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(ctx, d)
}

var dateFlag = &cli.StringFlag{
	Name:  "date",
	Usage: `league day, as YYYY-MM-DD or a phrase like "yesterday"`,
	Value: "today",
}

var jsonFlag = &cli.BoolFlag{Name: "json", Usage: "print JSON"}

func main() {
	app := &cli.App{
		Name:  "chessbotctl",
		Usage: "operate the chess league by hand",
		Commands: []*cli.Command{
			standingsCommand(),
			awardCommand(),
			championsCommand(),
			gamesCommand(),
			sweepCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func standingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "standings",
		Usage: "compute a leaderboard without awarding anything",
		Flags: []cli.Flag{
			dateFlag,
			&cli.StringFlag{Name: "period", Value: "day", Usage: "day or month"},
			&cli.StringFlag{Name: "speed", Usage: "bullet, blitz or rapid"},
			jsonFlag,
		},
		Action: func(c *cli.Context) error {
			at, err := parseDate(c.String("date"), time.Now())
			if err != nil {
				return err
			}

			var window service.Window
			switch c.String("period") {
			case "day":
				window = service.DayWindow(at)
			case "month":
				window = service.MonthWindow(at)
			default:
				return fmt.Errorf("unknown period %q", c.String("period"))
			}
			if s := c.String("speed"); s != "" {
				speed, ok := domain.ParseSpeed(s)
				if !ok {
					return fmt.Errorf("unknown speed %q", s)
				}
				window = window.WithSpeed(speed)
			}

			return withDeps(c, func(ctx context.Context, d deps) error {
				board, err := d.Leaderboards.Compute(ctx, window)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(c.App.Writer, board)
				}
				printEntries(c.App.Writer, board.Entries)
				fmt.Fprintf(c.App.Writer, "\nplayers=%d fetches=%d failed=%d games=%d counted=%d anomalies=%d\n",
					board.Players, board.Report.Attempted, board.Report.Failed, board.Report.Games, board.Report.Counted, board.Report.Anomalies)
				return nil
			})
		},
	}
}

func awardCommand() *cli.Command {
	return &cli.Command{
		Name:  "award",
		Usage: "run the daily championship for a day; an awarded day is left unchanged",
		Flags: []cli.Flag{dateFlag, jsonFlag},
		Action: func(c *cli.Context) error {
			at, err := parseDate(c.String("date"), time.Now())
			if err != nil {
				return err
			}

			return withDeps(c, func(ctx context.Context, d deps) error {
				res, err := d.Championship.RunDaily(ctx, at)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(c.App.Writer, res)
				}

				switch {
				case res.Record == nil:
					fmt.Fprintf(c.App.Writer, "%s: no qualifying players\n", res.Date)
				case res.Created:
					printEntries(c.App.Writer, res.Standings)
					fmt.Fprintf(c.App.Writer, "\n%s\n", res.Announcement)
				default:
					fmt.Fprintf(c.App.Writer, "%s: already awarded, champion %s\n", res.Date, res.Record.First.Username)
				}
				return nil
			})
		},
	}
}

func championsCommand() *cli.Command {
	return &cli.Command{
		Name:  "champions",
		Usage: "list recent daily champions and cumulative scores",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 7},
			jsonFlag,
		},
		Action: func(c *cli.Context) error {
			return withDeps(c, func(ctx context.Context, d deps) error {
				records, err := d.Championship.RecentChampions(ctx, c.Int("limit"))
				if err != nil {
					return err
				}
				scores, err := d.Championship.Standings(ctx)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(c.App.Writer, map[string]any{"champions": records, "standings": scores})
				}

				tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tFIRST\tSECOND\tTHIRD")
				for _, r := range records {
					places := []string{"-", "-", "-"}
					for i, p := range r.Placements() {
						places[i] = fmt.Sprintf("%s (%.1f%%)", p.Username, p.WinRate)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Date, places[0], places[1], places[2])
				}
				fmt.Fprintln(tw)
				fmt.Fprintln(tw, "PLAYER\tPOINTS")
				for _, s := range scores {
					fmt.Fprintf(tw, "%s\t%d\n", s.Username, s.TotalScore)
				}
				return tw.Flush()
			})
		},
	}
}

func gamesCommand() *cli.Command {
	return &cli.Command{
		Name:      "games",
		Usage:     "fetch and classify one handle's games for a day",
		ArgsUsage: "<handle>",
		Flags: []cli.Flag{
			dateFlag,
			&cli.StringFlag{Name: "platform", Value: string(domain.PlatformChessCom), Usage: "chess.com or lichess"},
		},
		Action: func(c *cli.Context) error {
			handle := c.Args().First()
			if handle == "" {
				return cli.Exit("a handle is required", 2)
			}
			at, err := parseDate(c.String("date"), time.Now())
			if err != nil {
				return err
			}
			window := service.DayWindow(at)

			return withDeps(c, func(ctx context.Context, d deps) error {
				adapter, err := d.Registry.Get(domain.Platform(c.String("platform")))
				if err != nil {
					return err
				}
				games, err := adapter.FetchGames(ctx, handle, window.Start, window.End)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ENDED\tSPEED\tWHITE\tBLACK\tRESULT\tCOUNTED\tURL")
				for _, g := range games {
					outcome, ok := adapter.Classify(g, handle)
					result := "draw"
					switch {
					case !ok:
						result = "not a participant"
					case outcome.Win > 0:
						result = "win"
					case outcome.Loss > 0:
						result = "loss"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
						g.EndedAt.In(localtime.Zone).Format("2006-01-02 15:04"), g.Speed, g.White.Handle, g.Black.Handle, result, window.Includes(g), g.URL)
				}
				return tw.Flush()
			})
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep-sessions",
		Usage: "delete expired registration sessions from sqlite",
		Action: func(c *cli.Context) error {
			return withDeps(c, func(ctx context.Context, d deps) error {
				store := session.NewSQLStore(d.Queries, d.Config.SessionTTL, d.Logger)
				n, err := store.Sweep(ctx)
				if err != nil {
					return err
				}
				d.Logger.Info().Int64("removed", n).Msg("swept registration sessions")
				return nil
			})
		},
	}
}

func printEntries(w io.Writer, entries []domain.StandingsEntry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPLAYER\tW\tL\tWIN%\tSCORE\tCHESS.COM\tLICHESS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.1f\t%.2f\t%d\t%d\n",
			e.Rank, e.Username, e.Wins, e.Losses, e.WinRate, e.WeightedScore, e.ChessComGames, e.LichessGames)
	}
	_ = tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
