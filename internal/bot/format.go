package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chess-champ-bot/internal/constants"
	"chess-champ-bot/internal/domain"
	"chess-champ-bot/internal/localtime"
	"chess-champ-bot/internal/service"
)

const topFooter = "Type /top help to see all available commands."

var topDescriptions = map[string]string{
	"day":    "Shows today's top players across all game types",
	"month":  "Shows overall monthly leaderboard for all game types",
	"blitz":  "Shows monthly leaderboard for blitz games (3-5 minutes)",
	"bullet": "Shows monthly leaderboard for bullet games (1-2 minutes)",
	"rapid":  "Shows monthly leaderboard for rapid games (10+ minutes)",
}

func topHelp() string {
	return strings.Join([]string{
		"📋 Available /top commands:",
		"",
		"🌅 /top or /top bugun - " + topDescriptions["day"],
		"🎮 /top month - " + topDescriptions["month"],
		"⚡ /top blitz - " + topDescriptions["blitz"],
		"🔫 /top bullet - " + topDescriptions["bullet"],
		"🏃 /top rapid - " + topDescriptions["rapid"],
		"",
		"Use any command to see the corresponding leaderboard!",
	}, "\n")
}

func helpText() string {
	return strings.Join([]string{
		"♟️ Chess Champ Bot",
		"",
		"/start - Сабти ном / Register your Chess.com or Lichess username",
		"/stats [username] - Омори шахмат / Current ratings",
		"/top [bugun|month|blitz|bullet|rapid|help] - Рейтинг / Leaderboards",
		"/score @user1 @user2 - Муқоисаи бозигарон / Head-to-head this month",
		"/standings [recent] - Championship points and recent daily champions",
		"",
		fmt.Sprintf("🏆 Every day the top 3 players (at least %d games) earn 🥇%d, 🥈%d, 🥉%d points.",
			constants.MinQualifyingGames, constants.FirstPlacePoints, constants.SecondPlacePoints, constants.ThirdPlacePoints),
	}, "\n")
}

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return strconv.Itoa(rank) + "."
}

var keycaps = []string{"4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

// standingsBadge extends medal with keycap digits up to ten.
func standingsBadge(position int) string {
	if position >= 4 && position <= 10 {
		return keycaps[position-4]
	}
	return medal(position)
}

func formatLeaderboard(option string, board *service.Leaderboard) string {
	if board.Players == 0 {
		return "⚠️ No registered users found. Users can register with /start"
	}

	daily := board.Window.Kind == service.WindowDay
	if len(board.Entries) == 0 {
		timeFrame := "this month"
		if daily {
			timeFrame = "today"
		}
		gameType := ""
		if board.Window.Speed != "" {
			gameType = fmt.Sprintf(" for %s games", board.Window.Speed)
		}
		return fmt.Sprintf(
			"📊 No qualifying players found%s %s.\nPlayers need at least %d games to appear on the leaderboard.\n\n%s",
			gameType, timeFrame, constants.MinQualifyingGames, topFooter,
		)
	}

	var b strings.Builder
	if daily {
		b.WriteString("🏆 Today's Leaderboard\n")
	} else {
		b.WriteString("🏆 Monthly Leaderboard\n")
	}
	b.WriteString(topDescriptions[option])
	b.WriteString("\n\n")

	for _, e := range board.Entries {
		fmt.Fprintf(&b, "%s %s: %.1f%% (W: %d L: %d) • %.1f\n", medal(e.Rank), e.Username, e.WinRate, e.Wins, e.Losses, e.WeightedScore)
	}

	if board.Report.Failed > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d of %d game fetches failed, totals may be incomplete.\n", board.Report.Failed, board.Report.Attempted)
	}

	b.WriteString("\n")
	b.WriteString(topFooter)
	return b.String()
}

func formatStandings(scores []domain.CumulativeScore) string {
	if len(scores) == 0 {
		return "🏆 CHAMPIONSHIP STANDINGS\n\n" +
			"No scores recorded yet! Start playing to earn championship points.\n\n" +
			"📊 How it works:\n" +
			"• Daily leaderboard resets every day\n" +
			fmt.Sprintf("• Top 3 players earn points: 🥇%d, 🥈%d, 🥉%d\n", constants.FirstPlacePoints, constants.SecondPlacePoints, constants.ThirdPlacePoints) +
			fmt.Sprintf("• Need minimum %d games to qualify\n", constants.MinQualifyingGames) +
			"• Rankings based on win rate and games played\n\n" +
			"Use /standings recent to see recent daily champions."
	}

	var b strings.Builder
	b.WriteString("🏆 CHAMPIONSHIP STANDINGS\n\n")
	for i, s := range scores {
		fmt.Fprintf(&b, "%s %s: %d points\n", standingsBadge(i+1), s.Username, s.TotalScore)
	}
	fmt.Fprintf(&b, "\n📊 Daily points: 🥇%d, 🥈%d, 🥉%d", constants.FirstPlacePoints, constants.SecondPlacePoints, constants.ThirdPlacePoints)
	b.WriteString("\nUse /standings recent for daily champions")
	return b.String()
}

func shortDate(key string) string {
	t, err := time.Parse(localtime.DateLayout, key)
	if err != nil {
		return key
	}
	return t.Format("Jan 2")
}

func formatRecentChampions(records []domain.DailyChampionRecord) string {
	if len(records) == 0 {
		return "🏆 RECENT DAILY CHAMPIONS\n\n" +
			"No daily champions recorded yet!\n\n" +
			"Be the top player of the day to become champion! 👑"
	}

	var b strings.Builder
	b.WriteString("🏆 RECENT DAILY CHAMPIONS\n\n")
	for _, r := range records {
		fmt.Fprintf(&b, "📅 %s:\n", shortDate(r.Date))
		for i, p := range r.Placements() {
			fmt.Fprintf(&b, "%s %s (%.1f%%)\n", medal(i+1), p.Username, p.WinRate)
		}
		b.WriteString("\n")
	}
	b.WriteString("Use /standings to see overall standings")
	return b.String()
}

func rating(v *int) string {
	if v == nil {
		return "N/A"
	}
	return strconv.Itoa(*v)
}

func formatProfile(p *service.Profile) string {
	var b strings.Builder
	switch {
	case p.Username != "":
		fmt.Fprintf(&b, "📊 Stats for @%s:\n", p.Username)
	case p.ChessCom != nil:
		fmt.Fprintf(&b, "📊 Stats for %s:\n", p.ChessCom.Handle)
	default:
		b.WriteString("📊 Stats:\n")
	}

	if r := p.ChessCom; r != nil {
		fmt.Fprintf(&b, "\n♟️ Chess.com (%s)\n", r.Handle)
		if r.Unavailable {
			b.WriteString("⚠️ Could not fetch stats.\n")
		} else {
			fmt.Fprintf(&b, "♟ Rapid: %s\n⚡ Blitz: %s\n💨 Bullet: %s\n🧠 Tactics: %s\n📅 Puzzle Rush Best: %s\n",
				rating(r.Rapid), rating(r.Blitz), rating(r.Bullet), rating(r.Puzzle), rating(r.PuzzleRush))
		}
	}
	if r := p.Lichess; r != nil {
		fmt.Fprintf(&b, "\n♟️ Lichess (%s)\n", r.Handle)
		if r.Unavailable {
			b.WriteString("⚠️ Could not fetch stats.\n")
		} else {
			fmt.Fprintf(&b, "♟ Rapid: %s\n⚡ Blitz: %s\n💨 Bullet: %s\n🧩 Puzzles: %s\n",
				rating(r.Rapid), rating(r.Blitz), rating(r.Bullet), rating(r.Puzzle))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func platformName(p domain.Platform) string {
	if p == domain.PlatformChessCom {
		return "Chess.com"
	}
	return "Lichess"
}

func formatHeadToHead(h *service.HeadToHead) string {
	unavailable := false
	for _, p := range h.Platforms {
		unavailable = unavailable || p.Unavailable
	}
	if h.TotalGames() == 0 && !unavailable {
		return fmt.Sprintf("📊 No games found between @%s and @%s this month.", h.A, h.B)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Head-to-head stats for %s:\n@%s vs @%s\n", h.Month, h.A, h.B)
	for _, p := range h.Platforms {
		fmt.Fprintf(&b, "\n♟️ %s (%s vs %s)\n", platformName(p.Platform), p.HandleA, p.HandleB)
		if p.Unavailable {
			b.WriteString("⚠️ Could not fetch games.\n")
			continue
		}
		fmt.Fprintf(&b, "Total games: %d\n@%s wins: %d\n@%s wins: %d\nDraws: %d\n", p.Games, h.A, p.WinsA, h.B, p.WinsB, p.Draws)
		if p.LastGameURL != "" {
			fmt.Fprintf(&b, "Last game: %s\n", p.LastGameURL)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatAnnouncement renders the daily championship result for the group
// chat.
func FormatAnnouncement(res *service.DailyResult) string {
	if res.Record == nil {
		return fmt.Sprintf("🏆 DAILY CHAMPIONSHIP - %s\n\nNo qualifying players today.", longDate(res.Date))
	}

	byName := make(map[string]domain.StandingsEntry, len(res.Standings))
	for _, e := range res.Standings {
		byName[strings.ToLower(e.Username)] = e
	}

	titles := []string{"🥇 CHAMPION", "🥈 Runner-up", "🥉 Third place"}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 DAILY CHAMPIONSHIP RESULTS - %s\n\n", longDate(res.Record.Date))
	for i, p := range res.Record.Placements() {
		fmt.Fprintf(&b, "%s: %s\n", titles[i], p.Username)
		if e, ok := byName[strings.ToLower(p.Username)]; ok {
			fmt.Fprintf(&b, "   Win Rate: %.1f%% (%dW-%dL)\n", e.WinRate, e.Wins, e.Losses)
		} else {
			fmt.Fprintf(&b, "   Win Rate: %.1f%%\n", p.WinRate)
		}
		if i == 0 {
			fmt.Fprintf(&b, "   Awarded: +%d points 🎉\n\n", p.Points)
		} else {
			fmt.Fprintf(&b, "   Awarded: +%d points\n\n", p.Points)
		}
	}

	b.WriteString("Congratulations to all players! 🎊\n")
	if len(res.Standings) > 0 {
		fmt.Fprintf(&b, "Total qualifying players: %d\n", len(res.Standings))
	}
	b.WriteString("\nUse /standings to see overall championship standings!")
	return b.String()
}

func longDate(key string) string {
	t, err := time.Parse(localtime.DateLayout, key)
	if err != nil {
		return key
	}
	return t.Format("January 2, 2006")
}
