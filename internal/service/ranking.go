package service

import (
	"math"
	"sort"
	"strings"

	"chess-champ-bot/internal/constants"
	"chess-champ-bot/internal/domain"
)

// Rank drops players below the qualification threshold, orders the rest by
// weighted score, win rate and wins, and assigns dense ranks: an entry shares
// the previous rank iff its weighted score is within ScoreTieEpsilon,
// otherwise it gets the previous rank plus one.
func Rank(stats []domain.PlayerDayStats) []domain.StandingsEntry {
	qualified := make([]domain.PlayerDayStats, 0, len(stats))
	for _, s := range stats {
		if s.TotalGames >= constants.MinQualifyingGames {
			qualified = append(qualified, s)
		}
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		a, b := qualified[i], qualified[j]
		if a.WeightedScore != b.WeightedScore {
			return a.WeightedScore > b.WeightedScore
		}
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return strings.ToLower(a.Username) < strings.ToLower(b.Username)
	})

	entries := make([]domain.StandingsEntry, len(qualified))
	for i, s := range qualified {
		rank := 1
		if i > 0 {
			prev := entries[i-1]
			rank = prev.Rank + 1
			if math.Abs(s.WeightedScore-prev.WeightedScore) < constants.ScoreTieEpsilon {
				rank = prev.Rank
			}
		}
		entries[i] = domain.StandingsEntry{PlayerDayStats: s, Rank: rank}
	}
	return entries
}
