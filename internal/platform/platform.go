// Package platform puts Chess.com and Lichess behind one Adapter so the
// aggregation pipeline never branches on the platform name.
package platform

import (
	"context"
	"fmt"
	"time"

	"chess-champ-bot/internal/domain"
)

// Adapter fetches and classifies games for one platform. Implementations are
// safe for concurrent use.
type Adapter interface {
	Platform() domain.Platform

	// FetchGames returns the handle's games that may fall in [from, to). The
	// caller applies the exact window filter.
	FetchGames(ctx context.Context, handle string, from, to time.Time) ([]domain.GameRecord, error)

	// Classify reports the game's outcome for handle. ok is false when handle
	// played neither side; the outcome is then a draw.
	Classify(game domain.GameRecord, handle string) (outcome domain.Outcome, ok bool)
}

type Registry struct {
	adapters map[domain.Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

// ProvideRegistry wires both platform adapters.
func ProvideRegistry(chess *ChessCom, lichess *Lichess) *Registry {
	return NewRegistry(chess, lichess)
}

func (r *Registry) Get(p domain.Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter for platform %q", p)
	}
	return a, nil
}

// Classify dispatches to the adapter for the game's platform.
func (r *Registry) Classify(game domain.GameRecord, handle string) (domain.Outcome, bool) {
	a, ok := r.adapters[game.Platform]
	if !ok {
		return domain.Outcome{}, false
	}
	return a.Classify(game, handle)
}
