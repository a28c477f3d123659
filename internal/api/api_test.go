package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chess-champ-bot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLichessNDJSONSkipsBadLines(t *testing.T) {
	body := []byte(`{"id":"a1","speed":"blitz","lastMoveAt":1700000000000,"winner":"white","players":{"white":{"user":{"name":"Alice"}},"black":{"user":{"name":"Bob"}}}}
not json at all

{"id":"a2","speed":"rapid","lastMoveAt":1700000001000,"players":{"white":{"user":{"name":"Bob"}},"black":{"user":{"name":"Alice"}}}}
{"id":
`)

	page := ParseLichessNDJSON(body)
	require.Len(t, page.Games, 2)
	assert.Equal(t, 2, page.Skipped)
	assert.Equal(t, "a1", page.Games[0].ID)
	assert.Equal(t, "Alice", page.Games[0].Players.White.Name())
	assert.Equal(t, "", page.Games[1].Winner)
}

func TestParseLichessNDJSONKeepsReadingPastLongLine(t *testing.T) {
	long := `{"id":"big","pgn":"` + strings.Repeat("e4 e5 ", 1<<20) + `"`
	body := []byte(`{"id":"a1","speed":"blitz","players":{"white":{"user":{"name":"Alice"}},"black":{"user":{"name":"Bob"}}}}
` + long + `
{"id":"a2","speed":"bullet","players":{"white":{"user":{"name":"Bob"}},"black":{"user":{"name":"Alice"}}}}`)

	page := ParseLichessNDJSON(body)
	require.Len(t, page.Games, 2)
	assert.Equal(t, 1, page.Skipped)
	assert.Equal(t, "a1", page.Games[0].ID)
	assert.Equal(t, "a2", page.Games[1].ID)
}

func TestArchiveMonth(t *testing.T) {
	y, m, err := ArchiveMonth("https://api.chess.com/pub/player/hikaru/games/2025/03")
	require.NoError(t, err)
	assert.Equal(t, 2025, y)
	assert.Equal(t, 3, m)

	_, _, err = ArchiveMonth("https://api.chess.com/pub/player/hikaru/games/2025/13")
	require.Error(t, err)
}

func TestLichessGetGamesSendsWindowAndToken(t *testing.T) {
	var gotAuth, gotAccept, gotSince, gotUntil string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotSince = r.URL.Query().Get("since")
		gotUntil = r.URL.Query().Get("until")
		_, _ = w.Write([]byte(`{"id":"g1","speed":"bullet","players":{"white":{"user":{"name":"x"}},"black":{"user":{"name":"y"}}}}` + "\n"))
	}))
	defer srv.Close()

	c := NewLichessClient(&config.Config{LichessBaseURL: srv.URL, LichessToken: "secret"})
	since := time.UnixMilli(1700000000000)
	until := time.UnixMilli(1700086400000)

	page, err := c.GetGames(context.Background(), "x", since, until, 200)
	require.NoError(t, err)
	require.Len(t, page.Games, 1)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/x-ndjson", gotAccept)
	assert.Equal(t, "1700000000000", gotSince)
	assert.Equal(t, "1700086400000", gotUntil)
	assert.True(t, c.Authenticated())
}

func TestChessComNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewChessComClient(&config.Config{ChessComBaseURL: srv.URL})
	_, err := c.GetProfile(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestTelegramSendMessage(t *testing.T) {
	var got SendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewTelegramClient(&config.Config{TelegramBaseURL: srv.URL, TelegramToken: "123:abc"})
	require.NoError(t, c.SendMessage(context.Background(), 42, "hello"))
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, "hello", got.Text)
}
