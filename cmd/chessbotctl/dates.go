package main

import (
	"fmt"
	"strings"
	"time"

	"chess-champ-bot/internal/localtime"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// parseDate resolves a --date flag to an instant inside the wanted league
// day. It accepts YYYY-MM-DD keys and phrases like "yesterday" or
// "last friday", read against now in league time.
func parseDate(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" || input == "today" || input == "now" {
		return now, nil
	}

	if t, err := localtime.ParseDateKey(input); err == nil {
		return t, nil
	}

	r, err := parser.Parse(input, now.In(localtime.Zone))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", input)
	}
	return r.Time, nil
}
