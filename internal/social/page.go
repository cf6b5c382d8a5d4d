package social

import (
	"strconv"
	"strings"
)

const (
	DefaultPageLimit        = 20
	MaxPageLimit            = 100
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
)

// Page is a limit/offset window. Zero values mean the defaults.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalized() Page {
	p.Limit = clampLimit(p.Limit, DefaultPageLimit, MaxPageLimit)
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func clampLimit(limit, def, max int) int {
	switch {
	case limit <= 0:
		return def
	case limit > max:
		return max
	default:
		return limit
	}
}

// ParsePage reads limit and offset query values. Values that do not parse
// fall back to the defaults instead of failing the request.
func ParsePage(limit, offset string) Page {
	return Page{
		Limit:  ParseLimit(limit, DefaultPageLimit, MaxPageLimit),
		Offset: parseNonNegative(offset),
	}
}

// ParseLimit parses a limit, returning def when raw is missing or malformed
// and clamping the result to [1, max].
func ParseLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return clampLimit(n, def, max)
}

func parseNonNegative(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
