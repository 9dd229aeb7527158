package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// parseDurationExtended accepts everything time.ParseDuration does plus
// d (24h) and w (7d) units, e.g. "30s", "7d", "1w2d3h", "1.5d", "-2w".
func parseDurationExtended(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("duration is required")
	}
	if !strings.ContainsAny(raw, "dw") {
		return time.ParseDuration(raw)
	}

	s := raw
	var b strings.Builder
	if s[0] == '+' || s[0] == '-' {
		b.WriteByte(s[0])
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}

	for s != "" {
		num, rest, ok := cutNumber(s)
		if !ok {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		unit, rest, ok := cutUnit(rest)
		if !ok {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		s = rest

		hoursPer := 0.0
		switch unit {
		case "d":
			hoursPer = 24
		case "w":
			hoursPer = 7 * 24
		}
		if hoursPer == 0 {
			b.WriteString(num)
			b.WriteString(unit)
			continue
		}
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		b.WriteString(strconv.FormatFloat(f*hoursPer, 'f', -1, 64))
		b.WriteByte('h')
	}

	return time.ParseDuration(b.String())
}

// cutNumber splits off a leading [0-9]+(\.[0-9]*)? token.
func cutNumber(s string) (string, string, bool) {
	i := 0
	dot := false
	for i < len(s) {
		c := s[i]
		if c >= '0' && c <= '9' {
			i++
			continue
		}
		if c == '.' && !dot {
			dot = true
			i++
			continue
		}
		break
	}
	if i == 0 {
		return "", s, false
	}
	return s[:i], s[i:], true
}

// cutUnit splits off a leading run of letters (µ included).
func cutUnit(s string) (string, string, bool) {
	j := 0
	for j < len(s) {
		r, size := utf8.DecodeRuneInString(s[j:])
		if r == utf8.RuneError && size == 1 {
			return "", s, false
		}
		if r != 'µ' && !unicode.IsLetter(r) {
			break
		}
		j += size
	}
	if j == 0 {
		return "", s, false
	}
	return s[:j], s[j:], true
}
