package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Offsets are fixed numeric deviations from UTC ("+5:30", "-3"), never IANA
// zone names, so no tz database or DST handling is involved. The supported
// range matches real-world zones: -12:00 to +14:00, including the half and
// quarter hour fractions.

const (
	minOffsetMinutes = -12 * 60
	maxOffsetMinutes = 14 * 60
)

var (
	ErrInvalidTime   = errors.New("time must be in HH:MM format")
	ErrInvalidOffset = errors.New("offset must be a signed hour value like +5, -3:30 or 0")

	offsetPattern = regexp.MustCompile(`^([+-])(\d{1,2})(?::([0-5]\d))?$`)
	timePattern   = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
)

// ParseOffset parses a UTC offset string into minutes east of UTC.
// The sign is mandatory except for plain "0", which denotes UTC itself.
func ParseOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "0" {
		return 0, nil
	}

	m := offsetPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, s)
	}

	hours, _ := strconv.Atoi(m[2])
	minutes := 0
	if m[3] != "" {
		minutes, _ = strconv.Atoi(m[3])
	}

	total := hours*60 + minutes
	if m[1] == "-" {
		total = -total
	}

	if total < minOffsetMinutes || total > maxOffsetMinutes {
		return 0, fmt.Errorf("%w: %q out of range -12:00..+14:00", ErrInvalidOffset, s)
	}

	return total, nil
}

// IsValidOffset reports whether s is a well-formed UTC offset.
func IsValidOffset(s string) bool {
	_, err := ParseOffset(s)
	return err == nil
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	return h*60 + mi, nil
}

// FormatClock renders minutes since midnight as "HH:MM", wrapping across
// midnight in either direction.
func FormatClock(mins int) string {
	mins %= 24 * 60
	if mins < 0 {
		mins += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// ToUTC converts a local wall-clock time to UTC given the user's offset.
func ToUTC(local, offset string) (string, error) {
	mins, err := ParseClock(local)
	if err != nil {
		return "", err
	}
	off, err := ParseOffset(offset)
	if err != nil {
		return "", err
	}
	return FormatClock(mins - off), nil
}

// FromUTC converts a UTC wall-clock time back to the user's local time.
func FromUTC(utc, offset string) (string, error) {
	mins, err := ParseClock(utc)
	if err != nil {
		return "", err
	}
	off, err := ParseOffset(offset)
	if err != nil {
		return "", err
	}
	return FormatClock(mins + off), nil
}

// FormatWithOffset renders a time with its offset for display,
// e.g. "09:00 (UTC+5:30)". A zero offset collapses to "(UTC)".
func FormatWithOffset(hhmm, offset string) (string, error) {
	if _, err := ParseClock(hhmm); err != nil {
		return "", err
	}
	off, err := ParseOffset(offset)
	if err != nil {
		return "", err
	}

	if off == 0 {
		return fmt.Sprintf("%s (UTC)", hhmm), nil
	}

	sign := "+"
	if off < 0 {
		sign = "-"
		off = -off
	}
	if off%60 == 0 {
		return fmt.Sprintf("%s (UTC%s%d)", hhmm, sign, off/60), nil
	}
	return fmt.Sprintf("%s (UTC%s%d:%02d)", hhmm, sign, off/60, off%60), nil
}
