// Package localtime converts an ambiguous local birth date/time into an
// absolute UTC instant.
//
// Parsing is strict: integer components only, recognized IANA zones only.
// When the birth time is unknown, local noon is substituted and flagged. A
// local instant that does not exist (a DST spring-forward gap) is a hard
// failure, never silently coerced.
package localtime

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Conversion is the result of a successful local-to-UTC conversion.
type Conversion struct {
	// UTC is the instant formatted "2006-01-02T15:04:05Z".
	UTC string `json:"datetimeUtc"`
	// AssumedNoon is true when the birth time was unknown and local 12:00
	// was substituted.
	AssumedNoon bool `json:"assumedNoon"`
	// LocalTimeUsed is the "HH:MM" local time actually applied.
	LocalTimeUsed string `json:"localTimeUsed"`
}

var (
	dateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	timeRe = regexp.MustCompile(`^(\d{2}):(\d{2})$`)
)

// Convert resolves date ("YYYY-MM-DD") and timeStr ("HH:MM") against an IANA
// timezone. timeUnknown substitutes local noon; otherwise timeStr is
// required.
func Convert(date, timeStr string, timeUnknown bool, timezone string) (*Conversion, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" || timezone == "Local" {
		return nil, fmt.Errorf("localtime: unknown timezone %q", timezone)
	}

	year, month, day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	assumedNoon := false
	if timeUnknown {
		timeStr = "12:00"
		assumedNoon = true
	} else if timeStr == "" {
		return nil, fmt.Errorf("localtime: birth time required when not marked unknown")
	}

	hour, minute, err := parseTime(timeStr)
	if err != nil {
		return nil, err
	}

	local := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)

	// time.Date normalizes out-of-range and nonexistent instants (DST gaps)
	// instead of failing; reject anything that did not round-trip.
	if local.Year() != year || int(local.Month()) != month || local.Day() != day ||
		local.Hour() != hour || local.Minute() != minute {
		return nil, fmt.Errorf("localtime: %s %s does not exist in %s", date, timeStr, timezone)
	}

	return &Conversion{
		UTC:           local.UTC().Format("2006-01-02T15:04:05Z"),
		AssumedNoon:   assumedNoon,
		LocalTimeUsed: timeStr,
	}, nil
}

func parseDate(date string) (year, month, day int, err error) {
	m := dateRe.FindStringSubmatch(date)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("localtime: bad date %q, want YYYY-MM-DD", date)
	}
	year, _ = strconv.Atoi(m[1])
	month, _ = strconv.Atoi(m[2])
	day, _ = strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, 0, fmt.Errorf("localtime: bad date %q", date)
	}
	return year, month, day, nil
}

func parseTime(timeStr string) (hour, minute int, err error) {
	m := timeRe.FindStringSubmatch(timeStr)
	if m == nil {
		return 0, 0, fmt.Errorf("localtime: bad time %q, want HH:MM", timeStr)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("localtime: bad time %q", timeStr)
	}
	return hour, minute, nil
}
