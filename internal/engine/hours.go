package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Store timezones must resolve on hosts without a zoneinfo database.

	"github.com/tartampluch/go-storefront/internal/config"
)

// HoursRule is one weekly opening-hours entry as written in the site configuration.
type HoursRule struct {
	// Days is a weekday abbreviation ("Sun") or an en-dash range ("Mon–Sat").
	// Ranges may wrap across the end of the week ("Sat–Mon").
	Days string `yaml:"days" json:"days"`

	// Open and Close are 24h "HH:MM" wall-clock times. Close is exclusive.
	Open  string `yaml:"open" json:"open"`
	Close string `yaml:"close" json:"close"`
}

// State classifies an evaluation so the presentation layer can localize it.
type State int

const (
	StateUnavailable State = iota
	StateClosed
	StateOpen
)

// String returns the lowercase state name used in API payloads.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unavailable"
	}
}

// Status is the result of evaluating the schedule at one instant.
type Status struct {
	Open    bool   `json:"open"`
	Message string `json:"message"`

	State State      `json:"-"`
	Rule  *HoursRule `json:"-"` // Matched rule, nil when unavailable.
}

// Evaluate decides whether the store is open at asOf, read as wall-clock time in timezone.
// The first rule whose day pattern matches today is used; later rules are never merged in.
// Malformed input never errors: it yields the "Hours unavailable" status.
func Evaluate(rules []HoursRule, timezone string, asOf time.Time) Status {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return unavailable()
	}

	local := asOf.In(loc)
	today := weekdayIndex(local.Weekday())
	minutes := local.Hour()*config.MinutesPerHour + local.Minute()

	idx := firstMatch(rules, today)
	if idx < 0 {
		return unavailable()
	}
	rule := rules[idx]

	openM, okOpen := parseClock(rule.Open)
	closeM, okClose := parseClock(rule.Close)
	if !okOpen || !okClose {
		return unavailable()
	}

	if minutes >= openM && minutes < closeM {
		return Status{
			Open:    true,
			Message: fmt.Sprintf(config.MsgOpenNow, rule.Close),
			State:   StateOpen,
			Rule:    &rule,
		}
	}
	return Status{
		Open:    false,
		Message: fmt.Sprintf(config.MsgClosedOpens, rule.Open, rule.Days),
		State:   StateClosed,
		Rule:    &rule,
	}
}

// WeeklySchedule returns, for each weekday in canonical order (Mon..Sun),
// the index of the rule Evaluate would select on that day, or -1.
func WeeklySchedule(rules []HoursRule) [config.DaysPerWeek]int {
	var week [config.DaysPerWeek]int
	for day := range week {
		week[day] = firstMatch(rules, day)
	}
	return week
}

func unavailable() Status {
	return Status{Message: config.MsgHoursUnavailable, State: StateUnavailable}
}

func firstMatch(rules []HoursRule, today int) int {
	for i, r := range rules {
		if dayMatches(r.Days, today) {
			return i
		}
	}
	return -1
}

// dayMatches reports whether the day pattern covers the weekday at index today (Mon=0).
func dayMatches(days string, today int) bool {
	if strings.Contains(days, config.DayRangeSeparator) {
		start, end, _ := strings.Cut(days, config.DayRangeSeparator)
		a := abbrevIndex(start)
		b := abbrevIndex(end)
		if a < 0 || b < 0 {
			return false
		}
		if a <= b {
			return today >= a && today <= b
		}
		return today >= a || today <= b
	}

	days = strings.TrimSpace(days)
	if days == "" {
		return false
	}
	abbrev := config.WeekdayOrder[today]
	// "Su" and "Sun" match Sunday, and so does the spelled-out "Sunday".
	return strings.HasPrefix(abbrev, days) || strings.HasPrefix(days, abbrev)
}

// abbrevIndex resolves a day token by its first three letters, or returns -1.
func abbrevIndex(token string) int {
	token = strings.TrimSpace(token)
	if len(token) > config.DayAbbrevLen {
		token = token[:config.DayAbbrevLen]
	}
	for i, d := range config.WeekdayOrder {
		if d == token {
			return i
		}
	}
	return -1
}

// weekdayIndex converts time.Weekday (Sunday=0) to the canonical index (Monday=0).
func weekdayIndex(d time.Weekday) int {
	return (int(d) + config.DaysPerWeek - 1) % config.DaysPerWeek
}

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), config.ClockSeparator)
	if !ok {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m >= config.MinutesPerHour {
		return 0, false
	}
	return h*config.MinutesPerHour + m, true
}
