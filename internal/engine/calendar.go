package engine

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-storefront/internal/config"
	"github.com/teambition/rrule-go"
)

// rruleWeekdays maps the canonical weekday index (Mon=0) to its RRULE BYDAY token.
var rruleWeekdays = [config.DaysPerWeek]rrule.Weekday{
	rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU,
}

// CalendarOptions describes the opening-hours feed to render.
type CalendarOptions struct {
	StoreName    string
	CalendarName string
	Summary      string // Event title, already localized.
	Location     string
	Timezone     string
	Hours        []HoursRule
	Now          time.Time
}

// BuildCalendar renders the weekly opening hours as an iCalendar feed.
// Each rule that owns at least one weekday (first match wins, like Evaluate)
// becomes one weekly recurring event anchored in the current week.
// It returns the encoded feed and the number of events written.
func BuildCalendar(opts CalendarOptions) ([]byte, int, error) {
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return []byte(config.StubVCalendar), 0, nil
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)
	setExtendedText(cal.Props, config.PropXWRCalName, opts.CalendarName)
	setExtendedText(cal.Props, config.PropXWRTimezone, loc.String())

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(opts.Now.UTC())

	local := opts.Now.In(loc)
	monday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).
		AddDate(0, 0, -weekdayIndex(local.Weekday()))

	owned := make([][]int, len(opts.Hours))
	for day, idx := range WeeklySchedule(opts.Hours) {
		if idx >= 0 {
			owned[idx] = append(owned[idx], day)
		}
	}

	var events []*ical.Event
	for i, rule := range opts.Hours {
		days := owned[i]
		if len(days) == 0 {
			continue
		}

		openM, okOpen := parseClock(rule.Open)
		closeM, okClose := parseClock(rule.Close)
		if !okOpen || !okClose || closeM <= openM {
			slog.Debug(config.MsgSkippedRule,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyDays, rule.Days)
			continue
		}

		first := monday.AddDate(0, 0, days[0])
		start := first.Add(time.Duration(openM) * time.Minute)
		end := first.Add(time.Duration(closeM) * time.Minute)

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, ruleUID(opts.StoreName, i, rule))
		event.Props.Set(dtStampProp)
		event.Props.SetText(config.PropSummary, opts.Summary)
		if opts.Location != "" {
			event.Props.SetText(config.PropLocation, opts.Location)
		}

		dtStart := ical.NewProp(config.PropDTStart)
		dtStart.SetDateTime(start)
		event.Props.Set(dtStart)

		dtEnd := ical.NewProp(config.PropDTEnd)
		dtEnd.SetDateTime(end)
		event.Props.Set(dtEnd)

		event.Props.Set(recurrenceProp(days))
		events = append(events, event)
	}

	if len(events) == 0 {
		return []byte(config.StubVCalendar), 0, nil
	}

	cal.Children = append(cal.Children, timezoneComponent(loc, monday))
	for _, e := range events {
		cal.Children = append(cal.Children, e.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), len(events), nil
}

// recurrenceProp builds "RRULE:FREQ=WEEKLY;BYDAY=..." for the given weekdays.
func recurrenceProp(days []int) *ical.Prop {
	opt := rrule.ROption{Freq: rrule.WEEKLY}
	for _, d := range days {
		opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
	}

	// Set value manually: SetText would escape the ';' and ',' separators.
	prop := ical.NewProp(config.PropRRule)
	prop.Value = opt.RRuleString()
	return prop
}

// setExtendedText sets an escaped X- text property without a VALUE parameter.
// go-ical has no default type for X- names, so SetText alone adds VALUE=TEXT.
func setExtendedText(props ical.Props, name, text string) {
	prop := ical.NewProp(name)
	prop.SetText(text)
	prop.Params.Del(ical.ParamValue)
	props.Set(prop)
}

// timezoneComponent describes loc with a single STANDARD observance taken at ref.
// Store timezones of interest (Asia/Kolkata) have no daylight saving.
func timezoneComponent(loc *time.Location, ref time.Time) *ical.Component {
	offset := ref.Format(config.ICalOffsetFmt)

	std := ical.NewComponent(config.ICalStandard)
	for name, value := range map[string]string{
		config.PropDTStart:      config.ICalTZStart,
		config.PropTZOffsetFrom: offset,
		config.PropTZOffsetTo:   offset,
	} {
		// Raw values: these are not TEXT properties.
		prop := ical.NewProp(name)
		prop.Value = value
		std.Props.Set(prop)
	}

	tz := ical.NewComponent(config.ICalTimezone)
	tz.Props.SetText(config.PropTZID, loc.String())
	tz.Children = append(tz.Children, std)
	return tz
}

// ruleUID derives a stable UID so calendar clients update events in place across refreshes.
func ruleUID(store string, idx int, rule HoursRule) string {
	input := fmt.Sprintf(config.FormatHashInput, store, rule.Days+rule.Open+rule.Close, config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf(config.FormatUID, fmt.Sprintf("%x", hash[:config.UIDHashLength]), strconv.Itoa(idx), config.ICalDomain)
}
