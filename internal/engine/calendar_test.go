package engine

import (
	"bytes"
	"strings"
	"testing"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-storefront/internal/config"
	"github.com/teambition/rrule-go"
)

func calendarOptions(t *testing.T, hours []HoursRule) CalendarOptions {
	return CalendarOptions{
		StoreName:    "Satya Store",
		CalendarName: "Satya Store opening hours",
		Summary:      "Satya Store is open",
		Location:     "12 Station Road, Rajkot",
		Timezone:     testZone,
		Hours:        hours,
		Now:          at(t, wed, 10, 0),
	}
}

func decodeCalendar(t *testing.T, data []byte) *ical.Calendar {
	t.Helper()
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	require.NoError(t, err, "feed must be valid iCalendar")
	return cal
}

func TestBuildCalendar_WeeklyEvents(t *testing.T) {
	data, events, err := BuildCalendar(calendarOptions(t, storeRules))
	require.NoError(t, err)
	assert.Equal(t, 2, events)

	cal := decodeCalendar(t, data)
	require.Len(t, cal.Events(), 2)

	text := string(data)
	assert.Contains(t, text, "X-WR-CALNAME:Satya Store opening hours")
	assert.Contains(t, text, "X-WR-TIMEZONE:Asia/Kolkata")
	assert.Contains(t, text, "BEGIN:VTIMEZONE")
	assert.Contains(t, text, "TZOFFSETTO:+0530")

	// Anchored on Monday of the current week: 2025-10-20.
	assert.Contains(t, text, "TZID=Asia/Kolkata:20251020T090000")
	assert.Contains(t, text, "TZID=Asia/Kolkata:20251020T210000")
	assert.Contains(t, text, "TZID=Asia/Kolkata:20251026T100000")
	assert.Contains(t, text, "TZID=Asia/Kolkata:20251026T140000")

	assert.Contains(t, text, "RRULE:FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR,SA")
	assert.Contains(t, text, "RRULE:FREQ=WEEKLY;BYDAY=SU")
	assert.Contains(t, text, "LOCATION:12 Station Road\\, Rajkot")
}

// TestBuildCalendar_RecurrenceParses feeds each RRULE back through the rrule parser.
func TestBuildCalendar_RecurrenceParses(t *testing.T) {
	data, _, err := BuildCalendar(calendarOptions(t, storeRules))
	require.NoError(t, err)

	var days []int
	for _, event := range decodeCalendar(t, data).Events() {
		prop := event.Props.Get(config.PropRRule)
		require.NotNil(t, prop)

		opt, err := rrule.StrToROption(prop.Value)
		require.NoError(t, err)
		assert.Equal(t, rrule.WEEKLY, opt.Freq)
		days = append(days, len(opt.Byweekday))
	}
	assert.ElementsMatch(t, []int{6, 1}, days)
}

// TestBuildCalendar_FirstMatchOwnsDay checks that a day claimed by an earlier
// rule is not repeated by a later overlapping one.
func TestBuildCalendar_FirstMatchOwnsDay(t *testing.T) {
	rules := []HoursRule{
		{Days: "Mon–Fri", Open: "09:00", Close: "17:00"},
		{Days: "Fri–Sun", Open: "10:00", Close: "13:00"},
		{Days: "Tue", Open: "08:00", Close: "09:00"}, // fully shadowed
	}

	data, events, err := BuildCalendar(calendarOptions(t, rules))
	require.NoError(t, err)
	assert.Equal(t, 2, events)

	text := string(data)
	assert.Contains(t, text, "BYDAY=MO,TU,WE,TH,FR")
	assert.Contains(t, text, "BYDAY=SA,SU")
	assert.Equal(t, 2, strings.Count(text, "BEGIN:VEVENT"))
}

func TestBuildCalendar_StableUIDs(t *testing.T) {
	opts := calendarOptions(t, storeRules)
	first, _, err := BuildCalendar(opts)
	require.NoError(t, err)

	opts.Now = at(t, fri, 18, 30)
	second, _, err := BuildCalendar(opts)
	require.NoError(t, err)

	uids := func(data []byte) []string {
		var out []string
		for _, e := range decodeCalendar(t, data).Events() {
			uid, err := e.Props.Text(config.PropUID)
			require.NoError(t, err)
			out = append(out, uid)
		}
		return out
	}

	firstUIDs := uids(first)
	assert.Equal(t, firstUIDs, uids(second))
	assert.NotEqual(t, firstUIDs[0], firstUIDs[1])
	assert.True(t, strings.HasSuffix(firstUIDs[0], "@"+config.ICalDomain))
}

func TestBuildCalendar_Stub(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		hours    []HoursRule
	}{
		{"NoRules", testZone, nil},
		{"InvalidTimezone", "Not/AZone", storeRules},
		{"UnparseableTimes", testZone, []HoursRule{{Days: "Mon", Open: "late", Close: "later"}}},
		{"CloseBeforeOpen", testZone, []HoursRule{{Days: "Mon", Open: "18:00", Close: "09:00"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := calendarOptions(t, tt.hours)
			opts.Timezone = tt.timezone

			data, events, err := BuildCalendar(opts)
			require.NoError(t, err)
			assert.Zero(t, events)
			assert.Equal(t, config.StubVCalendar, string(data))
		})
	}
}

func TestBuildCalendar_NoLocation(t *testing.T) {
	opts := calendarOptions(t, storeRules)
	opts.Location = ""

	data, _, err := BuildCalendar(opts)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "LOCATION")
}

// TestBuildCalendar_ExtendedProps checks that the X-WR properties are written
// bare, escaped, and read back as text.
func TestBuildCalendar_ExtendedProps(t *testing.T) {
	opts := calendarOptions(t, storeRules)
	opts.CalendarName = "Satya Store, Rajkot; weekly hours"

	data, _, err := BuildCalendar(opts)
	require.NoError(t, err)

	text := string(data)
	assert.NotContains(t, text, "VALUE=TEXT")
	assert.Contains(t, text, "X-WR-CALNAME:Satya Store\\, Rajkot\\; weekly hours\r\n")
	assert.Contains(t, text, "X-WR-TIMEZONE:Asia/Kolkata\r\n")

	cal := decodeCalendar(t, data)
	name, err := cal.Props.Text(config.PropXWRCalName)
	require.NoError(t, err)
	assert.Equal(t, opts.CalendarName, name)

	zone, err := cal.Props.Text(config.PropXWRTimezone)
	require.NoError(t, err)
	assert.Equal(t, testZone, zone)
}
