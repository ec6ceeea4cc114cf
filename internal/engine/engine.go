package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tartampluch/go-storefront/internal/config"
)

// Profile is the engine's view of the site configuration.
type Profile struct {
	Name     string
	Timezone string
	Hours    []HoursRule
	Contact  Contact
	UPI      UPIRequest
	MapsURL  string
	Social   map[string]string
	Greeting string // Pre-filled WhatsApp message.
}

// Assets are the rendered artifacts published by the server.
type Assets struct {
	Calendar []byte
	Card     []byte
	Links    Links
	Hours    []HoursRule
	Timezone string
}

// Generator is the core service turning a Profile into publishable Assets.
type Generator struct {
	Clock Clock // Interface for time mocking.

	// FormatCalendarName and FormatSummary let the caller inject localized strings.
	FormatCalendarName func(name string) string
	FormatSummary      func(name string) string
}

// Generate renders the calendar feed, the contact card and the link set.
func (g *Generator) Generate(ctx context.Context, p Profile) (*Assets, error) {
	start := time.Now()
	log := slog.With(config.LogKeyComponent, config.CompEngine)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := g.Clock.Now()
	ics, events, err := BuildCalendar(CalendarOptions{
		StoreName:    p.Name,
		CalendarName: g.calendarName(p.Name),
		Summary:      g.summary(p.Name),
		Location:     oneLineAddress(p.Contact),
		Timezone:     p.Timezone,
		Hours:        p.Hours,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	card, err := BuildContactCard(p.Contact)
	if err != nil {
		return nil, err
	}

	assets := &Assets{
		Calendar: ics,
		Card:     card,
		Links:    buildLinks(p),
		Hours:    append([]HoursRule(nil), p.Hours...),
		Timezone: p.Timezone,
	}

	log.Info(config.MsgGenSuccess,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyRules, len(p.Hours)),
			slog.Int(config.LogKeyEvents, events),
		),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return assets, nil
}

func (g *Generator) calendarName(name string) string {
	if g.FormatCalendarName != nil {
		return g.FormatCalendarName(name)
	}
	return fmt.Sprintf(config.FallbackCalName, name)
}

func (g *Generator) summary(name string) string {
	if g.FormatSummary != nil {
		return g.FormatSummary(name)
	}
	return fmt.Sprintf(config.FallbackSummary, name)
}

func buildLinks(p Profile) Links {
	links := Links{
		Call:         TelHref(p.Contact.Phone),
		WhatsApp:     WhatsAppHref(p.Contact.WhatsApp, p.Greeting),
		WhatsAppChat: WhatsAppHref(p.Contact.WhatsApp, ""),
		Email:        MailtoHref(p.Contact.Email),
		Directions:   p.MapsURL,
	}
	if p.UPI.VPA != "" {
		links.UPI = UPIDeepLink(p.UPI)
	}
	for network, profileURL := range p.Social {
		if isBlank(profileURL) {
			continue
		}
		if links.Social == nil {
			links.Social = make(map[string]string)
		}
		links.Social[network] = profileURL
	}
	return links
}

func oneLineAddress(c Contact) string {
	var out string
	for _, part := range []string{c.Street, c.Extended, c.Locality, c.Region, c.Postal} {
		if isBlank(part) {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}
