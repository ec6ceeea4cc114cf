package site

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tartampluch/go-storefront/internal/config"
	"github.com/tartampluch/go-storefront/internal/engine"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/site.yaml
var defaultSite []byte

// Site is the static storefront configuration.
type Site struct {
	Business Business `yaml:"business"`
	UPI      UPI      `yaml:"upi"`
	Map      Map      `yaml:"map"`
	Social   Social   `yaml:"social"`
	Gallery  []Image  `yaml:"gallery"`
	Theme    Theme    `yaml:"theme"`
	Site     Meta     `yaml:"site"`
	Messages Messages `yaml:"messages"`
}

type Business struct {
	Name         string             `yaml:"name"`
	Tagline      string             `yaml:"tagline"`
	About        string             `yaml:"about"`
	PhoneE164    string             `yaml:"phoneE164"`
	WhatsappE164 string             `yaml:"whatsappE164"`
	Email        string             `yaml:"email"`
	Address      Address            `yaml:"address"`
	Geo          *Geo               `yaml:"geo"`
	Hours        []engine.HoursRule `yaml:"hours"`
	Timezone     string             `yaml:"timezone"`
}

type Address struct {
	Line1      string `yaml:"line1"`
	Line2      string `yaml:"line2"`
	City       string `yaml:"city"`
	State      string `yaml:"state"`
	PostalCode string `yaml:"postalCode"`
	Country    string `yaml:"country"`
}

type Geo struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

type UPI struct {
	VPA          string `yaml:"vpa"`
	MerchantName string `yaml:"merchantName"`
	MerchantCode string `yaml:"merchantCode"`
	Note         string `yaml:"note"`
	QRImage      string `yaml:"qrImage"`
}

type Map struct {
	EmbedSrc      string `yaml:"embedSrc"`
	OpenInMapsURL string `yaml:"openInMapsUrl"`
}

type Social struct {
	Instagram string `yaml:"instagram"`
	Facebook  string `yaml:"facebook"`
	YouTube   string `yaml:"youtube"`
}

type Image struct {
	Src string `yaml:"src"`
	Alt string `yaml:"alt"`
}

type Theme struct {
	Logo string `yaml:"logo"`
}

type Meta struct {
	URL string `yaml:"url"`
}

type Messages struct {
	WhatsAppGreeting string `yaml:"whatsappGreeting"`
}

// Default returns the configuration embedded in the binary.
func Default() (*Site, error) {
	return Parse(defaultSite)
}

// Parse decodes and validates a YAML site configuration.
// A missing timezone defaults to config.DefaultTimezone.
func Parse(data []byte) (*Site, error) {
	var s Site
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSiteParse, err)
	}
	if strings.TrimSpace(s.Business.Timezone) == "" {
		s.Business.Timezone = config.DefaultTimezone
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the fields the service cannot work without.
// Opening hours are deliberately left alone: a malformed rule only ever
// degrades the status to "Hours unavailable".
func (s *Site) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Business.Name) == "" {
		errs = append(errs, errors.New(config.ErrNameRequired))
	}
	if strings.TrimSpace(s.Business.PhoneE164) == "" {
		errs = append(errs, errors.New(config.ErrPhoneRequired))
	}
	if _, err := time.LoadLocation(s.Business.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("%s %q: %w", config.ErrTimezone, s.Business.Timezone, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", config.ErrSiteInvalid, errors.Join(errs...))
	}
	return nil
}

// WhatsApp returns the WhatsApp number, falling back to the phone number.
func (b Business) WhatsApp() string {
	if strings.TrimSpace(b.WhatsappE164) != "" {
		return b.WhatsappE164
	}
	return b.PhoneE164
}

// Profile maps the configuration to the engine input.
// fallbackGreeting pre-fills WhatsApp chats when the configuration has no greeting.
func (s *Site) Profile(fallbackGreeting string) engine.Profile {
	greeting := s.Messages.WhatsAppGreeting
	if greeting == "" {
		greeting = fallbackGreeting
	}

	b := s.Business
	contact := engine.Contact{
		Name:     b.Name,
		Tagline:  b.Tagline,
		Phone:    b.PhoneE164,
		WhatsApp: b.WhatsApp(),
		Email:    b.Email,
		Street:   b.Address.Line1,
		Extended: b.Address.Line2,
		Locality: b.Address.City,
		Region:   b.Address.State,
		Postal:   b.Address.PostalCode,
		Country:  b.Address.Country,
		URL:      s.Site.URL,
		Note:     b.About,
	}
	if b.Geo != nil {
		contact.HasGeo = true
		contact.Latitude = b.Geo.Lat
		contact.Longitude = b.Geo.Lng
	}

	payee := s.UPI.MerchantName
	if payee == "" {
		payee = b.Name
	}

	return engine.Profile{
		Name:     b.Name,
		Timezone: b.Timezone,
		Hours:    b.Hours,
		Contact:  contact,
		UPI: engine.UPIRequest{
			VPA:          s.UPI.VPA,
			PayeeName:    payee,
			Note:         s.UPI.Note,
			MerchantCode: s.UPI.MerchantCode,
			URL:          s.Site.URL,
		},
		MapsURL: s.Map.OpenInMapsURL,
		Social: map[string]string{
			config.SocialInstagram: s.Social.Instagram,
			config.SocialFacebook:  s.Social.Facebook,
			config.SocialYouTube:   s.Social.YouTube,
		},
		Greeting: greeting,
	}
}
