package engine

import (
	"bytes"
	"fmt"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-storefront/internal/config"
)

// Contact is the storefront identity published as a vCard.
type Contact struct {
	Name      string
	Tagline   string
	Phone     string // E.164
	WhatsApp  string // E.164
	Email     string
	Street    string
	Extended  string
	Locality  string
	Region    string
	Postal    string
	Country   string
	Latitude  float64
	Longitude float64
	HasGeo    bool
	URL       string
	Note      string
}

// BuildContactCard encodes the storefront as a vCard 4.0 organization card.
func BuildContactCard(c Contact) ([]byte, error) {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldVersion, config.VCardVersion)
	card.SetKind(vcard.KindOrganization)

	name := c.Name
	if name == "" {
		name = config.FallbackName
	}
	card.SetValue(vcard.FieldFormattedName, name)
	card.SetValue(vcard.FieldOrganization, name)

	if c.Phone != "" {
		card.Add(vcard.FieldTelephone, &vcard.Field{
			Value:  TelHref(c.Phone),
			Params: vcard.Params{vcard.ParamType: {vcard.TypeVoice, vcard.TypeWork}},
		})
	}
	if c.WhatsApp != "" && c.WhatsApp != c.Phone {
		card.Add(vcard.FieldTelephone, &vcard.Field{
			Value:  TelHref(c.WhatsApp),
			Params: vcard.Params{vcard.ParamType: {vcard.TypeCell, config.VCardTypeChat}},
		})
	}
	if c.Email != "" {
		card.Add(vcard.FieldEmail, &vcard.Field{
			Value:  c.Email,
			Params: vcard.Params{vcard.ParamType: {vcard.TypeWork}},
		})
	}

	if c.Street != "" || c.Locality != "" {
		card.AddAddress(&vcard.Address{
			Field:           &vcard.Field{Params: vcard.Params{vcard.ParamType: {vcard.TypeWork}}},
			StreetAddress:   c.Street,
			ExtendedAddress: c.Extended,
			Locality:        c.Locality,
			Region:          c.Region,
			PostalCode:      c.Postal,
			Country:         c.Country,
		})
	}

	if c.HasGeo {
		card.SetValue(vcard.FieldGeolocation, fmt.Sprintf(config.VCardGeoFmt, c.Latitude, c.Longitude))
	}
	if c.URL != "" {
		card.SetValue(vcard.FieldURL, c.URL)
	}
	if c.Note != "" {
		card.SetValue(vcard.FieldNote, c.Note)
	}
	if c.Tagline != "" {
		card.SetValue(vcard.FieldTitle, c.Tagline)
	}

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(card); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrVCardEncode, err)
	}
	return buf.Bytes(), nil
}
