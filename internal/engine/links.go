package engine

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/tartampluch/go-storefront/internal/config"
)

// Links is the set of action URLs published for the storefront buttons.
type Links struct {
	Call         string            `json:"call"`
	WhatsApp     string            `json:"whatsapp"`
	WhatsAppChat string            `json:"whatsapp_chat"`
	Email        string            `json:"email,omitempty"`
	Directions   string            `json:"directions,omitempty"`
	UPI          string            `json:"upi,omitempty"`
	Social       map[string]string `json:"social,omitempty"`
}

// UPIRequest holds the NPCI UPI linking parameters.
// Empty optional fields are left out of the deep link.
type UPIRequest struct {
	VPA          string // pa
	PayeeName    string // pn
	Amount       string // am
	Currency     string // cu, defaults to INR
	Note         string // tn
	MerchantCode string // mc
	TxnRef       string // tr
	URL          string // url
}

// TelHref builds an RFC 3966 link: "tel:+<digits>" without whitespace.
func TelHref(e164 string) string {
	return config.SchemeTel + strings.Join(strings.Fields(e164), "")
}

// WhatsAppHref builds a wa.me link for the number, keeping digits only.
// A non-empty text pre-fills the chat.
func WhatsAppHref(e164, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, e164)

	base := config.WhatsAppBase + digits
	if text == "" {
		return base
	}
	return base + "?" + config.WhatsAppText + "=" + encodeComponent(text)
}

// MailtoHref builds a mailto link, or "" when no address is configured.
func MailtoHref(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	return config.SchemeMailto + email
}

// UPIDeepLink builds a "upi://pay" link. Keys keep the order pa, pn, am, cu, tn, mc, tr, url.
func UPIDeepLink(p UPIRequest) string {
	currency := p.Currency
	if currency == "" {
		currency = config.DefaultCurrency
	}

	pairs := [][2]string{
		{config.UPIKeyPayee, p.VPA},
		{config.UPIKeyName, p.PayeeName},
		{config.UPIKeyAmount, p.Amount},
		{config.UPIKeyCurrency, currency},
		{config.UPIKeyNote, p.Note},
		{config.UPIKeyMerchant, p.MerchantCode},
		{config.UPIKeyTxnRef, p.TxnRef},
		{config.UPIKeyURL, p.URL},
	}

	var b strings.Builder
	b.WriteString(config.UPIPayPrefix)
	for i, kv := range pairs {
		// pa is always written, even when empty.
		if i > 0 && kv[1] == "" {
			continue
		}
		if b.Len() > len(config.UPIPayPrefix) {
			b.WriteByte('&')
		}
		b.WriteString(kv[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv[1]))
	}
	return b.String()
}

// encodeComponent percent-encodes text for a query value the way browsers
// encode a URI component: letters, digits and -_.!~*'() stay literal.
func encodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreservedComponent(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreservedComponent(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte(config.ComponentUnreserved, c) >= 0
}

// isBlank reports whether s holds only whitespace.
func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
