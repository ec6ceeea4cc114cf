package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-storefront/internal/config"
	"github.com/tartampluch/go-storefront/internal/engine"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator holds the message catalogues and negotiates the response language.
type Translator struct {
	bundle  *i18n.Bundle
	matcher language.Matcher

	// Languages lists the catalogues that loaded successfully.
	Languages []string
}

// NewTranslator loads every embedded "active.<lang>.json" catalogue.
// English is always the first supported tag so negotiation falls back to it.
func NewTranslator() *Translator {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{bundle: bundle}

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		t.matcher = language.NewMatcher([]language.Tag{language.English})
		return t
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}

		t.Languages = append(t.Languages, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
		)
	}

	// Tags come back with the default language first.
	t.matcher = language.NewMatcher(bundle.LanguageTags())
	return t
}

// Negotiate picks the best catalogue for an explicit choice (e.g. "?lang=hi")
// and an Accept-Language header, in that order of precedence.
func (t *Translator) Negotiate(explicit, acceptLanguage string) string {
	tag, _ := language.MatchStrings(t.matcher, explicit, acceptLanguage)
	base, _ := tag.Base()
	return base.String()
}

// Localize translates a key. Missing keys return the key itself.
func (t *Translator) Localize(lang, key string, data map[string]any) string {
	msg, err := i18n.NewLocalizer(t.bundle, lang).Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil || msg == "" {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyLang, lang,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}

// Status returns the localized status line and badge for an evaluation.
// The engine's own message is kept when a translation is missing.
func (t *Translator) Status(lang string, st engine.Status) (message, badge string) {
	badgeKey := config.TKeyBadgeClosed
	if st.Open {
		badgeKey = config.TKeyBadgeOpen
	}
	badge = t.Localize(lang, badgeKey, nil)

	var key string
	var data map[string]any
	switch {
	case st.State == engine.StateOpen && st.Rule != nil:
		key = config.TKeyStatusOpen
		data = map[string]any{"Close": st.Rule.Close}
	case st.State == engine.StateClosed && st.Rule != nil:
		key = config.TKeyStatusClosed
		data = map[string]any{"Open": st.Rule.Open, "Days": st.Rule.Days}
	default:
		key = config.TKeyStatusUnavailable
	}

	message = t.Localize(lang, key, data)
	if message == key {
		message = st.Message
	}
	return message, badge
}

// CalendarName and Summary plug into engine.Generator for the given language.
func (t *Translator) CalendarName(lang string) func(name string) string {
	return t.nameFormatter(lang, config.TKeyCalName, config.FallbackCalName)
}

func (t *Translator) Summary(lang string) func(name string) string {
	return t.nameFormatter(lang, config.TKeyEvtSummary, config.FallbackSummary)
}

// Greeting returns the localized WhatsApp greeting for the store.
func (t *Translator) Greeting(lang, name string) string {
	msg := t.Localize(lang, config.TKeyWAGreeting, map[string]any{"Name": name})
	if msg == config.TKeyWAGreeting {
		return ""
	}
	return msg
}

func (t *Translator) nameFormatter(lang, key, fallback string) func(string) string {
	return func(name string) string {
		msg := t.Localize(lang, key, map[string]any{"Name": name})
		if msg == key {
			return fmt.Sprintf(fallback, name)
		}
		return msg
	}
}
