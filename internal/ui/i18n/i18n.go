// Package i18n holds the console's message catalogs.
//
// Catalogs are flat JSON objects (key → text) embedded at build time,
// one per language. Turkish is the default; English is the fallback for
// keys missing from another catalog. Format strings are applied with
// fmt.Sprintf at lookup time.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/text/language"
)

// Default is the language used when nothing better matches.
const Default = "tr"

const fallback = "en"

//go:embed locales/*.json
var localeFS embed.FS

// supported lists the catalog languages in preference order.
var supported = []language.Tag{
	language.Turkish,
	language.English,
}

var matcher = language.NewMatcher(supported)

// Bundle stores the translations of every language.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]map[string]string
}

// NewBundle creates an empty Bundle.
func NewBundle() *Bundle {
	return &Bundle{catalogs: make(map[string]map[string]string)}
}

// Load returns a Bundle with the embedded catalogs.
func Load(logger *slog.Logger) (*Bundle, error) {
	b := NewBundle()
	for _, lang := range []string{"tr", "en"} {
		path := fmt.Sprintf("locales/%s.json", lang)
		data, err := localeFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", path, err)
		}
		if err := b.LoadMessages(lang, data); err != nil {
			return nil, err
		}
	}
	logger.Debug("i18n catalogs loaded", slog.Int("languages", len(b.catalogs)))
	return b, nil
}

// LoadMessages installs (or replaces) the catalog of lang.
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: parse catalog %s: %w", lang, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalogs[lang] = messages
	return nil
}

// Translate looks key up in lang, then in the fallback catalog. Unknown
// keys come back unchanged so they are easy to spot on screen.
func (b *Bundle) Translate(lang, key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if msg, ok := b.catalogs[lang][key]; ok {
		return msg
	}
	if msg, ok := b.catalogs[fallback][key]; ok {
		return msg
	}
	return key
}

// Localizer returns a Localizer bound to the best catalog for pref,
// which may be a bare tag ("en") or an Accept-Language value.
func (b *Bundle) Localizer(pref string) Localizer {
	return Localizer{bundle: b, lang: MatchLanguage(pref)}
}

// MatchLanguage maps a language preference onto a supported catalog.
// Anything unsupported resolves to Default.
func MatchLanguage(pref string) string {
	if pref == "" {
		return Default
	}
	tag, _ := language.MatchStrings(matcher, pref)
	base, _ := tag.Base()
	return base.String()
}

// Localizer translates into one language.
type Localizer struct {
	bundle *Bundle
	lang   string
}

// Lang is the catalog this localizer reads.
func (l Localizer) Lang() string {
	return l.lang
}

// T returns the text of key.
func (l Localizer) T(key string) string {
	if l.bundle == nil {
		return key
	}
	return l.bundle.Translate(l.lang, key)
}

// Tf formats the text of key with args.
func (l Localizer) Tf(key string, args ...any) string {
	return sprintf(l.T(key), args...)
}

// Month returns the abbreviated name of month m.
func (l Localizer) Month(m int) string {
	return l.T(fmt.Sprintf("month.%d", m))
}

// sprintf goes through a variable because the format strings live in
// the catalogs and cannot be checked by vet.
var sprintf = fmt.Sprintf
