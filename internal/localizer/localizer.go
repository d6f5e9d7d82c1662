package localizer

import (
	"fmt"
	"sort"
	"sync"

	"wavespush/internal/models"
)

// FallbackLanguage is tried when a device's language has no translation.
const FallbackLanguage = "en"

// RequiredKeys are the translation keys the message pump renders. Missing
// (language, key) combinations are reported by Missing at start-up.
var RequiredKeys = []string{
	"orderFilledTitle",
	"orderFilledMessage",
	"orderPartFilledMessage",
	"priceAlertTitle",
	"priceAlertMessage",
	"buy",
	"sell",
}

// Localizer holds the translation table, key → language → text. The table is
// read-mostly: lookups take the read lock and Load swaps the whole map.
type Localizer struct {
	mu    sync.RWMutex
	table map[string]map[string]string
}

func New() *Localizer {
	return &Localizer{table: make(map[string]map[string]string)}
}

// Load replaces the table atomically.
func (l *Localizer) Load(table map[string]map[string]string) {
	l.mu.Lock()
	l.table = table
	l.mu.Unlock()
}

// Translate resolves a key for a language, falling back to English when the
// language has no entry. A key missing in the fallback too is fatal: the
// table is incomplete and the message cannot be rendered.
func (l *Localizer) Translate(lang, key string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	langs, ok := l.table[key]
	if !ok {
		return "", &models.FatalError{Reason: fmt.Sprintf("unknown translation key %q", key)}
	}
	if text, ok := langs[lang]; ok {
		return text, nil
	}
	if text, ok := langs[FallbackLanguage]; ok {
		return text, nil
	}
	return "", &models.FatalError{Reason: fmt.Sprintf("translation key %q has no %q fallback", key, FallbackLanguage)}
}

// Render translates a key and interpolates the substitutions into it.
func (l *Localizer) Render(lang, key string, subs map[string]string) (string, error) {
	text, err := l.Translate(lang, key)
	if err != nil {
		return "", err
	}
	return Interpolate(text, subs), nil
}

// Languages returns every language seen in the table, sorted.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, langs := range l.table {
		for lang := range langs {
			seen[lang] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for lang := range seen {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Missing reports every (language, key) combination absent from the table,
// over all observed languages and the given keys. The caller logs them as
// warnings; an incomplete table still serves via the English fallback.
func (l *Localizer) Missing(keys []string) []string {
	languages := l.Languages()

	l.mu.RLock()
	defer l.mu.RUnlock()

	var missing []string
	for _, lang := range languages {
		for _, key := range keys {
			if _, ok := l.table[key][lang]; !ok {
				missing = append(missing, lang+"/"+key)
			}
		}
	}
	return missing
}
