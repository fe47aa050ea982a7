// Package i18n is the reference Translator: a small embedded message
// catalog with the locale fallback table the original appmanager used -
// CZ, ES, FR and NL collapse to EN; DE and EN are served directly.
package i18n

import (
	"context"
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/ports"
)

//go:embed messages/*.yaml
var messagesFS embed.FS

// Translator is the reference ports.Translator.
type Translator struct {
	bundles map[domain.Language]map[string]string
}

var _ ports.Translator = (*Translator)(nil)

// Load reads every messages/<lang>.yaml file embedded alongside this
// package into an in-memory bundle table.
func Load() (*Translator, error) {
	bundles := make(map[domain.Language]map[string]string)
	entries, err := messagesFS.ReadDir("messages")
	if err != nil {
		return nil, fmt.Errorf("i18n: reading bundle directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lang := domain.Language(trimYAMLExt(entry.Name()))
		data, err := messagesFS.ReadFile("messages/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("i18n: reading %s: %w", entry.Name(), err)
		}
		var bundle map[string]string
		if err := yaml.Unmarshal(data, &bundle); err != nil {
			return nil, fmt.Errorf("i18n: decoding %s: %w", entry.Name(), err)
		}
		bundles[lang] = bundle
	}
	return &Translator{bundles: bundles}, nil
}

func trimYAMLExt(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return name
}

// resolveLanguage applies the fallback table: CZ, ES, FR and NL have no
// bundle of their own and collapse to EN; DE and EN are left unchanged.
func resolveLanguage(language domain.Language) domain.Language {
	switch language {
	case domain.LanguageCZ, domain.LanguageES, domain.LanguageFR, domain.LanguageNL:
		return domain.LanguageEN
	case domain.LanguageDE, domain.LanguageEN:
		return language
	default:
		return domain.LanguageEN
	}
}

// Translate looks up key in language's bundle (after fallback), formatting
// it with args via fmt.Sprintf-style verbs. An unknown key returns itself,
// so a missing translation degrades to the key name rather than failing
// the operation it is decorating.
func (t *Translator) Translate(_ context.Context, language domain.Language, key string, args ...any) (string, error) {
	bundle := t.bundles[resolveLanguage(language)]
	template, ok := bundle[key]
	if !ok {
		template = t.bundles[domain.LanguageEN][key]
	}
	if template == "" {
		return key, nil
	}
	if len(args) == 0 {
		return template, nil
	}
	return fmt.Sprintf(template, args...), nil
}
