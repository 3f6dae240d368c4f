package infra

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

//go:embed locales/*.toml
var localeFS embed.FS

// CatalogResolver implements domain.StringResolver from an embedded
// catalog of Settings labels, one TOML file per language.
type CatalogResolver struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	tag       language.Tag
}

// NewCatalogResolver loads the catalog and matches it to the device
// locale. An unparsable locale falls back to English.
func NewCatalogResolver(locale string) (*CatalogResolver, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(localeFS, "locales/*.toml")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(localeFS, f); err != nil {
			return nil, fmt.Errorf("load catalog %s: %w", path.Base(f), err)
		}
	}

	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		tag = language.English
	}

	return &CatalogResolver{
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, tag.String()),
		tag:       tag,
	}, nil
}

// Resolve returns the label for key as Settings shows it. Keys missing
// from the device language resolve to the English label.
func (r *CatalogResolver) Resolve(ctx context.Context, pkg, key string) (string, error) {
	if pkg != domain.SettingsPackage {
		return "", fmt.Errorf("no catalog for package %s", pkg)
	}
	msg, err := r.localizer.Localize(&i18n.LocalizeConfig{MessageID: key})
	var notFound *i18n.MessageNotFoundErr
	if errors.As(err, &notFound) && msg != "" {
		// Untranslated in the device language; msg holds the English label.
		return msg, nil
	}
	return msg, err
}

// Language returns the catalog language chosen for the device locale.
func (r *CatalogResolver) Language() language.Tag {
	matcher := language.NewMatcher(r.bundle.LanguageTags())
	_, i, _ := matcher.Match(r.tag)
	return r.bundle.LanguageTags()[i]
}

// Ensure CatalogResolver implements domain.StringResolver.
var _ domain.StringResolver = (*CatalogResolver)(nil)
