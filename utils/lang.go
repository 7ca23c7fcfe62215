package utils

import (
	"path"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"
)

var (
	bundle     *i18n.Bundle
	bundleLock sync.RWMutex
)

var languageFiles = []string{"en.yaml", "zh_tw.yaml"}

func InitI18NBundle() {
	if err := LoadI18NBundle(viper.GetString("i18n.dir")); err != nil {
		panic(err)
	}
}

// LoadI18NBundle loads the message files under dir as the shared bundle
func LoadI18NBundle(dir string) error {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	for _, f := range languageFiles {
		if _, err := b.LoadMessageFile(path.Join(dir, f)); err != nil {
			return err
		}
	}

	bundleLock.Lock()
	bundle = b
	bundleLock.Unlock()
	return nil
}

// NewLocalizer returns a localizer for lang. Before any bundle is loaded
// only default messages are available.
func NewLocalizer(lang string) *i18n.Localizer {
	bundleLock.RLock()
	b := bundle
	bundleLock.RUnlock()

	if b == nil {
		b = i18n.NewBundle(language.English)
	}
	return i18n.NewLocalizer(b, lang)
}
