// Package settings holds the user-facing journal settings and a store that
// lets running services pick up changes without restarting.
package settings

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/leanjournal/internal/dateformat"
	pkgconfig "github.com/starford/leanjournal/pkg/config"
)

// Settings are the persisted journal options.
type Settings struct {
	JournalFilePath   string `yaml:"journalFilePath" toml:"journalFilePath" json:"journalFilePath"`
	DateFormat        string `yaml:"dateFormat" toml:"dateFormat" json:"dateFormat"`
	TimeFormat        string `yaml:"timeFormat" toml:"timeFormat" json:"timeFormat"`
	EnableAutoMOC     bool   `yaml:"enableAutoMOC" toml:"enableAutoMOC" json:"enableAutoMOC"`
	MOCFolderPath     string `yaml:"mocFolderPath" toml:"mocFolderPath" json:"mocFolderPath"`
	MOCUpdateInterval int    `yaml:"mocUpdateInterval" toml:"mocUpdateInterval" json:"mocUpdateInterval"` // minutes
	Debug             bool   `yaml:"debug" toml:"debug" json:"debug"`
}

// Defaults returns the settings used when nothing has been persisted.
func Defaults() Settings {
	return Settings{
		JournalFilePath:   "Journal.md",
		DateFormat:        "YYYY-MM-DD",
		TimeFormat:        "HH:mm",
		EnableAutoMOC:     false,
		MOCFolderPath:     "Daily Notes",
		MOCUpdateInterval: 15,
		Debug:             false,
	}
}

var errNoTokens = errors.New("must contain at least one date or time token")

func validPattern(value any) error {
	s, _ := value.(string)
	if !dateformat.Valid(s) {
		return errNoTokens
	}
	return nil
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.JournalFilePath, validation.Required),
		validation.Field(&s.DateFormat, validation.Required, validation.By(validPattern)),
		validation.Field(&s.TimeFormat, validation.Required, validation.By(validPattern)),
		validation.Field(&s.MOCUpdateInterval, validation.Required, validation.Min(1)),
	)
}

// Load reads persisted settings from path over the defaults. A missing file
// yields the defaults.
func Load(path string) (Settings, error) {
	s := Defaults()
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err := pkgconfig.Load(path, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	return s, nil
}

// Save validates s and persists it to path.
func Save(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := pkgconfig.Save(path, &s); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}

// Store holds the current settings snapshot.
type Store struct {
	v atomic.Pointer[Settings]
}

// NewStore returns a store holding s.
func NewStore(s Settings) *Store {
	st := &Store{}
	st.Set(s)
	return st
}

// Get returns the current snapshot.
func (st *Store) Get() Settings {
	return *st.v.Load()
}

// Set replaces the snapshot and returns the previous one.
func (st *Store) Set(s Settings) Settings {
	prev := st.v.Swap(&s)
	if prev == nil {
		return Settings{}
	}
	return *prev
}
