// Package config persists user settings in a TOML file: search flags,
// translation enablement and priority, the truncation budget and recent
// search history.
package config

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
)

// HistorySize is the number of recent queries kept.
const HistorySize = 10

// DirName is the settings directory under the user's home.
const DirName = ".juniper-search"

// Search holds the per-query flags.
type Search struct {
	CaseSensitive bool `toml:"case_sensitive"`
	UniqueVerses  bool `toml:"unique_verses"`
	Abbreviate    bool `toml:"abbreviate"`
	// Truncate is the abbreviated-mode rune budget. Zero disables it.
	Truncate int `toml:"truncate"`
}

// Translation is a user override for one translation.
type Translation struct {
	ID       string `toml:"id"`
	Enabled  bool   `toml:"enabled"`
	Priority int    `toml:"priority"`
}

// Config is the settings file content.
type Config struct {
	// Database is the corpus path. Empty means corpus.db in the settings
	// directory.
	Database     string        `toml:"database,omitempty"`
	Search       Search        `toml:"search"`
	Translations []Translation `toml:"translations"`
	History      []string      `toml:"history"`
}

// Validate checks translation ids and that priorities are unique.
func (c *Config) Validate() error {
	if c.Search.Truncate < 0 {
		return errors.NewValidation("search.truncate", "must not be negative")
	}
	ids := make(map[string]bool, len(c.Translations))
	priorities := make(map[int]string, len(c.Translations))
	for _, t := range c.Translations {
		if len(t.ID) != 3 {
			return errors.NewValidation("translations.id", fmt.Sprintf("%q must be exactly 3 letters", t.ID))
		}
		if ids[t.ID] {
			return errors.NewValidation("translations.id", fmt.Sprintf("%s listed twice", t.ID))
		}
		ids[t.ID] = true
		if t.Priority < 1 {
			return errors.NewValidation("translations.priority", fmt.Sprintf("%s: priority must be at least 1", t.ID))
		}
		if other, ok := priorities[t.Priority]; ok {
			return errors.NewValidation("translations.priority",
				fmt.Sprintf("%s and %s share priority %d", other, t.ID, t.Priority))
		}
		priorities[t.Priority] = t.ID
	}
	return nil
}

// AddHistory records a query at the front of the history. A repeated query
// moves to the front instead of appearing twice.
func (c *Config) AddHistory(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	h := make([]string, 0, HistorySize)
	h = append(h, query)
	for _, q := range c.History {
		if q != query && len(h) < HistorySize {
			h = append(h, q)
		}
	}
	c.History = h
}

// SetEnabled enables or disables a translation, adding an override entry
// ranked last when none exists.
func (c *Config) SetEnabled(id string, enabled bool) {
	for i := range c.Translations {
		if c.Translations[i].ID == id {
			c.Translations[i].Enabled = enabled
			return
		}
	}
	c.Translations = append(c.Translations, Translation{ID: id, Enabled: enabled, Priority: c.nextPriority()})
}

// SetOrder renumbers priorities so ids come first, in order, followed by
// the remaining known translations in their current order.
func (c *Config) SetOrder(ids []string, catalog []search.Translation) {
	current := c.Apply(catalog)
	byID := make(map[string]Translation, len(c.Translations))
	for _, t := range c.Translations {
		byID[t.ID] = t
	}
	for _, t := range current {
		if _, ok := byID[t.ID]; !ok {
			byID[t.ID] = Translation{ID: t.ID, Enabled: t.Enabled}
		}
	}

	var order []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if _, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	for _, t := range current {
		if !seen[t.ID] {
			seen[t.ID] = true
			order = append(order, t.ID)
		}
	}
	for _, t := range c.Translations {
		if !seen[t.ID] {
			seen[t.ID] = true
			order = append(order, t.ID)
		}
	}

	out := make([]Translation, len(order))
	for i, id := range order {
		t := byID[id]
		t.Priority = i + 1
		out[i] = t
	}
	c.Translations = out
}

// Remove drops the override for id.
func (c *Config) Remove(id string) {
	c.Translations = slices.DeleteFunc(c.Translations, func(t Translation) bool { return t.ID == id })
}

func (c *Config) nextPriority() int {
	p := 0
	for _, t := range c.Translations {
		p = max(p, t.Priority)
	}
	return p + 1
}

// Apply overlays the overrides on a translation catalog and returns it in
// priority order. Configured translations come first by priority; the rest
// follow in catalog order. Overrides for translations missing from the
// catalog are ignored.
func (c *Config) Apply(catalog []search.Translation) []search.Translation {
	overrides := make(map[string]Translation, len(c.Translations))
	for _, t := range c.Translations {
		overrides[t.ID] = t
	}

	var configured, rest []search.Translation
	for _, t := range catalog {
		if o, ok := overrides[t.ID]; ok {
			t.Enabled = o.Enabled
			t.Rank = o.Priority
			configured = append(configured, t)
		} else {
			rest = append(rest, t)
		}
	}
	slices.SortStableFunc(configured, func(a, b search.Translation) int {
		return cmp.Compare(a.Rank, b.Rank)
	})

	out := append(configured, rest...)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Settings builds engine settings from the flags and the overlaid catalog.
func (c *Config) Settings(catalog []search.Translation) search.Settings {
	return search.Settings{
		CaseSensitive: c.Search.CaseSensitive,
		UniqueVerse:   c.Search.UniqueVerses,
		Abbreviate:    c.Search.Abbreviate,
		Truncate:      c.Search.Truncate,
		Translations:  c.Apply(catalog),
	}
}

// Only enables exactly the translations named by ids and disables the rest,
// keeping their order. Ids are case-insensitive; an id missing from
// settings is an error.
func Only(settings *search.Settings, ids []string) error {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[strings.ToUpper(strings.TrimSpace(id))] = true
	}
	for i := range settings.Translations {
		t := &settings.Translations[i]
		t.Enabled = want[t.ID]
		delete(want, t.ID)
	}
	for id := range want {
		return errors.NewNotFound("translation", id)
	}
	return nil
}

// File is a Config bound to a path. It is safe for concurrent use.
type File struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// DefaultDir returns ~/.juniper-search.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

// DefaultPath returns ~/.juniper-search/config.toml.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the settings file at path. A missing file yields defaults.
func Load(path string) (*File, error) {
	f := &File{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, errors.NewIO("read", path, err)
	}
	if err := toml.Unmarshal(data, &f.cfg); err != nil {
		return nil, errors.NewParse("TOML", path, err.Error())
	}
	if err := f.cfg.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the settings file path.
func (f *File) Path() string {
	return f.path
}

// Config returns a copy of the current settings.
func (f *File) Config() Config {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c := f.cfg
	c.Translations = slices.Clone(f.cfg.Translations)
	c.History = slices.Clone(f.cfg.History)
	return c
}

// DatabasePath resolves the corpus path.
func (f *File) DatabasePath() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.cfg.Database != "" {
		return f.cfg.Database
	}
	return filepath.Join(filepath.Dir(f.path), "corpus.db")
}

// Update applies fn to a copy of the settings, validates the result and
// persists it. The in-memory settings change only when the save succeeds.
func (f *File) Update(fn func(*Config) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := f.cfg
	c.Translations = slices.Clone(f.cfg.Translations)
	c.History = slices.Clone(f.cfg.History)
	if err := fn(&c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := save(f.path, &c); err != nil {
		return err
	}
	f.cfg = c
	return nil
}

func save(path string, c *Config) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.NewIO("mkdir", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}
