package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/internal/config"
	"github.com/FocuswithJustin/JuniperSearch/internal/store"
)

// TranslationsGroup manages which translations are searched and their
// priority. Changes are saved in the settings file unless --corpus is given,
// which changes the defaults stored with the corpus for every user.
type TranslationsGroup struct {
	List    TranslationsListCmd    `cmd:"" default:"1" help:"List translations in priority order"`
	Enable  TranslationsEnableCmd  `cmd:"" help:"Enable translations"`
	Disable TranslationsDisableCmd `cmd:"" help:"Disable translations"`
	Order   TranslationsOrderCmd   `cmd:"" help:"Set priority order (first = highest)"`
	Remove  TranslationsRemoveCmd  `cmd:"" help:"Delete a translation and its verses from the corpus"`
}

type TranslationsListCmd struct{}

func (c *TranslationsListCmd) Run(ctx context.Context, g *Globals) error {
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	catalog, err := e.store.Translations(ctx)
	if err != nil {
		return err
	}
	if len(catalog) == 0 {
		fmt.Fprintln(stdout, "No translations. Import one with `juniper-search ingest <file>`.")
		return nil
	}

	prefs := e.cfg.Config()
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tID\tNAME\tVERSES\tENABLED")
	for _, t := range prefs.Apply(catalog) {
		n, err := e.store.VerseCount(ctx, t.ID)
		if err != nil {
			return err
		}
		enabled := "no"
		if t.Enabled {
			enabled = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.Rank, t.ID, t.Name, humanize.Comma(int64(n)), enabled)
	}
	return tw.Flush()
}

// ids normalizes translation ids and checks them against the corpus.
func ids(ctx context.Context, st *store.Store, raw []string) ([]string, error) {
	catalog, err := st.Translations(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(catalog))
	for _, t := range catalog {
		known[t.ID] = true
	}
	out := make([]string, 0, len(raw))
	for _, id := range raw {
		id = store.NormalizeTranslationID(id)
		if !known[id] {
			return nil, errors.NewNotFound("translation", id)
		}
		out = append(out, id)
	}
	return out, nil
}

func setEnabled(ctx context.Context, g *Globals, raw []string, enabled, corpus bool) error {
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	list, err := ids(ctx, e.store, raw)
	if err != nil {
		return err
	}
	if corpus {
		for _, id := range list {
			if err := e.store.SetEnabled(ctx, id, enabled); err != nil {
				return err
			}
		}
	} else if err := e.cfg.Update(func(cfg *config.Config) error {
		for _, id := range list {
			cfg.SetEnabled(id, enabled)
		}
		return nil
	}); err != nil {
		return err
	}

	state := "Disabled"
	if enabled {
		state = "Enabled"
	}
	fmt.Fprintf(stdout, "%s %s\n", state, strings.Join(list, ", "))
	return nil
}

type TranslationsEnableCmd struct {
	IDs    []string `arg:"" name:"id" help:"Translation ids"`
	Corpus bool     `help:"Change the corpus default instead of the settings file"`
}

func (c *TranslationsEnableCmd) Run(ctx context.Context, g *Globals) error {
	return setEnabled(ctx, g, c.IDs, true, c.Corpus)
}

type TranslationsDisableCmd struct {
	IDs    []string `arg:"" name:"id" help:"Translation ids"`
	Corpus bool     `help:"Change the corpus default instead of the settings file"`
}

func (c *TranslationsDisableCmd) Run(ctx context.Context, g *Globals) error {
	return setEnabled(ctx, g, c.IDs, false, c.Corpus)
}

type TranslationsOrderCmd struct {
	IDs    []string `arg:"" name:"id" help:"Translation ids, highest priority first; unlisted ones follow"`
	Corpus bool     `help:"Change the corpus default instead of the settings file"`
}

func (c *TranslationsOrderCmd) Run(ctx context.Context, g *Globals) error {
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	list, err := ids(ctx, e.store, c.IDs)
	if err != nil {
		return err
	}
	if c.Corpus {
		if err := e.store.SetOrder(ctx, list); err != nil {
			return err
		}
	} else {
		catalog, err := e.store.Translations(ctx)
		if err != nil {
			return err
		}
		if err := e.cfg.Update(func(cfg *config.Config) error {
			cfg.SetOrder(list, catalog)
			return nil
		}); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "Priority: %s\n", strings.Join(list, " > "))
	return nil
}

type TranslationsRemoveCmd struct {
	ID string `arg:"" help:"Translation id"`
}

func (c *TranslationsRemoveCmd) Run(ctx context.Context, g *Globals) error {
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	id := store.NormalizeTranslationID(c.ID)
	if err := e.store.DeleteTranslation(ctx, id); err != nil {
		return err
	}
	if err := e.cfg.Update(func(cfg *config.Config) error {
		cfg.Remove(id)
		return nil
	}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Removed %s\n", id)
	return nil
}

// SettingsGroup shows and changes the saved search flags.
type SettingsGroup struct {
	Show SettingsShowCmd `cmd:"" default:"1" help:"Show saved settings"`
	Set  SettingsSetCmd  `cmd:"" help:"Change a saved setting"`
}

type SettingsShowCmd struct{}

func (c *SettingsShowCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	s := cfg.Config().Search
	fmt.Fprintf(stdout, "settings file   %s\n", cfg.Path())
	fmt.Fprintf(stdout, "case_sensitive  %t\n", s.CaseSensitive)
	fmt.Fprintf(stdout, "unique_verses   %t\n", s.UniqueVerses)
	fmt.Fprintf(stdout, "abbreviate      %t\n", s.Abbreviate)
	fmt.Fprintf(stdout, "truncate        %d\n", s.Truncate)
	return nil
}

type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting name" enum:"case_sensitive,unique_verses,abbreviate,truncate"`
	Value string `arg:"" help:"New value (true/false, or a number for truncate)"`
}

func (c *SettingsSetCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	err = cfg.Update(func(conf *config.Config) error {
		if c.Key == "truncate" {
			n, err := strconv.Atoi(c.Value)
			if err != nil || n < 0 {
				return errors.NewValidation("truncate", "must be a non-negative number")
			}
			conf.Search.Truncate = n
			return nil
		}
		v, err := strconv.ParseBool(c.Value)
		if err != nil {
			return errors.NewValidation(c.Key, "must be true or false")
		}
		switch c.Key {
		case "case_sensitive":
			conf.Search.CaseSensitive = v
		case "unique_verses":
			conf.Search.UniqueVerses = v
		case "abbreviate":
			conf.Search.Abbreviate = v
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s = %s\n", c.Key, c.Value)
	return nil
}

// HistoryCmd lists recent queries, most recent first.
type HistoryCmd struct {
	Clear bool `help:"Forget all recorded queries"`
}

func (c *HistoryCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.Clear {
		return cfg.Update(func(conf *config.Config) error {
			conf.History = nil
			return nil
		})
	}
	for i, q := range cfg.Config().History {
		fmt.Fprintf(stdout, "%2d  %s\n", i+1, q)
	}
	return nil
}
