package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/core/format"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
	"github.com/FocuswithJustin/JuniperSearch/internal/config"
	"github.com/FocuswithJustin/JuniperSearch/internal/logging"
	"github.com/FocuswithJustin/JuniperSearch/internal/store"
)

// SearchCmd runs one query. Flags switch options on for this query only;
// saved defaults come from `settings set`.
type SearchCmd struct {
	Query        []string      `arg:"" help:"Reference (\"John 3:16-18\") or expression (love AND (mercy OR grace))"`
	Case         bool          `help:"Match case exactly"`
	Unique       bool          `help:"Show each verse once, from the highest-priority translation"`
	Abbreviate   bool          `short:"a" help:"Compress filler words and truncate long verses"`
	Truncate     int           `help:"Character budget for abbreviated verses (-1 = saved setting, 0 = unlimited)" default:"-1"`
	Translations []string      `short:"t" help:"Search only these translations (comma separated)" sep:","`
	Workers      int           `help:"Translations scanned concurrently" default:"1"`
	Timeout      time.Duration `help:"Stop searching after this long and show partial results (0 = no limit)"`
	Plain        bool          `help:"Print without highlight brackets or column alignment"`
	Export       string        `help:"Also write the results to this file (.xz compresses)" type:"path"`
	NoHistory    bool          `name:"no-history" help:"Do not record the query in history"`
}

func (c *SearchCmd) Run(ctx context.Context, g *Globals) error {
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	query := strings.Join(c.Query, " ")
	prefs := e.cfg.Config()
	settings, err := c.settings(ctx, e.store, &prefs)
	if err != nil {
		return err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	out, err := search.Search(ctx, e.store, query, settings, search.Options{Workers: c.Workers})
	if err != nil {
		return err
	}
	logging.SearchCompleted(ctx, string(out.Kind), query, out.Total(), out.Unique, out.Cancelled, out.Duration)

	records := format.Records(out.Results, format.OptionsFrom(settings))
	if c.Plain {
		fmt.Fprint(stdout, format.Clip(records))
	} else if err := format.WriteListing(stdout, records); err != nil {
		return err
	}
	writeSummary(stdout, out)

	if c.Export != "" {
		if err := format.ExportFile(c.Export, query, out.Results); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Exported to %s\n", c.Export)
	}

	if !c.NoHistory && !out.Cancelled {
		if err := e.cfg.Update(func(cfg *config.Config) error {
			cfg.AddHistory(query)
			return nil
		}); err != nil {
			logging.Warn("failed to record history", "error", err)
		}
	}
	return nil
}

// settings merges the saved settings with this invocation's flags.
func (c *SearchCmd) settings(ctx context.Context, st *store.Store, prefs *config.Config) (search.Settings, error) {
	catalog, err := st.Translations(ctx)
	if err != nil {
		return search.Settings{}, errors.NewCorpusUnavailable("list translations", err)
	}
	if len(catalog) == 0 {
		return search.Settings{}, errors.NewNotFound("translations", "corpus is empty; run `juniper-search ingest <file>` first")
	}

	settings := prefs.Settings(catalog)
	settings.CaseSensitive = settings.CaseSensitive || c.Case
	settings.UniqueVerse = settings.UniqueVerse || c.Unique
	settings.Abbreviate = settings.Abbreviate || c.Abbreviate
	if c.Truncate >= 0 {
		settings.Truncate = c.Truncate
	}

	if len(c.Translations) > 0 {
		if err := config.Only(&settings, c.Translations); err != nil {
			return search.Settings{}, err
		}
	}
	return settings, nil
}

// writeSummary prints "Found 1,204 results (311 unique) in 41ms".
func writeSummary(w io.Writer, out *search.Outcome) {
	noun := "results"
	if out.Total() == 1 {
		noun = "result"
	}
	fmt.Fprintf(w, "\nFound %s %s (%s unique) in %s",
		humanize.Comma(int64(out.Total())), noun,
		humanize.Comma(int64(out.Unique)),
		out.Duration.Round(time.Millisecond))
	if out.Cancelled {
		fmt.Fprint(w, " (search stopped early; results are partial)")
	}
	fmt.Fprintln(w)
}

// ReadCmd prints consecutive verses of one chapter.
type ReadCmd struct {
	Translation string `arg:"" help:"Translation id, e.g. KJV"`
	Book        string `arg:"" help:"Book name or abbreviation, e.g. \"1 John\" or 1jo"`
	Chapter     int    `arg:"" help:"Chapter number"`
	Verse       int    `arg:"" optional:"" help:"First verse (default 1)" default:"1"`
	Count       int    `short:"n" help:"Number of verses" default:"10"`
}

func (c *ReadCmd) Run(ctx context.Context, g *Globals) error {
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	translation := store.NormalizeTranslationID(c.Translation)
	if err := store.ValidateTranslationID(translation); err != nil {
		return err
	}
	book, ok := e.store.LookupBook(c.Book)
	if !ok {
		return errors.NewNotFound("book", c.Book)
	}

	results, err := search.ReadPassage(ctx, e.store, translation, book, c.Chapter, c.Verse, c.Count)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return errors.NewNotFound("passage", fmt.Sprintf("%s %s %d:%d", translation, e.store.CanonicalBookName(book), c.Chapter, c.Verse))
	}
	return format.WriteListing(stdout, format.Records(results, format.Options{}))
}
