package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/JuniperSearch/internal/archive"
	"github.com/FocuswithJustin/JuniperSearch/internal/ingest"
)

// IngestCmd imports translation files into the corpus.
type IngestCmd struct {
	Paths  []string `arg:"" help:"JSON or OSIS files, optionally .xz compressed, or .tar.gz/.tar.xz bundles of them" type:"existingfile"`
	Format string   `help:"Input format (default: detect)" enum:"auto,json,osis" default:"auto"`
	ID     string   `help:"Override the three-letter translation id (single file only)"`
	Name   string   `help:"Override the translation name (single file only)"`
}

func (c *IngestCmd) Run(ctx context.Context, g *Globals) error {
	if c.ID != "" || c.Name != "" {
		if len(c.Paths) > 1 || archive.IsBundle(c.Paths[0]) {
			return fmt.Errorf("--id and --name apply to a single file")
		}
	}

	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	opts := ingest.Options{ID: c.ID, Name: c.Name}
	if c.Format != "auto" {
		opts.Format = ingest.Format(c.Format)
	}

	for _, path := range c.Paths {
		if archive.IsBundle(path) {
			results, err := ingest.ImportBundle(ctx, e.store, path, opts.Format)
			for _, res := range results {
				report(res)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			continue
		}
		res, err := ingest.ImportFile(ctx, e.store, path, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		report(res)
	}
	return nil
}

func report(res *ingest.Result) {
	fmt.Fprintf(stdout, "Imported %s verses into %s (%s)\n",
		humanize.Comma(int64(res.Verses)), res.Translation.ID, res.Translation.Name)
	if len(res.Skipped) > 0 {
		fmt.Fprintf(stdout, "  skipped books outside the canon: %s\n", strings.Join(res.Skipped, ", "))
	}
}
