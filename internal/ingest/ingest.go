// Package ingest populates the corpus store from translation files: the
// JSON corpus layout (translation_info plus nested books, chapters and
// verses) and OSIS XML. Either may be xz-compressed.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/JuniperSearch/core/canon"
	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
	"github.com/FocuswithJustin/JuniperSearch/internal/archive"
	"github.com/FocuswithJustin/JuniperSearch/internal/logging"
	"github.com/FocuswithJustin/JuniperSearch/internal/store"
)

// Format identifies an input layout.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatOSIS Format = "osis"
)

// Bible is one decoded translation.
type Bible struct {
	Translation search.Translation
	Verses      []search.Verse

	// Skipped lists source book identifiers outside the canon.
	Skipped []string
}

// Injectable functions for testing
var (
	osOpen      = os.Open
	xzNewReader = xz.NewReader
	archiveWalk = archive.Walk
)

// ReadFile decodes a translation file. A ".xz" suffix is decompressed
// first; the format comes from the remaining extension or, failing that,
// from the first non-blank byte.
func ReadFile(path string, format Format) (*Bible, error) {
	f, err := osOpen(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	return decodeNamed(path, f, format)
}

// formatOf maps a file name to its format, looking past a ".xz" suffix.
func formatOf(name string) (f Format, compressed bool) {
	if strings.EqualFold(filepath.Ext(name), ".xz") {
		compressed = true
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, compressed
	case ".xml", ".osis":
		return FormatOSIS, compressed
	}
	return FormatAuto, compressed
}

func decodeNamed(name string, r io.Reader, format Format) (*Bible, error) {
	detected, compressed := formatOf(name)
	if compressed {
		xr, err := xzNewReader(r)
		if err != nil {
			return nil, errors.NewParse("xz", name, err.Error())
		}
		r = xr
	}
	if format == FormatAuto {
		format = detected
	}

	b, err := Read(r, format)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = name
		}
		return nil, err
	}
	return b, nil
}

// Read decodes a translation from r. FormatAuto sniffs the content.
func Read(r io.Reader, format Format) (*Bible, error) {
	br := bufio.NewReader(r)
	if format == FormatAuto {
		sniffed, err := sniff(br)
		if err != nil {
			return nil, err
		}
		format = sniffed
	}

	var (
		b   *Bible
		err error
	)
	switch format {
	case FormatJSON:
		b, err = ReadJSON(br)
	case FormatOSIS:
		b, err = ReadOSIS(br)
	default:
		return nil, errors.NewUnsupported("ingest", fmt.Sprintf("format %q", format))
	}
	if err != nil {
		return nil, err
	}
	sortVerses(b.Verses)
	return b, nil
}

func sniff(br *bufio.Reader) (Format, error) {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return "", errors.NewParse("input", "", "no content")
		}
		switch c {
		case ' ', '\t', '\r', '\n', 0xEF, 0xBB, 0xBF:
			continue
		case '{':
			return FormatJSON, br.UnreadByte()
		case '<':
			return FormatOSIS, br.UnreadByte()
		default:
			return "", errors.NewUnsupported("ingest", "cannot detect input format")
		}
	}
}

func sortVerses(verses []search.Verse) {
	sort.SliceStable(verses, func(i, j int) bool {
		a, b := verses[i], verses[j]
		if pa, pb := canon.Position(a.Book), canon.Position(b.Book); pa != pb {
			return pa < pb
		}
		if a.Chapter != b.Chapter {
			return a.Chapter < b.Chapter
		}
		return a.Verse < b.Verse
	})
}

// translationID normalizes and validates a source identifier.
func translationID(raw string) (string, error) {
	id := store.NormalizeTranslationID(raw)
	if err := store.ValidateTranslationID(id); err != nil {
		return "", err
	}
	return id, nil
}

// collapse trims text and folds whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Options adjust an import.
type Options struct {
	// ID overrides the translation id found in the source.
	ID string
	// Name overrides the display name.
	Name string
	// Format forces the input format.
	Format Format
}

// Result reports an import.
type Result struct {
	Translation search.Translation
	Verses      int
	Skipped     []string
}

// Import writes a decoded translation to st, replacing any verses it held.
func Import(ctx context.Context, st *store.Store, b *Bible, opts Options) (*Result, error) {
	t := b.Translation
	if opts.ID != "" {
		id, err := translationID(opts.ID)
		if err != nil {
			return nil, err
		}
		t.ID = id
	}
	if opts.Name != "" {
		t.Name = opts.Name
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	if len(b.Verses) == 0 {
		return nil, errors.NewValidation("verses", "translation "+t.ID+" has no verses")
	}

	verses := make([]search.Verse, len(b.Verses))
	for i, v := range b.Verses {
		v.Translation = t.ID
		verses[i] = v
	}

	if err := st.PutTranslation(ctx, t); err != nil {
		return nil, err
	}
	n, err := st.ReplaceVerses(ctx, t.ID, verses)
	if err != nil {
		logging.CorpusError(ctx, "import", err, "translation", t.ID)
		return nil, err
	}
	for _, s := range b.Skipped {
		logging.Warn("skipped unknown book", "translation", t.ID, "book", s)
	}
	logging.IngestProgress(t.ID, n, "skipped_books", len(b.Skipped))
	return &Result{Translation: t, Verses: n, Skipped: b.Skipped}, nil
}

// ImportFile reads path and imports it.
func ImportFile(ctx context.Context, st *store.Store, path string, opts Options) (*Result, error) {
	b, err := ReadFile(path, opts.Format)
	if err != nil {
		return nil, err
	}
	return Import(ctx, st, b, opts)
}

// ImportBundle imports every translation file in a tar bundle (.tar,
// .tar.gz or .tar.xz). Members without a .json, .xml or .osis extension
// are ignored. Results for members imported before a failure are
// returned with the error.
func ImportBundle(ctx context.Context, st *store.Store, path string, format Format) ([]*Result, error) {
	var results []*Result
	err := archiveWalk(path, func(name string, r io.Reader) (bool, error) {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		if f, _ := formatOf(name); f == FormatAuto {
			logging.Debug("skipping bundle member", "bundle", path, "member", name)
			return false, nil
		}
		b, err := decodeNamed(name, r, format)
		if err != nil {
			return true, errors.Wrapf(err, "bundle member %s", name)
		}
		res, err := Import(ctx, st, b, Options{})
		if err != nil {
			return true, errors.Wrapf(err, "bundle member %s", name)
		}
		results = append(results, res)
		return false, nil
	})
	if err != nil {
		return results, err
	}
	if len(results) == 0 {
		return nil, errors.NewValidation("bundle", path+" holds no translation files")
	}
	return results, nil
}
