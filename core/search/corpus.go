package search

import (
	"context"
)

// Corpus is read-only access to verse text. Implementations must be safe for
// concurrent use; the engine may scan several translations at once.
type Corpus interface {
	// GetVerse returns the text at a coordinate. A missing verse is not an
	// error: ok is false.
	GetVerse(ctx context.Context, translation, book string, chapter, verse int) (text string, ok bool, err error)

	// EnabledTranslations lists the searchable translations in rank order.
	EnabledTranslations(ctx context.Context) ([]Translation, error)

	// BookOrder is the canonical sequence of book codes.
	BookOrder() []string

	// CanonicalBookName returns the display name of a book code.
	CanonicalBookName(book string) string

	// LookupBook resolves a user-typed book token to a book code.
	LookupBook(token string) (string, bool)

	// ReadChapter calls fn for each verse of one chapter numbered first
	// through last, in verse order. Verses the translation lacks are
	// skipped. A last below 1 reads to the end of the chapter. A non-nil
	// error from fn stops the read and is returned unchanged.
	ReadChapter(ctx context.Context, translation, book string, chapter, first, last int, fn func(Verse) error) error

	// Scan calls fn for every verse of a translation in canonical order
	// (book order, chapter, verse). A non-nil error from fn stops the scan
	// and is returned unchanged.
	Scan(ctx context.Context, translation string, fn func(Verse) error) error
}
