package search

import (
	"cmp"
	"context"
	"slices"

	"github.com/FocuswithJustin/JuniperSearch/core/canon"
)

// memCorpus is an in-memory Corpus for engine tests.
type memCorpus struct {
	translations []Translation
	verses       map[string][]Verse

	scanErr error
	getErr  error
}

func newMemCorpus(translations []Translation, verses ...Verse) *memCorpus {
	c := &memCorpus{translations: translations, verses: make(map[string][]Verse)}
	for _, v := range verses {
		c.verses[v.Translation] = append(c.verses[v.Translation], v)
	}
	for _, list := range c.verses {
		slices.SortFunc(list, func(a, b Verse) int {
			return cmp.Or(
				cmp.Compare(canon.Position(a.Book), canon.Position(b.Book)),
				cmp.Compare(a.Chapter, b.Chapter),
				cmp.Compare(a.Verse, b.Verse),
			)
		})
	}
	return c
}

func verse(translation, book string, chapter, v int, text string) Verse {
	return Verse{
		Coordinate: Coordinate{Translation: translation, Book: book, Chapter: chapter, Verse: v},
		Text:       text,
	}
}

func (c *memCorpus) GetVerse(_ context.Context, translation, book string, chapter, v int) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	for _, x := range c.verses[translation] {
		if x.Book == book && x.Chapter == chapter && x.Verse == v {
			return x.Text, true, nil
		}
	}
	return "", false, nil
}

func (c *memCorpus) ReadChapter(ctx context.Context, translation, book string, chapter, first, last int, fn func(Verse) error) error {
	if c.getErr != nil {
		return c.getErr
	}
	for _, v := range c.verses[translation] {
		if v.Book != book || v.Chapter != chapter || v.Verse < first || (last >= 1 && v.Verse > last) {
			continue
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

func (c *memCorpus) EnabledTranslations(context.Context) ([]Translation, error) {
	var out []Translation
	for _, t := range c.translations {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *memCorpus) BookOrder() []string                  { return canon.Order() }
func (c *memCorpus) CanonicalBookName(book string) string { return canon.Name(book) }
func (c *memCorpus) LookupBook(token string) (string, bool) {
	return canon.Lookup(token)
}

func (c *memCorpus) Scan(ctx context.Context, translation string, fn func(Verse) error) error {
	if c.scanErr != nil {
		return c.scanErr
	}
	for _, v := range c.verses[translation] {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// blockingCorpus blocks the first Scan until its context is cancelled.
type blockingCorpus struct {
	*memCorpus
	started chan struct{}
	blocked bool
}

func (c *blockingCorpus) Scan(ctx context.Context, translation string, fn func(Verse) error) error {
	if !c.blocked {
		c.blocked = true
		close(c.started)
		<-ctx.Done()
		return ctx.Err()
	}
	return c.memCorpus.Scan(ctx, translation, fn)
}
