package store

import (
	"context"
	"sort"
	"strconv"

	"github.com/FocuswithJustin/JuniperSearch/core/canon"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
)

// Snapshot is an immutable in-memory copy of a corpus. It implements
// search.Corpus and is safe for concurrent use.
type Snapshot struct {
	fingerprint  string
	translations []search.Translation
	verses       map[string][]search.Verse
	index        map[string]map[string]int
}

var _ search.Corpus = (*Snapshot)(nil)

// Snapshot loads every translation and verse into memory.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	fp, err := s.Fingerprint(ctx)
	if err != nil {
		return nil, err
	}
	translations, err := s.Translations(ctx)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		fingerprint:  fp,
		translations: translations,
		verses:       make(map[string][]search.Verse, len(translations)),
		index:        make(map[string]map[string]int, len(translations)),
	}
	for _, t := range translations {
		var list []search.Verse
		err := s.Scan(ctx, t.ID, func(v search.Verse) error {
			list = append(list, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		snap.add(t.ID, list)
	}
	return snap, nil
}

// NewSnapshot builds a snapshot from literal data. Verses are ordered
// canonically regardless of input order.
func NewSnapshot(translations []search.Translation, verses []search.Verse) *Snapshot {
	snap := &Snapshot{
		translations: append([]search.Translation(nil), translations...),
		verses:       make(map[string][]search.Verse),
		index:        make(map[string]map[string]int),
	}
	sort.SliceStable(snap.translations, func(i, j int) bool {
		return snap.translations[i].Rank < snap.translations[j].Rank
	})
	byTranslation := make(map[string][]search.Verse)
	for _, v := range verses {
		byTranslation[v.Translation] = append(byTranslation[v.Translation], v)
	}
	for id, list := range byTranslation {
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if pa, pb := canon.Position(a.Book), canon.Position(b.Book); pa != pb {
				return pa < pb
			}
			if a.Chapter != b.Chapter {
				return a.Chapter < b.Chapter
			}
			return a.Verse < b.Verse
		})
		snap.add(id, list)
	}
	return snap
}

func (s *Snapshot) add(translation string, list []search.Verse) {
	idx := make(map[string]int, len(list))
	for i, v := range list {
		idx[key(v.Book, v.Chapter, v.Verse)] = i
	}
	s.verses[translation] = list
	s.index[translation] = idx
}

func key(book string, chapter, verse int) string {
	return book + " " + strconv.Itoa(chapter) + ":" + strconv.Itoa(verse)
}

// Fingerprint is the store fingerprint the snapshot was taken at. Snapshots
// built with NewSnapshot have none.
func (s *Snapshot) Fingerprint() string {
	return s.fingerprint
}

// Len returns the number of verses held for a translation.
func (s *Snapshot) Len(translation string) int {
	return len(s.verses[translation])
}

// GetVerse implements search.Corpus.
func (s *Snapshot) GetVerse(_ context.Context, translation, book string, chapter, verse int) (string, bool, error) {
	i, ok := s.index[translation][key(book, chapter, verse)]
	if !ok {
		return "", false, nil
	}
	return s.verses[translation][i].Text, true, nil
}

// ReadChapter implements search.Corpus.
func (s *Snapshot) ReadChapter(ctx context.Context, translation, book string, chapter, first, last int, fn func(search.Verse) error) error {
	list := s.verses[translation]
	pos := canon.Position(book)
	i := sort.Search(len(list), func(i int) bool {
		v := list[i]
		if p := canon.Position(v.Book); p != pos {
			return p > pos
		}
		if v.Chapter != chapter {
			return v.Chapter > chapter
		}
		return v.Verse >= first
	})
	for ; i < len(list); i++ {
		v := list[i]
		if v.Book != book || v.Chapter != chapter || (last >= 1 && v.Verse > last) {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// EnabledTranslations implements search.Corpus.
func (s *Snapshot) EnabledTranslations(context.Context) ([]search.Translation, error) {
	var out []search.Translation
	for _, t := range s.translations {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out, nil
}

// Translations returns every translation in rank order.
func (s *Snapshot) Translations() []search.Translation {
	return append([]search.Translation(nil), s.translations...)
}

// BookOrder implements search.Corpus.
func (s *Snapshot) BookOrder() []string { return canon.Order() }

// CanonicalBookName implements search.Corpus.
func (s *Snapshot) CanonicalBookName(book string) string { return canon.Name(book) }

// LookupBook implements search.Corpus.
func (s *Snapshot) LookupBook(token string) (string, bool) { return canon.Lookup(token) }

// Scan implements search.Corpus.
func (s *Snapshot) Scan(ctx context.Context, translation string, fn func(search.Verse) error) error {
	for i, v := range s.verses[translation] {
		if i%search.DefaultBatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
