package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/FocuswithJustin/JuniperSearch/core/canon"
	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
)

// jsonCorpus is the on-disk JSON layout:
//
//	{"translation_info": {"abbrev": "KJV", "name": "King James Version"},
//	 "books": {"Gen": {"name": "Genesis", "chapters": {"1": {"1": "In the beginning..."}}}}}
type jsonCorpus struct {
	TranslationInfo struct {
		Abbrev string `json:"abbrev"`
		Name   string `json:"name"`
	} `json:"translation_info"`
	Books map[string]jsonBook `json:"books"`
}

type jsonBook struct {
	Name     string                       `json:"name"`
	Chapters map[string]map[string]string `json:"chapters"`
}

// ReadJSON decodes the JSON corpus layout. Book keys may be canonical codes
// or any name the canon recognizes; other books are skipped.
func ReadJSON(r io.Reader) (*Bible, error) {
	var doc jsonCorpus
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.NewParse("JSON", "", err.Error())
	}
	if doc.TranslationInfo.Abbrev == "" {
		return nil, errors.NewParse("JSON", "", "missing translation_info.abbrev")
	}
	id, err := translationID(doc.TranslationInfo.Abbrev)
	if err != nil {
		return nil, err
	}

	b := &Bible{Translation: search.Translation{ID: id, Name: doc.TranslationInfo.Name}}

	keys := make([]string, 0, len(doc.Books))
	for k := range doc.Books {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		book := doc.Books[key]
		code, ok := canon.Lookup(key)
		if !ok {
			if code, ok = canon.Lookup(book.Name); !ok {
				b.Skipped = append(b.Skipped, key)
				continue
			}
		}
		for ch, verses := range book.Chapters {
			chapter, err := positive(ch)
			if err != nil {
				return nil, errors.NewParse("JSON", "", fmt.Sprintf("book %s: chapter %q: %v", key, ch, err))
			}
			for vs, text := range verses {
				verse, err := positive(vs)
				if err != nil {
					return nil, errors.NewParse("JSON", "", fmt.Sprintf("%s %d: verse %q: %v", key, chapter, vs, err))
				}
				b.Verses = append(b.Verses, search.Verse{
					Coordinate: search.Coordinate{Translation: id, Book: code, Chapter: chapter, Verse: verse},
					Text:       collapse(text),
				})
			}
		}
	}
	return b, nil
}

func positive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1")
	}
	return n, nil
}
