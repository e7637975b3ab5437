// Package reference resolves passage references such as "Gen 1:1",
// "1 Samuel 3:4-10" or "song of songs 2:1" into concrete verse locations.
//
// Resolution is all-or-nothing: input that does not match the grammar
// exactly, or names an unknown book, yields ErrNotReference so the caller can
// treat the whole string as a free-text query instead.
package reference

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/JuniperSearch/core/canon"
	"github.com/FocuswithJustin/JuniperSearch/core/errors"
)

// ErrNotReference reports that input is not a passage reference.
var ErrNotReference = stderrors.New("not a passage reference")

// BookLookup maps a user-typed book token to a canonical book code.
type BookLookup interface {
	LookupBook(token string) (string, bool)
}

// CanonLookup resolves book tokens against the built-in canon tables.
type CanonLookup struct{}

// LookupBook implements BookLookup.
func (CanonLookup) LookupBook(token string) (string, bool) {
	return canon.Lookup(token)
}

// Location identifies a verse independent of translation.
type Location struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s %d:%d", l.Book, l.Chapter, l.Verse)
}

// Passage is a resolved reference: a single verse or a verse range within
// one chapter.
type Passage struct {
	Input      string `json:"input"`
	Book       string `json:"book"`
	Chapter    int    `json:"chapter"`
	StartVerse int    `json:"start_verse"`
	EndVerse   int    `json:"end_verse"`
}

// Locations expands the passage into ascending verse locations. Verses past
// canon.MaxVerse are never listed.
func (p *Passage) Locations() []Location {
	end := min(p.EndVerse, canon.MaxVerse)
	if end < p.StartVerse {
		return nil
	}
	out := make([]Location, 0, end-p.StartVerse+1)
	for v := p.StartVerse; v <= end; v++ {
		out = append(out, Location{Book: p.Book, Chapter: p.Chapter, Verse: v})
	}
	return out
}

func (p *Passage) String() string {
	if p.EndVerse != p.StartVerse {
		return fmt.Sprintf("%s %d:%d-%d", p.Book, p.Chapter, p.StartVerse, p.EndVerse)
	}
	return fmt.Sprintf("%s %d:%d", p.Book, p.Chapter, p.StartVerse)
}

// referenceGrammar is the participle grammar for
// BookToken SP? Chapter ":" Verse ( "-" Verse )?
//
//nolint:govet // participle grammar tags are not standard struct tags
type referenceGrammar struct {
	Book    string `@Book Whitespace?`
	Chapter int    `@Number ":"`
	Start   int    `@Number`
	End     *int   `( "-" @Number )?`
}

// referenceLexer tokenizes passage references. Book tokens may carry a
// leading book number and several words ("1 Samuel", "Song of Songs").
var referenceLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Book", Pattern: `[1-3]?\s*[A-Za-z]+(?:\s+[A-Za-z]+)*\.?`},
	{Name: "Number", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[:\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// referenceParser is the participle parser for passage references.
var referenceParser = participle.MustBuild[referenceGrammar](
	participle.Lexer(referenceLexer),
)

// Resolve parses input as a passage reference. It returns ErrNotReference
// for anything that is not a well-formed reference to a known book, and a
// *errors.ReferenceRangeError when the range end precedes its start. A range
// end past canon.MaxVerse is clamped to it.
func Resolve(input string, books BookLookup) (*Passage, error) {
	if books == nil {
		books = CanonLookup{}
	}

	s := strings.TrimSpace(input)
	if s == "" {
		return nil, ErrNotReference
	}

	parsed, err := referenceParser.ParseString("", s)
	if err != nil {
		return nil, ErrNotReference
	}

	code, ok := books.LookupBook(parsed.Book)
	if !ok {
		return nil, ErrNotReference
	}

	if parsed.Chapter < 1 || parsed.Start < 1 {
		return nil, ErrNotReference
	}

	end := parsed.Start
	if parsed.End != nil {
		end = *parsed.End
		if end < 1 {
			return nil, ErrNotReference
		}
		if end < parsed.Start {
			return nil, errors.NewReferenceRange(s, parsed.Start, end)
		}
		end = max(min(end, canon.MaxVerse), parsed.Start)
	}

	return &Passage{
		Input:      s,
		Book:       code,
		Chapter:    parsed.Chapter,
		StartVerse: parsed.Start,
		EndVerse:   end,
	}, nil
}

// TryResolve is the option-style form of Resolve: ok is false when input
// should be handled as free text. A reversed range is still reported
// through err.
func TryResolve(input string, books BookLookup) (locs []Location, ok bool, err error) {
	p, err := Resolve(input, books)
	if err != nil {
		if stderrors.Is(err, ErrNotReference) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return p.Locations(), true, nil
}
