// Package format turns ranked search results into display records: the
// full form with translation names, the abbreviated form with word
// compression and a character budget, and the plain-text listing used for
// terminal output, clipboard copies and exports.
package format

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/FocuswithJustin/JuniperSearch/core/search"
)

// Ellipsis marks text cut to the truncation budget.
const Ellipsis = "..."

// ReferenceWidth is the column at which verse text starts in a listing.
const ReferenceWidth = 16

// Record is one display-ready result.
type Record struct {
	// Translation is the translation id in abbreviated mode, otherwise its
	// display name when known.
	Translation string `json:"translation"`
	Book        string `json:"book"`
	Chapter     int    `json:"chapter"`
	Verse       int    `json:"verse"`

	// Text is the verse text with highlighted spans in brackets.
	Text string `json:"text"`

	// plain is Text without highlight brackets. Brackets printed in the verse
	// itself are kept.
	plain string
}

// Reference renders "KJV Gen 1:1".
func (r Record) Reference() string {
	return fmt.Sprintf("%s %s %d:%d", r.Translation, r.Book, r.Chapter, r.Verse)
}

// Options control record construction.
type Options struct {
	Abbreviate bool

	// Truncate is the rune budget for abbreviated text. Zero means no limit.
	Truncate int

	// Names maps translation ids to display names for full mode.
	Names map[string]string
}

// OptionsFrom derives format options from search settings.
func OptionsFrom(s search.Settings) Options {
	names := make(map[string]string, len(s.Translations))
	for _, t := range s.Translations {
		if t.Name != "" {
			names[t.ID] = t.Name
		}
	}
	return Options{Abbreviate: s.Abbreviate, Truncate: s.Truncate, Names: names}
}

// Records converts results into display records, preserving order.
func Records(results []search.MatchResult, opts Options) []Record {
	out := make([]Record, len(results))
	for i, r := range results {
		out[i] = NewRecord(r, opts)
	}
	return out
}

// Highlights are rendered with private-use runes while the text is
// compressed and truncated, so brackets that belong to the verse are never
// taken for highlight marks.
const (
	markOpen  = "\uE000"
	markClose = "\uE001"
)

var (
	displayMarks = strings.NewReplacer(markOpen, search.OpenMark, markClose, search.CloseMark)
	plainMarks   = strings.NewReplacer(markOpen, "", markClose, "")
)

// NewRecord builds a single display record.
func NewRecord(r search.MatchResult, opts Options) Record {
	text := search.RenderMarks(r.Text, r.Spans, markOpen, markClose)
	translation := r.Translation
	if opts.Abbreviate {
		text = truncate(compressWords(text, markOpen+markClose), opts.Truncate, markOpen, markClose)
	} else if name, ok := opts.Names[r.Translation]; ok {
		translation = name
	}
	return Record{
		Translation: translation,
		Book:        r.Book,
		Chapter:     r.Chapter,
		Verse:       r.Verse,
		Text:        displayMarks.Replace(text),
		plain:       plainMarks.Replace(text),
	}
}

// Plain returns the record text without highlight brackets.
func (r Record) Plain() string {
	if r.plain == "" {
		return search.StripMarks(r.Text)
	}
	return r.plain
}

// fillerWords are replaced by ".." in abbreviated text.
var fillerWords = map[string]struct{}{
	"and": {}, "the": {}, "that": {}, "unto": {}, "upon": {}, "which": {},
	"shall": {}, "with": {}, "from": {}, "they": {}, "them": {}, "their": {},
	"there": {}, "where": {}, "when": {}, "what": {}, "will": {}, "said": {},
	"came": {}, "come": {}, "went": {}, "were": {}, "been": {}, "have": {},
	"has": {}, "had": {},
}

var nonWord = regexp.MustCompile(`[^\pL\pN_]`)

const filler = ".."

// CompressWords replaces common filler words with ".." and removes the
// spaces around them and after commas. Highlighted words are kept intact.
func CompressWords(text string) string {
	return compressWords(text, search.OpenMark+search.CloseMark)
}

// compressWords is CompressWords with marks naming the highlight delimiters.
func compressWords(text, marks string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	for i, w := range words {
		if !strings.ContainsAny(w, marks) {
			if _, ok := fillerWords[nonWord.ReplaceAllString(strings.ToLower(w), "")]; ok {
				b.WriteString(filler)
				continue
			}
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}

	out := b.String()
	out = strings.ReplaceAll(out, " "+filler, filler)
	out = strings.ReplaceAll(out, filler+" ", filler)
	return strings.ReplaceAll(out, ", ", ",")
}

// Truncate cuts text to budget runes, ellipsis included. A highlight left
// open by the cut is closed before the ellipsis.
func Truncate(text string, budget int) string {
	return truncate(text, budget, search.OpenMark, search.CloseMark)
}

// truncate is Truncate over the given single-rune highlight delimiters.
func truncate(text string, budget int, openMark, closeMark string) string {
	if budget <= 0 || utf8.RuneCountInString(text) <= budget {
		return text
	}
	keep := budget - utf8.RuneCountInString(Ellipsis)
	if keep < 1 {
		keep = 1
	}

	var b strings.Builder
	open := false
	n := 0
	for _, r := range text {
		if n == keep {
			break
		}
		switch string(r) {
		case openMark:
			open = true
		case closeMark:
			open = false
		}
		b.WriteRune(r)
		n++
	}
	out := strings.TrimRight(b.String(), " ")
	if open {
		out += closeMark
	}
	return out + Ellipsis
}
