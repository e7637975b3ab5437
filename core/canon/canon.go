// Package canon defines the fixed 66-book Protestant canon used to identify
// verses: canonical 3-letter book codes, full names, OSIS identifiers and the
// canonical book order.
//
// Book tokens typed by users are resolved through two exact-match tables, one
// for full names and one for abbreviations. There is deliberately no prefix
// matching: "Jo" is not a book, while "Jon" (Jonah) and "Joh" (John) are.
package canon

import (
	"strings"
)

// Book describes one book of the canon.
type Book struct {
	// Code is the canonical 3-letter book code (e.g. "Gen", "1Sa", "Jde").
	Code string `json:"code"`

	// OSIS is the OSIS book identifier (e.g. "Gen", "1Sam", "Jude").
	OSIS string `json:"osis"`

	// Name is the display name (e.g. "Genesis", "1 Samuel").
	Name string `json:"name"`

	// Order is the 1-based canonical position (Genesis = 1, Revelation = 66).
	Order int `json:"order"`

	// aliases are additional accepted abbreviations.
	aliases []string
}

// books is the canon in canonical order.
var books = []Book{
	// Old Testament
	{Code: "Gen", OSIS: "Gen", Name: "Genesis", aliases: []string{"ge", "gn"}},
	{Code: "Exo", OSIS: "Exod", Name: "Exodus", aliases: []string{"ex", "exod"}},
	{Code: "Lev", OSIS: "Lev", Name: "Leviticus", aliases: []string{"lv"}},
	{Code: "Num", OSIS: "Num", Name: "Numbers", aliases: []string{"nm"}},
	{Code: "Deu", OSIS: "Deut", Name: "Deuteronomy", aliases: []string{"dt", "deut"}},
	{Code: "Jos", OSIS: "Josh", Name: "Joshua", aliases: []string{"josh"}},
	{Code: "Jdg", OSIS: "Judg", Name: "Judges", aliases: []string{"judg"}},
	{Code: "Rut", OSIS: "Ruth", Name: "Ruth", aliases: []string{"rth"}},
	{Code: "1Sa", OSIS: "1Sam", Name: "1 Samuel", aliases: []string{"1sam"}},
	{Code: "2Sa", OSIS: "2Sam", Name: "2 Samuel", aliases: []string{"2sam"}},
	{Code: "1Ki", OSIS: "1Kgs", Name: "1 Kings", aliases: []string{"1kgs"}},
	{Code: "2Ki", OSIS: "2Kgs", Name: "2 Kings", aliases: []string{"2kgs"}},
	{Code: "1Ch", OSIS: "1Chr", Name: "1 Chronicles", aliases: []string{"1chr"}},
	{Code: "2Ch", OSIS: "2Chr", Name: "2 Chronicles", aliases: []string{"2chr"}},
	{Code: "Ezr", OSIS: "Ezra", Name: "Ezra"},
	{Code: "Neh", OSIS: "Neh", Name: "Nehemiah"},
	{Code: "Est", OSIS: "Esth", Name: "Esther", aliases: []string{"esth"}},
	{Code: "Job", OSIS: "Job", Name: "Job"},
	{Code: "Psa", OSIS: "Ps", Name: "Psalms", aliases: []string{"ps", "pss", "psalm"}},
	{Code: "Pro", OSIS: "Prov", Name: "Proverbs", aliases: []string{"prov", "prv"}},
	{Code: "Ecc", OSIS: "Eccl", Name: "Ecclesiastes", aliases: []string{"eccl", "qoh"}},
	{Code: "Son", OSIS: "Song", Name: "Song of Songs", aliases: []string{"song", "sos", "song of solomon", "canticles"}},
	{Code: "Isa", OSIS: "Isa", Name: "Isaiah"},
	{Code: "Jer", OSIS: "Jer", Name: "Jeremiah"},
	{Code: "Lam", OSIS: "Lam", Name: "Lamentations"},
	{Code: "Eze", OSIS: "Ezek", Name: "Ezekiel", aliases: []string{"ezek"}},
	{Code: "Dan", OSIS: "Dan", Name: "Daniel"},
	{Code: "Hos", OSIS: "Hos", Name: "Hosea"},
	{Code: "Joe", OSIS: "Joel", Name: "Joel"},
	{Code: "Amo", OSIS: "Amos", Name: "Amos"},
	{Code: "Oba", OSIS: "Obad", Name: "Obadiah", aliases: []string{"obad"}},
	{Code: "Jon", OSIS: "Jonah", Name: "Jonah"},
	{Code: "Mic", OSIS: "Mic", Name: "Micah"},
	{Code: "Nah", OSIS: "Nah", Name: "Nahum"},
	{Code: "Hab", OSIS: "Hab", Name: "Habakkuk"},
	{Code: "Zep", OSIS: "Zeph", Name: "Zephaniah", aliases: []string{"zeph"}},
	{Code: "Hag", OSIS: "Hag", Name: "Haggai"},
	{Code: "Zec", OSIS: "Zech", Name: "Zechariah", aliases: []string{"zech"}},
	{Code: "Mal", OSIS: "Mal", Name: "Malachi"},

	// New Testament
	{Code: "Mat", OSIS: "Matt", Name: "Matthew", aliases: []string{"matt", "mt"}},
	{Code: "Mar", OSIS: "Mark", Name: "Mark", aliases: []string{"mk", "mrk"}},
	{Code: "Luk", OSIS: "Luke", Name: "Luke", aliases: []string{"lk"}},
	{Code: "Joh", OSIS: "John", Name: "John", aliases: []string{"jn", "jhn"}},
	{Code: "Act", OSIS: "Acts", Name: "Acts"},
	{Code: "Rom", OSIS: "Rom", Name: "Romans"},
	{Code: "1Co", OSIS: "1Cor", Name: "1 Corinthians", aliases: []string{"1cor"}},
	{Code: "2Co", OSIS: "2Cor", Name: "2 Corinthians", aliases: []string{"2cor"}},
	{Code: "Gal", OSIS: "Gal", Name: "Galatians"},
	{Code: "Eph", OSIS: "Eph", Name: "Ephesians"},
	{Code: "Phi", OSIS: "Phil", Name: "Philippians", aliases: []string{"phil"}},
	{Code: "Col", OSIS: "Col", Name: "Colossians"},
	{Code: "1Th", OSIS: "1Thess", Name: "1 Thessalonians", aliases: []string{"1thess"}},
	{Code: "2Th", OSIS: "2Thess", Name: "2 Thessalonians", aliases: []string{"2thess"}},
	{Code: "1Ti", OSIS: "1Tim", Name: "1 Timothy", aliases: []string{"1tim"}},
	{Code: "2Ti", OSIS: "2Tim", Name: "2 Timothy", aliases: []string{"2tim"}},
	{Code: "Tit", OSIS: "Titus", Name: "Titus"},
	{Code: "Phm", OSIS: "Phlm", Name: "Philemon", aliases: []string{"phlm"}},
	{Code: "Heb", OSIS: "Heb", Name: "Hebrews"},
	{Code: "Jas", OSIS: "Jas", Name: "James"},
	{Code: "1Pe", OSIS: "1Pet", Name: "1 Peter", aliases: []string{"1pet"}},
	{Code: "2Pe", OSIS: "2Pet", Name: "2 Peter", aliases: []string{"2pet"}},
	{Code: "1Jo", OSIS: "1John", Name: "1 John", aliases: []string{"1jn"}},
	{Code: "2Jo", OSIS: "2John", Name: "2 John", aliases: []string{"2jn"}},
	{Code: "3Jo", OSIS: "3John", Name: "3 John", aliases: []string{"3jn"}},
	{Code: "Jde", OSIS: "Jude", Name: "Jude"},
	{Code: "Rev", OSIS: "Rev", Name: "Revelation", aliases: []string{"apocalypse"}},
}

// Lookup tables, built once at init and read-only afterwards.
var (
	byCode  = make(map[string]int, len(books))
	byOSIS  = make(map[string]int, len(books))
	names   = make(map[string]string)
	abbrevs = make(map[string]string)
	order   []string
)

func init() {
	order = make([]string, len(books))
	for i := range books {
		b := &books[i]
		b.Order = i + 1
		order[i] = b.Code

		byCode[b.Code] = i
		byOSIS[b.OSIS] = i

		name := strings.ToLower(b.Name)
		names[name] = b.Code
		// "1 samuel" is also accepted as "1samuel"
		names[strings.ReplaceAll(name, " ", "")] = b.Code

		abbrevs[strings.ToLower(b.Code)] = b.Code
		abbrevs[strings.ToLower(b.OSIS)] = b.Code
		for _, a := range b.aliases {
			abbrevs[a] = b.Code
		}
	}
}

// Count is the number of books in the canon.
const Count = 66

// MaxVerse is the highest verse number in any chapter (Psalm 119:176).
const MaxVerse = 176

// Books returns the canon in canonical order. The slice is a copy.
func Books() []Book {
	out := make([]Book, len(books))
	copy(out, books)
	return out
}

// Order returns the canonical sequence of book codes.
func Order() []string {
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// Get returns the book with the given canonical code.
func Get(code string) (Book, bool) {
	i, ok := byCode[code]
	if !ok {
		return Book{}, false
	}
	return books[i], true
}

// FromOSIS returns the book with the given OSIS identifier.
func FromOSIS(osisID string) (Book, bool) {
	i, ok := byOSIS[osisID]
	if !ok {
		return Book{}, false
	}
	return books[i], true
}

// Position returns the 1-based canonical position of a book code, or 0 when
// the code is unknown. Unknown books therefore sort first.
func Position(code string) int {
	i, ok := byCode[code]
	if !ok {
		return 0
	}
	return i + 1
}

// Name returns the display name for a book code, or the code itself.
func Name(code string) string {
	if b, ok := Get(code); ok {
		return b.Name
	}
	return code
}

// Lookup resolves a user-typed book token to its canonical code. The token
// is compared case-insensitively against the full-name table first and the
// abbreviation table second. A trailing period and redundant internal
// whitespace are ignored; nothing else is forgiven.
func Lookup(token string) (string, bool) {
	key := normalizeToken(token)
	if key == "" {
		return "", false
	}
	if code, ok := names[key]; ok {
		return code, true
	}
	if code, ok := abbrevs[key]; ok {
		return code, true
	}
	// "1 sam" / "1 Sa": numbered abbreviations written with a space
	if key[0] >= '1' && key[0] <= '3' {
		compact := strings.ReplaceAll(key, " ", "")
		if code, ok := names[compact]; ok {
			return code, true
		}
		if code, ok := abbrevs[compact]; ok {
			return code, true
		}
	}
	return "", false
}

func normalizeToken(token string) string {
	token = strings.TrimSpace(token)
	token = strings.TrimSuffix(token, ".")
	return strings.ToLower(strings.Join(strings.Fields(token), " "))
}
