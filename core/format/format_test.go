package format

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/JuniperSearch/core/search"
)

func result(translation, book string, chapter, verse int, text string, spans ...search.Span) search.MatchResult {
	return search.MatchResult{
		Coordinate: search.Coordinate{Translation: translation, Book: book, Chapter: chapter, Verse: verse},
		Text:       text,
		Spans:      spans,
	}
}

func TestCompressWords(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"In the beginning God created the heaven and the earth.",
			"In..beginning God created..heaven....earth."},
		{"And God said, Let there be light: and there was light.",
			"..God..Let..be light:....was light."},
		{"Jesus wept.", "Jesus wept."},
		{"grace, mercy, peace", "grace,mercy,peace"},
		{"[love] and [the] truth", "[love]..[the] truth"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CompressWords(tt.in); got != tt.want {
				t.Errorf("CompressWords(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		budget int
		want   string
	}{
		{"short", 0, "short"},
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"abcdefghij", 6, "abc..."},
		{"In the beginning", 10, "In the..."},
		{"a [mercy] seat", 7, "a [m]..."},
		{"ἐν ἀρχῇ ἦν ὁ λόγος", 8, "ἐν ἀρ..."},
		{"abcdef", 2, "a..."},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.budget); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.budget, got, tt.want)
		}
	}
}

func TestRecords(t *testing.T) {
	results := []search.MatchResult{
		result("KJV", "Gen", 1, 1, "In the beginning God created the heaven and the earth.", search.Span{Start: 17, End: 20}),
	}
	names := map[string]string{"KJV": "King James Version"}

	full := Records(results, Options{Names: names})
	if full[0].Translation != "King James Version" {
		t.Errorf("full Translation = %q", full[0].Translation)
	}
	if full[0].Text != "In the beginning [God] created the heaven and the earth." {
		t.Errorf("full Text = %q", full[0].Text)
	}

	abbr := Records(results, Options{Abbreviate: true, Truncate: 30, Names: names})
	if abbr[0].Translation != "KJV" {
		t.Errorf("abbreviated Translation = %q", abbr[0].Translation)
	}
	if want := "In..beginning [God] created..."; abbr[0].Text != want {
		t.Errorf("abbreviated Text = %q, want %q", abbr[0].Text, want)
	}
}

func TestRecordsKeepVerseBrackets(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		spans     []search.Span
		opts      Options
		wantText  string
		wantPlain string
	}{
		{"full with highlight", "The LORD [is] my shepherd", []search.Span{{Start: 17, End: 25}}, Options{},
			"The LORD [is] my [shepherd]", "The LORD [is] my shepherd"},
		{"full without highlight", "Blessed [are] the poor", nil, Options{},
			"Blessed [are] the poor", "Blessed [are] the poor"},
		{"cut inside highlight", "The LORD [is] my shepherd", []search.Span{{Start: 17, End: 25}}, Options{Abbreviate: true, Truncate: 20},
			"..LORD [is] my [s]...", "..LORD [is] my s..."},
		{"cut inside verse bracket", "Blessed [are] the poor", nil, Options{Abbreviate: true, Truncate: 13},
			"Blessed [a...", "Blessed [a..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord(result("KJV", "Psa", 23, 1, tt.text, tt.spans...), tt.opts)
			if rec.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", rec.Text, tt.wantText)
			}
			if got := rec.Plain(); got != tt.wantPlain {
				t.Errorf("Plain() = %q, want %q", got, tt.wantPlain)
			}
			if got := Clip([]Record{rec}); got != "KJV Psa 23:1 "+tt.wantPlain+"\n" {
				t.Errorf("Clip() = %q", got)
			}
		})
	}
}

func TestOptionsFrom(t *testing.T) {
	opts := OptionsFrom(search.Settings{
		Abbreviate: true,
		Truncate:   80,
		Translations: []search.Translation{
			{ID: "KJV", Name: "King James Version"},
			{ID: "XYZ"},
		},
	})
	if !opts.Abbreviate || opts.Truncate != 80 {
		t.Errorf("OptionsFrom() = %+v", opts)
	}
	if _, ok := opts.Names["XYZ"]; ok {
		t.Error("unnamed translations should fall back to their id")
	}
}

func TestLine(t *testing.T) {
	tests := []struct {
		rec  Record
		want string
	}{
		{Record{Translation: "KJV", Book: "Gen", Chapter: 1, Verse: 1, Text: "In the beginning"},
			"KJV Gen 1:1     In the beginning"},
		{Record{Translation: "KJV", Book: "Psa", Chapter: 119, Verse: 176, Text: "I have gone astray"},
			"KJV Psa 119:176 I have gone astray"},
		{Record{Translation: "King James", Book: "Psa", Chapter: 119, Verse: 176, Text: "x"},
			"King James Psa 119:176 x"},
	}
	for _, tt := range tests {
		if got := Line(tt.rec); got != tt.want {
			t.Errorf("Line() = %q, want %q", got, tt.want)
		}
	}
	if got := strings.Index(Line(tests[0].rec), "In"); got != ReferenceWidth {
		t.Errorf("text starts at column %d, want %d", got, ReferenceWidth)
	}
}

func TestWriteListingAndClip(t *testing.T) {
	records := []Record{
		{Translation: "KJV", Book: "Joh", Chapter: 3, Verse: 16, Text: "For [God] so loved"},
		{Translation: "WEB", Book: "Joh", Chapter: 3, Verse: 16, Text: "For [God] so loved"},
	}

	var buf bytes.Buffer
	if err := WriteListing(&buf, records); err != nil {
		t.Fatalf("WriteListing() error: %v", err)
	}
	want := "KJV Joh 3:16    For [God] so loved\nWEB Joh 3:16    For [God] so loved\n"
	if buf.String() != want {
		t.Errorf("WriteListing() = %q, want %q", buf.String(), want)
	}

	clip := Clip(records)
	if strings.ContainsAny(clip, "[]") {
		t.Errorf("Clip() kept brackets: %q", clip)
	}
	if !strings.HasPrefix(clip, "KJV Joh 3:16 For God so loved\n") {
		t.Errorf("Clip() = %q", clip)
	}
}

func TestSummary(t *testing.T) {
	if got := Summary(1, 1); got != "1 result (1 unique verses)" {
		t.Errorf("Summary(1,1) = %q", got)
	}
	if got := Summary(12, 5); got != "12 results (5 unique verses)" {
		t.Errorf("Summary(12,5) = %q", got)
	}
}

func TestExport(t *testing.T) {
	results := []search.MatchResult{
		result("KJV", "Gen", 1, 1, "In the beginning", search.Span{Start: 0, End: 2}),
	}
	var buf bytes.Buffer
	if err := Export(&buf, "beginning", results); err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Query: beginning\n", "Results: 1\n", "KJV Gen 1:1 In the beginning\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("Export() missing %q in %q", want, out)
		}
	}
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	results := []search.MatchResult{result("KJV", "Gen", 1, 1, "In the beginning")}

	plain := filepath.Join(dir, "results.txt")
	if err := ExportFile(plain, "beginning", results); err != nil {
		t.Fatalf("ExportFile(txt) error: %v", err)
	}
	want, err := os.ReadFile(plain)
	if err != nil {
		t.Fatal(err)
	}

	compressed := filepath.Join(dir, "results.txt.xz")
	if err := ExportFile(compressed, "beginning", results); err != nil {
		t.Fatalf("ExportFile(xz) error: %v", err)
	}
	f, err := os.Open(compressed)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	xr, err := xz.NewReader(f)
	if err != nil {
		t.Fatalf("xz.NewReader() error: %v", err)
	}
	got, err := io.ReadAll(xr)
	if err != nil {
		t.Fatalf("read xz: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("xz export = %q, want %q", got, want)
	}
}

func TestExportFileCreateError(t *testing.T) {
	err := ExportFile(filepath.Join(t.TempDir(), "missing", "out.txt"), "q", nil)
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
