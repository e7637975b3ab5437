package format

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
)

// Injectable functions for testing
var (
	osCreateExport = os.Create
	xzNewWriter    = xz.NewWriter
)

// Line renders a record as a listing line: the reference padded to
// ReferenceWidth columns, then the text.
func Line(r Record) string {
	ref := r.Reference()
	if pad := ReferenceWidth - len(ref); pad > 0 {
		ref += strings.Repeat(" ", pad)
	} else {
		ref += " "
	}
	return ref + r.Text
}

// WriteListing writes one line per record.
func WriteListing(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := fmt.Fprintln(bw, Line(r)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Clip renders records as plain lines with highlight brackets removed, the
// form placed on the clipboard.
func Clip(records []Record) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.Reference())
		b.WriteByte(' ')
		b.WriteString(r.Plain())
		b.WriteByte('\n')
	}
	return b.String()
}

// Summary renders "12 results (5 unique verses)".
func Summary(total, unique int) string {
	noun := "results"
	if total == 1 {
		noun = "result"
	}
	return fmt.Sprintf("%d %s (%d unique verses)", total, noun, unique)
}

// Export writes a report: a header naming the query and result count, a
// rule, then one plain line per result.
func Export(w io.Writer, query string, results []search.MatchResult) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "Bible Search Results")
	fmt.Fprintf(bw, "Query: %s\n", query)
	fmt.Fprintf(bw, "Results: %d\n", len(results))
	fmt.Fprintln(bw, strings.Repeat("=", 50))
	fmt.Fprintln(bw)
	for _, r := range results {
		fmt.Fprintf(bw, "%s %s %d:%d %s\n", r.Translation, r.Book, r.Chapter, r.Verse, r.Text)
	}
	return bw.Flush()
}

// ExportFile writes Export output to path. A ".xz" extension compresses the
// report.
func ExportFile(path, query string, results []search.MatchResult) (err error) {
	f, err := osCreateExport(path)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewIO("close", path, cerr)
		}
	}()

	if !strings.EqualFold(filepath.Ext(path), ".xz") {
		return Export(f, query, results)
	}

	xw, err := xzNewWriter(f)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %w", err)
	}
	if err := Export(xw, query, results); err != nil {
		xw.Close()
		return err
	}
	return xw.Close()
}
