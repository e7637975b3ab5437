package ingest

import (
	"io"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/JuniperSearch/core/canon"
	"github.com/FocuswithJustin/JuniperSearch/core/errors"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
	"github.com/FocuswithJustin/JuniperSearch/core/xml"
)

// skipped elements never contribute verse text.
var skipped = map[string]bool{
	"note":         true,
	"title":        true,
	"rdg":          true,
	"catchWord":    true,
	"figure":       true,
	"index":        true,
	"header":       true,
	"chapterLabel": true,
}

// ReadOSIS decodes an OSIS document. Verses may be containers or sID/eID
// milestone pairs; notes and headings are dropped and whitespace is
// collapsed.
func ReadOSIS(r io.Reader) (*Bible, error) {
	doc, err := xml.ParseReader(r)
	if err != nil {
		return nil, errors.NewParse("OSIS", "", err.Error())
	}

	osisText, err := doc.XPathFirst("//*[local-name()='osisText']")
	if err != nil {
		return nil, err
	}
	if osisText == nil {
		return nil, errors.NewParse("OSIS", "", "missing osisText element")
	}
	work := osisText.Attr("osisIDWork")
	if work == "" {
		return nil, errors.NewParse("OSIS", "", "missing osisIDWork")
	}
	id, err := translationID(work)
	if err != nil {
		return nil, err
	}

	name := ""
	if title, _ := osisText.XPathFirst(".//*[local-name()='work']/*[local-name()='title']"); title != nil {
		name = collapse(title.Text())
	}

	p := &osisParser{
		bible:   &Bible{Translation: search.Translation{ID: id, Name: name}},
		seen:    make(map[string]bool),
		skipped: make(map[string]bool),
	}
	osisText.Walk(p.visit)
	p.flush()
	return p.bible, nil
}

type osisParser struct {
	bible *Bible

	// open is the coordinate of an open milestone verse, if any.
	open *search.Coordinate
	text strings.Builder

	seen    map[string]bool
	skipped map[string]bool
}

func (p *osisParser) visit(n *xml.Node) bool {
	if n.IsText() {
		if p.open != nil {
			p.text.WriteString(n.Data())
		}
		return false
	}
	if !n.IsElement() {
		return true
	}

	switch n.Name() {
	case "div":
		if n.Attr("type") == "book" {
			if osisID := n.Attr("osisID"); osisID != "" {
				if _, ok := canon.FromOSIS(osisID); !ok {
					p.skip(osisID)
					return false
				}
			}
		}
		return true
	case "verse":
		return p.verse(n)
	}
	return !skipped[n.Name()]
}

func (p *osisParser) verse(n *xml.Node) bool {
	if eID := n.Attr("eID"); eID != "" {
		p.flush()
		return false
	}

	ref := n.Attr("osisID")
	if ref == "" {
		ref = n.Attr("sID")
	}
	coord, ok := p.coordinate(ref)

	if n.Attr("sID") != "" {
		p.flush()
		if ok {
			p.open = &coord
		}
		return false
	}

	if ok {
		p.add(coord, containerText(n))
	}
	return false
}

func containerText(n *xml.Node) string {
	var b strings.Builder
	n.Walk(func(c *xml.Node) bool {
		if c.IsText() {
			b.WriteString(c.Data())
			return false
		}
		return !skipped[c.Name()]
	})
	return b.String()
}

func (p *osisParser) flush() {
	if p.open != nil {
		p.add(*p.open, p.text.String())
	}
	p.open = nil
	p.text.Reset()
}

func (p *osisParser) add(c search.Coordinate, text string) {
	text = collapse(text)
	if text == "" {
		return
	}
	key := c.String()
	if p.seen[key] {
		return
	}
	p.seen[key] = true
	p.bible.Verses = append(p.bible.Verses, search.Verse{Coordinate: c, Text: text})
}

func (p *osisParser) skip(osisBook string) {
	if !p.skipped[osisBook] {
		p.skipped[osisBook] = true
		p.bible.Skipped = append(p.bible.Skipped, osisBook)
	}
}

// coordinate parses the first osisID of a verse, e.g. "Gen.1.1" or
// "Gen.1.1 Gen.1.2".
func (p *osisParser) coordinate(ref string) (search.Coordinate, bool) {
	if i := strings.IndexByte(ref, ' '); i >= 0 {
		ref = ref[:i]
	}
	parts := strings.Split(ref, ".")
	if len(parts) < 3 {
		return search.Coordinate{}, false
	}
	osisBook := strings.Join(parts[:len(parts)-2], ".")
	book, ok := canon.FromOSIS(osisBook)
	if !ok {
		p.skip(osisBook)
		return search.Coordinate{}, false
	}
	chapter, err1 := strconv.Atoi(parts[len(parts)-2])
	verse, err2 := strconv.Atoi(parts[len(parts)-1])
	if err1 != nil || err2 != nil || chapter < 1 || verse < 1 {
		return search.Coordinate{}, false
	}
	return search.Coordinate{
		Translation: p.bible.Translation.ID,
		Book:        book.Code,
		Chapter:     chapter,
		Verse:       verse,
	}, true
}
