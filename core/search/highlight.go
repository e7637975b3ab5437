package search

import (
	"slices"
	"strings"
)

// Bracket delimiters wrapped around highlighted spans.
const (
	OpenMark  = "["
	CloseMark = "]"
)

// Highlight returns the spans of text matched by q. Reference queries have
// no spans.
func Highlight(text string, q Query, caseSensitive bool) ([]Span, error) {
	if q.Expression == nil {
		return nil, nil
	}
	m, err := compile(q.Expression, caseSensitive)
	if err != nil {
		return nil, err
	}
	return m.Spans(text), nil
}

// MergeSpans sorts spans by start and merges any span whose start is at or
// before the previous end into their union. Empty spans are dropped.
func MergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.End > s.Start {
			sorted = append(sorted, s)
		}
	}
	slices.SortFunc(sorted, func(a, b Span) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return a.End - b.End
	})

	var out []Span
	for _, s := range sorted {
		if n := len(out); n > 0 && s.Start <= out[n-1].End {
			if s.End > out[n-1].End {
				out[n-1].End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// Render wraps each span of text in brackets. Spans must be ascending and
// disjoint, as MergeSpans returns them.
func Render(text string, spans []Span) string {
	return RenderMarks(text, spans, OpenMark, CloseMark)
}

// RenderMarks wraps each span of text in openMark and closeMark. Insertion
// runs from the last span to the first so earlier offsets stay valid.
func RenderMarks(text string, spans []Span, openMark, closeMark string) string {
	if len(spans) == 0 {
		return text
	}
	out := text
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
			continue
		}
		out = out[:s.Start] + openMark + out[s.Start:s.End] + closeMark + out[s.End:]
	}
	return out
}

// StripMarks removes every bracket from rendered text. Brackets that were
// part of the verse itself are lost; callers holding the spans should render
// with distinct marks instead.
func StripMarks(text string) string {
	return strings.NewReplacer(OpenMark, "", CloseMark, "").Replace(text)
}
