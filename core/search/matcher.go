package search

import (
	"regexp"
	"strings"

	"github.com/FocuswithJustin/JuniperSearch/core/query"
)

// wordRun matches the rest of a word. A leading or trailing '*' compiles to
// it so highlights stop at word boundaries; substring matching is unchanged
// because the run may be empty.
const wordRun = `[\pL\pN_']*`

// matcher evaluates a compiled expression against verse text.
type matcher struct {
	root     query.Node
	patterns map[query.Node]*regexp.Regexp
}

func compile(root query.Node, caseSensitive bool) (*matcher, error) {
	m := &matcher{root: root, patterns: make(map[query.Node]*regexp.Regexp)}
	for _, leaf := range query.Leaves(root) {
		re, err := regexp.Compile(leafPattern(leaf.Node, caseSensitive))
		if err != nil {
			return nil, err
		}
		m.patterns[leaf.Node] = re
	}
	return m, nil
}

// leafPattern returns the regular expression for a Term, Phrase or Wildcard.
func leafPattern(n query.Node, caseSensitive bool) string {
	var b strings.Builder
	b.WriteString("(?s)")
	if !caseSensitive {
		b.WriteString("(?i)")
	}
	switch n := n.(type) {
	case *query.Term:
		b.WriteString(regexp.QuoteMeta(n.Text))
	case *query.Phrase:
		b.WriteString(regexp.QuoteMeta(n.Text))
	case *query.Wildcard:
		b.WriteString(wildcardPattern(n.Pattern))
	}
	return b.String()
}

// wildcardPattern translates '*' and '?' into regexp syntax. '?' consumes
// exactly one character of any kind.
func wildcardPattern(pattern string) string {
	var b strings.Builder
	last := len(pattern) - 1
	for i, r := range pattern {
		switch r {
		case '*':
			if i == 0 || i == last {
				b.WriteString(wordRun)
			} else {
				b.WriteString(".*?")
			}
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

// Match reports whether text satisfies the expression.
func (m *matcher) Match(text string) bool {
	return m.eval(m.root, text)
}

func (m *matcher) eval(n query.Node, text string) bool {
	switch n := n.(type) {
	case *query.Term, *query.Phrase, *query.Wildcard:
		return m.patterns[n].MatchString(text)
	case *query.Not:
		return !m.eval(n.Operand, text)
	case *query.And:
		return m.eval(n.Left, text) && m.eval(n.Right, text)
	case *query.Or:
		return m.eval(n.Left, text) || m.eval(n.Right, text)
	}
	return false
}

// Spans returns the merged spans of every leaf that contributed to a match.
// Leaves under a Not never contribute, and neither does the losing side of
// an And.
func (m *matcher) Spans(text string) []Span {
	ok, spans := m.collect(m.root, text)
	if !ok {
		return nil
	}
	return MergeSpans(spans)
}

func (m *matcher) collect(n query.Node, text string) (bool, []Span) {
	switch n := n.(type) {
	case *query.Term, *query.Phrase, *query.Wildcard:
		var spans []Span
		for _, loc := range m.patterns[n].FindAllStringIndex(text, -1) {
			if loc[1] > loc[0] {
				spans = append(spans, Span{Start: loc[0], End: loc[1]})
			}
		}
		return m.patterns[n].MatchString(text), spans
	case *query.Not:
		return !m.eval(n.Operand, text), nil
	case *query.And:
		lok, left := m.collect(n.Left, text)
		if !lok {
			return false, nil
		}
		rok, right := m.collect(n.Right, text)
		if !rok {
			return false, nil
		}
		return true, append(left, right...)
	case *query.Or:
		lok, left := m.collect(n.Left, text)
		rok, right := m.collect(n.Right, text)
		var spans []Span
		if lok {
			spans = append(spans, left...)
		}
		if rok {
			spans = append(spans, right...)
		}
		return lok || rok, spans
	}
	return false, nil
}
