package query

import (
	"strconv"
	"strings"
)

// Node is a node of a parsed query. The set of implementations is closed:
// Term, Phrase, Wildcard, Not, And and Or. Consumers switch over all six.
type Node interface {
	node()
	String() string
}

// Term matches verses containing Text as a substring.
type Term struct {
	Text string
}

// Phrase matches verses containing Text verbatim, internal whitespace included.
type Phrase struct {
	Text string
}

// Wildcard matches verses containing a substring that fits Pattern, where
// '*' stands for any run of characters and '?' for exactly one character.
type Wildcard struct {
	Pattern string
}

// Not negates its operand.
type Not struct {
	Operand Node
}

// And matches when both sides match.
type And struct {
	Left, Right Node
}

// Or matches when either side matches.
type Or struct {
	Left, Right Node
}

func (*Term) node()     {}
func (*Phrase) node()   {}
func (*Wildcard) node() {}
func (*Not) node()      {}
func (*And) node()      {}
func (*Or) node()       {}

func (n *Term) String() string     { return n.Text }
func (n *Phrase) String() string   { return strconv.Quote(n.Text) }
func (n *Wildcard) String() string { return n.Pattern }
func (n *Not) String() string      { return "!" + n.Operand.String() }
func (n *And) String() string      { return "(" + n.Left.String() + " AND " + n.Right.String() + ")" }
func (n *Or) String() string       { return "(" + n.Left.String() + " OR " + n.Right.String() + ")" }

// Leaf is a Term, Phrase or Wildcard together with its polarity.
type Leaf struct {
	Node    Node
	Negated bool
}

// Leaves returns every leaf of the tree in left-to-right order. A leaf is
// negated when any ancestor is a Not.
func Leaves(root Node) []Leaf {
	var out []Leaf
	var walk func(n Node, negated bool)
	walk = func(n Node, negated bool) {
		switch n := n.(type) {
		case *Term, *Phrase, *Wildcard:
			out = append(out, Leaf{Node: n, Negated: negated})
		case *Not:
			walk(n.Operand, true)
		case *And:
			walk(n.Left, negated)
			walk(n.Right, negated)
		case *Or:
			walk(n.Left, negated)
			walk(n.Right, negated)
		}
	}
	walk(root, false)
	return out
}

// isWildcard reports whether an unquoted word carries wildcard characters.
func isWildcard(word string) bool {
	return strings.ContainsAny(word, "*?")
}
