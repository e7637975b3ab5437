// Package query parses free-text search queries into a boolean syntax tree.
//
// Grammar, lowest precedence first:
//
//	Or      := And ( "OR" And )*
//	And     := Unary ( "AND"? Unary )*
//	Unary   := "!" Unary | Primary
//	Primary := Phrase | Word | "(" Or ")"
//
// Juxtaposed operands are implicitly AND'ed, so "a OR b c" is "a OR (b AND c)".
// AND and OR are keywords only as standalone, unquoted words (any case).
// Words containing '*' or '?' become wildcards; quoted phrases are literal.
// Case sensitivity is not part of the tree; it is applied at evaluation time.
package query

import (
	stderrors "errors"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/JuniperSearch/core/errors"
)

//nolint:govet // participle grammar tags are not standard struct tags
type orExpr struct {
	Left  *andExpr   `@@`
	Right []*andExpr `( Or @@ )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type andExpr struct {
	Left  *unaryExpr   `@@`
	Right []*unaryExpr `( And? @@ )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type unaryExpr struct {
	Negated *unaryExpr   `  Not @@`
	Operand *primaryExpr `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type primaryExpr struct {
	Phrase *string `  @Phrase`
	Word   *string `| @Word`
	Group  *orExpr `| "(" @@ ")"`
}

// queryLexer tokenizes queries. And and Or never match directly: Word
// always wins, and keywordMapper promotes "and"/"or" words afterwards.
var queryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Phrase", Pattern: `"[^"]*"`},
	{Name: "Paren", Pattern: `[()]`},
	{Name: "Not", Pattern: `!`},
	{Name: "Word", Pattern: `[^\s()"!][^\s()"]*`},
	{Name: "And", Pattern: `(?i)and`},
	{Name: "Or", Pattern: `(?i)or`},
})

var (
	andToken = queryLexer.Symbols()["And"]
	orToken  = queryLexer.Symbols()["Or"]
)

func keywordMapper(tok lexer.Token) (lexer.Token, error) {
	switch strings.ToUpper(tok.Value) {
	case "AND":
		tok.Type = andToken
	case "OR":
		tok.Type = orToken
	}
	return tok, nil
}

var queryParser = participle.MustBuild[orExpr](
	participle.Lexer(queryLexer),
	participle.Elide("Whitespace"),
	participle.Map(keywordMapper, "Word"),
)

// Parse parses input into a syntax tree. It fails with *errors.SyntaxError
// only for malformed boolean structure; any other text is accepted.
func Parse(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, errors.NewValidation("query", "query is empty")
	}
	if err := checkBalance(input); err != nil {
		return nil, err
	}

	parsed, err := queryParser.ParseString("", input)
	if err != nil {
		return nil, syntaxErrorFrom(input, err)
	}
	return build(input, parsed)
}

// checkBalance reports unterminated quotes and unbalanced parentheses with
// precise positions before the grammar sees the input.
func checkBalance(input string) error {
	depth := 0
	open := -1
	quote := -1
	for i, r := range input {
		switch {
		case r == '"':
			if quote < 0 {
				quote = i
			} else {
				quote = -1
			}
		case quote >= 0:
		case r == '(':
			if depth == 0 {
				open = i
			}
			depth++
		case r == ')':
			if depth == 0 {
				return errors.NewSyntax(input, i, "unmatched closing parenthesis")
			}
			depth--
		}
	}
	if quote >= 0 {
		return errors.NewSyntax(input, quote, "unterminated quote")
	}
	if depth > 0 {
		return errors.NewSyntax(input, open, "unclosed parenthesis")
	}
	return nil
}

func syntaxErrorFrom(input string, err error) error {
	var perr participle.Error
	if !stderrors.As(err, &perr) {
		return errors.NewSyntax(input, -1, err.Error())
	}
	pos := perr.Position()
	if pos.Offset >= len(strings.TrimRight(input, " \t\r\n")) {
		return errors.NewSyntax(input, pos.Offset, "operator without operand at end of query")
	}
	return errors.NewSyntax(input, pos.Offset, "operator without operand: "+perr.Message())
}

func build(input string, e *orExpr) (Node, error) {
	left, err := buildAnd(input, e.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range e.Right {
		right, err := buildAnd(input, r)
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func buildAnd(input string, e *andExpr) (Node, error) {
	left, err := buildUnary(input, e.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range e.Right {
		right, err := buildUnary(input, r)
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func buildUnary(input string, e *unaryExpr) (Node, error) {
	if e.Negated != nil {
		inner, err := buildUnary(input, e.Negated)
		if err != nil {
			return nil, err
		}
		return &Not{Operand: inner}, nil
	}
	return buildPrimary(input, e.Operand)
}

func buildPrimary(input string, e *primaryExpr) (Node, error) {
	switch {
	case e.Phrase != nil:
		text := strings.TrimSuffix(strings.TrimPrefix(*e.Phrase, `"`), `"`)
		if text == "" {
			return nil, errors.NewSyntax(input, strings.Index(input, `""`), "empty phrase")
		}
		return &Phrase{Text: text}, nil
	case e.Word != nil:
		if isWildcard(*e.Word) {
			return &Wildcard{Pattern: *e.Word}, nil
		}
		return &Term{Text: *e.Word}, nil
	case e.Group != nil:
		return build(input, e.Group)
	}
	return nil, errors.NewSyntax(input, -1, "empty expression")
}
