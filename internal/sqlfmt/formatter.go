// Package sqlfmt pretty-prints SQL without a model call. It tokenizes with
// go-sqllexer and re-emits the tokens with one clause per line and clause
// bodies indented beneath them.
package sqlfmt

import (
	"strings"

	"github.com/DataDog/go-sqllexer"
)

type KeywordCase int

const (
	KeywordUpper KeywordCase = iota
	KeywordLower
	KeywordPreserve
)

type Options struct {
	// Dialect is a front-end language name such as "postgresql" or "mysql".
	Dialect     string
	Indent      string
	KeywordCase KeywordCase
}

// DefaultDialect is used when a request names none.
const DefaultDialect = "postgresql"

var dialects = map[string]sqllexer.DBMSType{
	"sql":        "",
	"postgresql": sqllexer.DBMSPostgres,
	"postgres":   sqllexer.DBMSPostgres,
	"mysql":      sqllexer.DBMSMySQL,
	"mariadb":    sqllexer.DBMSMySQL,
	"tsql":       sqllexer.DBMSSQLServer,
	"mssql":      sqllexer.DBMSSQLServer,
	"sqlserver":  sqllexer.DBMSSQLServer,
	"plsql":      sqllexer.DBMSOracle,
	"oracle":     sqllexer.DBMSOracle,
	"snowflake":  sqllexer.DBMSSnowflake,
}

// SupportedDialect reports whether name maps to a lexer dialect.
func SupportedDialect(name string) bool {
	_, ok := dialects[strings.ToLower(name)]
	return ok
}

type token struct {
	typ sqllexer.TokenType
	val string
}

func (t token) upper() string {
	return strings.ToUpper(t.val)
}

// Words the lexer reports as identifiers but that read as keywords.
var extraKeywords = wordSet("WHEN", "THEN", "FULL", "CROSS", "NATURAL",
	"LATERAL", "OVER", "PARTITION", "EXCEPT", "INTERSECT", "NULLS")

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func (t token) isWord() bool {
	switch t.typ {
	case sqllexer.COMMAND, sqllexer.KEYWORD, sqllexer.BOOLEAN, sqllexer.NULL,
		sqllexer.CTE_INDICATOR, sqllexer.ALIAS_INDICATOR, sqllexer.PROC_INDICATOR:
		return true
	case sqllexer.IDENT:
		return extraKeywords[t.upper()]
	}
	return false
}

func (t token) is(val string) bool {
	return t.val == val
}

func tokenize(query, dialect string) []token {
	lexer := sqllexer.New(query)
	if dbms := dialects[strings.ToLower(dialect)]; dbms != "" {
		lexer = sqllexer.New(query, sqllexer.WithDBMS(dbms))
	}

	var tokens []token
	for {
		t := lexer.Scan()
		if t.Type == sqllexer.EOF {
			break
		}
		if t.Type == sqllexer.SPACE {
			continue
		}
		// Scan reuses its token, so copy the fields out.
		tokens = append(tokens, token{typ: t.Type, val: t.Value})
	}
	return tokens
}

// clause kinds decide where line breaks go.
type clauseKind int

// bodyClause puts the keyword on its own line with the body indented below.
// joinClause starts an indented line and keeps the table inline. setOperator
// sits on its own line between two statements.
const (
	notClause clauseKind = iota
	bodyClause
	joinClause
	setOperator
)

var clauseWords = map[string]clauseKind{}

func init() {
	for _, w := range []string{
		"SELECT", "SELECT DISTINCT", "SELECT ALL", "FROM", "WHERE",
		"GROUP BY", "ORDER BY", "HAVING", "LIMIT", "OFFSET",
		"INSERT INTO", "VALUES", "UPDATE", "SET", "DELETE FROM",
		"WITH", "WITH RECURSIVE", "RETURNING", "WINDOW",
	} {
		clauseWords[w] = bodyClause
	}
	for _, w := range []string{"UNION", "UNION ALL", "UNION DISTINCT", "EXCEPT", "INTERSECT"} {
		clauseWords[w] = setOperator
	}
}

var joinPrefixes = wordSet("LEFT", "RIGHT", "INNER", "OUTER", "FULL", "CROSS", "NATURAL")

// unit is one emitted piece: a single token or a merged multi-word keyword.
type unit struct {
	token
	words  []string
	clause clauseKind
}

func (u unit) text(kc KeywordCase) string {
	if !u.isWord() {
		return u.val
	}
	switch kc {
	case KeywordUpper:
		return strings.Join(upperAll(u.words), " ")
	case KeywordLower:
		return strings.ToLower(strings.Join(u.words, " "))
	default:
		return strings.Join(u.words, " ")
	}
}

func upperAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToUpper(w)
	}
	return out
}

// merge folds multi-word keywords (GROUP BY, LEFT OUTER JOIN, UNION ALL)
// into single units and tags the clause kind of each.
func merge(tokens []token) []unit {
	units := make([]unit, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		u := unit{token: t, words: []string{t.val}}
		if !t.isWord() {
			units = append(units, u)
			continue
		}

		key := t.upper()
		switch {
		case key == "GROUP" || key == "ORDER" || key == "PARTITION":
			if i+1 < len(tokens) && tokens[i+1].upper() == "BY" {
				u.words = append(u.words, tokens[i+1].val)
				i++
			}
		case key == "UNION" || key == "SELECT":
			if i+1 < len(tokens) && (tokens[i+1].upper() == "ALL" || tokens[i+1].upper() == "DISTINCT") {
				u.words = append(u.words, tokens[i+1].val)
				i++
			}
		case key == "INSERT":
			if i+1 < len(tokens) && tokens[i+1].upper() == "INTO" {
				u.words = append(u.words, tokens[i+1].val)
				i++
			}
		case key == "DELETE":
			if i+1 < len(tokens) && tokens[i+1].upper() == "FROM" {
				u.words = append(u.words, tokens[i+1].val)
				i++
			}
		case key == "WITH":
			if i+1 < len(tokens) && tokens[i+1].upper() == "RECURSIVE" {
				u.words = append(u.words, tokens[i+1].val)
				i++
			}
		case joinPrefixes[key]:
			j := i + 1
			for j < len(tokens) && joinPrefixes[tokens[j].upper()] {
				j++
			}
			if j < len(tokens) && tokens[j].upper() == "JOIN" {
				for k := i + 1; k <= j; k++ {
					u.words = append(u.words, tokens[k].val)
				}
				u.clause = joinClause
				i = j
				units = append(units, u)
				continue
			}
		case key == "JOIN" || key == "STRAIGHT_JOIN":
			u.clause = joinClause
			units = append(units, u)
			continue
		}

		u.clause = clauseWords[strings.ToUpper(strings.Join(u.words, " "))]
		units = append(units, u)
	}
	return units
}

type frame struct {
	subquery bool
	level    int // clause level inside this frame
}

type printer struct {
	b           strings.Builder
	indent      string
	atLineStart bool
	pending     int
	prev        *unit
}

func (p *printer) newline(level int) {
	if !p.atLineStart {
		p.b.WriteByte('\n')
		p.atLineStart = true
	}
	p.pending = level
}

func (p *printer) blankLine() {
	if !p.atLineStart {
		p.b.WriteByte('\n')
	}
	p.b.WriteByte('\n')
	p.atLineStart = true
	p.pending = 0
}

func (p *printer) write(u *unit, text string) {
	if p.atLineStart {
		p.b.WriteString(strings.Repeat(p.indent, p.pending))
	} else if needsSpace(p.prev, u) {
		p.b.WriteByte(' ')
	}
	p.b.WriteString(text)
	p.atLineStart = false
	p.prev = u
}

func needsSpace(prev, cur *unit) bool {
	if prev == nil {
		return false
	}
	if prev.is("(") || prev.is(".") || prev.is("::") || prev.is("[") {
		return false
	}
	if cur.is(",") || cur.is(")") || cur.is(";") || cur.is(".") || cur.is("::") || cur.is("]") {
		return false
	}
	if cur.is("(") && prev.typ == sqllexer.FUNCTION {
		return false
	}
	if cur.is("[") && !prev.isWord() {
		return false
	}
	return true
}

// Format returns query re-indented. Tokens are never dropped or reordered,
// so the result is equivalent SQL.
func Format(query string, opts Options) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}
	indent := opts.Indent
	if indent == "" {
		indent = "  "
	}

	units := merge(tokenize(query, opts.Dialect))
	p := &printer{indent: indent, atLineStart: true}
	frames := []frame{{level: 0}}
	betweenOpen := false

	for i := range units {
		u := &units[i]
		top := frames[len(frames)-1]
		statement := top.subquery || len(frames) == 1
		text := u.text(opts.KeywordCase)

		switch {
		case statement && u.clause == bodyClause:
			p.newline(top.level)
			p.write(u, text)
			p.newline(top.level + 1)

		case statement && u.clause == joinClause:
			p.newline(top.level + 1)
			p.write(u, text)

		case statement && u.clause == setOperator:
			p.newline(top.level)
			p.write(u, text)
			p.newline(top.level)

		case statement && u.isWord() && (u.upper() == "AND" || u.upper() == "OR"):
			if betweenOpen && u.upper() == "AND" {
				betweenOpen = false
				p.write(u, text)
				continue
			}
			p.newline(top.level + 1)
			p.write(u, text)

		case u.is("("):
			sub := i+1 < len(units) && units[i+1].isWord() &&
				(units[i+1].upper() == "SELECT" || strings.HasPrefix(units[i+1].upper(), "WITH"))
			p.write(u, text)
			if sub {
				frames = append(frames, frame{subquery: true, level: top.level + 2})
			} else {
				frames = append(frames, frame{level: top.level})
			}

		case u.is(")"):
			if len(frames) > 1 {
				frames = frames[:len(frames)-1]
				if top.subquery {
					p.newline(top.level - 1)
				}
			}
			p.write(u, text)

		case statement && u.is(","):
			p.write(u, text)
			p.newline(top.level + 1)

		case u.is(";"):
			p.write(u, text)
			p.blankLine()
			frames = frames[:1]
			betweenOpen = false

		case u.typ == sqllexer.COMMENT:
			p.write(u, strings.TrimRight(text, "\r\n"))
			p.newline(top.level + 1)

		default:
			if u.isWord() {
				switch u.upper() {
				case "BETWEEN":
					betweenOpen = true
				case "AND":
					betweenOpen = false
				}
			}
			p.write(u, text)
		}
	}

	return strings.TrimRight(p.b.String(), " \n")
}
