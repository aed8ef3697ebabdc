package webconfig

import (
	"bufio"
	"io"
	"strings"
)

// token is a single lexical unit of the config grammar (spec §6): a bare
// word, or one of the structural characters '{', '}', ';'. Modeled on the
// teacher's caddyconfig/caddyfile lexer — a reader-backed token scanner —
// but specialized for this grammar's brace/semicolon punctuation instead
// of Caddyfile's newline-delimited directives.
type token struct {
	text string
	line int
}

type lexer struct {
	r    *bufio.Reader
	line int
}

func newLexer(r io.Reader) *lexer {
	return &lexer{r: bufio.NewReader(r), line: 1}
}

// next returns the next token and true, or a zero token and false at EOF.
// Whitespace separates tokens; '#' starts a line comment; '{', '}' and
// ';' are tokens in their own right even when not surrounded by
// whitespace (e.g. "listen 80;" and "location /a{" both lex correctly).
func (lx *lexer) next() (token, bool) {
	var sb strings.Builder
	startLine := lx.line
	inComment := false

	flush := func() (token, bool) {
		if sb.Len() == 0 {
			return token{}, false
		}
		return token{text: sb.String(), line: startLine}, true
	}

	for {
		ch, _, err := lx.r.ReadRune()
		if err != nil {
			return flush()
		}
		if ch == '\n' {
			lx.line++
			inComment = false
			if sb.Len() > 0 {
				lx.unread()
				return flush()
			}
			continue
		}
		if inComment {
			continue
		}
		if ch == '#' && sb.Len() == 0 {
			inComment = true
			continue
		}
		if ch == ' ' || ch == '\t' || ch == '\r' {
			if sb.Len() > 0 {
				return flush()
			}
			continue
		}
		if ch == '{' || ch == '}' || ch == ';' {
			if sb.Len() > 0 {
				lx.unread()
				return flush()
			}
			return token{text: string(ch), line: lx.line}, true
		}
		if sb.Len() == 0 {
			startLine = lx.line
		}
		sb.WriteRune(ch)
	}
}

func (lx *lexer) unread() {
	_ = lx.r.UnreadRune()
}

// tokenize drains the lexer into a flat slice, trimming a single trailing
// ';' off any bare-word token that still carries one (directives written
// as "root /var/www;" without a space before the semicolon).
func tokenize(r io.Reader) []token {
	lx := newLexer(r)
	var out []token
	for {
		t, ok := lx.next()
		if !ok {
			break
		}
		if len(t.text) > 1 && strings.HasSuffix(t.text, ";") && t.text != ";" {
			out = append(out, token{text: strings.TrimSuffix(t.text, ";"), line: t.line})
			out = append(out, token{text: ";", line: t.line})
			continue
		}
		out = append(out, t)
	}
	return out
}
