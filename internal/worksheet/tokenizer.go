// Package worksheet lexes proof worksheets for highlighting.
//
// A worksheet is line oriented: a token starting in column 0 opens a new
// statement. Lines whose first token starts with '*' are comments, as are the
// indented continuation lines that follow them. The lexer is back in its
// initial state at a statement that does not follow a comment.
package worksheet

import (
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/kobzarvs/qcolor/internal/highlight"
)

const (
	KindComment  highlight.Kind = "comment"
	KindStep     highlight.Kind = "step"
	KindSetVar   highlight.Kind = "setvar"
	KindClassVar highlight.Kind = "classvar"
	KindWffVar   highlight.Kind = "wffvar"
	KindWorkVar  highlight.Kind = "workvar"
)

var (
	setVarRe   = regexp.MustCompile(`^[a-z]$`)
	classVarRe = regexp.MustCompile(`^[A-Z]$`)
	wffVarRe   = regexp.MustCompile(`^(ph|ps|ch|th|ta|et|ze|si|rh|mu|la|ka)$`)
	workVarRe  = regexp.MustCompile(`^&[CWS][0-9]+$`)
)

var errNotReset = errors.New("worksheet: tokenizer used before Reset")

// Tokenizer splits a worksheet into whitespace separated tokens.
type Tokenizer struct {
	r      io.RuneScanner
	origin int // feigned offset of the first rune
	read   int // runes consumed since Reset
	line   int
	col    int

	lastLine  int
	inComment bool
	sb        strings.Builder
}

func New() *Tokenizer {
	return &Tokenizer{}
}

// Reset starts lexing r in the initial state, reporting offsets relative to
// start.
func (t *Tokenizer) Reset(r io.RuneScanner, start int) error {
	t.r = r
	t.origin = start
	t.read = 0
	t.line = 0
	t.col = 0
	t.lastLine = -1
	t.inComment = false
	return nil
}

func (t *Tokenizer) Next() (highlight.Token, error) {
	if t.r == nil {
		return highlight.Token{}, errNotReset
	}

	// skip blanks
	for {
		ch, _, err := t.r.ReadRune()
		if err != nil {
			return highlight.Token{}, err
		}
		if !unicode.IsSpace(ch) {
			if err := t.r.UnreadRune(); err != nil {
				return highlight.Token{}, err
			}
			break
		}
		t.advance(ch)
	}

	begin := t.origin + t.read
	startCol := t.col
	t.sb.Reset()
	for {
		ch, _, err := t.r.ReadRune()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return highlight.Token{}, err
		}
		if unicode.IsSpace(ch) {
			if err := t.r.UnreadRune(); err != nil {
				return highlight.Token{}, err
			}
			break
		}
		t.sb.WriteRune(ch)
		t.advance(ch)
	}
	text := t.sb.String()

	tok := highlight.Token{
		Begin:  begin,
		Length: t.origin + t.read - begin,
	}
	lineStart := false
	if t.line != t.lastLine {
		t.lastLine = t.line
		if startCol == 0 {
			lineStart = true
			// A comment's continuation state leaks into the next line, so
			// only a statement that follows a non-comment is a clean restart.
			tok.Initial = !t.inComment
			t.inComment = strings.HasPrefix(text, "*")
		}
	}
	tok.Kind = classify(text, lineStart, t.inComment)
	return tok, nil
}

func (t *Tokenizer) advance(ch rune) {
	t.read++
	if ch == '\n' {
		t.line++
		t.col = 0
		return
	}
	t.col++
}

func classify(text string, lineStart, inComment bool) highlight.Kind {
	switch {
	case inComment:
		return KindComment
	case lineStart && !strings.HasPrefix(text, "$"):
		return KindStep
	case setVarRe.MatchString(text):
		return KindSetVar
	case classVarRe.MatchString(text):
		return KindClassVar
	case wffVarRe.MatchString(text):
		return KindWffVar
	case workVarRe.MatchString(text):
		return KindWorkVar
	}
	return highlight.DefaultKind
}
