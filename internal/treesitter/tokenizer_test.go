package treesitter

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kobzarvs/qcolor/internal/highlight"
)

func collect(t *testing.T, tk *Tokenizer, text string, start int) []highlight.Token {
	t.Helper()
	if err := tk.Reset(strings.NewReader(text), start); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	var out []highlight.Token
	for {
		tok, err := tk.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next error: %v", err)
		}
		out = append(out, tok)
	}
}

func find(tokens []highlight.Token, begin int) (highlight.Token, bool) {
	for _, tok := range tokens {
		if tok.Begin == begin {
			return tok, true
		}
	}
	return highlight.Token{}, false
}

func TestLoadLanguageUnknown(t *testing.T) {
	if _, err := NewTokenizer("cobol"); !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("NewTokenizer error = %v, want ErrUnknownLanguage", err)
	}
}

func TestLoadLanguageQueries(t *testing.T) {
	for _, name := range Names() {
		if _, err := LoadLanguage(name); err != nil {
			t.Fatalf("LoadLanguage(%q) error: %v", name, err)
		}
	}
}

func TestGoTokensKinds(t *testing.T) {
	tk, err := NewTokenizer("go")
	if err != nil {
		t.Fatalf("NewTokenizer error: %v", err)
	}
	src := "package main\n\n// hi\nfunc main() { x := \"s\" }\n"
	tokens := collect(t, tk, src, 0)
	if len(tokens) == 0 {
		t.Fatalf("no tokens")
	}

	cases := []struct {
		text string
		kind highlight.Kind
	}{
		{"package", "keyword"},
		{"// hi", "comment"},
		{"func", "keyword"},
		{"main()", "function"},
		{"\"s\"", "string"},
	}
	for _, tc := range cases {
		at := strings.Index(src, tc.text)
		tok, ok := find(tokens, at)
		if !ok {
			t.Fatalf("no token at %d (%q)", at, tc.text)
		}
		if tok.Kind != tc.kind {
			t.Fatalf("kind at %q = %q, want %q", tc.text, tok.Kind, tc.kind)
		}
	}
}

func TestGoInitialTokensStartTopLevelNodes(t *testing.T) {
	tk, err := NewTokenizer("go")
	if err != nil {
		t.Fatalf("NewTokenizer error: %v", err)
	}
	src := "package main\n\nfunc a() {}\n\nfunc b() {}\n"
	tokens := collect(t, tk, src, 0)

	initial := make(map[int]bool)
	for _, tok := range tokens {
		if tok.Initial {
			initial[tok.Begin] = true
		}
	}
	for _, at := range []int{0, strings.Index(src, "func a"), strings.Index(src, "func b")} {
		if !initial[at] {
			t.Fatalf("token at %d not initial; initial = %v", at, initial)
		}
	}
	for _, inner := range []string{"main", "a()", "{}"} {
		if at := strings.Index(src, inner); initial[at] {
			t.Fatalf("token %q at %d is initial inside a declaration", inner, at)
		}
	}
}

func TestResetOffsetsAreRuneBased(t *testing.T) {
	tk, err := NewTokenizer("toml")
	if err != nil {
		t.Fatalf("NewTokenizer error: %v", err)
	}
	src := "a = \"żółw\"\nb = 1\n"
	tokens := collect(t, tk, src, 100)

	runes := []rune(src)
	// byte index and rune index differ after the multibyte string
	bAt := 100 + len([]rune(src[:strings.Index(src, "b =")]))
	tok, ok := find(tokens, bAt)
	if !ok {
		t.Fatalf("no token at %d; tokens = %v", bAt, tokens)
	}
	if tok.Length != 1 {
		t.Fatalf("length of b = %d, want 1", tok.Length)
	}
	if !tok.Initial {
		t.Fatalf("b should start a top-level pair")
	}
	last := tokens[len(tokens)-1]
	if last.End() > 100+len(runes) {
		t.Fatalf("last token ends at %d past %d", last.End(), 100+len(runes))
	}
}

func TestTokensAreOrderedAndDisjoint(t *testing.T) {
	tk, err := NewTokenizer("bash")
	if err != nil {
		t.Fatalf("NewTokenizer error: %v", err)
	}
	src := "#!/bin/sh\necho \"$HOME\" | wc -l\nif true; then exit 1; fi\n"
	tokens := collect(t, tk, src, 0)
	prev := 0
	for _, tok := range tokens {
		if tok.Begin < prev {
			t.Fatalf("token %+v overlaps previous end %d", tok, prev)
		}
		if tok.Length <= 0 {
			t.Fatalf("token %+v has no length", tok)
		}
		prev = tok.End()
	}
}

func TestEmptyInput(t *testing.T) {
	tk, err := NewTokenizer("yaml")
	if err != nil {
		t.Fatalf("NewTokenizer error: %v", err)
	}
	if tokens := collect(t, tk, "", 0); len(tokens) != 0 {
		t.Fatalf("tokens = %v, want none", tokens)
	}
}
