package treesitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/toml"
	"github.com/smacker/go-tree-sitter/yaml"

	"github.com/kobzarvs/qcolor/internal/highlight"
)

var ErrUnknownLanguage = errors.New("treesitter: unknown language")

// Language bundles a grammar with its highlight query.
type Language struct {
	Name  string
	lang  *sitter.Language
	query *sitter.Query
}

func grammar(name string) (*sitter.Language, string) {
	switch name {
	case "go":
		return golang.GetLanguage(), goHighlightQuery
	case "yaml":
		return yaml.GetLanguage(), yamlHighlightQuery
	case "toml":
		return toml.GetLanguage(), tomlHighlightQuery
	case "bash":
		return bash.GetLanguage(), bashHighlightQuery
	default:
		return nil, ""
	}
}

// Names lists the languages this package can tokenize.
func Names() []string {
	return []string{"bash", "go", "toml", "yaml"}
}

// LoadLanguage compiles the grammar and query for name.
func LoadLanguage(name string) (*Language, error) {
	lang, src := grammar(name)
	if lang == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
	}
	query, err := sitter.NewQuery([]byte(src), lang)
	if err != nil {
		return nil, fmt.Errorf("treesitter: %s query: %w", name, err)
	}
	return &Language{Name: name, lang: lang, query: query}, nil
}

// Tokenizer parses everything after the reset point with tree-sitter and
// replays the leaves as tokens. A leaf that starts a top-level node is
// reported as an initial-state token: top-level declarations, tables and
// commands parse the same whether or not the text before them is present.
type Tokenizer struct {
	lang   *Language
	parser *sitter.Parser
	tokens []highlight.Token
	next   int
}

// NewTokenizer returns a tokenizer for the named language.
func NewTokenizer(name string) (*Tokenizer, error) {
	lang, err := LoadLanguage(name)
	if err != nil {
		return nil, err
	}
	p := sitter.NewParser()
	p.SetLanguage(lang.lang)
	return &Tokenizer{lang: lang, parser: p}, nil
}

type span struct {
	start, end uint32
}

type capture struct {
	kind    highlight.Kind
	pattern uint16
}

func (t *Tokenizer) Reset(r io.RuneScanner, start int) error {
	t.tokens = t.tokens[:0]
	t.next = 0

	var sb strings.Builder
	// runeAt[i] is the rune offset of byte i, for every rune boundary.
	runeAt := []int{0}
	for {
		ch, _, err := r.ReadRune()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		sb.WriteRune(ch)
		n := len(runeAt) - 1
		for i := 1; i < utf8.RuneLen(ch); i++ {
			runeAt = append(runeAt, runeAt[n])
		}
		runeAt = append(runeAt, runeAt[n]+1)
	}
	src := []byte(sb.String())
	if len(src) == 0 {
		return nil
	}

	tree, err := t.parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return fmt.Errorf("treesitter: parse %s: %w", t.lang.Name, err)
	}
	root := tree.RootNode()

	captures := t.captures(root, src)

	tops := make(map[uint32]bool, root.ChildCount())
	for i := 0; i < int(root.ChildCount()); i++ {
		tops[root.Child(i).StartByte()] = true
	}

	toRune := func(b uint32) int {
		if int(b) >= len(runeAt) {
			return start + runeAt[len(runeAt)-1]
		}
		return start + runeAt[b]
	}

	emit := func(from, to uint32, kind highlight.Kind, initial bool) {
		begin, end := toRune(from), toRune(to)
		if end <= begin {
			return
		}
		t.tokens = append(t.tokens, highlight.Token{
			Begin:   begin,
			Length:  end - begin,
			Kind:    kind,
			Initial: initial,
		})
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		count := int(n.ChildCount())
		if count == 0 {
			initial := tops[n.StartByte()]
			if initial && n.EndByte() > n.StartByte() {
				// only the first leaf of a top-level node restarts
				delete(tops, n.StartByte())
			}
			emit(n.StartByte(), n.EndByte(), kindOf(n, captures), initial)
			return
		}
		// Text a captured node owns outside its children, such as the body of
		// a string literal, is reported with the node's own kind.
		own, captured := captures[span{n.StartByte(), n.EndByte()}]
		at := n.StartByte()
		for i := 0; i < count; i++ {
			child := n.Child(i)
			if captured && child.StartByte() > at {
				emit(at, child.StartByte(), own.kind, false)
			}
			walk(child)
			at = max(at, child.EndByte())
		}
		if captured && n.EndByte() > at {
			emit(at, n.EndByte(), own.kind, false)
		}
	}
	walk(root)

	sort.SliceStable(t.tokens, func(i, j int) bool {
		return t.tokens[i].Begin < t.tokens[j].Begin
	})
	return nil
}

func (t *Tokenizer) captures(root *sitter.Node, src []byte) map[span]capture {
	out := make(map[span]capture)
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(t.lang.query, root)
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, src)
		if match == nil || len(match.Captures) == 0 {
			continue
		}
		for _, c := range match.Captures {
			key := span{c.Node.StartByte(), c.Node.EndByte()}
			if prev, seen := out[key]; seen && prev.pattern <= match.PatternIndex {
				continue
			}
			out[key] = capture{
				kind:    highlight.Kind(t.lang.query.CaptureNameForId(c.Index)),
				pattern: match.PatternIndex,
			}
		}
	}
	return out
}

// kindOf returns the innermost capture covering n.
func kindOf(n *sitter.Node, captures map[span]capture) highlight.Kind {
	for cur := n; cur != nil; cur = cur.Parent() {
		if c, ok := captures[span{cur.StartByte(), cur.EndByte()}]; ok {
			return c.kind
		}
	}
	return highlight.DefaultKind
}

func (t *Tokenizer) Next() (highlight.Token, error) {
	if t.next >= len(t.tokens) {
		return highlight.Token{}, io.EOF
	}
	tok := t.tokens[t.next]
	t.next++
	return tok, nil
}
