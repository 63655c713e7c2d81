// Package highlight keeps the style annotations of a live text buffer in sync
// with its content. A single background Colorer per buffer consumes edit
// notices, re-lexes only as much text as an edit can have affected and paints
// the result back into the buffer.
package highlight

import (
	"errors"
	"fmt"
	"io"

	"github.com/gdamore/tcell/v2"
)

var (
	// ErrTokenizerDefect reports a token with an impossible shape.
	ErrTokenizerDefect = errors.New("tokenizer produced a malformed token")
	// ErrStalePosition reports a paint span that no longer fits the buffer
	// because of a concurrent edit.
	ErrStalePosition = errors.New("position invalidated by concurrent edit")
)

// Kind tags a token with the lexical category it belongs to.
type Kind string

// DefaultKind styles text that no token claims.
const DefaultKind Kind = "default"

// Token is a single lexeme produced by a Tokenizer.
type Token struct {
	Begin  int
	Length int
	Kind   Kind
	// Initial is set when the tokenizer is in its initial state at Begin,
	// which makes Begin a safe place to restart lexing.
	Initial bool
}

// End returns the offset just past the token.
func (t Token) End() int {
	return t.Begin + t.Length
}

func (t Token) validate() error {
	if t.Begin < 0 || t.Length <= 0 || t.Kind == "" {
		return fmt.Errorf("%w: begin=%d length=%d kind=%q", ErrTokenizerDefect, t.Begin, t.Length, t.Kind)
	}
	return nil
}

// Tokenizer is a restartable lexer. Reset positions it on r and makes it
// report offsets as though r started at start. Next returns io.EOF once the
// input is exhausted.
type Tokenizer interface {
	Reset(r io.RuneScanner, start int) error
	Next() (Token, error)
}

// PaintFunc applies style to the runes in [start, end).
type PaintFunc = func(start, end int, style tcell.Style) error

// Document is the mutable buffer a Colorer keeps styled.
type Document interface {
	// Len returns the buffer length in runes.
	Len() int
	// NewReader returns a reader anchored at offset. If the reader also
	// implements io.Closer the colorer closes it when the pass ends.
	NewReader(offset int) (io.RuneScanner, error)
	// Batch runs fn with the buffer's structural lock held so that all
	// paints issued by fn land atomically with respect to edits.
	Batch(fn func(length int, paint PaintFunc) error) error
	// OnChange registers fn to be called, with the structural lock held,
	// after every mutation.
	OnChange(fn func(offset, delta int))
	// Done is closed when the buffer is torn down.
	Done() <-chan struct{}
}

// Palette maps token kinds to styles.
type Palette interface {
	Style(kind Kind) tcell.Style
}

// StylePalette is a Palette backed by a map, falling back to a base style.
type StylePalette struct {
	Base   tcell.Style
	Styles map[Kind]tcell.Style
}

func (p StylePalette) Style(kind Kind) tcell.Style {
	if s, ok := p.Styles[kind]; ok {
		return s
	}
	return p.Base
}

// Run is one token's span inside a painted batch.
type Run struct {
	Start int
	End   int
	Kind  Kind
}
