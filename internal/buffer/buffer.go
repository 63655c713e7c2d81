// Package buffer implements the styled text buffer the colorer paints into.
package buffer

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	ErrBadLocation = errors.New("bad location")
	ErrClosed      = errors.New("buffer closed")
)

type attr struct {
	style   tcell.Style
	painted bool
}

// Buffer is a rune buffer with per-rune styles. All access goes through one
// RWMutex, the structural lock shared by edits and paints.
type Buffer struct {
	mu        sync.RWMutex
	text      []rune
	attrs     []attr
	positions map[*Position]struct{}
	listeners []func(offset, delta int)

	done      chan struct{}
	closeOnce sync.Once
}

func New(text string) *Buffer {
	runes := []rune(text)
	return &Buffer{
		text:      runes,
		attrs:     make([]attr, len(runes)),
		positions: make(map[*Position]struct{}),
		done:      make(chan struct{}),
	}
}

// Close tears the buffer down. Workers attached to it observe Done and exit.
func (b *Buffer) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Buffer) Done() <-chan struct{} {
	return b.done
}

func (b *Buffer) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// OnChange registers fn to run after every insertion (delta > 0) or deletion
// (delta < 0). fn runs with the write lock held and must not call back into
// the buffer.
func (b *Buffer) OnChange(fn func(offset, delta int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.text)
}

func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.text)
}

// Text returns the runes in [start, end).
func (b *Buffer) Text(start, end int) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if start < 0 || end < start || end > len(b.text) {
		return "", fmt.Errorf("%w: [%d,%d) in %d", ErrBadLocation, start, end, len(b.text))
	}
	return string(b.text[start:end]), nil
}

// Insert inserts s at offset. Inserted runes start unpainted.
func (b *Buffer) Insert(offset int, s string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insertLocked(offset, []rune(s))
}

// Delete removes n runes starting at offset.
func (b *Buffer) Delete(offset, n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleteLocked(offset, n)
}

// Replace swaps the whole content for text, touching only the region between
// the common prefix and suffix of the old and new content. It reports the
// offset just past the last changed rune.
func (b *Buffer) Replace(text string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := []rune(text)
	dmp := diffmatchpatch.New()
	prefix := dmp.DiffCommonPrefix(string(b.text), text)
	suffix := dmp.DiffCommonSuffix(string(b.text[prefix:]), string(next[prefix:]))

	if n := len(b.text) - prefix - suffix; n > 0 {
		if err := b.deleteLocked(prefix, n); err != nil {
			return 0, err
		}
	}
	middle := next[prefix : len(next)-suffix]
	if len(middle) > 0 {
		if err := b.insertLocked(prefix, middle); err != nil {
			return 0, err
		}
	}
	return prefix + len(middle), nil
}

func (b *Buffer) insertLocked(offset int, runes []rune) error {
	if b.closed() {
		return ErrClosed
	}
	if offset < 0 || offset > len(b.text) {
		return fmt.Errorf("%w: insert at %d in %d", ErrBadLocation, offset, len(b.text))
	}
	n := len(runes)
	if n == 0 {
		return nil
	}
	b.text = slices.Insert(b.text, offset, runes...)
	b.attrs = slices.Insert(b.attrs, offset, make([]attr, n)...)
	for p := range b.positions {
		if p.offset > offset {
			p.offset += n
		}
	}
	for _, fn := range b.listeners {
		fn(offset, n)
	}
	return nil
}

func (b *Buffer) deleteLocked(offset, n int) error {
	if b.closed() {
		return ErrClosed
	}
	if offset < 0 || n < 0 || offset+n > len(b.text) {
		return fmt.Errorf("%w: delete [%d,%d) in %d", ErrBadLocation, offset, offset+n, len(b.text))
	}
	if n == 0 {
		return nil
	}
	b.text = slices.Delete(b.text, offset, offset+n)
	b.attrs = slices.Delete(b.attrs, offset, offset+n)
	for p := range b.positions {
		switch {
		case p.offset >= offset+n:
			p.offset -= n
		case p.offset > offset:
			p.offset = offset
		}
	}
	for _, fn := range b.listeners {
		fn(offset, -n)
	}
	return nil
}

// Batch runs fn with the write lock held. paint may be called any number of
// times; every paint is visible to readers at once when fn returns.
func (b *Buffer) Batch(fn func(length int, paint func(start, end int, style tcell.Style) error) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(len(b.text), b.paintLocked)
}

// Paint applies style to [start, end).
func (b *Buffer) Paint(start, end int, style tcell.Style) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paintLocked(start, end, style)
}

func (b *Buffer) paintLocked(start, end int, style tcell.Style) error {
	if start < 0 || end < start || end > len(b.text) {
		return fmt.Errorf("%w: paint [%d,%d) in %d", ErrBadLocation, start, end, len(b.text))
	}
	for i := start; i < end; i++ {
		b.attrs[i] = attr{style: style, painted: true}
	}
	return nil
}

// StyleAt returns the style of the rune at offset and whether it has ever
// been painted.
func (b *Buffer) StyleAt(offset int) (tcell.Style, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if offset < 0 || offset >= len(b.attrs) {
		return tcell.StyleDefault, false
	}
	a := b.attrs[offset]
	return a.style, a.painted
}

// Styles returns the styles of [start, end).
func (b *Buffer) Styles(start, end int) ([]tcell.Style, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if start < 0 || end < start || end > len(b.attrs) {
		return nil, fmt.Errorf("%w: [%d,%d) in %d", ErrBadLocation, start, end, len(b.attrs))
	}
	out := make([]tcell.Style, end-start)
	for i := range out {
		out[i] = b.attrs[start+i].style
	}
	return out, nil
}

// Unpainted counts the runes that no paint has reached since they were
// inserted.
func (b *Buffer) Unpainted() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, a := range b.attrs {
		if !a.painted {
			n++
		}
	}
	return n
}

// Snapshot calls fn for every rune with its style under one read lock.
func (b *Buffer) Snapshot(fn func(offset int, r rune, style tcell.Style)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i, r := range b.text {
		fn(i, r, b.attrs[i].style)
	}
}

// Position is an offset that follows the text around it. Text inserted
// exactly at a position lands after it; a deletion spanning it collapses it
// to the start of the deleted range.
type Position struct {
	buf    *Buffer
	offset int
}

// NewPosition anchors a position at offset.
func (b *Buffer) NewPosition(offset int) (*Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.newPositionLocked(offset)
}

func (b *Buffer) newPositionLocked(offset int) (*Position, error) {
	if offset < 0 || offset > len(b.text) {
		return nil, fmt.Errorf("%w: position %d in %d", ErrBadLocation, offset, len(b.text))
	}
	p := &Position{buf: b, offset: offset}
	b.positions[p] = struct{}{}
	return p, nil
}

func (p *Position) Offset() int {
	p.buf.mu.RLock()
	defer p.buf.mu.RUnlock()
	return p.offset
}

// Compare orders positions by their current offsets.
func (p *Position) Compare(q *Position) int {
	a, b := p.Offset(), q.Offset()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Release stops tracking edits for p.
func (p *Position) Release() {
	p.buf.mu.Lock()
	defer p.buf.mu.Unlock()
	delete(p.buf.positions, p)
}

// Reader reads runes from an anchored position, so it keeps its place while
// the buffer is edited underneath it.
type Reader struct {
	buf *Buffer
	pos *Position
	// unread is set while the last rune read can be pushed back. It is kept
	// relative to pos so that edits moving pos keep it valid.
	unread bool
}

// NewReader returns a reader positioned at offset. Close releases it.
func (b *Buffer) NewReader(offset int) (io.RuneScanner, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.newPositionLocked(offset)
	if err != nil {
		return nil, err
	}
	return &Reader{buf: b, pos: p}, nil
}

func (r *Reader) ReadRune() (rune, int, error) {
	r.buf.mu.Lock()
	defer r.buf.mu.Unlock()
	if r.pos.offset >= len(r.buf.text) {
		r.unread = false
		return 0, 0, io.EOF
	}
	ch := r.buf.text[r.pos.offset]
	r.unread = true
	r.pos.offset++
	return ch, utf8.RuneLen(ch), nil
}

func (r *Reader) UnreadRune() error {
	r.buf.mu.Lock()
	defer r.buf.mu.Unlock()
	if !r.unread || r.pos.offset == 0 {
		return ErrBadLocation
	}
	r.pos.offset--
	r.unread = false
	return nil
}

// Seek moves the reader to offset.
func (r *Reader) Seek(offset int) error {
	r.buf.mu.Lock()
	defer r.buf.mu.Unlock()
	if offset < 0 || offset > len(r.buf.text) {
		return fmt.Errorf("%w: seek %d in %d", ErrBadLocation, offset, len(r.buf.text))
	}
	r.pos.offset = offset
	r.unread = false
	return nil
}

// Offset returns the offset of the next rune to be read.
func (r *Reader) Offset() int {
	return r.pos.Offset()
}

func (r *Reader) Close() error {
	r.pos.Release()
	return nil
}
