package highlight

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kobzarvs/qcolor/internal/logger"
)

const noTarget = -2

// Event reports the outcome of a coloring pass.
type Event struct {
	Kind  string // "colored", "abandoned" or "defect"
	Start int
	End   int
	Err   error
}

// Options tunes a Colorer.
type Options struct {
	// Name identifies the buffer in log output.
	Name string
	// Settle is slept after every pass so bursts of edits coalesce.
	Settle time.Duration
}

// Colorer is the background worker that keeps one Document styled.
//
// All offsets held by the colorer are in current buffer coordinates: Notify
// runs under the buffer's structural lock and moves the restart index, the
// queued events and the frame of the active pass across every edit.
type Colorer struct {
	doc       Document
	tokenizer Tokenizer
	palette   Palette
	opts      Options
	log       *zap.SugaredLogger

	mu   sync.Mutex
	cond *sync.Cond
	// Guarded by mu.
	queue         EditQueue
	index         *RestartIndex
	edits         uint64
	busy          bool
	stopped       bool
	catchUpTarget int

	// Frame of the active pass, guarded by mu. Tokens arrive in pass
	// coordinates; a pass offset at or past the flushed frontier maps to
	// the buffer by adding pendingChange.
	passStart     int
	dirtyEnd      int
	flushed       int
	lastPosition  int // furthest painted offset, -1 before the first paint
	readPosition  int // just past the furthest rune the tokenizer may have seen
	pendingChange int
	stale         bool
	gap           bool // unpainted text was inserted behind flushed
	found         *RestartIndex

	reported bool // owned by the loop goroutine

	wake     chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	events   chan Event
}

// Attach starts a Colorer for doc. The colorer registers itself for doc's
// change notifications and runs until Detach or until doc.Done is closed.
func Attach(doc Document, tokenizer Tokenizer, palette Palette, opts Options) *Colorer {
	c := &Colorer{
		doc:           doc,
		tokenizer:     tokenizer,
		palette:       palette,
		opts:          opts,
		log:           logger.Named("colorer").With("buffer", opts.Name),
		index:         NewRestartIndex(),
		found:         NewRestartIndex(),
		catchUpTarget: noTarget,
		lastPosition:  -1,
		readPosition:  -1,
		wake:          make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		events:        make(chan Event, 64),
	}
	c.cond = sync.NewCond(&c.mu)
	doc.OnChange(c.Notify)
	go c.loop()
	return c
}

// Detach stops the worker and waits for it to exit. Safe to call twice.
func (c *Colorer) Detach() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.doneCh
}

// Events returns pass outcomes. Events are dropped when nobody listens.
func (c *Colorer) Events() <-chan Event {
	return c.events
}

// RestartPoints returns the current restart index.
func (c *Colorer) RestartPoints() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Offsets()
}

// Pending returns the number of queued, not yet started, events.
func (c *Colorer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

// Notify is the document's change hook: delta runes were inserted (delta > 0)
// or deleted (delta < 0) at offset. It must run under the structural lock,
// before any later edit, and never blocks on the worker.
func (c *Colorer) Notify(offset, delta int) {
	c.mu.Lock()
	if delta != 0 {
		c.edits++
		c.index.Apply(offset, delta)
		c.queue.Transform(offset, delta)
		if c.busy {
			c.track(offset, delta)
		}
	}
	c.queue.Push(offset, delta)
	c.mu.Unlock()
	c.poke()
}

// ColorAll recolors the whole buffer. The length is read under the buffer
// lock so no edit can land between reading it and queueing the range.
func (c *Colorer) ColorAll() {
	_ = c.doc.Batch(func(length int, _ PaintFunc) error {
		c.mu.Lock()
		c.queue.Push(0, length)
		c.mu.Unlock()
		return nil
	})
	c.poke()
}

func (c *Colorer) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// track moves the active pass's frame across an edit. An edit wholly before
// the flushed frontier shifts the frame. An edit between the frontier and the
// read position makes the pass stale. Edits past the read position are left
// for the reader. Neither a stale pass nor one with a gap behind its frontier
// counts as progress for Block; the queued event covers that text.
func (c *Colorer) track(offset, delta int) {
	c.passStart = movePoint(c.passStart, offset, delta, false)
	c.dirtyEnd = movePoint(c.dirtyEnd, offset, delta, false)
	if c.stale || c.readPosition < 0 || offset >= c.readPosition {
		return
	}

	end := offset
	if delta < 0 {
		end = offset - delta
	}
	if offset > c.flushed || end > c.flushed {
		c.stale = true
		c.lastPosition = -1
		return
	}

	c.pendingChange += delta
	c.readPosition += delta
	c.found.Apply(offset, delta)
	if offset < c.flushed {
		c.flushed += delta
		if delta > 0 {
			c.gap = true
		}
	}
	if c.lastPosition >= 0 {
		c.lastPosition = movePoint(c.lastPosition, offset, delta, false)
	}
}

// claim records that the tokenizer is about to see the rune ending at pass
// offset end.
func (c *Colorer) claim(end int) {
	c.mu.Lock()
	if cur := end + c.pendingChange; cur > c.readPosition {
		c.readPosition = cur
	}
	c.mu.Unlock()
}

// Block waits until every queued edit has been colored at least up to
// target. It returns early once the colorer is detached.
func (c *Colorer) Block(target int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catchUpTarget = target
	for !c.stopped && (c.queue.Len() > 0 || c.busy) && (c.stale || c.gap || c.lastPosition < target) {
		c.cond.Wait()
	}
	c.catchUpTarget = noTarget
}

func (c *Colorer) loop() {
	defer close(c.doneCh)
	defer func() {
		c.mu.Lock()
		c.stopped = true
		c.cond.Broadcast()
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.stopCh:
			return
		case <-c.doc.Done():
			return
		default:
		}

		ev, ok := c.dequeue()
		if !ok {
			select {
			case <-c.stopCh:
				return
			case <-c.doc.Done():
				return
			case <-c.wake:
			}
			continue
		}

		c.process(ev)
		c.finish()

		if c.opts.Settle > 0 {
			select {
			case <-c.stopCh:
				return
			case <-c.doc.Done():
				return
			case <-time.After(c.opts.Settle):
			}
		}
	}
}

func (c *Colorer) dequeue() (RecolorEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.queue.Pop()
	if !ok {
		c.cond.Broadcast()
		return ev, false
	}
	c.busy = true
	c.stale = false
	c.gap = false
	c.pendingChange = 0
	c.lastPosition = -1
	c.readPosition = -1
	c.found.Clear()
	c.passStart = ev.Offset
	c.dirtyEnd = ev.Offset + max(ev.Delta, 0)
	return ev, true
}

func (c *Colorer) finish() {
	c.mu.Lock()
	c.busy = false
	c.lastPosition = -1
	c.readPosition = -1
	c.pendingChange = 0
	c.cond.Broadcast()
	c.mu.Unlock()
}

// open picks the restart point for the pass and opens a reader there. A
// reader anchored at a stale offset would read the wrong text, so the choice
// is retried until no edit slipped in between.
func (c *Colorer) open(ev RecolorEvent) (io.RuneScanner, int, error) {
	for {
		c.mu.Lock()
		// A deletion leaves the restart point that followed it at its
		// offset, with a new prefix. Lexing must start before it.
		from := c.passStart
		if ev.Delta < 0 {
			from--
		}
		start := c.index.LowerBound(from)
		seen := c.edits
		c.mu.Unlock()

		r, err := c.doc.NewReader(start)
		if err != nil {
			return nil, start, err
		}

		c.mu.Lock()
		if c.edits == seen {
			c.passStart = start
			c.flushed = start
			c.readPosition = start
			c.mu.Unlock()
			return r, start, nil
		}
		c.mu.Unlock()
		closeReader(r)
	}
}

func closeReader(r io.RuneScanner) {
	if cl, ok := r.(io.Closer); ok {
		_ = cl.Close()
	}
}

// frameReader reports read progress to the colorer before each rune is
// handed to the tokenizer.
type frameReader struct {
	c    *Colorer
	r    io.RuneScanner
	next int // pass offset of the next rune
}

func (f *frameReader) ReadRune() (rune, int, error) {
	f.c.claim(f.next + 1)
	ch, size, err := f.r.ReadRune()
	if err == nil {
		f.next++
	}
	return ch, size, err
}

func (f *frameReader) UnreadRune() error {
	if err := f.r.UnreadRune(); err != nil {
		return err
	}
	f.next--
	return nil
}

// process runs one pass for ev. Restart points are only committed once the
// pass has either reached the end of the buffer or proved the rest unchanged.
func (c *Colorer) process(ev RecolorEvent) {
	r, start, err := c.open(ev)
	if err != nil {
		c.defect(start, fmt.Errorf("open reader at %d: %w", start, err))
		return
	}
	defer closeReader(r)

	fr := &frameReader{c: c, r: r, next: start}
	if err := c.tokenizer.Reset(fr, start); err != nil {
		c.defect(start, err)
		return
	}

	batchStart := start
	prev := start
	var runs []Run
	lexed := 0

	for {
		tok, err := c.tokenizer.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.defect(start, err)
			return
		}
		if err := tok.validate(); err != nil {
			c.defect(start, err)
			return
		}
		if tok.Begin < prev || tok.End() > fr.next {
			c.defect(start, fmt.Errorf("%w: token [%d,%d) outside [%d,%d)",
				ErrTokenizerDefect, tok.Begin, tok.End(), prev, fr.next))
			return
		}
		prev = tok.Begin
		lexed++

		if tok.Initial {
			stop, err := c.flush(batchStart, tok.Begin, runs)
			if err != nil {
				c.fail(start, err)
				return
			}
			if stop >= 0 {
				c.colored(ev, start, stop, lexed)
				return
			}
			runs = runs[:0]
			batchStart = tok.Begin
		}
		runs = append(runs, Run{Start: tok.Begin, End: tok.End(), Kind: tok.Kind})
	}

	if _, err := c.flush(batchStart, -1, runs); err != nil {
		c.fail(start, err)
		return
	}
	c.colored(ev, start, -1, lexed)
}

func (c *Colorer) colored(ev RecolorEvent, start, stop, lexed int) {
	c.log.Debugw("colored",
		"offset", ev.Offset,
		"delta", ev.Delta,
		"start", start,
		"stop", stop,
		"tokens", lexed,
	)
	c.sendEvent(Event{Kind: "colored", Start: start, End: stop})
}

// flush paints the batch [from, to) given in pass coordinates; to < 0 means
// through the end of the buffer. Characters not covered by a run get the
// default style. When to is an initial-state boundary it is recorded as a
// restart point, and if it proves the rest of the buffer unchanged the pass
// is committed and flush returns the stop offset. Otherwise it returns -1.
func (c *Colorer) flush(from, to int, runs []Run) (int, error) {
	stop := -1
	err := c.doc.Batch(func(length int, paint PaintFunc) error {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.stale {
			return fmt.Errorf("%w: text behind offset %d changed", ErrStalePosition, c.readPosition)
		}
		shift := c.pendingChange
		start := from + shift
		end := length
		if to >= 0 {
			end = to + shift
		}
		if start < 0 || start > end || end > length {
			return fmt.Errorf("%w: span [%d,%d) in buffer of %d", ErrTokenizerDefect, start, end, length)
		}
		if start < end {
			if err := paint(start, end, c.palette.Style(DefaultKind)); err != nil {
				return err
			}
			for _, run := range runs {
				rs := max(run.Start+shift, start)
				re := min(run.End+shift, end)
				if rs >= re {
					continue
				}
				if err := paint(rs, re, c.palette.Style(run.Kind)); err != nil {
					return err
				}
			}
		}

		c.flushed = end
		if end > c.lastPosition {
			c.lastPosition = end
		}
		if c.catchUpTarget != noTarget && c.lastPosition >= c.catchUpTarget {
			c.cond.Broadcast()
		}

		if to < 0 {
			c.found.Add(c.passStart)
			c.index.ReplaceRange(c.passStart, math.MaxInt, c.found.Offsets())
			c.index.TrimToLength(length)
			return nil
		}
		c.found.Add(end)
		if end >= c.dirtyEnd && c.index.Contains(end) {
			c.index.ReplaceRange(c.passStart, end, c.found.Offsets())
			c.index.TrimToLength(length)
			stop = end
		}
		return nil
	})
	return stop, err
}

// fail routes a failed flush: a pass overtaken by an edit is abandoned and
// retried, anything else is a defect.
func (c *Colorer) fail(start int, err error) {
	if errors.Is(err, ErrStalePosition) {
		c.abandon(start, err)
		return
	}
	c.defect(start, err)
}

// abandon drops the rest of a pass that raced with an edit. Nothing it
// discovered is committed, and its edited range is queued again so the
// change it was covering is not lost.
func (c *Colorer) abandon(start int, err error) {
	c.mu.Lock()
	c.queue.Push(c.passStart, max(c.dirtyEnd-c.passStart, 0))
	c.mu.Unlock()

	c.log.Debugw("pass abandoned", "start", start, "error", err)
	c.sendEvent(Event{Kind: "abandoned", Start: start, End: -1, Err: err})
}

// defect gives up on a pass after the tokenizer misbehaved or failed. Nothing
// discovered by the pass is committed, and the restart points past its start
// are dropped since the edit may have invalidated them.
func (c *Colorer) defect(start int, err error) {
	c.mu.Lock()
	c.index.InvalidateRange(c.passStart+1, math.MaxInt)
	c.mu.Unlock()

	if !c.reported {
		c.reported = true
		c.log.Errorw("tokenizer defect", "start", start, "error", err)
	}
	c.sendEvent(Event{Kind: "defect", Start: start, End: -1, Err: err})
}

func (c *Colorer) sendEvent(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}
