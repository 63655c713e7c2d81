package app

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/kobzarvs/qcolor/internal/buffer"
)

// View draws a styled buffer and applies simple edits to it. Styles come
// straight from the buffer, so the view never waits on the colorer.
type View struct {
	buf      *buffer.Buffer
	name     string
	tabWidth int

	styleMain   tcell.Style
	styleStatus tcell.Style

	cursor int
	scroll int
	status string
}

func NewView(buf *buffer.Buffer, name string, main, status tcell.Style) *View {
	return &View{
		buf:         buf,
		name:        name,
		tabWidth:    4,
		styleMain:   main,
		styleStatus: status,
	}
}

func (v *View) Cursor() int {
	return v.cursor
}

func (v *View) SetCursor(off int) {
	v.cursor = clamp(off, 0, v.buf.Len())
}

func (v *View) SetStatus(msg string) {
	v.status = msg
}

// cursorRowCol returns the cursor's line and rune column.
func (v *View) cursorRowCol() (int, int) {
	v.cursor = clamp(v.cursor, 0, v.buf.Len())
	before, err := v.buf.Text(0, v.cursor)
	if err != nil {
		return 0, 0
	}
	row := strings.Count(before, "\n")
	col := len([]rune(before[strings.LastIndex(before, "\n")+1:]))
	return row, col
}

func (v *View) ensureCursorVisible(viewHeight int) {
	row, _ := v.cursorRowCol()
	if row < v.scroll {
		v.scroll = row
	}
	if viewHeight > 0 && row >= v.scroll+viewHeight {
		v.scroll = row - viewHeight + 1
	}
}

func (v *View) Render(s tcell.Screen) {
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return
	}
	viewHeight := max(h-1, 0)
	v.ensureCursorVisible(viewHeight)

	s.SetStyle(v.styleMain)
	s.Clear()

	row, col := 0, 0
	cx, cy := -1, -1
	v.buf.Snapshot(func(off int, r rune, style tcell.Style) {
		y := row - v.scroll
		if off == v.cursor {
			cx, cy = col, y
		}
		if r == '\n' {
			row++
			col = 0
			return
		}
		width := runewidth.RuneWidth(r)
		if r == '\t' {
			width = v.tabWidth - col%v.tabWidth
		}
		if width < 1 {
			width = 1
		}
		if y >= 0 && y < viewHeight {
			if r == '\t' {
				for i := 0; i < width && col+i < w; i++ {
					s.SetContent(col+i, y, ' ', nil, style)
				}
			} else if col < w {
				s.SetContent(col, y, r, nil, style)
			}
		}
		col += width
	})
	if cx < 0 {
		cx, cy = col, row-v.scroll
	}

	v.renderStatusline(s, w, h-1)

	if cy >= 0 && cy < viewHeight && cx < w {
		s.ShowCursor(cx, cy)
	} else {
		s.HideCursor()
	}
	s.Show()
}

func (v *View) renderStatusline(s tcell.Screen, w, y int) {
	row, col := v.cursorRowCol()
	left := " " + v.name
	if v.status != "" {
		left += "  " + v.status
	}
	right := fmt.Sprintf("%d:%d ", row+1, col+1)

	x := 0
	for _, r := range left {
		if x >= w {
			break
		}
		s.SetContent(x, y, r, nil, v.styleStatus)
		x += max(runewidth.RuneWidth(r), 1)
	}
	for ; x < w; x++ {
		s.SetContent(x, y, ' ', nil, v.styleStatus)
	}
	rx := w - runewidth.StringWidth(right)
	for _, r := range right {
		if rx >= 0 && rx < w {
			s.SetContent(rx, y, r, nil, v.styleStatus)
		}
		rx += max(runewidth.RuneWidth(r), 1)
	}
}

// HandleKey applies ev and reports whether the view should close.
func (v *View) HandleKey(ev *tcell.EventKey) bool {
	var err error
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyCtrlQ, tcell.KeyEscape:
		return true
	case tcell.KeyLeft:
		v.SetCursor(v.cursor - 1)
	case tcell.KeyRight:
		v.SetCursor(v.cursor + 1)
	case tcell.KeyUp:
		v.moveLine(-1)
	case tcell.KeyDown:
		v.moveLine(1)
	case tcell.KeyHome:
		v.SetCursor(v.lineStart(v.cursor))
	case tcell.KeyEnd:
		v.SetCursor(v.lineEnd(v.cursor))
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if v.cursor > 0 {
			if err = v.buf.Delete(v.cursor-1, 1); err == nil {
				v.cursor--
			}
		}
	case tcell.KeyDelete:
		if v.cursor < v.buf.Len() {
			err = v.buf.Delete(v.cursor, 1)
		}
	case tcell.KeyEnter:
		err = v.insert("\n")
	case tcell.KeyTab:
		err = v.insert("\t")
	case tcell.KeyRune:
		err = v.insert(string(ev.Rune()))
	}
	if err != nil {
		v.status = err.Error()
	}
	return false
}

func (v *View) insert(s string) error {
	if err := v.buf.Insert(v.cursor, s); err != nil {
		return err
	}
	v.cursor += len([]rune(s))
	return nil
}

func (v *View) lineStart(off int) int {
	before, err := v.buf.Text(0, off)
	if err != nil {
		return 0
	}
	return len([]rune(before[:strings.LastIndex(before, "\n")+1]))
}

func (v *View) lineEnd(off int) int {
	n := v.buf.Len()
	after, err := v.buf.Text(off, n)
	if err != nil {
		return n
	}
	if i := strings.IndexByte(after, '\n'); i >= 0 {
		return off + len([]rune(after[:i]))
	}
	return n
}

// moveLine moves the cursor dir lines, keeping its column where the target
// line is long enough.
func (v *View) moveLine(dir int) {
	start := v.lineStart(v.cursor)
	col := v.cursor - start
	switch {
	case dir < 0:
		if start == 0 {
			return
		}
		prev := v.lineStart(start - 1)
		v.SetCursor(min(prev+col, start-1))
	case dir > 0:
		end := v.lineEnd(v.cursor)
		if end >= v.buf.Len() {
			return
		}
		next := end + 1
		v.SetCursor(min(next+col, v.lineEnd(next)))
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
