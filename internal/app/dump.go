package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/muesli/termenv"

	"github.com/kobzarvs/qcolor/internal/buffer"
)

// Dump writes the buffer to w with its current styles rendered as escape
// sequences for profile. Runs of equal style are emitted together.
func Dump(w io.Writer, buf *buffer.Buffer, profile termenv.Profile) error {
	out := termenv.NewOutput(w, termenv.WithProfile(profile))

	var (
		sb      strings.Builder
		run     strings.Builder
		current tcell.Style
		started bool
	)
	emit := func() {
		if run.Len() == 0 {
			return
		}
		// Newlines are written bare so a style never spans lines.
		parts := strings.Split(run.String(), "\n")
		for i, part := range parts {
			if i > 0 {
				sb.WriteByte('\n')
			}
			if part != "" {
				sb.WriteString(styled(out, part, current).String())
			}
		}
		run.Reset()
	}

	buf.Snapshot(func(_ int, r rune, style tcell.Style) {
		if !started || style != current {
			emit()
			current = style
			started = true
		}
		run.WriteRune(r)
	})
	emit()

	if _, err := io.WriteString(out, sb.String()); err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	return nil
}

func styled(out *termenv.Output, text string, style tcell.Style) termenv.Style {
	fg, bg, attrs := style.Decompose()
	s := out.String(text)
	if c, ok := termColor(out, fg); ok {
		s = s.Foreground(c)
	}
	if c, ok := termColor(out, bg); ok {
		s = s.Background(c)
	}
	if attrs&tcell.AttrBold != 0 {
		s = s.Bold()
	}
	if attrs&tcell.AttrItalic != 0 {
		s = s.Italic()
	}
	return s
}

func termColor(out *termenv.Output, c tcell.Color) (termenv.Color, bool) {
	if c == tcell.ColorDefault {
		return nil, false
	}
	hex := c.Hex()
	if hex < 0 {
		return nil, false
	}
	return out.Color(fmt.Sprintf("#%06x", hex)), true
}
