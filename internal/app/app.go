package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/muesli/termenv"

	"github.com/kobzarvs/qcolor/internal/buffer"
	"github.com/kobzarvs/qcolor/internal/config"
	"github.com/kobzarvs/qcolor/internal/highlight"
	"github.com/kobzarvs/qcolor/internal/logger"
	"github.com/kobzarvs/qcolor/internal/session"
)

// Options selects what the app opens.
type Options struct {
	Path string
	// Lang overrides the language matched from the file name.
	Lang   string
	Follow bool
}

// App is the top-level runtime for qcolor.
type App struct {
	opts Options
}

func New(opts Options) *App {
	return &App{opts: opts}
}

// document pairs a buffer with the colorer that keeps it styled. colorer is
// nil when no tokenizer applies or the file is too large to highlight.
type document struct {
	path    string
	buf     *buffer.Buffer
	colorer *highlight.Colorer
	lang    string
}

type reloadRequest struct{}

func openDocument(path, lang string, cfg config.Config, langs config.Languages) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d := &document{path: path, buf: buffer.New(string(data))}

	tokenizer := ""
	if lang != "" {
		if l := langs.ByName(lang); l != nil {
			tokenizer = l.Tokenizer
		} else {
			tokenizer = lang
		}
	} else if l := langs.Match(path); l != nil {
		tokenizer = l.Tokenizer
	}

	palette := cfg.Theme.Palette()
	if tokenizer == "" || (cfg.Colorer.MaxHighlightBytes > 0 && len(data) > cfg.Colorer.MaxHighlightBytes) {
		logger.Info("highlighting disabled", "path", path, "bytes", len(data), "tokenizer", tokenizer)
		if err := d.buf.Paint(0, d.buf.Len(), palette.Base); err != nil {
			return nil, err
		}
		return d, nil
	}

	tk, err := NewTokenizer(tokenizer)
	if err != nil {
		return nil, err
	}
	d.lang = tokenizer
	d.colorer = highlight.Attach(d.buf, tk, palette, highlight.Options{
		Name:   filepath.Base(path),
		Settle: time.Duration(cfg.Colorer.SettleMS) * time.Millisecond,
	})
	d.colorer.ColorAll()
	return d, nil
}

// wait blocks until the colorer has caught up through target.
func (d *document) wait(target int) {
	if d.colorer != nil {
		d.colorer.Block(target)
	}
}

// reload swaps in the file's current content, touching only what changed,
// and waits until the changed region is colored.
func (d *document) reload() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return err
	}
	end, err := d.buf.Replace(string(data))
	if err != nil {
		return err
	}
	d.wait(end)
	return nil
}

func (d *document) Close() {
	if d.colorer != nil {
		d.colorer.Detach()
	}
	d.buf.Close()
}

func loadConfig() (config.Config, config.Languages, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, config.Languages{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.Colorer.Debug {
		logger.SetDebug(true)
	}
	langs, err := config.LoadLanguages()
	if err != nil {
		return cfg, langs, fmt.Errorf("load languages: %w", err)
	}
	return cfg, langs, nil
}

// Dump colors the file completely and writes it to w as styled text.
func (a *App) Dump(w io.Writer, profile termenv.Profile) error {
	cfg, langs, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := openDocument(a.opts.Path, a.opts.Lang, cfg, langs)
	if err != nil {
		return err
	}
	defer d.Close()
	d.wait(d.buf.Len())
	return Dump(w, d.buf, profile)
}

// openSession loads the saved view of path. The language override saved with
// it applies when none is given on the command line.
func (a *App) openSession() (*session.Manager, string, session.FileState) {
	abs, err := filepath.Abs(a.opts.Path)
	if err != nil {
		abs = a.opts.Path
	}
	p, err := session.Path()
	if err != nil {
		logger.Warn("session disabled", "error", err)
		return nil, abs, session.FileState{Lang: a.opts.Lang}
	}
	sess := session.Open(p)
	st, _ := sess.File(abs)
	if a.opts.Lang != "" {
		st.Lang = a.opts.Lang
	}
	return sess, abs, st
}

func (a *App) Run() error {
	cfg, langs, err := loadConfig()
	if err != nil {
		return err
	}
	sess, abs, st := a.openSession()
	d, err := openDocument(a.opts.Path, st.Lang, cfg, langs)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()

	stop := make(chan struct{})
	defer close(stop)

	if d.colorer != nil {
		go func() {
			for {
				select {
				case <-stop:
					return
				case ev := <-d.colorer.Events():
					_ = s.PostEvent(tcell.NewEventInterrupt(ev))
				}
			}
		}()
	}

	if a.opts.Follow {
		f, err := newFollower(a.opts.Path, 100*time.Millisecond)
		if err != nil {
			return err
		}
		changes, err := f.Start()
		if err != nil {
			return err
		}
		defer func() { _ = f.Stop() }()
		go func() {
			for {
				select {
				case <-stop:
					return
				case <-changes:
					_ = s.PostEvent(tcell.NewEventInterrupt(reloadRequest{}))
				}
			}
		}()
	}

	v := NewView(d.buf, filepath.Base(a.opts.Path), cfg.Theme.Palette().Base, cfg.Theme.StatusStyle())
	v.SetCursor(st.Cursor)
	if d.lang != "" {
		v.SetStatus(d.lang)
	}
	if sess != nil {
		defer func() {
			sess.SetFile(abs, session.FileState{Cursor: v.Cursor(), Lang: st.Lang})
			if err := sess.Save(); err != nil {
				logger.Warn("save session", "path", abs, "error", err)
			}
		}()
	}
	v.Render(s)
	for {
		ev := s.PollEvent()
		if ev == nil {
			return nil
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if v.HandleKey(ev) {
				return nil
			}
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventInterrupt:
			switch data := ev.Data().(type) {
			case reloadRequest:
				if err := d.reload(); err != nil {
					v.SetStatus(err.Error())
				}
			case highlight.Event:
				switch data.Kind {
				case "defect":
					v.SetStatus("highlighting stopped: " + data.Err.Error())
				case "colored":
					v.SetStatus(d.lang)
				}
			}
		}
		v.Render(s)
	}
}
