package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kobzarvs/qcolor/internal/logger"
)

// follower reports writes to a single file, debounced.
type follower struct {
	fsw      *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange chan struct{}
	done     chan struct{}
}

func newFollower(path string, debounce time.Duration) (*follower, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &follower{
		fsw:      fsw,
		path:     abs,
		debounce: debounce,
		onChange: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start watches the file's directory, so editors that replace the file by
// rename are still seen.
func (f *follower) Start() (<-chan struct{}, error) {
	dir := filepath.Dir(f.path)
	if err := f.fsw.Add(dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}
	go f.loop()
	return f.onChange, nil
}

func (f *follower) Stop() error {
	close(f.done)
	return f.fsw.Close()
}

func (f *follower) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-f.fsw.Events:
			if !ok {
				return
			}
			if !f.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(f.debounce)
			} else {
				timer.Reset(f.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case f.onChange <- struct{}{}:
			default:
			}

		case err, ok := <-f.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("follow watcher error", "path", f.path, "error", err)

		case <-f.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (f *follower) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		abs = ev.Name
	}
	return abs == f.path
}
