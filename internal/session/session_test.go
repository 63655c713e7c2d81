package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	m := Open(path)
	if _, ok := m.File("/a.go"); ok {
		t.Fatalf("empty session has a file")
	}
	m.SetFile("/a.go", FileState{Cursor: 12, Lang: "go"})
	if err := m.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, ok := Open(path).File("/a.go")
	if !ok || got != (FileState{Cursor: 12, Lang: "go"}) {
		t.Fatalf("File = %+v, %v, want cursor 12 lang go", got, ok)
	}
}

func TestSaveSkipsUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	m := Open(path)
	if err := m.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("Save wrote an unchanged session: %v", err)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := Open(path)
	m.SetFile("/b", FileState{Cursor: 1})
	if err := m.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}
}

func TestPathEnv(t *testing.T) {
	t.Setenv("QCOLOR_STATE_HOME", "/tmp/qs")
	if got, _ := Path(); got != "/tmp/qs/session.json" {
		t.Fatalf("Path = %q", got)
	}
	t.Setenv("QCOLOR_STATE_HOME", "")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg")
	if got, _ := Path(); got != "/tmp/xdg/qcolor/session.json" {
		t.Fatalf("Path = %q", got)
	}
}
