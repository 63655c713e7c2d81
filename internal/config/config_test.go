package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qcolor/internal/highlight"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestConfigDirEnv(t *testing.T) {
	t.Setenv("QCOLOR_CONFIG_HOME", "/tmp/qcolor-config")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/qcolor-config" {
		t.Fatalf("ConfigDir = %q, want %q", dir, "/tmp/qcolor-config")
	}

	t.Setenv("QCOLOR_CONFIG_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/xdg/qcolor" {
		t.Fatalf("ConfigDir = %q, want %q", dir, "/tmp/xdg/qcolor")
	}
}

func TestLoadMissingUsesDefaults(t *testing.T) {
	t.Setenv("QCOLOR_CONFIG_HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	want := Default()
	if cfg.Colorer != want.Colorer {
		t.Fatalf("Colorer = %+v, want %+v", cfg.Colorer, want.Colorer)
	}
	if cfg.Theme.Syntax["keyword"] != want.Theme.Syntax["keyword"] {
		t.Fatalf("keyword = %q, want %q", cfg.Theme.Syntax["keyword"], want.Theme.Syntax["keyword"])
	}
}

func TestLoadWithThemeAndOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QCOLOR_CONFIG_HOME", dir)

	writeFile(t, filepath.Join(dir, "theme", "test.toml"), `
foreground = "#111111"
background = "#222222"
statusline-foreground = "#333333"

[syntax]
comment = "#444444"
string = "#555555"
`)

	writeFile(t, filepath.Join(dir, "config.toml"), `
[colorer]
settle-ms = 25
max-highlight-bytes = 1024

[theme]
theme = "test"
statusline-background = "#123456"

[theme.syntax]
string = "#abcdef"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Colorer.SettleMS != 25 {
		t.Fatalf("SettleMS = %d, want 25", cfg.Colorer.SettleMS)
	}
	if cfg.Colorer.MaxHighlightBytes != 1024 {
		t.Fatalf("MaxHighlightBytes = %d, want 1024", cfg.Colorer.MaxHighlightBytes)
	}
	if cfg.Theme.Foreground != "#111111" {
		t.Fatalf("Foreground = %q, want %q", cfg.Theme.Foreground, "#111111")
	}
	if cfg.Theme.StatuslineForeground != "#333333" {
		t.Fatalf("StatuslineForeground = %q, want %q", cfg.Theme.StatuslineForeground, "#333333")
	}
	if cfg.Theme.StatuslineBackground != "#123456" {
		t.Fatalf("StatuslineBackground = %q, want %q", cfg.Theme.StatuslineBackground, "#123456")
	}
	if cfg.Theme.Syntax["comment"] != "#444444" {
		t.Fatalf("comment = %q, want %q", cfg.Theme.Syntax["comment"], "#444444")
	}
	if cfg.Theme.Syntax["string"] != "#abcdef" {
		t.Fatalf("string = %q, want %q", cfg.Theme.Syntax["string"], "#abcdef")
	}
	if cfg.Theme.Syntax["keyword"] != Default().Theme.Syntax["keyword"] {
		t.Fatalf("keyword = %q, want default", cfg.Theme.Syntax["keyword"])
	}
}

func TestLoadExplicitZeroes(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QCOLOR_CONFIG_HOME", dir)
	writeFile(t, filepath.Join(dir, "config.toml"), `
[colorer]
settle-ms = 0
max-highlight-bytes = 0
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Colorer.SettleMS != 0 {
		t.Fatalf("SettleMS = %d, want 0", cfg.Colorer.SettleMS)
	}
	if cfg.Colorer.MaxHighlightBytes != 0 {
		t.Fatalf("MaxHighlightBytes = %d, want 0", cfg.Colorer.MaxHighlightBytes)
	}
}

func TestLoadUnsetKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QCOLOR_CONFIG_HOME", dir)
	writeFile(t, filepath.Join(dir, "config.toml"), `
[colorer]
debug = true
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	def := Default()
	if cfg.Colorer.SettleMS != def.Colorer.SettleMS {
		t.Fatalf("SettleMS = %d, want default %d", cfg.Colorer.SettleMS, def.Colorer.SettleMS)
	}
	if cfg.Colorer.MaxHighlightBytes != def.Colorer.MaxHighlightBytes {
		t.Fatalf("MaxHighlightBytes = %d, want default %d", cfg.Colorer.MaxHighlightBytes, def.Colorer.MaxHighlightBytes)
	}
	if !cfg.Colorer.Debug {
		t.Fatalf("Debug = false, want true")
	}
}

func TestLoadThemeWrapped(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QCOLOR_CONFIG_HOME", dir)

	writeFile(t, filepath.Join(dir, "theme", "wrapped.toml"), `
[theme]
foreground = "#aaaaaa"
background = "#bbbbbb"
`)

	theme, err := LoadTheme("wrapped")
	if err != nil {
		t.Fatalf("LoadTheme error: %v", err)
	}
	if theme.Foreground != "#aaaaaa" {
		t.Fatalf("Foreground = %q, want %q", theme.Foreground, "#aaaaaa")
	}
	if theme.Background != "#bbbbbb" {
		t.Fatalf("Background = %q, want %q", theme.Background, "#bbbbbb")
	}
}

func TestLoadBadTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QCOLOR_CONFIG_HOME", dir)
	writeFile(t, filepath.Join(dir, "config.toml"), "[colorer\n")
	if _, err := Load(); err == nil {
		t.Fatalf("Load error = nil, want parse error")
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want tcell.Color
	}{
		{"#ff8000", tcell.NewRGBColor(0xff, 0x80, 0x00)},
		{"default", tcell.ColorDefault},
		{"red", tcell.ColorRed},
		{"", tcell.ColorBlue},
		{"#zzzzzz", tcell.ColorBlue},
		{"nonsense", tcell.ColorBlue},
	}
	for _, tc := range cases {
		if got := ParseColor(tc.in, tcell.ColorBlue); got != tc.want {
			t.Fatalf("ParseColor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestThemePalette(t *testing.T) {
	theme := Theme{
		Foreground: "#010203",
		Background: "#040506",
		Syntax:     map[string]string{"keyword": "#ff0000"},
	}
	p := theme.Palette()

	fg, bg, _ := p.Style(highlight.Kind("keyword")).Decompose()
	if fg != tcell.NewRGBColor(0xff, 0, 0) {
		t.Fatalf("keyword fg = %v, want red", fg)
	}
	if bg != tcell.NewRGBColor(4, 5, 6) {
		t.Fatalf("keyword bg = %v, want theme background", bg)
	}
	fg, _, _ = p.Style(highlight.DefaultKind).Decompose()
	if fg != tcell.NewRGBColor(1, 2, 3) {
		t.Fatalf("default fg = %v, want theme foreground", fg)
	}
}
