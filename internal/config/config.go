package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qcolor/internal/highlight"
)

type ColorerOptions struct {
	SettleMS          int  `toml:"settle-ms"`
	MaxHighlightBytes int  `toml:"max-highlight-bytes"`
	Debug             bool `toml:"debug"`
}

type Theme struct {
	Theme                string `toml:"theme"`
	Foreground           string `toml:"foreground"`
	Background           string `toml:"background"`
	StatuslineForeground string `toml:"statusline-foreground"`
	StatuslineBackground string `toml:"statusline-background"`
	// Syntax maps token kinds to colors.
	Syntax map[string]string `toml:"syntax"`
}

type Config struct {
	Colorer ColorerOptions `toml:"colorer"`
	Theme   Theme          `toml:"theme"`
}

func Default() Config {
	return Config{
		Colorer: ColorerOptions{
			SettleMS:          10,
			MaxHighlightBytes: 4 << 20,
		},
		Theme: Theme{
			Foreground:           "#B3B1AD",
			Background:           "#0A0E14",
			StatuslineForeground: "#B3B1AD",
			StatuslineBackground: "#0F1419",
			Syntax: map[string]string{
				"keyword":     "#FFA759",
				"string":      "#BAE67E",
				"comment":     "#5C6773",
				"type":        "#5CCFE6",
				"function":    "#FFD173",
				"number":      "#D4BFFF",
				"constant":    "#FFDD8E",
				"operator":    "#F29668",
				"punctuation": "#C0C0C0",
				"field":       "#E6B673",
				"builtin":     "#73D0FF",
				"variable":    "#B3B1AD",
				"parameter":   "#B3B1AD",
				"step":        "#FFA759",
				"setvar":      "#F07178",
				"classvar":    "#D4BFFF",
				"wffvar":      "#59C2FF",
				"workvar":     "#95E6CB",
			},
		},
	}
}

func Load() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var userCfg Config
	md, err := toml.Decode(string(data), &userCfg)
	if err != nil {
		return cfg, err
	}

	// Zero is a valid setting for both, so only a missing key keeps the default.
	if md.IsDefined("colorer", "settle-ms") && userCfg.Colorer.SettleMS >= 0 {
		cfg.Colorer.SettleMS = userCfg.Colorer.SettleMS
	}
	if md.IsDefined("colorer", "max-highlight-bytes") && userCfg.Colorer.MaxHighlightBytes >= 0 {
		cfg.Colorer.MaxHighlightBytes = userCfg.Colorer.MaxHighlightBytes
	}
	if userCfg.Colorer.Debug {
		cfg.Colorer.Debug = true
	}
	if userCfg.Theme.Theme != "" {
		cfg.Theme.Theme = userCfg.Theme.Theme
	}
	if cfg.Theme.Theme != "" {
		theme, err := LoadTheme(cfg.Theme.Theme)
		if err != nil {
			return cfg, err
		}
		mergeTheme(&cfg.Theme, theme)
	}
	mergeTheme(&cfg.Theme, userCfg.Theme)
	return cfg, nil
}

func mergeTheme(dst *Theme, src Theme) {
	if src.Foreground != "" {
		dst.Foreground = src.Foreground
	}
	if src.Background != "" {
		dst.Background = src.Background
	}
	if src.StatuslineForeground != "" {
		dst.StatuslineForeground = src.StatuslineForeground
	}
	if src.StatuslineBackground != "" {
		dst.StatuslineBackground = src.StatuslineBackground
	}
	if len(src.Syntax) > 0 && dst.Syntax == nil {
		dst.Syntax = make(map[string]string, len(src.Syntax))
	}
	for kind, color := range src.Syntax {
		if color != "" {
			dst.Syntax[kind] = color
		}
	}
}

func ThemePath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "theme", name+".toml"), nil
}

// LoadTheme reads a theme file, either bare or wrapped in a [theme] table.
func LoadTheme(name string) (Theme, error) {
	path, err := ThemePath(name)
	if err != nil {
		return Theme{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, err
	}
	var wrap struct {
		Theme *Theme `toml:"theme"`
	}
	if _, err := toml.Decode(string(data), &wrap); err == nil && wrap.Theme != nil {
		return *wrap.Theme, nil
	}
	var t Theme
	if _, err := toml.Decode(string(data), &t); err != nil {
		return Theme{}, err
	}
	return t, nil
}

// Palette turns the theme into per-kind styles. Kinds without a color fall
// back to the base style.
func (t Theme) Palette() highlight.StylePalette {
	base := tcell.StyleDefault.
		Foreground(ParseColor(t.Foreground, tcell.ColorDefault)).
		Background(ParseColor(t.Background, tcell.ColorDefault))
	styles := make(map[highlight.Kind]tcell.Style, len(t.Syntax))
	for kind, color := range t.Syntax {
		styles[highlight.Kind(kind)] = base.Foreground(ParseColor(color, tcell.ColorDefault))
	}
	return highlight.StylePalette{Base: base, Styles: styles}
}

func (t Theme) StatusStyle() tcell.Style {
	return tcell.StyleDefault.
		Foreground(ParseColor(t.StatuslineForeground, tcell.ColorDefault)).
		Background(ParseColor(t.StatuslineBackground, tcell.ColorDefault))
}

// ParseColor accepts "#rrggbb", "default" or a named color.
func ParseColor(name string, fallback tcell.Color) tcell.Color {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if strings.HasPrefix(name, "#") && len(name) == 7 {
		v, err := strconv.ParseUint(name[1:], 16, 32)
		if err != nil {
			return fallback
		}
		return tcell.NewRGBColor(int32(v>>16&0xff), int32(v>>8&0xff), int32(v&0xff))
	}
	name = strings.ToLower(name)
	if name == "default" {
		return tcell.ColorDefault
	}
	c := tcell.GetColor(name)
	if c == tcell.ColorDefault {
		return fallback
	}
	return c
}

func ConfigDir() (string, error) {
	if v := os.Getenv("QCOLOR_CONFIG_HOME"); v != "" {
		return filepath.Clean(v), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "qcolor"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qcolor"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
