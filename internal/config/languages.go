package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Language maps file types to the tokenizer that colors them.
type Language struct {
	Name      string   `toml:"name"`
	FileTypes []string `toml:"file-types"`
	Tokenizer string   `toml:"tokenizer"`
}

type Languages struct {
	Languages []Language `toml:"language"`
}

func DefaultLanguages() Languages {
	return Languages{
		Languages: []Language{
			{Name: "go", FileTypes: []string{"go"}, Tokenizer: "go"},
			{Name: "yaml", FileTypes: []string{"yaml", "yml"}, Tokenizer: "yaml"},
			{Name: "toml", FileTypes: []string{"toml"}, Tokenizer: "toml"},
			{Name: "bash", FileTypes: []string{"sh", "bash", ".bashrc", ".profile"}, Tokenizer: "bash"},
			{Name: "worksheet", FileTypes: []string{"mmp", "mmw"}, Tokenizer: "worksheet"},
		},
	}
}

func (l Languages) Match(path string) *Language {
	base := filepath.Base(path)
	baseLower := strings.ToLower(base)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	for i := range l.Languages {
		lang := &l.Languages[i]
		for _, ft := range lang.FileTypes {
			ftLower := strings.ToLower(ft)
			if ftLower == ext || ftLower == baseLower {
				return lang
			}
			if strings.HasPrefix(ftLower, ".") && strings.TrimPrefix(ftLower, ".") == ext {
				return lang
			}
		}
	}
	return nil
}

// ByName returns the language called name.
func (l Languages) ByName(name string) *Language {
	for i := range l.Languages {
		if strings.EqualFold(l.Languages[i].Name, name) {
			return &l.Languages[i]
		}
	}
	return nil
}

// LoadLanguages reads languages.toml. User entries take precedence over the
// defaults, and a user entry with a default's name replaces it.
func LoadLanguages() (Languages, error) {
	defaults := DefaultLanguages()
	path, err := LanguagesPath()
	if err != nil {
		return defaults, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return defaults, err
	}

	var cfg Languages
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return defaults, err
	}
	out := Languages{}
	for _, lang := range cfg.Languages {
		if lang.Tokenizer == "" {
			lang.Tokenizer = lang.Name
		}
		out.Languages = append(out.Languages, lang)
	}
	for _, lang := range defaults.Languages {
		if out.ByName(lang.Name) == nil {
			out.Languages = append(out.Languages, lang)
		}
	}
	return out, nil
}

func LanguagesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "languages.toml"), nil
}
