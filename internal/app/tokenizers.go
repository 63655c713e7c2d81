package app

import (
	"github.com/kobzarvs/qcolor/internal/highlight"
	"github.com/kobzarvs/qcolor/internal/treesitter"
	"github.com/kobzarvs/qcolor/internal/worksheet"
)

// NewTokenizer returns the tokenizer registered under name.
func NewTokenizer(name string) (highlight.Tokenizer, error) {
	if name == "worksheet" {
		return worksheet.New(), nil
	}
	return treesitter.NewTokenizer(name)
}
