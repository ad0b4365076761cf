package checks

import (
	"path/filepath"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Language families the format check knows a formatter for.
type language int

const (
	langOther language = iota
	langNative
	langPython
)

var lexerFamilies = map[string]language{
	"C":           langNative,
	"C++":         langNative,
	"Objective-C": langNative,
	"ObjectiveC":  langNative,
	"CUDA":        langNative,
	"Python":      langPython,
	"Python 2":    langPython,
}

// languageOf uses chroma's lexer registry to classify a path by file name.
func languageOf(path string) language {
	lexer := lexerForFile(path)
	if lexer == nil {
		return langOther
	}
	return lexerFamilies[lexer.Config().Name]
}

func lexerForFile(path string) chroma.Lexer {
	name := filepath.Base(path)
	lexer := lexers.Match(name)
	if lexer == nil {
		ext := filepath.Ext(name)
		if ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	return lexer
}
