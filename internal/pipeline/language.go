package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Language describes how one supported language is compiled and run.
// Compiled languages go through the toolchain; interpreted ones run the
// interpreter directly against the source.
type Language struct {
	Name       string
	Extensions []string
	Compiled   bool

	// Interpreters are tried in order on the host for interpreted
	// languages. The first entry is also the in-container name.
	Interpreters []string

	// Image is the default container image for the docker backend.
	Image string

	// CompilerNames are the in-container compiler drivers, preferred order.
	CompilerNames []string
}

var languages = map[string]Language{
	"c": {
		Name:          "c",
		Extensions:    []string{".c"},
		Compiled:      true,
		Image:         "gcc:13",
		CompilerNames: []string{"gcc", "clang"},
	},
	"cpp": {
		Name:          "cpp",
		Extensions:    []string{".cpp", ".cc", ".cxx", ".c++"},
		Compiled:      true,
		Image:         "gcc:13",
		CompilerNames: []string{"g++", "clang++"},
	},
	"python": {
		Name:         "python",
		Extensions:   []string{".py"},
		Interpreters: []string{"python3", "python"},
		Image:        "python:3.12-slim",
	},
	"javascript": {
		Name:         "javascript",
		Extensions:   []string{".js", ".mjs"},
		Interpreters: []string{"node"},
		Image:        "node:20-slim",
	},
}

// Lookup returns the language definition by name.
func Lookup(name string) (Language, error) {
	lang, ok := languages[strings.ToLower(name)]
	if !ok {
		return Language{}, fmt.Errorf("unsupported language %q", name)
	}

	return lang, nil
}

// ForFile infers the language from a file extension.
func ForFile(path string) (Language, error) {
	ext := strings.ToLower(filepath.Ext(path))

	for _, lang := range languages {
		for _, e := range lang.Extensions {
			if e == ext {
				return lang, nil
			}
		}
	}

	return Language{}, fmt.Errorf("no language registered for extension %q", ext)
}

// AcceptsFile checks that a source file carries an extension the language
// requires.
func (l Language) AcceptsFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))

	for _, e := range l.Extensions {
		if e == ext {
			return nil
		}
	}

	return fmt.Errorf("language %s requires one of %v, got %q", l.Name, l.Extensions, ext)
}
