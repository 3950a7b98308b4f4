package library

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/killallgit/llt/pkg/logger"
	"github.com/killallgit/llt/pkg/template"
)

// DefaultLanguageCode is the source-language code of .llt templates.
const DefaultLanguageCode = "llt"

// SourceParser compiles template source of one language into templates.
// pkg/parser registers the llt parser on init; callers may register their
// own languages.
type SourceParser interface {
	Parse(source string) ([]template.Template, error)
}

var (
	parsersMu sync.RWMutex
	parsers   = make(map[string]SourceParser)
)

// RegisterParser maps a language code to a parser, replacing any previous
// registration.
func RegisterParser(code string, p SourceParser) {
	parsersMu.Lock()
	defer parsersMu.Unlock()
	parsers[strings.ToLower(code)] = p
}

// LookupParser returns the parser registered for a language code.
func LookupParser(code string) (SourceParser, bool) {
	parsersMu.RLock()
	defer parsersMu.RUnlock()
	p, ok := parsers[strings.ToLower(code)]
	return p, ok
}

func parserFor(code string) (SourceParser, error) {
	p, ok := LookupParser(code)
	if !ok {
		return nil, fmt.Errorf("no parser registered for language code %q", code)
	}
	return p, nil
}

// ImportSource parses source in the given language and registers the
// resulting templates, returning them. Duplicates follow AddRange
// semantics.
func (l *Library) ImportSource(code, source string) ([]template.Template, error) {
	p, err := parserFor(code)
	if err != nil {
		return nil, err
	}
	ts, err := p.Parse(source)
	if err != nil {
		return nil, err
	}
	if err := l.AddRange(ts...); err != nil {
		return nil, err
	}
	logger.Info("library: imported templates", "count", len(ts), "language", code)
	return ts, nil
}

// ImportString imports default-language source text.
func (l *Library) ImportString(source string) ([]template.Template, error) {
	return l.ImportSource(DefaultLanguageCode, source)
}

// ImportBytes imports a raw source buffer.
func (l *Library) ImportBytes(code string, data []byte) ([]template.Template, error) {
	return l.ImportSource(code, string(data))
}

// ImportReader drains a reader and imports its contents.
func (l *Library) ImportReader(code string, r io.Reader) ([]template.Template, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read template source: %w", err)
	}
	return l.ImportBytes(code, data)
}

// ImportFile imports one file; the language code is the file extension,
// defaulting to llt when there is none.
func (l *Library) ImportFile(path string) ([]template.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	ts, err := l.ImportBytes(languageCodeFor(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ts, nil
}

// ImportFS walks a filesystem (a directory tree or an embed.FS) and
// imports every file whose extension has a registered parser. Files with
// unregistered extensions are skipped.
func (l *Library) ImportFS(fsys fs.FS, root string) ([]template.Template, error) {
	var out []template.Template
	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		code := languageCodeFor(path)
		if _, ok := LookupParser(code); !ok {
			logger.Debug("library: skipping file without a parser", "path", path, "language", code)
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		ts, err := l.ImportBytes(code, data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, ts...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ImportDir imports every parseable file under a directory path.
func (l *Library) ImportDir(dir string) ([]template.Template, error) {
	return l.ImportFS(os.DirFS(dir), ".")
}

func languageCodeFor(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return DefaultLanguageCode
	}
	return strings.ToLower(ext)
}
