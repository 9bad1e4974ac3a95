package source

import (
	"os"
	"path/filepath"
	"strings"
)

// SourceFile is the text of one J-- compilation unit and where it came from.
type SourceFile struct {
	Name    string // display name: "Main.java", "<eval>", "<repl>"
	Path    string // file path, empty for in-memory units
	Content string

	lines []string
}

// NewSourceFile creates a source file.
func NewSourceFile(name, path, content string) *SourceFile {
	return &SourceFile{Name: name, Path: path, Content: content}
}

// NewEvalSource wraps in-memory text, as used by tests and CompileString.
func NewEvalSource(content string) *SourceFile {
	return &SourceFile{Name: "<eval>", Content: content}
}

// NewReplSource wraps one interactive entry.
func NewReplSource(content string) *SourceFile {
	return &SourceFile{Name: "<repl>", Content: content}
}

// ReadFile loads a unit from disk. A leading byte order mark is dropped so
// that column numbers start at the first real character.
func ReadFile(path string) (*SourceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := strings.TrimPrefix(string(data), "\uFEFF")
	return NewSourceFile(filepath.Base(path), path, content), nil
}

// Line returns the 1-based source line without its terminator, or "" when
// n is out of range.
func (sf *SourceFile) Line(n int) string {
	if sf.lines == nil {
		sf.lines = strings.Split(sf.Content, "\n")
	}
	if n < 1 || n > len(sf.lines) {
		return ""
	}
	return strings.TrimRight(sf.lines[n-1], "\r")
}

// DisplayPath is the path when there is one, the name otherwise.
func (sf *SourceFile) DisplayPath() string {
	if sf.Path != "" {
		return sf.Path
	}
	return sf.Name
}
