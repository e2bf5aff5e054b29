// Package workspace holds the named source files a learner edits.
//
// Files keep their registration order, which is the order `ls` lists them
// and the order Buffers consults when picking the markup, style and script
// that feed a preview. One file may be marked active; `run` with no argument
// executes it.
package workspace

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/GriffinCanCode/codelab/internal/preview/document"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidName  = errors.New("invalid file name")
)

// File is one named source buffer
type File struct {
	Name     string        `json:"name"`
	Language string        `json:"language"`
	Kind     document.Kind `json:"kind"`
	Content  string        `json:"content"`
}

var languages = map[string]string{
	".html": "html",
	".htm":  "html",
	".css":  "css",
	".js":   "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".py":   "python",
	".json": "json",
	".md":   "markdown",
	".txt":  "text",
}

// LanguageFor infers a language from the file extension
func LanguageFor(name string) string {
	if lang, ok := languages[strings.ToLower(path.Ext(name))]; ok {
		return lang
	}
	return "text"
}

// Workspace is an ordered, concurrency-safe set of files
type Workspace struct {
	mu     sync.RWMutex
	files  []*File
	index  map[string]*File
	active string
}

// New creates an empty workspace
func New() *Workspace {
	return &Workspace{index: make(map[string]*File)}
}

// Put creates or replaces a file. New files are appended to the order;
// the first file added becomes active.
func (w *Workspace) Put(name, content string) (File, error) {
	name, err := cleanName(name)
	if err != nil {
		return File{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if f, ok := w.index[name]; ok {
		f.Content = content
		return *f, nil
	}

	lang := LanguageFor(name)
	f := &File{Name: name, Language: lang, Kind: document.ParseKind(lang), Content: content}
	w.files = append(w.files, f)
	w.index[name] = f
	if w.active == "" {
		w.active = name
	}
	return *f, nil
}

// Get returns a copy of the named file
func (w *Workspace) Get(name string) (File, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if f, ok := w.index[name]; ok {
		return *f, true
	}
	return File{}, false
}

// Remove deletes a file. Removing the active file clears the selection.
func (w *Workspace) Remove(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.index[name]; !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	delete(w.index, name)
	for i, f := range w.files {
		if f.Name == name {
			w.files = append(w.files[:i], w.files[i+1:]...)
			break
		}
	}
	if w.active == name {
		w.active = ""
	}
	return nil
}

// Files returns copies of every file in registration order
func (w *Workspace) Files() []File {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]File, len(w.files))
	for i, f := range w.files {
		out[i] = *f
	}
	return out
}

// Len returns the number of files
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.files)
}

// SetActive selects the file `run` executes by default
func (w *Workspace) SetActive(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.index[name]; !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	w.active = name
	return nil
}

// Active returns the selected file
func (w *Workspace) Active() (File, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if f, ok := w.index[w.active]; ok {
		return *f, true
	}
	return File{}, false
}

// Buffers composes the preview inputs: the first file of each kind wins
func (w *Workspace) Buffers() document.Buffers {
	w.mu.RLock()
	defer w.mu.RUnlock()

	list := make([]document.Buffer, len(w.files))
	for i, f := range w.files {
		list[i] = document.Buffer{Kind: f.Kind, Text: f.Content}
	}
	return document.FromBuffers(list)
}

// Feeds reports whether name is the file Buffers takes its kind from
func (w *Workspace) Feeds(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	f, ok := w.index[name]
	if !ok || f.Kind == document.KindOther {
		return false
	}
	for _, other := range w.files {
		if other.Kind == f.Kind {
			return other.Name == name
		}
	}
	return false
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "\x00\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	cleaned := path.Clean(strings.TrimPrefix(name, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return cleaned, nil
}
