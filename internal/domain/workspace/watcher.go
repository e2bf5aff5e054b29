package workspace

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeFunc is called after a watched file was reloaded into the workspace
type ChangeFunc func(f File)

// Watcher mirrors on-disk edits into a Workspace
type Watcher struct {
	dir      string
	ws       *Workspace
	onChange ChangeFunc
	logger   *zap.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher watches dir (non-recursively) for writes to workspace files
func NewWatcher(dir string, ws *Workspace, onChange ChangeFunc, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{dir: dir, ws: ws, onChange: onChange, logger: logger, fsw: fsw}, nil
}

// Run processes events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Workspace watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(p string) {
	rel, err := filepath.Rel(w.dir, p)
	if err != nil {
		return
	}
	name := filepath.ToSlash(rel)
	if strings.HasPrefix(filepath.Base(name), ".") || name == ManifestName {
		return
	}

	content, err := ReadText(p)
	if err != nil {
		w.logger.Debug("Ignoring workspace change", zap.String("file", name), zap.Error(err))
		return
	}
	if current, ok := w.ws.Get(name); ok && current.Content == content {
		return
	}

	f, err := w.ws.Put(name, content)
	if err != nil {
		return
	}
	w.logger.Debug("Workspace file changed on disk", zap.String("file", name))
	if w.onChange != nil {
		w.onChange(f)
	}
}
