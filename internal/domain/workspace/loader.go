package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-yaml"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// ManifestName is the optional file that fixes order and the active file
const ManifestName = "codelab.yaml"

// MaxFileSize bounds a single loaded file
const MaxFileSize = 1 << 20

var skipDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	"vendor":       true,
}

// Manifest lists workspace files explicitly
type Manifest struct {
	Name   string   `yaml:"name"`
	Active string   `yaml:"active"`
	Files  []string `yaml:"files"`
}

// Load reads a workspace from dir. With a manifest the listed files load in
// manifest order; otherwise every text file under dir loads sorted by path.
// Binary and oversized files are skipped.
func Load(ctx context.Context, dir string, logger *zap.Logger) (*Workspace, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	manifest, err := readManifest(dir)
	if err != nil {
		return nil, err
	}

	names := manifest.Files
	if len(names) == 0 {
		names, err = discover(ctx, dir)
		if err != nil {
			return nil, err
		}
	}

	ws := New()
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := ReadText(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			logger.Warn("Skipping workspace file", zap.String("file", name), zap.Error(err))
			continue
		}
		if _, err := ws.Put(name, content); err != nil {
			logger.Warn("Skipping workspace file", zap.String("file", name), zap.Error(err))
		}
	}

	if manifest.Active != "" {
		if err := ws.SetActive(manifest.Active); err != nil {
			logger.Warn("Manifest active file not loaded", zap.String("file", manifest.Active))
		}
	}

	logger.Info("Workspace loaded",
		zap.String("dir", dir),
		zap.Int("files", ws.Len()),
		zap.Bool("manifest", len(manifest.Files) > 0),
	)
	return ws, nil
}

func readManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse %s: %w", ManifestName, err)
	}
	return m, nil
}

// discover walks dir concurrently and returns relative slash paths
func discover(ctx context.Context, dir string) ([]string, error) {
	var (
		mu    sync.Mutex
		names []string
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		base := d.Name()
		if d.IsDir() {
			if p != dir && (strings.HasPrefix(base, ".") || skipDirs[base]) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(base, ".") || base == ManifestName {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		mu.Lock()
		names = append(names, filepath.ToSlash(rel))
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk workspace: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// ReadText reads a text file and converts it to UTF-8
func ReadText(p string) (string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	return DecodeText(data)
}

// DecodeText rejects binary content and transcodes legacy encodings to UTF-8
func DecodeText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if !isText(mimetype.Detect(data)) {
		return "", errors.New("binary content")
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	label := "windows-1252"
	if result, err := chardet.NewTextDetector().DetectBest(data); err == nil && result.Charset != "" {
		label = result.Charset
	}

	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("unsupported encoding %s: %w", label, err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", label, err)
	}
	return string(decoded), nil
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
