// Package editor holds the option set the code-editing surface accepts.
//
// The editor itself is an external collaborator; this package only tracks
// the recognised keys (font size, word wrap, minimap, line numbers and theme)
// and merges updates into them. Unrecognised keys are ignored.
package editor

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Options is the editor configuration
type Options struct {
	FontSize    int    `json:"font_size" toml:"font_size"`
	WordWrap    bool   `json:"word_wrap" toml:"word_wrap"`
	Minimap     bool   `json:"minimap" toml:"minimap"`
	LineNumbers bool   `json:"line_numbers" toml:"line_numbers"`
	Theme       string `json:"theme" toml:"theme"`
}

const (
	minFontSize = 8
	maxFontSize = 48
)

// Defaults returns the initial editor options
func Defaults() Options {
	return Options{
		FontSize:    14,
		WordWrap:    true,
		Minimap:     false,
		LineNumbers: true,
		Theme:       "vs-dark",
	}
}

// Apply merges recognised keys from update and returns the result along with
// the keys it ignored. Keys match case-insensitively in camelCase or
// snake_case. Values of the wrong shape are ignored like unknown keys.
func (o Options) Apply(update map[string]interface{}) (Options, []string) {
	var ignored []string
	for key, raw := range update {
		if !o.set(normalizeKey(key), raw) {
			ignored = append(ignored, key)
		}
	}
	return o, ignored
}

func (o *Options) set(key string, raw interface{}) bool {
	switch key {
	case "fontsize":
		size, ok := toInt(raw)
		if !ok {
			return false
		}
		o.FontSize = clamp(size, minFontSize, maxFontSize)
	case "wordwrap":
		v, ok := toSwitch(raw)
		if !ok {
			return false
		}
		o.WordWrap = v
	case "minimap":
		// The editor sends {enabled: bool}
		if m, isMap := raw.(map[string]interface{}); isMap {
			raw = m["enabled"]
		}
		v, ok := toSwitch(raw)
		if !ok {
			return false
		}
		o.Minimap = v
	case "linenumbers":
		v, ok := toSwitch(raw)
		if !ok {
			return false
		}
		o.LineNumbers = v
	case "theme":
		s, ok := raw.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return false
		}
		o.Theme = strings.TrimSpace(s)
	default:
		return false
	}
	return true
}

// LoadFile reads defaults overridden by a TOML file. A missing file yields
// the defaults.
func LoadFile(path string) (Options, error) {
	opts := Defaults()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return opts, nil
	}
	if err != nil {
		return opts, fmt.Errorf("failed to read editor options: %w", err)
	}

	if err := toml.Unmarshal(data, &opts); err != nil {
		return Defaults(), fmt.Errorf("failed to parse editor options %s: %w", path, err)
	}
	opts.FontSize = clamp(opts.FontSize, minFontSize, maxFontSize)
	return opts, nil
}

// Marshal renders the options as TOML
func (o Options) Marshal() ([]byte, error) {
	return toml.Marshal(o)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(key, "_", ""), "-", ""))
}

func toInt(raw interface{}) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// toSwitch accepts booleans and the editor's "on"/"off" strings
func toSwitch(raw interface{}) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "on", "true":
			return true, true
		case "off", "false":
			return false, true
		}
	}
	return false, false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
