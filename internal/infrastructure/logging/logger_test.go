package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "production", cfg: DefaultConfig()},
		{name: "development", cfg: Config{Level: "debug", Development: true}},
		{name: "empty level defaults to info", cfg: Config{}},
		{name: "bad level", cfg: Config{Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger.Logger)
		})
	}
}

func TestJSONOutputAndLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Config{Level: "info", OutputPaths: []string{path}})
	require.NoError(t, err)

	sessionLog := logger.With(zap.String("preview", "prev_123"))
	sessionLog.Debug("hidden")
	sessionLog.Info("visible")

	require.NoError(t, logger.SetLevel("debug"))
	assert.Equal(t, "debug", logger.Level())
	sessionLog.Debug("now visible", zap.Int("n", 1))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.NotContains(t, out, `"hidden"`)
	assert.Contains(t, out, `"message":"visible"`)
	assert.Contains(t, out, `"preview":"prev_123"`)
	assert.Contains(t, out, `"message":"now visible"`)

	assert.Error(t, logger.SetLevel("nope"))
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		l := NewNop()
		l.Info("discarded")
		_ = l.SetLevel("warn")
	})
}
