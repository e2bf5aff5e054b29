package preview

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codelab/internal/domain/workspace"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codelab/internal/preview/bridge"
	"github.com/GriffinCanCode/codelab/internal/preview/document"
	"github.com/GriffinCanCode/codelab/internal/preview/viewport"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Debounce = 20 * time.Millisecond
	cfg.Yield = time.Millisecond
	return cfg
}

func newTestSession(t *testing.T, cfg Config, initial document.Buffers) *Session {
	t.Helper()
	m := NewManager(cfg, zap.NewNop()).WithMetrics(monitoring.NewMetrics())
	s, err := m.Create(initial, CreateOptions{})
	require.NoError(t, err)
	t.Cleanup(m.CloseAll)
	return s
}

func messages(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func TestScenarioRenderRelaysOneEntry(t *testing.T) {
	s := newTestSession(t, testConfig(), document.Buffers{
		Markup: "<h1>Hi</h1>",
		Style:  "h1{color:red}",
		Script: "console.log('x')",
	})
	assert.False(t, s.Running())

	require.NoError(t, s.Reload())
	require.Eventually(t, s.Running, 2*time.Second, 5*time.Millisecond)

	entries := s.Console()
	require.Len(t, entries, 1)
	assert.Equal(t, bridge.LevelLog, entries[0].Level)
	assert.Equal(t, "x", entries[0].Message)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestStarterProjectRendersCleanly(t *testing.T) {
	s := newTestSession(t, testConfig(), workspace.Starter().Buffers())

	require.NoError(t, s.Reload())
	require.Eventually(t, s.Running, 2*time.Second, 5*time.Millisecond)

	entries := s.Console()
	require.Len(t, entries, 1)
	assert.Equal(t, bridge.LevelLog, entries[0].Level)
	assert.Equal(t, "Page ready", entries[0].Message)
}

func TestSettingsReportsLiveInstance(t *testing.T) {
	s := newTestSession(t, testConfig(), document.Buffers{Script: "console.log('x')"})
	assert.Empty(t, s.Settings().Instance)

	require.NoError(t, s.Reload())
	require.Eventually(t, s.Running, 2*time.Second, 5*time.Millisecond)
	first := s.Settings().Instance
	assert.NotEmpty(t, first)

	require.NoError(t, s.Restart())
	require.Eventually(t, s.Running, 2*time.Second, 5*time.Millisecond)
	assert.NotEqual(t, first, s.Settings().Instance)

	require.NoError(t, s.Stop())
	assert.Empty(t, s.Settings().Instance)
}

func TestRestartRejectsStaleMessages(t *testing.T) {
	cfg := testConfig()
	cfg.AutoReload = false
	cfg.Yield = 50 * time.Millisecond
	s := newTestSession(t, cfg, document.Buffers{
		Script: "setInterval(function () { console.log('old'); }, 2)",
	})

	require.NoError(t, s.Reload())
	require.Eventually(t, func() bool { return len(s.Console()) > 3 }, 2*time.Second, 5*time.Millisecond)
	firstGen := s.Settings().Generation

	_, err := s.UpdateBuffer(document.KindScript, "console.log('new')")
	require.NoError(t, err)
	require.NoError(t, s.Restart())
	assert.False(t, s.Running())

	time.Sleep(20 * time.Millisecond)
	s.ClearConsole()

	require.Eventually(t, s.Running, 2*time.Second, 5*time.Millisecond)
	assert.Greater(t, s.Settings().Generation, firstGen)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"new"}, messages(s.Console()))
}

func TestConsoleIsBounded(t *testing.T) {
	cfg := testConfig()
	cfg.ConsoleCap = 10
	s := newTestSession(t, cfg, document.Buffers{
		Script: "for (var i = 0; i < 25; i++) { console.log(String(i)); }",
	})

	require.NoError(t, s.Reload())
	require.Eventually(t, s.Running, 2*time.Second, 5*time.Millisecond)

	entries := s.Console()
	assert.LessOrEqual(t, len(entries), 10)
	require.NotEmpty(t, entries)
	assert.Equal(t, "24", entries[len(entries)-1].Message)
	assert.Positive(t, s.Stats().ConsoleEvicts)
}

func TestEditsAreDebounced(t *testing.T) {
	cfg := testConfig()
	cfg.Debounce = 60 * time.Millisecond
	s := newTestSession(t, cfg, document.Buffers{})

	for i := 0; i < 5; i++ {
		scheduled, err := s.UpdateBuffer(document.KindScript, fmt.Sprintf("console.log('v%d')", i))
		require.NoError(t, err)
		assert.True(t, scheduled)
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, s.Running, 2*time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, 1, s.Stats().Renders)
	assert.Equal(t, []string{"v4"}, messages(s.Console()))
}

func TestAutoReloadOffIgnoresEdits(t *testing.T) {
	s := newTestSession(t, testConfig(), document.Buffers{})
	s.SetAutoReload(false)

	scheduled, err := s.UpdateBuffer(document.KindMarkup, "<p>hi</p>")
	require.NoError(t, err)
	assert.False(t, scheduled)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, s.Stats().Renders)
	assert.Contains(t, s.Document(), "<p>hi</p>")
}

func TestUnsupportedKind(t *testing.T) {
	s := newTestSession(t, testConfig(), document.Buffers{})
	_, err := s.UpdateBuffer(document.KindOther, "print('x')")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestStop(t *testing.T) {
	s := newTestSession(t, testConfig(), document.Buffers{Script: "console.log('x')"})

	require.NoError(t, s.Reload())
	require.Eventually(t, s.Running, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.Running())
	assert.Equal(t, "idle", s.Settings().State)

	require.NoError(t, s.Stop())
}

func TestDisplayIsSanitized(t *testing.T) {
	s := newTestSession(t, testConfig(), document.Buffers{
		Script: "console.warn('<img src=x onerror=alert(1)><b>bold</b>')",
	})

	require.NoError(t, s.Reload())
	require.Eventually(t, s.Running, 2*time.Second, 5*time.Millisecond)

	entries := s.Console()
	require.Len(t, entries, 1)
	assert.Equal(t, bridge.LevelWarn, entries[0].Level)
	assert.Contains(t, entries[0].Message, "<b>bold</b>")
	assert.Equal(t, "bold", entries[0].Display)
}

func TestScriptErrorsBecomeErrorEntries(t *testing.T) {
	s := newTestSession(t, testConfig(), document.Buffers{Script: "undefinedFunction()"})

	require.NoError(t, s.Reload())
	require.Eventually(t, s.Running, 2*time.Second, 5*time.Millisecond)

	entries := s.Console()
	require.Len(t, entries, 1)
	assert.Equal(t, bridge.LevelError, entries[0].Level)
	assert.Contains(t, entries[0].Message, "ReferenceError")
}

func TestSubscribe(t *testing.T) {
	s := newTestSession(t, testConfig(), document.Buffers{Script: "console.log('hello')"})

	events, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.Reload())

	var sawConsole, sawRunning bool
	timeout := time.After(2 * time.Second)
	for !(sawConsole && sawRunning) {
		select {
		case ev := <-events:
			if ev.Type == EventConsole && ev.Entry != nil && ev.Entry.Message == "hello" {
				sawConsole = true
			}
			if ev.Type == EventStatus && ev.Running {
				sawRunning = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
}

func TestSettingsAndViewport(t *testing.T) {
	s := newTestSession(t, testConfig(), document.Buffers{})

	settings := s.Settings()
	assert.Equal(t, viewport.DefaultName, settings.Viewport.Name)
	assert.True(t, settings.AutoReload)
	assert.Equal(t, 20, settings.DebounceMs)

	vp, err := s.SetViewport("tablet")
	require.NoError(t, err)
	assert.Equal(t, 768, vp.Width)

	_, err = s.SetViewport("watch")
	assert.ErrorIs(t, err, viewport.ErrUnknownViewport)

	s.SetDebounce(250 * time.Millisecond)
	assert.Equal(t, 250, s.Settings().DebounceMs)
}

func TestEditorOptions(t *testing.T) {
	s := newTestSession(t, testConfig(), document.Buffers{})

	opts := s.ApplyEditorOptions(map[string]interface{}{"fontSize": 20, "bogus": 1})
	assert.Equal(t, 20, opts.FontSize)
	assert.Equal(t, opts, s.EditorOptions())
}

func TestStats(t *testing.T) {
	s := newTestSession(t, testConfig(), document.Buffers{Script: "console.log(1)"})

	for i := 0; i < 3; i++ {
		before := s.Settings().Generation
		require.NoError(t, s.Reload())
		require.Eventually(t, func() bool {
			st := s.Settings()
			return st.Running && st.Generation > before
		}, 2*time.Second, 5*time.Millisecond)
	}

	st := s.Stats()
	assert.Equal(t, 3, st.Renders)
	assert.Equal(t, 3, st.Loads)
	assert.Greater(t, st.MeanMs, 0.0)
	assert.GreaterOrEqual(t, st.P95Ms, st.P50Ms)
}

func TestClosedSession(t *testing.T) {
	s := newTestSession(t, testConfig(), document.Buffers{})
	events, _ := s.Subscribe()

	s.Close()
	s.Close()

	_, err := s.UpdateBuffer(document.KindScript, "x")
	assert.True(t, errors.Is(err, ErrSessionClosed))
	assert.ErrorIs(t, s.Reload(), ErrSessionClosed)
	assert.ErrorIs(t, s.Restart(), ErrSessionClosed)

	_, open := <-events
	assert.False(t, open)
}

func TestRelayFiltersByGeneration(t *testing.T) {
	cfg := testConfig()
	cfg.AutoReload = false
	s := newTestSession(t, cfg, document.Buffers{Markup: "<p>relay</p>"})

	require.NoError(t, s.Reload())
	require.Eventually(t, s.Running, 2*time.Second, 5*time.Millisecond)
	gen := s.Settings().Generation

	s.Relay(gen+1, []byte(`{"type":"console","level":"warn","message":"future"}`))
	s.Relay(gen, []byte(`{"type":"console","level":"warn","message":"from frame"}`))
	s.Relay(gen, []byte(`{"type":"resize"}`))

	require.Eventually(t, func() bool { return len(s.Console()) == 1 }, time.Second, 5*time.Millisecond)
	entry := s.Console()[0]
	assert.Equal(t, bridge.LevelWarn, entry.Level)
	assert.Equal(t, "from frame", entry.Message)
}
