package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreLevel(t *testing.T) {
	t.Helper()
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	restoreLevel(t)

	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info().Msg("hidden")
	l.Warn().Str("k", "v").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "v", entry["k"])
	assert.Contains(t, entry, "caller")
	assert.Contains(t, entry, "time")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	restoreLevel(t)

	for _, lvl := range []string{"", "verbose"} {
		var buf bytes.Buffer
		l := New(&buf, lvl)
		l.Debug().Msg("debug")
		l.Info().Msg("info")

		assert.NotContains(t, buf.String(), `"debug"`, lvl)
		assert.Contains(t, buf.String(), `"info"`, lvl)
	}
}
