package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture installs a global logger writing to a buffer and restores the
// previous global state when the test ends.
func capture(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()

	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	cfg.Output = &buf
	Setup(cfg)
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line: %s", line)
		out = append(out, entry)
	}
	return out
}

func TestLogLevelFromEnvironment(t *testing.T) {
	tests := []struct {
		env        string
		want       zerolog.Level
		debugShown bool
		infoShown  bool
	}{
		{"debug", zerolog.DebugLevel, true, true},
		{" INFO ", zerolog.InfoLevel, false, true},
		{"warning", zerolog.WarnLevel, false, false},
		{"error", zerolog.ErrorLevel, false, false},
		{"", zerolog.InfoLevel, false, true},
		{"verbose", zerolog.InfoLevel, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			buf := capture(t, Config{Level: ParseLevel(tt.env)})
			assert.Equal(t, tt.want, zerolog.GlobalLevel())

			logger := NewLogger(ComponentCache)
			logger.Debug().Msg("Cache hit")
			logger.Info().Msg("Cache cleared")

			out := buf.String()
			assert.Equal(t, tt.debugShown, strings.Contains(out, "Cache hit"))
			assert.Equal(t, tt.infoShown, strings.Contains(out, "Cache cleared"))
		})
	}
}

func TestNewLogger_Components(t *testing.T) {
	buf := capture(t, DefaultConfig())

	for _, component := range []string{ComponentAPI, ComponentCache, ComponentWorkout, ComponentMongo} {
		logger := NewLogger(component)
		logger.Info().Str("user_id", "u1").Msg("Seance created")
	}

	entries := lines(t, buf)
	require.Len(t, entries, 4)
	for i, component := range []string{"api", "cache", "workout", "mongo"} {
		assert.Equal(t, component, entries[i]["component"])
		assert.Equal(t, "u1", entries[i]["user_id"])
		assert.Equal(t, "info", entries[i]["level"])
		assert.Contains(t, entries[i], "time")
	}
}

func TestWithRequestID(t *testing.T) {
	buf := capture(t, DefaultConfig())

	ctx := WithRequestID(context.Background(), NewLogger(ComponentAPI), "req-42")
	zerolog.Ctx(ctx).Warn().Int("status", 503).Msg("Request handled")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0]["request_id"])
	assert.Equal(t, "api", entries[0]["component"])
	assert.EqualValues(t, 503, entries[0]["status"])
}

func TestSetup_Pretty(t *testing.T) {
	buf := capture(t, Config{Level: LevelInfo, Pretty: true})

	logger := NewLogger(ComponentWorkout)
	logger.Info().Str("verdict", "PR").Msg("Set recorded")

	out := buf.String()
	assert.Contains(t, out, "Set recorded")
	assert.Contains(t, out, "verdict")
	assert.Contains(t, out, "PR")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())), "console output is not JSON")
}

func TestSetup_NilOutputFallsBackToStderr(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	assert.NotPanics(t, func() {
		logger := Setup(Config{Level: LevelError})
		logger.Debug().Msg("dropped")
	})
}
