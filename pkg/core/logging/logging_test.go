package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/go-smallsh/pkg/core/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := logging.ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewAddsSessionAndPid(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, slog.LevelInfo, "abc")

	log.Info("job.started", "job_pid", 42)
	log.Debug("dropped")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "job.started", rec["msg"])
	assert.Equal(t, "abc", rec["session"])
	assert.EqualValues(t, os.Getpid(), rec["pid"])
	assert.EqualValues(t, 42, rec["job_pid"])
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"), "debug record must be filtered")
}

func TestOpenEmptyPathDiscards(t *testing.T) {
	log, closer, err := logging.Open("", "info")

	require.NoError(t, err)
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
	assert.NoError(t, closer.Close())
}

func TestOpenAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smallsh.log")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0600))

	log, closer, err := logging.Open(path, "info")
	require.NoError(t, err)
	log.Info("config.loaded")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	_, err = uuid.Parse(rec["session"].(string))
	assert.NoError(t, err, "session must be a uuid")
}

func TestOpenBadLevel(t *testing.T) {
	_, _, err := logging.Open(filepath.Join(t.TempDir(), "x.log"), "loud")

	assert.Error(t, err)
}
