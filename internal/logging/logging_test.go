package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "roadsimlogs",
			want:    filepath.Join("roadsimlogs", "roadsim.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./roadsimlogs",
			want:    filepath.Join(".", "roadsimlogs", "roadsim.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "roadsim"),
			want:    filepath.Join("/var", "log", "roadsim", "roadsim.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "roadsim", sessionStart))
		})
	}
}

func TestOpenLogFile_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	f, err := OpenLogFile(dir, "roadsim", start)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	_, err = f.WriteString("line\n")
	require.NoError(t, err)

	data, err := os.ReadFile(LogFilePath(dir, "roadsim", start))
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}
