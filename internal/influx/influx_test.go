package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/roadsim/roadsim/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readBackup(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	return string(raw)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "backup.lp.gz"))
	require.Error(t, m.Connect(Config{Enabled: false}))
	assert.False(t, m.Connected())
}

func TestConnect_UnreachableFallsBackToBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lp.gz")
	m := NewManager(zerolog.Nop(), path)
	// nothing listens on port 1
	require.NoError(t, m.Connect(Config{Enabled: true, Protocol: "http", Host: "127.0.0.1", Port: "1", Org: "roadsim"}))
	assert.False(t, m.Connected())

	point := influxdb2_write.NewPoint("status", nil, map[string]any{"tick": 3}, time.Unix(5, 0))
	require.NoError(t, m.WritePoint(context.Background(), BucketHost, point))
	require.NoError(t, m.Close())

	assert.Equal(t, "status tick=3i 5000000000\n", readBackup(t, path))
}

func TestConfig_URL(t *testing.T) {
	assert.Equal(t, "https://db:8086", Config{Protocol: "https", Host: "db", Port: "8086"}.URL())
}

func TestWritePoint_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lp.gz")
	m := NewManager(zerolog.Nop(), path)
	require.NoError(t, m.OpenBackup())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := m.NewRecorder(core.Run{ID: uint(i + 1), World: "grid"})
			for tick := uint64(1); tick <= 25; tick++ {
				assert.NoError(t, rec.Record(context.Background(), core.TickStats{Tick: tick}))
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, m.Close())

	lines := strings.Split(strings.TrimSpace(readBackup(t, path)), "\n")
	assert.Len(t, lines, 100)
}

func TestWritePoint_NoBackup(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	err := m.WritePoint(context.Background(), BucketSimulation, influxdb2_write.NewPointWithMeasurement("x"))
	require.Error(t, err)
}

func TestRecorder_WritesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lp.gz")
	m := NewManager(zerolog.Nop(), path)
	require.NoError(t, m.OpenBackup())
	// second open is a no-op
	require.NoError(t, m.OpenBackup())

	rec := m.NewRecorder(core.Run{ID: 4, World: "grid"})
	rec.now = func() time.Time { return time.Unix(100, 0) }
	require.NoError(t, rec.Record(context.Background(), core.TickStats{Tick: 60, Vehicles: 10, Damaged: 2, BestMileage: 12.5}))
	require.NoError(t, m.Close())
	// closing twice is fine
	require.NoError(t, m.Close())

	line := strings.TrimSpace(readBackup(t, path))
	assert.True(t, strings.HasPrefix(line, TickMeasurement+","), line)
	assert.Contains(t, line, "run=4")
	assert.Contains(t, line, "world=grid")
	assert.Contains(t, line, "tick=60i")
	assert.Contains(t, line, "vehicles=10i")
	assert.Contains(t, line, "best_mileage=12.5")
	assert.True(t, strings.HasSuffix(line, " 100000000000"), line)
}

func TestProcessMetricData(t *testing.T) {
	bucket, point, err := ProcessMetricData([]string{
		BucketHost, "frame",
		"tag::host::editor",
		"field::int::vehicles::12",
		"field::float::fps::59.5",
		"field::string::mode::headless",
		"ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, BucketHost, bucket)

	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, "frame,host=editor "), line)
	assert.Contains(t, line, "vehicles=12i")
	assert.Contains(t, line, "fps=59.5")
	assert.Contains(t, line, `mode="headless"`)
}

func TestProcessMetricData_Errors(t *testing.T) {
	_, _, err := ProcessMetricData([]string{"only-bucket"})
	require.Error(t, err)

	_, _, err = ProcessMetricData([]string{BucketHost, "frame", "field::int::n::abc"})
	require.Error(t, err)

	_, _, err = ProcessMetricData([]string{BucketHost, "frame", "field::float::n::abc"})
	require.Error(t, err)
}
