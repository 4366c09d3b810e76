package database

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"prem-rta/internal/config"
	"prem-rta/internal/logging"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func sampleRun() *RunMetadata {
	return &RunMetadata{
		RunID:    "c0ffee",
		Name:     "memory-interference",
		Checksum: "abc123",
		Started:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Finished: time.Date(2026, 1, 2, 4, 4, 5, 0, time.UTC),
		Systems:  2,
		Policies: []string{"classic", "knapsack"},
	}
}

func sampleSystem(index int, schedulable bool) *SystemResult {
	return &SystemResult{
		RunID:          "c0ffee",
		Policy:         "classic",
		Utilisation:    0.25,
		MemoryShareMin: 5,
		MemoryShareMax: 20,
		Index:          index,
		Processors:     2,
		Tasks:          4,
		Analysable:     true,
		Schedulable:    schedulable,
		Calls:          12,
		Elapsed:        3 * time.Millisecond,
		Record:         "0.25, 2, 2, 3, 7, 20, 20, 0, 12",
	}
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.sqlite3")

	sink, err := NewSQLiteSink(path)
	require.NoError(t, err)
	assert.Equal(t, path, sink.Path())

	require.NoError(t, sink.WriteRun(ctx, sampleRun()))
	require.NoError(t, sink.WriteSystem(ctx, sampleSystem(0, true)))
	require.NoError(t, sink.WriteSystem(ctx, sampleSystem(1, false)))
	require.NoError(t, sink.WriteSummary(ctx, &Summary{
		RunID: "c0ffee", Policy: "classic", Utilisation: 0.25,
		Systems: 2, Analysable: 2, Schedulable: 1, Ratio: 0.5,
	}))

	var rows int
	require.NoError(t, sink.DB().QueryRow(`SELECT COUNT(*) FROM systems`).Scan(&rows))
	assert.Equal(t, 0, rows, "system rows are buffered until a flush")

	require.NoError(t, sink.Flush())
	require.NoError(t, sink.DB().QueryRow(`SELECT COUNT(*) FROM systems`).Scan(&rows))
	assert.Equal(t, 2, rows)

	var schedulable int
	require.NoError(t, sink.DB().QueryRow(`SELECT SUM(schedulable) FROM systems`).Scan(&schedulable))
	assert.Equal(t, 1, schedulable)

	var ratio float64
	require.NoError(t, sink.DB().QueryRow(`SELECT ratio FROM summaries WHERE policy = ?`, "classic").Scan(&ratio))
	assert.InDelta(t, 0.5, ratio, 1e-12)

	var policies string
	require.NoError(t, sink.DB().QueryRow(`SELECT policies FROM runs WHERE run_id = ?`, "c0ffee").Scan(&policies))
	assert.Equal(t, "classic,knapsack", policies)

	require.NoError(t, sink.Close())
}

func TestSQLiteSinkDefaultName(t *testing.T) {
	name := DefaultSQLitePath()
	assert.True(t, strings.HasPrefix(name, "prem_rta_results_"))
	assert.True(t, strings.HasSuffix(name, ".sqlite3"))
	assert.NotEqual(t, name, DefaultSQLitePath())
}

func TestSpoolRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	sink := NewSpoolSink(dir, "evaluation:\n  name: x\n")
	require.NoError(t, sink.WriteRun(ctx, sampleRun()))
	require.NoError(t, sink.WriteSystem(ctx, sampleSystem(0, true)))
	require.NoError(t, sink.WriteSummary(ctx, &Summary{Policy: "classic", Systems: 1, Schedulable: 1, Ratio: 1}))
	require.NoError(t, sink.Close())

	path := sink.Path()
	require.NotEmpty(t, path)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "campaign_c0ffee_"))
	assert.True(t, strings.HasSuffix(path, "_abc123.json.gz"))

	artifact, err := ReadSpoolArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, 1, artifact.Version)
	assert.Equal(t, "evaluation:\n  name: x\n", artifact.ConfigContent)
	require.Len(t, artifact.Systems, 1)
	assert.Equal(t, sampleSystem(0, true).Record, artifact.Systems[0].Record)
	require.Len(t, artifact.Summaries, 1)
	assert.Equal(t, 1.0, artifact.Summaries[0].Ratio)

	// A second close keeps the first artifact.
	require.NoError(t, sink.Close())
	assert.Equal(t, path, sink.Path())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDefaultSpoolDir(t *testing.T) {
	t.Setenv("PREM_RTA_SPOOL_DIR", "")
	assert.Equal(t, "spool", DefaultSpoolDir())
	t.Setenv("PREM_RTA_SPOOL_DIR", " /tmp/prem ")
	assert.Equal(t, "/tmp/prem", DefaultSpoolDir())
}

func TestWriteSpoolArtifactNil(t *testing.T) {
	_, err := WriteSpoolArtifact(t.TempDir(), nil)
	assert.Error(t, err)
}

type failingSink struct {
	SpoolSink
	err error
}

func (f *failingSink) WriteSystem(context.Context, *SystemResult) error { return f.err }

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	good := NewSpoolSink(t.TempDir(), "")
	multi := MultiSink{good, &failingSink{err: boom}}

	err := multi.WriteSystem(context.Background(), sampleSystem(0, true))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, good.artifact.Systems, 1, "healthy sinks still receive the write")

	assert.NoError(t, multi.WriteSummary(context.Background(), &Summary{}))
}

func TestOpenWithoutDatabase(t *testing.T) {
	dir := t.TempDir()
	sink, err := Open(config.DataConfig{
		SQLite:   filepath.Join(dir, "r.sqlite3"),
		SpoolDir: filepath.Join(dir, "spool"),
	}, "")
	require.NoError(t, err)

	multi, ok := sink.(MultiSink)
	require.True(t, ok)
	require.Len(t, multi, 2)
	assert.IsType(t, &SQLiteSink{}, multi[0])
	assert.IsType(t, &SpoolSink{}, multi[1])
	require.NoError(t, sink.Close())
}

func TestInfluxPoints(t *testing.T) {
	ts := time.Unix(0, 42)
	line := write.PointToLineProtocol(systemPoint(sampleSystem(3, true), ts), time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, measurementSystem+","), line)
	assert.Contains(t, line, "memory_share=5-20")
	assert.Contains(t, line, "policy=classic")
	assert.Contains(t, line, "schedulable=true")
	assert.Contains(t, line, "index=3i")

	line = write.PointToLineProtocol(summaryPoint(&Summary{Policy: "knapsack", Ratio: 0.75}, ts), time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, measurementSummary+","), line)
	assert.Contains(t, line, "ratio=0.75")
}
