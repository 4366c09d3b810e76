package database

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	results "prem-rta/internal/database"
	"prem-rta/internal/logging"
	"prem-rta/internal/prem"
	"prem-rta/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestSQLiteSummaries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.sqlite3")

	sink, err := results.NewSQLiteSink(path)
	require.NoError(t, err)
	for _, id := range []string{"old", "new"} {
		started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		if id == "new" {
			started = started.Add(time.Hour)
		}
		require.NoError(t, sink.WriteRun(ctx, &results.RunMetadata{RunID: id, Name: "campaign-" + id, Started: started, Finished: started}))
	}
	for _, s := range []results.Summary{
		{RunID: "new", Policy: "knapsack", Utilisation: 0.5, MemoryShareMin: 5, MemoryShareMax: 20, Systems: 4, Schedulable: 2, Ratio: 0.5},
		{RunID: "new", Policy: "classic", Utilisation: 0.5, MemoryShareMin: 5, MemoryShareMax: 20, Systems: 4, Schedulable: 1, Ratio: 0.25},
		{RunID: "new", Policy: "classic", Utilisation: 0.1, MemoryShareMin: 5, MemoryShareMax: 20, Systems: 4, Schedulable: 4, Ratio: 1},
		{RunID: "old", Policy: "classic", Utilisation: 0.1, Systems: 1, Ratio: 0},
	} {
		s := s
		require.NoError(t, sink.WriteSummary(ctx, &s))
	}
	require.NoError(t, sink.Close())

	reader, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reader.Close()

	latest, err := reader.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", latest)

	series, err := reader.QuerySummaries(ctx, "new")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "classic", series[0].Label)
	require.Len(t, series[0].Points, 2)
	assert.Equal(t, 0.1, series[0].Points[0].Utilisation)
	assert.Equal(t, 0.25, series[0].Points[1].Ratio)
	assert.Equal(t, "knapsack", series[1].Policy)

	info, err := reader.QueryRunInfo(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "campaign-new", info.Name)

	_, err = reader.QueryRunInfo(ctx, "missing")
	assert.Error(t, err)
}

func TestShareLabel(t *testing.T) {
	assert.Equal(t, "classic", shareLabel("classic", 5, 20, false))
	assert.Equal(t, `classic (mem 5-20\%)`, shareLabel("classic", 5, 20, true))
}

func writeRecords(t *testing.T, systems ...*prem.System) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "classic.log")
	w, err := record.Create(path)
	require.NoError(t, err)
	for _, s := range systems {
		require.NoError(t, w.Write(s))
	}
	require.NoError(t, w.Close())
	return path
}

func analysed(u float64, r, d int) *prem.System {
	task := prem.MustTask(1, 2, d, 0)
	task.Prio, task.R = 1, r
	sys := prem.NewSystem(u, prem.NewProcessor(task))
	sys.State = prem.Analysed
	return sys
}

func TestSeriesFromRecords(t *testing.T) {
	unanalysed := prem.NewSystem(0.5, prem.NewProcessor(prem.MustTask(1, 2, 10, 0)))
	path := writeRecords(t,
		analysed(0.5, 3, 10),
		analysed(0.1, 3, 10),
		analysed(0.5, 12, 10),
		unanalysed,
	)

	series, err := SeriesFromRecords("classic", path)
	require.NoError(t, err)
	require.Len(t, series.Points, 2)
	assert.Equal(t, RatioPoint{Utilisation: 0.1, Systems: 1, Schedulable: 1, Ratio: 1}, series.Points[0])
	assert.Equal(t, RatioPoint{Utilisation: 0.5, Systems: 2, Schedulable: 1, Ratio: 0.5}, series.Points[1])

	_, err = SeriesFromRecords("missing", filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}
