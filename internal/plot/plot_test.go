package plot

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"prem-rta/internal/logging"
	"prem-rta/internal/prem"
	"prem-rta/internal/record"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestGenerateFromRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classic_mem5-20.log")
	w, err := record.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, u := range []float64{0.2, 0.4} {
		task := prem.MustTask(1, 1, 10, 0)
		task.Prio, task.R = 1, 2
		sys := prem.NewSystem(u, prem.NewProcessor(task))
		sys.State = prem.Analysed
		if err := w.Write(sys); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	pm := NewPlotManager()
	plot, wrapper, err := pm.GenerateFromRecords("mem5-20", []RecordSeries{{Path: path}})
	if err != nil {
		t.Fatalf("GenerateFromRecords: %v", err)
	}
	if !strings.Contains(plot, `\addlegendentry{ classic_mem5-20 }`) || !strings.Contains(plot, "(0.4000,1.000000)") {
		t.Fatalf("unexpected plot:\n%s", plot)
	}
	if !strings.Contains(wrapper, FileName("mem5-20")) {
		t.Fatalf("wrapper does not input %s", FileName("mem5-20"))
	}

	if _, _, err := pm.GenerateFromRecords("x", []RecordSeries{{Path: filepath.Join(dir, "missing.log")}}); err == nil {
		t.Fatalf("expected an error for a missing record file")
	}
}

func TestGenerateFromInfluxDBWithoutEnv(t *testing.T) {
	for _, k := range []string{"INFLUXDB_HOST", "INFLUXDB_TOKEN", "INFLUXDB_ORG", "INFLUXDB_BUCKET"} {
		t.Setenv(k, "")
	}
	if _, _, err := NewPlotManager().GenerateFromInfluxDB("run", ""); err == nil {
		t.Fatalf("expected an error without connection settings")
	}
}
