package evaluation

import (
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"

	"prem-rta/internal/config"
	"prem-rta/internal/database"
	"prem-rta/internal/logging"
	"prem-rta/internal/record"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

const campaign = `
evaluation:
  name: runner-test
  seed: 11
  systems: 5
  workers: %WORKERS%
  output_dir: %DIR%
  generator:
    processors: 2
    tasks: 3
    periods: {min: 10, max: 100}
    scale: 10
    min_cost: 1
  utilisations: [0.1, 0.5]
  memory_shares:
    - {min: 5, max: 20}

classic:
  index: 0
  estimators: [classic]

knapsack:
  index: 1
  estimators: [classic, knapsack]
  rescale: {threshold: 0.3, below: 1, above: 2}

memguard:
  index: 2
  budget: true
`

func loadCampaign(t *testing.T, dir string, workers string) *config.CampaignConfig {
	t.Helper()
	content := strings.ReplaceAll(campaign, "%DIR%", dir)
	content = strings.ReplaceAll(content, "%WORKERS%", workers)
	cfg, err := config.ParseConfig(content)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	return cfg
}

type memorySink struct {
	mu        sync.Mutex
	runs      []*database.RunMetadata
	systems   []*database.SystemResult
	summaries []*database.Summary
}

func (m *memorySink) WriteRun(_ context.Context, run *database.RunMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memorySink) WriteSystem(_ context.Context, r *database.SystemResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.systems = append(m.systems, r)
	return nil
}

func (m *memorySink) WriteSummary(_ context.Context, s *database.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, s)
	return nil
}

func (m *memorySink) Close() error { return nil }

func runCampaign(t *testing.T, workers string) (*Report, *memorySink) {
	t.Helper()
	cfg := loadCampaign(t, t.TempDir(), workers)
	sink := &memorySink{}
	runner, err := NewRunner(cfg, sink, WithConfigFile("campaign.yml"))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return report, sink
}

func TestRunnerCampaign(t *testing.T) {
	report, sink := runCampaign(t, "3")

	if report.Systems != 10 || report.Failed != 0 {
		t.Fatalf("analysed %d systems with %d failures, want 10 and 0", report.Systems, report.Failed)
	}
	if len(report.Files) != 3 {
		t.Fatalf("expected one record file per policy, got %v", report.Files)
	}
	for _, f := range report.Files {
		systems, err := record.ReadFile(f)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", f, err)
		}
		if len(systems) != 10 {
			t.Fatalf("%s holds %d records, want 10", f, len(systems))
		}
	}

	if len(report.Summaries) != 6 {
		t.Fatalf("expected 6 summaries, got %d", len(report.Summaries))
	}
	for _, s := range report.Summaries {
		if s.Systems != 5 {
			t.Fatalf("summary %+v should cover 5 systems", s)
		}
		if s.Schedulable > s.Analysable || s.Ratio < 0 || s.Ratio > 1 {
			t.Fatalf("inconsistent summary %+v", s)
		}
	}
	if report.Summaries[0].Policy != "classic" || report.Summaries[0].Utilisation != 0.1 {
		t.Fatalf("summaries out of order: %+v", report.Summaries[0])
	}

	if len(sink.systems) != 30 || len(sink.summaries) != 6 || len(sink.runs) != 1 {
		t.Fatalf("sink got %d systems, %d summaries, %d runs", len(sink.systems), len(sink.summaries), len(sink.runs))
	}
	run := sink.runs[0]
	if run.RunID != report.RunID || run.Checksum != report.Checksum || run.ConfigFile != "campaign.yml" {
		t.Fatalf("unexpected run metadata %+v", run)
	}
	if strings.Join(run.Policies, ",") != "classic,knapsack,memguard" {
		t.Fatalf("policies %v", run.Policies)
	}
}

func sortedRecords(t *testing.T, report *Report) []string {
	t.Helper()
	var lines []string
	for _, f := range report.Files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		lines = append(lines, strings.Split(strings.TrimSpace(string(data)), "\n")...)
	}
	sort.Strings(lines)
	return lines
}

func TestRunnerIsDeterministic(t *testing.T) {
	a, _ := runCampaign(t, "1")
	b, _ := runCampaign(t, "4")

	la, lb := sortedRecords(t, a), sortedRecords(t, b)
	if strings.Join(la, "\n") != strings.Join(lb, "\n") {
		t.Fatalf("worker count changed the records")
	}
	for i := range a.Summaries {
		if a.Summaries[i].Schedulable != b.Summaries[i].Schedulable {
			t.Fatalf("summary %d differs: %+v vs %+v", i, a.Summaries[i], b.Summaries[i])
		}
	}
	if a.RunID == b.RunID {
		t.Fatalf("each run should get its own id")
	}
}

func TestRunnerCancelled(t *testing.T) {
	cfg := loadCampaign(t, t.TempDir(), "2")
	runner, err := NewRunner(cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := runner.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report == nil || report.Systems != 0 {
		t.Fatalf("cancelled campaign analysed systems: %+v", report)
	}
}

func TestNewRunnerRejectsUnknownPriority(t *testing.T) {
	cfg := loadCampaign(t, t.TempDir(), "1")
	cfg.Evaluation.Priority = "earliest_deadline"
	if _, err := NewRunner(cfg, nil); err == nil {
		t.Fatalf("expected an error for an unknown priority policy")
	}
}
