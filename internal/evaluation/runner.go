// Package evaluation runs schedulability campaigns over generated systems
// and compares interference estimators.
package evaluation

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"prem-rta/internal/config"
	"prem-rta/internal/database"
	"prem-rta/internal/generator"
	"prem-rta/internal/host"
	"prem-rta/internal/interference"
	"prem-rta/internal/logging"
	"prem-rta/internal/prem"
	"prem-rta/internal/priority"
	"prem-rta/internal/record"
	"prem-rta/internal/rta"
	"prem-rta/internal/schedulability"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

const progressInterval = 100

// policy is a configured way of analysing a system, ready to be shared by
// the workers of one campaign.
type policy struct {
	cfg      config.PolicyConfig
	analyzer *rta.Analyzer
	writers  []*record.Writer
}

func (p *policy) analyse(sys *prem.System) rta.Outcome {
	if p.cfg.Budget {
		return p.analyzer.AnalyzeBudgeted(sys, interference.DefaultBudget(sys))
	}
	return p.analyzer.Analyze(sys)
}

// point is one (memory share, utilisation) pair of the campaign grid.
type point struct {
	share       int
	utilisation int
}

type job struct {
	point
	index int
	seed  int64
}

type tally struct {
	systems     int
	analysable  int
	schedulable int
}

// Report is the outcome of a finished campaign.
type Report struct {
	RunID     string
	Checksum  string
	Started   time.Time
	Finished  time.Time
	Systems   int
	Failed    int
	Summaries []database.Summary
	Files     []string
}

// Runner evaluates every configured policy on the systems of a campaign.
type Runner struct {
	cfg      *config.CampaignConfig
	sink     database.Sink
	policies []*policy
	order    priority.Order
	runID    string
	logger   *logrus.Logger

	host       *host.Info
	configFile string

	mu      sync.Mutex
	tallies map[string]map[point]*tally
	failed  int
	done    atomic.Int64
}

type Option func(*Runner)

// WithHost attaches host metadata to the published run.
func WithHost(info *host.Info) Option {
	return func(r *Runner) { r.host = info }
}

func WithConfigFile(path string) Option {
	return func(r *Runner) { r.configFile = path }
}

// NewRunner prepares a campaign. sink may be nil.
func NewRunner(cfg *config.CampaignConfig, sink database.Sink, opts ...Option) (*Runner, error) {
	order, err := priority.Lookup(cfg.Evaluation.Priority)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:     cfg,
		sink:    sink,
		order:   order,
		runID:   xid.New().String(),
		logger:  logging.GetLogger(),
		tallies: make(map[string]map[point]*tally),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, pc := range cfg.GetPoliciesSorted() {
		var estimator interference.Estimator = interference.Budget{}
		if !pc.Budget {
			estimator, err = interference.LookupAll(pc.Estimators)
			if err != nil {
				return nil, fmt.Errorf("policy %s: %w", pc.KeyName, err)
			}
		}
		r.policies = append(r.policies, &policy{
			cfg:      pc,
			analyzer: rta.NewAnalyzer(estimator, rta.WithLogger(logging.GetAnalysisLogger())),
		})
		r.tallies[pc.KeyName] = make(map[point]*tally)
	}
	return r, nil
}

func (r *Runner) RunID() string {
	return r.runID
}

// RecordPath is the record file of one policy and memory share.
func RecordPath(outputDir, policy string, share generator.Interval) string {
	return filepath.Join(outputDir, fmt.Sprintf("%s_mem%d-%d.log", policy, share.Min, share.Max))
}

func (r *Runner) openWriters() ([]string, error) {
	var files []string
	for _, p := range r.policies {
		p.writers = make([]*record.Writer, len(r.cfg.Evaluation.MemoryShares))
		for i, share := range r.cfg.Evaluation.MemoryShares {
			path := RecordPath(r.cfg.Evaluation.OutputDir, p.cfg.KeyName, share)
			w, err := record.Create(path)
			if err != nil {
				r.closeWriters()
				return nil, err
			}
			p.writers[i] = w
			files = append(files, path)
		}
	}
	return files, nil
}

func (r *Runner) closeWriters() error {
	var firstErr error
	for _, p := range r.policies {
		for _, w := range p.writers {
			if w == nil {
				continue
			}
			if err := w.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		p.writers = nil
	}
	return firstErr
}

// Run generates and analyses every system of the campaign. Cancelling ctx
// stops the campaign; what was analysed so far is still flushed.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	e := r.cfg.Evaluation
	checksum, err := config.CampaignChecksum(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to compute campaign checksum: %w", err)
	}

	files, err := r.openWriters()
	if err != nil {
		return nil, err
	}

	total := len(e.MemoryShares) * len(e.Utilisations) * e.Systems
	report := &Report{
		RunID:    r.runID,
		Checksum: checksum,
		Started:  time.Now(),
		Files:    files,
	}

	r.logger.WithFields(logrus.Fields{
		"run_id":   r.runID,
		"name":     e.Name,
		"checksum": checksum,
		"systems":  total,
		"policies": len(r.policies),
		"workers":  e.Workers,
	}).Info("Starting evaluation")

	jobs := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < e.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				r.process(ctx, j, total)
			}
		}()
	}

	n := int64(0)
feed:
	for s := range e.MemoryShares {
		for u := range e.Utilisations {
			for i := 0; i < e.Systems; i++ {
				j := job{point: point{share: s, utilisation: u}, index: i, seed: e.Seed*1_000_003 + n}
				n++
				select {
				case jobs <- j:
				case <-ctx.Done():
					break feed
				}
			}
		}
	}
	close(jobs)
	wg.Wait()

	closeErr := r.closeWriters()
	report.Finished = time.Now()
	report.Systems = int(r.done.Load())
	report.Failed = r.failed
	report.Summaries = r.summaries()

	if err := r.publish(ctx, report); err != nil {
		r.logger.WithError(err).Warn("Failed to publish results")
	}

	r.logger.WithFields(logrus.Fields{
		"run_id":   r.runID,
		"systems":  report.Systems,
		"failed":   report.Failed,
		"duration": report.Finished.Sub(report.Started).Round(time.Millisecond).String(),
	}).Info("Evaluation finished")

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, closeErr
}

func (r *Runner) process(ctx context.Context, j job, total int) {
	if ctx.Err() != nil {
		return
	}
	e := r.cfg.Evaluation
	share := e.MemoryShares[j.share]
	u := e.Utilisations[j.utilisation]

	sys, err := generator.New(j.seed).System(r.cfg.GeneratorParams(u, share))
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"utilisation":  u,
			"memory_share": share.String(),
			"index":        j.index,
		}).WithError(err).Warn("Failed to generate system")
		r.mu.Lock()
		r.failed++
		r.mu.Unlock()
		return
	}

	for _, p := range r.policies {
		local := sys.Clone()
		priority.AssignSystem(local, r.order)
		generator.Rescale(local, p.cfg.Rescale.Divisor(u))

		start := time.Now()
		out := p.analyse(local)
		elapsed := time.Since(start)
		schedulable := schedulability.System(local)

		if err := p.writers[j.share].Write(local); err != nil {
			r.logger.WithField("policy", p.cfg.KeyName).WithError(err).Error("Failed to write record")
		}

		r.mu.Lock()
		t := r.tallies[p.cfg.KeyName][j.point]
		if t == nil {
			t = &tally{}
			r.tallies[p.cfg.KeyName][j.point] = t
		}
		t.systems++
		if out.Analysable {
			t.analysable++
		}
		if schedulable {
			t.schedulable++
		}
		r.mu.Unlock()

		if r.sink != nil {
			err := r.sink.WriteSystem(ctx, &database.SystemResult{
				RunID:          r.runID,
				Policy:         p.cfg.KeyName,
				Utilisation:    u,
				MemoryShareMin: share.Min,
				MemoryShareMax: share.Max,
				Index:          j.index,
				Processors:     local.ProcessorCount(),
				Tasks:          local.TaskCount(),
				Analysable:     out.Analysable,
				Schedulable:    schedulable,
				Calls:          out.InterferenceCalls,
				Elapsed:        elapsed,
				Record:         record.Encode(local),
			})
			if err != nil {
				r.logger.WithField("policy", p.cfg.KeyName).WithError(err).Debug("Failed to write system result")
			}
		}
	}

	if done := r.done.Add(1); done%progressInterval == 0 {
		r.logger.WithFields(logrus.Fields{
			"analysed": done,
			"total":    total,
		}).Info("Number of analysed systems")
	}
}

// summaries lists the tallies in policy, memory share, utilisation order.
func (r *Runner) summaries() []database.Summary {
	e := r.cfg.Evaluation
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []database.Summary
	for _, p := range r.policies {
		for s, share := range e.MemoryShares {
			for u, util := range e.Utilisations {
				t := r.tallies[p.cfg.KeyName][point{share: s, utilisation: u}]
				if t == nil {
					continue
				}
				out = append(out, database.Summary{
					RunID:          r.runID,
					Policy:         p.cfg.KeyName,
					Utilisation:    util,
					MemoryShareMin: share.Min,
					MemoryShareMax: share.Max,
					Systems:        t.systems,
					Analysable:     t.analysable,
					Schedulable:    t.schedulable,
					Ratio:          schedulability.Ratio(t.schedulable, t.systems),
				})
			}
		}
	}
	return out
}

func (r *Runner) publish(ctx context.Context, report *Report) error {
	if r.sink == nil {
		return nil
	}
	// The campaign may have been cancelled; results are still worth keeping.
	ctx = context.WithoutCancel(ctx)

	for i := range report.Summaries {
		if err := r.sink.WriteSummary(ctx, &report.Summaries[i]); err != nil {
			return err
		}
	}

	var names []string
	for _, p := range r.policies {
		names = append(names, p.cfg.KeyName)
	}
	return r.sink.WriteRun(ctx, &database.RunMetadata{
		RunID:       r.runID,
		Name:        r.cfg.Evaluation.Name,
		Description: r.cfg.Evaluation.Description,
		Checksum:    report.Checksum,
		Started:     report.Started,
		Finished:    report.Finished,
		Systems:     report.Systems,
		Policies:    names,
		Host:        r.host,
		ConfigFile:  r.configFile,
	})
}
