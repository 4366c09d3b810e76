package evaluation

import (
	"fmt"
	"runtime"
	"time"

	"prem-rta/internal/logging"

	"github.com/elastic/go-perf"
)

// InstructionCounter counts retired user-space instructions of the calling
// thread. Without perf_event access it degrades to wall time only.
type InstructionCounter struct {
	event *perf.Event
}

// NewInstructionCounter opens a hardware counter on the calling thread. The
// caller must stay locked to its OS thread while the counter is in use.
func NewInstructionCounter() (*InstructionCounter, error) {
	attr := &perf.Attr{}
	perf.Instructions.Configure(attr)
	attr.Options.ExcludeKernel = true
	attr.Options.ExcludeHypervisor = true
	attr.Options.Disabled = true
	attr.CountFormat.Enabled = true
	attr.CountFormat.Running = true

	event, err := perf.Open(attr, perf.CallingThread, perf.AnyCPU, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open instruction counter: %w", err)
	}
	return &InstructionCounter{event: event}, nil
}

// Available reports whether instruction counts are measured.
func (c *InstructionCounter) Available() bool {
	return c != nil && c.event != nil
}

// Measure runs f and returns its wall time and instruction count. The
// count is zero when the counter is unavailable.
func (c *InstructionCounter) Measure(f func()) (time.Duration, uint64) {
	if !c.Available() {
		start := time.Now()
		f()
		return time.Since(start), 0
	}

	var elapsed time.Duration
	count, err := c.event.Measure(func() {
		start := time.Now()
		f()
		elapsed = time.Since(start)
	})
	if err != nil {
		logging.GetLogger().WithError(err).Debug("Failed to read instruction counter")
		return elapsed, 0
	}

	value := count.Value
	// Correct for multiplexing.
	if count.Running > 0 && count.Enabled > 0 && count.Running != count.Enabled {
		value = uint64(float64(value) * float64(count.Enabled) / float64(count.Running))
	}
	return elapsed, value
}

func (c *InstructionCounter) Close() {
	if c != nil && c.event != nil {
		c.event.Close()
		c.event = nil
	}
}

// withCounter locks the goroutine to its thread and hands f a counter,
// possibly unavailable.
func withCounter(useCounters bool, f func(*InstructionCounter)) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var counter *InstructionCounter
	if useCounters {
		c, err := NewInstructionCounter()
		if err != nil {
			logging.GetLogger().WithError(err).Warn("Instruction counts unavailable, measuring wall time only")
		} else {
			counter = c
			defer counter.Close()
		}
	}
	f(counter)
}
