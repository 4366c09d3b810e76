// Package host describes the machine a campaign ran on, so that estimator
// timings stored with the results can be compared across hosts.
package host

import (
	"runtime"
	"sync"

	"prem-rta/internal/logging"

	"github.com/intel/goresctrl/pkg/rdt"
	"github.com/shirou/gopsutil/cpu"
	gohost "github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
	"github.com/sirupsen/logrus"
)

type Info struct {
	Hostname      string  `json:"hostname"`
	OSInfo        string  `json:"os_info"`
	KernelVersion string  `json:"kernel_version"`
	CPUVendor     string  `json:"cpu_vendor"`
	CPUModel      string  `json:"cpu_model"`
	PhysicalCores int     `json:"physical_cores"`
	LogicalCores  int     `json:"logical_cores"`
	MemoryBytes   uint64  `json:"memory_bytes"`
	RDT           RDTInfo `json:"rdt"`
}

// RDTInfo tells whether the host could enforce memory bandwidth budgets
// through resctrl.
type RDTInfo struct {
	Supported           bool     `json:"supported"`
	MonitoringSupported bool     `json:"monitoring_supported"`
	Classes             []string `json:"classes,omitempty"`
}

var (
	info     *Info
	infoOnce sync.Once
)

// Collect returns the host description, gathered on first use. Missing
// pieces are reported as "unknown" rather than failing.
func Collect() *Info {
	infoOnce.Do(func() {
		info = collect()
	})
	return info
}

func collect() *Info {
	logger := logging.GetLogger()
	i := &Info{
		Hostname:      "unknown",
		OSInfo:        runtime.GOOS + "/" + runtime.GOARCH,
		KernelVersion: "unknown",
		CPUVendor:     "unknown",
		CPUModel:      "unknown",
		LogicalCores:  runtime.NumCPU(),
	}

	if h, err := gohost.Info(); err == nil {
		if h.Hostname != "" {
			i.Hostname = h.Hostname
		}
		if h.Platform != "" {
			i.OSInfo = h.Platform + " " + h.PlatformVersion + " (" + i.OSInfo + ")"
		}
		if h.KernelVersion != "" {
			i.KernelVersion = h.KernelVersion
		}
	} else {
		logger.WithError(err).Debug("Failed to read host info")
	}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		if cpus[0].VendorID != "" {
			i.CPUVendor = cpus[0].VendorID
		}
		if cpus[0].ModelName != "" {
			i.CPUModel = cpus[0].ModelName
		}
	} else if err != nil {
		logger.WithError(err).Debug("Failed to read CPU info")
	}
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		i.PhysicalCores = n
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		i.LogicalCores = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		i.MemoryBytes = vm.Total
	}

	i.RDT = collectRDT(logger)

	logger.WithFields(logrus.Fields{
		"cpu_model":     i.CPUModel,
		"logical_cores": i.LogicalCores,
		"rdt_supported": i.RDT.Supported,
	}).Debug("Host information collected")
	return i
}

func collectRDT(logger *logrus.Logger) RDTInfo {
	var r RDTInfo
	if err := rdt.Initialize(""); err != nil {
		logger.WithError(err).Debug("RDT not available")
		return r
	}
	r.Supported = true
	r.MonitoringSupported = rdt.MonSupported()
	for _, class := range rdt.GetClasses() {
		r.Classes = append(r.Classes, class.Name())
	}
	return r
}
