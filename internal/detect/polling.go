// Package detect provides interchangeable foreground-app detectors: a
// polling implementation that inspects the process table, and an event
// implementation fed by window-focus change notifications.
package detect

import (
	"os"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/Prashants23/Boundly/internal/domain"
)

// PollingDetector approximates the foreground app by scanning the process
// table and picking the current user's most active candidate. No window
// system integration is required, which makes this the universal fallback.
type PollingDetector struct {
	hostPackage string
	hostPID     int32
	uid         int32
}

// NewPollingDetector creates a polling detector. hostPackage is excluded
// from every report, as is the daemon's own process tree.
func NewPollingDetector(hostPackage string) *PollingDetector {
	return &PollingDetector{
		hostPackage: hostPackage,
		hostPID:     int32(os.Getpid()),
		uid:         int32(os.Getuid()),
	}
}

type candidate struct {
	pkg   string
	name  string
	score float64
}

// Current returns the best foreground candidate, or nil when no process
// qualifies. nil with a nil error means "unknown", not a failure.
func (d *PollingDetector) Current() (*domain.ForegroundApp, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	for _, p := range procs {
		if p.Pid == d.hostPID {
			continue
		}

		name, err := p.Name()
		if err != nil || name == "" {
			continue // Process may have exited
		}

		if !d.ownedByUser(p) {
			continue
		}

		pkg := PackageFor(name)
		if pkg == d.hostPackage {
			continue
		}

		cpu, err := p.CPUPercent()
		if err != nil {
			continue
		}

		candidates = append(candidates, candidate{pkg: pkg, name: name, score: cpu})
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].pkg < candidates[j].pkg
	})

	best := candidates[0]
	return &domain.ForegroundApp{
		PackageName: best.pkg,
		AppName:     best.name,
	}, nil
}

// ownedByUser reports whether the process belongs to the detector's user.
func (d *PollingDetector) ownedByUser(p *process.Process) bool {
	uids, err := p.Uids()
	if err != nil || len(uids) == 0 {
		return false
	}
	return uids[0] == d.uid
}

// IsAvailable reports whether the process table can be read.
func (d *PollingDetector) IsAvailable() bool {
	_, err := process.Processes()
	return err == nil
}

// Name identifies this detector in logs and status output.
func (d *PollingDetector) Name() string {
	return "polling"
}

// Close is a no-op; the detector holds no resources.
func (d *PollingDetector) Close() error {
	return nil
}

// PackageFor normalizes a process name into a package identifier. Reverse-DNS
// names pass through unchanged; bare process names are lowercased.
func PackageFor(processName string) string {
	if strings.Contains(processName, ".") {
		return processName
	}
	return strings.ToLower(processName)
}

// Ensure PollingDetector implements domain.ForegroundDetector.
var _ domain.ForegroundDetector = (*PollingDetector)(nil)
