// Package infra implements the adapters behind the domain ports: adb
// transport, device queries, encrypted history and host processes.
package infra

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager for host processes
// using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// FindByName returns PIDs of processes whose name equals or contains
// pattern, case-insensitively.
func (pm *ProcessManagerImpl) FindByName(pattern string) ([]int, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var found []int
	patternLower := strings.ToLower(pattern)
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // Process may have exited
		}
		if strings.Contains(strings.ToLower(name), patternLower) {
			found = append(found, int(p.Pid))
		}
	}
	return found, nil
}

// IsRunning checks if a PID exists.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

// HostAdbServer implements domain.AdbServerMonitor by looking for adb
// processes on this host.
type HostAdbServer struct {
	pm domain.ProcessManager
}

// NewHostAdbServer creates the monitor on top of pm.
func NewHostAdbServer(pm domain.ProcessManager) *HostAdbServer {
	return &HostAdbServer{pm: pm}
}

// ServerPIDs returns the PIDs of adb server processes. Commands start a
// server on demand, so an empty result is not an error.
func (s *HostAdbServer) ServerPIDs() ([]int, error) {
	pids, err := s.pm.FindByName("adb")
	if err != nil {
		return nil, err
	}
	running := pids[:0]
	for _, pid := range pids {
		if s.pm.IsRunning(pid) {
			running = append(running, pid)
		}
	}
	return running, nil
}

// Ensure implementations satisfy the domain ports.
var (
	_ domain.ProcessManager   = (*ProcessManagerImpl)(nil)
	_ domain.AdbServerMonitor = (*HostAdbServer)(nil)
)
