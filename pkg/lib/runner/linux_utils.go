//go:build linux

package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

const (
	cgroupRoot = "/sys/fs/cgroup/daily-motivation"
)

var (
	cgroupInitOnce sync.Once
	cgroupInitErr  error
)

// initCgroups enables the cpu and memory controllers below cgroupRoot so
// per-companion groups can carry limits. The work runs once per process.
func initCgroups() error {
	cgroupInitOnce.Do(func() {
		cgroupInitErr = enableControllers(cgroupRoot, "cpu", "memory")
	})
	return cgroupInitErr
}

func enableControllers(root string, wanted ...string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}

	available, err := controllerSet(filepath.Join(root, "cgroup.controllers"))
	if err != nil {
		return err
	}
	enabled, err := controllerSet(filepath.Join(root, "cgroup.subtree_control"))
	if err != nil {
		return err
	}

	var add []string
	for _, c := range wanted {
		if available[c] && !enabled[c] {
			add = append(add, "+"+c)
		}
	}
	if len(add) == 0 {
		return nil
	}
	return writeString(filepath.Join(root, "cgroup.subtree_control"), strings.Join(add, " "))
}

// controllerSet parses a whitespace separated controller list. Entries read
// back from subtree_control may carry a leading "+".
func controllerSet(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, f := range strings.Fields(string(data)) {
		set[strings.TrimPrefix(f, "+")] = true
	}
	return set, nil
}

// GetSysProcAttr puts the child in its own process group and asks the kernel
// to send it SIGTERM when the spawning thread dies. As root, and when limits
// are configured, the child is also placed in a per-process cgroup carrying
// them.
func GetSysProcAttr(id string, limits Limits) (*SysProcAttr, error) {
	raw := &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
	if os.Geteuid() != 0 || limits == (Limits{}) {
		return &SysProcAttr{Raw: raw}, nil
	}

	if err := initCgroups(); err != nil {
		logger.Debug().Err(err).Msg("cgroup root unavailable, starting without limits")
		return &SysProcAttr{Raw: raw}, nil
	}

	cgPath, err := setupCgroupFor(id, limits)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to apply cgroup limits, starting without them")
		_ = CleanupCgroup(id)
		return &SysProcAttr{Raw: raw}, nil
	}

	cGroupFile, err := os.Open(*cgPath)
	if err != nil {
		return nil, err
	}

	raw.UseCgroupFD = true
	raw.CgroupFD = int(cGroupFile.Fd())
	return &SysProcAttr{
		File: cGroupFile,
		Raw:  raw,
	}, nil
}

// KillCgroup kills every process in the cgroup of id. It reports false when
// the process has no cgroup.
func KillCgroup(id string) (bool, error) {
	cgDir := filepath.Join(cgroupRoot, id)
	err := writeString(filepath.Join(cgDir, "cgroup.kill"), "1")

	return err == nil, err
}

func CleanupCgroup(id string) error {
	if os.Geteuid() != 0 {
		return nil
	}
	cgDir := filepath.Join(cgroupRoot, id)
	if err := os.Remove(cgDir); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// setupCgroupFor creates the group for one companion and writes the limits
// whose controller is enabled on the root.
func setupCgroupFor(id string, limits Limits) (*string, error) {
	dir := filepath.Join(cgroupRoot, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	enabled, err := controllerSet(filepath.Join(cgroupRoot, "cgroup.subtree_control"))
	if err != nil {
		return nil, err
	}
	if limits.CPUWeight > 0 && enabled["cpu"] {
		if err := writeString(filepath.Join(dir, "cpu.weight"), fmt.Sprint(limits.CPUWeight)); err != nil {
			return nil, err
		}
	}
	if limits.MemoryHighBytes > 0 && enabled["memory"] {
		if err := writeString(filepath.Join(dir, "memory.high"), fmt.Sprint(limits.MemoryHighBytes)); err != nil {
			return nil, err
		}
	}
	return &dir, nil
}

func writeString(path, val string) error {
	return os.WriteFile(path, []byte(val), 0644)
}
