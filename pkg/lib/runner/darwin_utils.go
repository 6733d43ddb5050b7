//go:build unix && !linux

package runner

import "syscall"

// GetSysProcAttr places the companion in its own process group so Stop can
// signal it together with anything it spawned. There is no parent-death
// signal here; the companion watches its parent pid instead. Limits are
// ignored.
func GetSysProcAttr(_ string, _ Limits) (*SysProcAttr, error) {
	return &SysProcAttr{Raw: &syscall.SysProcAttr{Setpgid: true}}, nil
}

// KillCgroup always reports false: there are no cgroups, so Stop falls back
// to signalling the process group.
func KillCgroup(string) (bool, error) { return false, nil }

func CleanupCgroup(string) error { return nil }
