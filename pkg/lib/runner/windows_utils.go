//go:build windows

package runner

import (
	"syscall"
)

const createNewProcessGroup = 0x00000200

func GetSysProcAttr(id string, limits Limits) (*SysProcAttr, error) {
	return &SysProcAttr{
		Raw: &syscall.SysProcAttr{CreationFlags: createNewProcessGroup},
	}, nil
}

func KillCgroup(id string) (bool, error) {
	return false, nil
}

func CleanupCgroup(id string) error {
	return nil
}
