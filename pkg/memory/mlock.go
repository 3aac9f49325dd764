//go:build linux

package memory

import "syscall"

// MlockAll pins the process address space into RAM so detection paths never
// take a page fault. Requires CAP_IPC_LOCK or a generous RLIMIT_MEMLOCK.
func MlockAll() error {
	return syscall.Mlockall(syscall.MCL_CURRENT | syscall.MCL_FUTURE)
}

// MunlockAll releases the pin taken by MlockAll.
func MunlockAll() error {
	return syscall.Munlockall()
}
