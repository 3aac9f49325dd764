//go:build linux

package sys

import (
	"golang.org/x/sys/unix"
)

// PinToCore binds the calling thread to a single CPU core. The engine loop
// calls this (after runtime.LockOSThread) when runtime.engine_cpu is set, so
// the hot path is not migrated between cores by the scheduler.
func PinToCore(core int) error {
	if core < 0 {
		return nil
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(core)

	return unix.SchedSetaffinity(0, &set)
}
