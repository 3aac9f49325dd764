//go:build !linux

package memory

import "errors"

var errUnsupported = errors.New("memory locking not supported on this platform")

func MlockAll() error {
	return errUnsupported
}

func MunlockAll() error {
	return nil
}
