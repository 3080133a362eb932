//go:build windows

package storage

import (
	"os"

	"golang.org/x/sys/windows"
)

// renameNoReplace moves src to dst. Without MOVEFILE_REPLACE_EXISTING an
// existing dst fails the call, and without MOVEFILE_COPY_ALLOWED a move to
// another volume fails with ERROR_NOT_SAME_DEVICE.
func renameNoReplace(src, dst string) error {
	from, err := windows.UTF16PtrFromString(src)
	if err != nil {
		return err
	}
	to, err := windows.UTF16PtrFromString(dst)
	if err != nil {
		return err
	}
	if err := windows.MoveFileEx(from, to, 0); err != nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: err}
	}
	return nil
}
