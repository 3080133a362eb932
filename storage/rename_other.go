//go:build !linux && !windows

package storage

import (
	"errors"
	"fmt"
	"os"
)

// renameNoReplace links dst to src, which fails if dst exists, then removes
// src. Filesystems without hard links fall back to a plain rename.
func renameNoReplace(src, dst string) error {
	if err := os.Link(src, dst); err != nil {
		if errors.Is(err, os.ErrExist) || isEXDEV(err) {
			return err
		}
		return errNoReplaceUnsupported
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("failed to remove source after link: %w", err)
	}
	return nil
}
