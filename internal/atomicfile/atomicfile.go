// Package atomicfile replaces files so that readers see either the old or the new
// content, never a partial write.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TempSuffix ends the name of every in-flight temporary file.
const TempSuffix = ".tmp"

// Write writes data to a temporary file next to target and renames it into place.
func Write(target string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*"+TempSuffix)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// RemoveStale deletes temporary files matching prefix in dir that were last modified
// before the cutoff. It returns how many were removed.
func RemoveStale(dir, prefix string, before time.Time) int {
	matches, _ := filepath.Glob(filepath.Join(dir, prefix+"*"+TempSuffix))
	removed := 0
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.ModTime().Before(before) {
			continue
		}
		if os.Remove(m) == nil {
			removed++
		}
	}
	return removed
}
