package file

import (
	"os"
	"path/filepath"
	"time"
)

// FindModifiedBefore walks dir and returns the regular files last modified before cutoff.
func FindModifiedBefore(dir string, cutoff time.Time) ([]string, error) {
	var ret []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() && info.ModTime().Before(cutoff) {
			ret = append(ret, path)
		}
		return nil
	})

	return ret, err
}
