package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/doctrans/pkg/file"
	"github.com/MimeLyc/doctrans/pkg/log"
)

// LocalArchiver keeps translated documents under a base directory.
type LocalArchiver struct {
	baseDir string
	now     func() time.Time
}

func NewLocalArchiver(baseDir string) (*LocalArchiver, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure archive dir: %w", err)
	}
	return &LocalArchiver{baseDir: baseDir, now: time.Now}, nil
}

// Archive writes data and returns the absolute file path as the storage reference.
func (a *LocalArchiver) Archive(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(a.baseDir, filepath.FromSlash(objectKey(a.now(), name)))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create archive folder: %w", err)
	}

	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize archive file: %w", err)
	}

	abs, err := filepath.Abs(dst)
	if err != nil {
		return dst, nil
	}
	return abs, nil
}

// Prune deletes archived files older than cutoff and returns how many were removed.
func (a *LocalArchiver) Prune(_ context.Context, cutoff time.Time) (int, error) {
	old, err := file.FindModifiedBefore(a.baseDir, cutoff)
	if err != nil {
		return 0, fmt.Errorf("scan archive: %w", err)
	}
	removed := 0
	for _, p := range old {
		if err := os.Remove(p); err != nil {
			log.Warn("Failed to prune archived file %s: %v", p, err)
			continue
		}
		removed++
	}
	return removed, nil
}
