package budget

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// MaxFileBytes is the largest document accepted for upload (2 GiB).
const MaxFileBytes int64 = 2 << 30

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrEmptyFile       = errors.New("document is empty")
	ErrFileTooLarge    = errors.New("document is too large")
)

// Validate rejects documents that must never reach the provider.
func Validate(fileName, mimeType string, sizeBytes int64) (DocumentKind, error) {
	kind := DetectKind(fileName, mimeType)
	if kind == KindUnknown {
		return kind, fmt.Errorf("%w: %q (accepted: PDF, DOCX, DOC)", ErrUnsupportedType, fileName)
	}
	if sizeBytes <= 0 {
		return kind, ErrEmptyFile
	}
	if sizeBytes > MaxFileBytes {
		return kind, fmt.Errorf("%w: %s exceeds %s",
			ErrFileTooLarge, humanize.IBytes(uint64(sizeBytes)), humanize.IBytes(uint64(MaxFileBytes)))
	}
	return kind, nil
}
