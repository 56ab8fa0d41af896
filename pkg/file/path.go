package file

import (
	"path/filepath"
	"strings"
)

// WithSuffix inserts "_suffix" between the base name and the extension.
// Only the final path element is returned.
//
//	WithSuffix("report.final.pdf", "DE") -> "report.final_DE.pdf"
func WithSuffix(name, suffix string) string {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	if suffix == "" {
		return name
	}
	base, ext := splitExt(name)
	if base == "" {
		base = "document"
	}
	return base + "_" + suffix + ext
}

// SanitizeName strips path separators and control characters from a user supplied file name.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
}

func splitExt(name string) (string, string) {
	lastDot := strings.LastIndex(name, ".")
	if lastDot <= 0 {
		return name, ""
	}
	return name[:lastDot], name[lastDot:]
}
