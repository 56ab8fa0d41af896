package budget

import (
	"mime"
	"path/filepath"
	"strings"
)

// DocumentKind is a document format the provider accepts.
type DocumentKind string

const (
	KindPDF     DocumentKind = "pdf"
	KindDOCX    DocumentKind = "docx"
	KindDOC     DocumentKind = "doc"
	KindUnknown DocumentKind = ""
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDOC  = "application/msword"
)

// characters per KiB of file size
var densityPerKiB = map[DocumentKind]int64{
	KindPDF:  100,
	KindDOCX: 150,
	KindDOC:  120,
}

var kindByExt = map[string]DocumentKind{
	".pdf":  KindPDF,
	".docx": KindDOCX,
	".doc":  KindDOC,
}

var kindByMime = map[string]DocumentKind{
	MimePDF:  KindPDF,
	MimeDOCX: KindDOCX,
	MimeDOC:  KindDOC,
}

// DetectKind resolves the document kind from the file extension, then from the MIME type.
// Browsers often send application/octet-stream, so the extension wins.
func DetectKind(fileName, mimeType string) DocumentKind {
	ext := strings.ToLower(filepath.Ext(fileName))
	if kind, ok := kindByExt[ext]; ok {
		return kind
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}
	if kind, ok := kindByMime[mediaType]; ok {
		return kind
	}
	return KindUnknown
}

// MimeType returns the canonical content type for kind.
func (k DocumentKind) MimeType() string {
	switch k {
	case KindPDF:
		return MimePDF
	case KindDOCX:
		return MimeDOCX
	case KindDOC:
		return MimeDOC
	default:
		return "application/octet-stream"
	}
}

// EstimateCharacters is a rough guess of the translatable characters in a
// document of sizeBytes. Unknown kinds use the PDF density.
func EstimateCharacters(sizeBytes int64, kind DocumentKind) int {
	if sizeBytes <= 0 {
		return 0
	}
	density, ok := densityPerKiB[kind]
	if !ok {
		density = densityPerKiB[KindPDF]
	}
	return int(sizeBytes * density / 1024)
}
