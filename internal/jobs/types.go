package jobs

import (
	"io"
	"time"
)

// Stage is the externally visible state of the translation workflow.
type Stage string

const (
	StageUpload   Stage = "upload"
	StageProgress Stage = "progress"
	StageComplete Stage = "complete"
)

// Document is the source of a job. It is either a *FreshDocument carrying
// the real bytes, or a ResumedDocument rebuilt from a checkpoint.
type Document interface {
	Name() string
	SizeBytes() int64
	document()
}

// FreshDocument is a user-selected file. Only fresh documents can be uploaded.
type FreshDocument struct {
	FileName string
	MimeType string
	Size     int64
	Body     io.Reader
}

func (d *FreshDocument) Name() string     { return d.FileName }
func (d *FreshDocument) SizeBytes() int64 { return d.Size }
func (*FreshDocument) document()          {}

// ResumedDocument stands in for a file whose bytes were never persisted.
type ResumedDocument struct {
	FileName string
	Size     int64
}

func (d ResumedDocument) Name() string     { return d.FileName }
func (d ResumedDocument) SizeBytes() int64 { return d.Size }
func (ResumedDocument) document()          {}

// TranslationJob is the in-flight job owned by the workflow.
type TranslationJob struct {
	DocumentID  string `json:"document_id"`
	DocumentKey string `json:"document_key"`

	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`

	FileName      string `json:"file_name"`
	FileSizeBytes int64  `json:"file_size_bytes"`

	EstimatedCharacters int `json:"estimated_characters"`
	MaxAttempts         int `json:"max_attempts"`
	PollAttempts        int `json:"poll_attempts"`
	BilledCharacters    int `json:"billed_characters,omitempty"`

	Stage           Stage  `json:"stage"`
	ProgressPercent int    `json:"progress_percent"`
	StatusMessage   string `json:"status_message"`

	Resumed      bool      `json:"resumed"`
	StartedAt    time.Time `json:"started_at"`
	CheckpointAt time.Time `json:"checkpoint_at,omitzero"`
}

// HasHandle reports whether the provider handle has been assigned.
func (j *TranslationJob) HasHandle() bool {
	return j != nil && j.DocumentID != "" && j.DocumentKey != ""
}

// SetHandle assigns both handle values at once.
func (j *TranslationJob) SetHandle(documentID, documentKey string) {
	j.DocumentID, j.DocumentKey = documentID, documentKey
}

func (j *TranslationJob) Clone() *TranslationJob {
	if j == nil {
		return nil
	}
	cp := *j
	return &cp
}

// Snapshot is the read-only view handed to the UI.
type Snapshot struct {
	Stage           Stage           `json:"stage"`
	Job             *TranslationJob `json:"job,omitempty"`
	ProgressPercent int             `json:"progress_percent"`
	StatusMessage   string          `json:"status_message"`
	Error           string          `json:"error,omitempty"`
	ResultReady     bool            `json:"result_ready"`
	ResultFileName  string          `json:"result_file_name,omitempty"`
	PollInFlight    bool            `json:"poll_in_flight"`
}
