package checkpoint

import (
	"context"
	"time"

	"github.com/MimeLyc/doctrans/internal/jobs"
)

const (
	// DefaultKey is where the single in-flight checkpoint lives.
	DefaultKey = "doctrans.checkpoint"
	// DefaultStaleAfter is how long the provider is assumed to keep a job around.
	DefaultStaleAfter = 2 * time.Hour
)

// KV is the durable key-value medium behind the store.
// Delete of a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Record is the persisted form of an in-flight job. The document bytes are never stored.
type Record struct {
	DocumentID          string     `json:"document_id"`
	DocumentKey         string     `json:"document_key"`
	SourceLanguage      string     `json:"source_language"`
	TargetLanguage      string     `json:"target_language"`
	FileName            string     `json:"file_name"`
	FileSizeBytes       int64      `json:"file_size_bytes"`
	EstimatedCharacters int        `json:"estimated_characters"`
	MaxAttempts         int        `json:"max_attempts"`
	PollAttempts        int        `json:"poll_attempts"`
	BilledCharacters    int        `json:"billed_characters"`
	Stage               jobs.Stage `json:"stage"`
	ProgressPercent     int        `json:"progress_percent"`
	StatusMessage       string     `json:"status_message"`
	StartedAt           time.Time  `json:"started_at"`
	Timestamp           time.Time  `json:"checkpoint_timestamp"`
}

// Patch lists the fields a tick changed. Nil fields keep the current value.
type Patch struct {
	MaxAttempts      *int
	PollAttempts     *int
	BilledCharacters *int
	Stage            *jobs.Stage
	ProgressPercent  *int
	StatusMessage    *string
}

func (p Patch) applyTo(r *Record) {
	if p.MaxAttempts != nil {
		r.MaxAttempts = *p.MaxAttempts
	}
	if p.PollAttempts != nil {
		r.PollAttempts = *p.PollAttempts
	}
	if p.BilledCharacters != nil {
		r.BilledCharacters = *p.BilledCharacters
	}
	if p.Stage != nil {
		r.Stage = *p.Stage
	}
	if p.ProgressPercent != nil {
		r.ProgressPercent = *p.ProgressPercent
	}
	if p.StatusMessage != nil {
		r.StatusMessage = *p.StatusMessage
	}
}

// FromJob copies the persisted fields of job.
func FromJob(job *jobs.TranslationJob) Record {
	if job == nil {
		return Record{}
	}
	return Record{
		DocumentID:          job.DocumentID,
		DocumentKey:         job.DocumentKey,
		SourceLanguage:      job.SourceLanguage,
		TargetLanguage:      job.TargetLanguage,
		FileName:            job.FileName,
		FileSizeBytes:       job.FileSizeBytes,
		EstimatedCharacters: job.EstimatedCharacters,
		MaxAttempts:         job.MaxAttempts,
		PollAttempts:        job.PollAttempts,
		BilledCharacters:    job.BilledCharacters,
		Stage:               job.Stage,
		ProgressPercent:     job.ProgressPercent,
		StatusMessage:       job.StatusMessage,
		StartedAt:           job.StartedAt,
		Timestamp:           job.CheckpointAt,
	}
}

// Job rebuilds a resumed job from the record.
func (r Record) Job() *jobs.TranslationJob {
	return &jobs.TranslationJob{
		DocumentID:          r.DocumentID,
		DocumentKey:         r.DocumentKey,
		SourceLanguage:      r.SourceLanguage,
		TargetLanguage:      r.TargetLanguage,
		FileName:            r.FileName,
		FileSizeBytes:       r.FileSizeBytes,
		EstimatedCharacters: r.EstimatedCharacters,
		MaxAttempts:         r.MaxAttempts,
		PollAttempts:        r.PollAttempts,
		BilledCharacters:    r.BilledCharacters,
		Stage:               jobs.StageProgress,
		ProgressPercent:     r.ProgressPercent,
		StatusMessage:       r.StatusMessage,
		Resumed:             true,
		StartedAt:           r.StartedAt,
		CheckpointAt:        r.Timestamp,
	}
}

// Document is the metadata-only stand-in for the original file.
func (r Record) Document() jobs.ResumedDocument {
	return jobs.ResumedDocument{FileName: r.FileName, Size: r.FileSizeBytes}
}
