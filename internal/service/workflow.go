package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/semaphore"

	"github.com/MimeLyc/doctrans/internal/budget"
	"github.com/MimeLyc/doctrans/internal/checkpoint"
	"github.com/MimeLyc/doctrans/internal/deepl"
	"github.com/MimeLyc/doctrans/internal/jobs"
	"github.com/MimeLyc/doctrans/internal/persistence"
	"github.com/MimeLyc/doctrans/pkg/file"
	"github.com/MimeLyc/doctrans/pkg/log"
)

// Provider is the document translation API.
type Provider interface {
	Upload(ctx context.Context, req deepl.UploadRequest) (deepl.Handle, error)
	Status(ctx context.Context, h deepl.Handle) (deepl.Status, error)
	Download(ctx context.Context, h deepl.Handle) ([]byte, error)
}

// Archiver stores a translated artifact and returns a storage reference.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) (string, error)
}

type HistoryRecorder interface {
	RecordHistory(ctx context.Context, entry persistence.HistoryEntry) (persistence.HistoryEntry, error)
}

// Result is a finished translation kept for download.
type Result struct {
	FileName         string
	OriginalName     string
	SourceLanguage   string
	TargetLanguage   string
	BilledCharacters int
	Data             []byte
	StorageRef       string
	HistoryID        string
	CompletedAt      time.Time
}

// Deps are the collaborators of a Workflow. Archiver and History are optional.
type Deps struct {
	Provider    Provider
	Checkpoints *checkpoint.Store
	Archiver    Archiver
	History     HistoryRecorder
}

type Option func(*Workflow)

func WithPollInterval(d time.Duration) Option {
	return func(w *Workflow) {
		if d > 0 {
			w.poller.interval = d
		}
	}
}

func WithMaxAttemptsCeiling(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.poller.ceiling = n
		}
	}
}

// WithErrorHandler receives the message of every terminal failure.
func WithErrorHandler(fn func(message string)) Option {
	return func(w *Workflow) {
		w.onError = fn
	}
}

func WithCompletionHandler(fn func(Result)) Option {
	return func(w *Workflow) {
		w.onComplete = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

// Workflow is the resumable upload, poll and fetch state machine.
// It owns the current job and is the only writer of the checkpoint.
type Workflow struct {
	ctx         context.Context
	provider    Provider
	checkpoints *checkpoint.Store
	archiver    Archiver
	history     HistoryRecorder
	poller      statusPoller
	onError     func(string)
	onComplete  func(Result)
	now         func() time.Time

	// single polling loop
	pollSlot *semaphore.Weighted

	mu          sync.Mutex
	job         *jobs.TranslationJob
	doc         jobs.Document
	stage       jobs.Stage
	generation  uint64
	lastError   string
	result      *Result
	downloading bool
	polling     bool
	subs        map[int]chan jobs.Snapshot
	nextSub     int
}

// NewWorkflow builds the workflow and resumes a persisted job if one is fresh.
// ctx bounds every background poll; cancelling it stops polling and keeps the checkpoint.
func NewWorkflow(ctx context.Context, deps Deps, opts ...Option) (*Workflow, error) {
	if deps.Provider == nil {
		return nil, NewError(ErrConfig, "translation provider is required")
	}
	if deps.Checkpoints == nil {
		return nil, NewError(ErrConfig, "checkpoint store is required")
	}

	w := &Workflow{
		ctx:         ctx,
		provider:    deps.Provider,
		checkpoints: deps.Checkpoints,
		archiver:    deps.Archiver,
		history:     deps.History,
		poller:      newStatusPoller(budget.DefaultPollInterval, DefaultMaxAttemptsCeiling),
		now:         time.Now,
		pollSlot:    semaphore.NewWeighted(1),
		stage:       jobs.StageUpload,
		subs:        make(map[int]chan jobs.Snapshot),
	}
	for _, opt := range opts {
		opt(w)
	}

	record, ok := w.checkpoints.Load(w.persistCtx())
	if !ok {
		return w, nil
	}

	job := record.Job()
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = w.initialBudget(job.EstimatedCharacters)
	}
	job.StatusMessage = "Resuming translation..."
	w.job = job
	w.doc = record.Document()
	w.stage = jobs.StageProgress
	log.Info("Resuming translation of %s (document %s, attempt %d/%d)",
		job.FileName, job.DocumentID, job.PollAttempts, job.MaxAttempts)

	w.startPolling()
	return w, nil
}

// Start validates doc, uploads it and begins polling. Validation and busy
// errors are returned without touching the current state.
func (w *Workflow) Start(
	ctx context.Context,
	doc *jobs.FreshDocument,
	sourceLang string,
	targetLang string,
) (jobs.Snapshot, error) {
	if doc == nil || doc.Body == nil {
		return jobs.Snapshot{}, NewError(ErrValidation, "no document selected")
	}
	kind, err := budget.Validate(doc.FileName, doc.MimeType, doc.Size)
	if err != nil {
		return jobs.Snapshot{}, NewErrorWithCause(ErrValidation, err.Error(), err)
	}
	if strings.TrimSpace(targetLang) == "" {
		return jobs.Snapshot{}, NewError(ErrValidation, "target language is required")
	}

	w.mu.Lock()
	if w.busyLocked() {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, NewError(ErrBusy, "a translation is already in progress")
	}

	chars := budget.EstimateCharacters(doc.Size, kind)
	job := &jobs.TranslationJob{
		SourceLanguage:      sourceLang,
		TargetLanguage:      targetLang,
		FileName:            doc.FileName,
		FileSizeBytes:       doc.Size,
		EstimatedCharacters: chars,
		MaxAttempts:         w.initialBudget(chars),
		Stage:               jobs.StageUpload,
		StatusMessage:       "Uploading document...",
		StartedAt:           w.now().UTC(),
	}
	w.generation++
	gen := w.generation
	w.job = job
	w.doc = doc
	w.stage = jobs.StageUpload
	w.lastError = ""
	w.result = nil
	w.downloading = false
	w.publishLocked()
	w.mu.Unlock()

	log.Info("Uploading %s (%s, ~%d chars, budget %d attempts)",
		doc.FileName, humanize.IBytes(uint64(doc.Size)), chars, job.MaxAttempts)

	handle, err := w.provider.Upload(ctx, deepl.UploadRequest{
		FileName:   doc.FileName,
		Body:       doc.Body,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})

	w.mu.Lock()
	if gen != w.generation {
		snap := w.snapshotLocked()
		w.mu.Unlock()
		return snap, NewError(ErrCancelled, msgUploadCancelled)
	}
	if err == nil && !handle.Valid() {
		err = errors.New("upload response carried no document handle")
	}
	if err != nil {
		transErr := uploadError(err)
		notify := w.failLocked(transErr)
		snap := w.snapshotLocked()
		w.mu.Unlock()
		notify()
		return snap, transErr
	}

	job.SetHandle(handle.DocumentID, handle.DocumentKey)
	job.Stage = jobs.StageProgress
	job.ProgressPercent = 5
	job.StatusMessage = "Document uploaded, waiting for translation..."
	w.stage = jobs.StageProgress
	if rec, ok := w.checkpoints.Save(w.persistCtx(), checkpoint.FromJob(job), checkpoint.Patch{}); ok {
		job.CheckpointAt = rec.Timestamp
	}
	w.publishLocked()
	snap := w.snapshotLocked()
	w.mu.Unlock()

	log.Info("Uploaded %s as document %s", doc.FileName, handle.DocumentID)
	w.startPolling()
	return snap, nil
}

// Cancel abandons the current job locally. The provider is not contacted.
func (w *Workflow) Cancel(ctx context.Context) jobs.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.job != nil {
		log.Info("Cancelling translation of %s", w.job.FileName)
	}
	w.generation++
	w.checkpoints.Clear(context.WithoutCancel(ctx))
	w.job = nil
	w.doc = nil
	w.stage = jobs.StageUpload
	w.lastError = ""
	w.result = nil
	w.downloading = false
	w.publishLocked()
	return w.snapshotLocked()
}

// Hide forces a checkpoint of the polling job, e.g. before the client goes away.
func (w *Workflow) Hide(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage != jobs.StageProgress || !w.job.HasHandle() || w.downloading {
		return
	}
	if rec, ok := w.checkpoints.Save(context.WithoutCancel(ctx), checkpoint.FromJob(w.job), checkpoint.Patch{}); ok {
		w.job.CheckpointAt = rec.Timestamp
		log.Debug("Checkpointed %s at attempt %d", w.job.DocumentID, w.job.PollAttempts)
	}
}

// Show resumes polling from the current state if the job is mid-progress and
// no loop is running. It reports whether a new loop was started.
func (w *Workflow) Show(_ context.Context) bool {
	if !w.needsPolling() {
		return false
	}
	return w.startPolling()
}

func (w *Workflow) Snapshot() jobs.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Subscribe returns a channel carrying the latest snapshot after every change.
// Slow readers only miss intermediate snapshots. The returned func unsubscribes
// and closes the channel.
func (w *Workflow) Subscribe() (<-chan jobs.Snapshot, func()) {
	ch := make(chan jobs.Snapshot, 1)

	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	ch <- w.snapshotLocked()
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			close(ch)
			w.mu.Unlock()
		})
	}
}

// LastResult returns the most recent finished translation.
func (w *Workflow) LastResult() (Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.result == nil {
		return Result{}, false
	}
	return *w.result, true
}

// Document returns the source of the current job. After a resume it is a
// jobs.ResumedDocument that cannot be uploaded again.
func (w *Workflow) Document() (jobs.Document, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc, w.doc != nil
}

func (w *Workflow) initialBudget(chars int) int {
	return min(budget.MaxAttempts(chars), w.poller.ceiling)
}

func (w *Workflow) busyLocked() bool {
	return w.job != nil && (w.stage == jobs.StageUpload || w.stage == jobs.StageProgress)
}

func (w *Workflow) needsPolling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctx.Err() == nil &&
		w.stage == jobs.StageProgress &&
		w.job.HasHandle() &&
		!w.downloading
}

func (w *Workflow) startPolling() bool {
	if !w.pollSlot.TryAcquire(1) {
		return false
	}
	w.mu.Lock()
	w.polling = true
	w.publishLocked()
	w.mu.Unlock()

	go func() {
		w.pollLoop()

		w.mu.Lock()
		w.polling = false
		w.publishLocked()
		w.mu.Unlock()
		w.pollSlot.Release(1)

		// a job may have been started while this loop was winding down
		if w.needsPolling() {
			w.startPolling()
		}
	}()
	return true
}

func (w *Workflow) pollLoop() {
	for {
		w.mu.Lock()
		if w.ctx.Err() != nil || w.stage != jobs.StageProgress || !w.job.HasHandle() || w.downloading {
			w.mu.Unlock()
			return
		}
		gen := w.generation
		handle := deepl.Handle{DocumentID: w.job.DocumentID, DocumentKey: w.job.DocumentKey}
		w.mu.Unlock()

		status, err := w.provider.Status(w.ctx, handle)

		w.mu.Lock()
		if gen != w.generation {
			// cancelled or replaced while the call was in flight
			w.mu.Unlock()
			continue
		}
		if err != nil {
			if w.ctx.Err() != nil {
				w.mu.Unlock()
				log.Info("Polling of %s stopped, checkpoint kept", handle.DocumentID)
				return
			}
			notify := w.failLocked(NewErrorWithCause(ErrNetwork, msgStatusCheckFailed, err).
				WithContext("document_id", handle.DocumentID))
			w.mu.Unlock()
			notify()
			return
		}

		prev := w.job
		next := prev.Clone()
		tick := w.poller.apply(next, status)
		switch tick.outcome {
		case tickFailed:
			notify := w.failLocked(tick.err)
			w.mu.Unlock()
			notify()
			return
		case tickDone:
			w.job = next
			w.checkpoints.Clear(w.persistCtx())
			w.downloading = true
			w.publishLocked()
			w.mu.Unlock()
			w.finish(gen, handle)
			return
		}

		if rec, ok := w.checkpoints.Save(w.persistCtx(), checkpoint.FromJob(prev), tickPatch(next)); ok {
			next.CheckpointAt = rec.Timestamp
		}
		w.job = next
		w.publishLocked()
		w.mu.Unlock()

		log.Debug("Document %s: %s, attempt %d/%d",
			handle.DocumentID, status.State, next.PollAttempts, next.MaxAttempts)

		if !w.sleep(w.poller.interval) {
			return
		}
	}
}

// finish downloads the artifact exactly once, hands it to the archiver and
// history recorder, then marks the job complete.
func (w *Workflow) finish(gen uint64, handle deepl.Handle) {
	data, err := w.provider.Download(w.ctx, handle)

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		return
	}
	if err != nil {
		if w.ctx.Err() != nil {
			w.mu.Unlock()
			log.Warn("Result download of %s interrupted by shutdown", handle.DocumentID)
			return
		}
		notify := w.failLocked(NewErrorWithCause(ErrResultFetch, msgResultFetchFailed, err).
			WithContext("document_id", handle.DocumentID))
		w.mu.Unlock()
		notify()
		return
	}
	job := w.job.Clone()
	w.mu.Unlock()

	result := Result{
		FileName:         file.WithSuffix(job.FileName, strings.ToUpper(job.TargetLanguage)),
		OriginalName:     job.FileName,
		SourceLanguage:   job.SourceLanguage,
		TargetLanguage:   job.TargetLanguage,
		BilledCharacters: job.BilledCharacters,
		Data:             data,
	}
	w.handOff(&result, job)
	result.CompletedAt = w.now().UTC()

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		return
	}
	job.Stage = jobs.StageComplete
	job.ProgressPercent = 100
	job.StatusMessage = "Translation complete"
	w.job = job
	w.doc = nil
	w.stage = jobs.StageComplete
	w.downloading = false
	w.result = &result
	w.publishLocked()
	onComplete := w.onComplete
	w.mu.Unlock()

	log.Info("Translated %s into %s (%s, %d billed chars)",
		job.FileName, result.FileName, humanize.IBytes(uint64(len(data))), job.BilledCharacters)
	if onComplete != nil {
		onComplete(result)
	}
}

// handOff archives and records the result. Failures are logged only, the
// translation itself already succeeded.
func (w *Workflow) handOff(result *Result, job *jobs.TranslationJob) {
	ctx := w.persistCtx()

	if w.archiver != nil {
		ref, err := w.archiver.Archive(ctx, result.FileName, result.Data)
		if err != nil {
			log.Error("Failed to archive %s: %v", result.FileName, err)
		} else {
			result.StorageRef = ref
		}
	}

	if w.history != nil {
		entry, err := w.history.RecordHistory(ctx, persistence.HistoryEntry{
			SourceLanguage:   job.SourceLanguage,
			TargetLanguage:   job.TargetLanguage,
			FileName:         job.FileName,
			TranslatedName:   result.FileName,
			SizeBytes:        job.FileSizeBytes,
			BilledCharacters: job.BilledCharacters,
			StorageRef:       result.StorageRef,
		})
		if err != nil {
			log.Error("Failed to record history for %s: %v", job.FileName, err)
		} else {
			result.HistoryID = entry.ID
		}
	}
}

// failLocked is the single terminal failure path. The returned func runs the
// error callback and must be called after the mutex is released.
func (w *Workflow) failLocked(err *TransError) func() {
	log.Error("Translation failed: %v", err)

	w.generation++
	w.checkpoints.Clear(w.persistCtx())
	w.job = nil
	w.doc = nil
	w.stage = jobs.StageUpload
	w.downloading = false
	w.lastError = err.Message
	w.publishLocked()

	onError := w.onError
	msg := err.Message
	return func() {
		if onError != nil {
			onError(msg)
		}
	}
}

func (w *Workflow) snapshotLocked() jobs.Snapshot {
	snap := jobs.Snapshot{
		Stage:        w.stage,
		Job:          w.job.Clone(),
		Error:        w.lastError,
		PollInFlight: w.polling,
	}
	if w.job != nil {
		snap.ProgressPercent = w.job.ProgressPercent
		snap.StatusMessage = w.job.StatusMessage
	}
	if w.stage == jobs.StageComplete && w.result != nil {
		snap.ResultReady = true
		snap.ResultFileName = w.result.FileName
	}
	return snap
}

func (w *Workflow) publishLocked() {
	if len(w.subs) == 0 {
		return
	}
	snap := w.snapshotLocked()
	for _, ch := range w.subs {
		// latest wins
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// persistCtx outlives cancellation so checkpoint writes for a finished tick still land.
func (w *Workflow) persistCtx() context.Context {
	return context.WithoutCancel(w.ctx)
}

func (w *Workflow) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-w.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
