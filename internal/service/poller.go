package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/MimeLyc/doctrans/internal/budget"
	"github.com/MimeLyc/doctrans/internal/checkpoint"
	"github.com/MimeLyc/doctrans/internal/deepl"
	"github.com/MimeLyc/doctrans/internal/jobs"
)

const (
	queuedProgress          = 15
	translatingBaseProgress = 25
	translatingStepProgress = 2
	translatingMaxProgress  = 70

	// extra attempts granted on top of the provider's remaining-time hint
	extensionMargin = 30

	// DefaultMaxAttemptsCeiling bounds budget growth: 2h at the default interval,
	// which is also how long a checkpoint stays resumable.
	DefaultMaxAttemptsCeiling = 3600
)

type tickOutcome int

const (
	tickContinue tickOutcome = iota
	tickDone
	tickFailed
)

type tickResult struct {
	outcome tickOutcome
	err     *TransError
}

// statusPoller interprets provider status responses. It holds no state of its own;
// the loop that drives it lives in the workflow.
type statusPoller struct {
	interval time.Duration
	ceiling  int
}

func newStatusPoller(interval time.Duration, ceiling int) statusPoller {
	if interval <= 0 {
		interval = budget.DefaultPollInterval
	}
	if ceiling <= 0 {
		ceiling = DefaultMaxAttemptsCeiling
	}
	return statusPoller{interval: interval, ceiling: ceiling}
}

// apply folds one status response into job and decides whether polling goes on.
func (p statusPoller) apply(job *jobs.TranslationJob, status deepl.Status) tickResult {
	job.PollAttempts++
	if status.BilledCharacters > 0 {
		job.BilledCharacters = status.BilledCharacters
	}

	switch status.State {
	case deepl.StateDone:
		job.ProgressPercent = 100
		job.StatusMessage = "Translation finished, downloading result..."
		return tickResult{outcome: tickDone}
	case deepl.StateError:
		msg := strings.TrimSpace(status.ErrorMessage)
		if msg == "" {
			msg = msgProviderFailed
		}
		return tickResult{
			outcome: tickFailed,
			err:     NewError(ErrProvider, msg).WithContext("document_id", job.DocumentID),
		}
	case deepl.StateQueued:
		job.ProgressPercent = queuedProgress
		job.StatusMessage = "Document queued for translation..."
	default:
		// translating, or a state this client does not know yet
		job.ProgressPercent = translatingProgress(job.PollAttempts)
		job.StatusMessage = "Translating document..."
		if status.SecondsRemaining != nil && *status.SecondsRemaining > 0 {
			secs := *status.SecondsRemaining
			job.MaxAttempts = p.extendBudget(job.MaxAttempts, job.PollAttempts, secs)
			job.StatusMessage = "Translating document... " + remainingText(secs)
		}
	}

	if job.PollAttempts >= job.MaxAttempts {
		return tickResult{
			outcome: tickFailed,
			err: NewError(ErrTimeout, msgTimeout).
				WithContext("document_id", job.DocumentID).
				WithContext("attempts", job.PollAttempts),
		}
	}
	return tickResult{outcome: tickContinue}
}

// extendBudget raises the attempt budget so a slow but progressing job is not
// timed out locally. The budget never shrinks and never exceeds the ceiling.
func (p statusPoller) extendBudget(current, attempts, secondsRemaining int) int {
	intervalMs := p.interval.Milliseconds()
	if intervalMs <= 0 {
		intervalMs = 1
	}
	needed := int((int64(secondsRemaining)*1000 + intervalMs - 1) / intervalMs)
	wanted := min(attempts+needed+extensionMargin, p.ceiling)
	return max(current, wanted)
}

func translatingProgress(attempts int) int {
	return min(translatingBaseProgress+attempts*translatingStepProgress, translatingMaxProgress)
}

func remainingText(secs int) string {
	if secs < 60 {
		return "(less than a minute remaining)"
	}
	minutes := (secs + 59) / 60
	if minutes == 1 {
		return "(about 1 minute remaining)"
	}
	return fmt.Sprintf("(about %d minutes remaining)", minutes)
}

// tickPatch lists what a status tick may have changed.
func tickPatch(next *jobs.TranslationJob) checkpoint.Patch {
	return checkpoint.Patch{
		MaxAttempts:      &next.MaxAttempts,
		PollAttempts:     &next.PollAttempts,
		BilledCharacters: &next.BilledCharacters,
		ProgressPercent:  &next.ProgressPercent,
		StatusMessage:    &next.StatusMessage,
	}
}
