package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/doctrans/internal/deepl"
	"github.com/MimeLyc/doctrans/internal/jobs"
)

func intPtr(v int) *int { return &v }

func newPollingJob(maxAttempts int) *jobs.TranslationJob {
	return &jobs.TranslationJob{
		DocumentID:  "doc-1",
		DocumentKey: "key-1",
		MaxAttempts: maxAttempts,
		Stage:       jobs.StageProgress,
	}
}

func TestStatusPoller_Queued(t *testing.T) {
	p := newStatusPoller(2*time.Second, 3600)
	job := newPollingJob(150)

	res := p.apply(job, deepl.Status{State: deepl.StateQueued})

	assert.Equal(t, tickContinue, res.outcome)
	assert.Equal(t, 1, job.PollAttempts)
	assert.Equal(t, 15, job.ProgressPercent)
	assert.Contains(t, job.StatusMessage, "queued")
}

func TestStatusPoller_TranslatingProgressIsCapped(t *testing.T) {
	p := newStatusPoller(2*time.Second, 3600)
	job := newPollingJob(150)

	p.apply(job, deepl.Status{State: deepl.StateTranslating})
	assert.Equal(t, 27, job.ProgressPercent)

	last := job.ProgressPercent
	for range 40 {
		p.apply(job, deepl.Status{State: deepl.StateTranslating})
		assert.GreaterOrEqual(t, job.ProgressPercent, last)
		last = job.ProgressPercent
	}
	assert.Equal(t, 70, job.ProgressPercent)
}

func TestStatusPoller_UnknownStateCountsAsTranslating(t *testing.T) {
	p := newStatusPoller(2*time.Second, 3600)
	job := newPollingJob(150)

	res := p.apply(job, deepl.Status{State: "converting"})

	assert.Equal(t, tickContinue, res.outcome)
	assert.Equal(t, 27, job.ProgressPercent)
}

func TestStatusPoller_Done(t *testing.T) {
	p := newStatusPoller(2*time.Second, 3600)
	job := newPollingJob(150)

	res := p.apply(job, deepl.Status{State: deepl.StateDone, BilledCharacters: 1234})

	assert.Equal(t, tickDone, res.outcome)
	assert.Equal(t, 100, job.ProgressPercent)
	assert.Equal(t, 1234, job.BilledCharacters)
}

func TestStatusPoller_ProviderError(t *testing.T) {
	p := newStatusPoller(2*time.Second, 3600)

	res := p.apply(newPollingJob(150), deepl.Status{State: deepl.StateError, ErrorMessage: "Source and target language are equal."})
	require.Equal(t, tickFailed, res.outcome)
	assert.Equal(t, ErrProvider, res.err.Type)
	assert.Equal(t, "Source and target language are equal.", res.err.Message)

	res = p.apply(newPollingJob(150), deepl.Status{State: deepl.StateError})
	require.Equal(t, tickFailed, res.outcome)
	assert.Equal(t, msgProviderFailed, res.err.Message)
}

func TestStatusPoller_TimesOutAtBudget(t *testing.T) {
	p := newStatusPoller(2*time.Second, 3600)
	job := newPollingJob(3)

	assert.Equal(t, tickContinue, p.apply(job, deepl.Status{State: deepl.StateTranslating}).outcome)
	assert.Equal(t, tickContinue, p.apply(job, deepl.Status{State: deepl.StateTranslating}).outcome)

	res := p.apply(job, deepl.Status{State: deepl.StateTranslating})
	require.Equal(t, tickFailed, res.outcome)
	assert.Equal(t, ErrTimeout, res.err.Type)
	assert.Equal(t, msgTimeout, res.err.Message)
}

func TestStatusPoller_ExtendsBudgetFromRemainingSeconds(t *testing.T) {
	p := newStatusPoller(2*time.Second, 3600)
	job := newPollingJob(150)
	job.PollAttempts = 140

	p.apply(job, deepl.Status{State: deepl.StateTranslating, SecondsRemaining: intPtr(600)})

	// 141 done + 300 ticks for 600s + 30 margin
	assert.Equal(t, 471, job.MaxAttempts)
	assert.Contains(t, job.StatusMessage, "about 10 minutes remaining")
}

func TestStatusPoller_BudgetNeverShrinksAndIsCapped(t *testing.T) {
	p := newStatusPoller(2*time.Second, 500)
	job := newPollingJob(150)

	p.apply(job, deepl.Status{State: deepl.StateTranslating, SecondsRemaining: intPtr(7200)})
	assert.Equal(t, 500, job.MaxAttempts)

	p.apply(job, deepl.Status{State: deepl.StateTranslating, SecondsRemaining: intPtr(1)})
	assert.Equal(t, 500, job.MaxAttempts)
}

func TestRemainingText(t *testing.T) {
	assert.Equal(t, "(less than a minute remaining)", remainingText(30))
	assert.Equal(t, "(about 1 minute remaining)", remainingText(60))
	assert.Equal(t, "(about 2 minutes remaining)", remainingText(61))
}
