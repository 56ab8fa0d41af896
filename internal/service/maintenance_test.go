package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHistoryPruner struct {
	mock.Mock
}

func (m *mockHistoryPruner) DeleteHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockArchivePruner struct {
	mock.Mock
}

func (m *mockArchivePruner) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

func TestMaintenance_RunPrunesBeforeCutoff(t *testing.T) {
	now := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)
	cutoff := now.Add(-90 * 24 * time.Hour)

	history := &mockHistoryPruner{}
	history.On("DeleteHistoryBefore", mock.Anything, cutoff).Return(int64(4), nil).Once()
	archive := &mockArchivePruner{}
	archive.On("Prune", mock.Anything, cutoff).Return(2, nil).Once()

	svc := NewMaintenanceService(cron.New(), "0 3 * * *", 90*24*time.Hour, history, archive)
	svc.now = func() time.Time { return now }

	report, err := svc.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(4), report.HistoryDeleted)
	assert.Equal(t, 2, report.ArchivePruned)
	assert.Equal(t, cutoff, report.Cutoff)

	history.AssertExpectations(t)
	archive.AssertExpectations(t)
}

func TestMaintenance_HistoryErrorStopsRun(t *testing.T) {
	history := &mockHistoryPruner{}
	history.On("DeleteHistoryBefore", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(int64(0), errors.New("database is locked")).Once()
	archive := &mockArchivePruner{}

	svc := NewMaintenanceService(cron.New(), "@daily", 24*time.Hour, history, archive)

	_, err := svc.Run(t.Context())
	require.Error(t, err)
	archive.AssertNotCalled(t, "Prune", mock.Anything, mock.Anything)
}

func TestMaintenance_DisabledRetention(t *testing.T) {
	history := &mockHistoryPruner{}
	svc := NewMaintenanceService(cron.New(), "@daily", 0, history, nil)

	report, err := svc.Run(t.Context())
	require.NoError(t, err)
	assert.Zero(t, report.HistoryDeleted)
	history.AssertNotCalled(t, "DeleteHistoryBefore", mock.Anything, mock.Anything)
}

func TestMaintenance_Schedule(t *testing.T) {
	c := cron.New()

	svc := NewMaintenanceService(c, "0 3 * * *", time.Hour, nil, nil)
	require.NoError(t, svc.Schedule(t.Context()))
	assert.Len(t, c.Entries(), 1)

	bad := NewMaintenanceService(c, "every day", time.Hour, nil, nil)
	err := bad.Schedule(t.Context())
	assert.True(t, IsErrorType(err, ErrConfig))
	assert.Len(t, c.Entries(), 1)
}

func TestMaintenance_NextRun(t *testing.T) {
	svc := NewMaintenanceService(cron.New(), "0 3 * * *", time.Hour, nil, nil)
	ref := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	info, err := svc.NextRun(ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 2, 3, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC), info.Last)
}
