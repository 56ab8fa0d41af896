package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/doctrans/pkg/icron"
	"github.com/MimeLyc/doctrans/pkg/log"
)

type HistoryPruner interface {
	DeleteHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ArchivePruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// MaintenanceReport is the outcome of one retention run.
type MaintenanceReport struct {
	HistoryDeleted int64     `json:"history_deleted"`
	ArchivePruned  int       `json:"archive_pruned"`
	Cutoff         time.Time `json:"cutoff"`
}

// maintenanceService drops history rows and archived files past the retention window.
type maintenanceService struct {
	cron      *cron.Cron
	cronExpr  string
	retention time.Duration
	history   HistoryPruner
	archive   ArchivePruner
	now       func() time.Time
}

// NewMaintenanceService wires retention onto c. archive may be nil when the
// archive backend prunes itself (S3 lifecycle rules).
func NewMaintenanceService(
	c *cron.Cron,
	cronExpr string,
	retention time.Duration,
	history HistoryPruner,
	archive ArchivePruner,
) maintenanceService {
	return maintenanceService{
		cron:      c,
		cronExpr:  cronExpr,
		retention: retention,
		history:   history,
		archive:   archive,
		now:       time.Now,
	}
}

var maintenanceGroup singleflight.Group

func (s maintenanceService) Schedule(ctx context.Context) error {
	if _, err := icron.Parse(s.cronExpr); err != nil {
		return NewErrorWithCause(ErrConfig, "invalid maintenance schedule", err)
	}
	log.Info("Schedule maintenance with %q, retention %s", s.cronExpr, s.retention)

	runFunc := func() {
		if _, err := s.Run(ctx); err != nil {
			log.Error("Maintenance run failed: %v", err)
		}
	}
	_, err := s.cron.AddFunc(s.cronExpr, runFunc)
	return err
}

// Run prunes once. Overlapping calls share a single run.
func (s maintenanceService) Run(ctx context.Context) (MaintenanceReport, error) {
	v, err, _ := maintenanceGroup.Do("maintenance", func() (any, error) {
		return s.run(ctx)
	})
	if err != nil {
		return MaintenanceReport{}, err
	}
	return v.(MaintenanceReport), nil
}

func (s maintenanceService) run(ctx context.Context) (MaintenanceReport, error) {
	report := MaintenanceReport{Cutoff: s.now().Add(-s.retention).UTC()}
	if s.retention <= 0 {
		log.Debug("Retention disabled, skip maintenance")
		return report, nil
	}

	if s.history != nil {
		n, err := s.history.DeleteHistoryBefore(ctx, report.Cutoff)
		if err != nil {
			return report, err
		}
		report.HistoryDeleted = n
	}
	if s.archive != nil {
		n, err := s.archive.Prune(ctx, report.Cutoff)
		if err != nil {
			return report, err
		}
		report.ArchivePruned = n
	}

	log.Info("Maintenance removed %d history entries and %d archived files older than %s",
		report.HistoryDeleted, report.ArchivePruned, report.Cutoff.Format(time.RFC3339))
	return report, nil
}

// NextRun describes the schedule for status endpoints.
func (s maintenanceService) NextRun(ref time.Time) (*icron.TriggerInfo, error) {
	return icron.GetTriggerInfo(s.cronExpr, ref, 7*24*time.Hour)
}
