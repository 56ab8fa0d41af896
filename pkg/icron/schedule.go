package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// standardParser matches the five-field syntax accepted by cron.New().
var standardParser = cron.NewParser(cron.Minute | cron.Hour |
	cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type TriggerInfo struct {
	Expression string    `json:"expression"`
	Next       time.Time `json:"next"`
	Last       time.Time `json:"last,omitzero"`
}

// Parse validates a five-field cron expression.
func Parse(cronExpr string) (cron.Schedule, error) {
	schedule, err := standardParser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return schedule, nil
}

// GetTriggerInfo returns the next firing after refTime and the latest one
// at or before it, looking back at most lookback.
func GetTriggerInfo(cronExpr string, refTime time.Time, lookback time.Duration) (*TriggerInfo, error) {
	schedule, err := Parse(cronExpr)
	if err != nil {
		return nil, err
	}

	info := &TriggerInfo{
		Expression: cronExpr,
		Next:       schedule.Next(refTime),
	}

	// walk forward from the start of the window, keeping the last hit
	for t := schedule.Next(refTime.Add(-lookback)); !t.IsZero() && !t.After(refTime); t = schedule.Next(t) {
		info.Last = t
	}
	return info, nil
}
