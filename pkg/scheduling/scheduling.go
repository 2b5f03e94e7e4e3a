// Package scheduling computes Schedule.nextRunAt from a standard five-field
// cron expression (§3, §4.2, §8 invariant 8).
package scheduling

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// NextRunAt parses cronExpr as a standard five-field cron expression and
// returns the next firing time strictly after from. ScheduleStore.AdvanceNextRun
// (pkg/store) is expected to be called with from=the time the tick just
// fired, so nextRunAt never lags behind lastRunAt (§8 invariant 8).
func NextRunAt(cronExpr string, from time.Time) (time.Time, error) {
	spec, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduling: parse cron expression %q: %w", cronExpr, err)
	}
	return spec.Next(from), nil
}

// Validate reports whether cronExpr parses as a standard five-field cron
// expression, for use by admin-surface validation before a Schedule is saved.
func Validate(cronExpr string) error {
	_, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return fmt.Errorf("scheduling: invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}
