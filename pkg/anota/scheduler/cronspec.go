package scheduler

import (
	"fmt"
	"time"

	"github.com/dcastillocr/anota/pkg/anota/domain"
)

// CronSpec is a five-field cron schedule with only the fields a recurrence
// needs pinned; the rest stay wildcards. -1 means "any".
type CronSpec struct {
	Minute     int
	Hour       int
	DayOfMonth int
	Month      int
	DayOfWeek  int
}

// CronSpecFrom derives the cron fields for a recurrence from the instant the
// user named. Daily pins hour and minute; weekly adds the weekday; monthly
// the day of month; yearly the month as well. The instant is read in loc.
func CronSpecFrom(rec domain.Recurrence, at time.Time, loc *time.Location) (CronSpec, error) {
	local := at.In(loc)
	spec := CronSpec{
		Minute:     local.Minute(),
		Hour:       local.Hour(),
		DayOfMonth: -1,
		Month:      -1,
		DayOfWeek:  -1,
	}
	switch rec {
	case domain.RecurrenceDaily:
	case domain.RecurrenceWeekly:
		spec.DayOfWeek = int(local.Weekday())
	case domain.RecurrenceMonthly:
		spec.DayOfMonth = local.Day()
	case domain.RecurrenceYearly:
		spec.DayOfMonth = local.Day()
		spec.Month = int(local.Month())
	default:
		return CronSpec{}, fmt.Errorf("recurrence %q has no cron form", rec)
	}
	return spec, nil
}

// Daily builds a CronSpec for a fixed hour:minute every day. Used by the
// morning digest.
func Daily(hour, minute int) CronSpec {
	return CronSpec{Minute: minute, Hour: hour, DayOfMonth: -1, Month: -1, DayOfWeek: -1}
}

// String renders the standard five-field cron expression.
func (c CronSpec) String() string {
	return fmt.Sprintf("%s %s %s %s %s",
		field(c.Minute), field(c.Hour), field(c.DayOfMonth), field(c.Month), field(c.DayOfWeek))
}

func field(v int) string {
	if v < 0 {
		return "*"
	}
	return fmt.Sprintf("%d", v)
}
