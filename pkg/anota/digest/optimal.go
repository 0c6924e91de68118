package digest

import (
	"math"
	"time"
)

// defaultHour is the digest time for users with no activity samples: 08:30.
const defaultHour = 8.5

// OptimalTime estimates when a user wants their morning digest, from the
// creation timestamps of their recent entries projected onto loc as
// fractional hours.
//
// Users who write in the morning get the digest two hours before their mean
// morning activity (never before 06:00). Users with no morning samples get
// three hours before their overall mean, clamped to [06:00, 10:00]. No
// samples at all means 08:30. The result snaps to the nearest quarter hour.
func OptimalTime(samples []time.Time, loc *time.Location) (hour, minute int) {
	var morning, all []float64
	for _, s := range samples {
		local := s.In(loc)
		h := float64(local.Hour()) + float64(local.Minute())/60
		all = append(all, h)
		if h >= 6 && h <= 12 {
			morning = append(morning, h)
		}
	}

	var candidate float64
	switch {
	case len(morning) > 0:
		candidate = mean(morning) - 2
		if candidate < 6 {
			candidate = 6
		}
	case len(all) > 0:
		candidate = clamp(mean(all)-3, 6, 10)
	default:
		candidate = defaultHour
	}

	hour = int(candidate)
	minute = int(math.Round((candidate-float64(hour))*60/15)) * 15
	if minute == 60 {
		hour++
		minute = 0
	}
	return hour, minute
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
