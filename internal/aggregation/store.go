package aggregation

import (
	"context"
	"time"
)

// Window sizes are count-based: a "minute" is six samples received, an "hour"
// is sixty closed minutes, regardless of wall-clock elapsed time.
const (
	SamplesPerMinute = 6
	MinutesPerHour   = 60

	minuteTTL = time.Hour
	hourTTL   = 24 * time.Hour
)

// Result describes what one accumulate call did to the device's windows.
// HourSums and the counts are only populated when HourClosed is true.
type Result struct {
	MinuteClosed bool
	HourClosed   bool
	// MinuteCount is the number of samples in the minute that just closed.
	MinuteCount int
	// HourCount is the number of minutes folded into the closed hour.
	HourCount int
	// HourSums maps field name to the sum of its minute averages.
	HourSums map[string]float64
}

// CounterStore folds one sample into a device's minute/hour accumulators.
// The whole read-modify-write, including window close and key deletion, must
// happen as a single atomic operation per device so that two concurrent
// samples for one device can never both observe the same pre-close count.
type CounterStore interface {
	Accumulate(ctx context.Context, deviceID string, fields map[string]float64) (Result, error)
}
