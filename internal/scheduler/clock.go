package scheduler

import "time"

// Clock supplies the scheduler's notion of time. Tests substitute a fixed
// clock to make due-ness deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
