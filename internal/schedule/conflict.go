package schedule

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/salon-scheduler/internal/timeutil"
)

var (
	// ErrGranularity means the proposed start or duration is off the
	// 10-minute booking raster. Raised before any store call is made.
	ErrGranularity = errors.New("time must align to 10 minute increments")

	// ErrConflict means the proposed interval collides with an existing
	// appointment or blocked stretch. The user picks another slot; no retry.
	ErrConflict = errors.New("time slot taken")
)

// Busy is an occupied span a proposal is checked against: an appointment in
// a slot-holding status, or a blocked time. Records whose status no longer
// holds the slot (cancelled, completed) carry Blocking=false and are
// skipped.
type Busy struct {
	ID       uuid.UUID
	Interval Interval
	Blocking bool
}

// Validate decides whether a proposed interval may be committed.
// explicitEnd marks proposals where the caller supplied an end time rather
// than deriving the duration from a service, which subjects the duration to
// the granularity rule too. exclude skips one record by id so an
// edit-in-place does not conflict with itself.
func Validate(proposed Interval, explicitEnd bool, exclude uuid.UUID, busy []Busy) error {
	if proposed.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrGranularity)
	}
	if !timeutil.Aligned(proposed.Start) {
		return fmt.Errorf("%w: start %s", ErrGranularity, timeutil.ToClock(proposed.Start))
	}
	if explicitEnd && !timeutil.Aligned(proposed.Duration) {
		return fmt.Errorf("%w: duration %dm", ErrGranularity, proposed.Duration)
	}

	for _, b := range busy {
		if !b.Blocking {
			continue
		}
		if b.ID != uuid.Nil && b.ID == exclude {
			continue
		}
		if proposed.Overlaps(b.Interval) {
			return fmt.Errorf("%w: overlaps %s", ErrConflict, b.Interval.Range())
		}
	}
	return nil
}
