package services

import (
	"context"
	"time"
)

// settle sleeps for d unless the context ends first. Reports whether the full
// delay elapsed. The page needs these pauses to finish rendering; none of
// them may outlive a shutdown request.
func settle(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
