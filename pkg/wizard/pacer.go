package wizard

import (
	"context"
	"time"
)

// Pacer keeps the "preparing your verification" interstitial up for a minimum
// duration without decoupling it from the work it covers: Run returns when
// both the operation has finished and Minimum has elapsed.
type Pacer struct {
	Minimum time.Duration
	// After defaults to time.After; tests swap it for a controlled channel.
	After func(time.Duration) <-chan time.Time
}

// Run starts the minimum timer, runs op, and on success waits out the rest
// of the timer. A failing op returns immediately so the error shows without
// delay.
func (p Pacer) Run(ctx context.Context, op func(context.Context) error) error {
	var timer <-chan time.Time
	if p.Minimum > 0 {
		after := p.After
		if after == nil {
			after = time.After
		}
		timer = after(p.Minimum)
	}

	if err := op(ctx); err != nil {
		return err
	}
	if timer == nil {
		return nil
	}

	select {
	case <-timer:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
