package browser

import (
	"context"
	"errors"
	"time"
)

// DefaultPollInterval is how often bounded waits re-check their condition.
const DefaultPollInterval = 100 * time.Millisecond

// Outcome is the result kind of a lookup or a bounded wait.
type Outcome int

const (
	NotFound Outcome = iota
	Found
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Lookup is the result of reading an element's text.
type Lookup struct {
	Outcome Outcome
	Text    string
}

// Poll calls cond every interval until it reports true or timeout elapses.
// Errors from cond count as "not yet", except ErrSessionClosed which ends
// the wait. The returned error is non-nil only when the session is closed
// or the parent context is done.
func Poll(ctx context.Context, timeout, interval time.Duration, cond func(ctx context.Context) (bool, error)) (Outcome, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(waitCtx)
		if errors.Is(err, ErrSessionClosed) {
			return NotFound, err
		}
		if err == nil && ok {
			return Found, nil
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return TimedOut, err
			}
			return TimedOut, nil
		case <-ticker.C:
		}
	}
}

// WaitPresent waits until at least one element matches xpath in scope.
func WaitPresent(ctx context.Context, s Session, scope Scope, xpath string, timeout time.Duration) (Outcome, error) {
	return Poll(ctx, timeout, DefaultPollInterval, func(ctx context.Context) (bool, error) {
		n, err := s.Count(ctx, scope, xpath)
		return n > 0, err
	})
}

// WaitLocation waits until the current location satisfies match. It returns
// the last location it read, which on timeout is the one that did not match.
func WaitLocation(ctx context.Context, s Session, timeout time.Duration, match func(location string) bool) (string, Outcome, error) {
	var last string
	outcome, err := Poll(ctx, timeout, DefaultPollInterval, func(ctx context.Context) (bool, error) {
		location, err := s.Location(ctx)
		if err != nil {
			return false, err
		}
		last = location
		return match(location), nil
	})
	return last, outcome, err
}
