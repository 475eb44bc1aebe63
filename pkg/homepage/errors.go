package homepage

import (
	"errors"
	"fmt"
	"time"
)

// ErrAnchorVanished means the anchor collection shrank between scrape
// iterations, so the next anchor to visit no longer exists.
var ErrAnchorVanished = errors.New("anchor no longer present after navigating back")

type AssertionError struct {
	Expected string
	Actual   string
	Message  string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected '%s', got '%s'", e.Message, e.Expected, e.Actual)
}

// LookupError means a required element was not on the page.
type LookupError struct {
	What  string
	XPath string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s not found (%s)", e.What, e.XPath)
}

// TimeoutError means a bounded wait expired.
type TimeoutError struct {
	What    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.What)
}
