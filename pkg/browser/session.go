package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSessionClosed is returned by every Session method after Close.
	ErrSessionClosed = errors.New("browser session closed")
	// ErrNotInteractable is returned by Click when the element exists but a
	// user could not click it, for example because it is not displayed.
	ErrNotInteractable = errors.New("element is not interactable")
)

// Session is a live handle to one browser tab. All queries take the Scope
// they run in; a Session keeps no frame state of its own. A Session is used
// by one test case at a time.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	Back(ctx context.Context) error

	// Count returns how many elements match xpath in scope. A scope whose
	// frame does not exist has no matches.
	Count(ctx context.Context, scope Scope, xpath string) (int, error)
	// Text reads the text of the first element matching xpath in scope.
	Text(ctx context.Context, scope Scope, xpath string) (Lookup, error)
	// Click clicks the index-th element matching xpath in scope with the
	// mouse. It waits up to the navigation timeout for the element to become
	// clickable and then fails with ErrNotInteractable.
	Click(ctx context.Context, scope Scope, xpath string, index int) (Outcome, error)

	Screenshot(ctx context.Context) ([]byte, error)
	Console() []ConsoleMessage
	Close() error
}

// ConsoleMessage is a console API call made by the page.
type ConsoleMessage struct {
	Type      string
	Text      string
	URL       string
	Timestamp time.Time
}

func (m ConsoleMessage) IsError() bool {
	return m.Type == "error" || m.Type == "assert"
}

// ConfigError reports a session configuration that cannot be used.
type ConfigError struct {
	Endpoint string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("browser config: %s", e.Reason)
	}
	return fmt.Sprintf("browser config: endpoint %q: %s", e.Endpoint, e.Reason)
}
