// Package browsertest provides an in-memory browser.Session for testing code
// that drives pages without starting a browser.
package browsertest

import (
	"context"
	"errors"
	"sync"

	"github.com/kidandcat/homepagetests/pkg/browser"
)

// Element is a node matched by an XPath on a Page. Clicking an element with
// an Href navigates to it.
type Element struct {
	Text string
	Href string
}

// Page is a document. Elements are keyed by the exact XPath used to query
// them; Frames by frame name.
type Page struct {
	Elements map[string][]Element
	Frames   map[string]*Page
}

// Session is a fake browser.Session over a fixed set of pages keyed by URL.
type Session struct {
	mu       sync.Mutex
	pages    map[string]*Page
	location string
	history  []string
	scopes   []browser.Scope
	console  []browser.ConsoleMessage
	closed   bool

	// StaleAfterBack, when set, is called after every Back and may edit the
	// page that was returned to.
	StaleAfterBack func(location string, page *Page)
	// ScreenshotData is returned by Screenshot.
	ScreenshotData []byte
}

var _ browser.Session = (*Session)(nil)

// ErrUnknownPage is returned when navigating to a URL with no Page.
var ErrUnknownPage = errors.New("browsertest: unknown page")

func New(pages map[string]*Page) *Session {
	return &Session{pages: pages}
}

// Scopes returns every scope a query ran in, in order.
func (s *Session) Scopes() []browser.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]browser.Scope, len(s.scopes))
	copy(out, s.scopes)
	return out
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Log appends a console message as if the page had logged it.
func (s *Session) Log(msg browser.ConsoleMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.console = append(s.console, msg)
}

func (s *Session) check(ctx context.Context) error {
	if s.closed {
		return browser.ErrSessionClosed
	}
	return ctx.Err()
}

func (s *Session) document(scope browser.Scope) *Page {
	s.scopes = append(s.scopes, scope)
	page := s.pages[s.location]
	for _, name := range scope.Frames() {
		if page == nil {
			return nil
		}
		page = page.Frames[name]
	}
	return page
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, ok := s.pages[url]; !ok {
		return ErrUnknownPage
	}
	if s.location != "" {
		s.history = append(s.history, s.location)
	}
	s.location = url
	return nil
}

func (s *Session) Location(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", err
	}
	return s.location, nil
}

func (s *Session) Back(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if len(s.history) == 0 {
		return nil
	}
	s.location = s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	if s.StaleAfterBack != nil {
		s.StaleAfterBack(s.location, s.pages[s.location])
	}
	return nil
}

func (s *Session) Count(ctx context.Context, scope browser.Scope, xpath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	page := s.document(scope)
	if page == nil {
		return 0, nil
	}
	return len(page.Elements[xpath]), nil
}

func (s *Session) Text(ctx context.Context, scope browser.Scope, xpath string) (browser.Lookup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return browser.Lookup{}, err
	}
	page := s.document(scope)
	if page == nil || len(page.Elements[xpath]) == 0 {
		return browser.Lookup{Outcome: browser.NotFound}, nil
	}
	return browser.Lookup{Outcome: browser.Found, Text: page.Elements[xpath][0].Text}, nil
}

func (s *Session) Click(ctx context.Context, scope browser.Scope, xpath string, index int) (browser.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return browser.NotFound, err
	}
	page := s.document(scope)
	if page == nil || index < 0 || index >= len(page.Elements[xpath]) {
		return browser.NotFound, nil
	}

	href := page.Elements[xpath][index].Href
	if href != "" {
		if _, ok := s.pages[href]; !ok {
			return browser.NotFound, ErrUnknownPage
		}
		s.history = append(s.history, s.location)
		s.location = href
	}
	return browser.Found, nil
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.ScreenshotData, nil
}

func (s *Session) Console() []browser.ConsoleMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]browser.ConsoleMessage, len(s.console))
	copy(out, s.console)
	return out
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
