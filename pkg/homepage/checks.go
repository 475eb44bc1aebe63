// Package homepage checks the demo site's home page: chapter headings, the
// links under them and the titles of the pages those links open.
package homepage

import (
	"context"
	"fmt"
	"time"

	"github.com/kidandcat/homepagetests/pkg/browser"
	"github.com/kidandcat/homepagetests/pkg/fixture"
	"github.com/rs/zerolog"
)

// Timeouts bound the waits made by checks and scrapes.
type Timeouts struct {
	// LinkedTitle bounds the wait for the title marker after following a link.
	LinkedTitle time.Duration
	// Scrape bounds each wait in the full-site scrape.
	Scrape time.Duration
	// Navigation bounds the wait for the location to change after a click.
	Navigation time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		LinkedTitle: 20 * time.Second,
		Scrape:      10 * time.Second,
		Navigation:  10 * time.Second,
	}
}

// LinkedTitle is what the Linked Title check read. Scope is the document
// context the check finished in and is always top-level.
type LinkedTitle struct {
	Outcome browser.Outcome
	Text    string
	Scope   browser.Scope
}

// Checker runs single-scenario checks against a session that is showing
// the home page.
type Checker struct {
	session  browser.Session
	timeouts Timeouts
	log      zerolog.Logger
}

func NewChecker(session browser.Session, timeouts Timeouts, log zerolog.Logger) *Checker {
	return &Checker{session: session, timeouts: timeouts, log: log}
}

// ChapterTitle returns the text of the chapter heading named by row.
func (c *Checker) ChapterTitle(ctx context.Context, row fixture.Row) (string, error) {
	xpath := ChapterTitleXPath(row.ChapterName)
	lookup, err := c.session.Text(ctx, browser.Top(), xpath)
	if err != nil {
		return "", err
	}
	if lookup.Outcome != browser.Found {
		return "", &LookupError{What: fmt.Sprintf("chapter %q", row.ChapterName), XPath: xpath}
	}
	return lookup.Text, nil
}

func (c *Checker) CheckChapterTitle(ctx context.Context, row fixture.Row) error {
	title, err := c.ChapterTitle(ctx, row)
	if err != nil {
		return err
	}
	if title != row.ChapterName {
		return &AssertionError{
			Expected: row.ChapterName,
			Actual:   title,
			Message:  "chapter name mismatch",
		}
	}
	return nil
}

// followCardLink clicks the card link for row and returns the location it
// was clicked from.
func (c *Checker) followCardLink(ctx context.Context, row fixture.Row) (string, error) {
	origin, err := c.session.Location(ctx)
	if err != nil {
		return "", err
	}

	xpath := CardLinkXPath(row.HomePageButtonName)
	outcome, err := c.session.Click(ctx, browser.Top(), xpath, 0)
	if err != nil {
		return "", err
	}
	if outcome != browser.Found {
		return "", &LookupError{What: fmt.Sprintf("link %q", row.HomePageButtonName), XPath: xpath}
	}
	return origin, nil
}

// HomePageLink follows the card link for row and returns the location the
// browser settles on.
func (c *Checker) HomePageLink(ctx context.Context, row fixture.Row) (string, error) {
	origin, err := c.followCardLink(ctx, row)
	if err != nil {
		return "", err
	}

	location, outcome, err := browser.WaitLocation(ctx, c.session, c.timeouts.Navigation, func(location string) bool {
		return location != origin
	})
	if err != nil {
		return "", err
	}
	if outcome == browser.TimedOut {
		return location, &TimeoutError{What: "location to change from " + origin, Timeout: c.timeouts.Navigation}
	}
	return location, nil
}

func (c *Checker) CheckHomePageLink(ctx context.Context, row fixture.Row) error {
	location, err := c.HomePageLink(ctx, row)
	if err != nil {
		return err
	}
	if location != row.LinkURL {
		return &AssertionError{
			Expected: row.LinkURL,
			Actual:   location,
			Message:  "page address mismatch",
		}
	}
	return nil
}

// LinkedTitle follows the card link for row and reads the destination
// page's title, from inside the header frame when row.IsFrame.
func (c *Checker) LinkedTitle(ctx context.Context, row fixture.Row) (LinkedTitle, error) {
	origin, err := c.followCardLink(ctx, row)
	if err != nil {
		return LinkedTitle{Scope: browser.Top()}, err
	}

	_, outcome, err := browser.WaitLocation(ctx, c.session, c.timeouts.Navigation, func(location string) bool {
		return location != origin
	})
	if err != nil {
		return LinkedTitle{Scope: browser.Top()}, err
	}
	if outcome == browser.TimedOut {
		c.log.Warn().Str("link", row.HomePageButtonName).Msg("location did not change after click")
	}

	scope := browser.Top()
	if row.IsFrame {
		scope = scope.Enter(FrameName)
	}
	title, err := readTitle(ctx, c.session, scope, c.timeouts.LinkedTitle, c.log)
	if row.IsFrame {
		scope = scope.Exit()
	}
	title.Scope = scope
	return title, err
}

func (c *Checker) CheckLinkedTitle(ctx context.Context, row fixture.Row) error {
	title, err := c.LinkedTitle(ctx, row)
	if err != nil {
		return err
	}

	switch title.Outcome {
	case browser.TimedOut:
		return &TimeoutError{What: "title marker on linked page", Timeout: c.timeouts.LinkedTitle}
	case browser.NotFound:
		return &LookupError{What: "linked page title", XPath: TitleXPath}
	}

	if title.Text != row.ExpectedLinkedTitle {
		return &AssertionError{
			Expected: row.ExpectedLinkedTitle,
			Actual:   title.Text,
			Message:  "linked page title mismatch",
		}
	}
	return nil
}

// readTitle waits for the title marker in scope and reads the title. A
// timeout or a missing title is reported in the Outcome, not as an error.
func readTitle(ctx context.Context, s browser.Session, scope browser.Scope, timeout time.Duration, log zerolog.Logger) (LinkedTitle, error) {
	outcome, err := browser.WaitPresent(ctx, s, scope, TitleMarkerXPath, timeout)
	if err != nil {
		return LinkedTitle{}, err
	}
	if outcome == browser.TimedOut {
		log.Warn().Stringer("scope", scope).Dur("timeout", timeout).Msg("title marker not found on the page")
		return LinkedTitle{Outcome: browser.TimedOut}, nil
	}

	lookup, err := s.Text(ctx, scope, TitleXPath)
	if err != nil {
		return LinkedTitle{}, err
	}
	if lookup.Outcome != browser.Found {
		log.Warn().Stringer("scope", scope).Msg("title element not found on the page")
		return LinkedTitle{Outcome: browser.NotFound}, nil
	}
	return LinkedTitle{Outcome: browser.Found, Text: lookup.Text}, nil
}
