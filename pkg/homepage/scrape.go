package homepage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kidandcat/homepagetests/pkg/browser"
	"github.com/kidandcat/homepagetests/pkg/fixture"
	"github.com/rs/zerolog"
)

// ScrapeReport summarises one scrape run.
type ScrapeReport struct {
	// Anchors is how many anchors matched when the run started.
	Anchors int
	Titles  []string
	Skipped int
	// WriteErr is the first write failure. Nothing is written after it.
	WriteErr error
}

// Scraper visits every anchor with a given text and harvests the titles of
// the pages they open.
type Scraper struct {
	session  browser.Session
	timeouts Timeouts
	log      zerolog.Logger
}

func NewScraper(session browser.Session, timeouts Timeouts, log zerolog.Logger) *Scraper {
	return &Scraper{session: session, timeouts: timeouts, log: log}
}

// ScrapeTitles clicks each anchor whose text is row.HomePageButtonName, reads
// the destination title and writes it to w as one line, then navigates back.
// Items whose title cannot be read are skipped. The run stops early only if
// the way back to the anchors is lost.
func (s *Scraper) ScrapeTitles(ctx context.Context, row fixture.Row, w io.Writer) (ScrapeReport, error) {
	xpath := AnchorXPath(row.HomePageButtonName)
	log := s.log.With().Str("anchor", row.HomePageButtonName).Logger()

	n, err := s.session.Count(ctx, browser.Top(), xpath)
	if err != nil {
		return ScrapeReport{}, err
	}
	report := ScrapeReport{Anchors: n}

	for i := 0; i < n; i++ {
		// The page was reloaded by the previous Back, so query afresh.
		count, err := s.session.Count(ctx, browser.Top(), xpath)
		if err != nil {
			return report, err
		}
		if count <= i {
			return report, fmt.Errorf("anchor %d of %d: %w", i+1, n, ErrAnchorVanished)
		}

		origin, err := s.session.Location(ctx)
		if err != nil {
			return report, err
		}
		outcome, err := s.session.Click(ctx, browser.Top(), xpath, i)
		if err != nil {
			return report, err
		}
		if outcome != browser.Found {
			return report, fmt.Errorf("anchor %d of %d: %w", i+1, n, ErrAnchorVanished)
		}

		_, moved, err := browser.WaitLocation(ctx, s.session, s.timeouts.Scrape, func(location string) bool {
			return location != origin
		})
		if err != nil {
			return report, err
		}

		scope := browser.Top()
		if row.IsFrame {
			log.Debug().Str("frame", FrameName).Msg("switching to frame")
			scope = scope.Enter(FrameName)
		}
		title, err := readTitle(ctx, s.session, scope, s.timeouts.Scrape, log)
		if row.IsFrame {
			scope = scope.Exit()
		}
		if err != nil {
			return report, err
		}

		if title.Outcome == browser.Found {
			report.Titles = append(report.Titles, title.Text)
			log.Info().Int("index", i).Str("title", title.Text).Msg("page title")
			if report.WriteErr == nil {
				if _, err := io.WriteString(w, title.Text+"\n"); err != nil {
					report.WriteErr = err
					log.Error().Err(err).Msg("writing titles failed, further titles are not written")
				}
			}
		} else {
			report.Skipped++
		}

		if moved == browser.Found {
			if err := s.session.Back(ctx); err != nil {
				return report, fmt.Errorf("navigate back: %w", err)
			}
		}
		present, err := browser.WaitPresent(ctx, s.session, scope, xpath, s.timeouts.Scrape)
		if err != nil {
			return report, err
		}
		if present == browser.TimedOut {
			return report, &TimeoutError{What: fmt.Sprintf("anchor %q after navigating back", row.HomePageButtonName), Timeout: s.timeouts.Scrape}
		}
	}

	return report, nil
}

// ScrapeToFile runs ScrapeTitles appending to the file at path. Earlier
// contents are kept. The file is closed on every path out.
func (s *Scraper) ScrapeToFile(ctx context.Context, row fixture.Row, path string) (report ScrapeReport, err error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return ScrapeReport{}, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	report, err = s.ScrapeTitles(ctx, row, file)
	if report.WriteErr != nil {
		err = errors.Join(err, fmt.Errorf("write %s: %w", path, report.WriteErr))
	}
	return report, err
}
