package homepage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kidandcat/homepagetests/pkg/browser"
	"github.com/kidandcat/homepagetests/pkg/fixture"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the home page of the demo site under test.
const DefaultBaseURL = "https://bonigarcia.dev/selenium-webdriver-java/"

// Check names one of the single-scenario checks.
type Check string

const (
	CheckChapterTitle Check = "checkChapterTitles"
	CheckHomePageLink Check = "checkHomePageLinks"
	CheckLinkedTitle  Check = "checkTitleLinkedWithHomePage"
)

// AllChecks lists the checks run for every fixture row.
var AllChecks = []Check{CheckChapterTitle, CheckHomePageLink, CheckLinkedTitle}

// Opener opens a fresh browser session. *browser.Provider is an Opener.
type Opener interface {
	Open(ctx context.Context) (browser.Session, error)
}

type Config struct {
	BaseURL  string
	Timeouts Timeouts
	// Parallel is how many test cases run at once, each with its own session.
	Parallel           int
	FailOnConsoleError bool
	// ScreenshotDir receives a full-page screenshot of every failed case.
	// Empty disables screenshots.
	ScreenshotDir string
}

type Test struct {
	Name  string
	Check Check
	Row   fixture.Row
}

type TestResult struct {
	Name       string
	Check      Check
	Row        fixture.Row
	Passed     bool
	Error      error
	Duration   time.Duration
	Console    []browser.ConsoleMessage
	Screenshot string
}

type Runner struct {
	opener            Opener
	config            *Config
	log               zerolog.Logger
	tests             []Test
	mu                sync.Mutex
	screenshotCounter map[string]int
}

// NewRunner copies config and fills in defaults for its zero fields. A nil
// config means all defaults.
func NewRunner(opener Opener, config *Config, log zerolog.Logger) *Runner {
	var c Config
	if config != nil {
		c = *config
	}
	config = &c
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeouts == (Timeouts{}) {
		config.Timeouts = DefaultTimeouts()
	}
	if config.Parallel < 1 {
		config.Parallel = 1
	}
	return &Runner{
		opener:            opener,
		config:            config,
		log:               log,
		screenshotCounter: make(map[string]int),
	}
}

func (r *Runner) AddTest(test Test) {
	r.tests = append(r.tests, test)
}

// AddRows adds one test per row for each of checks, grouped by check.
func (r *Runner) AddRows(rows []fixture.Row, checks ...Check) {
	if len(checks) == 0 {
		checks = AllChecks
	}
	for _, check := range checks {
		for _, row := range rows {
			r.AddTest(Test{
				Name:  fmt.Sprintf("%s/%s", check, row.Name()),
				Check: check,
				Row:   row,
			})
		}
	}
}

func (r *Runner) Tests() []Test {
	return r.tests
}

func (r *Runner) Run(ctx context.Context) []TestResult {
	return r.RunWithProgress(ctx, nil)
}

// RunWithProgress runs every test and sends each result to progress as it
// completes. progress is closed when all tests are done. Results are
// returned in the order the tests were added.
func (r *Runner) RunWithProgress(ctx context.Context, progress chan<- TestResult) []TestResult {
	results := make([]TestResult, len(r.tests))

	var g errgroup.Group
	g.SetLimit(r.config.Parallel)
	for i, test := range r.tests {
		g.Go(func() error {
			result := r.runTest(ctx, test)
			results[i] = result
			if progress != nil {
				progress <- result
			}
			return nil
		})
	}
	g.Wait()

	if progress != nil {
		close(progress)
	}

	return results
}

func (r *Runner) runTest(ctx context.Context, test Test) (result TestResult) {
	start := time.Now()
	result = TestResult{
		Name:   test.Name,
		Check:  test.Check,
		Row:    test.Row,
		Passed: true,
	}
	log := r.log.With().Str("test", test.Name).Logger()
	defer func() {
		result.Duration = time.Since(start)
		log.Debug().Bool("passed", result.Passed).Dur("duration", result.Duration).Msg("test finished")
	}()

	session, err := r.opener.Open(ctx)
	if err != nil {
		result.Passed = false
		result.Error = fmt.Errorf("open browser session: %w", err)
		return result
	}
	defer session.Close()

	if err := r.executeTest(ctx, session, test, log); err != nil {
		result.Passed = false
		result.Error = err
		result.Screenshot = r.takeScreenshot(ctx, session, test.Name, log)
	}

	result.Console = session.Console()
	if r.config.FailOnConsoleError {
		errorCount := 0
		for _, msg := range result.Console {
			if msg.IsError() {
				errorCount++
			}
		}
		if errorCount > 0 {
			result.Passed = false
			if result.Error == nil {
				result.Error = fmt.Errorf("console errors detected: %d errors", errorCount)
			}
		}
	}

	return result
}

func (r *Runner) executeTest(ctx context.Context, session browser.Session, test Test, log zerolog.Logger) error {
	if err := session.Navigate(ctx, r.config.BaseURL); err != nil {
		return fmt.Errorf("open home page: %w", err)
	}

	checker := NewChecker(session, r.config.Timeouts, log)
	switch test.Check {
	case CheckChapterTitle:
		return checker.CheckChapterTitle(ctx, test.Row)
	case CheckHomePageLink:
		return checker.CheckHomePageLink(ctx, test.Row)
	case CheckLinkedTitle:
		return checker.CheckLinkedTitle(ctx, test.Row)
	default:
		return fmt.Errorf("unknown check: %s", test.Check)
	}
}

// takeScreenshot saves the current page of a failed test and returns the
// file path, or "" when screenshots are off or the capture failed.
func (r *Runner) takeScreenshot(ctx context.Context, session browser.Session, testName string, log zerolog.Logger) string {
	if r.config.ScreenshotDir == "" {
		return ""
	}

	safeTestName := strings.ReplaceAll(testName, " ", "_")
	safeTestName = strings.ReplaceAll(safeTestName, "/", "_")
	safeTestName = strings.ReplaceAll(safeTestName, "\\", "_")

	r.mu.Lock()
	r.screenshotCounter[testName]++
	counter := r.screenshotCounter[testName]
	r.mu.Unlock()

	filename := fmt.Sprintf("%s.png", safeTestName)
	if counter > 1 {
		filename = fmt.Sprintf("%s_%d.png", safeTestName, counter)
	}

	if err := os.MkdirAll(r.config.ScreenshotDir, 0755); err != nil {
		log.Warn().Err(err).Msg("failed to create screenshot directory")
		return ""
	}

	data, err := session.Screenshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to take screenshot")
		return ""
	}

	path := filepath.Join(r.config.ScreenshotDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Warn().Err(err).Msg("failed to save screenshot")
		return ""
	}
	return path
}
