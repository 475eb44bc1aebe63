package homepage

import (
	"context"
	"errors"
	"testing"

	"github.com/kidandcat/homepagetests/pkg/browser"
	"github.com/kidandcat/homepagetests/pkg/browser/browsertest"
	"github.com/kidandcat/homepagetests/pkg/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckerAtHome(t *testing.T) (*Checker, *browsertest.Session) {
	t.Helper()
	session := browsertest.New(fakeSite())
	require.NoError(t, session.Navigate(context.Background(), siteURL))
	return NewChecker(session, testTimeouts, testLogger(t)), session
}

func TestChapterTitle(t *testing.T) {
	checker, _ := newCheckerAtHome(t)
	ctx := context.Background()

	title, err := checker.ChapterTitle(ctx, webFormRow)
	require.NoError(t, err)
	assert.Equal(t, "Chapter 3. WebDriver Fundamentals", title)

	// repeatable without side effects
	title, err = checker.ChapterTitle(ctx, webFormRow)
	require.NoError(t, err)
	assert.Equal(t, "Chapter 3. WebDriver Fundamentals", title)
	require.NoError(t, checker.CheckChapterTitle(ctx, webFormRow))
}

func TestChapterTitleMissing(t *testing.T) {
	checker, _ := newCheckerAtHome(t)

	row := webFormRow
	row.ChapterName = "Chapter 42. Nowhere"
	err := checker.CheckChapterTitle(context.Background(), row)

	var lookupErr *LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Contains(t, lookupErr.Error(), "Chapter 42. Nowhere")
}

func TestHomePageLink(t *testing.T) {
	checker, _ := newCheckerAtHome(t)

	location, err := checker.HomePageLink(context.Background(), webFormRow)
	require.NoError(t, err)
	assert.Equal(t, siteURL+"web-form.html", location)
}

func TestCheckHomePageLink(t *testing.T) {
	tests := []struct {
		name    string
		row     fixture.Row
		wantErr any
	}{
		{name: "matching address", row: webFormRow},
		{
			name: "trailing variation is a mismatch",
			row: fixture.Row{
				ChapterName:        webFormRow.ChapterName,
				LinkURL:            siteURL + "web-form.html?x=1",
				HomePageButtonName: "Web form",
			},
			wantErr: &AssertionError{},
		},
		{
			name:    "missing link",
			row:     fixture.Row{HomePageButtonName: "No such link"},
			wantErr: &LookupError{},
		},
		{
			name:    "link that does not navigate",
			row:     fixture.Row{HomePageButtonName: "Dead link", LinkURL: siteURL},
			wantErr: &TimeoutError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker, _ := newCheckerAtHome(t)
			err := checker.CheckHomePageLink(context.Background(), tt.row)

			switch want := tt.wantErr.(type) {
			case nil:
				require.NoError(t, err)
			case *AssertionError:
				require.ErrorAs(t, err, &want)
				assert.Equal(t, tt.row.LinkURL, want.Expected)
				assert.Equal(t, siteURL+"web-form.html", want.Actual)
			case *LookupError:
				require.ErrorAs(t, err, &want)
			case *TimeoutError:
				require.ErrorAs(t, err, &want)
			}
		})
	}
}

func TestLinkedTitleWithoutFrameStaysTopLevel(t *testing.T) {
	checker, session := newCheckerAtHome(t)

	title, err := checker.LinkedTitle(context.Background(), webFormRow)
	require.NoError(t, err)
	assert.Equal(t, browser.Found, title.Outcome)
	assert.Equal(t, "Web form", title.Text)
	assert.True(t, title.Scope.IsTop())

	for _, scope := range session.Scopes() {
		assert.True(t, scope.IsTop(), "unexpected frame switch to %s", scope)
	}
}

func TestLinkedTitleInFrame(t *testing.T) {
	checker, session := newCheckerAtHome(t)

	title, err := checker.LinkedTitle(context.Background(), framesRow)
	require.NoError(t, err)
	assert.Equal(t, browser.Found, title.Outcome)
	assert.Equal(t, "Frames", title.Text)
	assert.True(t, title.Scope.IsTop())

	framed := 0
	for _, scope := range session.Scopes() {
		if !scope.IsTop() {
			framed++
			assert.Equal(t, []string{FrameName}, scope.Frames())
		}
	}
	assert.Positive(t, framed)
}

func TestLinkedTitleInFrameRestoresScopeOnFailure(t *testing.T) {
	checker, _ := newCheckerAtHome(t)

	row := framesRow
	row.HomePageButtonName = "Untitled"
	title, err := checker.LinkedTitle(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, browser.TimedOut, title.Outcome)
	assert.Empty(t, title.Text)
	assert.True(t, title.Scope.IsTop())

	row.HomePageButtonName = "No such link"
	title, err = checker.LinkedTitle(context.Background(), row)
	require.Error(t, err)
	assert.True(t, title.Scope.IsTop())
}

func TestCheckLinkedTitleFailureReasons(t *testing.T) {
	ctx := context.Background()

	t.Run("title marker never appears", func(t *testing.T) {
		checker, _ := newCheckerAtHome(t)
		row := webFormRow
		row.HomePageButtonName = "Untitled"

		var timeoutErr *TimeoutError
		require.ErrorAs(t, checker.CheckLinkedTitle(ctx, row), &timeoutErr)
		assert.Equal(t, testTimeouts.LinkedTitle, timeoutErr.Timeout)
	})

	t.Run("marker without title element", func(t *testing.T) {
		checker, _ := newCheckerAtHome(t)
		row := webFormRow
		row.HomePageButtonName = "Markerless"

		var lookupErr *LookupError
		require.ErrorAs(t, checker.CheckLinkedTitle(ctx, row), &lookupErr)
		assert.Equal(t, TitleXPath, lookupErr.XPath)
	})

	t.Run("wrong title", func(t *testing.T) {
		checker, _ := newCheckerAtHome(t)
		row := webFormRow
		row.ExpectedLinkedTitle = "Web forms"

		var assertErr *AssertionError
		require.ErrorAs(t, checker.CheckLinkedTitle(ctx, row), &assertErr)
		assert.Equal(t, "Web forms", assertErr.Expected)
		assert.Equal(t, "Web form", assertErr.Actual)
	})

	t.Run("matching title", func(t *testing.T) {
		checker, _ := newCheckerAtHome(t)
		require.NoError(t, checker.CheckLinkedTitle(ctx, webFormRow))
	})
}

func TestChecksOnClosedSession(t *testing.T) {
	checker, session := newCheckerAtHome(t)
	require.NoError(t, session.Close())

	_, err := checker.ChapterTitle(context.Background(), webFormRow)
	assert.True(t, errors.Is(err, browser.ErrSessionClosed))
}

func TestConcreteScenario(t *testing.T) {
	ctx := context.Background()
	row := fixture.Row{
		ChapterName:         "Chapter 3. WebDriver Fundamentals",
		LinkURL:             siteURL + "web-form.html",
		HomePageButtonName:  "Web form",
		ExpectedLinkedTitle: "Web form",
		IsFrame:             false,
	}

	checker, _ := newCheckerAtHome(t)
	title, err := checker.ChapterTitle(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, "Chapter 3. WebDriver Fundamentals", title)

	checker, _ = newCheckerAtHome(t)
	location, err := checker.HomePageLink(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, row.LinkURL, location)

	checker, _ = newCheckerAtHome(t)
	linked, err := checker.LinkedTitle(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, "Web form", linked.Text)
}
