package homepage

import (
	"testing"
	"time"

	"github.com/kidandcat/homepagetests/pkg/browser/browsertest"
	"github.com/kidandcat/homepagetests/pkg/fixture"
	"github.com/rs/zerolog"
)

const siteURL = "https://site.test/"

var testTimeouts = Timeouts{
	LinkedTitle: 50 * time.Millisecond,
	Scrape:      50 * time.Millisecond,
	Navigation:  50 * time.Millisecond,
}

var (
	webFormRow = fixture.Row{
		ChapterName:         "Chapter 3. WebDriver Fundamentals",
		LinkURL:             siteURL + "web-form.html",
		HomePageButtonName:  "Web form",
		ExpectedLinkedTitle: "Web form",
	}
	framesRow = fixture.Row{
		ChapterName:         "Chapter 4. Browser-Agnostic Features",
		LinkURL:             siteURL + "frames.html",
		HomePageButtonName:  "Frames",
		ExpectedLinkedTitle: "Frames",
		IsFrame:             true,
	}
)

func titled(title string) *browsertest.Page {
	return &browsertest.Page{Elements: map[string][]browsertest.Element{
		TitleMarkerXPath: {{Text: title}},
		TitleXPath:       {{Text: title}},
	}}
}

func link(name, href string) []browsertest.Element {
	return []browsertest.Element{{Text: name, Href: href}}
}

// fakeSite is a small replica of the demo site.
func fakeSite() map[string]*browsertest.Page {
	home := &browsertest.Page{Elements: map[string][]browsertest.Element{
		ChapterTitleXPath("Chapter 3. WebDriver Fundamentals"):    {{Text: "Chapter 3. WebDriver Fundamentals"}},
		ChapterTitleXPath("Chapter 4. Browser-Agnostic Features"): {{Text: "Chapter 4. Browser-Agnostic Features"}},

		CardLinkXPath("Web form"): link("Web form", siteURL+"web-form.html"),
		AnchorXPath("Web form"): {
			{Text: "Web form", Href: siteURL + "web-form.html"},
			{Text: "Web form", Href: siteURL + "web-form-2.html"},
		},
		CardLinkXPath("Frames"):     link("Frames", siteURL+"frames.html"),
		AnchorXPath("Frames"):       link("Frames", siteURL+"frames.html"),
		CardLinkXPath("Untitled"):   link("Untitled", siteURL+"untitled.html"),
		CardLinkXPath("Markerless"): link("Markerless", siteURL+"marker-only.html"),
		CardLinkXPath("Dead link"):  {{Text: "Dead link"}},
	}}

	return map[string]*browsertest.Page{
		siteURL:                     home,
		siteURL + "web-form.html":   titled("Web form"),
		siteURL + "web-form-2.html": titled("Web form (copy)"),
		siteURL + "frames.html": {Frames: map[string]*browsertest.Page{
			FrameName:    titled("Frames"),
			"frame-body": {},
		}},
		siteURL + "untitled.html": {},
		siteURL + "marker-only.html": {Elements: map[string][]browsertest.Element{
			TitleMarkerXPath: {{Text: "marker"}},
		}},
	}
}

func testLogger(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t))
}
