package homepage

import (
	"fmt"

	"github.com/kidandcat/homepagetests/pkg/browser"
)

const (
	// FrameName is the frame holding the title on framed pages.
	FrameName = "frame-header"

	// TitleMarkerXPath matches any element carrying the display-6 class,
	// which destination pages use for their title.
	TitleMarkerXPath = "//*[contains(concat(' ', normalize-space(@class), ' '), ' display-6 ')]"
	// TitleXPath is the destination page title itself.
	TitleXPath = "//h1[contains(@class, 'display-6')]"
)

// ChapterTitleXPath matches a chapter heading followed by its links.
func ChapterTitleXPath(chapterName string) string {
	return fmt.Sprintf("//div/h5[text() = %s][following-sibling::a]", browser.Literal(chapterName))
}

// CardLinkXPath matches a link under a card title heading.
func CardLinkXPath(buttonName string) string {
	return fmt.Sprintf("//h5[contains(@class, 'card-title')]/../a[text() = %s]", browser.Literal(buttonName))
}

// AnchorXPath matches every anchor on the page with the given text.
func AnchorXPath(buttonName string) string {
	return fmt.Sprintf("//a[text() = %s]", browser.Literal(buttonName))
}
