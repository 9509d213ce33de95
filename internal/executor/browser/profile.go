package browser

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Profile holds the bits of a profile page we read back after
// navigation, used to confirm we landed where we meant to.
type Profile struct {
	Name     string
	Headline string
	Location string
}

// ParseProfile extracts basic identity fields from a rendered profile
// page. An empty name means the page is not a profile (login wall,
// not-found, rate interstitial) and the action must not proceed.
func ParseProfile(html string) (Profile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Profile{}, err
	}

	var p Profile
	p.Name = firstText(doc,
		"main h1",
		"h1.text-heading-xlarge",
		"h1",
	)
	p.Headline = firstText(doc,
		"main .text-body-medium.break-words",
		".pv-text-details__left-panel .text-body-medium",
	)
	p.Location = firstText(doc,
		"main .text-body-small.inline.t-black--light.break-words",
	)

	if p.Name == "" {
		return Profile{}, errors.New("no profile heading found")
	}
	return p, nil
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if s := strings.TrimSpace(doc.Find(sel).First().Text()); s != "" {
			return s
		}
	}
	return ""
}
