package flowagility

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flowscrape/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	descriptionMaxLen      = 800
	descriptionTruncMarker = "... [texto truncado]"
)

// ScrapeInfo loads an event detail page and pulls out whatever it
// exposes. The caller decides which fields actually make it onto the
// event record.
func (s *Scraper) ScrapeInfo(ctx context.Context, infoURL string) (InfoDetails, error) {
	ctx, span := tracer.Start(ctx, "scraper:ScrapeInfo")
	defer span.End()

	err := s.session.Navigate(ctx, infoURL)
	if err != nil {
		return InfoDetails{}, fmt.Errorf("open info page: %w", err)
	}
	if err := s.session.WaitVisible(ctx, "body", 20*time.Second); err != nil {
		return InfoDetails{}, fmt.Errorf("info page never rendered: %w", err)
	}
	s.pause(ctx, 1200, 2200)

	pageHTML, err := s.session.HTML(ctx)
	if err != nil {
		return InfoDetails{}, fmt.Errorf("snapshot info page: %w", err)
	}
	return ParseInfo(pageHTML, s.h), nil
}

var (
	clubKeywords  = []string{"club", "organizador", "organizer"}
	venueKeywords = []string{"lugar", "ubicacion", "location", "place"}
)

// ParseInfo scans a detail-page snapshot. Club and venue have no
// stable markup, so the scan walks every element and keeps the first
// short text mentioning the right keyword, the same document-order
// guess the listing parser cannot make.
func ParseInfo(pageHTML string, h Heuristics) InfoDetails {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return InfoDetails{}
	}
	details := InfoDetails{
		Titulo:      textutil.Clean(doc.Find("h1").First().Text()),
		Descripcion: extractDescription(doc),
	}

	doc.Find("*").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		lower := strings.ToLower(el.Text())
		if !containsAny(lower, clubKeywords) {
			return true
		}
		if t := textutil.Clean(el.Text()); t != "" && len(t) < 100 {
			details.Club = t
			return false
		}
		return true
	})

	doc.Find("*").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		lower := strings.ToLower(el.Text())
		if !containsAny(lower, venueKeywords) {
			return true
		}
		t := textutil.Clean(el.Text())
		if t != "" && len(t) < 100 && (strings.Contains(t, "/") || containsAny(t, h.CountryMarkers)) {
			details.Lugar = t
			return false
		}
		return true
	})

	return details
}

var descriptionSelectors = []string{
	`div[class*="description"]`,
	`div[class*="descripcion"]`,
	`div[class*="info"]`,
	`div[class*="content"]`,
	`div[class*="text"]`,
	`div[class*="body"]`,
}

// extractDescription finds the first content-looking block with enough
// text, falling back to the longest free lines of the page. Truncated
// with a marker past descriptionMaxLen so the artifact stays bounded.
func extractDescription(doc *goquery.Document) string {
	var text string
	for _, sel := range descriptionSelectors {
		t := textutil.Clean(doc.Find(sel).First().Text())
		if len(t) > 50 {
			text = t
			break
		}
	}
	if text == "" {
		var long []string
		for _, line := range strings.Split(doc.Text(), "\n") {
			if trimmed := strings.TrimSpace(line); len(trimmed) > 50 {
				long = append(long, trimmed)
				if len(long) == 3 {
					break
				}
			}
		}
		text = textutil.Clean(strings.Join(long, " "))
	}

	if runes := []rune(text); len(runes) > descriptionMaxLen {
		text = string(runes[:descriptionMaxLen]) + descriptionTruncMarker
	}
	return text
}
