package flowagility

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"flowscrape/lib/htmlutil"
	"flowscrape/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// DiscoverEvents loads the listing page, scrolls until the lazy list
// stops growing, and parses every event card. The session must already
// be logged in. Duplicated cards (the list re-renders while scrolling)
// collapse onto the first occurrence.
func (s *Scraper) DiscoverEvents(ctx context.Context) ([]Event, error) {
	ctx, span := tracer.Start(ctx, "scraper:DiscoverEvents")
	defer span.End()

	err := s.session.Navigate(ctx, s.baseURL+eventsPath)
	if err != nil {
		return nil, fmt.Errorf("open events listing: %w", err)
	}
	if err := s.session.WaitVisible(ctx, "body", 25*time.Second); err != nil {
		return nil, fmt.Errorf("events listing never rendered: %w", err)
	}
	s.AcceptCookies(ctx)

	s.fullScroll(ctx)
	s.pause(ctx, 1500, 2500)

	pageHTML, err := s.session.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot events listing: %w", err)
	}

	events := ParseEvents(ctx, pageHTML, s.baseURL, s.h)
	span.SetAttributes(attribute.Int("events", len(events)))
	slog.InfoContext(ctx, "discovered events", "count", len(events))
	return events, nil
}

// fullScroll keeps scrolling to the bottom until the document height
// stops changing or the scroll budget runs out.
func (s *Scraper) fullScroll(ctx context.Context) {
	var lastHeight int
	if err := s.session.Eval(ctx, `document.body.scrollHeight`, &lastHeight); err != nil {
		return
	}
	for i := 0; i < s.maxScrolls; i++ {
		if err := s.session.Eval(ctx, `window.scrollTo(0, document.body.scrollHeight)`, nil); err != nil {
			return
		}
		if !sleepCtx(ctx, s.scrollWait) {
			return
		}
		var height int
		if err := s.session.Eval(ctx, `document.body.scrollHeight`, &height); err != nil {
			return
		}
		if height == lastHeight {
			break
		}
		lastHeight = height
	}
}

const (
	eventCardSelector = `div.group.mb-6`
	eventNameSelector = `div.font-caption.text-lg.text-black.truncate.-mt-1`
	eventClubSelector = `div.text-xs.mb-0\.5.mt-0\.5`
	eventCardIDPrefix = "event-card-"
)

// ParseEvents extracts the event cards out of a listing snapshot.
// Cards that fail to parse are skipped, never fatal.
func ParseEvents(ctx context.Context, pageHTML, baseURL string, h Heuristics) []Event {
	ctx, span := tracer.Start(ctx, "ParseEvents")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		slog.WarnContext(ctx, "unparseable events listing", "err", err)
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	var events []Event
	seen := map[string]bool{}
	doc.Find(eventCardSelector).Each(func(i int, card *goquery.Selection) {
		ev := parseEventCard(ctx, card, base, baseURL, h)
		if ev.ID != "" {
			if seen[ev.ID] {
				return
			}
			seen[ev.ID] = true
		}
		events = append(events, ev)
		slog.DebugContext(ctx, "parsed event card", "index", i, "id", ev.ID, "nombre", ev.Nombre)
	})
	return events
}

func parseEventCard(ctx context.Context, card *goquery.Selection, base *url.URL, baseURL string, h Heuristics) Event {
	ev := Event{PaisBandera: "🇪🇸"}

	ev.ID = strings.TrimPrefix(card.AttrOr("id", ""), eventCardIDPrefix)
	ev.Nombre = textutil.Clean(card.Find(eventNameSelector).First().Text())

	small := card.Find("div.text-xs")
	ev.Fechas = textutil.Clean(small.Eq(0).Text())
	if small.Length() > 1 {
		ev.Organizacion = textutil.Clean(small.Eq(1).Text())
	}

	ev.Club = textutil.Clean(card.Find(eventClubSelector).First().Text())
	if ev.Club == "" {
		// any small line that is neither a venue nor a date range
		small.EachWithBreak(func(_ int, d *goquery.Selection) bool {
			t := textutil.Clean(d.Text())
			if t != "" && !strings.Contains(t, "/") && !containsAny(t, h.CountryMarkers) {
				ev.Club = t
				return false
			}
			return true
		})
	}

	// venue lines look like "Town / Region", prefer ones naming a
	// known country or city
	small.EachWithBreak(func(_ int, d *goquery.Selection) bool {
		t := textutil.Clean(d.Text())
		if strings.Contains(t, "/") && containsAny(t, h.VenueMarkers) {
			ev.Lugar = t
			return false
		}
		return true
	})
	if ev.Lugar == "" {
		small.EachWithBreak(func(_ int, d *goquery.Selection) bool {
			t := textutil.Clean(d.Text())
			if strings.Contains(t, "/") && len(t) < 100 {
				ev.Lugar = t
				return false
			}
			return true
		})
	}

	for _, anchor := range htmlutil.GetAnchors(ctx, card.Find("a")) {
		if anchor.Href == "" {
			continue
		}
		if ev.Enlaces.Info == "" && strings.Contains(anchor.Href, "/info/") {
			ev.Enlaces.Info = absoluteURL(base, anchor.Href)
		}
		if ev.Enlaces.Participantes == "" &&
			(strings.Contains(anchor.Href, "/participants_list") || strings.Contains(anchor.Href, "/participantes")) {
			ev.Enlaces.Participantes = absoluteURL(base, anchor.Href)
		}
	}
	if ev.Enlaces.Participantes == "" && ev.ID != "" {
		ev.Enlaces.Participantes = fmt.Sprintf("%s/zone/events/%s/participants_list", baseURL, ev.ID)
	}

	if flag := textutil.Clean(card.Find("div.text-md").First().Text()); flag != "" {
		ev.PaisBandera = flag
	}
	return ev
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func absoluteURL(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(parsed).String()
}
