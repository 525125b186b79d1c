package flowagility

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"flowscrape/lib/htmlutil"
	"flowscrape/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// bookingAttrs are the attribute spellings that carry a booking id
// directly. Element ids like "booking-12345" carry it as a numeric
// substring instead.
var bookingAttrs = []string{
	"phx-value-booking_id",
	"phx-value-booking-id",
	"data-phx-value-booking_id",
	"data-phx-value-booking-id",
}

var numericID = regexp.MustCompile(`\d{3,}`)

// identifierFrom extracts the booking identifier of one element:
// the first booking attribute value, else the first >=3 digit run of
// the element id. Empty when the element carries neither.
func identifierFrom(sel *goquery.Selection) string {
	for _, attr := range bookingAttrs {
		if v := strings.TrimSpace(sel.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	if id := sel.AttrOr("id", ""); id != "" {
		return numericID.FindString(id)
	}
	return ""
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func jsStrings(items []string) string {
	b, _ := json.Marshal(items)
	return string(b)
}

// countScript mirrors identifierFrom in the live DOM: dedupe by
// extracted identifier, fall back to the raw node count when no
// element yields one.
func countScript(h Heuristics) string {
	return `(() => {
	const nodes = document.querySelectorAll(` + jsString(strings.Join(h.BookingSelectors, ", ")) + `);
	const attrs = ` + jsStrings(bookingAttrs) + `;
	const ids = new Set();
	for (const n of nodes) {
		let v = "";
		for (const a of attrs) {
			v = n.getAttribute(a) || "";
			if (v) break;
		}
		if (!v) {
			const m = (n.id || "").match(/\d{3,}/);
			if (m) v = m[0];
		}
		if (v) ids.add(v);
	}
	return ids.size || nodes.length || 0;
})()`
}

// CountParticipants resolves how many participants the current page
// shows. A couple of small scrolls force lazy rendering, then the live
// identifier scan runs, then the snapshot cascade over the page HTML.
// Counting never fails: every miss resolves to 0 and the caller's
// status string records the difference between empty and undetermined.
func (s *Scraper) CountParticipants(ctx context.Context) int {
	ctx, span := tracer.Start(ctx, "scraper:CountParticipants")
	defer span.End()

	for i := 0; i < s.h.SoftScrolls; i++ {
		if err := s.session.Eval(ctx, `window.scrollBy(0, Math.max(400, window.innerHeight / 2))`, nil); err != nil {
			break
		}
		if !sleepCtx(ctx, 600*time.Millisecond) {
			break
		}
	}

	var live int
	if err := s.session.Eval(ctx, countScript(s.h), &live); err != nil {
		slog.DebugContext(ctx, "live participant count failed", "err", err)
	} else if live > 0 {
		span.SetAttributes(attribute.Int("count", live), attribute.String("strategy", "identifier-scan-live"))
		return live
	}

	pageHTML, err := s.session.HTML(ctx)
	if err != nil {
		slog.DebugContext(ctx, "page snapshot failed", "err", err)
		return 0
	}
	count := CountFromHTML(pageHTML, s.h)
	span.SetAttributes(attribute.Int("count", count))
	return count
}

// countStrategy is one rung of the cascade: inspect a snapshot, report
// a count and whether this strategy is able to answer at all.
type countStrategy struct {
	name string
	run  func(doc *goquery.Document, h Heuristics) (int, bool)
}

var countStrategies = []countStrategy{
	{"identifier-scan", countByIdentifiers},
	{"table-shape", countByTableShape},
	{"free-text", countByText},
}

// CountFromHTML runs the counting cascade over an HTML snapshot:
// booking-identifier scan with dedupe, then table shape, then free-text
// patterns. Strategies are tried in order and the first one able to
// answer wins. No strategy answering means 0.
func CountFromHTML(pageHTML string, h Heuristics) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		slog.Debug("unparseable participants page", "err", err)
		return 0
	}
	for _, strategy := range countStrategies {
		if count, ok := strategy.run(doc, h); ok {
			slog.Debug("participant count resolved",
				"strategy", strategy.name, "count", count)
			return count
		}
	}
	return 0
}

func countByIdentifiers(doc *goquery.Document, h Heuristics) (int, bool) {
	sel := doc.Find(strings.Join(h.BookingSelectors, ", "))
	ids := map[string]struct{}{}
	sel.Each(func(_ int, el *goquery.Selection) {
		if id := identifierFrom(el); id != "" {
			ids[id] = struct{}{}
		}
	})
	if len(ids) > 0 {
		return len(ids), true
	}
	if sel.Length() > 0 {
		return sel.Length(), true
	}
	return 0, false
}

func countByTableShape(doc *goquery.Document, h Heuristics) (int, bool) {
	count, ok := 0, false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return true
		}
		header := rows.First().Text()
		if textutil.MatchesAny(header, h.HeaderKeywords, h.HeaderFuzz) {
			count, ok = rows.Length()-1, true
			return false
		}
		if rows.Length() >= h.TableRowsMin && rows.Length() <= h.TableRowsMax {
			count, ok = rows.Length()-1, true
			return false
		}
		return true
	})
	return count, ok
}

func countByText(doc *goquery.Document, h Heuristics) (int, bool) {
	text := strings.ToLower(htmlutil.PageText(doc))
	for _, pattern := range h.CountPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			slog.Warn("bad count pattern, skipping", "pattern", pattern, "err", err)
			continue
		}
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			if len(match) < 2 {
				continue
			}
			n, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			if n >= h.TextCountMin && n <= h.TextCountMax {
				return n, true
			}
		}
	}
	return 0, false
}
