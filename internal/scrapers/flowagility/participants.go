package flowagility

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"flowscrape/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// expandScript clicks every booking toggle so the detail panels render
// before the snapshot. LiveView handles the click events server-side,
// hence the settle wait afterwards.
const expandScript = `(() => {
	const toggles = document.querySelectorAll('[phx-click*="booking_details"], [data-phx-click*="booking_details"]');
	for (const t of toggles) t.click();
	return toggles.length;
})()`

// CollectParticipants scrapes the structured roster of one event:
// navigate to the participants page, wait for readiness, expand every
// booking panel, then parse the snapshot. Best-effort: empty and
// timed-out pages yield an empty roster, only a lost session is an
// error the caller must handle.
func (s *Scraper) CollectParticipants(ctx context.Context, ev Event, readyMax time.Duration) ([]Participant, error) {
	ctx, span := tracer.Start(ctx, "scraper:CollectParticipants")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", ev.ID))

	rosterURL := ev.Enlaces.Participantes
	if rosterURL == "" {
		return nil, nil
	}
	if err := s.OpenRoster(ctx, rosterURL); err != nil {
		return nil, err
	}

	switch state := s.AwaitParticipants(ctx, readyMax); state {
	case ReadyOk:
	case ReadyLogin:
		return nil, fmt.Errorf("%w: session expired on participants page", ErrLoginFailed)
	default:
		slog.DebugContext(ctx, "no roster to collect", "event", ev.ID, "state", string(state))
		return nil, nil
	}

	var toggled int
	if err := s.session.Eval(ctx, expandScript, &toggled); err == nil && toggled > 0 {
		slog.DebugContext(ctx, "expanded booking panels", "count", toggled)
		s.pause(ctx, 800, 1500)
	}

	pageHTML, err := s.session.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot participants page: %w", err)
	}
	participants := ParseParticipants(pageHTML, ev, rosterURL)
	span.SetAttributes(attribute.Int("participants", len(participants)))
	return participants, nil
}

// OpenRoster navigates to a participants page and clears the way for
// readiness polling: wait for the shell to render, dismiss the cookie
// banner if it came back.
func (s *Scraper) OpenRoster(ctx context.Context, rosterURL string) error {
	if err := s.session.Navigate(ctx, rosterURL); err != nil {
		return fmt.Errorf("open participants page: %w", err)
	}
	if err := s.session.WaitVisible(ctx, "body", 20*time.Second); err != nil {
		return fmt.Errorf("participants page never rendered: %w", err)
	}
	s.AcceptCookies(ctx)
	return nil
}

// ParseParticipants walks every booking container in a roster snapshot
// and turns its label/value pairs into Participant records, deduped by
// booking identifier.
func ParseParticipants(pageHTML string, ev Event, rosterURL string) []Participant {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	var out []Participant
	seen := map[string]bool{}
	doc.Find(`[id^="booking-"], [id^="booking_"], [phx-value-booking_id], [phx-value-booking-id], [data-phx-value-booking_id], [data-phx-value-booking-id]`).
		Each(func(_ int, container *goquery.Selection) {
			id := identifierFrom(container)
			if id == "" || seen[id] {
				return
			}
			seen[id] = true

			p := parseBooking(container, id)
			p.ParticipantsURL = rosterURL
			p.EventUUID = ev.ID
			p.EventTitle = ev.Nombre
			out = append(out, p)
		})
	return out
}

var (
	dayHeading = regexp.MustCompile(`(?i)^d[ií]a\s*(\d)\b\s*[:\-]?\s*(.*)$`)
	mangasLine = regexp.MustCompile(`(?i)(\d+)\s*mangas?\b|mangas?\s*[:\-]?\s*(\d+)`)
	dateLike   = regexp.MustCompile(`\d{1,2}[/.\-]\d{1,2}|\d{1,2}\s+de\s+\p{L}+`)
)

// parseBooking reads one expanded booking panel. The panels render as
// alternating label/value lines, so the parse walks leaf-element text
// in document order: a known label captures the following line, a day
// heading switches the day slot the date and heat lines land in.
func parseBooking(container *goquery.Selection, id string) Participant {
	p := Participant{BinomID: id}
	labels := p.fieldLabels()

	var lines []string
	container.Find("*").Each(func(_ int, el *goquery.Selection) {
		if el.Children().Length() > 0 {
			return
		}
		if t := textutil.Clean(el.Text()); t != "" {
			lines = append(lines, t)
		}
	})

	day := -1
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := dayHeading.FindStringSubmatch(line); m != nil {
			n := int(m[1][0] - '0')
			if n >= 1 && n <= 6 {
				day = n - 1
				if rest := textutil.Clean(m[2]); rest != "" {
					p.Days[day].Dia = rest
				} else if i+1 < len(lines) && !isFieldLine(lines[i+1], labels) {
					p.Days[day].Dia = lines[i+1]
					i++
				}
			}
			continue
		}

		if day >= 0 {
			if p.Days[day].Fecha == "" && dateLike.MatchString(line) {
				p.Days[day].Fecha = line
				continue
			}
			if m := mangasLine.FindStringSubmatch(line); m != nil && p.Days[day].Mangas == "" {
				if m[1] != "" {
					p.Days[day].Mangas = m[1]
				} else {
					p.Days[day].Mangas = m[2]
				}
				continue
			}
		}

		if target, ok := labels[strings.ToLower(line)]; ok && i+1 < len(lines) {
			next := lines[i+1]
			if !isFieldLine(next, labels) {
				*target = next
				i++
			}
		}
	}
	return p
}

// fieldLabels maps the platform's panel labels, with their common
// accent variants, onto the record fields.
func (p *Participant) fieldLabels() map[string]*string {
	return map[string]*string{
		"dorsal":             &p.Dorsal,
		"guía":               &p.Guia,
		"guia":               &p.Guia,
		"perro":              &p.Perro,
		"raza":               &p.Raza,
		"edad":               &p.Edad,
		"género":             &p.Genero,
		"genero":             &p.Genero,
		"altura":             &p.Altura,
		"altura (cm)":        &p.Altura,
		"pedigree":           &p.Pedigree,
		"nombre de pedigree": &p.Pedigree,
		"país":               &p.Pais,
		"pais":               &p.Pais,
		"licencia":           &p.Licencia,
		"club":               &p.Club,
		"federación":         &p.Federacion,
		"federacion":         &p.Federacion,
		"equipo":             &p.Equipo,
	}
}

func isFieldLine(line string, labels map[string]*string) bool {
	if _, ok := labels[strings.ToLower(line)]; ok {
		return true
	}
	return dayHeading.MatchString(line)
}
