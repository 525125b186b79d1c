// Package pipeline sequences the scraping stages over the discovered
// events: detail-page enrichment, participant-count resolution, and
// structured roster collection, all single-threaded on one browser
// session. Each event runs inside nested time budgets and comes out as
// exactly one record no matter what failed inside it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"flowscrape/internal/config"
	"flowscrape/internal/scrapers/flowagility"
	"flowscrape/lib/retryutil"
	"flowscrape/lib/timezone"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("pipeline")

// Record status strings. These land in the serialized output, so they
// stay in the platform's Spanish like the rest of the schema.
const (
	StatusUnavailable    = "No disponible"
	StatusNoParticipants = "Sin participantes"
	StatusTimeout        = "Timeout esperando participantes"
)

func statusCount(n int) string {
	return fmt.Sprintf("%d participantes", n)
}

func statusError(v any) string {
	return fmt.Sprintf("Error: %v", v)
}

// EventScraper is the slice of the scraper the orchestrator drives.
type EventScraper interface {
	Login(ctx context.Context) error
	DiscoverEvents(ctx context.Context) ([]flowagility.Event, error)
	ScrapeInfo(ctx context.Context, infoURL string) (flowagility.InfoDetails, error)
	OpenRoster(ctx context.Context, rosterURL string) error
	AwaitParticipants(ctx context.Context, timeout time.Duration) flowagility.ReadyState
	CountParticipants(ctx context.Context) int
	CollectParticipants(ctx context.Context, ev flowagility.Event, readyMax time.Duration) ([]flowagility.Participant, error)
	Snapshot(ctx context.Context) (string, error)
}

// Recorder receives one outcome per processed event, for the run
// journal. Implementations swallow their own errors.
type Recorder interface {
	RecordEvent(ctx context.Context, ev flowagility.DetailedEvent, took time.Duration)
}

type Orchestrator struct {
	scraper  EventScraper
	cfg      config.Config
	recorder Recorder
	dump     func(eventID, pageHTML string)
	run      Budget
}

type Options struct {
	Scraper EventScraper
	Config  config.Config
	// Recorder is optional, nil skips journaling.
	Recorder Recorder
	// DumpUnresolved, when set, receives the page HTML of rosters the
	// readiness poll gave up on.
	DumpUnresolved func(eventID, pageHTML string)
}

// New builds an orchestrator and starts the global run budget, so
// construct it when the run actually begins.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		scraper:  opts.Scraper,
		cfg:      opts.Config,
		recorder: opts.Recorder,
		dump:     opts.DumpUnresolved,
		run:      NewBudget(opts.Config.MaxRuntime),
	}
}

// Discover lists the events on the platform, capped to the configured
// limit.
func (o *Orchestrator) Discover(ctx context.Context) ([]flowagility.Event, error) {
	ctx, span := tracer.Start(ctx, "pipeline:Discover")
	defer span.End()

	events, err := o.scraper.DiscoverEvents(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "event discovery failed")
		return nil, err
	}
	if n := o.cfg.LimitEvents; n > 0 && len(events) > n {
		slog.InfoContext(ctx, "limiting run to first events", "found", len(events), "limit", n)
		events = events[:n]
	}
	return events, nil
}

// EnrichEvents runs the info and participant-count stages over the
// events, sequentially and in discovery order. Every event that enters
// before the global deadline produces exactly one record; failures
// inside an event become its status, never an aborted batch.
func (o *Orchestrator) EnrichEvents(ctx context.Context, events []flowagility.Event) []flowagility.DetailedEvent {
	ctx, span := tracer.Start(ctx, "pipeline:EnrichEvents")
	defer span.End()

	detailed := make([]flowagility.DetailedEvent, 0, len(events))
	for i, ev := range events {
		if o.run.Expired() {
			slog.WarnContext(ctx, "global deadline reached, stopping enrichment",
				"processed", len(detailed), "total", len(events))
			break
		}
		if ctx.Err() != nil {
			slog.WarnContext(ctx, "run cancelled", "processed", len(detailed))
			break
		}

		start := time.Now()
		rec := o.processEvent(ctx, ev)
		detailed = append(detailed, rec)
		if o.recorder != nil {
			o.recorder.RecordEvent(ctx, rec, time.Since(start))
		}
		slog.InfoContext(ctx, "event processed",
			"event", ev.ID,
			"status", rec.ParticipantesInfo,
			"progress", fmt.Sprintf("%d/%d", i+1, len(events)))

		if i < len(events)-1 {
			o.pause(ctx, 600, 1400)
		}
	}
	span.SetAttributes(attribute.Int("events", len(detailed)))
	return detailed
}

// processEvent runs both stages for one event under its own budget.
// Panics are contained here: the record comes back with an error
// status and the loop moves on.
func (o *Orchestrator) processEvent(ctx context.Context, ev flowagility.Event) (rec flowagility.DetailedEvent) {
	ctx, span := tracer.Start(ctx, "pipeline:processEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", ev.ID))

	rec = flowagility.DetailedEvent{Event: ev, ParticipantesInfo: StatusUnavailable}
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "event processing panicked", "event", ev.ID, "panic", r)
			span.SetStatus(codes.Error, "event processing panicked")
			rec = flowagility.DetailedEvent{Event: ev, ParticipantesInfo: statusError(r)}
		}
		rec.TimestampExtraccion = timezone.Now().Format(time.RFC3339)
	}()

	budget := NewBudget(o.cfg.PerEventMax)

	o.enrichInfo(ctx, &rec)

	// discovery constructs a roster link for every event with an id,
	// an empty one means there is nothing to resolve
	if rec.Enlaces.Participantes == "" {
		return rec
	}
	rec.NumeroParticipantes, rec.ParticipantesInfo = o.resolveRoster(ctx, &rec.Event, budget)
	return rec
}

// enrichInfo merges detail-page data into the record: club and venue
// only when discovery left them empty or placeholder, plus the full
// title and description when the page has them. Failures log and leave
// the record untouched.
func (o *Orchestrator) enrichInfo(ctx context.Context, rec *flowagility.DetailedEvent) {
	if rec.Enlaces.Info == "" {
		return
	}
	details, err := o.scraper.ScrapeInfo(ctx, rec.Enlaces.Info)
	if err != nil {
		slog.WarnContext(ctx, "info stage failed", "event", rec.ID, "error", err)
		return
	}
	if details.Club != "" && placeholder(rec.Club) {
		rec.Club = details.Club
	}
	if details.Lugar != "" && placeholder(rec.Lugar) {
		rec.Lugar = details.Lugar
	}
	if details.Titulo != "" || details.Descripcion != "" {
		rec.InformacionAdicional = &flowagility.AdditionalInfo{
			TituloCompleto: details.Titulo,
			Descripcion:    details.Descripcion,
		}
	}
	rec.ProcesadoInfo = true
}

func placeholder(s string) bool {
	return s == "" || s == "N/D"
}

// resolveRoster opens the participants page and turns it into a count
// and a status string. The readiness wait gets the per-page budget
// clamped by what is left of the event budget; a login redirect earns
// exactly one re-login and one retry before counting as a timeout.
func (o *Orchestrator) resolveRoster(ctx context.Context, ev *flowagility.Event, budget Budget) (int, string) {
	open := func() error {
		return o.scraper.OpenRoster(ctx, ev.Enlaces.Participantes)
	}
	if err := retryutil.Do(ctx, 2, time.Second, open); err != nil {
		slog.WarnContext(ctx, "participants page failed to open", "event", ev.ID, "error", err)
		return 0, statusError(err)
	}

	state := o.scraper.AwaitParticipants(ctx, budget.Clamp(o.cfg.PerPageMax))
	if state == flowagility.ReadyLogin {
		slog.WarnContext(ctx, "session expired mid-run, logging in again", "event", ev.ID)
		state = o.retryAfterRelogin(ctx, open, budget)
	}

	switch state {
	case flowagility.ReadyEmpty:
		return 0, StatusNoParticipants
	case flowagility.ReadyOk:
		if n := o.scraper.CountParticipants(ctx); n > 0 {
			return n, statusCount(n)
		}
		return 0, StatusNoParticipants
	default:
		o.dumpUnresolved(ctx, ev.ID)
		return 0, StatusTimeout
	}
}

// retryAfterRelogin re-authenticates once and repeats the open+await
// sequence. Anything short of a clean readiness result degrades to
// timeout, a second login redirect included.
func (o *Orchestrator) retryAfterRelogin(ctx context.Context, open func() error, budget Budget) flowagility.ReadyState {
	if err := o.scraper.Login(ctx); err != nil {
		slog.ErrorContext(ctx, "re-login failed", "error", err)
		return flowagility.ReadyTimeout
	}
	if err := open(); err != nil {
		slog.WarnContext(ctx, "participants page failed to open after re-login", "error", err)
		return flowagility.ReadyTimeout
	}
	state := o.scraper.AwaitParticipants(ctx, budget.Clamp(o.cfg.PerPageMax))
	if state == flowagility.ReadyLogin {
		return flowagility.ReadyTimeout
	}
	return state
}

func (o *Orchestrator) dumpUnresolved(ctx context.Context, eventID string) {
	if o.dump == nil {
		return
	}
	pageHTML, err := o.scraper.Snapshot(ctx)
	if err != nil || pageHTML == "" {
		return
	}
	o.dump(eventID, pageHTML)
}

// CollectRosters scrapes the structured per-participant panels of
// every event that has a roster link. Slow and best-effort by
// contract: a failed page logs and skips, a lost session re-logs and
// retries the event, a failed re-login abandons the batch since
// nothing further can load.
func (o *Orchestrator) CollectRosters(ctx context.Context, events []flowagility.DetailedEvent) []flowagility.Participant {
	ctx, span := tracer.Start(ctx, "pipeline:CollectRosters")
	defer span.End()

	var all []flowagility.Participant
	for i, ev := range events {
		if o.run.Expired() || ctx.Err() != nil {
			slog.WarnContext(ctx, "stopping roster collection early", "collected", len(all))
			break
		}
		if ev.Enlaces.Participantes == "" {
			continue
		}

		participants, err := o.scraper.CollectParticipants(ctx, ev.Event, o.cfg.ReadyMax)
		if errors.Is(err, flowagility.ErrLoginFailed) {
			slog.WarnContext(ctx, "session expired during roster collection", "event", ev.ID)
			if loginErr := o.scraper.Login(ctx); loginErr != nil {
				slog.ErrorContext(ctx, "re-login failed, abandoning roster collection", "error", loginErr)
				break
			}
			participants, err = o.scraper.CollectParticipants(ctx, ev.Event, o.cfg.ReadyMax)
		}
		if err != nil {
			slog.WarnContext(ctx, "roster collection failed", "event", ev.ID, "error", err)
			continue
		}

		all = append(all, participants...)
		slog.DebugContext(ctx, "roster collected", "event", ev.ID, "participants", len(participants))

		if i < len(events)-1 {
			o.pause(ctx, 600, 1400)
		}
	}
	span.SetAttributes(attribute.Int("participants", len(all)))
	return all
}

// pause sleeps a randomized politeness interval between events.
func (o *Orchestrator) pause(ctx context.Context, minMs, maxMs int) {
	n, err := random.IntRange(minMs, maxMs)
	if err != nil {
		n = minMs
	}
	timer := time.NewTimer(time.Duration(n) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
