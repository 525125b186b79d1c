package pipeline

import (
	"context"
	"time"

	"flowscrape/internal/scrapers/flowagility"
)

// fakeScraper is a scripted EventScraper. The orchestrator is
// sequential, so no locking: hooks run one at a time. Nil hooks fall
// back to benign defaults.
type fakeScraper struct {
	loginFn    func() error
	discoverFn func() ([]flowagility.Event, error)
	infoFn     func(infoURL string) (flowagility.InfoDetails, error)
	openFn     func(rosterURL string) error
	awaitFn    func(timeout time.Duration) flowagility.ReadyState
	countFn    func() int
	collectFn  func(ev flowagility.Event) ([]flowagility.Participant, error)
	snapshotFn func() (string, error)

	logins   int
	opens    []string
	awaits   []time.Duration
	collects []string
}

var _ EventScraper = (*fakeScraper)(nil)

func (f *fakeScraper) Login(context.Context) error {
	f.logins++
	if f.loginFn != nil {
		return f.loginFn()
	}
	return nil
}

func (f *fakeScraper) DiscoverEvents(context.Context) ([]flowagility.Event, error) {
	if f.discoverFn != nil {
		return f.discoverFn()
	}
	return nil, nil
}

func (f *fakeScraper) ScrapeInfo(_ context.Context, infoURL string) (flowagility.InfoDetails, error) {
	if f.infoFn != nil {
		return f.infoFn(infoURL)
	}
	return flowagility.InfoDetails{}, nil
}

func (f *fakeScraper) OpenRoster(_ context.Context, rosterURL string) error {
	f.opens = append(f.opens, rosterURL)
	if f.openFn != nil {
		return f.openFn(rosterURL)
	}
	return nil
}

func (f *fakeScraper) AwaitParticipants(_ context.Context, timeout time.Duration) flowagility.ReadyState {
	f.awaits = append(f.awaits, timeout)
	if f.awaitFn != nil {
		return f.awaitFn(timeout)
	}
	return flowagility.ReadyOk
}

func (f *fakeScraper) CountParticipants(context.Context) int {
	if f.countFn != nil {
		return f.countFn()
	}
	return 0
}

func (f *fakeScraper) CollectParticipants(_ context.Context, ev flowagility.Event, _ time.Duration) ([]flowagility.Participant, error) {
	f.collects = append(f.collects, ev.ID)
	if f.collectFn != nil {
		return f.collectFn(ev)
	}
	return nil, nil
}

func (f *fakeScraper) Snapshot(context.Context) (string, error) {
	if f.snapshotFn != nil {
		return f.snapshotFn()
	}
	return "", nil
}

// listedEvent builds a discovery-shaped event with a constructed
// roster link, the way ParseEvents leaves them.
func listedEvent(id string) flowagility.Event {
	return flowagility.Event{
		ID:     id,
		Nombre: "Evento " + id,
		Enlaces: flowagility.EventLinks{
			Participantes: "https://flow.test/zone/events/" + id + "/participants_list",
		},
	}
}
