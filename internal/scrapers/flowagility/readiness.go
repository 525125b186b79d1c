package flowagility

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// ReadyState classifies what a participants page settled into.
// Computed fresh per navigation, never cached.
type ReadyState string

const (
	ReadyPending ReadyState = "pending"
	ReadyOk      ReadyState = "ok"
	ReadyEmpty   ReadyState = "empty"
	ReadyLogin   ReadyState = "login"
	ReadyTimeout ReadyState = "timeout"
)

const pollInterval = 250 * time.Millisecond

// AwaitParticipants polls the current page until it can be classified
// or timeout runs out. Priority per poll: a redirect to the login path
// wins, then the presence of booking elements, then empty-roster text.
// The empty check reads visible text only, a page that never finishes
// hydrating but shows "sin participantes" still resolves empty. On the
// first unresolved poll the page gets one scroll nudge to trigger lazy
// rendering, after that it is polling only. Context cancellation
// counts as timeout.
func (s *Scraper) AwaitParticipants(ctx context.Context, timeout time.Duration) (state ReadyState) {
	ctx, span := tracer.Start(ctx, "scraper:AwaitParticipants")
	defer span.End()
	defer func() {
		span.SetAttributes(attribute.String("state", string(state)))
	}()

	presence := presenceScript(s.h)
	deadline := time.Now().Add(timeout)
	nudged := false
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ReadyTimeout
		}

		if loc, err := s.session.Location(ctx); err == nil && strings.Contains(loc, loginPath) {
			return ReadyLogin
		}

		var count int
		if err := s.session.Eval(ctx, presence, &count); err == nil && count > 0 {
			return ReadyOk
		}

		if text, err := s.session.VisibleText(ctx); err == nil && s.matchesEmpty(text) {
			return ReadyEmpty
		}

		if !nudged {
			s.nudge(ctx)
			nudged = true
		}
		if !sleepCtx(ctx, pollInterval) {
			return ReadyTimeout
		}
	}
	return ReadyTimeout
}

func presenceScript(h Heuristics) string {
	return `document.querySelectorAll(` +
		jsString(strings.Join(h.BookingSelectors, ", ")) +
		`).length`
}

func (s *Scraper) matchesEmpty(text string) bool {
	folded := strings.ToLower(text)
	for _, phrase := range s.h.EmptyTexts {
		if phrase != "" && strings.Contains(folded, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// nudge scrolls to the bottom and back to provoke lazy rendering.
func (s *Scraper) nudge(ctx context.Context) {
	if err := s.session.Eval(ctx, `window.scrollTo(0, document.body.scrollHeight)`, nil); err != nil {
		return
	}
	sleepCtx(ctx, pollInterval)
	s.session.Eval(ctx, `window.scrollTo(0, 0)`, nil)
}
