// Package flowagility scrapes the FlowAgility event platform: an
// authenticated LiveView SPA listing agility competitions, their
// detail pages, and per-event participant rosters. Everything here
// drives a browser.Session, the pure parsing helpers take HTML
// snapshots so they stay testable without Chrome.
package flowagility

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"flowscrape/lib/browser"
	"flowscrape/lib/restyutil"
	"flowscrape/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/flowagility")

var ErrLoginFailed = fmt.Errorf("failed to login to flowagility")

const (
	DefaultBaseURL = "https://www.flowagility.com"

	loginPath  = "/user/login"
	eventsPath = "/zone/events"
)

type Scraper struct {
	session  browser.Session
	h        Heuristics
	baseURL  string
	email    string
	password string

	maxScrolls int
	scrollWait time.Duration
}

type Options struct {
	Session  browser.Session
	Email    string
	Password string
	// BaseURL defaults to the production platform.
	BaseURL    string
	Heuristics *Heuristics
	// listing-page lazy-load scrolling
	MaxScrolls int
	ScrollWait time.Duration
}

func NewScraper(opts Options) *Scraper {
	h := DefaultHeuristics()
	if opts.Heuristics != nil {
		h = *opts.Heuristics
	}
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxScrolls := opts.MaxScrolls
	if maxScrolls <= 0 {
		maxScrolls = 15
	}
	scrollWait := opts.ScrollWait
	if scrollWait <= 0 {
		scrollWait = 3 * time.Second
	}
	return &Scraper{
		session:    opts.Session,
		h:          h,
		baseURL:    baseURL,
		email:      opts.Email,
		password:   opts.Password,
		maxScrolls: maxScrolls,
		scrollWait: scrollWait,
	}
}

var (
	emailSelectors = []string{
		`input[name="user[email]"]`,
		`#user_email`,
		`input[type="email"]`,
	}
	passwordSelectors = []string{
		`input[name="user[password]"]`,
		`#user_password`,
		`input[type="password"]`,
	}
	submitSelectors = []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
	}
)

// Login signs the session in through the login form. Returns nil when
// the session is already authenticated. Wraps ErrLoginFailed whenever
// the platform keeps us on the login page, including the
// missing-credentials case.
func (s *Scraper) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "scraper:Login")
	defer span.End()

	if s.email == "" || s.password == "" {
		span.SetStatus(codes.Error, "missing credentials")
		return fmt.Errorf("%w: FLOW_EMAIL/FLOW_PASS not set", ErrLoginFailed)
	}

	err := s.session.Navigate(ctx, s.baseURL+loginPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open login page")
		return err
	}
	if err := s.session.WaitVisible(ctx, "body", 20*time.Second); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login page never rendered")
		return err
	}
	s.AcceptCookies(ctx)
	s.pause(ctx, 800, 1600)

	// an authenticated session gets redirected off the login path
	if loc, err := s.session.Location(ctx); err == nil && !strings.Contains(loc, loginPath) {
		slog.DebugContext(ctx, "session already authenticated", "location", loc)
		return nil
	}

	if err := s.fillFirst(ctx, emailSelectors, s.email); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "email field not found")
		return fmt.Errorf("%w: email field: %v", ErrLoginFailed, err)
	}
	s.pause(ctx, 400, 900)
	if err := s.fillFirst(ctx, passwordSelectors, s.password); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password field not found")
		return fmt.Errorf("%w: password field: %v", ErrLoginFailed, err)
	}
	s.pause(ctx, 400, 900)
	if err := s.clickFirst(ctx, submitSelectors); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit button not found")
		return fmt.Errorf("%w: submit: %v", ErrLoginFailed, err)
	}

	// the platform redirects on success, poll until the url moves
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		loc, err := s.session.Location(ctx)
		if err == nil && loc != "" && !strings.Contains(loc, loginPath) {
			slog.InfoContext(ctx, "logged in to flowagility")
			return nil
		}
		if !sleepCtx(ctx, 250*time.Millisecond) {
			break
		}
	}

	span.SetStatus(codes.Error, ErrLoginFailed.Error())
	return fmt.Errorf("%w: still on the login page", ErrLoginFailed)
}

// Snapshot returns the current page HTML, for debug dumps of pages
// the heuristics could not resolve.
func (s *Scraper) Snapshot(ctx context.Context) (string, error) {
	return s.session.HTML(ctx)
}

var cookieButtonSelectors = []string{
	`button[aria-label="Accept all"]`,
	`button[aria-label="Aceptar todo"]`,
	`[data-testid="uc-accept-all-button"]`,
	`button[mode="primary"]`,
}

const cookieFallbackScript = `(() => {
	const pat = /aceptar|accept|consent|agree/i;
	for (const b of document.querySelectorAll('button, [role="button"]')) {
		if (pat.test(b.textContent)) { b.click(); return true; }
	}
	return false;
})()`

// AcceptCookies dismisses consent banners best-effort. Banners reappear
// on some navigations so this is safe to call repeatedly.
func (s *Scraper) AcceptCookies(ctx context.Context) {
	for _, sel := range cookieButtonSelectors {
		clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.session.Click(clickCtx, sel)
		cancel()
		if err == nil {
			slog.DebugContext(ctx, "cookie banner dismissed", "selector", sel)
			s.pause(ctx, 300, 600)
			return
		}
	}
	var clicked bool
	if err := s.session.Eval(ctx, cookieFallbackScript, &clicked); err == nil && clicked {
		slog.DebugContext(ctx, "cookie banner dismissed via text scan")
		s.pause(ctx, 300, 600)
	}
}

func (s *Scraper) fillFirst(ctx context.Context, selectors []string, value string) error {
	var lastErr error
	for _, sel := range selectors {
		fillCtx, cancel := context.WithTimeout(ctx, 4*time.Second)
		err := s.session.Fill(fillCtx, sel, value)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("no selector matched: %w", lastErr)
}

func (s *Scraper) clickFirst(ctx context.Context, selectors []string) error {
	var lastErr error
	for _, sel := range selectors {
		clickCtx, cancel := context.WithTimeout(ctx, 4*time.Second)
		err := s.session.Click(clickCtx, sel)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("no selector matched: %w", lastErr)
}

// pause sleeps a randomized interval, the jitter keeps the request
// rhythm from looking scripted.
func (s *Scraper) pause(ctx context.Context, minMs, maxMs int) {
	n, err := random.IntRange(minMs, maxMs)
	if err != nil {
		n = minMs
	}
	sleepCtx(ctx, time.Duration(n)*time.Millisecond)
}

// sleepCtx sleeps d unless ctx ends first, reporting whether the full
// sleep happened.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Probe checks platform reachability over plain HTTP before a browser
// ever launches, so DNS and outage problems surface as a clear error
// instead of a Chrome timeout.
type Probe struct {
	Http *resty.Client
}

var instrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput dumps every probe exchange into out.
// Call it before NewProbe.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	instrumentOutput = out
}

func NewProbe(baseURL, userAgent string) (*Probe, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	if userAgent != "" {
		client.SetHeader("user-agent", userAgent)
	}
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsed.Hostname()))
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/flowagility/http")
	restyutil.CaptureExchanges(client, instrumentOutput)

	return &Probe{Http: client}, nil
}

func (p *Probe) Check(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "probe:Check")
	defer span.End()

	res, err := p.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		// a refused cross-domain redirect still proves the platform
		// answered
		if strings.Contains(err.Error(), "DomainCheckRedirectPolicy") {
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "platform unreachable")
		return fmt.Errorf("platform unreachable: %w", err)
	}
	if res.StatusCode() >= 500 {
		span.SetStatus(codes.Error, "platform returned server error")
		return fmt.Errorf("platform returned %s", res.Status())
	}
	return nil
}
