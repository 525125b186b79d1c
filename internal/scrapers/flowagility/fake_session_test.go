package flowagility

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"flowscrape/lib/browser"
)

var errNoBanner = errors.New("no such element")

// fakeSession is a scripted browser.Session. The zero value behaves
// like a blank page that loads instantly; tests override the fields
// and hooks they care about.
type fakeSession struct {
	mu sync.Mutex

	location   string
	locationFn func() string
	html       string
	text       string

	evalFn  func(script string, out any) error
	fillFn  func(selector, value string) error
	clickFn func(selector string) error

	navigations []string
	fills       map[string]string
	evals       []string
}

var _ browser.Session = (*fakeSession)(nil)

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigations = append(f.navigations, url)
	return nil
}

func (f *fakeSession) Location(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locationFn != nil {
		return f.locationFn(), nil
	}
	return f.location, nil
}

func (f *fakeSession) HTML(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.html, nil
}

func (f *fakeSession) VisibleText(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, nil
}

func (f *fakeSession) Eval(_ context.Context, script string, out any) error {
	f.mu.Lock()
	f.evals = append(f.evals, script)
	fn := f.evalFn
	f.mu.Unlock()
	if fn != nil {
		return fn(script, out)
	}
	return nil
}

func (f *fakeSession) WaitVisible(context.Context, string, time.Duration) error {
	return nil
}

func (f *fakeSession) Fill(_ context.Context, selector, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fillFn != nil {
		return f.fillFn(selector, value)
	}
	if f.fills == nil {
		f.fills = map[string]string{}
	}
	f.fills[selector] = value
	return nil
}

func (f *fakeSession) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clickFn != nil {
		return f.clickFn(selector)
	}
	return nil
}

func (f *fakeSession) Close() error { return nil }

// evalCount reports how many evaluated scripts contain the fragment.
func (f *fakeSession) evalCount(fragment string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, script := range f.evals {
		if strings.Contains(script, fragment) {
			n++
		}
	}
	return n
}

// writeInt scripts an eval result for polls that expect a number.
func writeInt(out any, n int) error {
	if p, ok := out.(*int); ok && p != nil {
		*p = n
	}
	return nil
}

// isPresencePoll matches the readiness booking-element query, which is
// the only bare querySelectorAll expression the scraper evaluates.
func isPresencePoll(script string, out any) bool {
	return out != nil && strings.HasPrefix(script, "document.querySelectorAll")
}
