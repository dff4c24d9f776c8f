package web2pdf

// Notes:
// - fakeEngine, fakeBrowser and spyPage stand in for go-rod in unit tests
// - spyPage records every call as "method" or "method:arg" so tests can
//   assert exact call order
// - fakeBrowser.Close simulates the process exiting: disconnect observers
//   run on their own goroutine, like the real watcher
// - hooks let a test inject failures, panics, crashes or cancellation at
//   any call

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"
)

// pdfMagic is what every fake document starts with.
var pdfMagic = []byte("%PDF-1.7\n%fake\n")

// Compile-time interface checks.
var (
	_ Engine  = (*fakeEngine)(nil)
	_ Browser = (*fakeBrowser)(nil)
	_ Page    = (*spyPage)(nil)
)

// ---------------------------------------------------------------------------
// fakeEngine
// ---------------------------------------------------------------------------

type fakeEngine struct {
	// launchErr fails every launch.
	launchErr error
	// hang blocks Launch until its context ends.
	hang bool
	// pageErr fails NewPage.
	pageErr error
	// hook is installed on every page created.
	hook func(call string) error

	mu       sync.Mutex
	launches []LaunchOptions
	browsers []*fakeBrowser
}

func (e *fakeEngine) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	e.mu.Lock()
	e.launches = append(e.launches, opts)
	e.mu.Unlock()

	if e.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.launchErr != nil {
		return nil, e.launchErr
	}

	// Like a real browser, the process owns its profile directory.
	if err := os.MkdirAll(opts.ScratchDir, 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(opts.ScratchDir+"/Local State", []byte("{}"), 0o600); err != nil {
		return nil, err
	}

	b := &fakeBrowser{engine: e, connected: true}
	e.mu.Lock()
	e.browsers = append(e.browsers, b)
	e.mu.Unlock()
	return b, nil
}

func (e *fakeEngine) launchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.launches)
}

func (e *fakeEngine) lastLaunch(t *testing.T) LaunchOptions {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.launches) == 0 {
		t.Fatal("engine was never launched")
	}
	return e.launches[len(e.launches)-1]
}

func (e *fakeEngine) lastBrowser(t *testing.T) *fakeBrowser {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.browsers) == 0 {
		t.Fatal("no browser was started")
	}
	return e.browsers[len(e.browsers)-1]
}

// ---------------------------------------------------------------------------
// fakeBrowser
// ---------------------------------------------------------------------------

type fakeBrowser struct {
	engine *fakeEngine

	mu           sync.Mutex
	connected    bool
	closeCalls   int
	onDisconnect []func()
	pages        []*spyPage
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	if b.engine.pageErr != nil {
		return nil, b.engine.pageErr
	}
	p := &spyPage{hook: b.engine.hook, pdf: pdfMagic}
	b.mu.Lock()
	b.pages = append(b.pages, p)
	b.mu.Unlock()
	return p, nil
}

func (b *fakeBrowser) OnDisconnect(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDisconnect = append(b.onDisconnect, fn)
}

func (b *fakeBrowser) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	b.closeCalls++
	if !b.connected {
		b.mu.Unlock()
		return nil
	}
	b.connected = false
	fns := b.onDisconnect
	b.mu.Unlock()

	go func() {
		for _, fn := range fns {
			fn()
		}
	}()
	return nil
}

func (b *fakeBrowser) closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeCalls
}

func (b *fakeBrowser) page(t *testing.T) *spyPage {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pages) == 0 {
		t.Fatal("no page was opened")
	}
	return b.pages[0]
}

// ---------------------------------------------------------------------------
// spyPage
// ---------------------------------------------------------------------------

type spyPage struct {
	hook func(call string) error
	pdf  []byte

	mu         sync.Mutex
	calls      []string
	cookies    []Cookie
	pdfOpts    []PDFOptions
	navigate   []NavigateOptions
	closed     bool
	closeCalls int
	onError    []func(error)
}

// record logs the call and runs the hook, which may fail, panic or block.
func (p *spyPage) record(call string) error {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
	if p.hook != nil {
		return p.hook(call)
	}
	return nil
}

func (p *spyPage) Navigate(_ context.Context, url string, opts NavigateOptions) error {
	p.mu.Lock()
	p.navigate = append(p.navigate, opts)
	p.mu.Unlock()
	return p.record("navigate:" + url)
}

func (p *spyPage) SetCookies(_ context.Context, cookies []Cookie) error {
	p.mu.Lock()
	p.cookies = append(p.cookies, cookies...)
	p.mu.Unlock()
	return p.record("setCookies")
}

func (p *spyPage) EmulateMediaType(_ context.Context, media string) error {
	return p.record("emulateMediaType:" + media)
}

func (p *spyPage) SetViewport(context.Context, Viewport) error {
	return p.record("setViewport")
}

func (p *spyPage) SetExtraHTTPHeaders(context.Context, map[string]string) error {
	return p.record("setExtraHTTPHeaders")
}

func (p *spyPage) SetUserAgent(_ context.Context, ua string) error {
	return p.record("setUserAgent:" + ua)
}

func (p *spyPage) SetJavaScriptEnabled(context.Context, bool) error {
	return p.record("setJavaScriptEnabled")
}

func (p *spyPage) WaitForSelector(_ context.Context, selector string, _ time.Duration) error {
	return p.record("waitForSelector:" + selector)
}

func (p *spyPage) WaitForNetworkIdle(context.Context, time.Duration, time.Duration) error {
	return p.record("waitForNetworkIdle")
}

func (p *spyPage) AddStyleTag(context.Context, StyleTag) error {
	return p.record("addStyleTag")
}

func (p *spyPage) PDF(_ context.Context, opts PDFOptions) ([]byte, error) {
	p.mu.Lock()
	p.pdfOpts = append(p.pdfOpts, opts)
	p.mu.Unlock()
	if err := p.record("pdf"); err != nil {
		return nil, err
	}
	return p.pdf, nil
}

func (p *spyPage) OnError(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = append(p.onError, fn)
}

// crash reports an asynchronous page failure to observers.
func (p *spyPage) crash(err error) {
	p.mu.Lock()
	fns := append([]func(error){}, p.onError...)
	p.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (p *spyPage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *spyPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCalls++
	p.closed = true
	return nil
}

func (p *spyPage) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// ---------------------------------------------------------------------------
// spyRecorder
// ---------------------------------------------------------------------------

type spyRecorder struct {
	mu            sync.Mutex
	opened        int
	closed        int
	renders       int
	cleanupFailed int
	operations    []string
	lastRenderErr error
}

func (r *spyRecorder) SessionOpened() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
}

func (r *spyRecorder) SessionClosed(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
}

func (r *spyRecorder) OperationDone(op string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, op)
}

func (r *spyRecorder) RenderDone(_ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders++
	r.lastRenderErr = err
}

func (r *spyRecorder) ScratchCleanupFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupFailed++
}

func (r *spyRecorder) counts() (opened, closed, renders int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened, r.closed, r.renders
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// failOn returns a hook failing calls equal to call with err.
func failOn(call string, err error) func(string) error {
	return func(c string) error {
		if c == call {
			return err
		}
		return nil
	}
}

// waitRemoved polls until path no longer exists. Scratch directories are
// reclaimed from the disconnect observer, which runs asynchronously.
func waitRemoved(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("scratch directory %s still exists (stat error: %v)", path, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// emptyDir reports whether dir has no entries left.
func emptyDir(t *testing.T, dir string) bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true
		}
		t.Fatalf("reading %s: %v", dir, err)
	}
	return len(entries) == 0
}

func newTestRenderer(t *testing.T, e *fakeEngine, opts ...Option) (*Renderer, string, *spyRecorder) {
	t.Helper()
	root := t.TempDir()
	rec := &spyRecorder{}
	all := append([]Option{
		WithEngine(e),
		WithScratchRoot(root),
		WithRecorder(rec),
		WithCleanupRetry(3, time.Millisecond),
	}, opts...)
	return NewRenderer(all...), root, rec
}
