package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	web2pdf "github.com/alnah/go-web2pdf"
)

const fakePDF = "%PDF-1.7 fake"

// fakeEngine starts in-memory browsers whose pages print fakePDF.
// It writes into the scratch dir like a real browser profile would.
type fakeEngine struct {
	launchErr error
	navErr    error

	mu       sync.Mutex
	launches int
	visited  []string
	pending  sync.WaitGroup
}

func (e *fakeEngine) Launch(ctx context.Context, opts web2pdf.LaunchOptions) (web2pdf.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.launches++
	e.mu.Unlock()
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	if err := os.WriteFile(filepath.Join(opts.ScratchDir, "Local State"), []byte("{}"), 0o600); err != nil {
		return nil, err
	}
	return &fakeBrowser{engine: e}, nil
}

// wait blocks until every disconnect callback has run, so the scratch
// root is settled before the test's temp dirs are removed.
func (e *fakeEngine) wait() {
	e.pending.Wait()
}

func (e *fakeEngine) launchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.launches
}

func (e *fakeEngine) visits() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.visited...)
}

type fakeBrowser struct {
	engine *fakeEngine

	mu           sync.Mutex
	closed       bool
	onDisconnect []func()
}

func (b *fakeBrowser) NewPage(context.Context) (web2pdf.Page, error) {
	return &fakePage{engine: b.engine}, nil
}

func (b *fakeBrowser) OnDisconnect(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.engine.pending.Add(1)
		go func() {
			defer b.engine.pending.Done()
			fn()
		}()
		return
	}
	b.onDisconnect = append(b.onDisconnect, fn)
}

func (b *fakeBrowser) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	fns := b.onDisconnect
	b.onDisconnect = nil
	b.mu.Unlock()
	b.engine.pending.Add(1)
	go func() {
		defer b.engine.pending.Done()
		for _, fn := range fns {
			fn()
		}
	}()
	return nil
}

type fakePage struct {
	engine *fakeEngine
	closed bool
}

func (p *fakePage) Navigate(_ context.Context, url string, _ web2pdf.NavigateOptions) error {
	p.engine.mu.Lock()
	p.engine.visited = append(p.engine.visited, url)
	p.engine.mu.Unlock()
	return p.engine.navErr
}

func (p *fakePage) SetCookies(context.Context, []web2pdf.Cookie) error  { return nil }
func (p *fakePage) EmulateMediaType(context.Context, string) error      { return nil }
func (p *fakePage) SetViewport(context.Context, web2pdf.Viewport) error { return nil }
func (p *fakePage) SetExtraHTTPHeaders(context.Context, map[string]string) error {
	return nil
}
func (p *fakePage) SetUserAgent(context.Context, string) error          { return nil }
func (p *fakePage) SetJavaScriptEnabled(context.Context, bool) error    { return nil }
func (p *fakePage) AddStyleTag(context.Context, web2pdf.StyleTag) error { return nil }

func (p *fakePage) WaitForSelector(context.Context, string, time.Duration) error {
	return nil
}

func (p *fakePage) WaitForNetworkIdle(context.Context, time.Duration, time.Duration) error {
	return nil
}

func (p *fakePage) PDF(context.Context, web2pdf.PDFOptions) ([]byte, error) {
	return []byte(fakePDF), nil
}

func (p *fakePage) OnError(func(error)) {}
func (p *fakePage) Closed() bool        { return p.closed }

func (p *fakePage) Close() error {
	if p.closed {
		return errors.New("page already closed")
	}
	p.closed = true
	return nil
}

// testEnv returns an Environment writing into buffers and rendering with e.
func testEnv(stdout, stderr *syncBuffer, e web2pdf.Engine) *Environment {
	env := DefaultEnv()
	env.Stdout = stdout
	env.Stderr = stderr
	env.Engine = e
	return env
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a
// running server.
type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf...)
}
