package web2pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/alnah/go-web2pdf/internal/process"
)

// Compile-time interface implementation checks.
var (
	_ Engine  = (*RodEngine)(nil)
	_ Browser = (*rodBrowser)(nil)
	_ Page    = (*rodPage)(nil)
)

// closeTimeout bounds teardown calls, which run after the request context
// may already be done.
const closeTimeout = 5 * time.Second

// RodEngine launches Chromium through go-rod. Each Launch starts a
// separate process; nothing is shared between browsers.
type RodEngine struct {
	// Bin is the browser executable. When empty, an installed browser is
	// looked up and rod downloads one as a last resort.
	Bin string
	// Flags are extra command line switches, "name" or "name=value",
	// with or without leading dashes.
	Flags []string
	// Logger receives process lifecycle events. Nil means no logging.
	Logger *zap.Logger
}

type launchResult struct {
	browser *rodBrowser
	err     error
}

// Launch starts a browser. If ctx ends first, the launch is abandoned and
// the process is reaped in the background once it comes up.
func (e *RodEngine) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan launchResult, 1)
	go func() {
		b, err := e.start(opts)
		done <- launchResult{browser: b, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return res.browser, nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.err == nil {
				_ = res.browser.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (e *RodEngine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *RodEngine) newLauncher(opts LaunchOptions) *launcher.Launcher {
	l := launcher.New().Headless(true)

	bin := e.Bin
	if bin == "" {
		if found, ok := launcher.LookPath(); ok {
			bin = found
		}
	}
	if bin != "" {
		l = l.Bin(bin)
	}
	if opts.ScratchDir != "" {
		l = l.UserDataDir(opts.ScratchDir)
	}
	if opts.NoSandbox {
		l = l.NoSandbox(true)
	}
	if opts.IgnoreCertErrors {
		l = l.Set("ignore-certificate-errors")
	}
	for _, f := range e.Flags {
		name, value, hasValue := strings.Cut(strings.TrimLeft(f, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	return l
}

func (e *RodEngine) start(opts LaunchOptions) (*rodBrowser, error) {
	l := e.newLauncher(opts)
	log := e.logger()

	u, err := l.Launch()
	if err != nil {
		if l.PID() > 0 {
			l.Kill()
		}
		return nil, fmt.Errorf("starting browser process: %w", err)
	}

	b := &rodBrowser{
		launcher: l,
		exited:   make(chan struct{}),
		logger:   log.With(zap.Int("pid", l.PID())),
	}
	go b.watch()

	rb := rod.New().ControlURL(u)
	if err := rb.Connect(); err != nil {
		b.kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	if opts.IgnoreCertErrors {
		if err := rb.IgnoreCertErrors(true); err != nil {
			_ = rb.Close()
			b.kill()
			return nil, fmt.Errorf("ignoring certificate errors: %w", err)
		}
	}
	b.browser = rb

	b.logger.Debug("browser started", zap.String("scratch_dir", opts.ScratchDir))
	return b, nil
}

// rodBrowser is one Chromium process.
type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	logger   *zap.Logger

	exited chan struct{}

	mu           sync.Mutex
	closed       bool
	gone         bool
	onDisconnect []func()
}

// watch waits for the process to exit, lets the launcher remove its profile
// directory, then notifies observers.
func (b *rodBrowser) watch() {
	b.launcher.Cleanup()

	b.mu.Lock()
	b.gone = true
	fns := b.onDisconnect
	b.onDisconnect = nil
	b.mu.Unlock()

	close(b.exited)
	b.logger.Debug("browser exited")
	for _, fn := range fns {
		fn()
	}
}

func (b *rodBrowser) OnDisconnect(fn func()) {
	b.mu.Lock()
	if !b.gone {
		b.onDisconnect = append(b.onDisconnect, fn)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	go fn()
}

func (b *rodBrowser) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && !b.gone
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	p, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	pg := &rodPage{page: p, stopWatch: cancel}
	go p.Context(watchCtx).EachEvent(func(e *proto.InspectorTargetCrashed) bool {
		pg.fail(errors.New("renderer process crashed"))
		return true
	}, func(e *proto.InspectorDetached) bool {
		pg.fail(fmt.Errorf("inspector detached: %s", e.Reason))
		return true
	})()

	return pg, nil
}

// Close asks the browser to exit and kills the process tree if it does
// not answer.
func (b *rodBrowser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Timeout(closeTimeout).Close()
	}
	if b.browser == nil || err != nil {
		b.kill()
	}
	return err
}

func (b *rodBrowser) kill() {
	process.KillTree(b.launcher.PID())
	b.launcher.Kill()
}

// rodPage is one tab. Its methods are called one at a time; only the
// crash watcher runs concurrently.
type rodPage struct {
	page      *rod.Page
	stopWatch context.CancelFunc

	mu      sync.Mutex
	closed  bool
	failure error
	onError []func(error)
}

func (p *rodPage) fail(err error) {
	p.mu.Lock()
	if p.closed || p.failure != nil {
		p.mu.Unlock()
		return
	}
	p.failure = err
	fns := p.onError
	p.mu.Unlock()

	for _, fn := range fns {
		fn(err)
	}
}

func (p *rodPage) OnError(fn func(error)) {
	p.mu.Lock()
	failure := p.failure
	if failure == nil {
		p.onError = append(p.onError, fn)
	}
	p.mu.Unlock()

	if failure != nil {
		fn(failure)
	}
}

func (p *rodPage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *rodPage) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.stopWatch()
	return p.page.Context(context.Background()).Timeout(closeTimeout).Close()
}

// with returns the page bound to ctx.
func (p *rodPage) with(ctx context.Context) *rod.Page {
	return p.page.Context(ctx)
}

// scoped returns the page bound to a child of ctx, limited by timeout if
// set. release ends the child context along with any event subscription
// made through the page, and must be called once the call returns.
func (p *rodPage) scoped(ctx context.Context, timeout time.Duration) (pg *rod.Page, release func()) {
	pg, cancel := p.page.Context(ctx).WithCancel()
	if timeout <= 0 {
		return pg, cancel
	}
	pg = pg.Timeout(timeout)
	return pg, func() {
		pg.CancelTimeout()
		cancel()
	}
}

var lifecycleEvents = map[WaitUntil]proto.PageLifecycleEventName{
	WaitLoad:              proto.PageLifecycleEventNameLoad,
	WaitDOMContentLoaded:  proto.PageLifecycleEventNameDOMContentLoaded,
	WaitNetworkIdle:       proto.PageLifecycleEventNameNetworkIdle,
	WaitNetworkAlmostIdle: proto.PageLifecycleEventNameNetworkAlmostIdle,
}

func (p *rodPage) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	pg, release := p.scoped(ctx, opts.Timeout)
	defer release()

	event, ok := lifecycleEvents[opts.WaitUntil]
	if !ok {
		event = proto.PageLifecycleEventNameLoad
	}
	wait := pg.WaitNavigation(event)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	wait()
	return pg.GetContext().Err()
}

func (p *rodPage) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			URL:      c.URL,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
			Expires:  proto.TimeSinceEpoch(c.Expires),
		})
	}
	return p.with(ctx).SetCookies(params)
}

func (p *rodPage) EmulateMediaType(ctx context.Context, media string) error {
	return proto.EmulationSetEmulatedMedia{Media: media}.Call(p.with(ctx))
}

func (p *rodPage) SetViewport(ctx context.Context, vp Viewport) error {
	scale := vp.DeviceScaleFactor
	if scale == 0 {
		scale = 1
	}
	return p.with(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: scale,
		Mobile:            vp.IsMobile,
	})
}

func (p *rodPage) SetExtraHTTPHeaders(ctx context.Context, headers map[string]string) error {
	dict := make([]string, 0, len(headers)*2)
	for k, v := range headers {
		dict = append(dict, k, v)
	}
	// The headers stay for the life of the page, so the cleanup is dropped.
	_, err := p.with(ctx).SetExtraHeaders(dict)
	return err
}

func (p *rodPage) SetUserAgent(ctx context.Context, userAgent string) error {
	return p.with(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent})
}

func (p *rodPage) SetJavaScriptEnabled(ctx context.Context, enabled bool) error {
	return proto.EmulationSetScriptExecutionDisabled{Value: !enabled}.Call(p.with(ctx))
}

func (p *rodPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	pg, release := p.scoped(ctx, timeout)
	defer release()
	_, err := pg.Element(selector)
	return err
}

func (p *rodPage) WaitForNetworkIdle(ctx context.Context, idle, timeout time.Duration) error {
	pg, release := p.scoped(ctx, timeout)
	defer release()
	wait := pg.WaitRequestIdle(idle, nil, nil, nil)
	wait()
	return pg.GetContext().Err()
}

func (p *rodPage) AddStyleTag(ctx context.Context, tag StyleTag) error {
	return p.with(ctx).AddStyleTag(tag.URL, tag.Content)
}

func (p *rodPage) PDF(ctx context.Context, opts PDFOptions) ([]byte, error) {
	req, err := printRequest(opts)
	if err != nil {
		return nil, err
	}
	reader, err := p.with(ctx).PDF(req)
	if err != nil {
		return nil, err
	}
	buf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading PDF stream: %w", err)
	}
	return buf, nil
}

// printRequest converts options to the DevTools printToPDF parameters.
func printRequest(opts PDFOptions) (*proto.PagePrintToPDF, error) {
	l, err := opts.Layout()
	if err != nil {
		return nil, err
	}
	return &proto.PagePrintToPDF{
		Landscape:           opts.Landscape,
		DisplayHeaderFooter: opts.DisplayHeaderFooter,
		PrintBackground:     opts.PrintBackground,
		Scale:               floatPtr(l.Scale),
		PaperWidth:          floatPtr(l.PaperWidth),
		PaperHeight:         floatPtr(l.PaperHeight),
		MarginTop:           floatPtr(l.MarginTop),
		MarginBottom:        floatPtr(l.MarginBottom),
		MarginLeft:          floatPtr(l.MarginLeft),
		MarginRight:         floatPtr(l.MarginRight),
		PageRanges:          opts.PageRanges,
		HeaderTemplate:      opts.HeaderTemplate,
		FooterTemplate:      opts.FooterTemplate,
		PreferCSSPageSize:   opts.PreferCSSPageSize,
	}, nil
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
