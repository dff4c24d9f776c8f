package web2pdf

import (
	"time"

	"go.uber.org/zap"
)

// Defaults applied by NewRenderer.
const (
	DefaultLaunchTimeout    = 30 * time.Second
	DefaultOperationTimeout = 30 * time.Second
	DefaultScratchRoot      = "temp/browser"

	defaultCleanupAttempts = 5
	defaultCleanupBackoff  = 100 * time.Millisecond
)

// Option configures a Renderer.
type Option func(*Renderer)

// rendererConfig holds the tunables of a Renderer.
type rendererConfig struct {
	scratchRoot      string
	launchTimeout    time.Duration
	operationTimeout time.Duration
	defaultPDF       PDFOptions
	cleanupAttempts  int
	cleanupBackoff   time.Duration
}

// WithEngine sets the browser engine. The default is a RodEngine that
// locates a browser on the host.
func WithEngine(e Engine) Option {
	if e == nil {
		panic("web2pdf: WithEngine engine must not be nil")
	}
	return func(r *Renderer) {
		r.engine = e
	}
}

// WithRegistry replaces the operation registry.
func WithRegistry(reg *Registry) Option {
	if reg == nil {
		panic("web2pdf: WithRegistry registry must not be nil")
	}
	return func(r *Renderer) {
		r.registry = reg
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecorder sets the render observer.
func WithRecorder(rec Recorder) Option {
	return func(r *Renderer) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithScratchRoot sets the directory under which each render gets its
// private browser profile directory.
func WithScratchRoot(dir string) Option {
	if dir == "" {
		panic("web2pdf: WithScratchRoot directory must not be empty")
	}
	return func(r *Renderer) {
		r.cfg.scratchRoot = dir
	}
}

// WithLaunchTimeout bounds browser startup.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithLaunchTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("web2pdf: WithLaunchTimeout duration must be positive")
	}
	return func(r *Renderer) {
		r.cfg.launchTimeout = d
	}
}

// WithOperationTimeout sets the default timeout of navigations and waits
// that do not carry their own, and the cap of waitForTimeout.
// Panics if d <= 0.
func WithOperationTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("web2pdf: WithOperationTimeout duration must be positive")
	}
	return func(r *Renderer) {
		r.cfg.operationTimeout = d
	}
}

// WithDefaultPDFOptions sets the print options used when a request
// carries none.
func WithDefaultPDFOptions(o PDFOptions) Option {
	return func(r *Renderer) {
		r.cfg.defaultPDF = o.Sanitized()
	}
}

// WithCleanupRetry tunes removal of scratch directories after the browser
// exits: up to attempts tries, waiting backoff and then twice as long
// before each retry.
func WithCleanupRetry(attempts int, backoff time.Duration) Option {
	if attempts < 1 {
		panic("web2pdf: WithCleanupRetry attempts must be at least 1")
	}
	if backoff < 0 {
		panic("web2pdf: WithCleanupRetry backoff must not be negative")
	}
	return func(r *Renderer) {
		r.cfg.cleanupAttempts = attempts
		r.cfg.cleanupBackoff = backoff
	}
}
