package web2pdf

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-web2pdf/internal/fileutil"
)

// Renderer turns render requests into PDF documents. Every call to Render
// gets its own browser process, so a Renderer is safe for concurrent use
// and holds no browser between calls.
type Renderer struct {
	cfg      rendererConfig
	engine   Engine
	registry *Registry
	logger   *zap.Logger
	recorder Recorder

	pipeline *pipeline
	sessions *sessionManager
}

// NewRenderer creates a Renderer with default configuration.
// Use options to customize behavior (e.g., WithEngine, WithLaunchTimeout, WithLogger).
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		cfg: rendererConfig{
			scratchRoot:      DefaultScratchRoot,
			launchTimeout:    DefaultLaunchTimeout,
			operationTimeout: DefaultOperationTimeout,
			defaultPDF:       DefaultPDFOptions(),
			cleanupAttempts:  defaultCleanupAttempts,
			cleanupBackoff:   defaultCleanupBackoff,
		},
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.engine == nil {
		r.engine = &RodEngine{Logger: r.logger}
	}
	if r.registry == nil {
		r.registry = NewRegistry()
	}

	r.pipeline = &pipeline{
		registry:   r.registry,
		defaultPDF: r.cfg.defaultPDF,
		opTimeout:  r.cfg.operationTimeout,
		recorder:   r.recorder,
	}
	r.sessions = &sessionManager{
		engine:          r.engine,
		launchTimeout:   r.cfg.launchTimeout,
		cleanupAttempts: r.cfg.cleanupAttempts,
		cleanupBackoff:  r.cfg.cleanupBackoff,
		recorder:        r.recorder,
	}
	return r
}

// Registry returns the operations this renderer accepts.
func (r *Renderer) Registry() *Registry {
	return r.registry
}

// Plan normalizes req without launching a browser. Errors are request
// errors.
func (r *Renderer) Plan(req RenderRequest) (*Plan, error) {
	return r.pipeline.normalize(req)
}

// Render runs req in a fresh browser and returns the PDF bytes.
//
// Errors are *Error values of KindRequest or KindEngineCrash, except when
// ctx ends first: then the context's error is returned as is. The browser
// and its scratch directory are released before Render returns, on every
// path.
func (r *Renderer) Render(ctx context.Context, req RenderRequest) (pdf []byte, err error) {
	start := time.Now()
	defer func() {
		r.recorder.RenderDone(time.Since(start), err)
	}()

	plan, err := r.pipeline.normalize(req)
	if err != nil {
		r.logger.Info("render rejected", zap.Error(err))
		return nil, err
	}

	scratchDir, err := fileutil.MakeScratchDir(r.cfg.scratchRoot)
	if err != nil {
		r.logger.Error("scratch directory unavailable", zap.Error(err))
		return nil, newEngineCrash("", fmt.Errorf("%w: %w", ErrScratchDir, err))
	}

	sess := r.sessions.newSession(scratchDir, r.logger)
	logger := r.logger.With(zap.String("session", sess.id))
	sess.logger = logger

	ctx, abort := context.WithCancelCause(ctx)
	defer abort(nil)
	defer sess.release()
	defer func() {
		if p := recover(); p != nil {
			logger.Error("render panicked", zap.Any("panic", p), zap.Stack("stack"))
			pdf = nil
			err = newEngineCrash("", fmt.Errorf("%w: %v", ErrInternal, p))
		}
	}()

	logger.Info("render started",
		zap.String("destination", plan.Destination),
		zap.Strings("steps", plan.Names()))

	if err := sess.acquireBrowser(ctx); err != nil {
		logger.Warn("render failed", zap.Error(err))
		return nil, err
	}
	if err := sess.acquirePage(ctx, abort); err != nil {
		logger.Warn("render failed", zap.Error(err))
		return nil, err
	}

	pdf, err = r.pipeline.execute(ctx, sess.page, plan, logger)
	if err != nil {
		logger.Warn("render failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return nil, err
	}

	logger.Info("render done",
		zap.Int("bytes", len(pdf)),
		zap.Duration("took", time.Since(start)))
	return pdf, nil
}
