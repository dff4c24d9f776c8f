package web2pdf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-web2pdf/internal/fileutil"
)

// sessionManager hands out one private browser and page per render.
type sessionManager struct {
	engine          Engine
	launchTimeout   time.Duration
	cleanupAttempts int
	cleanupBackoff  time.Duration
	recorder        Recorder
}

// session is the browser state of one render. Its zero fields are valid:
// release tolerates a missing browser or page.
type session struct {
	id         string
	scratchDir string
	browser    Browser
	page       Page

	mgr      *sessionManager
	logger   *zap.Logger
	opened   time.Time
	once     sync.Once
	reclaim  sync.Once
	launched bool
}

func (m *sessionManager) newSession(scratchDir string, logger *zap.Logger) *session {
	return &session{
		id:         filepath.Base(scratchDir),
		scratchDir: scratchDir,
		mgr:        m,
		logger:     logger,
		opened:     time.Now(),
	}
}

// acquireBrowser launches the session's browser. The scratch directory is
// reclaimed when the process goes away; if no process ever starts, release
// reclaims it instead.
func (s *session) acquireBrowser(ctx context.Context) error {
	launchCtx, cancel := context.WithTimeout(ctx, s.mgr.launchTimeout)
	defer cancel()

	start := time.Now()
	b, err := s.mgr.engine.Launch(launchCtx, LaunchOptions{
		ScratchDir:       s.scratchDir,
		IgnoreCertErrors: true,
		NoSandbox:        true,
	})
	if err != nil {
		// The caller gave up: report that as is, without blaming the engine.
		if ctx.Err() != nil {
			return interruption(ctx)
		}
		if errors.Is(err, context.DeadlineExceeded) || launchCtx.Err() != nil {
			return newEngineCrash("launch", fmt.Errorf("%w after %s", ErrLaunchTimeout, s.mgr.launchTimeout))
		}
		return newEngineCrash("launch", fmt.Errorf("%w: %w", ErrBrowserLaunch, err))
	}

	s.browser = b
	s.launched = true
	s.mgr.recorder.SessionOpened()
	b.OnDisconnect(s.reclaimScratch)
	s.logger.Debug("browser acquired", zap.Duration("took", time.Since(start)))
	return nil
}

// acquirePage opens the session's page. Asynchronous page failures cancel
// the request through abort.
func (s *session) acquirePage(ctx context.Context, abort context.CancelCauseFunc) error {
	p, err := s.browser.NewPage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return interruption(ctx)
		}
		return newEngineCrash("page", fmt.Errorf("%w: %w", ErrPageCreate, err))
	}

	s.page = p
	p.OnError(func(err error) {
		s.logger.Warn("page failed", zap.Error(err))
		abort(newEngineCrash("page", fmt.Errorf("%w: %w", ErrPageCrashed, err)))
	})
	return nil
}

// release closes the page and the browser. It runs its body once, whatever
// the number of calls, and never fails: teardown errors are logged.
func (s *session) release() {
	s.once.Do(func() {
		if s.page != nil && !s.page.Closed() {
			if err := s.page.Close(); err != nil {
				s.logger.Debug("closing page", zap.Error(err))
			}
		}
		if s.browser != nil && s.browser.Connected() {
			if err := s.browser.Close(); err != nil {
				s.logger.Warn("closing browser", zap.Error(err))
			}
		}

		if s.launched {
			s.mgr.recorder.SessionClosed(time.Since(s.opened))
		} else {
			// No process ever owned the directory, so nothing will report
			// a disconnect.
			s.reclaimScratch()
		}
	})
}

// reclaimScratch removes the scratch directory, retrying while the exiting
// browser still holds files open. It may run from the disconnect observer
// and from release; only the first call does the work.
func (s *session) reclaimScratch() {
	s.reclaim.Do(func() {
		err := fileutil.RemoveAllRetry(s.scratchDir, s.mgr.cleanupAttempts, s.mgr.cleanupBackoff)
		if err != nil {
			s.mgr.recorder.ScratchCleanupFailed()
			s.logger.Warn("scratch directory cleanup failed",
				zap.String("scratch_dir", s.scratchDir),
				zap.Error(err))
			return
		}
		s.logger.Debug("scratch directory removed", zap.String("scratch_dir", s.scratchDir))
	})
}
