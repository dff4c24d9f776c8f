package web2pdf

import "time"

// Recorder observes renders. Implementations must be safe for concurrent
// use; internal/metrics provides a Prometheus one.
type Recorder interface {
	SessionOpened()
	SessionClosed(lifetime time.Duration)
	OperationDone(op string, took time.Duration, err error)
	RenderDone(took time.Duration, err error)
	ScratchCleanupFailed()
}

type nopRecorder struct{}

func (nopRecorder) SessionOpened()                             {}
func (nopRecorder) SessionClosed(time.Duration)                {}
func (nopRecorder) OperationDone(string, time.Duration, error) {}
func (nopRecorder) RenderDone(time.Duration, error)            {}
func (nopRecorder) ScratchCleanupFailed()                      {}
