package web2pdf

import (
	"context"
	"time"
)

// LaunchOptions configures one browser process.
type LaunchOptions struct {
	// ScratchDir is the private profile directory of the process.
	ScratchDir string
	// IgnoreCertErrors accepts invalid TLS certificates.
	IgnoreCertErrors bool
	// NoSandbox disables the OS-level sandbox of the browser.
	NoSandbox bool
}

// Engine starts browser processes. The launch is bounded by ctx.
type Engine interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is one isolated browser process.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	// OnDisconnect registers fn to run once the process has gone away,
	// whatever the reason. fn runs on its own goroutine.
	OnDisconnect(fn func())
	Connected() bool
	Close() error
}

// Page is one tab of a Browser. Calls are made strictly one at a time.
type Page interface {
	Navigate(ctx context.Context, url string, opts NavigateOptions) error
	SetCookies(ctx context.Context, cookies []Cookie) error
	EmulateMediaType(ctx context.Context, media string) error
	SetViewport(ctx context.Context, vp Viewport) error
	SetExtraHTTPHeaders(ctx context.Context, headers map[string]string) error
	SetUserAgent(ctx context.Context, userAgent string) error
	SetJavaScriptEnabled(ctx context.Context, enabled bool) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	WaitForNetworkIdle(ctx context.Context, idle, timeout time.Duration) error
	AddStyleTag(ctx context.Context, tag StyleTag) error
	PDF(ctx context.Context, opts PDFOptions) ([]byte, error)

	// OnError registers fn to be told about asynchronous page failures,
	// such as a crash of the renderer process.
	OnError(fn func(error))
	Closed() bool
	Close() error
}
