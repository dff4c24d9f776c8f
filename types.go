package web2pdf

import (
	"encoding/json"
	"fmt"
	"time"
)

// RenderRequest describes one document to render.
//
// URL is the fallback destination used when Operations contain no
// navigation. PDFOptions is the fallback print configuration used when
// Operations contain no pdf operation with arguments.
type RenderRequest struct {
	URL        string      `json:"url,omitempty"`
	PDFOptions *PDFOptions `json:"pdfOptions,omitempty"`
	Operations []Operation `json:"operations,omitempty"`
}

// Operation is one named page call with positional JSON arguments.
type Operation struct {
	Name string            `json:"name"`
	Args []json.RawMessage `json:"args,omitempty"`
}

// NewOperation builds an Operation, JSON-encoding each argument.
func NewOperation(name string, args ...any) (Operation, error) {
	op := Operation{Name: name}
	for i, a := range args {
		raw, err := json.Marshal(a)
		if err != nil {
			return Operation{}, fmt.Errorf("encoding argument %d of %s: %w", i, name, err)
		}
		op.Args = append(op.Args, raw)
	}
	return op, nil
}

// MustOperation is like NewOperation but panics if an argument cannot be
// encoded. Meant for operations built from literals.
func MustOperation(name string, args ...any) Operation {
	op, err := NewOperation(name, args...)
	if err != nil {
		panic(err)
	}
	return op
}

// Cookie mirrors the cookie shape accepted by setCookie.
// A cookie with neither URL nor Domain is scoped to the render destination.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	URL      string  `json:"url,omitempty"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	SameSite string  `json:"sameSite,omitempty"` // "Strict", "Lax" or "None"
	Expires  float64 `json:"expires,omitempty"`  // seconds since epoch, 0 for a session cookie
}

// Viewport configures the page's emulated screen.
type Viewport struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	DeviceScaleFactor float64 `json:"deviceScaleFactor,omitempty"`
	IsMobile          bool    `json:"isMobile,omitempty"`
}

// StyleTag is a stylesheet injected into the page, by URL or inline content.
type StyleTag struct {
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
}

// WaitUntil names the page lifecycle event a navigation waits for.
type WaitUntil string

const (
	WaitLoad              WaitUntil = "load"
	WaitDOMContentLoaded  WaitUntil = "domcontentloaded"
	WaitNetworkIdle       WaitUntil = "networkidle0"
	WaitNetworkAlmostIdle WaitUntil = "networkidle2"
)

func (w WaitUntil) valid() bool {
	switch w {
	case WaitLoad, WaitDOMContentLoaded, WaitNetworkIdle, WaitNetworkAlmostIdle:
		return true
	}
	return false
}

// NavigateOptions tunes a navigation.
type NavigateOptions struct {
	WaitUntil WaitUntil
	Timeout   time.Duration // zero means no per-navigation limit
}
