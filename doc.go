// Package web2pdf renders web pages to PDF in a disposable headless browser.
//
// # Quick Start
//
// Create a renderer and render a URL:
//
//	r := web2pdf.NewRenderer()
//
//	pdf, err := r.Render(ctx, web2pdf.RenderRequest{
//	    URL: "https://example.com/invoice/42",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("invoice.pdf", pdf, 0644)
//
// Each call starts its own browser process with a private profile
// directory, and tears both down before returning.
//
// # Operations
//
// A request may carry a list of page operations, named after Puppeteer's
// page API, that run in order before the document is captured:
//
//	setCookie := web2pdf.MustOperation("setCookie", web2pdf.Cookie{Name: "sid", Value: "s3cr3t"})
//	media := web2pdf.MustOperation("emulateMediaType", "print")
//
//	pdf, err := r.Render(ctx, web2pdf.RenderRequest{
//	    URL:        "https://example.com/report",
//	    Operations: []web2pdf.Operation{setCookie, media},
//	})
//
// The operations are normalized into a Plan before any browser starts:
//
//  1. operations after the first pdf operation are dropped
//  2. a goto to URL is added if no operation navigates
//  3. a pdf operation is added last if none is given
//  4. unknown operations and malformed arguments are rejected
//
// Use Renderer.Plan to inspect the result without rendering.
//
// # Errors
//
// Render failures are *Error values of one of two kinds. KindRequest means
// the request cannot succeed as written, for example an unknown operation or
// an unreachable page; KindEngineCrash means the browser or the host failed.
// Use IsRequestError and IsEngineCrash, or errors.Is with the sentinel
// causes such as ErrNavigation or ErrLaunchTimeout.
//
// # Browser Requirements
//
// Rendering requires Chrome or Chromium. An installed browser is used when
// found; otherwise go-rod downloads a managed Chromium on first run
// (~/.cache/rod/browser/). Use RodEngine.Bin to pin a binary.
package web2pdf
