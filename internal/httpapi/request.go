package httpapi

import (
	"errors"
	"net/http"

	web2pdf "github.com/alnah/go-web2pdf"
)

// printRequest is the body of POST /print. Field aliases keep older clients
// working: options for pdfOptions, methods for operations.
type printRequest struct {
	URL        string              `json:"url"`
	PDFOptions *web2pdf.PDFOptions `json:"pdfOptions"`
	Options    *web2pdf.PDFOptions `json:"options"`
	Operations []web2pdf.Operation `json:"operations"`
	Methods    []web2pdf.Operation `json:"methods"`
	Cookies    []web2pdf.Cookie    `json:"cookies"`
}

var errAmbiguousOperations = errors.New("use either operations or methods, not both")

// renderRequest converts the body into a render request.
//
// Cookies become a leading setCookie operation. A body without operations
// is rendered the way the service always has: print media, then the pdf.
func (p printRequest) renderRequest() (web2pdf.RenderRequest, error) {
	req := web2pdf.RenderRequest{URL: p.URL, PDFOptions: p.PDFOptions}
	if req.PDFOptions == nil {
		req.PDFOptions = p.Options
	}

	ops := p.Operations
	switch {
	case len(ops) > 0 && len(p.Methods) > 0:
		return web2pdf.RenderRequest{}, errAmbiguousOperations
	case len(ops) == 0:
		ops = p.Methods
	}

	var lead []web2pdf.Operation
	if len(p.Cookies) > 0 {
		op, err := web2pdf.NewOperation("setCookie", p.Cookies)
		if err != nil {
			return web2pdf.RenderRequest{}, err
		}
		lead = append(lead, op)
	}
	if len(ops) == 0 {
		lead = append(lead, web2pdf.MustOperation("emulateMediaType", "print"))
	}

	req.Operations = append(lead, ops...)
	return req, nil
}

// decodePrintRequest reads and converts the request body. The returned
// status is meaningful only when err is not nil.
func (s *Server) decodePrintRequest(w http.ResponseWriter, r *http.Request) (web2pdf.RenderRequest, int, error) {
	var body printRequest
	if status, err := decodeJSONBody(w, r, &body, s.cfg.MaxBodyBytes); err != nil {
		return web2pdf.RenderRequest{}, status, err
	}
	req, err := body.renderRequest()
	if err != nil {
		return web2pdf.RenderRequest{}, http.StatusBadRequest, err
	}
	return req, 0, nil
}
