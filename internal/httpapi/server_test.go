package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	web2pdf "github.com/alnah/go-web2pdf"
	"github.com/alnah/go-web2pdf/internal/metrics"
)

// fakeRenderer records requests and replays a canned result.
type fakeRenderer struct {
	mu       sync.Mutex
	requests []web2pdf.RenderRequest
	pdf      []byte
	err      error
	deadline bool
}

func (f *fakeRenderer) Render(ctx context.Context, req web2pdf.RenderRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	_, f.deadline = ctx.Deadline()
	return f.pdf, f.err
}

func (f *fakeRenderer) last(t *testing.T) web2pdf.RenderRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "renderer was not called")
	return f.requests[len(f.requests)-1]
}

func newTestServer(r Renderer, cfg Config) http.Handler {
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return New(r, cfg, nil, nil).Handler()
}

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Error)
	return body
}

func opNames(ops []web2pdf.Operation) []string {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name
	}
	return names
}

// ---------------------------------------------------------------------------
// TestRoot - Liveness routes
// ---------------------------------------------------------------------------

func TestRoot(t *testing.T) {
	t.Parallel()

	h := newTestServer(&fakeRenderer{}, Config{})

	rec := doRequest(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"ok"}`, rec.Body.String())

	rec = doRequest(h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownRoutes(t *testing.T) {
	t.Parallel()

	h := newTestServer(&fakeRenderer{}, Config{})

	rec := doRequest(h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	decodeError(t, rec)

	rec = doRequest(h, http.MethodGet, "/print", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	decodeError(t, rec)
}

// ---------------------------------------------------------------------------
// TestPrint - Success path and body conversion
// ---------------------------------------------------------------------------

func TestPrint_Success(t *testing.T) {
	t.Parallel()

	fr := &fakeRenderer{pdf: []byte("%PDF-1.7 fake")}
	h := newTestServer(fr, Config{})

	rec := doRequest(h, http.MethodPost, "/print", `{"url":"https://example.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.7 fake", rec.Body.String())

	req := fr.last(t)
	assert.Equal(t, "https://example.com", req.URL)
	assert.Equal(t, []string{"emulateMediaType"}, opNames(req.Operations))
	assert.False(t, fr.deadline, "no request timeout configured")
}

func TestPrint_BodyConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantOps    []string
		wantFormat string
	}{
		{
			name:    "cookies lead legacy body",
			body:    `{"url":"https://example.com","cookies":[{"name":"sid","value":"1"}]}`,
			wantOps: []string{"setCookie", "emulateMediaType"},
		},
		{
			name:    "operations are passed through",
			body:    `{"url":"https://example.com","operations":[{"name":"setViewport","args":[{"width":800,"height":600}]}]}`,
			wantOps: []string{"setViewport"},
		},
		{
			name:    "methods alias",
			body:    `{"methods":[{"name":"goto","args":["https://example.com"]},{"name":"pdf"}]}`,
			wantOps: []string{"goto", "pdf"},
		},
		{
			name:    "cookies lead explicit operations",
			body:    `{"url":"https://example.com","cookies":[{"name":"a","value":"b"}],"operations":[{"name":"waitForTimeout","args":[10]}]}`,
			wantOps: []string{"setCookie", "waitForTimeout"},
		},
		{
			name:       "options alias",
			body:       `{"url":"https://example.com","options":{"format":"Letter"}}`,
			wantOps:    []string{"emulateMediaType"},
			wantFormat: "Letter",
		},
		{
			name:       "pdfOptions wins over options",
			body:       `{"url":"https://example.com","pdfOptions":{"format":"A3"},"options":{"format":"Letter"}}`,
			wantOps:    []string{"emulateMediaType"},
			wantFormat: "A3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fr := &fakeRenderer{pdf: []byte("%PDF")}
			rec := doRequest(newTestServer(fr, Config{}), http.MethodPost, "/print", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			req := fr.last(t)
			assert.Equal(t, tt.wantOps, opNames(req.Operations))
			if tt.wantFormat != "" {
				require.NotNil(t, req.PDFOptions)
				assert.Equal(t, tt.wantFormat, req.PDFOptions.Format)
			}
		})
	}
}

func TestPrint_RequestTimeout(t *testing.T) {
	t.Parallel()

	fr := &fakeRenderer{pdf: []byte("%PDF")}
	h := newTestServer(fr, Config{RequestTimeout: time.Minute})

	rec := doRequest(h, http.MethodPost, "/print", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, fr.deadline, "render context should carry the request timeout")
}

// ---------------------------------------------------------------------------
// TestPrint_Errors - Status mapping
// ---------------------------------------------------------------------------

func TestPrint_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		renderErr  error
		maxBody    int64
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "malformed JSON",
			body:       `{"url":`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "malformed JSON",
		},
		{
			name:       "empty body",
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "request body required",
		},
		{
			name:       "trailing data",
			body:       `{"url":"https://a"} {"url":"https://b"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "single JSON object",
		},
		{
			name:       "body too large",
			body:       `{"url":"https://example.com/` + strings.Repeat("a", 200) + `"}`,
			maxBody:    64,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantMsg:    "too large",
		},
		{
			name:       "operations and methods together",
			body:       `{"operations":[{"name":"pdf"}],"methods":[{"name":"pdf"}]}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "either operations or methods",
		},
		{
			name:       "request error",
			body:       `{"url":"bad://url"}`,
			renderErr:  &web2pdf.Error{Kind: web2pdf.KindRequest, Op: "goto", Err: web2pdf.ErrNavigation},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "goto: navigation failed",
		},
		{
			name:       "engine crash",
			body:       `{"url":"https://example.com"}`,
			renderErr:  &web2pdf.Error{Kind: web2pdf.KindEngineCrash, Op: "launch", Err: web2pdf.ErrLaunchTimeout},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "launch: browser launch timed out",
		},
		{
			name:       "unclassified error",
			body:       `{"url":"https://example.com"}`,
			renderErr:  context.DeadlineExceeded,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fr := &fakeRenderer{err: tt.renderErr}
			rec := doRequest(newTestServer(fr, Config{MaxBodyBytes: tt.maxBody}), http.MethodPost, "/print", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeError(t, rec)
			assert.Contains(t, body.Message, tt.wantMsg)
		})
	}
}

func TestPrint_RealRendererRejectsMissingURL(t *testing.T) {
	t.Parallel()

	// Normalization fails before any browser is launched.
	r := web2pdf.NewRenderer(web2pdf.WithScratchRoot(t.TempDir()))
	rec := doRequest(newTestServer(r, Config{}), http.MethodPost, "/print", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Contains(t, body.Message, "no destination resolvable")
}

// ---------------------------------------------------------------------------
// TestMetricsRoute - Prometheus exposition
// ---------------------------------------------------------------------------

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	fr := &fakeRenderer{err: errors.New("boom")}
	h := New(fr, Config{MaxBodyBytes: 1 << 20, MetricsPath: "/metrics"}, nil, m).Handler()

	doRequest(h, http.MethodPost, "/print", `{"url":"https://example.com"}`)
	rec := doRequest(h, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `web2pdf_http_requests_total{code="500",route="/print"} 1`)
}

func TestMetricsRoute_Disabled(t *testing.T) {
	t.Parallel()

	h := New(&fakeRenderer{}, Config{MetricsPath: "/metrics"}, nil, nil).Handler()
	rec := doRequest(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
