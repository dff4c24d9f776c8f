package web2pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Operation names with a fixed role in every plan.
const (
	OpPDF      = "pdf"
	OpGoto     = "goto"
	OpNavigate = "navigate"
)

// Defaults for wait operations.
const (
	defaultNetworkIdle = 500 * time.Millisecond
)

// StepKind is the role an operation plays in a plan.
type StepKind uint8

const (
	// StepAction prepares the page: cookies, media, viewport, waits.
	StepAction StepKind = iota
	// StepNavigate loads the destination document.
	StepNavigate
	// StepPDF captures the document and ends the plan.
	StepPDF
)

func (k StepKind) String() string {
	switch k {
	case StepNavigate:
		return "navigate"
	case StepPDF:
		return "pdf"
	default:
		return "action"
	}
}

// Action runs one bound operation against a page. Only the pdf action
// returns bytes.
type Action func(ctx context.Context, page Page) ([]byte, error)

// BindEnv is what a Binder may know about the plan it is bound into.
type BindEnv struct {
	// Destination is the URL the plan navigates to first.
	Destination string
	// Timeout bounds waits that do not set their own.
	Timeout time.Duration
	// PDF holds the plan's resolved print options. Fields a pdf argument
	// leaves out keep these values.
	PDF PDFOptions
}

// Binder decodes positional arguments into an Action. Errors are reported
// to the caller as request errors, so they should wrap ErrInvalidArguments.
type Binder func(args []json.RawMessage, env BindEnv) (Action, error)

// OperationSpec describes a registered operation.
type OperationSpec struct {
	Kind StepKind
	Bind Binder
}

// Registry maps operation names to their specs. Only registered names can
// appear in a plan. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]OperationSpec
}

// NewRegistry returns a registry holding the built-in operations.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]OperationSpec)}
	for name, spec := range builtinOperations() {
		r.specs[name] = spec
	}
	return r
}

// Register adds or replaces an operation. The pdf operation is reserved.
func (r *Registry) Register(name string, spec OperationSpec) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("operation name cannot be empty")
	}
	if spec.Bind == nil {
		return fmt.Errorf("operation %q has no binder", name)
	}
	if name == OpPDF || spec.Kind == StepPDF {
		return fmt.Errorf("operation %q: the pdf operation is reserved", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[name] = spec
	return nil
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (OperationSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns the registered operation names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func builtinOperations() map[string]OperationSpec {
	return map[string]OperationSpec{
		OpGoto:                 {Kind: StepNavigate, Bind: bindNavigate},
		OpNavigate:             {Kind: StepNavigate, Bind: bindNavigate},
		OpPDF:                  {Kind: StepPDF, Bind: bindPDF},
		"setCookie":            {Kind: StepAction, Bind: bindSetCookie},
		"emulateMediaType":     {Kind: StepAction, Bind: bindEmulateMediaType},
		"setViewport":          {Kind: StepAction, Bind: bindSetViewport},
		"setExtraHTTPHeaders":  {Kind: StepAction, Bind: bindSetExtraHTTPHeaders},
		"setUserAgent":         {Kind: StepAction, Bind: bindSetUserAgent},
		"setJavaScriptEnabled": {Kind: StepAction, Bind: bindSetJavaScriptEnabled},
		"waitForSelector":      {Kind: StepAction, Bind: bindWaitForSelector},
		"waitForNetworkIdle":   {Kind: StepAction, Bind: bindWaitForNetworkIdle},
		"waitForTimeout":       {Kind: StepAction, Bind: bindWaitForTimeout},
		"addStyleTag":          {Kind: StepAction, Bind: bindAddStyleTag},
	}
}

// --- argument decoding ---

// argAt returns the i-th argument if it is present and not null.
func argAt(args []json.RawMessage, i int) (json.RawMessage, bool) {
	if i >= len(args) {
		return nil, false
	}
	raw := bytes.TrimSpace(args[i])
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	return raw, true
}

func requireArg(args []json.RawMessage, i int, v any) error {
	raw, ok := argAt(args, i)
	if !ok {
		return fmt.Errorf("%w: argument %d is required", ErrInvalidArguments, i)
	}
	return decodeArg(raw, i, v)
}

// optionalArg decodes the i-th argument into v if present and reports
// whether it did.
func optionalArg(args []json.RawMessage, i int, v any) (bool, error) {
	raw, ok := argAt(args, i)
	if !ok {
		return false, nil
	}
	return true, decodeArg(raw, i, v)
}

func decodeArg(raw json.RawMessage, i int, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: argument %d: %v", ErrInvalidArguments, i, err)
	}
	return nil
}

func invalidArgs(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArguments, fmt.Sprintf(format, a...))
}

// millis converts a millisecond count from a request into a duration.
func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// waitOptions is the optional trailing argument of wait-like operations.
type waitOptions struct {
	Timeout  *float64 `json:"timeout"`
	IdleTime *float64 `json:"idleTime"`
}

func (w waitOptions) timeout(def time.Duration) (time.Duration, error) {
	if w.Timeout == nil {
		return def, nil
	}
	if *w.Timeout < 0 {
		return 0, invalidArgs("timeout must not be negative")
	}
	return millis(*w.Timeout), nil
}

func validURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return invalidArgs("invalid url %q: %v", raw, err)
	}
	if u.Scheme == "" {
		return invalidArgs("url %q has no scheme", raw)
	}
	return nil
}

// navigateTarget extracts the destination of a navigate operation without
// validating it; binding reports malformed arguments.
func navigateTarget(args []json.RawMessage) string {
	raw, ok := argAt(args, 0)
	if !ok {
		return ""
	}
	var target string
	if err := json.Unmarshal(raw, &target); err != nil {
		return ""
	}
	return strings.TrimSpace(target)
}

// --- built-in binders ---

func bindNavigate(args []json.RawMessage, env BindEnv) (Action, error) {
	var target string
	if err := requireArg(args, 0, &target); err != nil {
		return nil, err
	}
	target = strings.TrimSpace(target)
	if err := validURL(target); err != nil {
		return nil, err
	}

	var raw struct {
		WaitUntil WaitUntil `json:"waitUntil"`
		Timeout   *float64  `json:"timeout"`
	}
	if _, err := optionalArg(args, 1, &raw); err != nil {
		return nil, err
	}
	opts := NavigateOptions{WaitUntil: WaitLoad, Timeout: env.Timeout}
	if raw.WaitUntil != "" {
		if !raw.WaitUntil.valid() {
			return nil, invalidArgs("unsupported waitUntil %q", raw.WaitUntil)
		}
		opts.WaitUntil = raw.WaitUntil
	}
	if raw.Timeout != nil {
		if *raw.Timeout < 0 {
			return nil, invalidArgs("timeout must not be negative")
		}
		opts.Timeout = millis(*raw.Timeout)
	}

	return func(ctx context.Context, p Page) ([]byte, error) {
		return nil, p.Navigate(ctx, target, opts)
	}, nil
}

func bindPDF(args []json.RawMessage, env BindEnv) (Action, error) {
	opts := env.PDF.withDefaults(DefaultPDFOptions())
	if _, err := optionalArg(args, 0, &opts); err != nil {
		return nil, err
	}
	opts = opts.Sanitized()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	return func(ctx context.Context, p Page) ([]byte, error) {
		buf, err := p.PDF(ctx, opts)
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 {
			return nil, errors.New("engine returned an empty document")
		}
		return buf, nil
	}, nil
}

// bindSetCookie accepts cookies spread across arguments, as an array in a
// single argument, or a mix of both.
func bindSetCookie(args []json.RawMessage, env BindEnv) (Action, error) {
	var cookies []Cookie
	for i := range args {
		raw, ok := argAt(args, i)
		if !ok {
			continue
		}
		if raw[0] == '[' {
			var batch []Cookie
			if err := decodeArg(raw, i, &batch); err != nil {
				return nil, err
			}
			cookies = append(cookies, batch...)
			continue
		}
		var c Cookie
		if err := decodeArg(raw, i, &c); err != nil {
			return nil, err
		}
		cookies = append(cookies, c)
	}
	if len(cookies) == 0 {
		return nil, invalidArgs("at least one cookie is required")
	}

	for i := range cookies {
		c := &cookies[i]
		if strings.TrimSpace(c.Name) == "" {
			return nil, invalidArgs("cookie %d has no name", i)
		}
		if c.URL == "" && c.Domain == "" {
			if env.Destination == "" {
				return nil, invalidArgs("cookie %q needs a url or a domain", c.Name)
			}
			c.URL = env.Destination
		}
		switch c.SameSite {
		case "", "Strict", "Lax", "None":
		default:
			return nil, invalidArgs("cookie %q: unsupported sameSite %q", c.Name, c.SameSite)
		}
	}

	return func(ctx context.Context, p Page) ([]byte, error) {
		return nil, p.SetCookies(ctx, cookies)
	}, nil
}

func bindEmulateMediaType(args []json.RawMessage, _ BindEnv) (Action, error) {
	var media string
	if _, err := optionalArg(args, 0, &media); err != nil {
		return nil, err
	}
	switch media {
	case "", "print", "screen":
	default:
		return nil, invalidArgs("unsupported media type %q", media)
	}

	return func(ctx context.Context, p Page) ([]byte, error) {
		return nil, p.EmulateMediaType(ctx, media)
	}, nil
}

func bindSetViewport(args []json.RawMessage, _ BindEnv) (Action, error) {
	var vp Viewport
	if err := requireArg(args, 0, &vp); err != nil {
		return nil, err
	}
	if vp.Width <= 0 || vp.Height <= 0 {
		return nil, invalidArgs("viewport dimensions must be positive, got %dx%d", vp.Width, vp.Height)
	}
	if vp.DeviceScaleFactor < 0 {
		return nil, invalidArgs("deviceScaleFactor must not be negative")
	}

	return func(ctx context.Context, p Page) ([]byte, error) {
		return nil, p.SetViewport(ctx, vp)
	}, nil
}

func bindSetExtraHTTPHeaders(args []json.RawMessage, _ BindEnv) (Action, error) {
	var headers map[string]string
	if err := requireArg(args, 0, &headers); err != nil {
		return nil, err
	}
	for name := range headers {
		if strings.TrimSpace(name) == "" {
			return nil, invalidArgs("header name cannot be empty")
		}
	}

	return func(ctx context.Context, p Page) ([]byte, error) {
		return nil, p.SetExtraHTTPHeaders(ctx, headers)
	}, nil
}

func bindSetUserAgent(args []json.RawMessage, _ BindEnv) (Action, error) {
	var ua string
	if err := requireArg(args, 0, &ua); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ua) == "" {
		return nil, invalidArgs("user agent cannot be empty")
	}

	return func(ctx context.Context, p Page) ([]byte, error) {
		return nil, p.SetUserAgent(ctx, ua)
	}, nil
}

func bindSetJavaScriptEnabled(args []json.RawMessage, _ BindEnv) (Action, error) {
	var enabled bool
	if err := requireArg(args, 0, &enabled); err != nil {
		return nil, err
	}

	return func(ctx context.Context, p Page) ([]byte, error) {
		return nil, p.SetJavaScriptEnabled(ctx, enabled)
	}, nil
}

func bindWaitForSelector(args []json.RawMessage, env BindEnv) (Action, error) {
	var selector string
	if err := requireArg(args, 0, &selector); err != nil {
		return nil, err
	}
	if strings.TrimSpace(selector) == "" {
		return nil, invalidArgs("selector cannot be empty")
	}
	var wo waitOptions
	if _, err := optionalArg(args, 1, &wo); err != nil {
		return nil, err
	}
	timeout, err := wo.timeout(env.Timeout)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, p Page) ([]byte, error) {
		return nil, p.WaitForSelector(ctx, selector, timeout)
	}, nil
}

func bindWaitForNetworkIdle(args []json.RawMessage, env BindEnv) (Action, error) {
	var wo waitOptions
	if _, err := optionalArg(args, 0, &wo); err != nil {
		return nil, err
	}
	timeout, err := wo.timeout(env.Timeout)
	if err != nil {
		return nil, err
	}
	idle := defaultNetworkIdle
	if wo.IdleTime != nil {
		if *wo.IdleTime < 0 {
			return nil, invalidArgs("idleTime must not be negative")
		}
		idle = millis(*wo.IdleTime)
	}

	return func(ctx context.Context, p Page) ([]byte, error) {
		return nil, p.WaitForNetworkIdle(ctx, idle, timeout)
	}, nil
}

// bindWaitForTimeout pauses the plan. The pause is capped at the operation
// timeout so a request cannot pin a browser indefinitely.
func bindWaitForTimeout(args []json.RawMessage, env BindEnv) (Action, error) {
	var ms float64
	if err := requireArg(args, 0, &ms); err != nil {
		return nil, err
	}
	d := millis(ms)
	if d < 0 {
		return nil, invalidArgs("delay must not be negative")
	}
	if env.Timeout > 0 && d > env.Timeout {
		return nil, invalidArgs("delay %s exceeds the limit of %s", d, env.Timeout)
	}

	return func(ctx context.Context, _ Page) ([]byte, error) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, nil
}

func bindAddStyleTag(args []json.RawMessage, _ BindEnv) (Action, error) {
	var tag StyleTag
	if err := requireArg(args, 0, &tag); err != nil {
		return nil, err
	}
	if tag.URL == "" && tag.Content == "" {
		return nil, invalidArgs("style tag needs a url or content")
	}
	if tag.URL != "" {
		if err := validURL(tag.URL); err != nil {
			return nil, err
		}
	}

	return func(ctx context.Context, p Page) ([]byte, error) {
		return nil, p.AddStyleTag(ctx, tag)
	}, nil
}
