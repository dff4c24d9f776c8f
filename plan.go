package web2pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Step is one operation of a Plan, resolved against the registry.
type Step struct {
	Operation
	Kind StepKind `json:"-"`
	// Synthesized marks steps the plan added on the caller's behalf.
	Synthesized bool `json:"synthesized,omitempty"`

	action Action
}

// Plan is a normalized, validated sequence of steps. The last step is
// always the only pdf step.
type Plan struct {
	Destination string     `json:"destination"`
	PDFOptions  PDFOptions `json:"pdfOptions"`
	Steps       []Step     `json:"steps"`
}

// Names returns the operation name of every step, in order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}

func (p *Plan) String() string {
	return strings.Join(p.Names(), " -> ")
}

// pipeline turns requests into plans and runs them.
type pipeline struct {
	registry   *Registry
	defaultPDF PDFOptions
	opTimeout  time.Duration
	recorder   Recorder
}

// normalize builds the plan for req. It never touches a browser, so every
// error it returns is a request error.
func (pl *pipeline) normalize(req RenderRequest) (*Plan, error) {
	ops := req.Operations

	// Anything after the first pdf operation is dropped.
	var pdfArgs []json.RawMessage
	explicitPDF := false
	for i, op := range ops {
		if op.Name == OpPDF {
			pdfArgs = op.Args
			explicitPDF = true
			ops = ops[:i]
			break
		}
	}

	opts, err := pl.resolvePDFOptions(pdfArgs, req.PDFOptions)
	if err != nil {
		return nil, newRequestError(OpPDF, err)
	}

	steps := make([]Step, 0, len(ops)+2)
	destination := ""
	navigates := false
	for i, op := range ops {
		spec, ok := pl.registry.Lookup(op.Name)
		if !ok {
			return nil, newRequestError(op.Name, fmt.Errorf("%w %q at position %d", ErrUnknownOperation, op.Name, i))
		}
		if spec.Kind == StepNavigate && !navigates {
			navigates = true
			destination = navigateTarget(op.Args)
		}
		steps = append(steps, Step{Operation: op, Kind: spec.Kind})
	}

	if !navigates {
		destination = strings.TrimSpace(req.URL)
		if destination == "" {
			return nil, newRequestError("", ErrNoDestination)
		}
		nav, err := NewOperation(OpGoto, destination, map[string]WaitUntil{"waitUntil": WaitNetworkIdle})
		if err != nil {
			return nil, newRequestError(OpGoto, fmt.Errorf("%w: %v", ErrInvalidArguments, err))
		}
		steps = append(steps, Step{Operation: nav, Kind: StepNavigate, Synthesized: true})
	}

	pdf, err := NewOperation(OpPDF, opts)
	if err != nil {
		return nil, newRequestError(OpPDF, fmt.Errorf("%w: %v", ErrInvalidArguments, err))
	}
	steps = append(steps, Step{Operation: pdf, Kind: StepPDF, Synthesized: !explicitPDF})

	env := BindEnv{Destination: destination, Timeout: pl.opTimeout, PDF: opts}
	for i := range steps {
		spec, _ := pl.registry.Lookup(steps[i].Name)
		action, err := spec.Bind(steps[i].Args, env)
		if err != nil {
			return nil, newRequestError(steps[i].Name, fmt.Errorf("position %d: %w", i, err))
		}
		steps[i].action = action
	}

	return &Plan{Destination: destination, PDFOptions: opts, Steps: steps}, nil
}

// resolvePDFOptions picks the print options for the plan: an object passed
// to an explicit pdf operation, else the request's options. Whichever is
// picked, fields it leaves unset come from the renderer default. The
// result never carries an output path.
func (pl *pipeline) resolvePDFOptions(args []json.RawMessage, fallback *PDFOptions) (PDFOptions, error) {
	var opts PDFOptions
	if raw, ok := argAt(args, 0); ok && bytes.HasPrefix(raw, []byte("{")) {
		if err := decodeArg(raw, 0, &opts); err != nil {
			return PDFOptions{}, err
		}
	} else if fallback != nil {
		opts = *fallback
	}
	return opts.withDefaults(pl.defaultPDF).Sanitized(), nil
}

// execute runs the plan one step at a time and returns the pdf bytes.
func (pl *pipeline) execute(ctx context.Context, page Page, plan *Plan, logger *zap.Logger) ([]byte, error) {
	var out []byte
	for i, step := range plan.Steps {
		if ctx.Err() != nil {
			return nil, interruption(ctx)
		}

		start := time.Now()
		res, err := step.action(ctx, page)
		took := time.Since(start)
		pl.recorder.OperationDone(step.Name, took, err)

		if err != nil {
			if ctx.Err() != nil {
				return nil, interruption(ctx)
			}
			logger.Debug("operation failed",
				zap.Int("index", i),
				zap.String("op", step.Name),
				zap.Duration("took", took),
				zap.Error(err))
			return nil, step.classify(err)
		}

		logger.Debug("operation done",
			zap.Int("index", i),
			zap.String("op", step.Name),
			zap.Bool("synthesized", step.Synthesized),
			zap.Duration("took", took))
		if step.Kind == StepPDF {
			out = res
		}
	}
	return out, nil
}

// classify attaches a kind to a step failure. Errors that already carry
// one are returned as is.
func (s Step) classify(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch s.Kind {
	case StepNavigate:
		return newRequestError(s.Name, fmt.Errorf("%w: %w", ErrNavigation, err))
	case StepPDF:
		return newEngineCrash(s.Name, fmt.Errorf("%w: %w", ErrPDFGeneration, err))
	default:
		return newRequestError(s.Name, fmt.Errorf("%w: %w", ErrOperationFailed, err))
	}
}

// interruption explains why ctx ended. A classified cause, such as a page
// crash, wins over the bare context error.
func interruption(ctx context.Context) error {
	cause := context.Cause(ctx)
	var e *Error
	if errors.As(cause, &e) {
		return e
	}
	if cause != nil {
		return cause
	}
	return ctx.Err()
}
