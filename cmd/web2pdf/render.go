package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	web2pdf "github.com/alnah/go-web2pdf"
	"github.com/alnah/go-web2pdf/internal/fileutil"
	"github.com/alnah/go-web2pdf/internal/metrics"
)

// runRender renders one URL to a file or prints its plan.
func runRender(ctx context.Context, args []string, env *Environment) error {
	f, positional, fs, err := parseRenderFlags(args, env.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: render takes at most one URL, got %d arguments", ErrUsage, len(positional))
	}
	if !f.plan && f.output == "" {
		return fmt.Errorf("%w: --output is required", ErrUsage)
	}

	req, err := buildRenderRequest(positional, f)
	if err != nil {
		return err
	}

	cfg, err := configFromFlags(fs, &f.common, &f.browser)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	renderer, err := newRenderer(cfg, logger, env, nil)
	if err != nil {
		return err
	}

	if f.plan {
		plan, err := renderer.Plan(req)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	pdf, err := renderer.Render(ctx, req)
	if err != nil {
		return err
	}

	if f.output == "-" {
		if _, err := env.Stdout.Write(pdf); err != nil {
			return fmt.Errorf("%w: %v", ErrWritePDF, err)
		}
		return nil
	}
	if err := fileutil.WriteFileAtomic(f.output, pdf, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWritePDF, f.output, err)
	}
	logger.Info("wrote pdf", zap.String("path", f.output), zap.Int("bytes", len(pdf)))
	return nil
}

// buildRenderRequest assembles a request from the positional URL and the
// JSON flags.
func buildRenderRequest(positional []string, f *renderFlags) (web2pdf.RenderRequest, error) {
	var req web2pdf.RenderRequest
	if len(positional) == 1 {
		req.URL = positional[0]
	}

	if f.pdfOptions != "" {
		var opts web2pdf.PDFOptions
		if err := decodeJSONArg("pdf-options", f.pdfOptions, &opts); err != nil {
			return req, err
		}
		req.PDFOptions = &opts
	}
	if f.operations != "" {
		if err := decodeJSONArg("operations", f.operations, &req.Operations); err != nil {
			return req, err
		}
	}
	return req, nil
}

// decodeJSONArg decodes an inline JSON value, or the content of a file
// when the value starts with @.
func decodeJSONArg(name, value string, dst any) error {
	data := []byte(value)
	if path, ok := strings.CutPrefix(value, "@"); ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: --%s: %v", ErrReadInput, name, err)
		}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: --%s: %v", ErrInvalidJSON, name, err)
	}
	return nil
}

// recorderOf returns m as a Recorder, or nil when metrics are disabled.
// A nil *Metrics must not reach the renderer as a non-nil interface.
func recorderOf(m *metrics.Metrics) web2pdf.Recorder {
	if m == nil {
		return nil
	}
	return m
}
