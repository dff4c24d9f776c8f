package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	web2pdf "github.com/alnah/go-web2pdf"
	"github.com/alnah/go-web2pdf/internal/config"
)

// ---------------------------------------------------------------------------
// TestHintFor - Error to hint mapping
// ---------------------------------------------------------------------------

func TestHintFor(t *testing.T) {
	t.Parallel()

	timedOut := renderError(t, &fakeEngine{navErr: context.DeadlineExceeded}, "https://example.com")
	launch := renderError(t, &fakeEngine{launchErr: errors.New("exec: not found")}, "https://example.com")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), ""},
		{"launch failure", launch, "web2pdf doctor"},
		{"operation timeout", timedOut, "--operation-timeout"},
		{"config not found", fmt.Errorf("%w: tried prod.yaml, prod.yml", config.ErrConfigNotFound), "--config"},
		{"write failure", fmt.Errorf("%w: out.pdf", ErrWritePDF), "writable"},
		{"scratch dir", fmt.Errorf("%w: read-only file system", web2pdf.ErrScratchDir), "--scratch-root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := hintFor(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("hintFor() = %q, want none", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("hintFor() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
