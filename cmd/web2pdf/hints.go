package main

import (
	"context"
	"errors"
	"strings"

	web2pdf "github.com/alnah/go-web2pdf"
	"github.com/alnah/go-web2pdf/internal/config"
	"github.com/alnah/go-web2pdf/internal/hints"
)

// hintFor returns an actionable hint for err, or "" when none applies.
func hintFor(err error) string {
	switch {
	case errors.Is(err, web2pdf.ErrLaunchTimeout):
		return hints.ForLaunchTimeout()
	case errors.Is(err, web2pdf.ErrBrowserLaunch):
		return hints.ForBrowserLaunch(loadEnvConfig().BrowserBin)
	case errors.Is(err, web2pdf.ErrScratchDir):
		return hints.ForScratchRoot()
	case web2pdf.IsRequestError(err) && errors.Is(err, context.DeadlineExceeded):
		return hints.ForOperationTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		_, tried, _ := strings.Cut(err.Error(), "tried ")
		return hints.ForConfigNotFound(strings.Split(tried, ", "))
	case errors.Is(err, ErrWritePDF):
		return hints.ForOutput()
	}
	return ""
}
