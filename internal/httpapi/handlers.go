package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/alnah/go-web2pdf/internal/logging"
)

// handleRoot answers the historical liveness probe.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	req, status, err := s.decodePrintRequest(w, r)
	if err != nil {
		respondError(w, status, err)
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	pdf, err := s.renderer.Render(ctx, req)
	if err != nil {
		status := statusFor(err)
		log := s.logger.With(zap.String(logging.FieldRequestID, middleware.GetReqID(r.Context())))
		if status >= http.StatusInternalServerError {
			log.Error("render failed", zap.String("url", req.URL), zap.Error(err))
		} else {
			log.Info("render rejected", zap.String("url", req.URL), zap.Error(err))
		}
		respondError(w, status, err)
		return
	}

	respondPDF(w, pdf)
}
