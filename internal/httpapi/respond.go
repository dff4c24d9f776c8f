package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	web2pdf "github.com/alnah/go-web2pdf"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func setCommonHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

// respondJSON writes payload with status.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	setCommonHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError sends a structured JSON error response.
func respondError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	var renderErr *web2pdf.Error
	switch {
	case errors.As(err, &renderErr):
		msg = renderErr.Message()
	case err != nil:
		msg = err.Error()
	}
	respondJSON(w, status, errorBody{Error: true, Message: msg})
}

// respondPDF writes a rendered document.
func respondPDF(w http.ResponseWriter, pdf []byte) {
	setCommonHeaders(w)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// statusFor maps a render error to an HTTP status. Only request errors
// are the client's fault; every other failure is a server error.
func statusFor(err error) int {
	if web2pdf.IsRequestError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeJSONBody decodes a bounded JSON body into dst and returns the
// status to report on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) (int, error) {
	if r.Body == nil {
		return http.StatusBadRequest, errors.New("request body required")
	}
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return http.StatusRequestEntityTooLarge, fmt.Errorf("request body too large (max %d bytes)", maxBytes)
		case errors.Is(err, io.EOF):
			return http.StatusBadRequest, errors.New("request body required")
		default:
			return http.StatusBadRequest, fmt.Errorf("malformed JSON body: %w", err)
		}
	}
	if dec.More() {
		return http.StatusBadRequest, errors.New("request body must hold a single JSON object")
	}
	return 0, nil
}
