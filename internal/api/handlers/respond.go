// Package handlers provides HTTP handlers for the assessment API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/scaleneo/bilan/internal/export"
	"github.com/scaleneo/bilan/internal/extract"
	"github.com/scaleneo/bilan/internal/longitudinal"
	"github.com/scaleneo/bilan/internal/record"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func jsonError(w http.ResponseWriter, message, code string, status int) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	var (
		parseErr  *extract.ParseError
		validErr  *extract.ValidationError
		exportErr *export.ExportError
		tooLarge  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.As(err, &parseErr):
		return http.StatusBadRequest, "parse_error"
	case errors.As(err, &validErr):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest, "unknown_format"
	case errors.Is(err, longitudinal.ErrInvalidDate):
		return http.StatusBadRequest, "invalid_date"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.As(err, &exportErr):
		return http.StatusInternalServerError, "export_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError && code == "internal" {
		msg = "internal server error"
	}
	jsonError(w, msg, code, status)
}

var errBadRequest = errors.New("bad request")

// readDocument returns the uploaded document: the "file" part of a
// multipart form, or the raw body otherwise.
func readDocument(r *http.Request, maxBytes int64) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, "", fmt.Errorf("%w: read form: %w", errBadRequest, err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("%w: missing file part: %w", errBadRequest, err)
		}
		defer f.Close()
		b, err := io.ReadAll(f)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", hdr.Filename, err)
		}
		return b, hdr.Filename, nil
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", err
	}
	return b, "", nil
}

// readRecord decodes a record sent as JSON in sectionN or semantic form.
func readRecord(r *http.Request) (*record.Record, error) {
	rec := record.New()
	if err := json.NewDecoder(r.Body).Decode(rec); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: invalid record body: %w", errBadRequest, err)
	}
	return rec, nil
}
