package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/scaleneo/bilan/internal/analysis"
	"github.com/scaleneo/bilan/internal/api/middleware"
	"github.com/scaleneo/bilan/internal/export"
	"github.com/scaleneo/bilan/internal/extract"
	"github.com/scaleneo/bilan/internal/observability/metrics"
	"github.com/scaleneo/bilan/internal/observability/tracing"
	"github.com/scaleneo/bilan/internal/record"
)

// RecordHandler handles record extraction, analysis and export endpoints
type RecordHandler struct {
	assembler *extract.Assembler
	metrics   *metrics.Metrics
	logger    *zap.Logger
	maxUpload int64
	now       func() time.Time
}

// NewRecordHandler creates a new handler
func NewRecordHandler(m *metrics.Metrics, maxUpload int64, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{
		assembler: extract.NewAssembler(nil),
		metrics:   m,
		logger:    logger,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

// Routes returns the handler routes
func (h *RecordHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/extract", h.Extract)
	r.Post("/analyze", h.Analyze)
	r.Post("/export", h.Export)
	return r
}

// ExtractResponse is the response of an extraction
type ExtractResponse struct {
	Record          *record.Record `json:"record"`
	Format          extract.Format `json:"format"`
	Ready           bool           `json:"ready"`
	ValidationError string         `json:"validationError,omitempty"`
}

// Extract handles POST /records/extract
func (h *RecordHandler) Extract(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.Tracer().Start(r.Context(), "extract_record")
	defer span.End()

	doc, fileName, err := readDocument(r, h.maxUpload)
	if err != nil {
		writeError(w, err)
		return
	}
	span.SetAttributes(attribute.Int("document.bytes", len(doc)), attribute.String("document.name", fileName))

	start := time.Now()
	res, err := h.assembler.Assemble(doc)
	h.metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		var perr *extract.ParseError
		format := "unknown"
		if errors.As(err, &perr) {
			format = string(perr.Format)
		}
		h.metrics.ExtractionsTotal.WithLabelValues(format, "parse_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		h.logger.Warn("extraction failed",
			zap.Error(err),
			zap.String("file", fileName),
			zap.String("request_id", middleware.GetRequestID(ctx)),
		)
		writeError(w, err)
		return
	}

	resp := ExtractResponse{Record: res.Record, Format: res.Format, Ready: true}
	outcome := "ok"
	if verr := res.Ready(); verr != nil {
		resp.Ready = false
		resp.ValidationError = verr.Error()
		outcome = "not_ready"
	}
	h.metrics.ExtractionsTotal.WithLabelValues(string(res.Format), outcome).Inc()
	span.SetAttributes(attribute.String("document.format", string(res.Format)), attribute.Bool("record.ready", resp.Ready))

	h.logger.Info("record extracted",
		zap.String("format", string(res.Format)),
		zap.Bool("ready", resp.Ready),
		zap.String("file", fileName),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)
	writeJSON(w, http.StatusOK, resp)
}

// Analyze handles POST /records/analyze
func (h *RecordHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.Tracer().Start(r.Context(), "analyze_record")
	defer span.End()

	rec, err := readRecord(r)
	if err != nil {
		writeError(w, err)
		return
	}

	report := analysis.Analyze(rec)
	for _, f := range report.RedFlags {
		h.metrics.RedFlagsDetected.WithLabelValues(f.Key, string(f.Category)).Inc()
	}
	span.SetAttributes(
		attribute.Int("analysis.scores", len(report.Scores)),
		attribute.Int("analysis.red_flags", len(report.RedFlags)),
	)
	writeJSON(w, http.StatusOK, report)
}

// Export handles POST /records/export?format=csv|xlsx|json|fhir
func (h *RecordHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.Tracer().Start(r.Context(), "export_record")
	defer span.End()

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}
	span.SetAttributes(attribute.String("export.format", string(format)))

	rec, err := readRecord(r)
	if err != nil {
		writeError(w, err)
		return
	}

	at := h.now()
	var buf bytes.Buffer
	if err := export.Write(&buf, format, rec, at); err != nil {
		h.metrics.ExportsTotal.WithLabelValues(string(format), "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		h.logger.Error("export failed",
			zap.Error(err),
			zap.String("format", string(format)),
			zap.String("request_id", middleware.GetRequestID(ctx)),
		)
		writeError(w, err)
		return
	}
	h.metrics.ExportsTotal.WithLabelValues(string(format), "ok").Inc()

	name := export.Filename(rec, format.Extension(), at)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
