package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/scaleneo/bilan/internal/api/middleware"
	"github.com/scaleneo/bilan/internal/longitudinal"
	"github.com/scaleneo/bilan/internal/observability/metrics"
	"github.com/scaleneo/bilan/internal/observability/tracing"
	"github.com/scaleneo/bilan/internal/textscan"
	"github.com/scaleneo/bilan/pkg/workerpool"
)

// TimelineHandler handles visit metric and follow-up timeline endpoints
type TimelineHandler struct {
	pool      workerpool.Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
	maxUpload int64
}

// NewTimelineHandler creates a new handler; pool sizes the batch extraction.
func NewTimelineHandler(pool workerpool.Config, m *metrics.Metrics, maxUpload int64, logger *zap.Logger) *TimelineHandler {
	return &TimelineHandler{pool: pool, metrics: m, logger: logger, maxUpload: maxUpload}
}

// MetricsRoutes returns the visit metric routes
func (h *TimelineHandler) MetricsRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/extract", h.ExtractMetrics)
	return r
}

// Routes returns the timeline routes
func (h *TimelineHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Build)
	r.Get("/config", h.Config)
	return r
}

// MetricsResponse is the response of a visit metric extraction
type MetricsResponse struct {
	Metrics longitudinal.Metrics `json:"metrics"`
}

// ExtractMetrics handles POST /metrics/extract
func (h *TimelineHandler) ExtractMetrics(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.Tracer().Start(r.Context(), "extract_metrics")
	defer span.End()

	doc, _, err := readDocument(r, h.maxUpload)
	if err != nil {
		writeError(w, err)
		return
	}
	m := longitudinal.ExtractMetrics(textscan.Decode(doc))
	span.SetAttributes(attribute.Int("metrics.count", len(m)))
	writeJSON(w, http.StatusOK, MetricsResponse{Metrics: m})
}

// TimelineResponse is the response of a timeline build
type TimelineResponse struct {
	Assessments []longitudinal.Assessment `json:"assessments"`
	Trends      []longitudinal.Trend      `json:"trends"`
}

// Build handles POST /timeline. The form carries visit files under "files"
// with optional "date_<i>" and "label_<i>" fields for the i-th file.
func (h *TimelineHandler) Build(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.Tracer().Start(r.Context(), "build_timeline")
	defer span.End()

	visits, err := h.readVisits(r)
	if err != nil {
		writeError(w, err)
		return
	}
	span.SetAttributes(attribute.Int("timeline.visits", len(visits)))

	tl, err := longitudinal.BuildTimeline(ctx, visits, h.pool, h.logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "timeline build failed")
		h.logger.Warn("timeline build failed",
			zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(ctx)),
		)
		writeError(w, err)
		return
	}
	h.metrics.AssessmentsProcessed.Add(float64(tl.Len()))

	all := tl.All()
	writeJSON(w, http.StatusOK, TimelineResponse{Assessments: all, Trends: longitudinal.Trends(all)})
}

func (h *TimelineHandler) readVisits(r *http.Request) ([]longitudinal.Visit, error) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, fmt.Errorf("%w: read form: %w", errBadRequest, err)
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no visit files in form field \"files\"", errBadRequest)
	}

	visits := make([]longitudinal.Visit, 0, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		idx := strconv.Itoa(i)
		visits = append(visits, longitudinal.Visit{
			FileName: fh.Filename,
			Date:     r.FormValue("date_" + idx),
			Label:    r.FormValue("label_" + idx),
			Content:  content,
		})
	}
	return visits, nil
}

// Config handles GET /timeline/config
func (h *TimelineHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, longitudinal.Configs())
}
