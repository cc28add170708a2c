package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/email-analyzer/internal/config"
	"github.com/kirillkom/email-analyzer/internal/core/domain"
	"github.com/kirillkom/email-analyzer/internal/core/ports"
	"github.com/kirillkom/email-analyzer/internal/observability/metrics"
)

// multipartMemory is how much of a form is buffered in memory before spilling to disk.
const multipartMemory = 8 << 20

type Router struct {
	cfg      config.Config
	analyzer ports.EmailAnalyzer
	metrics  *metrics.HTTPServerMetrics
}

// NewRouter wires the API. m may be nil, which disables /metrics and request metrics.
func NewRouter(cfg config.Config, analyzer ports.EmailAnalyzer, m *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:      cfg,
		analyzer: analyzer,
		metrics:  m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPI)
	mux.HandleFunc("POST /analyze", rt.analyze)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureQueue, rt.recordRejected)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.recordRejected)
	handler = corsMiddleware(handler)
	handler = accessLogMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	return requestIDMiddleware(handler)
}

type analyzeResponse struct {
	AnalysisID     string `json:"analysis_id,omitempty"`
	Category       string `json:"category"`
	SuggestedReply string `json:"suggested_reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openAPISpec)
}

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := requestIDFromContext(r.Context())

	submission, err := rt.readSubmission(w, r)
	if err != nil {
		slog.Warn("analyze_bad_request", "request_id", requestID, "error", err)
		rt.recordAnalysis(sourceOf(submission), "", "rejected", start)
		// Oversized uploads get the same 200 as the use case's size check, whatever their size.
		if msg, ok := domain.UserMessage(err); ok {
			writeJSON(w, http.StatusOK, errorResponse{Error: msg})
			return
		}
		status := mapErrorToHTTPStatus(err)
		writeJSON(w, status, errorResponse{Error: publicErrorMessage(status)})
		return
	}
	submission.RequestID = requestID

	analysis, err := rt.analyzer.Analyze(r.Context(), submission)
	if err != nil {
		// Rejected input is reported in the body with 200 so the page can render it verbatim.
		if msg, ok := domain.UserMessage(err); ok {
			rt.recordAnalysis(sourceOf(submission), "", "rejected", start)
			writeJSON(w, http.StatusOK, errorResponse{Error: msg})
			return
		}
		status := mapErrorToHTTPStatus(err)
		slog.Error("analyze_failed", "request_id", requestID, "status", status, "error", err)
		rt.recordAnalysis(sourceOf(submission), "", "error", start)
		writeJSON(w, status, errorResponse{Error: publicErrorMessage(status)})
		return
	}

	rt.recordAnalysis(string(analysis.Source), analysis.Classifier, "success", start)
	writeJSON(w, http.StatusOK, analyzeResponse{
		AnalysisID:     analysis.ID,
		Category:       analysis.Category,
		SuggestedReply: analysis.SuggestedReply,
	})
}

// readSubmission collects the optional text and file fields. Plain urlencoded forms are accepted too.
func (rt *Router) readSubmission(w http.ResponseWriter, r *http.Request) (domain.Submission, error) {
	var submission domain.Submission

	limit := rt.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	// Leave headroom for the text field and multipart framing; the use case enforces the exact file cap.
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return submission, domain.NewUserError(domain.ErrTooLarge, fmt.Sprintf("file too large, max %s.", domain.FormatBytes(limit)))
		}
		return submission, domain.WrapError(domain.ErrInvalidInput, "parse form", err)
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	submission.Text = r.PostFormValue("text")

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return submission, nil
	case err != nil:
		return submission, domain.WrapError(domain.ErrInvalidInput, "read file field", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return submission, domain.WrapError(domain.ErrInvalidInput, "read uploaded file", err)
	}
	submission.File = &domain.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}
	return submission, nil
}

func (rt *Router) recordAnalysis(source, classifier, outcome string, start time.Time) {
	if rt.metrics != nil {
		rt.metrics.RecordAnalysis(source, classifier, outcome, time.Since(start))
	}
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(reason)
	}
}

func sourceOf(submission domain.Submission) string {
	switch {
	case submission.File != nil:
		return string(domain.SourceFile)
	case submission.Text != "":
		return string(domain.SourceText)
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
