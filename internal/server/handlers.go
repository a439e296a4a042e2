package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/headline-goat/powergoat/internal/decision"
	"github.com/headline-goat/powergoat/internal/power"
	"github.com/headline-goat/powergoat/internal/request"
)

const maxBodyBytes = 1 << 20

type HealthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CacheSize     int     `json:"cache_size"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
}

// ErrorResponse mirrors the engine's error results so clients handle both
// the same way.
type ErrorResponse struct {
	Type        power.ResultType `json:"type"`
	Description string           `json:"description"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.mdeCache.Stats()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		CacheSize:     stats.Size,
		CacheHitRate:  stats.HitRate,
	})
}

type defaultable interface {
	ApplyDefaults(request.Defaults)
}

// decode reads a JSON body into req, fills defaults and validates it. It
// writes a 400 and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, req defaultable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := request.Decode(r.Body, request.FormatJSON, req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	req.ApplyDefaults(s.defaults)
	if err := request.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	var req request.PowerRequest
	if !s.decode(w, r, &req) {
		return
	}

	_, span := s.tracer.Start(r.Context(), "power.weeks")
	span.SetAttributes(
		attribute.String("engine", string(req.StatsEngineSettings.Type)),
		attribute.Int("metrics", len(req.Metrics)),
		attribute.Int("weeks", req.NWeeks),
	)
	defer span.End()

	start := time.Now()
	result := req.Run()
	s.metrics.ObserveCalculation("power", start, result.OK())

	if !result.OK() {
		span.SetStatus(codes.Error, result.Description)
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMDE(w http.ResponseWriter, r *http.Request) {
	var req request.MDERequest
	if !s.decode(w, r, &req) {
		return
	}

	_, span := s.tracer.Start(r.Context(), "power.mde")
	span.SetAttributes(
		attribute.String("engine", string(req.StatsEngineSettings.Type)),
		attribute.Float64("users", req.Users),
	)
	defer span.End()

	start := time.Now()
	result, hit := s.mdeCache.GetOrCompute(req, req.Run)
	s.metrics.ObserveCache("mde", hit)
	span.SetAttributes(attribute.Bool("cache_hit", hit))
	if !hit {
		s.metrics.ObserveCalculation("mde", start, result.OK())
	}

	if !result.OK() {
		span.SetStatus(codes.Error, result.Description)
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMidExperiment(w http.ResponseWriter, r *http.Request) {
	var req request.MidExperimentRequest
	if !s.decode(w, r, &req) {
		return
	}

	_, span := s.tracer.Start(r.Context(), "power.mid_experiment")
	span.SetAttributes(
		attribute.Int("variations", req.NumVariations),
		attribute.Int("goal_metrics", req.NumGoalMetrics),
		attribute.Bool("sequential", req.Sequential),
	)
	defer span.End()

	start := time.Now()
	result := req.Run()
	s.metrics.ObserveCalculation("mid_experiment", start, result.OK())

	if !result.OK() {
		span.SetStatus(codes.Error, result.Description)
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req request.DecisionRequest
	if !s.decode(w, r, &req) {
		return
	}

	_, span := s.tracer.Start(r.Context(), "decision.framework")
	span.SetAttributes(attribute.Int("variations", len(req.Results.Variations)))
	defer span.End()

	start := time.Now()
	resp := req.Run()
	s.metrics.ObserveCalculation("decision", start, true)

	writeJSON(w, http.StatusOK, resp)
}

// StatusResponse wraps the result status, which is null when nothing
// applies.
type StatusResponse struct {
	Result *decision.ExperimentResultStatus `json:"result"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req request.StatusRequest
	if !s.decode(w, r, &req) {
		return
	}

	_, span := s.tracer.Start(r.Context(), "decision.status")
	defer span.End()

	start := time.Now()
	result := req.Run()
	s.metrics.ObserveCalculation("status", start, true)

	if result != nil {
		span.SetAttributes(attribute.String("status", result.Status))
	}
	writeJSON(w, http.StatusOK, StatusResponse{Result: result})
}

// writeJSON encodes v before touching the response so an unencodable value
// becomes a 500 instead of a success status with an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(ErrorResponse{Type: power.ResultError, Description: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, description string) {
	writeJSON(w, status, ErrorResponse{Type: power.ResultError, Description: description})
}
