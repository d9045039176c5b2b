package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mandymgr/KRINS-Chronicle-Keeper-sub001/internal/impact"
)

const maxRequestBodySize = 1 << 20 // 1MB

// NewHandler returns the REST surface over a tracker. A non-empty token
// puts bearer auth on the mutating and export routes; read routes stay open.
func NewHandler(tr *impact.Tracker, token string) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/impacts", handleListImpacts(tr))
	r.Get("/decisions/{id}/evaluation", handleGetEvaluation(tr))
	r.Get("/decisions/{id}/timeline", handleTimeline(tr))
	r.Get("/decisions/{id}/prediction", handlePrediction(tr))
	r.Get("/analytics", handleAnalytics(tr))

	r.Group(func(r chi.Router) {
		if token != "" {
			r.Use(BearerAuth(token))
		}
		r.Post("/impacts", handleRecordImpact(tr))
		r.Post("/decisions/{id}/evaluate", handleEvaluate(tr))
		r.Get("/export", handleExport(tr))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func handleRecordImpact(tr *impact.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req impact.NewImpact
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		id, err := tr.Record(req)
		if err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func handleListImpacts(tr *impact.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50)
		offset := queryInt(r, "offset", 0)
		if limit <= 0 {
			limit = 50
		}
		if limit > 500 {
			limit = 500
		}
		if offset < 0 {
			offset = 0
		}

		records := tr.RecentImpacts(limit, offset)
		writeJSON(w, http.StatusOK, map[string]any{
			"impacts": records,
			"total":   tr.ImpactCount(),
		})
	}
}

type evaluateRequest struct {
	Title              string    `json:"title"`
	ImplementationDate time.Time `json:"implementation_date"`
	PeriodMonths       int       `json:"period_months"`
}

func handleEvaluate(tr *impact.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req evaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.PeriodMonths <= 0 {
			req.PeriodMonths = impact.DefaultPeriodMonths
		}

		ev, err := tr.Evaluate(chi.URLParam(r, "id"), req.Title, req.ImplementationDate, req.PeriodMonths)
		if err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

func handleGetEvaluation(tr *impact.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, err := tr.Evaluation(chi.URLParam(r, "id"))
		if err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

func handleTimeline(tr *impact.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		writeJSON(w, http.StatusOK, map[string]any{
			"decision_id": id,
			"timeline":    tr.Timeline(id),
		})
	}
}

func handlePrediction(tr *impact.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tr.Predict(chi.URLParam(r, "id")))
	}
}

func handleAnalytics(tr *impact.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tf, err := timeframeFromQuery(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, tr.Analytics(tf))
	}
}

func handleExport(tr *impact.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := impact.Format(r.URL.Query().Get("format"))
		if format == "" {
			format = impact.FormatJSON
		}

		data, err := tr.Export(format)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"format":  format,
			"data":    data,
		})
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// timeframeFromQuery parses optional RFC 3339 start/end bounds. Both absent
// means an unbounded query, reported as a nil timeframe.
func timeframeFromQuery(r *http.Request) (*impact.Timeframe, error) {
	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if startRaw == "" && endRaw == "" {
		return nil, nil
	}

	var tf impact.Timeframe
	if startRaw != "" {
		start, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid start: %w", err)
		}
		tf.Start = start
	}
	if endRaw != "" {
		end, err := time.Parse(time.RFC3339, endRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid end: %w", err)
		}
		tf.End = end
	}
	return &tf, nil
}
