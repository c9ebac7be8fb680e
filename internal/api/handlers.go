package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/econ-calendar/internal/lookup"
	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/refresh"
)

const (
	healthTimeout   = 3 * time.Second
	defaultRunLimit = 50
	maxRunLimit     = 500
)

type parseRequest struct {
	HTMLContent string `json:"htmlContent"`
}

func (h *handler) parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decode(w, r, h.maxBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.HTMLContent) == "" {
		writeError(w, http.StatusBadRequest, "htmlContent is required")
		return
	}

	res, err := h.pipeline.ParseHTML(r.Context(), req.HTMLContent)
	switch {
	case errors.Is(err, refresh.ErrNoCalendar):
		writeError(w, http.StatusBadRequest, "htmlContent contains no recognised calendar")
	case err != nil:
		zap.L().Error("api: parse failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

type refreshRequest struct {
	TargetDate string                `json:"targetDate"`
	Currencies []string              `json:"currencies"`
	Events     []refresh.TargetEvent `json:"events"`
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if err := decode(w, r, h.maxBody, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.TargetDate == "" {
		writeError(w, http.StatusBadRequest, "targetDate is required")
		return
	}
	date, err := time.Parse(time.DateOnly, body.TargetDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "targetDate must be YYYY-MM-DD")
		return
	}
	req := refresh.Request{TargetDate: date, Currencies: body.Currencies, Events: body.Events}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.pipeline.Refresh(r.Context(), req)
	switch {
	case errors.Is(err, refresh.ErrAllSourcesFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case err != nil:
		zap.L().Error("api: refresh failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

type lookupRequest struct {
	lookup.Request
	Events []lookup.Request `json:"events"`
}

type batchResponse struct {
	Success bool            `json:"success"`
	Results []lookup.Result `json:"results"`
}

func (h *handler) lookupEvents(w http.ResponseWriter, r *http.Request) {
	var body lookupRequest
	if err := decode(w, r, h.maxBody, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(body.Events) > 0 {
		results := h.lookup.GetBatch(r.Context(), body.Events)
		writeJSON(w, http.StatusOK, batchResponse{Success: true, Results: results})
		return
	}

	if _, _, err := body.Request.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.lookup.Get(r.Context(), body.Request)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, lookup.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, lookup.ErrInvalidRequest):
			status = http.StatusBadRequest
		}
		writeJSON(w, status, lookup.Result{
			EventName: body.EventName,
			Country:   body.Country,
			Error:     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) bootstrap(w http.ResponseWriter, r *http.Request) {
	res, err := h.pipeline.Bootstrap(r.Context())
	switch {
	case errors.Is(err, refresh.ErrAllSourcesFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case err != nil:
		zap.L().Error("api: bootstrap failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

type healthResponse struct {
	Status   string            `json:"status"`
	Store    string            `json:"store"`
	Breakers map[string]string `json:"breakers,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Store: "ok"}
	if h.breakers != nil {
		resp.Breakers = h.breakers.States()
	}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		zap.L().Warn("api: store ping failed", zap.Error(err))
		resp.Status, resp.Store = "degraded", err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *handler) runs(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}
	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}
