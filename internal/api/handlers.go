package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sosodev/duration"
)

// maxWindow bounds the statistics window
const maxWindow = 100 * 365 * 24 * time.Hour

type handlers struct {
	svc    RecordService
	logger *slog.Logger
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ListRecords(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recs)
}

func (h *handlers) temperatureStatistics(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r.URL.Query().Get("window"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	}

	report, err := h.svc.TemperatureStatistics(r.Context(), window)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *handlers) gasLevels(w http.ResponseWriter, r *http.Request) {
	series, err := h.svc.GasLevelSeries(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, series)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err)
	h.writeJSON(w, http.StatusInternalServerError, messageResponse{Message: err.Error()})
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(messageResponse{Message: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Debug("failed to write response", "error", err)
	}
}

// parseWindow accepts Go durations ("72h"), whole days ("3d") and ISO 8601
// durations ("P1W"). An empty value means the service default.
func parseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	var d time.Duration
	switch days, isDays := strings.CutSuffix(s, "d"); {
	case isDays:
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid window %q", s)
		}
		if n <= 0 {
			return 0, fmt.Errorf("window must be positive, got %q", s)
		}
		if n > int64(maxWindow/(24*time.Hour)) {
			return 0, fmt.Errorf("window %q exceeds %s", s, maxWindow)
		}
		d = time.Duration(n) * 24 * time.Hour
	case strings.HasPrefix(s, "P") || strings.HasPrefix(s, "-P"):
		iso, err := duration.Parse(s)
		if err != nil {
			return 0, fmt.Errorf("invalid window %q", s)
		}
		if isoHours(iso) > maxWindow.Hours() {
			return 0, fmt.Errorf("window %q exceeds %s", s, maxWindow)
		}
		d = iso.ToTimeDuration()
	default:
		var err error
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid window %q", s)
		}
		if d > maxWindow {
			return 0, fmt.Errorf("window %q exceeds %s", s, maxWindow)
		}
	}

	if d <= 0 {
		return 0, fmt.Errorf("window must be positive, got %q", s)
	}
	return d, nil
}

// isoHours over-estimates the length of d in hours using 366-day years and
// 31-day months
func isoHours(d *duration.Duration) float64 {
	return d.Years*366*24 + d.Months*31*24 + d.Weeks*7*24 + d.Days*24 +
		d.Hours + d.Minutes/60 + d.Seconds/3600
}
