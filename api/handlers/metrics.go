package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/linesmerrill/sentinel-campus-api/api"
)

// formatRouteMetrics converts duration fields to milliseconds for JSON serialization
func formatRouteMetrics(routes []*api.RouteMetrics) []map[string]interface{} {
	result := make([]map[string]interface{}, len(routes))
	for i, route := range routes {
		result[i] = map[string]interface{}{
			"method":      route.Method,
			"route":       route.Route,
			"count":       route.Count,
			"errorCount":  route.ErrorCount,
			"avgTime":     route.AvgTime.Milliseconds(),
			"minTime":     route.MinTime.Milliseconds(),
			"maxTime":     route.MaxTime.Milliseconds(),
			"p50Time":     route.P50Time.Milliseconds(),
			"p95Time":     route.P95Time.Milliseconds(),
			"lastRequest": route.LastRequest,
		}
	}
	return result
}

// MetricsHandler handles metrics dashboard requests
type MetricsHandler struct {
	Collector *api.MetricsCollector
}

// GetMetricsDashboard returns request totals and per route timings, busiest
// route first
func (m MetricsHandler) GetMetricsDashboard(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	limit := 20 // Default: 20 routes per page
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	summary := m.Collector.Summary()
	total := len(summary.Routes)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	response := map[string]interface{}{
		"summary": map[string]interface{}{
			"totalRequests": summary.TotalRequests,
			"totalErrors":   summary.TotalErrors,
			"errorRate":     summary.ErrorRate,
			"since":         summary.Since,
			"routeCount":    total,
		},
		"routes": formatRouteMetrics(summary.Routes[start:end]),
		"pagination": map[string]interface{}{
			"limit":   limit,
			"offset":  offset,
			"total":   total,
			"hasMore": end < total,
		},
	}

	writeJSON(w, http.StatusOK, response)
}

// writeJSON marshals v and writes it with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		errorResponse(w, "failed to marshal response", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
