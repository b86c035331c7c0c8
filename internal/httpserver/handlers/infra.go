package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/netstar-dev/advisor/internal/httpserver/deps"
)

type componentStatus struct {
	OK               bool   `json:"ok"`
	IndicatorsLoaded *int   `json:"indicators_loaded,omitempty"`
	TabsTracked      *int   `json:"tabs_tracked,omitempty"`
	Subscribers      *int   `json:"subscribers,omitempty"`
	PendingRequests  *int   `json:"pending_requests,omitempty"`
	LastUpdate       string `json:"last_update,omitempty"`
	Mode             string `json:"mode,omitempty"`
	Impact           string `json:"impact,omitempty"`
	Error            string `json:"error,omitempty"`
}

type infraResponse struct {
	AdvisorMode string                     `json:"advisor_mode"`
	Components  map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		indicatorCount := 0
		if d.Catalog != nil {
			indicatorCount = len(d.Catalog.Indicators)
		}

		tabCount := d.Registry.Count()
		lastUpdate := d.Registry.LastUpdate()
		lastUpdateStr := "never"
		if !lastUpdate.IsZero() {
			lastUpdateStr = lastUpdate.Format("2006-01-02 15:04:05")
		}

		subscribers := d.Bus.SubscriberCount()
		pending := d.Correlator.PendingCount()

		// Test Redis connection
		redisStatus := checkRedis(d)

		// Build components status
		components := map[string]componentStatus{
			"catalog": {
				OK:               indicatorCount > 0,
				IndicatorsLoaded: &indicatorCount,
			},
			"redis": redisStatus,
			"tabs": {
				OK:          true,
				TabsTracked: &tabCount,
				LastUpdate:  lastUpdateStr,
			},
			"bus": {
				OK:              subscribers > 0,
				Subscribers:     &subscribers,
				PendingRequests: &pending,
			},
		}

		response := infraResponse{
			AdvisorMode: determineAdvisorMode(components),
			Components:  components,
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func determineAdvisorMode(components map[string]componentStatus) string {
	// Without an indicator catalog no assessment can be interpreted
	if cat, exists := components["catalog"]; exists {
		if !cat.OK || (cat.IndicatorsLoaded != nil && *cat.IndicatorsLoaded == 0) {
			return "critical"
		}
	}

	// Redis down means no cache and no recent-scans list, scans still work
	if rd, exists := components["redis"]; exists && !rd.OK {
		return "degraded"
	}

	// All systems operational
	return "full"
}

func checkRedis(d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "assessment-cache-disabled",
			Error:  "client not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := d.RedisClient.Ping(ctx).Err()
	if err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "assessment-cache-disabled",
			Error:  "timeout",
		}
	}

	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "assessment-cache-enabled",
		Error:  "none",
	}
}
