// Energy endpoints: live summary, 1s SSE stream, and analytics
// contrasting local reports with cloud reference figures.

package server

import (
	"fmt"
	"net/http"
	"time"

	"ecochat/config"
	"ecochat/power"
	"ecochat/storage"
)

const powerStreamPeriod = 1 * time.Second

func (s *Server) powerSummary(r *http.Request) power.Summary {
	if s.tracker == nil {
		return power.Summary{}
	}
	return s.tracker.Summary(r.Context())
}

func (s *Server) handlePowerSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.powerSummary(r))
}

// handlePowerStream pushes the summary once per second until the client
// disconnects.
func (s *Server) handlePowerStream(w http.ResponseWriter, r *http.Request) {
	stream, err := newSSEStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	ticker := time.NewTicker(powerStreamPeriod)
	defer ticker.Stop()

	for {
		if err := stream.send(s.powerSummary(r)); err != nil {
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// handlePowerAnalytics returns all local reports plus the cloud-model
// reference figures for comparison charts.
func (s *Server) handlePowerAnalytics(w http.ResponseWriter, r *http.Request) {
	local := []storage.PowerReport{}
	if s.store != nil {
		reports, err := s.store.PowerReports(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to load reports: %w", err))
			return
		}
		if reports != nil {
			local = reports
		}
	}

	cloud := s.cloud.Entries()
	if cloud == nil {
		cloud = []config.CloudPowerEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"local":   local,
		"default": cloud,
	})
}
