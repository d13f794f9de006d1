package sidecar

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"observability/internal/transfer"
)

const (
	StatusUp    = "UP"
	StatusReady = "READY"
)

type probeResponse struct {
	Status      string `json:"status"`
	Participant string `json:"participant"`
}

type transferResponse struct {
	OK          bool    `json:"ok"`
	Participant string  `json:"participant"`
	Status      string  `json:"status"`
	Duration    float64 `json:"duration"`
	Duplicate   bool    `json:"duplicate,omitempty"`
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, probeResponse{Status: StatusUp, Participant: s.participant})
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	if err := s.registry.SetReady(s.participant); err != nil {
		s.logger.Errorf("Failed to set readiness gauge: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, probeResponse{Status: StatusReady, Participant: s.participant})
}

func (s *Service) handleTransfer(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	res, err := s.ingestor.Ingest(body)
	if err != nil {
		if errors.Is(err, transfer.ErrMalformedEvent) {
			s.logger.WithField("remote", r.RemoteAddr).Debugf("Rejected transfer event: %v", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Errorf("Failed to record transfer event: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, transferResponse{
		OK:          true,
		Participant: res.Participant,
		Status:      res.Event.Status,
		Duration:    res.Event.Duration,
		Duplicate:   res.Duplicate,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("HTTP request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
