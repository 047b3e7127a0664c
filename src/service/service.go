// Package service implements the optional HTTP service of a node. It exposes
// the node's stats as JSON and the telemetry counters in the prometheus text
// format.
package service

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/mosaicnetworks/maelnode/src/telemetry"
	"github.com/sirupsen/logrus"
)

// StatsSource is implemented by *node.Node.
type StatsSource interface {
	GetStats() map[string]string
}

// Service ...
type Service struct {
	sync.Mutex

	bindAddress string
	source      StatsSource
	mux         *http.ServeMux
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, source StatsSource, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		source:      source,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

// registerHandlers registers the API handlers with a mux owned by the service.
// Several nodes can run in the same process, for example in tests, so the
// DefaultServeMux is not used.
func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.Handle("/metrics", telemetry.MetricsHandler())
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the http.Handler serving the API.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	err := http.ListenAndServe(s.bindAddress, s.mux)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.source.GetStats()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}
