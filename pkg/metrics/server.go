// Copyright 2023 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// MetricsPath is the URL path for exposing metrics to Prometheus.
	MetricsPath = "/metrics"
	// httpServer is used in log messages.
	httpServer = "metrics HTTP server"
)

// Server serves metrics over HTTP.
type Server struct {
	sync.RWMutex
	server *http.Server
	mux    *http.ServeMux
}

// NewServer creates a server exposing the given gatherer at MetricsPath.
func NewServer(g prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))
	return &Server{mux: mux}
}

// GetAddress returns the current server HTTP endpoint/address.
func (s *Server) GetAddress() string {
	s.RLock()
	defer s.RUnlock()
	if s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Start sets up the server to listen and serve on the given address.
func (s *Server) Start(addr string) error {
	if addr == "" {
		log.Debug("%s is disabled", httpServer)
		return nil
	}

	s.Lock()
	defer s.Unlock()

	if s.server != nil {
		return httpError("%s already running on %s", httpServer, s.server.Addr)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return httpError("can't listen on HTTP TCP address '%s': %v", addr, err)
	}

	// update address if port was autobound
	s.server = &http.Server{Addr: ln.Addr().String(), Handler: s.mux}
	log.Info("starting %s on %s...", httpServer, s.server.Addr)

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("%s failed: %v", httpServer, err)
		}
	}(s.server)

	return nil
}

// Stop Close()'s the server immediately.
func (s *Server) Stop() {
	s.Lock()
	defer s.Unlock()

	if s.server == nil {
		return
	}

	log.Info("stopping %s...", httpServer)
	s.server.Close()
	s.server = nil
}

// Shutdown shuts down the server gracefully, waiting at most until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.server == nil {
		return nil
	}

	log.Info("shutting down %s...", httpServer)
	err := s.server.Shutdown(ctx)
	s.server = nil
	return err
}

// httpError returns a formatted metrics server error.
func httpError(format string, args ...interface{}) error {
	return fmt.Errorf("metrics: "+format, args...)
}
