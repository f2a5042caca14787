// Package api serves the Supervisor watchdog health endpoint and the
// Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/aattila/inverter-11k-modbus-add-on/internal/collector"
)

type Server struct {
	router     *gin.Engine
	server     *http.Server
	port       int
	collector  *collector.Collector
	maxDataAge time.Duration

	mqttConnected   func() bool
	serialConnected func() bool
}

type ServerConfig struct {
	Port            int
	Collector       *collector.Collector
	MaxDataAge      time.Duration
	MQTTConnected   func() bool
	SerialConnected func() bool
}

func NewServer(cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:          router,
		port:            cfg.Port,
		collector:       cfg.Collector,
		maxDataAge:      cfg.MaxDataAge,
		mqttConnected:   cfg.MQTTConnected,
		serialConnected: cfg.SerialConnected,
	}

	router.GET("/health", s.healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// healthHandler reports healthy only while the broker session and the
// serial port are up and the last successful poll is fresh enough. The
// HA Supervisor watchdog restarts the add-on on 503.
func (s *Server) healthHandler(c *gin.Context) {
	last := s.collector.LastSuccess()

	healthy := s.mqttConnected() &&
		s.serialConnected() &&
		s.collector.IsCollecting() &&
		!last.IsZero() &&
		time.Since(last) < s.maxDataAge

	if healthy {
		c.String(http.StatusOK, "ok")
		return
	}
	c.String(http.StatusServiceUnavailable, "unhealthy")
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	log.Infof("Health endpoint starting on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
