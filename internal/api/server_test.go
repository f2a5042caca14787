package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aattila/inverter-11k-modbus-add-on/internal/collector"
	"github.com/aattila/inverter-11k-modbus-add-on/internal/inverter"
)

type staticPoller struct{}

func (staticPoller) Poll() (inverter.Snapshot, error) {
	return inverter.Snapshot{"battery_voltage": {517}}, nil
}

type failingPoller struct{}

func (failingPoller) Poll() (inverter.Snapshot, error) {
	return nil, errors.New("timeout")
}

type nopPublisher struct{}

func (nopPublisher) PublishTelemetry(inverter.Reading) error  { return nil }
func (nopPublisher) PublishHeartbeat(uint64, time.Time) error { return nil }
func (nopPublisher) PublishAvailability(bool) error           { return nil }
func (nopPublisher) PublishBridgeAvailability(bool) error     { return nil }
func (nopPublisher) IsConnected() bool                        { return true }

func runningCollector(t *testing.T) (*collector.Collector, context.CancelFunc) {
	t.Helper()

	c := collector.New(collector.Config{
		Poller:    staticPoller{},
		Publisher: nopPublisher{},
		Specs: []inverter.RegisterSpec{
			{Name: "battery_voltage", Address: 277, Count: 1, Kind: inverter.Unsigned16, Scale: 0.1, Precision: 1, Unit: "V"},
		},
		Interval:   time.Hour,
		MaxDataAge: 15 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)

	deadline := time.After(2 * time.Second)
	for c.LastSuccess().IsZero() {
		select {
		case <-deadline:
			t.Fatal("collector never completed a cycle")
		case <-time.After(10 * time.Millisecond):
		}
	}
	return c, cancel
}

func health(t *testing.T, s *Server) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealth_OKWhileCollecting(t *testing.T) {
	c, cancel := runningCollector(t)
	defer cancel()

	s := NewServer(ServerConfig{
		Port:            8080,
		Collector:       c,
		MaxDataAge:      15 * time.Second,
		MQTTConnected:   func() bool { return true },
		SerialConnected: func() bool { return true },
	})

	w := health(t, s)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", w.Body.String())
	}
}

func TestHealth_UnhealthyWhenBrokerDown(t *testing.T) {
	c, cancel := runningCollector(t)
	defer cancel()

	s := NewServer(ServerConfig{
		Port:            8080,
		Collector:       c,
		MaxDataAge:      15 * time.Second,
		MQTTConnected:   func() bool { return false },
		SerialConnected: func() bool { return true },
	})

	w := health(t, s)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if w.Body.String() != "unhealthy" {
		t.Errorf("body = %q, want unhealthy", w.Body.String())
	}
}

func TestHealth_UnhealthyWhenNotRunning(t *testing.T) {
	c := collector.New(collector.Config{
		Poller:     staticPoller{},
		Publisher:  nopPublisher{},
		Interval:   time.Hour,
		MaxDataAge: 15 * time.Second,
	})

	s := NewServer(ServerConfig{
		Port:            8080,
		Collector:       c,
		MaxDataAge:      15 * time.Second,
		MQTTConnected:   func() bool { return true },
		SerialConnected: func() bool { return true },
	})

	w := health(t, s)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestHealth_GraceWindowBeforeFirstSuccess(t *testing.T) {
	// A running collector that has not completed a cycle yet reports
	// healthy while the startup freshness seed is within the data age,
	// so a slow first poll does not trip the watchdog.
	c := collector.New(collector.Config{
		Poller:     failingPoller{},
		Publisher:  nopPublisher{},
		Interval:   time.Hour,
		MaxDataAge: 15 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	deadline := time.After(2 * time.Second)
	for !c.IsCollecting() {
		select {
		case <-deadline:
			t.Fatal("collector never started")
		case <-time.After(10 * time.Millisecond):
		}
	}

	s := NewServer(ServerConfig{
		Port:            8080,
		Collector:       c,
		MaxDataAge:      15 * time.Second,
		MQTTConnected:   func() bool { return true },
		SerialConnected: func() bool { return true },
	})

	w := health(t, s)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 during the startup grace window", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	c, cancel := runningCollector(t)
	defer cancel()

	s := NewServer(ServerConfig{
		Port:            8080,
		Collector:       c,
		MaxDataAge:      15 * time.Second,
		MQTTConnected:   func() bool { return true },
		SerialConnected: func() bool { return true },
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
