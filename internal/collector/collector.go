// Package collector drives the poll/decode/publish cycle on a fixed
// interval and keeps transient transport failures from taking the
// process down.
package collector

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aattila/inverter-11k-modbus-add-on/internal/inverter"
	"github.com/aattila/inverter-11k-modbus-add-on/internal/metrics"
)

type Poller interface {
	Poll() (inverter.Snapshot, error)
}

type Publisher interface {
	PublishTelemetry(inverter.Reading) error
	PublishHeartbeat(counter uint64, at time.Time) error
	PublishAvailability(online bool) error
	PublishBridgeAvailability(online bool) error
	IsConnected() bool
}

type Collector struct {
	poller     Poller
	publisher  Publisher
	specs      []inverter.RegisterSpec
	interval   time.Duration
	maxDataAge time.Duration
	invert     bool

	mu             sync.RWMutex
	lastSuccess    time.Time
	publishCounter uint64
	online         bool
	collecting     bool
}

type Config struct {
	Poller    Poller
	Publisher Publisher
	Specs     []inverter.RegisterSpec
	Interval  time.Duration
	// MaxDataAge is how stale the last success may be before the
	// inverter is reported offline.
	MaxDataAge            time.Duration
	InvertChargeDischarge bool
}

func New(cfg Config) *Collector {
	return &Collector{
		poller:     cfg.Poller,
		publisher:  cfg.Publisher,
		specs:      cfg.Specs,
		interval:   cfg.Interval,
		maxDataAge: cfg.MaxDataAge,
		invert:     cfg.InvertChargeDischarge,
	}
}

// Run blocks until ctx is cancelled. The ticker drops missed ticks, so
// an overrunning cycle starts the next one immediately instead of
// queueing; at most one cycle is ever in flight.
func (c *Collector) Run(ctx context.Context) error {
	c.mu.Lock()
	c.collecting = true
	// Seed the freshness clock so a slow first cycle gets a full data
	// age of grace before the watchdog reports unhealthy.
	if c.lastSuccess.IsZero() {
		c.lastSuccess = time.Now()
	}
	c.mu.Unlock()

	log.Infof("Starting collector with interval %s", c.interval)

	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Collector stopped")
			c.mu.Lock()
			c.collecting = false
			c.mu.Unlock()
			return nil
		case <-ticker.C:
			c.collect()
		}
	}
}

// collect runs one cycle. Transport failures are warnings: the snapshot
// is all-or-nothing and the loop simply waits for the next tick.
func (c *Collector) collect() {
	metrics.PollCycles.Inc()

	snap, err := c.poller.Poll()
	now := time.Now()

	if err != nil {
		metrics.PollFailures.Inc()
		log.Warnf("Poll cycle failed, skipping this interval: %v", err)
		c.refreshAvailability(now)
		return
	}

	reading, err := inverter.Decode(snap, c.specs, c.invert)
	if err != nil {
		metrics.PollFailures.Inc()
		log.Errorf("Decode failed: %v", err)
		c.refreshAvailability(now)
		return
	}

	c.mu.Lock()
	c.lastSuccess = now
	c.publishCounter++
	counter := c.publishCounter
	c.online = true
	c.mu.Unlock()

	metrics.LastPollSuccess.Set(float64(now.Unix()))

	if err := c.publisher.PublishHeartbeat(counter, now); err != nil {
		log.Warnf("Heartbeat publish failed: %v", err)
	}
	if err := c.publisher.PublishAvailability(true); err != nil {
		log.Warnf("Availability publish failed: %v", err)
	}
	if err := c.publisher.PublishTelemetry(reading); err != nil {
		log.Warnf("Telemetry publish failed: %v", err)
	}
	if err := c.publisher.PublishBridgeAvailability(true); err != nil {
		log.Warnf("Availability publish failed: %v", err)
	}

	// total_output_power is apparent power, the register reads VA.
	log.Infof("Collected: Battery=%.1fV SoC=%.0f%% PV=%.0fW Output=%.0fVA",
		reading.Values["battery_voltage"],
		reading.Values["battery_soc"],
		reading.Values["total_pv_power"],
		reading.Values["total_output_power"])
}

// refreshAvailability flips the inverter offline once the last success
// is older than the allowed data age.
func (c *Collector) refreshAvailability(now time.Time) {
	c.mu.Lock()
	stale := c.online && (c.lastSuccess.IsZero() || now.Sub(c.lastSuccess) > c.maxDataAge)
	if stale {
		c.online = false
	}
	c.mu.Unlock()

	if stale {
		log.Warnf("No successful poll for %s, reporting inverter offline", c.maxDataAge)
		if err := c.publisher.PublishAvailability(false); err != nil {
			log.Warnf("Availability publish failed: %v", err)
		}
	}
}

func (c *Collector) LastSuccess() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

func (c *Collector) IsCollecting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collecting
}
