// Package metrics exposes the bridge's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inverter_poll_cycles_total",
		Help: "Number of poll cycles attempted.",
	})

	PollFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inverter_poll_failures_total",
		Help: "Number of poll cycles aborted after exhausting read retries.",
	})

	ReadRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inverter_read_retries_total",
		Help: "Number of individual register reads that were retried.",
	})

	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inverter_mqtt_publish_failures_total",
		Help: "Number of MQTT publish calls that returned an error.",
	})

	LastPollSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inverter_last_poll_success_timestamp_seconds",
		Help: "Unix timestamp of the last successful poll cycle.",
	})
)
