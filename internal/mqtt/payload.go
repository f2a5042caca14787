package mqtt

import (
	"encoding/json"
	"time"

	"github.com/aattila/inverter-11k-modbus-add-on/internal/inverter"
)

// TelemetryPayload renders a reading as the aggregate sensors document.
// The shape matches the value templates in the discovery configs:
// {"telemetry": {"normal": {<measurement>: <value>, ...}}}.
func TelemetryPayload(r inverter.Reading) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"telemetry": map[string]interface{}{
			"normal": r.Values,
		},
	})
}

type heartbeat struct {
	LastPublish    string `json:"last_publish"`
	PublishCounter uint64 `json:"publish_counter"`
}

func HeartbeatPayload(counter uint64, at time.Time) ([]byte, error) {
	return json.Marshal(heartbeat{
		LastPublish:    at.Format("2006-01-02 15:04:05"),
		PublishCounter: counter,
	})
}
