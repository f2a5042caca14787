package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aattila/inverter-11k-modbus-add-on/internal/inverter"
)

func TestTelemetryPayload(t *testing.T) {
	r := inverter.Reading{
		At: time.Now(),
		Values: map[string]float64{
			"battery_voltage": 51.7,
			"battery_soc":     84,
		},
	}

	payload, err := TelemetryPayload(r)
	if err != nil {
		t.Fatalf("TelemetryPayload() err=%v", err)
	}

	var doc struct {
		Telemetry struct {
			Normal map[string]float64 `json:"normal"`
		} `json:"telemetry"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if doc.Telemetry.Normal["battery_voltage"] != 51.7 {
		t.Errorf("battery_voltage = %v, want 51.7", doc.Telemetry.Normal["battery_voltage"])
	}
	if doc.Telemetry.Normal["battery_soc"] != 84 {
		t.Errorf("battery_soc = %v, want 84", doc.Telemetry.Normal["battery_soc"])
	}
}

func TestHeartbeatPayload(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)

	payload, err := HeartbeatPayload(41, at)
	if err != nil {
		t.Fatalf("HeartbeatPayload() err=%v", err)
	}

	var doc struct {
		LastPublish    string `json:"last_publish"`
		PublishCounter uint64 `json:"publish_counter"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if doc.LastPublish != "2024-06-01 12:30:45" {
		t.Errorf("last_publish = %q", doc.LastPublish)
	}
	if doc.PublishCounter != 41 {
		t.Errorf("publish_counter = %d, want 41", doc.PublishCounter)
	}
}

func TestTopicLayout(t *testing.T) {
	p := &Publisher{topic: "inverter", modbusID: 1}

	cases := map[string]string{
		p.SensorsTopic():            "inverter/inverter-1/sensors",
		p.HeartbeatTopic():          "inverter/inverter-1/heartbeat",
		p.AvailabilityTopic():       "inverter/inverter-1/availability",
		p.BridgeAvailabilityTopic(): "inverter/availability",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("topic = %q, want %q", got, want)
		}
	}
}
