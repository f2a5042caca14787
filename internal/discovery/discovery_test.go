package discovery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/aattila/inverter-11k-modbus-add-on/internal/inverter"
)

type recordedMessage struct {
	topic   string
	payload []byte
	retain  bool
	qos     byte
}

type fakePublisher struct {
	messages []recordedMessage
	failOn   string
}

func (f *fakePublisher) Publish(topic string, payload interface{}, retain bool, qos byte) error {
	if f.failOn != "" && strings.Contains(topic, f.failOn) {
		return fmt.Errorf("publish %s: broker unavailable", topic)
	}
	f.messages = append(f.messages, recordedMessage{
		topic:   topic,
		payload: append([]byte(nil), payload.([]byte)...),
		retain:  retain,
		qos:     qos,
	})
	return nil
}

func TestPublishAll_OneRetainedConfigPerSensor(t *testing.T) {
	fake := &fakePublisher{}
	p := New(fake, "inverter", "homeassistant")

	specs := inverter.Registers()
	if err := p.PublishAll(1, specs); err != nil {
		t.Fatalf("PublishAll() err=%v", err)
	}

	// Every register plus the heartbeat diagnostic sensor.
	if len(fake.messages) != len(specs)+1 {
		t.Fatalf("published %d messages, want %d", len(fake.messages), len(specs)+1)
	}

	for _, m := range fake.messages {
		if !m.retain {
			t.Errorf("%s not retained", m.topic)
		}
		if m.qos != 1 {
			t.Errorf("%s published at qos %d, want 1", m.topic, m.qos)
		}
		if !strings.HasPrefix(m.topic, "homeassistant/sensor/inverter-1/") ||
			!strings.HasSuffix(m.topic, "/config") {
			t.Errorf("unexpected topic %s", m.topic)
		}
	}
}

func TestPublishAll_Idempotent(t *testing.T) {
	first := &fakePublisher{}
	second := &fakePublisher{}
	specs := inverter.Registers()

	if err := New(first, "inverter", "homeassistant").PublishAll(1, specs); err != nil {
		t.Fatalf("first PublishAll() err=%v", err)
	}
	if err := New(second, "inverter", "homeassistant").PublishAll(1, specs); err != nil {
		t.Fatalf("second PublishAll() err=%v", err)
	}

	for i := range first.messages {
		if first.messages[i].topic != second.messages[i].topic {
			t.Fatalf("topic order changed: %s vs %s", first.messages[i].topic, second.messages[i].topic)
		}
		if !bytes.Equal(first.messages[i].payload, second.messages[i].payload) {
			t.Errorf("payload for %s differs between runs", first.messages[i].topic)
		}
	}
}

func TestPublishAll_ContinuesPastFailures(t *testing.T) {
	fake := &fakePublisher{failOn: "battery_voltage"}
	p := New(fake, "inverter", "homeassistant")

	err := p.PublishAll(1, inverter.Registers())
	if err == nil {
		t.Fatal("expected aggregate error, got nil")
	}
	// All remaining sensors were still published.
	if len(fake.messages) != len(inverter.Registers()) {
		t.Fatalf("published %d messages, want %d", len(fake.messages), len(inverter.Registers()))
	}
}

func TestSensorConfig_Document(t *testing.T) {
	p := New(&fakePublisher{}, "inverter", "homeassistant")

	spec := inverter.RegisterSpec{
		Name:        "battery_voltage",
		DisplayName: "Battery Voltage",
		Address:     277,
		Count:       1,
		Kind:        inverter.Unsigned16,
		Scale:       0.1,
		Precision:   1,
		Unit:        "V",
		DeviceClass: "voltage",
		Icon:        "mdi:flash-triangle-outline",
	}

	payload, err := json.Marshal(p.SensorConfig(1, spec, false))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := map[string]interface{}{
		"uniq_id":      "inverter_1_battery_voltage",
		"obj_id":       "inverter_1_battery_voltage",
		"stat_t":       "inverter/inverter-1/sensors",
		"val_tpl":      "{{ value_json.telemetry.normal.battery_voltage }}",
		"avty_mode":    "all",
		"dev_cla":      "voltage",
		"unit_of_meas": "V",
		"ic":           "mdi:flash-triangle-outline",
	}
	for key, value := range want {
		if doc[key] != value {
			t.Errorf("%s = %v, want %v", key, doc[key], value)
		}
	}
	if doc["sug_dsp_prc"] != float64(1) {
		t.Errorf("sug_dsp_prc = %v, want 1", doc["sug_dsp_prc"])
	}
}

func TestSensorConfig_DeviceBlockOnlyOnFirstSensor(t *testing.T) {
	p := New(&fakePublisher{}, "inverter", "homeassistant")
	spec := inverter.Registers()[0]

	full := p.SensorConfig(1, spec, true)
	if full.Device.Model == "" || full.Device.Manufacturer == "" {
		t.Errorf("first sensor device block incomplete: %+v", full.Device)
	}

	ref := p.SensorConfig(1, spec, false)
	if ref.Device.Identifiers != "inverter_1" {
		t.Errorf("identifiers = %q", ref.Device.Identifiers)
	}
	if ref.Device.Model != "" || ref.Device.Name != "" {
		t.Errorf("reference device block carries metadata: %+v", ref.Device)
	}
}

func TestSensorConfig_ChainedInverterLinksToFirst(t *testing.T) {
	p := New(&fakePublisher{}, "inverter", "homeassistant")
	spec := inverter.Registers()[0]

	if dev := p.SensorConfig(0, spec, false).Device; dev.ViaDevice != "" {
		t.Errorf("inverter 0 via_device = %q, want empty", dev.ViaDevice)
	}
	if dev := p.SensorConfig(2, spec, false).Device; dev.ViaDevice != "inverter_0" {
		t.Errorf("inverter 2 via_device = %q, want inverter_0", dev.ViaDevice)
	}
}

func TestSensorConfig_NoPrecisionWithoutUnit(t *testing.T) {
	p := New(&fakePublisher{}, "inverter", "homeassistant")

	spec := inverter.RegisterSpec{Name: "clock_year", DisplayName: "Year", Address: 696, Count: 1, Kind: inverter.Unsigned16, Scale: 1}
	payload, err := json.Marshal(p.SensorConfig(1, spec, false))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if bytes.Contains(payload, []byte("sug_dsp_prc")) {
		t.Errorf("unitless sensor carries display precision: %s", payload)
	}
}
