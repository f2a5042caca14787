// Package discovery emits Home Assistant MQTT auto-discovery configs so
// the inverter's measurements appear as sensors without manual setup.
package discovery

import (
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/aattila/inverter-11k-modbus-add-on/internal/inverter"
)

// MessagePublisher is the publish capability discovery needs from the
// MQTT layer.
type MessagePublisher interface {
	Publish(topic string, payload interface{}, retain bool, qos byte) error
}

// SensorConfig is one discovery document, using Home Assistant's
// abbreviated keys. Field order is fixed so identical input marshals to
// byte-identical payloads.
type SensorConfig struct {
	Name             string            `json:"name"`
	UniqueID         string            `json:"uniq_id"`
	ObjectID         string            `json:"obj_id"`
	StateTopic       string            `json:"stat_t"`
	ValueTemplate    string            `json:"val_tpl"`
	Availability     []AvailabilityRef `json:"avty"`
	AvailabilityMode string            `json:"avty_mode"`
	Device           Device            `json:"dev"`
	DeviceClass      string            `json:"dev_cla,omitempty"`
	StateClass       string            `json:"stat_cla,omitempty"`
	Unit             string            `json:"unit_of_meas,omitempty"`
	Precision        *int              `json:"sug_dsp_prc,omitempty"`
	Icon             string            `json:"ic,omitempty"`
	EntityCategory   string            `json:"ent_cat,omitempty"`
}

type AvailabilityRef struct {
	Topic string `json:"t"`
}

type Device struct {
	Identifiers  string `json:"ids"`
	Name         string `json:"name,omitempty"`
	Model        string `json:"mdl,omitempty"`
	Manufacturer string `json:"mf,omitempty"`
	HWVersion    string `json:"hw,omitempty"`
	SWVersion    string `json:"sw,omitempty"`
	ViaDevice    string `json:"via_device,omitempty"`
}

const (
	deviceModel        = "Solar Inverter 11kW"
	deviceManufacturer = "No Name"
	deviceHWVersion    = "11k"
	deviceSWVersion    = "0.0"
)

type Publisher struct {
	pub    MessagePublisher
	topic  string
	prefix string
}

func New(pub MessagePublisher, mqttTopic, discoveryPrefix string) *Publisher {
	return &Publisher{
		pub:    pub,
		topic:  mqttTopic,
		prefix: discoveryPrefix,
	}
}

// PublishAll emits one retained config per register plus the diagnostic
// heartbeat sensor. A failed publish is logged and does not block the
// remaining sensors; the aggregate error is returned at the end.
// Republishing is idempotent: identical input yields identical bytes.
func (p *Publisher) PublishAll(modbusID uint8, specs []inverter.RegisterSpec) error {
	var errs []error

	for i, spec := range specs {
		cfg := p.SensorConfig(modbusID, spec, i == 0)
		if err := p.publishConfig(modbusID, spec.Name, cfg); err != nil {
			log.Errorf("Failed to publish discovery config for %s: %v", spec.Name, err)
			errs = append(errs, err)
		}
	}

	if err := p.publishConfig(modbusID, "last_publish", p.heartbeatConfig(modbusID)); err != nil {
		log.Errorf("Failed to publish heartbeat discovery config: %v", err)
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SensorConfig builds the discovery document for one register. It is
// deterministic: the document is a pure function of the spec, the modbus
// id and the configured prefixes. Sign inversion happens in the decoder,
// so the value template stays a plain lookup.
func (p *Publisher) SensorConfig(modbusID uint8, spec inverter.RegisterSpec, withDeviceInfo bool) SensorConfig {
	cfg := SensorConfig{
		Name:             spec.DisplayName,
		UniqueID:         fmt.Sprintf("inverter_%d_%s", modbusID, spec.Name),
		ObjectID:         fmt.Sprintf("inverter_%d_%s", modbusID, spec.Name),
		StateTopic:       fmt.Sprintf("%s/inverter-%d/sensors", p.topic, modbusID),
		ValueTemplate:    fmt.Sprintf("{{ value_json.telemetry.normal.%s }}", spec.Name),
		Availability:     p.availability(modbusID),
		AvailabilityMode: "all",
		Device:           p.device(modbusID, withDeviceInfo),
		DeviceClass:      spec.DeviceClass,
		StateClass:       spec.StateClass,
		Unit:             spec.Unit,
		Icon:             spec.Icon,
	}

	// Unitless sensors (the device clock) carry no display precision.
	if spec.Unit != "" {
		precision := spec.Precision
		cfg.Precision = &precision
	}

	return cfg
}

func (p *Publisher) heartbeatConfig(modbusID uint8) SensorConfig {
	return SensorConfig{
		Name:             "Last Publish",
		UniqueID:         fmt.Sprintf("inverter_%d_last_publish", modbusID),
		ObjectID:         fmt.Sprintf("inverter_%d_last_publish", modbusID),
		StateTopic:       fmt.Sprintf("%s/inverter-%d/heartbeat", p.topic, modbusID),
		ValueTemplate:    "{{ value_json.last_publish }}",
		Availability:     p.availability(modbusID),
		AvailabilityMode: "all",
		Device:           p.device(modbusID, false),
		Icon:             "mdi:update",
		EntityCategory:   "diagnostic",
	}
}

func (p *Publisher) publishConfig(modbusID uint8, key string, cfg SensorConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal discovery config %s: %w", key, err)
	}

	topic := fmt.Sprintf("%s/sensor/inverter-%d/%s/config", p.prefix, modbusID, key)
	if err := p.pub.Publish(topic, payload, true, 1); err != nil {
		return err
	}

	log.Debugf("Published discovery config for inverter %d: %s", modbusID, key)
	return nil
}

func (p *Publisher) availability(modbusID uint8) []AvailabilityRef {
	return []AvailabilityRef{
		{Topic: fmt.Sprintf("%s/availability", p.topic)},
		{Topic: fmt.Sprintf("%s/inverter-%d/availability", p.topic, modbusID)},
	}
}

// device returns the full device block for the first sensor of a run and
// an identifiers-only reference afterwards, so Home Assistant links all
// sensors to one device without repeating the metadata.
func (p *Publisher) device(modbusID uint8, full bool) Device {
	dev := Device{Identifiers: fmt.Sprintf("inverter_%d", modbusID)}
	if modbusID > 0 {
		dev.ViaDevice = "inverter_0"
	}
	if full {
		dev.Name = fmt.Sprintf("Inverter-%d", modbusID)
		dev.Model = deviceModel
		dev.Manufacturer = deviceManufacturer
		dev.HWVersion = deviceHWVersion
		dev.SWVersion = deviceSWVersion
	}
	return dev
}
