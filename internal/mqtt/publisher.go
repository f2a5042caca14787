package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/aattila/inverter-11k-modbus-add-on/internal/inverter"
	"github.com/aattila/inverter-11k-modbus-add-on/internal/metrics"
)

// Publisher wraps the broker connection and owns the topic layout. The
// underlying paho client handles reconnection; the OnConnect hook lets
// the caller re-run discovery after every (re)connect.
type Publisher struct {
	client    mqtt.Client
	topic     string
	modbusID  uint8
	onConnect func()
}

type PublisherConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string
	Topic    string
	ModbusID uint8
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	p := &Publisher{
		topic:    cfg.Topic,
		modbusID: cfg.ModbusID,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(p.BridgeAvailabilityTopic(), "offline", 1, true).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Warnf("MQTT connection lost: %v", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Info("MQTT connected")
			if p.onConnect != nil {
				p.onConnect()
			}
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	p.client = mqtt.NewClient(opts)
	return p
}

// SetOnConnect registers the hook run after every successful connect,
// including the first one. Must be called before Connect.
func (p *Publisher) SetOnConnect(fn func()) {
	p.onConnect = fn
}

// Connect blocks until the broker accepts the session or fails. A
// failure here is fatal for the caller; reconnects later in the process
// lifetime are handled by paho itself.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return nil
}

func (p *Publisher) IsConnected() bool {
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.Publish(p.BridgeAvailabilityTopic(), "offline", true, 0)
		p.Publish(p.AvailabilityTopic(), "offline", false, 0)
	}
	p.client.Disconnect(1000)
}

// Publish sends one message and waits for the token. Natural
// backpressure from a slow broker is acceptable at seconds-scale poll
// cadence.
func (p *Publisher) Publish(topic string, payload interface{}, retain bool, qos byte) error {
	token := p.client.Publish(topic, qos, retain, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		metrics.PublishFailures.Inc()
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// PublishTelemetry sends the decoded reading non-retained: the aggregate
// JSON document the discovery configs point at, plus one plain-value
// message per measurement.
func (p *Publisher) PublishTelemetry(r inverter.Reading) error {
	payload, err := TelemetryPayload(r)
	if err != nil {
		return fmt.Errorf("failed to marshal telemetry: %w", err)
	}

	if err := p.Publish(p.SensorsTopic(), payload, false, 0); err != nil {
		return err
	}

	for name, value := range r.Values {
		topic := fmt.Sprintf("%s/inverter-%d/%s", p.topic, p.modbusID, name)
		if err := p.Publish(topic, fmt.Sprintf("%v", value), false, 0); err != nil {
			log.Warnf("Telemetry publish failed: %v", err)
		}
	}

	return nil
}

func (p *Publisher) PublishHeartbeat(counter uint64, at time.Time) error {
	payload, err := HeartbeatPayload(counter, at)
	if err != nil {
		return fmt.Errorf("failed to marshal heartbeat: %w", err)
	}
	return p.Publish(p.HeartbeatTopic(), payload, false, 0)
}

func (p *Publisher) PublishAvailability(online bool) error {
	state := "offline"
	if online {
		state = "online"
	}
	return p.Publish(p.AvailabilityTopic(), state, false, 0)
}

// PublishBridgeAvailability is retained, like the last will on the same
// topic, so a late subscriber sees the bridge state immediately.
func (p *Publisher) PublishBridgeAvailability(online bool) error {
	state := "offline"
	if online {
		state = "online"
	}
	return p.Publish(p.BridgeAvailabilityTopic(), state, true, 0)
}

func (p *Publisher) SensorsTopic() string {
	return fmt.Sprintf("%s/inverter-%d/sensors", p.topic, p.modbusID)
}

func (p *Publisher) HeartbeatTopic() string {
	return fmt.Sprintf("%s/inverter-%d/heartbeat", p.topic, p.modbusID)
}

// AvailabilityTopic is the per-inverter availability.
func (p *Publisher) AvailabilityTopic() string {
	return fmt.Sprintf("%s/inverter-%d/availability", p.topic, p.modbusID)
}

// BridgeAvailabilityTopic is the add-on wide availability, also used as
// the MQTT last will.
func (p *Publisher) BridgeAvailabilityTopic() string {
	return fmt.Sprintf("%s/availability", p.topic)
}
