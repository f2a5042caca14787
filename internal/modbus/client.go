package modbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/simonvetter/modbus"
)

// Client wraps the Modbus RTU connection to the inverter. The inverter
// exposes one physical RS232 endpoint behind both connectors, so all
// transactions go through a single handle guarded by a mutex; callers
// must never run concurrent reads.
type Client struct {
	client  *modbus.ModbusClient
	mu      sync.Mutex
	device  string
	slaveID uint8
	timeout time.Duration
}

func NewClient(device string, slaveID uint8, timeout time.Duration) *Client {
	return &Client{
		device:  device,
		slaveID: slaveID,
		timeout: timeout,
	}
}

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:      fmt.Sprintf("rtu://%s", c.device),
		Speed:    9600,
		DataBits: 8,
		Parity:   modbus.PARITY_NONE,
		StopBits: 1,
		Timeout:  c.timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create modbus client: %w", err)
	}

	if err := client.Open(); err != nil {
		return fmt.Errorf("failed to open serial interface %s: %w", c.device, err)
	}

	if err := client.SetUnitId(c.slaveID); err != nil {
		client.Close()
		return fmt.Errorf("failed to set slave id %d: %w", c.slaveID, err)
	}
	c.client = client

	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil
	return err
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil
}

// ReadHoldingRegisters performs one FC3 transaction. The mutex makes the
// transaction exclusive on the shared serial link.
func (c *Client) ReadHoldingRegisters(address uint16, quantity uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil, fmt.Errorf("client not connected")
	}

	regs, err := c.client.ReadRegisters(address, quantity, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, fmt.Errorf("failed to read holding registers at %d: %w", address, err)
	}

	return regs, nil
}

func (c *Client) Reconnect() error {
	c.Close()
	return c.Connect()
}
