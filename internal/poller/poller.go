// Package poller owns the Modbus read cycle: strictly sequential block
// reads over the shared half-duplex serial link, bounded retries per
// read, and all-or-nothing snapshots.
package poller

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/aattila/inverter-11k-modbus-add-on/internal/inverter"
	"github.com/aattila/inverter-11k-modbus-add-on/internal/metrics"
)

// Client abstracts the single register-read capability the poller needs
// from the Modbus transport.
type Client interface {
	ReadHoldingRegisters(address uint16, quantity uint16) ([]uint16, error)
}

type Config struct {
	// ReadDelay is the fixed pause between consecutive transactions.
	// The inverter corrupts frames when requests arrive back to back.
	ReadDelay time.Duration
	// RetryDelay is the backoff between attempts of one failed read.
	RetryDelay time.Duration
	// MaxRetries is the number of additional attempts per read.
	MaxRetries uint64
	// MaxGap and MaxBlockWords bound the register range coalescing.
	MaxGap        uint16
	MaxBlockWords uint16
}

type Poller struct {
	cfg    Config
	client Client
	blocks []Block
}

func New(cfg Config, client Client, specs []inverter.RegisterSpec) (*Poller, error) {
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	if len(specs) == 0 {
		return nil, errors.New("poller: at least one register required")
	}

	if cfg.ReadDelay <= 0 {
		cfg.ReadDelay = time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.MaxGap == 0 {
		cfg.MaxGap = 16
	}
	if cfg.MaxBlockWords == 0 {
		cfg.MaxBlockWords = 120
	}

	return &Poller{
		cfg:    cfg,
		client: client,
		blocks: CoalesceBlocks(specs, cfg.MaxGap, cfg.MaxBlockWords),
	}, nil
}

// Poll runs one cycle. All reads are sequential on the shared port. Any
// block that still fails after MaxRetries aborts the cycle: no partial
// snapshot is ever returned.
func (p *Poller) Poll() (inverter.Snapshot, error) {
	snap := make(inverter.Snapshot)

	for i, block := range p.blocks {
		if i > 0 {
			time.Sleep(p.cfg.ReadDelay)
		}

		words, err := p.readBlock(block)
		if err != nil {
			return nil, fmt.Errorf("read registers %d-%d: %w", block.Address, block.Address+block.Count-1, err)
		}

		for _, spec := range block.Specs {
			offset := spec.Address - block.Address
			snap[spec.Name] = words[offset : offset+spec.Count]
		}
	}

	return snap, nil
}

func (p *Poller) readBlock(block Block) ([]uint16, error) {
	attempt := 0

	return backoff.RetryWithData(func() ([]uint16, error) {
		if attempt > 0 {
			metrics.ReadRetries.Inc()
			log.Warnf("Retrying read of registers %d-%d (attempt %d)",
				block.Address, block.Address+block.Count-1, attempt+1)
		}
		attempt++

		words, err := p.client.ReadHoldingRegisters(block.Address, block.Count)
		if err != nil {
			return nil, err
		}
		if len(words) != int(block.Count) {
			return nil, fmt.Errorf("short read: got %d words, want %d", len(words), block.Count)
		}
		return words, nil
	}, backoff.WithMaxRetries(backoff.NewConstantBackOff(p.cfg.RetryDelay), p.cfg.MaxRetries))
}

// Blocks exposes the coalesced read plan, mainly for the read/test CLI
// commands and logging.
func (p *Poller) Blocks() []Block {
	return p.blocks
}
