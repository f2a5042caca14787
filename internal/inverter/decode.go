package inverter

import (
	"fmt"
	"math"
	"time"
)

// Snapshot holds the raw register words of one complete poll cycle,
// keyed by RegisterSpec name. A snapshot is only ever complete: the
// poller discards cycles that could not read every register.
type Snapshot map[string][]uint16

// Reading is one decoded snapshot. It is handed to the publisher and
// dropped afterwards; no history is kept in-process.
type Reading struct {
	At     time.Time
	Values map[string]float64
}

// Decode converts a complete Snapshot into physical values. It is pure:
// same snapshot and flags always produce the same Reading. Sentinel raw
// values the device uses for "unknown" are decoded and passed through
// unchanged.
func Decode(snap Snapshot, specs []RegisterSpec, invertChargeDischarge bool) (Reading, error) {
	r := Reading{
		At:     time.Now(),
		Values: make(map[string]float64, len(specs)),
	}

	for _, spec := range specs {
		words, ok := snap[spec.Name]
		if !ok {
			return Reading{}, fmt.Errorf("decode: snapshot is missing register %q (address %d)", spec.Name, spec.Address)
		}
		if len(words) != int(spec.Count) {
			return Reading{}, fmt.Errorf("decode: register %q has %d words, want %d", spec.Name, len(words), spec.Count)
		}

		value := decodeWords(spec.Kind, words)
		value = round(value*spec.Scale, spec.Precision)

		if spec.Invert && invertChargeDischarge {
			value = -value
		}

		r.Values[spec.Name] = value
	}

	return r, nil
}

func decodeWords(kind Kind, words []uint16) float64 {
	switch kind {
	case Signed16:
		return float64(int16(words[0]))
	case Unsigned32:
		return float64(uint32(words[0])<<16 | uint32(words[1]))
	default:
		return float64(words[0])
	}
}

func round(v float64, precision int) float64 {
	factor := math.Pow(10, float64(precision))
	return math.Round(v*factor) / factor
}
