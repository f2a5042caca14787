package poller

import (
	"sort"

	"github.com/aattila/inverter-11k-modbus-add-on/internal/inverter"
)

// Block is one contiguous register range read in a single transaction.
type Block struct {
	Address uint16
	Count   uint16
	Specs   []inverter.RegisterSpec
}

// CoalesceBlocks groups register specs into contiguous read ranges so a
// cycle needs fewer serial transactions. Specs closer together than
// maxGap words land in the same block; a block never exceeds maxWords.
// Reading registers in the gaps is harmless, the decoder only looks at
// mapped addresses.
func CoalesceBlocks(specs []inverter.RegisterSpec, maxGap, maxWords uint16) []Block {
	if len(specs) == 0 {
		return nil
	}

	ordered := make([]inverter.RegisterSpec, len(specs))
	copy(ordered, specs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Address < ordered[j].Address })

	var blocks []Block
	current := Block{
		Address: ordered[0].Address,
		Count:   ordered[0].Count,
		Specs:   []inverter.RegisterSpec{ordered[0]},
	}

	for _, spec := range ordered[1:] {
		end := current.Address + current.Count
		newCount := spec.Address + spec.Count - current.Address

		if spec.Address <= end+maxGap && newCount <= maxWords {
			current.Count = newCount
			current.Specs = append(current.Specs, spec)
			continue
		}

		blocks = append(blocks, current)
		current = Block{
			Address: spec.Address,
			Count:   spec.Count,
			Specs:   []inverter.RegisterSpec{spec},
		}
	}

	return append(blocks, current)
}
