package config

import (
	"fmt"
	"time"

	defaults "github.com/xtxerr/dmxnode/config"
	"github.com/xtxerr/dmxnode/internal/constants"
	"github.com/xtxerr/dmxnode/internal/layout"
)

// Requirements describes where the record lands on the configured medium
// and roughly what one flush costs.
type Requirements struct {
	// Placement
	MediumBytes uint32
	SectorSize  uint32
	Sectors     uint32
	AreaBytes   uint32
	Base        uint32
	RecordBytes int

	// Cost of one flush cycle, in Commit quanta
	EraseQuanta int
	WriteQuanta int
	FlushQuanta int

	// FlushLatency is debounce plus FlushQuanta loop ticks.
	FlushLatency time.Duration

	// Wear: erase units touched per flush
	ErasesPerFlush int
}

// Quanta the store spends outside the backend per cycle: the debounce
// expiry and the erased-waiting hop. The snapshot and erased steps issue
// the first erase and write call themselves.
const pipelineQuanta = 2

// CalculateRequirements computes the record placement and flush cost for
// the selected backend.
func (c *Config) CalculateRequirements() Requirements {
	r := Requirements{RecordBytes: layout.Size}

	switch c.Backend {
	case constants.BackendFlash:
		r.MediumBytes = c.Flash.Size
		r.SectorSize = c.Flash.PageSize
	case constants.BackendEEPROM:
		r.MediumBytes = c.EEPROM.Size
		// Byte-addressable, no erase requirement.
		r.SectorSize = 1
	default:
		// "none" falls back to a RAM block at runtime.
		r.MediumBytes = c.RAM.Size
		r.SectorSize = c.RAM.SectorSize
		if c.Backend == constants.BackendNone {
			r.MediumBytes = defaults.DefaultBlockSize
			r.SectorSize = defaults.DefaultBlockSize
		}
	}
	if r.SectorSize == 0 {
		return r
	}

	r.Sectors = max(c.Store.Sectors, 1)
	need := uint32(layout.Size+int(r.SectorSize)-1) / r.SectorSize
	if r.Sectors < need {
		r.Sectors = need
	}
	r.AreaBytes = r.Sectors * r.SectorSize
	if r.AreaBytes <= r.MediumBytes {
		r.Base = r.MediumBytes - r.AreaBytes
	}

	switch c.Backend {
	case constants.BackendFlash:
		// Issue, program hop and busy polls per unit, plus start and finish.
		perUnit := 2 + c.Flash.BusyPolls
		pages := int(r.Sectors)
		words := (layout.Size + 3) / 4
		r.EraseQuanta = pages*perUnit + 2
		r.WriteQuanta = words*perUnit + 2
		r.ErasesPerFlush = pages
	case constants.BackendEEPROM:
		pages := (layout.Size + int(c.EEPROM.PageSize) - 1) / max(int(c.EEPROM.PageSize), 1)
		r.EraseQuanta = 1
		r.WriteQuanta = pages * (2 + c.EEPROM.WriteCycle)
	default:
		r.EraseQuanta = 1
		r.WriteQuanta = 1
		r.ErasesPerFlush = int(r.Sectors)
	}

	r.FlushQuanta = r.EraseQuanta + r.WriteQuanta + pipelineQuanta
	r.FlushLatency = c.Store.Debounce + time.Duration(r.FlushQuanta)*c.Timer.LoopTick

	return r
}

// String returns a human-readable summary of the requirements.
func (r Requirements) String() string {
	return fmt.Sprintf(`Record Placement:
  Medium:            %s
  Sector Size:       %s
  Sectors:           %d
  Area:              %s at 0x%06x
  Record:            %s

Flush Cycle:
  Erase Quanta:      %s
  Write Quanta:      %s
  Total Quanta:      %s
  Latency:           %s
  Erases per Flush:  %d
`,
		formatBytes(int64(r.MediumBytes)),
		formatBytes(int64(r.SectorSize)),
		r.Sectors,
		formatBytes(int64(r.AreaBytes)), r.Base,
		formatBytes(int64(r.RecordBytes)),
		formatNumber(int64(r.EraseQuanta)),
		formatNumber(int64(r.WriteQuanta)),
		formatNumber(int64(r.FlushQuanta)),
		r.FlushLatency,
		r.ErasesPerFlush,
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)

	switch {
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats a number with a thousands suffix.
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%.1fK", float64(n)/1000)
}
