package flash

import (
	"github.com/xtxerr/dmxnode/internal/storage/backend"
)

// Backend exposes a flash controller as a storage backend. Erase and Write
// are sequenced by the embedded Machine; Read is memory-mapped and completes
// in one call.
type Backend struct {
	*Machine
	hw Hardware
}

var _ backend.Backend = (*Backend)(nil)

// New creates a flash backend over hw.
func New(hw Hardware) *Backend {
	b := &Backend{
		Machine: NewMachine(hw),
		hw:      hw,
	}
	log.Info("flash backend created",
		"detected", hw.Detected(),
		"size", hw.Size(),
		"page_size", hw.PageSize())
	return b
}

func (b *Backend) IsDetected() bool   { return b.hw.Detected() }
func (b *Backend) Size() uint32       { return b.hw.Size() }
func (b *Backend) SectorSize() uint32 { return b.hw.PageSize() }

// Read copies length bytes at offset into buf.
func (b *Backend) Read(offset, length uint32, buf []byte) (bool, backend.Result) {
	if !backend.InRange(b.hw.Size(), offset, length) || uint32(len(buf)) < length {
		return true, backend.ResultOutOfRange
	}
	if err := b.hw.Read(offset, buf[:length]); err != nil {
		log.Warn("flash read failed", "offset", offset, "length", length, "error", err)
		return true, backend.ResultError
	}
	return true, backend.ResultOK
}
