// Package eeprom implements the storage backend for 24Cxx-family I2C
// EEPROMs with 16-bit memory addressing.
//
// An EEPROM needs no erase; Erase completes immediately. Write programs one
// device page per call and acknowledge-polls the internal write cycle on
// the following calls, so the bus is never held while the part is busy.
package eeprom

import (
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/xtxerr/dmxnode/config"
	"github.com/xtxerr/dmxnode/internal/logging"
	"github.com/xtxerr/dmxnode/internal/storage/backend"
)

var log = logging.Component("eeprom")

// Config describes the part.
type Config struct {
	// Addr is the 7-bit bus address.
	Addr uint16

	// Size is the capacity in bytes.
	Size uint32

	// PageSize is the write page size in bytes.
	PageSize uint32

	// Speed is the bus clock. Zero leaves the bus speed unchanged.
	Speed physic.Frequency
}

// DefaultConfig returns the settings of a 24C32 at the default address.
func DefaultConfig() Config {
	return Config{
		Addr:     config.DefaultEEPROMAddress,
		Size:     config.DefaultEEPROMSize,
		PageSize: config.DefaultEEPROMPageSize,
		Speed:    400 * physic.KiloHertz,
	}
}

// Backend is an I2C EEPROM storage backend. It is not safe for concurrent
// use.
type Backend struct {
	dev      i2c.Dev
	cfg      Config
	detected bool

	// write in flight
	writing    bool
	addr       uint32
	src        []byte
	ackPending bool
	ackPolls   int
}

var _ backend.Backend = (*Backend)(nil)

// New creates a backend on bus and probes the device once.
func New(bus i2c.Bus, cfg Config) *Backend {
	if cfg.PageSize == 0 {
		cfg.PageSize = config.DefaultEEPROMPageSize
	}

	b := &Backend{
		dev: i2c.Dev{Bus: bus, Addr: cfg.Addr},
		cfg: cfg,
	}

	if cfg.Speed != 0 {
		if err := bus.SetSpeed(cfg.Speed); err != nil {
			log.Warn("cannot set bus speed", "bus", bus.String(), "speed", cfg.Speed, "error", err)
		}
	}

	var probe [1]byte
	if err := b.dev.Tx([]byte{0, 0}, probe[:]); err != nil {
		log.Warn("eeprom not detected", "bus", bus.String(), "addr", cfg.Addr, "error", err)
	} else {
		b.detected = true
		log.Info("eeprom detected", "bus", bus.String(), "addr", cfg.Addr, "size", cfg.Size, "page_size", cfg.PageSize)
	}
	return b
}

func (b *Backend) IsDetected() bool   { return b.detected }
func (b *Backend) Size() uint32       { return b.cfg.Size }
func (b *Backend) SectorSize() uint32 { return 1 }

// AckPolls returns the number of NACKed acknowledge polls seen so far.
func (b *Backend) AckPolls() int {
	return b.ackPolls
}

// Read performs one sequential read.
func (b *Backend) Read(offset, length uint32, buf []byte) (bool, backend.Result) {
	if !b.detected {
		return true, backend.ResultNotPresent
	}
	if !backend.InRange(b.cfg.Size, offset, length) || uint32(len(buf)) < length {
		return true, backend.ResultOutOfRange
	}
	if length == 0 {
		return true, backend.ResultOK
	}

	if err := b.dev.Tx(memAddr(offset), buf[:length]); err != nil {
		log.Warn("eeprom read failed", "offset", offset, "length", length, "error", err)
		return true, backend.ResultError
	}
	return true, backend.ResultOK
}

// Erase is a no-op: EEPROM cells are rewritten in place.
func (b *Backend) Erase(offset, length uint32) (bool, backend.Result) {
	if !backend.InRange(b.cfg.Size, offset, length) {
		return true, backend.ResultOutOfRange
	}
	return true, backend.ResultOK
}

// Write programs at most one page per call. buf must stay unchanged until
// the write completes.
func (b *Backend) Write(offset, length uint32, buf []byte) (bool, backend.Result) {
	if !b.writing {
		if !b.detected {
			return true, backend.ResultNotPresent
		}
		if !backend.InRange(b.cfg.Size, offset, length) || uint32(len(buf)) < length {
			return true, backend.ResultOutOfRange
		}
		b.writing = true
		b.addr = offset
		b.src = buf[:length]
		b.ackPending = false
	}

	if b.ackPending {
		// The part NACKs its address until the internal write cycle ends.
		if err := b.dev.Tx(memAddr(b.addr), nil); err != nil {
			b.ackPolls++
			return false, backend.ResultBusy
		}
		b.ackPending = false
	}

	if len(b.src) == 0 {
		b.reset()
		return true, backend.ResultOK
	}

	n := b.cfg.PageSize - b.addr%b.cfg.PageSize
	if n > uint32(len(b.src)) {
		n = uint32(len(b.src))
	}

	frame := make([]byte, 2+n)
	copy(frame, memAddr(b.addr))
	copy(frame[2:], b.src[:n])

	if err := b.dev.Tx(frame, nil); err != nil {
		log.Warn("eeprom page write failed", "addr", b.addr, "length", n, "error", err)
		b.reset()
		return true, backend.ResultError
	}

	b.addr += n
	b.src = b.src[n:]
	b.ackPending = true
	return false, backend.ResultBusy
}

func (b *Backend) reset() {
	b.writing = false
	b.src = nil
	b.ackPending = false
}

func memAddr(offset uint32) []byte {
	return []byte{byte(offset >> 8), byte(offset)}
}
