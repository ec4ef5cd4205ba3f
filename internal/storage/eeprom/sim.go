package eeprom

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/xtxerr/dmxnode/internal/errors"
)

// Sim is an in-memory 24Cxx part on its own bus. It implements i2c.Bus:
//   - a transaction to any other address is not acknowledged
//   - the first two written bytes set the address pointer
//   - further written bytes are programmed, wrapping inside the page
//   - reads are sequential and wrap at the end of the array
//   - after a page write the part NACKs for WriteCycle transactions
type Sim struct {
	mu sync.Mutex

	addr       uint16
	mem        []byte
	pageSize   uint32
	ptr        uint32
	writeCycle int
	busy       int
	speed      physic.Frequency

	pageWrites int
	nacks      int
}

var _ i2c.Bus = (*Sim)(nil)

// NewSim creates an erased (0xFF) part. writeCycle is the number of bus
// transactions NACKed after each page write.
func NewSim(addr uint16, size, pageSize uint32, writeCycle int) *Sim {
	s := &Sim{
		addr:       addr,
		mem:        make([]byte, size),
		pageSize:   pageSize,
		writeCycle: writeCycle,
	}
	for i := range s.mem {
		s.mem[i] = 0xFF
	}
	return s
}

func (s *Sim) String() string {
	return fmt.Sprintf("eeprom-sim(%#x)", s.addr)
}

func (s *Sim) SetSpeed(f physic.Frequency) error {
	s.mu.Lock()
	s.speed = f
	s.mu.Unlock()
	return nil
}

// Speed returns the last bus speed set.
func (s *Sim) Speed() physic.Frequency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

func (s *Sim) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr != s.addr {
		s.nacks++
		return errors.Wrapf(errors.ErrDeviceNotDetected, "no ack from %#x", addr)
	}
	if s.busy > 0 {
		s.busy--
		s.nacks++
		return errors.Wrapf(errors.ErrBusy, "%#x in write cycle", addr)
	}

	size := uint32(len(s.mem))
	switch {
	case len(w) == 1:
		return errors.Wrapf(errors.ErrIoFailure, "%#x needs a two byte address", addr)
	case len(w) >= 2:
		s.ptr = (uint32(w[0])<<8 | uint32(w[1])) % size
	}

	if data := w[min(len(w), 2):]; len(data) > 0 {
		base := s.ptr - s.ptr%s.pageSize
		for i, v := range data {
			s.mem[base+(s.ptr-base+uint32(i))%s.pageSize] = v
		}
		s.ptr = base + (s.ptr-base+uint32(len(data)))%s.pageSize
		s.busy = s.writeCycle
		s.pageWrites++
	}

	for i := range r {
		r[i] = s.mem[s.ptr]
		s.ptr = (s.ptr + 1) % size
	}
	return nil
}

// Bytes returns a copy of the array.
func (s *Sim) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.mem))
	copy(out, s.mem)
	return out
}

// Load replaces the array content; the tail beyond data is erased.
func (s *Sim) Load(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(s.mem, data)
	for i := n; i < len(s.mem); i++ {
		s.mem[i] = 0xFF
	}
}

// PageWrites returns the number of programming transactions.
func (s *Sim) PageWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageWrites
}

// Nacks returns the number of transactions not acknowledged.
func (s *Sim) Nacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nacks
}
