package flash

import (
	"fmt"

	"github.com/xtxerr/dmxnode/internal/errors"
	"github.com/xtxerr/dmxnode/internal/logging"
	"github.com/xtxerr/dmxnode/internal/storage/backend"
)

var log = logging.Component("flash")

// WordSize is the programming unit in bytes.
const WordSize = 4

// =============================================================================
// State Machine Definition
// =============================================================================

// State is the erase/program state of the controller.
type State int32

const (
	StateIdle State = iota
	StateEraseBusy
	StateEraseProgram
	StateWriteBusy
	StateWriteProgram
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEraseBusy:
		return "erase_busy"
	case StateEraseProgram:
		return "erase_program"
	case StateWriteBusy:
		return "write_busy"
	case StateWriteProgram:
		return "write_program"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type stateTransition struct {
	from State
	to   State
}

var validTransitions = map[stateTransition]bool{
	{StateIdle, StateEraseBusy}: true,
	{StateIdle, StateWriteBusy}: true,

	{StateEraseBusy, StateEraseProgram}: true,
	{StateEraseBusy, StateIdle}:         true,
	{StateEraseBusy, StateError}:        true,
	{StateEraseProgram, StateEraseBusy}: true,

	{StateWriteBusy, StateWriteProgram}: true,
	{StateWriteBusy, StateIdle}:         true,
	{StateWriteBusy, StateError}:        true,
	{StateWriteProgram, StateWriteBusy}: true,

	{StateError, StateIdle}: true,
}

// =============================================================================
// Machine
// =============================================================================

// Machine sequences page erases and word programs over a Hardware. It does
// one unit of work per call and is not safe for concurrent use.
type Machine struct {
	hw    Hardware
	state State

	addr      uint32 // next page or word
	last      uint32 // target of the operation in flight
	remaining uint32
	src       []byte
	unlocked  map[int]uint32 // bank -> an address inside it

	lastErr error
}

// NewMachine creates an idle machine over hw.
func NewMachine(hw Hardware) *Machine {
	return &Machine{
		hw:       hw,
		unlocked: make(map[int]uint32, 2),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// LastError returns the hardware error that moved the machine to
// StateError, if any.
func (m *Machine) LastError() error {
	return m.lastErr
}

// Erase erases length bytes starting at the page-aligned offset.
func (m *Machine) Erase(offset, length uint32) (bool, backend.Result) {
	if m.state == StateError {
		m.transition(StateIdle)
	}

	switch m.state {
	case StateIdle:
		if !backend.InRange(m.hw.Size(), offset, length) {
			return true, backend.ResultOutOfRange
		}
		if offset%m.hw.PageSize() != 0 {
			log.Warn("unaligned erase", "offset", offset, "page_size", m.hw.PageSize())
			return true, backend.ResultError
		}
		m.addr = offset
		m.last = offset
		m.remaining = length
		m.unlock(offset)
		m.transition(StateEraseBusy)
		return false, backend.ResultBusy

	case StateEraseBusy:
		if m.hw.IsBusy(m.last) {
			return false, backend.ResultBusy
		}
		if m.remaining == 0 {
			m.lockAll()
			m.transition(StateIdle)
			return true, backend.ResultOK
		}

		m.unlock(m.addr)
		if err := m.hw.ErasePage(m.addr); err != nil {
			return m.fail(err, "erase page")
		}

		step := m.hw.PageSize() - m.addr%m.hw.PageSize()
		if step > m.remaining {
			step = m.remaining
		}
		m.last = m.addr
		m.addr += step
		m.remaining -= step
		m.transition(StateEraseProgram)
		return false, backend.ResultBusy

	case StateEraseProgram:
		m.transition(StateEraseBusy)
		return false, backend.ResultBusy

	default:
		return false, backend.ResultBusy
	}
}

// Write programs length bytes of buf at the word-aligned offset. buf must
// stay unchanged until the write completes. A short final word is padded
// with 0xFF.
func (m *Machine) Write(offset, length uint32, buf []byte) (bool, backend.Result) {
	if m.state == StateError {
		m.transition(StateIdle)
	}

	switch m.state {
	case StateIdle:
		if !backend.InRange(m.hw.Size(), offset, length) || uint32(len(buf)) < length {
			return true, backend.ResultOutOfRange
		}
		if offset%WordSize != 0 {
			log.Warn("unaligned write", "offset", offset)
			return true, backend.ResultError
		}
		m.addr = offset
		m.last = offset
		m.remaining = length
		m.src = buf[:length]
		m.unlock(offset)
		m.transition(StateWriteBusy)
		return false, backend.ResultBusy

	case StateWriteBusy:
		if m.hw.IsBusy(m.last) {
			return false, backend.ResultBusy
		}
		if m.remaining == 0 {
			m.src = nil
			m.lockAll()
			m.transition(StateIdle)
			return true, backend.ResultOK
		}

		n := uint32(WordSize)
		if n > m.remaining {
			n = m.remaining
		}
		word := uint32(0xFFFFFFFF)
		for i := uint32(0); i < n; i++ {
			word &^= 0xFF << (8 * i)
			word |= uint32(m.src[i]) << (8 * i)
		}

		m.unlock(m.addr)
		if err := m.hw.ProgramWord(m.addr, word); err != nil {
			return m.fail(err, "program word")
		}

		m.src = m.src[n:]
		m.last = m.addr
		m.addr += WordSize
		m.remaining -= n
		m.transition(StateWriteProgram)
		return false, backend.ResultBusy

	case StateWriteProgram:
		m.transition(StateWriteBusy)
		return false, backend.ResultBusy

	default:
		return false, backend.ResultBusy
	}
}

// =============================================================================
// Internal
// =============================================================================

func (m *Machine) transition(to State) {
	if !validTransitions[stateTransition{m.state, to}] {
		// Programming error in this file; never reachable from callers.
		panic(fmt.Sprintf("flash: invalid transition %s -> %s", m.state, to))
	}
	m.state = to
}

func (m *Machine) unlock(addr uint32) {
	bank := m.hw.Bank(addr)
	if _, ok := m.unlocked[bank]; ok {
		return
	}
	m.hw.Unlock(addr)
	m.unlocked[bank] = addr
	log.Debug("bank unlocked", "bank", bank, "addr", addr)
}

func (m *Machine) lockAll() {
	for bank, addr := range m.unlocked {
		m.hw.Lock(addr)
		delete(m.unlocked, bank)
	}
}

func (m *Machine) fail(err error, op string) (bool, backend.Result) {
	m.lastErr = errors.Wrapf(err, "%s at %#x", op, m.addr)
	m.src = nil
	m.lockAll()
	m.transition(StateError)
	log.Warn("flash operation failed", "op", op, "addr", m.addr, "error", err)

	res := errors.ErrorToResult(err)
	if res == backend.ResultOK || res == backend.ResultBusy {
		res = backend.ResultError
	}
	return true, res
}
