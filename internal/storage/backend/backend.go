// Package backend defines the contract between the configuration store and
// the physical medium that holds the record.
//
// Every operation is polled: the caller repeats the same call, with the same
// arguments, until it reports done. A backend keeps whatever progress state
// it needs between calls and performs at most a bounded amount of work per
// call, so the caller never blocks the real-time loop.
//
// Implementations:
//   - RAM: volatile, completes immediately (this package)
//   - Flash: on-chip NOR flash via an erase/program state machine (flash)
//   - EEPROM: I2C 24Cxx device, one page per quantum (eeprom)
package backend

import (
	"fmt"
	"strings"

	"github.com/xtxerr/dmxnode/internal/constants"
	"github.com/xtxerr/dmxnode/internal/errors"
)

// Result is the out-of-band status reported with the completion flag.
type Result = errors.Result

const (
	ResultOK         = errors.ResultOK
	ResultBusy       = errors.ResultBusy
	ResultError      = errors.ResultError
	ResultOutOfRange = errors.ResultOutOfRange
	ResultNotPresent = errors.ResultNotPresent
)

// Backend is a block device the record is persisted to.
//
// Read, Erase and Write return (done, result). done=false means "call again";
// the result is only meaningful once done is true or when it is an error.
type Backend interface {
	// IsDetected reports whether the device answered at startup.
	IsDetected() bool

	// Size returns the capacity in bytes.
	Size() uint32

	// SectorSize returns the erase granularity in bytes.
	SectorSize() uint32

	Read(offset, length uint32, buf []byte) (bool, Result)
	Erase(offset, length uint32) (bool, Result)
	Write(offset, length uint32, buf []byte) (bool, Result)
}

// =============================================================================
// Kind
// =============================================================================

// Kind selects a backend implementation.
type Kind int

const (
	KindNone Kind = iota
	KindRAM
	KindFlash
	KindEEPROM
)

var kindNames = map[Kind]string{
	KindNone:   constants.BackendNone,
	KindRAM:    constants.BackendRAM,
	KindFlash:  constants.BackendFlash,
	KindEEPROM: constants.BackendEEPROM,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a configuration string into a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindNone, errors.NewInvalidValue("backend", s, "expected none, ram, flash or eeprom")
}

// =============================================================================
// Helpers
// =============================================================================

// InRange reports whether [offset, offset+length) lies inside a device of
// the given size. Overflow of offset+length is treated as out of range.
func InRange(size, offset, length uint32) bool {
	end := offset + length
	if end < offset {
		return false
	}
	return end <= size
}

// Base returns the offset of the record area: the top-most sectors of the
// device.
func Base(b Backend, sectors uint32) uint32 {
	span := sectors * b.SectorSize()
	if span > b.Size() {
		return 0
	}
	return b.Size() - span
}

// Describe formats a short identification for logs.
func Describe(b Backend) string {
	if b == nil {
		return constants.BackendNone
	}
	return fmt.Sprintf("%T size=%d sector=%d detected=%t", b, b.Size(), b.SectorSize(), b.IsDetected())
}
