// Package flash implements the on-chip NOR flash backend.
//
// The flash controller is reached through the Hardware trait; the
// erase/program state machine in Machine turns a whole-range Erase or Write
// into single-page and single-word steps, one per call, so that a running
// erase never stalls the main loop. Bank boundaries are checked on every
// step: an operation may start in one bank and finish in the other.
package flash

// Hardware is the register-level contract of a flash controller family.
// Addresses are offsets from the start of the flash array.
type Hardware interface {
	// Detected reports whether the controller responded.
	Detected() bool

	// Size returns the array size in bytes.
	Size() uint32

	// PageSize returns the erase granularity in bytes.
	PageSize() uint32

	// Bank returns the bank index that holds addr.
	Bank(addr uint32) int

	// Unlock enables erase/program on the bank holding addr.
	Unlock(addr uint32)

	// Lock disables erase/program on the bank holding addr.
	Lock(addr uint32)

	// IsBusy reports whether the bank holding addr is still executing an
	// erase or program operation.
	IsBusy(addr uint32) bool

	// ErasePage starts erasing the page holding addr.
	ErasePage(addr uint32) error

	// ProgramWord starts programming one 32-bit word at the word-aligned
	// address addr.
	ProgramWord(addr uint32, word uint32) error

	// Read copies memory-mapped flash content at addr into buf.
	Read(addr uint32, buf []byte) error
}
