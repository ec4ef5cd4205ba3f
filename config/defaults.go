// Package config provides configuration defaults for the dmxnode firmware.
//
// This package defines all configurable constants with documented defaults.
// Users can override most of these values via the node's YAML config file.
package config

import "time"

// =============================================================================
// Record Defaults
// =============================================================================

const (
	// DefaultBlockSize is the size of one configuration block in bytes.
	// The whole configuration record must fit into one block.
	DefaultBlockSize = 4096

	// DefaultRecordSectors is the number of erase sectors reserved for the
	// record at the top of the backend.
	// Override via config: store.sectors
	DefaultRecordSectors = 1
)

// =============================================================================
// Store Defaults
// =============================================================================

const (
	// DefaultDebounceInterval is how long a burst of field writes is
	// collected before the erase/write cycle starts.
	// Override via config: store.debounce
	DefaultDebounceInterval = 100 * time.Millisecond

	// DefaultDrainLimit bounds the number of Commit quanta spent by a
	// shutdown flush. A full 4 KiB flash cycle needs roughly 1100 quanta.
	// Override via config: store.drain_limit
	DefaultDrainLimit = 1 << 16
)

// =============================================================================
// Timer Pool Defaults
// =============================================================================

const (
	// DefaultTimerPoolSize is the number of timer slots.
	// Override via config: timer.pool_size
	DefaultTimerPoolSize = 8

	// DefaultLoopTick is the pause between two main-loop iterations on host
	// builds. Zero spins.
	// Override via config: timer.loop_tick
	DefaultLoopTick = time.Millisecond
)

// =============================================================================
// Flash Defaults
// =============================================================================

const (
	// DefaultFlashBase is the address flash offsets are relative to.
	DefaultFlashBase = 0x0800_0000

	// DefaultFlashSize is the total on-chip flash size.
	// Override via config: flash.size
	DefaultFlashSize = 512 * 1024

	// DefaultFlashPageSize is the hardware erase unit.
	// Override via config: flash.page_size
	DefaultFlashPageSize = 4096

	// DefaultFlashBusyPolls is how many busy polls the simulated controller
	// reports after each erase or program command.
	DefaultFlashBusyPolls = 2
)

// =============================================================================
// EEPROM Defaults
// =============================================================================

const (
	// DefaultEEPROMAddress is the 7-bit I2C address of a 24Cxx EEPROM with
	// all address pins tied low.
	// Override via config: eeprom.address
	DefaultEEPROMAddress = 0x50

	// DefaultEEPROMSize is the logical capacity (24C32).
	// Override via config: eeprom.size
	DefaultEEPROMSize = 4096

	// DefaultEEPROMPageSize is the device write-page size (24C32).
	// Override via config: eeprom.page_size
	DefaultEEPROMPageSize = 32
)
