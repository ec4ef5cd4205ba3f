// Package constants provides the configuration keywords shared by the
// config loader, the medium factory and the command-line tools.
package constants

// =============================================================================
// Backend Kinds - Storage medium selected by the config
// =============================================================================

const (
	// BackendNone runs without persistence; the store falls back to a
	// volatile RAM block
	BackendNone = "none"

	// BackendRAM is an in-memory medium, mainly for tests and the shell
	BackendRAM = "ram"

	// BackendFlash is the on-chip flash controller (simulated on hosts)
	BackendFlash = "flash"

	// BackendEEPROM is a 24Cxx serial EEPROM on an I2C bus
	BackendEEPROM = "eeprom"
)

// ValidBackends contains all valid backend kinds
var ValidBackends = []string{BackendNone, BackendRAM, BackendFlash, BackendEEPROM}

// IsValidBackend checks if a backend kind is valid
func IsValidBackend(kind string) bool {
	return contains(ValidBackends, kind)
}

// =============================================================================
// Flash Families - Controller register layouts
// =============================================================================

const (
	// FlashFamilySingle has one bank with a single lock and busy register
	FlashFamilySingle = "single"

	// FlashFamilyDual splits the array into two banks with separate
	// lock and busy registers
	FlashFamilyDual = "dual"
)

// ValidFlashFamilies contains all valid flash families
var ValidFlashFamilies = []string{FlashFamilySingle, FlashFamilyDual}

// IsValidFlashFamily checks if a flash family is valid
func IsValidFlashFamily(family string) bool {
	return contains(ValidFlashFamilies, family)
}

// =============================================================================
// EEPROM Buses
// =============================================================================

// EEPROMBusSim selects the in-process 24Cxx simulator instead of a
// host I2C bus.
const EEPROMBusSim = "sim"

// IsSimulatedBus reports whether bus names the simulator. An empty name
// does too.
func IsSimulatedBus(bus string) bool {
	return bus == "" || bus == EEPROMBusSim
}

// =============================================================================
// Log Levels
// =============================================================================

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// ValidLogLevels contains all accepted level names. "warning" is an alias
// of warn.
var ValidLogLevels = []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, "warning", LogLevelError}

// IsValidLogLevel checks if a level name is valid
func IsValidLogLevel(level string) bool {
	return contains(ValidLogLevels, level)
}

// =============================================================================
// Setting Values
// =============================================================================

const (
	// CIDRandom asks the settings layer to generate a fresh component ID
	CIDRandom = "random"

	// ListSeparator separates the elements of an array setting
	ListSeparator = ","
)

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
