// Package config loads the node's YAML configuration: which storage backend
// holds the record, its geometry, store timing and logging.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	defaults "github.com/xtxerr/dmxnode/config"
	"github.com/xtxerr/dmxnode/internal/constants"
)

// Config represents the complete node configuration.
type Config struct {
	// Backend selects the storage medium: "none", "ram", "flash" or "eeprom".
	Backend string `yaml:"backend"`

	// Flash configures the on-chip flash controller.
	Flash FlashConfig `yaml:"flash"`

	// EEPROM configures the external I2C EEPROM.
	EEPROM EEPROMConfig `yaml:"eeprom"`

	// RAM configures the volatile backend.
	RAM RAMConfig `yaml:"ram"`

	// Store configures the write-back pipeline.
	Store StoreConfig `yaml:"store"`

	// Timer configures the timer pool and main loop.
	Timer TimerConfig `yaml:"timer"`

	// Logging configures the global logger.
	Logging LoggingConfig `yaml:"logging"`

	// Image is a host file holding the simulated medium between runs.
	// Empty disables persistence. Ignored for a real I2C bus.
	Image string `yaml:"image"`

	// Settings is an optional YAML/JSON settings document applied after
	// the store has booted.
	Settings string `yaml:"settings"`
}

// FlashConfig configures the on-chip flash controller.
type FlashConfig struct {
	// Family is "single" or "dual" bank.
	Family string `yaml:"family"`

	// Size is the total flash size in bytes.
	Size uint32 `yaml:"size"`

	// PageSize is the hardware erase unit.
	PageSize uint32 `yaml:"page_size"`

	// BusyPolls is the number of busy polls after each command.
	BusyPolls int `yaml:"busy_polls"`
}

// EEPROMConfig configures the external I2C EEPROM.
type EEPROMConfig struct {
	// Bus is the I2C bus name passed to i2creg.Open. Empty or "sim" selects
	// the in-process simulator.
	Bus string `yaml:"bus"`

	// Address is the 7-bit device address.
	Address uint16 `yaml:"address"`

	// Size is the device capacity in bytes.
	Size uint32 `yaml:"size"`

	// PageSize is the device write-page size.
	PageSize uint32 `yaml:"page_size"`

	// SpeedHz is the bus clock.
	SpeedHz int64 `yaml:"speed_hz"`

	// WriteCycle is the number of NACKed polls the simulator answers after
	// a page write.
	WriteCycle int `yaml:"write_cycle"`
}

// RAMConfig configures the volatile backend.
type RAMConfig struct {
	Size       uint32 `yaml:"size"`
	SectorSize uint32 `yaml:"sector_size"`
}

// StoreConfig configures the write-back pipeline.
type StoreConfig struct {
	// Debug panics on backend errors instead of retrying.
	Debug bool `yaml:"debug"`

	// Debounce is how long a burst of writes is collected before flushing.
	// Format: "100ms", "1s"
	Debounce time.Duration `yaml:"debounce"`

	// Sectors is the number of erase sectors reserved for the record.
	Sectors uint32 `yaml:"sectors"`

	// DrainLimit bounds the quanta spent by the shutdown flush.
	DrainLimit int `yaml:"drain_limit"`
}

// TimerConfig configures the timer pool and main loop.
type TimerConfig struct {
	// PoolSize is the number of timer slots.
	PoolSize int `yaml:"pool_size"`

	// LoopTick is the pause between two loop iterations. Zero spins.
	LoopTick time.Duration `yaml:"loop_tick"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON selects JSON output instead of text.
	JSON bool `yaml:"json"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: constants.BackendFlash,
		Flash: FlashConfig{
			Family:    constants.FlashFamilyDual,
			Size:      defaults.DefaultFlashSize,
			PageSize:  defaults.DefaultFlashPageSize,
			BusyPolls: defaults.DefaultFlashBusyPolls,
		},
		EEPROM: EEPROMConfig{
			Bus:        constants.EEPROMBusSim,
			Address:    defaults.DefaultEEPROMAddress,
			Size:       defaults.DefaultEEPROMSize,
			PageSize:   defaults.DefaultEEPROMPageSize,
			SpeedHz:    400_000,
			WriteCycle: 3,
		},
		RAM: RAMConfig{
			Size:       defaults.DefaultBlockSize,
			SectorSize: defaults.DefaultBlockSize,
		},
		Store: StoreConfig{
			Debounce:   defaults.DefaultDebounceInterval,
			Sectors:    defaults.DefaultRecordSectors,
			DrainLimit: defaults.DefaultDrainLimit,
		},
		Timer: TimerConfig{
			PoolSize: defaults.DefaultTimerPoolSize,
			LoopTick: defaults.DefaultLoopTick,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DebounceMs returns the debounce interval in timer-pool milliseconds.
func (c *StoreConfig) DebounceMs() uint32 {
	return uint32(c.Debounce / time.Millisecond)
}
