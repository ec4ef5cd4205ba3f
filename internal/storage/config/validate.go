package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	defaults "github.com/xtxerr/dmxnode/config"
	"github.com/xtxerr/dmxnode/internal/constants"
	"github.com/xtxerr/dmxnode/internal/logging"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if !constants.IsValidBackend(c.Backend) {
		errs = append(errs, fmt.Errorf("backend must be one of: %s", strings.Join(constants.ValidBackends, ", ")))
	}

	// Only the selected medium has to be usable.
	switch c.Backend {
	case constants.BackendFlash:
		if err := c.Flash.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("flash: %w", err))
		}
	case constants.BackendEEPROM:
		if err := c.EEPROM.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("eeprom: %w", err))
		}
	case constants.BackendRAM:
		if err := c.RAM.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("ram: %w", err))
		}
	}

	if err := c.Store.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}

	if err := c.Timer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("timer: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the flash configuration.
func (c *FlashConfig) Validate() error {
	var errs []error

	if !constants.IsValidFlashFamily(c.Family) {
		errs = append(errs, fmt.Errorf("family must be one of: %s", strings.Join(constants.ValidFlashFamilies, ", ")))
	}

	if c.PageSize == 0 || c.PageSize&(c.PageSize-1) != 0 {
		errs = append(errs, errors.New("page_size must be a power of two"))
	}

	if c.PageSize != 0 && c.Size%c.PageSize != 0 {
		errs = append(errs, errors.New("size must be a multiple of page_size"))
	}

	if c.Size < defaults.DefaultBlockSize {
		errs = append(errs, fmt.Errorf("size must be at least %d", defaults.DefaultBlockSize))
	}

	if c.Family == constants.FlashFamilyDual && c.PageSize != 0 && (c.Size/2)%c.PageSize != 0 {
		errs = append(errs, errors.New("dual bank size must split on a page boundary"))
	}

	if c.BusyPolls < 0 {
		errs = append(errs, errors.New("busy_polls must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the EEPROM configuration.
func (c *EEPROMConfig) Validate() error {
	var errs []error

	if c.Address == 0 || c.Address > 0x7F {
		errs = append(errs, errors.New("address must be a 7-bit I2C address"))
	}

	if c.Size < defaults.DefaultBlockSize {
		errs = append(errs, fmt.Errorf("size must be at least %d", defaults.DefaultBlockSize))
	}

	// 16-bit memory addressing.
	if c.Size > 1<<16 {
		errs = append(errs, errors.New("size must not exceed 65536"))
	}

	if c.PageSize == 0 || c.Size%c.PageSize != 0 {
		errs = append(errs, errors.New("page_size must divide size"))
	}

	if c.SpeedHz < 0 {
		errs = append(errs, errors.New("speed_hz must be non-negative"))
	}

	if c.WriteCycle < 0 {
		errs = append(errs, errors.New("write_cycle must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the RAM configuration.
func (c *RAMConfig) Validate() error {
	var errs []error

	if c.SectorSize == 0 {
		errs = append(errs, errors.New("sector_size must be positive"))
	} else if c.Size%c.SectorSize != 0 {
		errs = append(errs, errors.New("size must be a multiple of sector_size"))
	}

	if c.Size < defaults.DefaultBlockSize {
		errs = append(errs, fmt.Errorf("size must be at least %d", defaults.DefaultBlockSize))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the store configuration.
func (c *StoreConfig) Validate() error {
	var errs []error

	if c.Debounce < time.Millisecond {
		errs = append(errs, errors.New("debounce must be at least 1ms"))
	}

	if c.Debounce > time.Duration(1<<31)*time.Millisecond {
		errs = append(errs, errors.New("debounce exceeds the timer range"))
	}

	if c.Sectors == 0 {
		errs = append(errs, errors.New("sectors must be positive"))
	}

	if c.DrainLimit <= 0 {
		errs = append(errs, errors.New("drain_limit must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the timer configuration.
func (c *TimerConfig) Validate() error {
	var errs []error

	if c.PoolSize <= 0 {
		errs = append(errs, errors.New("pool_size must be positive"))
	}

	if c.LoopTick < 0 {
		errs = append(errs, errors.New("loop_tick must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the logging configuration.
func (c *LoggingConfig) Validate() error {
	if !constants.IsValidLogLevel(c.Level) {
		return fmt.Errorf("level %q must be one of: debug, info, warn, error", c.Level)
	}
	return nil
}

// LogLevel returns the configured level for logging.Init.
func (c *LoggingConfig) LogLevel() slog.Level {
	return logging.ParseLevel(c.Level)
}
