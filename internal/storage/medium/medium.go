// Package medium builds the storage backend selected by the node
// configuration, including host-side image persistence for the simulated
// parts and the I2C bus for a real EEPROM.
package medium

import (
	"fmt"
	"os"
	"path/filepath"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/xtxerr/dmxnode/internal/constants"
	"github.com/xtxerr/dmxnode/internal/logging"
	"github.com/xtxerr/dmxnode/internal/storage/backend"
	"github.com/xtxerr/dmxnode/internal/storage/config"
	"github.com/xtxerr/dmxnode/internal/storage/eeprom"
	"github.com/xtxerr/dmxnode/internal/storage/flash"
)

var log = logging.Component("medium")

// Medium is a storage backend plus its host-side lifecycle.
type Medium struct {
	Backend backend.Backend

	// save persists a simulated medium to the image file.
	save func() error

	// close releases a real bus.
	close func() error
}

// Save writes a simulated medium to the image file. It is a no-op without
// an image or for a real bus.
func (m Medium) Save() error {
	if m.save == nil {
		return nil
	}
	return m.save()
}

// Close releases a real bus.
func (m Medium) Close() error {
	if m.close == nil {
		return nil
	}
	return m.close()
}

// Open builds the backend selected by cfg. The "none" backend yields a nil
// Backend, which the store replaces with a volatile RAM block.
func Open(cfg *config.Config) (Medium, error) {
	kind, err := backend.ParseKind(cfg.Backend)
	if err != nil {
		return Medium{}, err
	}

	switch kind {
	case backend.KindNone:
		return Medium{}, nil

	case backend.KindRAM:
		return Medium{Backend: backend.NewRAM(cfg.RAM.Size, cfg.RAM.SectorSize)}, nil

	case backend.KindFlash:
		return openFlash(cfg)

	case backend.KindEEPROM:
		if constants.IsSimulatedBus(cfg.EEPROM.Bus) {
			return openEEPROMSim(cfg)
		}
		return openEEPROMBus(cfg)

	default:
		return Medium{}, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func openFlash(cfg *config.Config) (Medium, error) {
	family, err := flash.ParseFamily(cfg.Flash.Family)
	if err != nil {
		return Medium{}, err
	}

	sim, err := flash.NewSim(flash.SimConfig{
		Family:    family,
		Size:      cfg.Flash.Size,
		PageSize:  cfg.Flash.PageSize,
		BusyPolls: cfg.Flash.BusyPolls,
	})
	if err != nil {
		return Medium{}, fmt.Errorf("create flash: %w", err)
	}

	m := Medium{Backend: flash.New(sim)}
	if cfg.Image != "" {
		if err := sim.LoadImageFile(cfg.Image); err != nil {
			return Medium{}, err
		}
		log.Debug("flash image loaded", "path", cfg.Image)
		m.save = func() error { return sim.SaveImageFile(cfg.Image) }
	}
	return m, nil
}

func eepromConfig(cfg *config.Config) eeprom.Config {
	return eeprom.Config{
		Addr:     cfg.EEPROM.Address,
		Size:     cfg.EEPROM.Size,
		PageSize: cfg.EEPROM.PageSize,
		Speed:    physic.Frequency(cfg.EEPROM.SpeedHz) * physic.Hertz,
	}
}

func openEEPROMSim(cfg *config.Config) (Medium, error) {
	sim := eeprom.NewSim(cfg.EEPROM.Address, cfg.EEPROM.Size, cfg.EEPROM.PageSize, cfg.EEPROM.WriteCycle)

	m := Medium{Backend: eeprom.New(sim, eepromConfig(cfg))}
	if cfg.Image != "" {
		data, err := os.ReadFile(cfg.Image)
		switch {
		case err == nil:
			sim.Load(data)
			log.Debug("eeprom image loaded", "path", cfg.Image, "bytes", len(data))
		case !os.IsNotExist(err):
			return Medium{}, fmt.Errorf("read eeprom image: %w", err)
		}
		m.save = func() error { return writeImage(cfg.Image, sim.Bytes()) }
	}
	return m, nil
}

func openEEPROMBus(cfg *config.Config) (Medium, error) {
	if _, err := host.Init(); err != nil {
		return Medium{}, fmt.Errorf("init host drivers: %w", err)
	}

	bus, err := i2creg.Open(cfg.EEPROM.Bus)
	if err != nil {
		return Medium{}, fmt.Errorf("open i2c bus %q: %w", cfg.EEPROM.Bus, err)
	}

	log.Info("i2c bus opened", "bus", bus.String(), "addr", cfg.EEPROM.Address)

	return Medium{
		Backend: eeprom.New(bus, eepromConfig(cfg)),
		close:   bus.Close,
	}, nil
}

// writeImage replaces path through a temporary file and a rename.
func writeImage(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create image directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".eeprom-*.img")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp image: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
