package medium

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xtxerr/dmxnode/internal/layout"
	"github.com/xtxerr/dmxnode/internal/storage/config"
	"github.com/xtxerr/dmxnode/internal/storage/store"
	testutil "github.com/xtxerr/dmxnode/internal/testing"
	"github.com/xtxerr/dmxnode/internal/timer"
)

func TestOpenKinds(t *testing.T) {
	tests := []struct {
		kind     string
		detected bool
	}{
		{"none", false},
		{"ram", true},
		{"flash", true},
		{"eeprom", true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Backend = tt.kind

			m, err := Open(cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer m.Close()

			got := m.Backend != nil && m.Backend.IsDetected()
			if got != tt.detected {
				t.Errorf("detected = %v, want %v", got, tt.detected)
			}
			if err := m.Save(); err != nil {
				t.Errorf("Save without image: %v", err)
			}
		})
	}
}

// persistThrough opens the medium, stores a hostname, flushes and saves
// the image, then reopens it and returns the hostname read back.
func persistThrough(t *testing.T, cfg *config.Config, hostname string) string {
	t.Helper()

	write := func() {
		m, err := Open(cfg)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		st, err := store.Open(m.Backend, timer.New(2, testutil.NewManualClock(0)), store.DefaultOptions())
		if err != nil {
			t.Fatalf("store.Open: %v", err)
		}
		defer st.Close()
		store.UpdateString(st, layout.NetworkHostname, hostname)
		st.Flush()
		if err := m.Save(); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	write()

	m, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	st, err := store.Open(m.Backend, timer.New(2, testutil.NewManualClock(0)), store.DefaultOptions())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	return store.GetString(st, layout.NetworkHostname)
}

func TestFlashImagePersists(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Flash.Size = 64 * 1024
	cfg.Image = filepath.Join(t.TempDir(), "flash.img")

	if got := persistThrough(t, cfg, "flash-node"); got != "flash-node" {
		t.Errorf("hostname after restart = %q", got)
	}
}

func TestEEPROMImagePersists(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend = "eeprom"
	cfg.EEPROM.WriteCycle = 1
	cfg.Image = filepath.Join(t.TempDir(), "sub", "eeprom.img")

	if got := persistThrough(t, cfg, "eeprom-node"); got != "eeprom-node" {
		t.Errorf("hostname after restart = %q", got)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend = "tape"
	if _, err := Open(cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenRejectsOversizedFlashImage(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Flash.Size = 16 * 1024
	cfg.Image = filepath.Join(t.TempDir(), "flash.img")

	if err := os.WriteFile(cfg.Image, make([]byte, 32*1024), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(cfg); err == nil {
		t.Fatal("expected error for an image larger than the part")
	}
}
