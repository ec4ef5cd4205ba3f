package settings

import (
	"strings"
	"testing"

	"github.com/xtxerr/dmxnode/internal/errors"
	"github.com/xtxerr/dmxnode/internal/layout"
	"github.com/xtxerr/dmxnode/internal/storage/backend"
	"github.com/xtxerr/dmxnode/internal/storage/store"
	testutil "github.com/xtxerr/dmxnode/internal/testing"
	"github.com/xtxerr/dmxnode/internal/timer"
)

func openRegistry(t *testing.T) *Registry {
	t.Helper()
	pool := timer.New(4, testutil.NewManualClock(0))
	st, err := store.Open(backend.NewRAM(layout.BlockSize, layout.BlockSize), pool, store.DefaultOptions())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st)
}

func TestEveryDescriptorRegistered(t *testing.T) {
	r := openRegistry(t)

	if got, want := len(r.Names()), len(layout.Fields()); got != want {
		t.Fatalf("registered %d settings, want %d", got, want)
	}
	for _, d := range layout.Fields() {
		info, ok := r.Lookup(d.Name())
		if !ok {
			t.Errorf("%s not registered", d.Name())
			continue
		}
		if info.Sub != d.Sub() {
			t.Errorf("%s: sub-record %v, want %v", d.Name(), info.Sub, d.Sub())
		}
	}
}

func TestSetGet(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"sacn.priority", "120", "120"},
		{"network.ip", "10.0.0.20", "10.0.0.20"},
		{"port2.universe", "0x10", "16"},
		{"network.utc_offset", "-60", "-60"},
		{"rdm.device_id", "4294967295", "4294967295"},
		{"sacn.cid", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"ltc.start", "01:02:03:04", "01:02:03:04"},
		{"network.hostname", "node-1", "node-1"},
		{"identity.long_name", "Stage left, rack 2", "Stage left, rack 2"},
		{"sacn.universes", "1, 2,3", "1,2,3,0"},
		{"sensors.offsets", "-5,7", "-5,7,0,0,0,0,0,0"},
		{"artnet.destinations", "10.0.0.1,10.0.0.2", "10.0.0.1,10.0.0.2,0.0.0.0,0.0.0.0"},
		{"network.dhcp", "on", "true"},
		{"port3.rdm", "true", "true"},
		{"sensors.calibrated7", "yes", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := openRegistry(t)

			changed, err := r.Set(tt.name, tt.value)
			if err != nil {
				t.Fatalf("Set: %v", err)
			}
			if !changed {
				t.Error("expected a change")
			}

			got, err := r.Get(tt.name)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != tt.want {
				t.Errorf("Get = %q, want %q", got, tt.want)
			}

			changed, err = r.Set(tt.name, tt.value)
			if err != nil || changed {
				t.Errorf("repeated Set: changed=%v err=%v", changed, err)
			}
		})
	}
}

func TestSetWritesThroughStore(t *testing.T) {
	r := openRegistry(t)
	st := r.Store()

	if _, err := r.Set("port1.universe", "42"); err != nil {
		t.Fatal(err)
	}
	if got := store.Get(st, layout.Port(1).Universe); got != 42 {
		t.Errorf("store value = %d", got)
	}

	if _, err := r.Set("syslog.enabled", "true"); err != nil {
		t.Fatal(err)
	}
	if !st.IsFlagSet(layout.SyslogEnabled) {
		t.Error("flag not set in store")
	}
	if st.State() == store.StateIdle {
		t.Error("store should have pending changes")
	}
}

func TestGetReportsDefaults(t *testing.T) {
	r := openRegistry(t)

	for name, want := range map[string]string{
		"sacn.priority":     "100",
		"network.netmask":   "255.255.255.0",
		"port2.universe":    "3",
		"osc.incoming_port": "8000",
		"network.dhcp":      "false",
	} {
		got, err := r.Get(name)
		if err != nil {
			t.Fatalf("Get(%s): %v", name, err)
		}
		if got != want {
			t.Errorf("Get(%s) = %q, want %q", name, got, want)
		}
	}

	info, _ := r.Lookup("dmx.slots")
	if info.Default != "512" || info.Kind != KindInteger {
		t.Errorf("dmx.slots info = %+v", info)
	}
	info, _ = r.Lookup("rdm.label")
	if info.Kind != KindText || info.Capacity != 32 {
		t.Errorf("rdm.label info = %+v", info)
	}
	info, _ = r.Lookup("artnet.universes")
	if info.Kind != KindList {
		t.Errorf("artnet.universes kind = %s", info.Kind)
	}
}

func TestSetRejects(t *testing.T) {
	r := openRegistry(t)

	if _, err := r.Set("network.nope", "1"); !errors.IsNotFound(err) {
		t.Errorf("unknown field: %v", err)
	}
	if _, err := r.Get("network.nope"); !errors.IsNotFound(err) {
		t.Errorf("unknown field get: %v", err)
	}

	invalid := []struct{ name, value string }{
		{"sacn.priority", "300"},
		{"sacn.priority", "high"},
		{"artnet.oem_code", "-1"},
		{"network.ip", "10.0.0"},
		{"network.ip", "::1"},
		{"sacn.cid", "not-a-uuid"},
		{"ltc.start", "25:00:00:00"},
		{"network.hostname", strings.Repeat("x", 33)},
		{"network.hostname", "rig_a"},
		{"identity.long_name", "line\nbreak"},
		{"sacn.universes", "1,2,3,4,5"},
		{"network.dhcp", "maybe"},
	}
	for _, tt := range invalid {
		changed, err := r.Set(tt.name, tt.value)
		if !errors.IsValidation(err) {
			t.Errorf("Set(%s, %q): err = %v", tt.name, tt.value, err)
		}
		if changed {
			t.Errorf("Set(%s, %q) changed the record", tt.name, tt.value)
		}
	}
}

func TestRandomCID(t *testing.T) {
	r := openRegistry(t)

	if _, err := r.Set("sacn.cid", "random"); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Get("sacn.cid")
	if got == "00000000-0000-0000-0000-000000000000" || len(got) != 36 {
		t.Errorf("cid = %q", got)
	}
}

func TestMatch(t *testing.T) {
	r := openRegistry(t)

	got := r.Match("port0.")
	if len(got) != 13 {
		t.Errorf("port0 settings = %d: %v", len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("not sorted: %v", got)
		}
	}
	if len(r.Match("zzz")) != 0 {
		t.Error("unexpected match")
	}
}

func TestKindString(t *testing.T) {
	if KindTimecode.String() != "timecode" {
		t.Errorf("got %s", KindTimecode)
	}
	if Kind(99).String() != "Kind(99)" {
		t.Errorf("got %s", Kind(99))
	}
}
