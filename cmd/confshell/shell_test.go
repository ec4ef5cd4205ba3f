package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xtxerr/dmxnode/internal/storage/config"
	"github.com/xtxerr/dmxnode/internal/storage/store"
)

func newTestShell(t *testing.T, cfg *config.Config) (*shell, *bytes.Buffer) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Backend = "ram"
	}
	var out bytes.Buffer
	sh, err := newShell(cfg, &out)
	if err != nil {
		t.Fatalf("newShell: %v", err)
	}
	t.Cleanup(func() { sh.Close() })
	return sh, &out
}

func TestSetGet(t *testing.T) {
	sh, out := newTestShell(t, nil)

	if err := sh.exec("set identity.long_name Front of house"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "changed") {
		t.Errorf("output = %q", out)
	}

	out.Reset()
	if err := sh.exec("get identity.long_name"); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "Front of house" {
		t.Errorf("get = %q", got)
	}
}

func TestCommandErrors(t *testing.T) {
	sh, _ := newTestShell(t, nil)

	for _, line := range []string{
		"frobnicate",
		"get",
		"get no.such",
		"set sacn.priority",
		"flag sacn.priority on",
		"tick zero",
		"save",
	} {
		if err := sh.exec(line); err == nil {
			t.Errorf("%q: expected error", line)
		}
	}

	for _, line := range []string{"", "   ", "# comment"} {
		if err := sh.exec(line); err != nil {
			t.Errorf("%q: %v", line, err)
		}
	}
}

func TestTickWalksThePipeline(t *testing.T) {
	sh, out := newTestShell(t, nil)
	if err := sh.exec("flush"); err != nil {
		t.Fatal(err)
	}

	if err := sh.exec("flag network.dhcp on"); err != nil {
		t.Fatal(err)
	}
	if sh.st.State() != store.StateChanged {
		t.Fatalf("state = %s", sh.st.State())
	}

	// The debounce interval has not elapsed yet.
	if err := sh.exec("tick 10"); err != nil {
		t.Fatal(err)
	}
	if sh.st.State() != store.StateChanged {
		t.Errorf("state after 10ms = %s", sh.st.State())
	}

	if err := sh.exec("tick 140"); err != nil {
		t.Fatal(err)
	}
	if sh.st.State() != store.StateChangedWaiting {
		t.Errorf("state after 150ms = %s", sh.st.State())
	}

	// Every later stage waits one debounce period except the write.
	out.Reset()
	if err := sh.exec("tick 500"); err != nil {
		t.Fatal(err)
	}
	if sh.st.State() != store.StateIdle {
		t.Errorf("state after 650ms = %s", sh.st.State())
	}
	if !strings.Contains(out.String(), "t=650ms") {
		t.Errorf("output = %q", out)
	}
}

func TestCommitStepsQuanta(t *testing.T) {
	sh, _ := newTestShell(t, nil)
	sh.exec("flush")
	sh.exec("set sacn.priority 90")

	if err := sh.exec("commit"); err != nil {
		t.Fatal(err)
	}
	if sh.st.State() != store.StateChangedWaiting {
		t.Errorf("state after one quantum = %s", sh.st.State())
	}
	if err := sh.exec("commit 100"); err != nil {
		t.Fatal(err)
	}
	if sh.st.State() != store.StateIdle {
		t.Errorf("state = %s", sh.st.State())
	}
}

func TestReportCommands(t *testing.T) {
	sh, out := newTestShell(t, nil)

	for cmd, want := range map[string]string{
		"status":      "durable",
		"history":     "idle",
		"layout":      "Record Placement",
		"list port0.": "port0.universe",
		"dump":        "network:",
		"help":        "flag <name> on|off",
	} {
		out.Reset()
		if err := sh.exec(cmd); err != nil {
			t.Fatalf("%s: %v", cmd, err)
		}
		if !strings.Contains(out.String(), want) {
			t.Errorf("%s output lacks %q:\n%s", cmd, want, out)
		}
	}
}

func TestScriptStopsAtExit(t *testing.T) {
	sh, out := newTestShell(t, nil)

	script := "set dmx.slots 128\nbogus\nexit\nset dmx.slots 64\n"
	failed := sh.runScript(strings.NewReader(script), true)
	if failed != 1 {
		t.Errorf("failed = %d", failed)
	}
	if !sh.quit {
		t.Error("exit not honoured")
	}
	if v, _ := sh.reg.Get("dmx.slots"); v != "128" {
		t.Errorf("dmx.slots = %s", v)
	}
	if !strings.Contains(out.String(), "> bogus") {
		t.Errorf("script not echoed:\n%s", out)
	}
}

func TestApplyAndPersistAcrossShells(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Flash.Size = 64 * 1024
	cfg.Image = filepath.Join(dir, "flash.img")

	doc := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(doc, []byte("rdm:\n  label: wash 3\n  start_address: 101\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	sh, err := newShell(cfg, &out)
	if err != nil {
		t.Fatal(err)
	}
	if err := sh.exec("apply " + doc); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out.String(), "2 changed") {
		t.Errorf("output = %q", out.String())
	}
	if err := sh.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, _ := newTestShell(t, cfg)
	if v, _ := again.reg.Get("rdm.start_address"); v != "101" {
		t.Errorf("start address after restart = %s", v)
	}
}

func TestSuggest(t *testing.T) {
	sh, _ := newTestShell(t, nil)

	texts := func(before string) []string {
		var out []string
		for _, s := range sh.suggest(before) {
			out = append(out, s.Text)
		}
		return out
	}

	if got := texts("fl"); len(got) != 2 || got[0] != "flag" || got[1] != "flush" {
		t.Errorf("command completion = %v", got)
	}
	if got := texts("get osc.in"); len(got) != 1 || got[0] != "osc.incoming_port" {
		t.Errorf("name completion = %v", got)
	}
	for _, name := range texts("flag port1.") {
		if info, _ := sh.reg.Lookup(name); info.Kind.String() != "flag" {
			t.Errorf("flag completion offered %s", name)
		}
	}
	if got := texts("set sacn.priority 1"); got != nil {
		t.Errorf("value completion = %v", got)
	}
	if got := texts("status "); got != nil {
		t.Errorf("status takes no names: %v", got)
	}
}
