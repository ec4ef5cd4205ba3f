package flash

import (
	"bytes"
	"testing"

	"github.com/xtxerr/dmxnode/internal/errors"
	"github.com/xtxerr/dmxnode/internal/storage/backend"
)

func newSim(t *testing.T, family Family) *Sim {
	t.Helper()
	sim, err := NewSim(SimConfig{
		Family:    family,
		Size:      16 * 1024,
		PageSize:  1024,
		BusyPolls: 2,
	})
	if err != nil {
		t.Fatalf("NewSim: %v", err)
	}
	return sim
}

// drive polls op until it reports done and returns the number of calls.
func drive(t *testing.T, op func() (bool, backend.Result)) (int, backend.Result) {
	t.Helper()
	for calls := 1; calls <= 1_000_000; calls++ {
		done, res := op()
		if done {
			return calls, res
		}
	}
	t.Fatal("operation never completed")
	return 0, backend.ResultError
}

func TestZeroLengthErase(t *testing.T) {
	sim := newSim(t, FamilySingleBank)
	b := New(sim)

	done, _ := b.Erase(0, 0)
	if done {
		t.Fatal("first call should only arm the machine")
	}
	if b.State() != StateEraseBusy {
		t.Fatalf("state = %s", b.State())
	}

	done, res := b.Erase(0, 0)
	if !done || res != backend.ResultOK {
		t.Fatalf("second call: done=%t res=%v", done, res)
	}
	if sim.Stats().PageErases != 0 {
		t.Errorf("zero-length erase erased %d pages", sim.Stats().PageErases)
	}
	if b.State() != StateIdle {
		t.Errorf("state = %s", b.State())
	}
}

func TestEraseWriteRead(t *testing.T) {
	sim := newSim(t, FamilySingleBank)
	b := New(sim)

	// Dirty the target first so the erase is observable.
	sim.Unlock(0)
	sim.ProgramWord(4096, 0)
	sim.Lock(0)
	for sim.IsBusy(0) {
	}

	if _, res := drive(t, func() (bool, backend.Result) { return b.Erase(4096, 2048) }); res != backend.ResultOK {
		t.Fatalf("erase: %v", res)
	}
	if got := sim.Stats().PageErases; got != 2 {
		t.Errorf("page erases = %d, want 2", got)
	}

	data := []byte("persistent settings!!") // 21 bytes, short final word
	calls, res := drive(t, func() (bool, backend.Result) { return b.Write(4096, uint32(len(data)), data) })
	if res != backend.ResultOK {
		t.Fatalf("write: %v", res)
	}
	words := (len(data) + WordSize - 1) / WordSize
	if calls < words {
		t.Errorf("write finished in %d calls, want >= %d", calls, words)
	}
	if got := sim.Stats().WordPrograms; got != words+1 {
		t.Errorf("word programs = %d, want %d", got, words+1)
	}

	buf := make([]byte, 24)
	if done, res := b.Read(4096, 24, buf); !done || res != backend.ResultOK {
		t.Fatalf("read: done=%t res=%v", done, res)
	}
	if !bytes.Equal(buf[:len(data)], data) {
		t.Errorf("read back %q", buf[:len(data)])
	}
	for i := len(data); i < 24; i++ {
		if buf[i] != 0xFF {
			t.Errorf("padding byte %d = %#x", i, buf[i])
		}
	}

	if !sim.Locked(0) {
		t.Error("bank left unlocked")
	}
	if sim.Stats().LockViolations != 0 {
		t.Errorf("lock violations = %d", sim.Stats().LockViolations)
	}
}

func TestDualBankSpan(t *testing.T) {
	sim := newSim(t, FamilyDualBank)
	b := New(sim)

	half := sim.Size() / 2
	start := half - 1024

	if sim.Bank(start) == sim.Bank(half) {
		t.Fatal("test range does not cross banks")
	}

	if _, res := drive(t, func() (bool, backend.Result) { return b.Erase(start, 2048) }); res != backend.ResultOK {
		t.Fatalf("erase: %v", res)
	}

	data := bytes.Repeat([]byte{0xA5, 0x5A, 0x00, 0x11}, 512)
	if _, res := drive(t, func() (bool, backend.Result) { return b.Write(start, 2048, data) }); res != backend.ResultOK {
		t.Fatalf("write: %v", res)
	}

	img := sim.Image()
	if !bytes.Equal(img[start:start+2048], data) {
		t.Error("data differs across the bank boundary")
	}
	if !sim.Locked(start) || !sim.Locked(half) {
		t.Error("both banks should be locked after the write")
	}
	if sim.Stats().LockViolations != 0 {
		t.Errorf("lock violations = %d", sim.Stats().LockViolations)
	}
}

func TestEraseFaultThenRetry(t *testing.T) {
	sim := newSim(t, FamilySingleBank)
	b := New(sim)
	sim.InjectEraseFaults(1)

	_, res := drive(t, func() (bool, backend.Result) { return b.Erase(0, 1024) })
	if res != backend.ResultError {
		t.Fatalf("expected error result, got %v", res)
	}
	if b.State() != StateError {
		t.Errorf("state = %s", b.State())
	}
	if !errors.Is(b.LastError(), errors.ErrIoFailure) {
		t.Errorf("last error = %v", b.LastError())
	}
	if !sim.Locked(0) {
		t.Error("bank left unlocked after fault")
	}

	if _, res := drive(t, func() (bool, backend.Result) { return b.Erase(0, 1024) }); res != backend.ResultOK {
		t.Fatalf("retry: %v", res)
	}
	if b.State() != StateIdle {
		t.Errorf("state = %s", b.State())
	}
}

func TestOutOfRangeAndAlignment(t *testing.T) {
	sim := newSim(t, FamilySingleBank)
	b := New(sim)

	if done, res := b.Erase(sim.Size()-1024, 4096); !done || res != backend.ResultOutOfRange {
		t.Errorf("erase past end: done=%t res=%v", done, res)
	}
	if done, res := b.Erase(100, 1024); !done || res != backend.ResultError {
		t.Errorf("unaligned erase: done=%t res=%v", done, res)
	}
	if done, res := b.Write(2, 4, []byte{1, 2, 3, 4}); !done || res != backend.ResultError {
		t.Errorf("unaligned write: done=%t res=%v", done, res)
	}
	if done, res := b.Write(0, 8, []byte{1}); !done || res != backend.ResultOutOfRange {
		t.Errorf("short buffer: done=%t res=%v", done, res)
	}
	if b.State() != StateIdle {
		t.Errorf("state = %s", b.State())
	}
}

func TestNORProgramOnlyClearsBits(t *testing.T) {
	sim := newSim(t, FamilySingleBank)
	sim.Unlock(0)
	defer sim.Lock(0)

	if err := sim.ProgramWord(0, 0xF0F0F0F0); err != nil {
		t.Fatalf("program: %v", err)
	}
	for sim.IsBusy(0) {
	}
	if err := sim.ProgramWord(0, 0x0F0FFFFF); err != nil {
		t.Fatalf("program: %v", err)
	}

	buf := make([]byte, 4)
	sim.Read(0, buf)
	if !bytes.Equal(buf, []byte{0xF0, 0xF0, 0x00, 0x00}) {
		t.Errorf("word = % x", buf)
	}
	if sim.Stats().NotErasedWrites == 0 {
		t.Error("overwrite of programmed bits not counted")
	}
}

func TestLockedBankRejectsErase(t *testing.T) {
	sim := newSim(t, FamilySingleBank)
	if err := sim.ErasePage(0); !errors.Is(err, errors.ErrBankLocked) {
		t.Errorf("expected ErrBankLocked, got %v", err)
	}
	if sim.Stats().LockViolations != 1 {
		t.Errorf("lock violations = %d", sim.Stats().LockViolations)
	}
}

func TestImageRoundTrip(t *testing.T) {
	sim := newSim(t, FamilySingleBank)
	b := New(sim)
	drive(t, func() (bool, backend.Result) { return b.Erase(0, 1024) })
	drive(t, func() (bool, backend.Result) { return b.Write(0, 4, []byte{1, 2, 3, 4}) })

	var buf bytes.Buffer
	if err := sim.SaveImage(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}

	other := newSim(t, FamilySingleBank)
	if err := other.LoadImage(&buf); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(other.Image(), sim.Image()) {
		t.Error("loaded image differs")
	}

	if err := other.LoadImage(bytes.NewReader(make([]byte, 32*1024))); !errors.Is(err, errors.ErrOutOfRange) {
		t.Errorf("oversized image: %v", err)
	}
}

func TestImageFile(t *testing.T) {
	path := t.TempDir() + "/node/flash.img"

	sim := newSim(t, FamilySingleBank)
	if err := sim.LoadImageFile(path); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	sim.Unlock(0)
	sim.ProgramWord(8, 0x12345678)
	sim.Lock(0)
	if err := sim.SaveImageFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	other := newSim(t, FamilySingleBank)
	if err := other.LoadImageFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(other.Image(), sim.Image()) {
		t.Error("file round trip differs")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateIdle, "idle"},
		{StateEraseBusy, "erase_busy"},
		{StateWriteProgram, "write_program"},
		{StateError, "error"},
		{State(42), "State(42)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d: got %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestNewSimValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  SimConfig
	}{
		{"zero page", SimConfig{Size: 4096}},
		{"odd page", SimConfig{Size: 4096, PageSize: 6}},
		{"size not page multiple", SimConfig{Size: 5000, PageSize: 1024}},
		{"dual halves unaligned", SimConfig{Family: FamilyDualBank, Size: 3072, PageSize: 1024}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSim(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
