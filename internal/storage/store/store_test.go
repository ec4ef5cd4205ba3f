package store

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/xtxerr/dmxnode/internal/errors"
	"github.com/xtxerr/dmxnode/internal/layout"
	"github.com/xtxerr/dmxnode/internal/logging"
	"github.com/xtxerr/dmxnode/internal/storage/backend"
	"github.com/xtxerr/dmxnode/internal/storage/eeprom"
	"github.com/xtxerr/dmxnode/internal/storage/flash"
	testutil "github.com/xtxerr/dmxnode/internal/testing"
	"github.com/xtxerr/dmxnode/internal/timer"
)

type harness struct {
	store *Store
	clock *testutil.ManualClock
	pool  *timer.Pool
}

func open(t *testing.T, b backend.Backend, opts Options) *harness {
	t.Helper()
	clock := testutil.NewManualClock(0)
	pool := timer.New(4, clock)

	s, err := Open(b, pool, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return &harness{store: s, clock: clock, pool: pool}
}

// runUntilIdle drives the store through its debounce timer only, one
// millisecond per loop iteration.
func (h *harness) runUntilIdle(t *testing.T, limit int) int {
	t.Helper()
	for i := 0; i < limit; i++ {
		if h.store.State() == StateIdle {
			return i
		}
		h.clock.Advance(1)
		h.pool.Run()
	}
	t.Fatalf("store not idle after %d iterations (state %s)", limit, h.store.State())
	return limit
}

func newFlash(t *testing.T, pageSize uint32) *flash.Backend {
	t.Helper()
	sim, err := flash.NewSim(flash.SimConfig{
		Family:    flash.FamilyDualBank,
		Size:      64 * 1024,
		PageSize:  pageSize,
		BusyPolls: 2,
	})
	if err != nil {
		t.Fatalf("NewSim: %v", err)
	}
	return flash.New(sim)
}

func resetRecordBytes(t *testing.T) []byte {
	t.Helper()
	var r layout.Record
	r.Reset()
	data, err := r.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestScenarioFreshBackendSelfHeals(t *testing.T) {
	fb := newFlash(t, 4096)
	h := open(t, fb, DefaultOptions())
	s := h.store

	if s.State() != StateChanged {
		t.Fatalf("state after boot = %s, want changed", s.State())
	}
	if s.TimerID() == timer.InvalidID || h.pool.Len() != 1 {
		t.Fatal("debounce timer not armed")
	}
	if rec := s.Record(); !rec.Valid() {
		t.Fatal("in-memory record not re-stamped")
	}
	if s.Stats().Resets != 1 {
		t.Errorf("resets = %d", s.Stats().Resets)
	}

	h.runUntilIdle(t, 100_000)

	if h.pool.Len() != 0 || s.TimerID() != timer.InvalidID {
		t.Error("debounce timer not deleted on return to idle")
	}

	buf := make([]byte, layout.Size)
	if done, res := fb.Read(s.Base(), uint32(layout.Size), buf); !done || res != backend.ResultOK {
		t.Fatalf("read back: done=%t res=%v", done, res)
	}
	if !bytes.Equal(buf, resetRecordBytes(t)) {
		t.Error("backend does not hold the fresh default record")
	}
	if s.Base() != fb.Size()-4096 {
		t.Errorf("base = %#x", s.Base())
	}
}

func TestScenarioSameValueIsNoop(t *testing.T) {
	rb := testutil.NewRecordingBackend(backend.NewRAM(8192, 4096))
	h := open(t, rb, DefaultOptions())
	s := h.store
	s.Flush()

	ip := [4]byte{192, 168, 1, 10}
	if !Update(s, layout.NetworkIP, ip) {
		t.Fatal("first update should change the record")
	}
	s.Flush()

	rb.Reset()
	mutations := s.Stats().Mutations

	for i := 0; i < 2; i++ {
		if Update(s, layout.NetworkIP, ip) {
			t.Errorf("update %d reported a change", i)
		}
		if s.State() != StateIdle {
			t.Fatalf("state = %s", s.State())
		}
	}

	if len(rb.Ops()) != 0 {
		t.Errorf("backend I/O on no-op updates: %+v", rb.Ops())
	}
	if h.pool.Len() != 0 {
		t.Error("timer armed by no-op update")
	}
	if s.Stats().Mutations != mutations {
		t.Error("no-op update counted as mutation")
	}
}

func TestScenarioBurstCoalesces(t *testing.T) {
	rb := testutil.NewRecordingBackend(backend.NewRAM(8192, 4096))
	h := open(t, rb, DefaultOptions())
	s := h.store
	s.Flush()
	rb.Reset()
	cycles := s.Stats().Cycles

	Update(s, layout.SACNPriority, uint8(150))
	h.clock.Advance(40)
	h.pool.Run()
	Update(s, layout.Port(1).Universe, uint16(77))

	h.runUntilIdle(t, 10_000)

	if got := rb.Completed(testutil.OpErase); got != 1 {
		t.Errorf("erases = %d, want 1", got)
	}
	if got := rb.Completed(testutil.OpWrite); got != 1 {
		t.Errorf("writes = %d, want 1", got)
	}
	if got := s.Stats().Cycles - cycles; got != 1 {
		t.Errorf("cycles = %d, want 1", got)
	}

	buf := make([]byte, layout.Size)
	rb.Read(s.Base(), uint32(layout.Size), buf)
	var stored layout.Record
	if err := stored.UnmarshalBinary(buf); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stored.SACN.Priority != 150 || stored.Ports[1].Universe != 77 {
		t.Errorf("stored priority=%d universe=%d", stored.SACN.Priority, stored.Ports[1].Universe)
	}
}

func TestCommitWhileIdle(t *testing.T) {
	h := open(t, backend.NewRAM(4096, 4096), DefaultOptions())
	h.store.Flush()

	if h.store.Commit() {
		t.Error("Commit while idle returned true")
	}
	if h.store.State() != StateIdle {
		t.Errorf("state = %s", h.store.State())
	}
}

func TestRoundTripAcrossReopen(t *testing.T) {
	ram := backend.NewRAM(16*1024, 4096)

	h := open(t, ram, DefaultOptions())
	s := h.store
	UpdateString(s, layout.NetworkHostname, "stage-left")
	Update(s, layout.RdmStartAddress, uint16(101))
	s.SetFlag(layout.NetworkDhcp)
	s.Flush()
	want := s.Record()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	h2 := open(t, ram, DefaultOptions())
	if h2.store.State() != StateIdle {
		t.Fatalf("reopened state = %s", h2.store.State())
	}
	if h2.store.Record() != want {
		t.Error("record differs after reopen")
	}
	if GetString(h2.store, layout.NetworkHostname) != "stage-left" {
		t.Errorf("hostname = %q", GetString(h2.store, layout.NetworkHostname))
	}
	if !bytes.Equal(h2.store.Persisted(), marshal(t, want)) {
		t.Error("persisted bytes differ from record")
	}
}

func marshal(t *testing.T, r layout.Record) []byte {
	t.Helper()
	data, err := r.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestInvalidHeaderIsZeroed(t *testing.T) {
	ram := backend.NewRAM(4096, 4096)

	var bogus layout.Record
	bogus.Reset()
	bogus.Header.Version = layout.Version + 7
	bogus.Network.IPAddress = [4]byte{10, 1, 1, 1}
	data, _ := bogus.MarshalBinary()
	ram.Write(0, uint32(len(data)), data)

	h := open(t, ram, DefaultOptions())
	rec := h.store.Record()
	if !rec.Valid() {
		t.Fatal("record not re-stamped")
	}
	var want layout.Record
	want.Reset()
	if rec != want {
		t.Error("record not fully zeroed")
	}
	if h.store.State() != StateChanged {
		t.Errorf("state = %s", h.store.State())
	}
}

func TestMutationDuringWriteIsRequeued(t *testing.T) {
	h := open(t, newFlash(t, 4096), DefaultOptions())
	s := h.store
	s.Flush()

	Update(s, layout.DmxSlots, uint16(128))
	for s.State() != StateWriting {
		s.Commit()
	}
	if iv, ok := h.pool.Interval(s.TimerID()); !ok || iv != 0 {
		t.Errorf("timer interval while writing = %d, %t", iv, ok)
	}
	s.Commit()

	Update(s, layout.DmxRefreshRate, uint16(30))
	if s.State() != StateWriting {
		t.Fatalf("mutation disturbed the write: state %s", s.State())
	}

	for s.State() == StateWriting {
		s.Commit()
	}
	if s.State() != StateChanged {
		t.Fatalf("state after write = %s, want changed", s.State())
	}
	if iv, _ := h.pool.Interval(s.TimerID()); iv != DefaultOptions().DebounceMs {
		t.Errorf("timer interval not restored: %d", iv)
	}

	s.Flush()
	st := s.Stats()
	if st.Requeued != 1 {
		t.Errorf("requeued = %d", st.Requeued)
	}
	rec := s.Record()
	if !bytes.Equal(s.Persisted(), marshal(t, rec)) {
		t.Error("second cycle did not persist the late mutation")
	}
}

func TestErrorResultIsRetried(t *testing.T) {
	rb := testutil.NewRecordingBackend(backend.NewRAM(4096, 4096))
	h := open(t, rb, DefaultOptions())
	rb.FailNext(testutil.OpErase, 1)
	rb.FailNext(testutil.OpWrite, 2)

	h.store.Flush()

	if h.store.State() != StateIdle {
		t.Fatalf("state = %s", h.store.State())
	}
	if got := h.store.Stats().IOErrors; got != 3 {
		t.Errorf("io errors = %d, want 3", got)
	}
	if rb.Completed(testutil.OpWrite) != 1 {
		t.Errorf("completed writes = %d", rb.Completed(testutil.OpWrite))
	}
}

func TestErrorResultPanicsInDebug(t *testing.T) {
	rb := testutil.NewRecordingBackend(backend.NewRAM(4096, 4096))
	opts := DefaultOptions()
	opts.Debug = true
	h := open(t, rb, opts)
	rb.FailNext(testutil.OpErase, 1)

	defer func() {
		if recover() == nil {
			t.Error("expected panic in debug mode")
		}
	}()
	h.store.Flush()
}

func TestSingleInstance(t *testing.T) {
	h := open(t, backend.NewRAM(4096, 4096), DefaultOptions())

	if Default() != h.store {
		t.Fatal("Default does not return the open store")
	}
	if _, err := Open(backend.NewRAM(4096, 4096), h.pool, DefaultOptions()); !errors.Is(err, errors.ErrAlreadyOpen) {
		t.Fatalf("second Open: %v", err)
	}

	if err := h.store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if Default() != nil {
		t.Error("Default after Close should be nil")
	}
	if err := h.store.Close(); !errors.Is(err, errors.ErrNotOpen) {
		t.Errorf("second Close: %v", err)
	}
}

func TestNoBackendIsVolatile(t *testing.T) {
	h := open(t, nil, DefaultOptions())
	s := h.store

	if s.Durable() {
		t.Error("store without backend reported durable")
	}
	Update(s, layout.ArtNetNet, uint8(3))
	s.Flush()
	if s.State() != StateIdle || Get(s, layout.ArtNetNet) != 3 {
		t.Error("volatile store lost the in-memory value")
	}
}

func TestRecordSpansSmallSectors(t *testing.T) {
	fb := newFlash(t, 256)
	h := open(t, fb, DefaultOptions())

	sectors := (uint32(layout.Size) + 255) / 256
	if got := h.store.Base(); got != fb.Size()-sectors*256 {
		t.Errorf("base = %#x, want %#x", got, fb.Size()-sectors*256)
	}
	h.store.Flush()
	if h.store.State() != StateIdle {
		t.Errorf("state = %s", h.store.State())
	}
}

func TestArrayAndStringUpdates(t *testing.T) {
	h := open(t, backend.NewRAM(4096, 4096), DefaultOptions())
	s := h.store
	s.Flush()

	long := make([]uint16, 20)
	for i := range long {
		long[i] = uint16(i + 1)
	}
	if !UpdateArray(s, layout.PixelStartUniverses, long) {
		t.Fatal("array update reported no change")
	}
	got := GetArray(s, layout.PixelStartUniverses)
	if len(got) != 8 || got[7] != 8 {
		t.Errorf("clamped array = %v", got)
	}

	if !UpdateArray(s, layout.PixelStartUniverses, []uint16{9}) {
		t.Fatal("shorter array reported no change")
	}
	got = GetArray(s, layout.PixelStartUniverses)
	if got[0] != 9 || got[1] != 0 || got[7] != 0 {
		t.Errorf("remainder not zero-filled: %v", got)
	}
	if UpdateArray(s, layout.PixelStartUniverses, []uint16{9, 0, 0}) {
		t.Error("equivalent array reported a change")
	}

	UpdateString(s, layout.RdmDeviceLabel, "a very long device label that overflows the field")
	if got := GetString(s, layout.RdmDeviceLabel); len(got) != 32 {
		t.Errorf("label length = %d", len(got))
	}
	UpdateString(s, layout.RdmDeviceLabel, "dimmer")
	if got := GetString(s, layout.RdmDeviceLabel); got != "dimmer" {
		t.Errorf("label = %q", got)
	}
}

func TestFlagsAndSubRecords(t *testing.T) {
	h := open(t, backend.NewRAM(4096, 4096), DefaultOptions())
	s := h.store
	s.Flush()

	if !s.SetFlag(layout.PortFlag(2).Output) || s.SetFlag(layout.PortFlag(2).Output) {
		t.Error("SetFlag must change exactly once")
	}
	if !s.IsFlagSet(layout.PortFlag(2).Output) || s.IsFlagSet(layout.PortFlag(1).Output) {
		t.Error("flag landed on the wrong port")
	}
	if !s.ClearFlag(layout.PortFlag(2).Output) || s.ClearFlag(layout.PortFlag(2).Output) {
		t.Error("ClearFlag must change exactly once")
	}
	s.Flush()

	osc := Copy(s, layout.OscRecord)
	osc.IncomingPort = 7000
	if !UpdateRecord(s, layout.OscRecord, osc) {
		t.Error("sub-record update reported no change")
	}
	if UpdateRecord(s, layout.OscRecord, osc) {
		t.Error("identical sub-record reported a change")
	}
	if ValueOrDefault(s, layout.OscOutgoingPort) != 9000 {
		t.Errorf("outgoing port default = %d", ValueOrDefault(s, layout.OscOutgoingPort))
	}
	if Get(s, layout.OscIncomingPort) != 7000 {
		t.Error("sub-record update not visible through field")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateIdle, "idle"},
		{StateChangedWaiting, "changed_waiting"},
		{StateErasedWaiting, "erased_waiting"},
		{StateWriting, "writing"},
		{State(99), "State(99)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
	if StateChanged.Busy() || !StateErasing.Busy() {
		t.Error("Busy misclassifies states")
	}
}

func TestStatsCycleDuration(t *testing.T) {
	h := open(t, backend.NewRAM(4096, 4096), DefaultOptions())
	h.runUntilIdle(t, 10_000)

	st := h.store.Stats()
	if st.Cycles != 1 || st.CycleMs.Count != 1 {
		t.Fatalf("cycles = %d, samples = %d", st.Cycles, st.CycleMs.Count)
	}
	if st.CycleMs.Max <= 0 {
		t.Errorf("cycle duration = %f", st.CycleMs.Max)
	}
	if st.EraseQuanta == 0 || st.WriteQuanta == 0 {
		t.Errorf("quanta not counted: %+v", st)
	}
}

func TestHistoryRecordsCycle(t *testing.T) {
	h := open(t, backend.NewRAM(4096, 4096), DefaultOptions())
	h.runUntilIdle(t, 10_000)

	want := []State{
		StateIdle, StateChanged, StateChangedWaiting, StateErasing,
		StateErasedWaiting, StateErased, StateWriting, StateIdle,
	}
	got := h.store.History()
	if len(got) != len(want)-1 {
		t.Fatalf("history = %+v", got)
	}
	for i, tr := range got {
		if tr.From != want[i] || tr.To != want[i+1] {
			t.Errorf("transition %d: %s -> %s, want %s -> %s", i, tr.From, tr.To, want[i], want[i+1])
		}
	}
	if got[0].AtMs != 0 {
		t.Errorf("boot reset stamped at %dms", got[0].AtMs)
	}
	if got[len(got)-1].AtMs <= got[1].AtMs {
		t.Errorf("timestamps do not advance: %+v", got)
	}
}

func TestSnapshotStepIssuesErase(t *testing.T) {
	rb := testutil.NewRecordingBackend(backend.NewRAM(8192, 4096))
	h := open(t, rb, DefaultOptions())
	s := h.store
	s.Flush()

	Update(s, layout.DmxSlots, uint16(256))
	rb.Reset()

	s.Commit()
	if s.State() != StateChangedWaiting || rb.Count(testutil.OpErase) != 0 {
		t.Fatalf("state %s, erases %d", s.State(), rb.Count(testutil.OpErase))
	}

	// The step that takes the snapshot also issues the erase.
	s.Commit()
	if rb.Count(testutil.OpErase) != 1 {
		t.Errorf("erase calls = %d, want 1", rb.Count(testutil.OpErase))
	}
	if s.State() != StateErasedWaiting {
		t.Errorf("state = %s, want erased_waiting", s.State())
	}

	s.Commit()
	if s.State() != StateErased || rb.Count(testutil.OpWrite) != 0 {
		t.Fatalf("state %s, writes %d", s.State(), rb.Count(testutil.OpWrite))
	}

	// Likewise the step that collapses the timer issues the write.
	if s.Commit() {
		t.Error("immediate write should finish the cycle")
	}
	if rb.Count(testutil.OpWrite) != 1 || s.State() != StateIdle {
		t.Errorf("state %s, writes %d", s.State(), rb.Count(testutil.OpWrite))
	}
}

func TestEEPROMRecordAtTop(t *testing.T) {
	const size = 8192
	sim := eeprom.NewSim(0x50, size, 32, 2)
	eb := eeprom.New(sim, eeprom.Config{Addr: 0x50, Size: size, PageSize: 32})
	if eb.SectorSize() != 1 {
		t.Fatalf("sector size = %d", eb.SectorSize())
	}

	h := open(t, eb, DefaultOptions())
	s := h.store

	if want := uint32(size - layout.Size); s.Base() != want {
		t.Errorf("base = %#x, want %#x", s.Base(), want)
	}

	Update(s, layout.RdmStartAddress, uint16(33))
	s.Flush()

	buf := make([]byte, layout.Size)
	if done, res := eb.Read(s.Base(), uint32(layout.Size), buf); !done || res != backend.ResultOK {
		t.Fatalf("read back: done=%t res=%v", done, res)
	}
	if !bytes.Equal(buf, s.Persisted()) {
		t.Error("device does not hold the persisted record at the top")
	}
}

// rejectingBackend reports ResultOutOfRange for the first erase calls.
type rejectingBackend struct {
	backend.Backend
	rejects int
}

func (b *rejectingBackend) Erase(offset, length uint32) (bool, backend.Result) {
	if b.rejects > 0 {
		b.rejects--
		return true, backend.ResultOutOfRange
	}
	return b.Backend.Erase(offset, length)
}

func TestFaultSeverity(t *testing.T) {
	var buf bytes.Buffer
	logging.InitWriter(&buf, slog.LevelWarn, false)
	t.Cleanup(func() { logging.Init(slog.LevelInfo, false) })

	t.Run("retriable", func(t *testing.T) {
		buf.Reset()
		rb := testutil.NewRecordingBackend(backend.NewRAM(4096, 4096))
		h := open(t, rb, DefaultOptions())
		rb.FailNext(testutil.OpWrite, 1)
		h.store.Flush()

		if h.store.State() != StateIdle {
			t.Fatalf("state = %s", h.store.State())
		}
		if !strings.Contains(buf.String(), "level=WARN") || strings.Contains(buf.String(), "level=ERROR") {
			t.Errorf("log:\n%s", buf.String())
		}
	})

	t.Run("rejected", func(t *testing.T) {
		buf.Reset()
		rb := &rejectingBackend{Backend: backend.NewRAM(4096, 4096), rejects: 2}
		h := open(t, rb, DefaultOptions())
		h.store.Flush()

		if h.store.State() != StateIdle {
			t.Fatalf("state = %s", h.store.State())
		}
		if got := h.store.Stats().IOErrors; got != 2 {
			t.Errorf("io errors = %d", got)
		}
		if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "device_error=true") {
			t.Errorf("log:\n%s", buf.String())
		}
	})
}
