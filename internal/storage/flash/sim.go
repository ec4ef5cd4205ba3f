package flash

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/xtxerr/dmxnode/internal/constants"
	"github.com/xtxerr/dmxnode/internal/errors"
)

// =============================================================================
// Controller families
// =============================================================================

// Family selects the bank layout of a simulated controller.
type Family int

const (
	// FamilySingleBank has one lock and one busy flag for the whole array.
	FamilySingleBank Family = iota

	// FamilyDualBank splits the array in two halves with independent lock
	// and busy registers.
	FamilyDualBank
)

func (f Family) String() string {
	switch f {
	case FamilySingleBank:
		return "single"
	case FamilyDualBank:
		return "dual"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// ParseFamily converts a configuration string into a Family.
func ParseFamily(s string) (Family, error) {
	switch s {
	case constants.FlashFamilySingle, "":
		return FamilySingleBank, nil
	case constants.FlashFamilyDual:
		return FamilyDualBank, nil
	default:
		return 0, errors.NewInvalidValue("flash.family", s, "expected single or dual")
	}
}

// SimConfig describes a simulated controller.
type SimConfig struct {
	Family   Family
	Size     uint32
	PageSize uint32

	// BusyPolls is the number of IsBusy calls that report true after each
	// erase or program.
	BusyPolls int
}

// SimStats counts controller activity.
type SimStats struct {
	PageErases      int
	WordPrograms    int
	LockViolations  int
	NotErasedWrites int
	InjectedFaults  int
}

// =============================================================================
// Sim
// =============================================================================

// Sim is an in-memory flash controller with NOR semantics: erase sets a
// page to 0xFF, programming can only clear bits.
type Sim struct {
	mu sync.Mutex

	cfg      SimConfig
	mem      []byte
	locked   []bool
	busy     []int
	detected bool

	eraseFaults   int
	programFaults int

	stats SimStats
}

var _ Hardware = (*Sim)(nil)

// NewSim creates an erased, locked controller.
func NewSim(cfg SimConfig) (*Sim, error) {
	if cfg.PageSize == 0 || cfg.PageSize%WordSize != 0 {
		return nil, errors.NewInvalidValue("flash.page_size", cfg.PageSize, "must be a non-zero multiple of 4")
	}
	if cfg.Size == 0 || cfg.Size%cfg.PageSize != 0 {
		return nil, errors.NewInvalidValue("flash.size", cfg.Size, "must be a non-zero multiple of the page size")
	}

	banks := 1
	if cfg.Family == FamilyDualBank {
		if (cfg.Size/2)%cfg.PageSize != 0 {
			return nil, errors.NewInvalidValue("flash.size", cfg.Size, "dual-bank halves must be page aligned")
		}
		banks = 2
	}

	s := &Sim{
		cfg:      cfg,
		mem:      make([]byte, cfg.Size),
		locked:   make([]bool, banks),
		busy:     make([]int, banks),
		detected: true,
	}
	for i := range s.mem {
		s.mem[i] = 0xFF
	}
	for i := range s.locked {
		s.locked[i] = true
	}
	return s, nil
}

func (s *Sim) Detected() bool   { return s.detected }
func (s *Sim) Size() uint32     { return s.cfg.Size }
func (s *Sim) PageSize() uint32 { return s.cfg.PageSize }

// SetDetected simulates an absent or unresponsive controller.
func (s *Sim) SetDetected(v bool) {
	s.detected = v
}

// Bank returns 0 for single-bank parts; dual-bank parts split the array in
// two halves.
func (s *Sim) Bank(addr uint32) int {
	if s.cfg.Family == FamilyDualBank && addr >= s.cfg.Size/2 {
		return 1
	}
	return 0
}

func (s *Sim) Unlock(addr uint32) {
	s.mu.Lock()
	s.locked[s.Bank(addr)] = false
	s.mu.Unlock()
}

func (s *Sim) Lock(addr uint32) {
	s.mu.Lock()
	s.locked[s.Bank(addr)] = true
	s.mu.Unlock()
}

// Locked reports whether the bank holding addr is locked.
func (s *Sim) Locked(addr uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked[s.Bank(addr)]
}

func (s *Sim) IsBusy(addr uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	bank := s.Bank(addr)
	if s.busy[bank] > 0 {
		s.busy[bank]--
		return true
	}
	return false
}

func (s *Sim) ErasePage(addr uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(addr); err != nil {
		return err
	}
	if s.eraseFaults > 0 {
		s.eraseFaults--
		s.stats.InjectedFaults++
		return errors.Wrapf(errors.ErrIoFailure, "injected erase fault at %#x", addr)
	}

	base := addr - addr%s.cfg.PageSize
	page := s.mem[base : base+s.cfg.PageSize]
	for i := range page {
		page[i] = 0xFF
	}

	s.busy[s.Bank(addr)] = s.cfg.BusyPolls
	s.stats.PageErases++
	return nil
}

func (s *Sim) ProgramWord(addr uint32, word uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr%WordSize != 0 || addr+WordSize > s.cfg.Size {
		return errors.Wrapf(errors.ErrOutOfRange, "program word at %#x", addr)
	}
	if err := s.check(addr); err != nil {
		return err
	}
	if s.programFaults > 0 {
		s.programFaults--
		s.stats.InjectedFaults++
		return errors.Wrapf(errors.ErrIoFailure, "injected program fault at %#x", addr)
	}

	for i := uint32(0); i < WordSize; i++ {
		b := byte(word >> (8 * i))
		old := s.mem[addr+i]
		if old&b != b {
			s.stats.NotErasedWrites++
		}
		s.mem[addr+i] = old & b
	}

	s.busy[s.Bank(addr)] = s.cfg.BusyPolls
	s.stats.WordPrograms++
	return nil
}

func (s *Sim) Read(addr uint32, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := uint64(addr) + uint64(len(buf))
	if end > uint64(s.cfg.Size) {
		return errors.Wrapf(errors.ErrOutOfRange, "read %d bytes at %#x", len(buf), addr)
	}
	copy(buf, s.mem[addr:end])
	return nil
}

// InjectEraseFaults makes the next n page erases fail.
func (s *Sim) InjectEraseFaults(n int) {
	s.mu.Lock()
	s.eraseFaults = n
	s.mu.Unlock()
}

// InjectProgramFaults makes the next n word programs fail.
func (s *Sim) InjectProgramFaults(n int) {
	s.mu.Lock()
	s.programFaults = n
	s.mu.Unlock()
}

// Stats returns a snapshot of the activity counters.
func (s *Sim) Stats() SimStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// check requires the target bank to be unlocked and idle.
func (s *Sim) check(addr uint32) error {
	if addr >= s.cfg.Size {
		return errors.Wrapf(errors.ErrOutOfRange, "address %#x", addr)
	}
	bank := s.Bank(addr)
	if s.locked[bank] {
		s.stats.LockViolations++
		return errors.Wrapf(errors.ErrBankLocked, "bank %d at %#x", bank, addr)
	}
	if s.busy[bank] > 0 {
		return errors.Wrapf(errors.ErrBusy, "bank %d at %#x", bank, addr)
	}
	return nil
}

// =============================================================================
// Image persistence
// =============================================================================

// Image returns a copy of the flash array.
func (s *Sim) Image() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.mem))
	copy(out, s.mem)
	return out
}

// LoadImage replaces the array content. A short image leaves the tail
// erased; a long one is rejected.
func (s *Sim) LoadImage(r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, int64(s.cfg.Size)+1))
	if err != nil {
		return errors.Wrap(err, "read flash image")
	}
	if len(data) > int(s.cfg.Size) {
		return errors.Wrapf(errors.ErrOutOfRange, "flash image larger than %d bytes", s.cfg.Size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	copy(s.mem, data)
	for i := len(data); i < len(s.mem); i++ {
		s.mem[i] = 0xFF
	}
	return nil
}

// SaveImage writes the array content to w.
func (s *Sim) SaveImage(w io.Writer) error {
	_, err := w.Write(s.Image())
	return errors.Wrap(err, "write flash image")
}

// LoadImageFile loads an image from path. A missing file leaves the
// array erased.
func (s *Sim) LoadImageFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "open flash image")
	}
	defer f.Close()
	return s.LoadImage(f)
}

// SaveImageFile writes the image to path through a temporary file and a
// rename.
func (s *Sim) SaveImageFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create image directory")
	}

	tmp, err := os.CreateTemp(dir, ".flash-*.img")
	if err != nil {
		return errors.Wrap(err, "create temp image")
	}
	defer os.Remove(tmp.Name())

	if err := s.SaveImage(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp image")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "rename flash image")
}
