package testing

import (
	"fmt"
	"sync"

	"github.com/xtxerr/dmxnode/internal/storage/backend"
)

// OpKind names a backend operation.
type OpKind int

const (
	OpRead OpKind = iota
	OpErase
	OpWrite
)

func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "read"
	case OpErase:
		return "erase"
	case OpWrite:
		return "write"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is one recorded backend call.
type Op struct {
	Kind   OpKind
	Offset uint32
	Length uint32
	Done   bool
	Result backend.Result
}

// RecordingBackend wraps a backend, records every call and can inject
// error results.
type RecordingBackend struct {
	mu     sync.Mutex
	inner  backend.Backend
	ops    []Op
	faults map[OpKind]int
}

var _ backend.Backend = (*RecordingBackend)(nil)

// NewRecordingBackend wraps inner.
func NewRecordingBackend(inner backend.Backend) *RecordingBackend {
	return &RecordingBackend{
		inner:  inner,
		faults: make(map[OpKind]int),
	}
}

func (r *RecordingBackend) IsDetected() bool   { return r.inner.IsDetected() }
func (r *RecordingBackend) Size() uint32       { return r.inner.Size() }
func (r *RecordingBackend) SectorSize() uint32 { return r.inner.SectorSize() }

func (r *RecordingBackend) Read(offset, length uint32, buf []byte) (bool, backend.Result) {
	return r.do(OpRead, offset, length, func() (bool, backend.Result) {
		return r.inner.Read(offset, length, buf)
	})
}

func (r *RecordingBackend) Erase(offset, length uint32) (bool, backend.Result) {
	return r.do(OpErase, offset, length, func() (bool, backend.Result) {
		return r.inner.Erase(offset, length)
	})
}

func (r *RecordingBackend) Write(offset, length uint32, buf []byte) (bool, backend.Result) {
	return r.do(OpWrite, offset, length, func() (bool, backend.Result) {
		return r.inner.Write(offset, length, buf)
	})
}

// FailNext makes the next n calls of kind report (true, ResultError)
// without reaching the wrapped backend.
func (r *RecordingBackend) FailNext(kind OpKind, n int) {
	r.mu.Lock()
	r.faults[kind] = n
	r.mu.Unlock()
}

// Ops returns a copy of the recorded calls.
func (r *RecordingBackend) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Count returns the number of recorded calls of kind.
func (r *RecordingBackend) Count(kind OpKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, op := range r.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Completed returns the number of calls of kind that reported done with
// ResultOK.
func (r *RecordingBackend) Completed(kind OpKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, op := range r.ops {
		if op.Kind == kind && op.Done && op.Result == backend.ResultOK {
			n++
		}
	}
	return n
}

// Reset forgets the recorded calls.
func (r *RecordingBackend) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}

func (r *RecordingBackend) do(kind OpKind, offset, length uint32, call func() (bool, backend.Result)) (bool, backend.Result) {
	r.mu.Lock()
	injected := r.faults[kind] > 0
	if injected {
		r.faults[kind]--
	}
	r.mu.Unlock()

	done, res := true, backend.ResultError
	if !injected {
		done, res = call()
	}

	r.mu.Lock()
	r.ops = append(r.ops, Op{Kind: kind, Offset: offset, Length: length, Done: done, Result: res})
	r.mu.Unlock()
	return done, res
}
