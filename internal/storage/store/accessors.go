package store

import (
	"bytes"

	"github.com/xtxerr/dmxnode/internal/layout"
)

// Typed field access. Every setter follows compare-then-copy-then-mark-dirty:
// the record is only touched, and the flush pipeline only started, when the
// new value differs from the stored one. Setters report whether they
// changed anything.

// Get returns the stored value of a field.
func Get[T comparable](s *Store, f layout.Field[T]) T {
	return f.Get(&s.rec)
}

// ValueOrDefault returns the stored value, or the field default while the
// stored value is zero.
func ValueOrDefault[T comparable](s *Store, f layout.Field[T]) T {
	return f.ValueOrDefault(&s.rec)
}

// Update stores v in f.
func Update[T comparable](s *Store, f layout.Field[T], v T) bool {
	p := f.Ptr(&s.rec)
	if *p == v {
		return false
	}
	*p = v
	s.markChanged()
	return true
}

// GetArray returns a copy of an array field.
func GetArray[E comparable](s *Store, f layout.ArrayField[E]) []E {
	src := f.Slice(&s.rec)
	out := make([]E, len(src))
	copy(out, src)
	return out
}

// UpdateArray stores v in f. v is clamped to the field capacity and the
// remainder is zero-filled.
func UpdateArray[E comparable](s *Store, f layout.ArrayField[E], v []E) bool {
	dst := f.Slice(&s.rec)
	if len(v) > len(dst) {
		v = v[:len(dst)]
	}

	var zero E
	changed := false
	for i := range dst {
		want := zero
		if i < len(v) {
			want = v[i]
		}
		if dst[i] != want {
			changed = true
			break
		}
	}
	if !changed {
		return false
	}

	n := copy(dst, v)
	for i := n; i < len(dst); i++ {
		dst[i] = zero
	}
	s.markChanged()
	return true
}

// GetString returns a byte array field up to its first NUL.
func GetString(s *Store, f layout.ArrayField[byte]) string {
	src := f.Slice(&s.rec)
	if i := bytes.IndexByte(src, 0); i >= 0 {
		src = src[:i]
	}
	return string(src)
}

// UpdateString stores v in a byte array field, truncated to its capacity.
func UpdateString(s *Store, f layout.ArrayField[byte], v string) bool {
	return UpdateArray(s, f, []byte(v))
}

// Copy returns a copy of a whole sub-record.
func Copy[T comparable](s *Store, sr layout.SubRecord[T]) T {
	return *sr.Ptr(&s.rec)
}

// UpdateRecord replaces a whole sub-record.
func UpdateRecord[T comparable](s *Store, sr layout.SubRecord[T], v T) bool {
	p := sr.Ptr(&s.rec)
	if *p == v {
		return false
	}
	*p = v
	s.markChanged()
	return true
}

// SetFlag sets a flag bit.
func (s *Store) SetFlag(f layout.Flag) bool {
	flags := s.rec.Flags(f.Sub())
	if flags == nil || flags.Test(f.Bit()) {
		return false
	}
	flags.Set(f.Bit())
	s.markChanged()
	return true
}

// ClearFlag clears a flag bit.
func (s *Store) ClearFlag(f layout.Flag) bool {
	flags := s.rec.Flags(f.Sub())
	if flags == nil || !flags.Test(f.Bit()) {
		return false
	}
	flags.Clear(f.Bit())
	s.markChanged()
	return true
}

// SetFlagTo sets or clears a flag bit.
func (s *Store) SetFlagTo(f layout.Flag, on bool) bool {
	if on {
		return s.SetFlag(f)
	}
	return s.ClearFlag(f)
}

// IsFlagSet reports whether a flag bit is set.
func (s *Store) IsFlagSet(f layout.Flag) bool {
	flags := s.rec.Flags(f.Sub())
	return flags != nil && flags.Test(f.Bit())
}
