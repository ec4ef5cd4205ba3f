package backend

// ErasedByte is the value of an erased (or never written) byte.
const ErasedByte = 0xFF

// RAM is a volatile backend. It is always detected and every operation
// completes on the first call. Storage is allocated one sector at a time,
// on first touch; untouched sectors read as erased.
type RAM struct {
	size       uint32
	sectorSize uint32
	units      map[uint32][]byte

	reads, erases, writes int
}

// NewRAM creates a RAM backend of size bytes with the given erase size.
func NewRAM(size, sectorSize uint32) *RAM {
	if sectorSize == 0 {
		sectorSize = 4096
	}
	return &RAM{
		size:       size,
		sectorSize: sectorSize,
		units:      make(map[uint32][]byte),
	}
}

func (r *RAM) IsDetected() bool   { return true }
func (r *RAM) Size() uint32       { return r.size }
func (r *RAM) SectorSize() uint32 { return r.sectorSize }

// Read copies length bytes at offset into buf.
func (r *RAM) Read(offset, length uint32, buf []byte) (bool, Result) {
	if !InRange(r.size, offset, length) || uint32(len(buf)) < length {
		return true, ResultOutOfRange
	}
	r.reads++

	r.walk(offset, length, false, func(unit []byte, at uint32, n uint32, done uint32) {
		if unit == nil {
			for i := uint32(0); i < n; i++ {
				buf[done+i] = ErasedByte
			}
			return
		}
		copy(buf[done:done+n], unit[at:at+n])
	})
	return true, ResultOK
}

// Erase sets length bytes at offset to ErasedByte.
func (r *RAM) Erase(offset, length uint32) (bool, Result) {
	if !InRange(r.size, offset, length) {
		return true, ResultOutOfRange
	}
	r.erases++

	r.walk(offset, length, true, func(unit []byte, at uint32, n uint32, _ uint32) {
		for i := at; i < at+n; i++ {
			unit[i] = ErasedByte
		}
	})
	return true, ResultOK
}

// Write copies length bytes of buf to offset.
func (r *RAM) Write(offset, length uint32, buf []byte) (bool, Result) {
	if !InRange(r.size, offset, length) || uint32(len(buf)) < length {
		return true, ResultOutOfRange
	}
	r.writes++

	r.walk(offset, length, true, func(unit []byte, at uint32, n uint32, done uint32) {
		copy(unit[at:at+n], buf[done:done+n])
	})
	return true, ResultOK
}

// Bytes returns a copy of the whole device.
func (r *RAM) Bytes() []byte {
	out := make([]byte, r.size)
	r.Read(0, r.size, out)
	r.reads--
	return out
}

// Load replaces the device content with data; bytes beyond len(data) are
// erased.
func (r *RAM) Load(data []byte) {
	r.units = make(map[uint32][]byte)
	n := uint32(len(data))
	if n > r.size {
		n = r.size
	}
	r.walk(0, n, true, func(unit []byte, at uint32, cnt uint32, done uint32) {
		copy(unit[at:at+cnt], data[done:done+cnt])
	})
}

// Ops returns the number of completed read, erase and write calls.
func (r *RAM) Ops() (reads, erases, writes int) {
	return r.reads, r.erases, r.writes
}

// walk visits [offset, offset+length) unit by unit. fn receives the unit
// (nil when absent and alloc is false), the offset within the unit, the
// byte count and the number of bytes already visited.
func (r *RAM) walk(offset, length uint32, alloc bool, fn func(unit []byte, at, n, done uint32)) {
	cur := offset
	end := offset + length
	for cur < end {
		inUnit := cur % r.sectorSize
		base := cur - inUnit

		n := r.sectorSize - inUnit
		if left := end - cur; left < n {
			n = left
		}

		unit, ok := r.units[base]
		if !ok && alloc {
			unit = make([]byte, r.sectorSize)
			for i := range unit {
				unit[i] = ErasedByte
			}
			r.units[base] = unit
		}

		fn(unit, inUnit, n, cur-offset)
		cur += n
	}
}
