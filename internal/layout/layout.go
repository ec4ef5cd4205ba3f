// Package layout defines the binary configuration record of the node.
//
// Record format (little-endian, identical on every backend):
//   - Header: 4 bytes magic "AvV\0" + 2 bytes version + 10 reserved bytes
//   - Sub-records: fixed order, fixed size, each starting with its flag word
//
// The header is a version-stable prefix: validity checking reads only the
// header and never depends on sub-record content. The total size is bounded
// by BlockSize at compile time; the per-sub-record offsets and alignment are
// verified when the package initialises.
package layout

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/xtxerr/dmxnode/config"
	"github.com/xtxerr/dmxnode/internal/errors"
)

const (
	// BlockSize is the largest record a backend block can hold.
	BlockSize = config.DefaultBlockSize

	// Align is the required alignment of every sub-record offset.
	Align = 4

	// HeaderSize is the size of the fixed record prefix.
	HeaderSize = 4 + 2 + 10

	// Version is bumped whenever a sub-record changes shape. A stored
	// record with another version is treated as invalid and reset.
	Version uint16 = 1
)

// Magic identifies a configuration record.
var Magic = [4]byte{'A', 'v', 'V', 0}

// Compile-time layout checks. unsafe.Sizeof is never smaller than the
// packed size, so these fail the build before a record can outgrow a block.
var (
	_ [HeaderSize - unsafe.Sizeof(Header{})]struct{}
	_ [unsafe.Sizeof(Header{}) - HeaderSize]struct{}
	_ [BlockSize - unsafe.Sizeof(Record{})]struct{}
)

// Header is the fixed record prefix.
type Header struct {
	Magic    [4]byte
	Version  uint16
	Reserved [10]byte
}

// NewHeader returns a header stamped with the current magic and version.
func NewHeader() Header {
	return Header{Magic: Magic, Version: Version}
}

// Valid reports whether the header carries the current magic and version.
func (h Header) Valid() bool {
	return h.Check() == nil
}

// Check returns ErrInvalidRecord (wrapping the specific cause) when the
// header does not match.
func (h Header) Check() error {
	if h.Magic != Magic {
		return fmt.Errorf("%w: %w: % x", errors.ErrInvalidRecord, errors.ErrInvalidMagic, h.Magic[:])
	}
	if h.Version != Version {
		return fmt.Errorf("%w: %w: got %d, want %d", errors.ErrInvalidRecord, errors.ErrInvalidVersion, h.Version, Version)
	}
	return nil
}

// CheckHeader validates the header at the start of an encoded record.
func CheckHeader(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: %w: %d bytes", errors.ErrInvalidRecord, errors.ErrShortBuffer, len(data))
	}
	var h Header
	if _, err := binary.Decode(data[:HeaderSize], binary.LittleEndian, &h); err != nil {
		return errors.Wrap(err, "decode header")
	}
	return h.Check()
}

// Record is the complete configuration record.
type Record struct {
	Header     Header
	Identity   Identity
	Network    Network
	ArtNet     ArtNet
	SACN       SACN
	Ports      [NumPorts]DmxPort
	Display    Display
	Pixel      Pixel
	RdmDevice  RdmDevice
	RdmSensors RdmSensors
	Rtc        Rtc
	Timecode   Timecode
	Osc        Osc
	Showfile   Showfile
	Monitor    Monitor
	Remote     Remote
	Syslog     Syslog
	Gps        Gps
	Tftp       Tftp
	Node       Node
	Widget     Widget
	Dmx        Dmx
}

// Size is the encoded size of a Record. Set by init.
var Size int

// Reset zeroes the record and stamps a fresh header.
func (r *Record) Reset() {
	*r = Record{}
	r.Header = NewHeader()
}

// Valid reports whether the record header is current.
func (r *Record) Valid() bool {
	return r.Header.Valid()
}

// Flags returns the flag word of a sub-record.
func (r *Record) Flags(id SubRecordID) *FlagSet {
	if int(id) >= len(subRecords) {
		return nil
	}
	return subRecords[id].flags(r)
}

// MarshalTo encodes the record into buf, which must hold Size bytes.
func (r *Record) MarshalTo(buf []byte) error {
	if len(buf) < Size {
		return fmt.Errorf("%w: have %d, need %d", errors.ErrShortBuffer, len(buf), Size)
	}
	if _, err := binary.Encode(buf[:Size], binary.LittleEndian, r); err != nil {
		return errors.Wrap(err, "encode record")
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r *Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Size)
	if err := r.MarshalTo(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// UnmarshalBinary decodes an encoded record. It does not check the header.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) < Size {
		return fmt.Errorf("%w: have %d, need %d", errors.ErrShortBuffer, len(data), Size)
	}
	if _, err := binary.Decode(data[:Size], binary.LittleEndian, r); err != nil {
		return errors.Wrap(err, "decode record")
	}
	return nil
}

// =============================================================================
// Sub-record table
// =============================================================================

// SubRecordID names a sub-record.
type SubRecordID uint8

const (
	SubIdentity SubRecordID = iota
	SubNetwork
	SubArtNet
	SubSACN
	SubPort0
	SubPort1
	SubPort2
	SubPort3
	SubDisplay
	SubPixel
	SubRdmDevice
	SubRdmSensors
	SubRtc
	SubTimecode
	SubOsc
	SubShowfile
	SubMonitor
	SubRemote
	SubSyslog
	SubGps
	SubTftp
	SubNode
	SubWidget
	SubDmx

	NumSubRecords
)

// String returns the sub-record name.
func (id SubRecordID) String() string {
	if int(id) < len(subRecords) {
		return subRecords[id].name
	}
	return fmt.Sprintf("SubRecord(%d)", uint8(id))
}

// PortSub returns the sub-record of DMX port i.
func PortSub(i int) SubRecordID {
	return SubPort0 + SubRecordID(i)
}

// SubRecordInfo describes where a sub-record lives in the encoded record.
type SubRecordInfo struct {
	ID     SubRecordID
	Name   string
	Offset int
	Size   int
}

type subRecordDef struct {
	name  string
	ptr   func(r *Record) any
	flags func(r *Record) *FlagSet
}

func port(i int) subRecordDef {
	return subRecordDef{
		name:  fmt.Sprintf("port%d", i),
		ptr:   func(r *Record) any { return &r.Ports[i] },
		flags: func(r *Record) *FlagSet { return &r.Ports[i].Flags },
	}
}

// subRecords is in encoding order and must match the Record field order.
var subRecords = [NumSubRecords]subRecordDef{
	SubIdentity:   {"identity", func(r *Record) any { return &r.Identity }, func(r *Record) *FlagSet { return &r.Identity.Flags }},
	SubNetwork:    {"network", func(r *Record) any { return &r.Network }, func(r *Record) *FlagSet { return &r.Network.Flags }},
	SubArtNet:     {"artnet", func(r *Record) any { return &r.ArtNet }, func(r *Record) *FlagSet { return &r.ArtNet.Flags }},
	SubSACN:       {"sacn", func(r *Record) any { return &r.SACN }, func(r *Record) *FlagSet { return &r.SACN.Flags }},
	SubPort0:      port(0),
	SubPort1:      port(1),
	SubPort2:      port(2),
	SubPort3:      port(3),
	SubDisplay:    {"display", func(r *Record) any { return &r.Display }, func(r *Record) *FlagSet { return &r.Display.Flags }},
	SubPixel:      {"pixel", func(r *Record) any { return &r.Pixel }, func(r *Record) *FlagSet { return &r.Pixel.Flags }},
	SubRdmDevice:  {"rdm", func(r *Record) any { return &r.RdmDevice }, func(r *Record) *FlagSet { return &r.RdmDevice.Flags }},
	SubRdmSensors: {"sensors", func(r *Record) any { return &r.RdmSensors }, func(r *Record) *FlagSet { return &r.RdmSensors.Flags }},
	SubRtc:        {"rtc", func(r *Record) any { return &r.Rtc }, func(r *Record) *FlagSet { return &r.Rtc.Flags }},
	SubTimecode:   {"ltc", func(r *Record) any { return &r.Timecode }, func(r *Record) *FlagSet { return &r.Timecode.Flags }},
	SubOsc:        {"osc", func(r *Record) any { return &r.Osc }, func(r *Record) *FlagSet { return &r.Osc.Flags }},
	SubShowfile:   {"showfile", func(r *Record) any { return &r.Showfile }, func(r *Record) *FlagSet { return &r.Showfile.Flags }},
	SubMonitor:    {"monitor", func(r *Record) any { return &r.Monitor }, func(r *Record) *FlagSet { return &r.Monitor.Flags }},
	SubRemote:     {"remote", func(r *Record) any { return &r.Remote }, func(r *Record) *FlagSet { return &r.Remote.Flags }},
	SubSyslog:     {"syslog", func(r *Record) any { return &r.Syslog }, func(r *Record) *FlagSet { return &r.Syslog.Flags }},
	SubGps:        {"gps", func(r *Record) any { return &r.Gps }, func(r *Record) *FlagSet { return &r.Gps.Flags }},
	SubTftp:       {"tftp", func(r *Record) any { return &r.Tftp }, func(r *Record) *FlagSet { return &r.Tftp.Flags }},
	SubNode:       {"node", func(r *Record) any { return &r.Node }, func(r *Record) *FlagSet { return &r.Node.Flags }},
	SubWidget:     {"widget", func(r *Record) any { return &r.Widget }, func(r *Record) *FlagSet { return &r.Widget.Flags }},
	SubDmx:        {"dmx", func(r *Record) any { return &r.Dmx }, func(r *Record) *FlagSet { return &r.Dmx.Flags }},
}

var table [NumSubRecords]SubRecordInfo

// Layout returns the sub-record table in encoding order.
func Layout() []SubRecordInfo {
	out := make([]SubRecordInfo, len(table))
	copy(out, table[:])
	return out
}

// Info returns the table entry of one sub-record.
func Info(id SubRecordID) (SubRecordInfo, bool) {
	if int(id) >= len(table) {
		return SubRecordInfo{}, false
	}
	return table[id], true
}

// SubRecordByName looks a sub-record up by its table name.
func SubRecordByName(name string) (SubRecordID, bool) {
	for i := range subRecords {
		if subRecords[i].name == name {
			return SubRecordID(i), true
		}
	}
	return 0, false
}

func init() {
	if err := buildTable(); err != nil {
		panic("layout: " + err.Error())
	}
}

// buildTable computes offsets and enforces the layout invariants.
func buildTable() error {
	var probe Record
	flagType := reflect.TypeOf(FlagSet(0))

	if n := binary.Size(probe.Header); n != HeaderSize {
		return fmt.Errorf("header packs to %d bytes, want %d", n, HeaderSize)
	}

	offset := HeaderSize
	for i := range subRecords {
		def := subRecords[i]
		p := def.ptr(&probe)

		size := binary.Size(p)
		if size <= 0 {
			return fmt.Errorf("sub-record %s is not fixed-size", def.name)
		}
		if offset%Align != 0 {
			return fmt.Errorf("sub-record %s at offset %d is not %d-byte aligned", def.name, offset, Align)
		}
		if size%Align != 0 {
			return fmt.Errorf("sub-record %s size %d is not a multiple of %d", def.name, size, Align)
		}

		st := reflect.TypeOf(p).Elem()
		if st.Kind() != reflect.Struct || st.NumField() == 0 || st.Field(0).Type != flagType {
			return fmt.Errorf("sub-record %s does not start with its flag word", def.name)
		}
		if unsafe.Pointer(def.flags(&probe)) != reflect.ValueOf(p).UnsafePointer() {
			return fmt.Errorf("sub-record %s flag accessor points elsewhere", def.name)
		}

		table[i] = SubRecordInfo{ID: SubRecordID(i), Name: def.name, Offset: offset, Size: size}
		offset += size
	}

	total := binary.Size(&probe)
	if offset != total {
		return fmt.Errorf("sub-record table covers %d bytes, record packs to %d", offset, total)
	}
	if total > BlockSize {
		return fmt.Errorf("record size %d exceeds block size %d", total, BlockSize)
	}

	Size = total
	return nil
}
