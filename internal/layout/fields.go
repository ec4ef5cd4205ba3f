package layout

import "fmt"

// Field descriptors. A descriptor names one field of one sub-record and
// knows how to reach it inside a Record; the store uses them for its
// compare-then-copy setters and the settings registry indexes them by name.

// Descriptor is implemented by Field, ArrayField and Flag.
type Descriptor interface {
	Name() string
	Sub() SubRecordID
}

// Field describes a scalar (or fixed-size value) field.
type Field[T comparable] struct {
	name string
	sub  SubRecordID
	def  T
	ptr  func(r *Record) *T
}

// NewField creates a scalar field descriptor. def is reported by
// ValueOrDefault while the stored value is zero.
func NewField[T comparable](name string, sub SubRecordID, def T, ptr func(r *Record) *T) Field[T] {
	return Field[T]{name: name, sub: sub, def: def, ptr: ptr}
}

func (f Field[T]) Name() string     { return f.name }
func (f Field[T]) Sub() SubRecordID { return f.sub }
func (f Field[T]) Default() T       { return f.def }

// Ptr returns the address of the field inside r.
func (f Field[T]) Ptr(r *Record) *T { return f.ptr(r) }

// Get returns the stored value.
func (f Field[T]) Get(r *Record) T { return *f.ptr(r) }

// ValueOrDefault returns the stored value, or the default while the
// stored value is zero.
func (f Field[T]) ValueOrDefault(r *Record) T {
	var zero T
	if v := *f.ptr(r); v != zero {
		return v
	}
	return f.def
}

// ArrayField describes a fixed-capacity array field.
type ArrayField[E comparable] struct {
	name  string
	sub   SubRecordID
	slice func(r *Record) []E
}

// NewArrayField creates an array field descriptor. slice must return a
// slice aliasing the fixed-size array inside r.
func NewArrayField[E comparable](name string, sub SubRecordID, slice func(r *Record) []E) ArrayField[E] {
	return ArrayField[E]{name: name, sub: sub, slice: slice}
}

func (f ArrayField[E]) Name() string     { return f.name }
func (f ArrayField[E]) Sub() SubRecordID { return f.sub }

// Slice returns the array inside r.
func (f ArrayField[E]) Slice(r *Record) []E { return f.slice(r) }

// Cap returns the fixed capacity.
func (f ArrayField[E]) Cap() int {
	var probe Record
	return len(f.slice(&probe))
}

// Flag describes one bit of a sub-record flag word.
type Flag struct {
	name string
	sub  SubRecordID
	bit  uint8
}

// NewFlag creates a flag descriptor.
func NewFlag(name string, sub SubRecordID, bit uint8) Flag {
	return Flag{name: name, sub: sub, bit: bit}
}

func (f Flag) Name() string     { return f.name }
func (f Flag) Sub() SubRecordID { return f.sub }
func (f Flag) Bit() uint8       { return f.bit }

// SubRecord describes a whole sub-record of type T.
type SubRecord[T comparable] struct {
	id  SubRecordID
	ptr func(r *Record) *T
}

func (s SubRecord[T]) ID() SubRecordID { return s.id }

// Ptr returns the address of the sub-record inside r.
func (s SubRecord[T]) Ptr(r *Record) *T { return s.ptr(r) }

// =============================================================================
// Whole sub-records
// =============================================================================

var (
	IdentityRecord   = SubRecord[Identity]{SubIdentity, func(r *Record) *Identity { return &r.Identity }}
	NetworkRecord    = SubRecord[Network]{SubNetwork, func(r *Record) *Network { return &r.Network }}
	ArtNetRecord     = SubRecord[ArtNet]{SubArtNet, func(r *Record) *ArtNet { return &r.ArtNet }}
	SACNRecord       = SubRecord[SACN]{SubSACN, func(r *Record) *SACN { return &r.SACN }}
	DisplayRecord    = SubRecord[Display]{SubDisplay, func(r *Record) *Display { return &r.Display }}
	PixelRecord      = SubRecord[Pixel]{SubPixel, func(r *Record) *Pixel { return &r.Pixel }}
	RdmDeviceRecord  = SubRecord[RdmDevice]{SubRdmDevice, func(r *Record) *RdmDevice { return &r.RdmDevice }}
	RdmSensorsRecord = SubRecord[RdmSensors]{SubRdmSensors, func(r *Record) *RdmSensors { return &r.RdmSensors }}
	RtcRecord        = SubRecord[Rtc]{SubRtc, func(r *Record) *Rtc { return &r.Rtc }}
	TimecodeRecord   = SubRecord[Timecode]{SubTimecode, func(r *Record) *Timecode { return &r.Timecode }}
	OscRecord        = SubRecord[Osc]{SubOsc, func(r *Record) *Osc { return &r.Osc }}
	ShowfileRecord   = SubRecord[Showfile]{SubShowfile, func(r *Record) *Showfile { return &r.Showfile }}
	MonitorRecord    = SubRecord[Monitor]{SubMonitor, func(r *Record) *Monitor { return &r.Monitor }}
	RemoteRecord     = SubRecord[Remote]{SubRemote, func(r *Record) *Remote { return &r.Remote }}
	SyslogRecord     = SubRecord[Syslog]{SubSyslog, func(r *Record) *Syslog { return &r.Syslog }}
	GpsRecord        = SubRecord[Gps]{SubGps, func(r *Record) *Gps { return &r.Gps }}
	TftpRecord       = SubRecord[Tftp]{SubTftp, func(r *Record) *Tftp { return &r.Tftp }}
	NodeRecord       = SubRecord[Node]{SubNode, func(r *Record) *Node { return &r.Node }}
	WidgetRecord     = SubRecord[Widget]{SubWidget, func(r *Record) *Widget { return &r.Widget }}
	DmxRecord        = SubRecord[Dmx]{SubDmx, func(r *Record) *Dmx { return &r.Dmx }}
)

// PortRecord returns the sub-record of DMX port i.
func PortRecord(i int) SubRecord[DmxPort] {
	return SubRecord[DmxPort]{PortSub(i), func(r *Record) *DmxPort { return &r.Ports[i] }}
}

// =============================================================================
// Fields
// =============================================================================

var (
	IdentityShortName = NewArrayField("identity.short_name", SubIdentity, func(r *Record) []byte { return r.Identity.ShortName[:] })
	IdentityLongName  = NewArrayField("identity.long_name", SubIdentity, func(r *Record) []byte { return r.Identity.LongName[:] })

	NetworkIP         = NewField("network.ip", SubNetwork, [4]byte{}, func(r *Record) *[4]byte { return &r.Network.IPAddress })
	NetworkNetMask    = NewField("network.netmask", SubNetwork, [4]byte{255, 255, 255, 0}, func(r *Record) *[4]byte { return &r.Network.NetMask })
	NetworkGateway    = NewField("network.gateway", SubNetwork, [4]byte{}, func(r *Record) *[4]byte { return &r.Network.Gateway })
	NetworkNameServer = NewField("network.dns", SubNetwork, [4]byte{}, func(r *Record) *[4]byte { return &r.Network.NameServer })
	NetworkNtpServer  = NewField("network.ntp_server", SubNetwork, [4]byte{}, func(r *Record) *[4]byte { return &r.Network.NtpServer })
	NetworkHostname   = NewArrayField("network.hostname", SubNetwork, func(r *Record) []byte { return r.Network.Hostname[:] })
	NetworkUtcOffset  = NewField("network.utc_offset", SubNetwork, int16(0), func(r *Record) *int16 { return &r.Network.UtcOffsetMinutes })

	ArtNetNet          = NewField("artnet.net", SubArtNet, uint8(0), func(r *Record) *uint8 { return &r.ArtNet.Net })
	ArtNetSubNet       = NewField("artnet.subnet", SubArtNet, uint8(0), func(r *Record) *uint8 { return &r.ArtNet.SubNet })
	ArtNetOemCode      = NewField("artnet.oem_code", SubArtNet, uint16(0x20e0), func(r *Record) *uint16 { return &r.ArtNet.OemCode })
	ArtNetUniverses    = NewArrayField("artnet.universes", SubArtNet, func(r *Record) []uint8 { return r.ArtNet.Universes[:] })
	ArtNetDestinations = NewArrayField("artnet.destinations", SubArtNet, func(r *Record) [][4]byte { return r.ArtNet.Destinations[:] })
	ArtNetProtocols    = NewArrayField("artnet.protocols", SubArtNet, func(r *Record) []uint8 { return r.ArtNet.Protocols[:] })
	ArtNetPollInterval = NewField("artnet.poll_interval", SubArtNet, uint8(8), func(r *Record) *uint8 { return &r.ArtNet.PollIntervalS })

	SACNPriority   = NewField("sacn.priority", SubSACN, uint8(100), func(r *Record) *uint8 { return &r.SACN.Priority })
	SACNSourceName = NewArrayField("sacn.source_name", SubSACN, func(r *Record) []byte { return r.SACN.SourceName[:] })
	SACNCID        = NewField("sacn.cid", SubSACN, [16]byte{}, func(r *Record) *[16]byte { return &r.SACN.CID })
	SACNUniverses  = NewArrayField("sacn.universes", SubSACN, func(r *Record) []uint16 { return r.SACN.Universes[:] })

	DisplayType     = NewField("display.type", SubDisplay, uint8(0), func(r *Record) *uint8 { return &r.Display.Type })
	DisplayContrast = NewField("display.contrast", SubDisplay, uint8(0x7f), func(r *Record) *uint8 { return &r.Display.Contrast })
	DisplaySleep    = NewField("display.sleep_timeout", SubDisplay, uint8(5), func(r *Record) *uint8 { return &r.Display.SleepTimeoutMin })
	DisplayRows     = NewField("display.rows", SubDisplay, uint8(4), func(r *Record) *uint8 { return &r.Display.Rows })
	DisplayLineInfo = NewArrayField("display.line_info", SubDisplay, func(r *Record) []uint8 { return r.Display.LineInfo[:] })

	PixelType           = NewField("pixel.type", SubPixel, uint8(0), func(r *Record) *uint8 { return &r.Pixel.Type })
	PixelColourMap      = NewField("pixel.colour_map", SubPixel, uint8(0), func(r *Record) *uint8 { return &r.Pixel.ColourMap })
	PixelGroupSize      = NewField("pixel.group_size", SubPixel, uint16(1), func(r *Record) *uint16 { return &r.Pixel.GroupSize })
	PixelCount          = NewField("pixel.count", SubPixel, uint16(170), func(r *Record) *uint16 { return &r.Pixel.Count })
	PixelActiveOutputs  = NewField("pixel.active_outputs", SubPixel, uint8(1), func(r *Record) *uint8 { return &r.Pixel.ActiveOutputs })
	PixelTestPattern    = NewField("pixel.test_pattern", SubPixel, uint8(0), func(r *Record) *uint8 { return &r.Pixel.TestPattern })
	PixelSpiSpeed       = NewField("pixel.spi_speed_khz", SubPixel, uint16(6400), func(r *Record) *uint16 { return &r.Pixel.SpiSpeedKHz })
	PixelBrightness     = NewField("pixel.brightness", SubPixel, uint8(255), func(r *Record) *uint8 { return &r.Pixel.GlobalBrightness })
	PixelGamma          = NewField("pixel.gamma", SubPixel, uint8(22), func(r *Record) *uint8 { return &r.Pixel.Gamma })
	PixelLowCode        = NewField("pixel.low_code", SubPixel, uint8(0), func(r *Record) *uint8 { return &r.Pixel.LowCode })
	PixelHighCode       = NewField("pixel.high_code", SubPixel, uint8(0), func(r *Record) *uint8 { return &r.Pixel.HighCode })
	PixelStartUniverses = NewArrayField("pixel.start_universes", SubPixel, func(r *Record) []uint16 { return r.Pixel.StartUniverses[:] })

	RdmManufacturerID  = NewField("rdm.manufacturer_id", SubRdmDevice, uint16(0x7ff0), func(r *Record) *uint16 { return &r.RdmDevice.ManufacturerID })
	RdmProductCategory = NewField("rdm.product_category", SubRdmDevice, uint16(0x7101), func(r *Record) *uint16 { return &r.RdmDevice.ProductCategory })
	RdmDeviceID        = NewField("rdm.device_id", SubRdmDevice, uint32(0), func(r *Record) *uint32 { return &r.RdmDevice.DeviceID })
	RdmDeviceLabel     = NewArrayField("rdm.label", SubRdmDevice, func(r *Record) []byte { return r.RdmDevice.DeviceLabel[:] })
	RdmPersonality     = NewField("rdm.personality", SubRdmDevice, uint8(1), func(r *Record) *uint8 { return &r.RdmDevice.Personality })
	RdmStartAddress    = NewField("rdm.start_address", SubRdmDevice, uint16(1), func(r *Record) *uint16 { return &r.RdmDevice.StartAddress })

	SensorCount   = NewField("sensors.count", SubRdmSensors, uint8(0), func(r *Record) *uint8 { return &r.RdmSensors.Count })
	SensorOffsets = NewArrayField("sensors.offsets", SubRdmSensors, func(r *Record) []int16 { return r.RdmSensors.Offsets[:] })
	SensorGains   = NewArrayField("sensors.gains", SubRdmSensors, func(r *Record) []uint16 { return r.RdmSensors.Gains[:] })
	SensorTypes   = NewArrayField("sensors.types", SubRdmSensors, func(r *Record) []uint8 { return r.RdmSensors.Types[:] })

	RtcType       = NewField("rtc.type", SubRtc, uint8(0), func(r *Record) *uint8 { return &r.Rtc.Type })
	RtcI2CAddress = NewField("rtc.i2c_address", SubRtc, uint8(0x68), func(r *Record) *uint8 { return &r.Rtc.I2CAddress })

	LtcSource     = NewField("ltc.source", SubTimecode, uint8(0), func(r *Record) *uint8 { return &r.Timecode.Source })
	LtcFpsType    = NewField("ltc.fps", SubTimecode, uint8(0), func(r *Record) *uint8 { return &r.Timecode.FpsType })
	LtcVolume     = NewField("ltc.volume", SubTimecode, uint8(0), func(r *Record) *uint8 { return &r.Timecode.Volume })
	LtcStartFrame = NewField("ltc.start", SubTimecode, [4]uint8{}, func(r *Record) *[4]uint8 { return &r.Timecode.StartFrame })
	LtcStopFrame  = NewField("ltc.stop", SubTimecode, [4]uint8{}, func(r *Record) *[4]uint8 { return &r.Timecode.StopFrame })

	OscIncomingPort = NewField("osc.incoming_port", SubOsc, uint16(8000), func(r *Record) *uint16 { return &r.Osc.IncomingPort })
	OscOutgoingPort = NewField("osc.outgoing_port", SubOsc, uint16(9000), func(r *Record) *uint16 { return &r.Osc.OutgoingPort })
	OscDestination  = NewField("osc.destination", SubOsc, [4]byte{}, func(r *Record) *[4]byte { return &r.Osc.Destination })

	ShowfileNumber      = NewField("showfile.number", SubShowfile, uint8(0), func(r *Record) *uint8 { return &r.Showfile.Number })
	ShowfileFormat      = NewField("showfile.format", SubShowfile, uint8(0), func(r *Record) *uint8 { return &r.Showfile.Format })
	ShowfileProtocol    = NewField("showfile.protocol", SubShowfile, uint8(0), func(r *Record) *uint8 { return &r.Showfile.Protocol })
	ShowfileUniverseMap = NewArrayField("showfile.universe_map", SubShowfile, func(r *Record) []uint16 { return r.Showfile.UniverseMap[:] })

	MonitorUniverse = NewField("monitor.universe", SubMonitor, uint16(0), func(r *Record) *uint16 { return &r.Monitor.Universe })
	MonitorFormat   = NewField("monitor.format", SubMonitor, uint8(0), func(r *Record) *uint8 { return &r.Monitor.Format })

	RemotePort = NewField("remote.port", SubRemote, uint16(0x2905), func(r *Record) *uint16 { return &r.Remote.Port })

	SyslogServer = NewField("syslog.server", SubSyslog, [4]byte{}, func(r *Record) *[4]byte { return &r.Syslog.Server })
	SyslogPort   = NewField("syslog.port", SubSyslog, uint16(514), func(r *Record) *uint16 { return &r.Syslog.Port })
	SyslogLevel  = NewField("syslog.level", SubSyslog, uint8(6), func(r *Record) *uint8 { return &r.Syslog.Level })

	GpsModule    = NewField("gps.module", SubGps, uint8(0), func(r *Record) *uint8 { return &r.Gps.Module })
	GpsUtcOffset = NewField("gps.utc_offset", SubGps, int16(0), func(r *Record) *int16 { return &r.Gps.UtcOffsetMinutes })

	TftpServer = NewField("tftp.server", SubTftp, [4]byte{}, func(r *Record) *[4]byte { return &r.Tftp.ServerIP })

	NodePersonality  = NewField("node.personality", SubNode, uint8(0), func(r *Record) *uint8 { return &r.Node.Personality })
	NodeActivePorts  = NewField("node.active_ports", SubNode, uint8(NumPorts), func(r *Record) *uint8 { return &r.Node.ActivePorts })
	NodeFailsafeMode = NewField("node.failsafe", SubNode, uint8(0), func(r *Record) *uint8 { return &r.Node.FailsafeMode })

	WidgetMode        = NewField("widget.mode", SubWidget, uint8(0), func(r *Record) *uint8 { return &r.Widget.Mode })
	WidgetBreakTime   = NewField("widget.break_time", SubWidget, uint8(9), func(r *Record) *uint8 { return &r.Widget.BreakTime })
	WidgetMabTime     = NewField("widget.mab_time", SubWidget, uint8(1), func(r *Record) *uint8 { return &r.Widget.MabTime })
	WidgetRefreshRate = NewField("widget.refresh_rate", SubWidget, uint8(40), func(r *Record) *uint8 { return &r.Widget.RefreshRate })
	WidgetThrottle    = NewField("widget.throttle", SubWidget, uint8(0), func(r *Record) *uint8 { return &r.Widget.ThrottleFps })

	DmxBreakTime   = NewField("dmx.break_time", SubDmx, uint16(176), func(r *Record) *uint16 { return &r.Dmx.BreakTimeUs })
	DmxMabTime     = NewField("dmx.mab_time", SubDmx, uint16(12), func(r *Record) *uint16 { return &r.Dmx.MabTimeUs })
	DmxRefreshRate = NewField("dmx.refresh_rate", SubDmx, uint16(40), func(r *Record) *uint16 { return &r.Dmx.RefreshRateHz })
	DmxSlots       = NewField("dmx.slots", SubDmx, uint16(512), func(r *Record) *uint16 { return &r.Dmx.SlotsToOutput })
)

// PortFields groups the field descriptors of one DMX port.
type PortFields struct {
	Universe       Field[uint16]
	BreakTime      Field[uint16]
	MabTime        Field[uint16]
	RefreshRate    Field[uint16]
	SlotsPerPacket Field[uint16]
	MergeMode      Field[uint8]
	Direction      Field[uint8]
	FailsafeMode   Field[uint8]
}

// Port returns the field descriptors of DMX port i.
func Port(i int) PortFields {
	sub := PortSub(i)
	prefix := fmt.Sprintf("port%d.", i)
	return PortFields{
		Universe:       NewField(prefix+"universe", sub, uint16(i+1), func(r *Record) *uint16 { return &r.Ports[i].Universe }),
		BreakTime:      NewField(prefix+"break_time", sub, uint16(176), func(r *Record) *uint16 { return &r.Ports[i].BreakTimeUs }),
		MabTime:        NewField(prefix+"mab_time", sub, uint16(12), func(r *Record) *uint16 { return &r.Ports[i].MabTimeUs }),
		RefreshRate:    NewField(prefix+"refresh_rate", sub, uint16(40), func(r *Record) *uint16 { return &r.Ports[i].RefreshRateHz }),
		SlotsPerPacket: NewField(prefix+"slots", sub, uint16(512), func(r *Record) *uint16 { return &r.Ports[i].SlotsPerPacket }),
		MergeMode:      NewField(prefix+"merge_mode", sub, uint8(0), func(r *Record) *uint8 { return &r.Ports[i].MergeMode }),
		Direction:      NewField(prefix+"direction", sub, uint8(0), func(r *Record) *uint8 { return &r.Ports[i].Direction }),
		FailsafeMode:   NewField(prefix+"failsafe", sub, uint8(0), func(r *Record) *uint8 { return &r.Ports[i].FailsafeMode }),
	}
}

func (p PortFields) descriptors() []Descriptor {
	return []Descriptor{p.Universe, p.BreakTime, p.MabTime, p.RefreshRate, p.SlotsPerPacket, p.MergeMode, p.Direction, p.FailsafeMode}
}

// =============================================================================
// Flags
// =============================================================================

var (
	NetworkDhcp          = NewFlag("network.dhcp", SubNetwork, FlagNetworkDhcp)
	NetworkNtp           = NewFlag("network.ntp", SubNetwork, FlagNetworkNtp)
	NetworkMdns          = NewFlag("network.mdns", SubNetwork, FlagNetworkMdns)
	ArtNetRdm            = NewFlag("artnet.rdm", SubArtNet, FlagArtNetRdm)
	ArtNetMapUniverse0   = NewFlag("artnet.map_universe0", SubArtNet, FlagArtNetMapUniverse0)
	ArtNetNoMergeTimeout = NewFlag("artnet.disable_merge_timeout", SubArtNet, FlagArtNetDisableMergeTimeout)
	SACNPreview          = NewFlag("sacn.preview", SubSACN, FlagSACNPreview)
	SACNDiscovery        = NewFlag("sacn.discovery", SubSACN, FlagSACNDiscovery)
	SACNUnicast          = NewFlag("sacn.unicast", SubSACN, FlagSACNUnicast)
	DisplayFlip          = NewFlag("display.flip", SubDisplay, FlagDisplayFlip)
	DisplayInvert        = NewFlag("display.invert", SubDisplay, FlagDisplayInvert)
	DisplaySleepEnabled  = NewFlag("display.sleep", SubDisplay, FlagDisplaySleep)
	PixelInvert          = NewFlag("pixel.invert", SubPixel, FlagPixelInvert)
	PixelGammaEnabled    = NewFlag("pixel.gamma_enabled", SubPixel, FlagPixelGamma)
	RdmEnabled           = NewFlag("rdm.enabled", SubRdmDevice, FlagRdmEnabled)
	RdmDiscoverable      = NewFlag("rdm.discoverable", SubRdmDevice, FlagRdmDiscoverable)
	RtcEnabled           = NewFlag("rtc.enabled", SubRtc, FlagRtcEnabled)
	RtcNtpSync           = NewFlag("rtc.ntp_sync", SubRtc, FlagRtcNtpSync)
	LtcOutput            = NewFlag("ltc.output", SubTimecode, FlagLtcOutput)
	LtcMidi              = NewFlag("ltc.midi", SubTimecode, FlagLtcMidi)
	LtcArtNet            = NewFlag("ltc.artnet", SubTimecode, FlagLtcArtNet)
	OscEnabled           = NewFlag("osc.enabled", SubOsc, FlagOscEnabled)
	ShowfileAutoStart    = NewFlag("showfile.auto_start", SubShowfile, FlagShowfileAutoStart)
	ShowfileLoop         = NewFlag("showfile.loop", SubShowfile, FlagShowfileLoop)
	MonitorEnabled       = NewFlag("monitor.enabled", SubMonitor, FlagMonitorEnabled)
	RemoteDisabled       = NewFlag("remote.disabled", SubRemote, FlagRemoteDisabled)
	RemoteDisableWrite   = NewFlag("remote.disable_write", SubRemote, FlagRemoteDisableWrite)
	RemoteEnableReboot   = NewFlag("remote.enable_reboot", SubRemote, FlagRemoteEnableReboot)
	SyslogEnabled        = NewFlag("syslog.enabled", SubSyslog, FlagSyslogEnabled)
	GpsEnabled           = NewFlag("gps.enabled", SubGps, FlagGpsEnabled)
	TftpEnabled          = NewFlag("tftp.enabled", SubTftp, FlagTftpEnabled)
	NodeNoMergeTimeout   = NewFlag("node.disable_merge_timeout", SubNode, FlagNodeDisableMergeTimeout)
	NodeHttpEnabled      = NewFlag("node.http", SubNode, FlagNodeHttpEnabled)
	WidgetRdm            = NewFlag("widget.rdm", SubWidget, FlagWidgetRdm)
	DmxContinuous        = NewFlag("dmx.continuous", SubDmx, FlagDmxContinuous)
)

// PortFlags groups the flag descriptors of one DMX port.
type PortFlags struct {
	Output   Flag
	Input    Flag
	Rdm      Flag
	MergeLtp Flag
	Disabled Flag
}

// PortFlag returns the flag descriptors of DMX port i.
func PortFlag(i int) PortFlags {
	sub := PortSub(i)
	prefix := fmt.Sprintf("port%d.", i)
	return PortFlags{
		Output:   NewFlag(prefix+"output", sub, FlagPortOutput),
		Input:    NewFlag(prefix+"input", sub, FlagPortInput),
		Rdm:      NewFlag(prefix+"rdm", sub, FlagPortRdm),
		MergeLtp: NewFlag(prefix+"merge_ltp", sub, FlagPortMergeLtp),
		Disabled: NewFlag(prefix+"disabled", sub, FlagPortDisabled),
	}
}

// SensorCalibrated returns the flag marking sensor n as calibrated.
func SensorCalibrated(n int) Flag {
	return NewFlag(fmt.Sprintf("sensors.calibrated%d", n), SubRdmSensors, uint8(n))
}

// =============================================================================
// Catalogue
// =============================================================================

// Fields returns every named descriptor, grouped by sub-record.
func Fields() []Descriptor {
	out := []Descriptor{
		IdentityShortName, IdentityLongName,
		NetworkIP, NetworkNetMask, NetworkGateway, NetworkNameServer, NetworkNtpServer,
		NetworkHostname, NetworkUtcOffset, NetworkDhcp, NetworkNtp, NetworkMdns,
		ArtNetNet, ArtNetSubNet, ArtNetOemCode, ArtNetUniverses, ArtNetDestinations,
		ArtNetProtocols, ArtNetPollInterval, ArtNetRdm, ArtNetMapUniverse0, ArtNetNoMergeTimeout,
		SACNPriority, SACNSourceName, SACNCID, SACNUniverses, SACNPreview, SACNDiscovery, SACNUnicast,
	}

	for i := 0; i < NumPorts; i++ {
		out = append(out, Port(i).descriptors()...)
		pf := PortFlag(i)
		out = append(out, pf.Output, pf.Input, pf.Rdm, pf.MergeLtp, pf.Disabled)
	}

	out = append(out,
		DisplayType, DisplayContrast, DisplaySleep, DisplayRows, DisplayLineInfo,
		DisplayFlip, DisplayInvert, DisplaySleepEnabled,
		PixelType, PixelColourMap, PixelGroupSize, PixelCount, PixelActiveOutputs, PixelTestPattern,
		PixelSpiSpeed, PixelBrightness, PixelGamma, PixelLowCode, PixelHighCode, PixelStartUniverses,
		PixelInvert, PixelGammaEnabled,
		RdmManufacturerID, RdmProductCategory, RdmDeviceID, RdmDeviceLabel, RdmPersonality,
		RdmStartAddress, RdmEnabled, RdmDiscoverable,
		SensorCount, SensorOffsets, SensorGains, SensorTypes,
	)
	for n := 0; n < NumSensors; n++ {
		out = append(out, SensorCalibrated(n))
	}

	out = append(out,
		RtcType, RtcI2CAddress, RtcEnabled, RtcNtpSync,
		LtcSource, LtcFpsType, LtcVolume, LtcStartFrame, LtcStopFrame, LtcOutput, LtcMidi, LtcArtNet,
		OscIncomingPort, OscOutgoingPort, OscDestination, OscEnabled,
		ShowfileNumber, ShowfileFormat, ShowfileProtocol, ShowfileUniverseMap, ShowfileAutoStart, ShowfileLoop,
		MonitorUniverse, MonitorFormat, MonitorEnabled,
		RemotePort, RemoteDisabled, RemoteDisableWrite, RemoteEnableReboot,
		SyslogServer, SyslogPort, SyslogLevel, SyslogEnabled,
		GpsModule, GpsUtcOffset, GpsEnabled,
		TftpServer, TftpEnabled,
		NodePersonality, NodeActivePorts, NodeFailsafeMode, NodeNoMergeTimeout, NodeHttpEnabled,
		WidgetMode, WidgetBreakTime, WidgetMabTime, WidgetRefreshRate, WidgetThrottle, WidgetRdm,
		DmxBreakTime, DmxMabTime, DmxRefreshRate, DmxSlots, DmxContinuous,
	)

	return out
}
