package layout

// Sub-record definitions. Every sub-record starts with its flag word, uses
// only fixed-size fields and packs to a multiple of Align bytes; init
// rejects a layout that breaks either rule.

// NumPorts is the number of DMX ports of the node.
const NumPorts = 4

// NumSensors is the capacity of the RDM sensor calibration table.
const NumSensors = 8

// Identity holds the node names reported on every protocol.
type Identity struct {
	Flags     FlagSet
	ShortName [18]byte
	LongName  [64]byte
	Reserved  [2]byte
}

// Network holds the IPv4 interface settings.
type Network struct {
	Flags            FlagSet
	IPAddress        [4]byte
	NetMask          [4]byte
	Gateway          [4]byte
	NameServer       [4]byte
	NtpServer        [4]byte
	Hostname         [32]byte
	UtcOffsetMinutes int16
	Reserved         [2]byte
}

// ArtNet holds the Art-Net node settings.
type ArtNet struct {
	Flags         FlagSet
	Net           uint8
	SubNet        uint8
	OemCode       uint16
	Universes     [NumPorts]uint8
	Destinations  [NumPorts][4]byte
	Protocols     [NumPorts]uint8
	PollIntervalS uint8
	Reserved      [3]byte
}

// SACN holds the E1.31 streaming ACN settings.
type SACN struct {
	Flags      FlagSet
	Priority   uint8
	Reserved   [3]byte
	SourceName [64]byte
	CID        [16]byte
	Universes  [NumPorts]uint16
}

// DmxPort holds the settings of one physical DMX port.
type DmxPort struct {
	Flags          FlagSet
	Universe       uint16
	BreakTimeUs    uint16
	MabTimeUs      uint16
	RefreshRateHz  uint16
	SlotsPerPacket uint16
	MergeMode      uint8
	Direction      uint8
	FailsafeMode   uint8
	Reserved       [3]byte
}

// Display holds the front-panel display settings.
type Display struct {
	Flags           FlagSet
	Type            uint8
	Contrast        uint8
	SleepTimeoutMin uint8
	Rows            uint8
	LineInfo        [8]uint8
}

// Pixel holds the LED pixel output settings.
type Pixel struct {
	Flags            FlagSet
	Type             uint8
	ColourMap        uint8
	GroupSize        uint16
	Count            uint16
	ActiveOutputs    uint8
	TestPattern      uint8
	SpiSpeedKHz      uint16
	GlobalBrightness uint8
	Gamma            uint8
	LowCode          uint8
	HighCode         uint8
	Reserved         [2]byte
	StartUniverses   [8]uint16
}

// RdmDevice holds the RDM responder identity.
type RdmDevice struct {
	Flags           FlagSet
	ManufacturerID  uint16
	ProductCategory uint16
	DeviceID        uint32
	DeviceLabel     [32]byte
	Personality     uint8
	Reserved        [1]byte
	StartAddress    uint16
}

// RdmSensors holds the sensor calibration table. Bit n of Flags marks
// sensor n as calibrated.
type RdmSensors struct {
	Flags    FlagSet
	Count    uint8
	Reserved [3]byte
	Offsets  [NumSensors]int16
	Gains    [NumSensors]uint16
	Types    [NumSensors]uint8
}

// Rtc selects the real-time clock chip.
type Rtc struct {
	Flags      FlagSet
	Type       uint8
	I2CAddress uint8
	Reserved   [2]byte
}

// Timecode holds the LTC reader/generator settings.
type Timecode struct {
	Flags      FlagSet
	Source     uint8
	FpsType    uint8
	Volume     uint8
	Reserved   [1]byte
	StartFrame [4]uint8
	StopFrame  [4]uint8
}

// Osc holds the OSC server settings.
type Osc struct {
	Flags        FlagSet
	IncomingPort uint16
	OutgoingPort uint16
	Destination  [4]byte
}

// Showfile holds the show player settings.
type Showfile struct {
	Flags       FlagSet
	Number      uint8
	Format      uint8
	Protocol    uint8
	Reserved    [1]byte
	UniverseMap [NumPorts]uint16
}

// Monitor holds the DMX monitor settings.
type Monitor struct {
	Flags    FlagSet
	Universe uint16
	Format   uint8
	Reserved [1]byte
}

// Remote holds the remote configuration service settings.
type Remote struct {
	Flags    FlagSet
	Port     uint16
	Reserved [2]byte
}

// Syslog holds the remote log sink settings.
type Syslog struct {
	Flags    FlagSet
	Server   [4]byte
	Port     uint16
	Level    uint8
	Reserved [1]byte
}

// Gps holds the GPS time source settings.
type Gps struct {
	Flags            FlagSet
	Module           uint8
	Reserved         [1]byte
	UtcOffsetMinutes int16
}

// Tftp holds the firmware update server settings.
type Tftp struct {
	Flags    FlagSet
	ServerIP [4]byte
}

// Node holds the global node mode.
type Node struct {
	Flags        FlagSet
	Personality  uint8
	ActivePorts  uint8
	FailsafeMode uint8
	Reserved     [1]byte
}

// Widget holds the USB DMX widget parameters.
type Widget struct {
	Flags       FlagSet
	Mode        uint8
	BreakTime   uint8
	MabTime     uint8
	RefreshRate uint8
	ThrottleFps uint8
	Reserved    [3]byte
}

// Dmx holds the global DMX transmitter timing.
type Dmx struct {
	Flags         FlagSet
	BreakTimeUs   uint16
	MabTimeUs     uint16
	RefreshRateHz uint16
	SlotsToOutput uint16
}
