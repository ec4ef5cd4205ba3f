package layout

import "math/bits"

// FlagSet is the 32-bit flag word at the start of every sub-record.
type FlagSet uint32

// Set sets bit n.
func (f *FlagSet) Set(n uint8) {
	*f |= 1 << (n & 31)
}

// Clear clears bit n.
func (f *FlagSet) Clear(n uint8) {
	*f &^= 1 << (n & 31)
}

// Test reports whether bit n is set.
func (f FlagSet) Test(n uint8) bool {
	return f&(1<<(n&31)) != 0
}

// Count returns the number of set bits.
func (f FlagSet) Count() int {
	return bits.OnesCount32(uint32(f))
}

// Bit numbers per sub-record.
const (
	// identity
	FlagIdentityLongNameSet uint8 = iota
)

const (
	// network
	FlagNetworkDhcp uint8 = iota
	FlagNetworkNtp
	FlagNetworkMdns
	FlagNetworkStaticGateway
)

const (
	// artnet
	FlagArtNetRdm uint8 = iota
	FlagArtNetMapUniverse0
	FlagArtNetDisableMergeTimeout
	FlagArtNetSyncDisabled
)

const (
	// sacn
	FlagSACNPreview uint8 = iota
	FlagSACNDiscovery
	FlagSACNUnicast
)

const (
	// port0..port3
	FlagPortOutput uint8 = iota
	FlagPortInput
	FlagPortRdm
	FlagPortMergeLtp
	FlagPortDisabled
)

const (
	// display
	FlagDisplayFlip uint8 = iota
	FlagDisplayInvert
	FlagDisplaySleep
)

const (
	// pixel
	FlagPixelInvert uint8 = iota
	FlagPixelGamma
	FlagPixelRgbwTest
)

const (
	// rdm
	FlagRdmEnabled uint8 = iota
	FlagRdmDiscoverable
)

const (
	// rtc
	FlagRtcEnabled uint8 = iota
	FlagRtcNtpSync
)

const (
	// ltc
	FlagLtcOutput uint8 = iota
	FlagLtcMidi
	FlagLtcArtNet
	FlagLtcRtpMidi
	FlagLtcWs28xxDisplay
)

const (
	// osc
	FlagOscEnabled uint8 = iota
)

const (
	// showfile
	FlagShowfileAutoStart uint8 = iota
	FlagShowfileLoop
	FlagShowfileDisableSync
)

const (
	// monitor
	FlagMonitorEnabled uint8 = iota
)

const (
	// remote
	FlagRemoteDisabled uint8 = iota
	FlagRemoteDisableWrite
	FlagRemoteEnableReboot
	FlagRemoteEnableUptime
	FlagRemoteEnableFactory
)

const (
	// syslog
	FlagSyslogEnabled uint8 = iota
)

const (
	// gps
	FlagGpsEnabled uint8 = iota
)

const (
	// tftp
	FlagTftpEnabled uint8 = iota
)

const (
	// node
	FlagNodeDisableMergeTimeout uint8 = iota
	FlagNodeHttpEnabled
	FlagNodeFailsafeRecord
)

const (
	// widget
	FlagWidgetRdm uint8 = iota
	FlagWidgetSniffer
)

const (
	// dmx
	FlagDmxContinuous uint8 = iota
)
