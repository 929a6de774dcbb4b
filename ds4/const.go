package ds4

import "strings"

// USB identity of the emulated controller.
const (
	DefaultVID uint16 = 0x054C
	DefaultPID uint16 = 0x05C4
)

// Interrupt endpoint addresses.
const (
	EndpointIn  = 0x84
	EndpointOut = 0x03
)

// Report IDs. The 0xF0 range is the vendor authentication family carried in
// feature reports.
const (
	ReportIDInput        = 0x01
	ReportIDFeatureConf  = 0x03
	ReportIDFeedback     = 0x05
	ReportIDSetChallenge = 0xF0
	ReportIDGetResponse  = 0xF1
	ReportIDAuthStatus   = 0xF2
	ReportIDAuthPageSize = 0xF3
)

// Fixed wire sizes.
const (
	InputReportSize    = 64
	FeedbackReportSize = 32
	FeatureConfSize    = 48
	AuthReportSize     = 64
	AuthReportDataSize = 56
	AuthStatusSize     = 16
	AuthPageSizeSize   = 8
)

// DPad encodes the hat switch position in the low nibble of the first
// button byte.
type DPad uint8

const (
	DPadN DPad = iota
	DPadNE
	DPadE
	DPadSE
	DPadS
	DPadSW
	DPadW
	DPadNW
	DPadNeutral
)

// Buttons is the 14-bit button bitmask. Bit order follows the wire layout:
// face buttons in the high nibble of byte 5, shoulder/menu buttons in
// byte 6, PS and touchpad click in the low bits of byte 7.
type Buttons uint16

const (
	ButtonSquare Buttons = 1 << iota
	ButtonCross
	ButtonCircle
	ButtonTriangle
	ButtonL1
	ButtonR1
	ButtonL2
	ButtonR2
	ButtonShare
	ButtonOptions
	ButtonL3
	ButtonR3
	ButtonPS
	ButtonTouchpad
)

var buttonNames = map[string]Buttons{
	"square":   ButtonSquare,
	"cross":    ButtonCross,
	"circle":   ButtonCircle,
	"triangle": ButtonTriangle,
	"l1":       ButtonL1,
	"r1":       ButtonR1,
	"l2":       ButtonL2,
	"r2":       ButtonR2,
	"share":    ButtonShare,
	"options":  ButtonOptions,
	"l3":       ButtonL3,
	"r3":       ButtonR3,
	"ps":       ButtonPS,
	"touchpad": ButtonTouchpad,
}

// ButtonByName resolves a lowercase button name to its bitmask.
func ButtonByName(name string) (Buttons, bool) {
	b, ok := buttonNames[name]
	return b, ok
}

var dpadNames = map[string]DPad{
	"n": DPadN, "ne": DPadNE, "e": DPadE, "se": DPadSE,
	"s": DPadS, "sw": DPadSW, "w": DPadW, "nw": DPadNW,
	"neutral": DPadNeutral,
}

// DPadByName resolves a lowercase compass direction to a DPad position.
func DPadByName(name string) (DPad, bool) {
	d, ok := dpadNames[name]
	return d, ok
}

// String lists the pressed buttons in wire bit order, joined with "+".
func (b Buttons) String() string {
	if b == 0 {
		return "none"
	}
	order := []struct {
		name string
		bit  Buttons
	}{
		{"square", ButtonSquare}, {"cross", ButtonCross},
		{"circle", ButtonCircle}, {"triangle", ButtonTriangle},
		{"l1", ButtonL1}, {"r1", ButtonR1}, {"l2", ButtonL2}, {"r2", ButtonR2},
		{"share", ButtonShare}, {"options", ButtonOptions},
		{"l3", ButtonL3}, {"r3", ButtonR3},
		{"ps", ButtonPS}, {"touchpad", ButtonTouchpad},
	}
	var names []string
	for _, e := range order {
		if b&e.bit != 0 {
			names = append(names, e.name)
		}
	}
	return strings.Join(names, "+")
}

// Neutral values.
const (
	StickNeutral   uint8 = 0x80
	BatteryFull    uint8 = 0xFF
	stateExtWired  uint8 = 0x08
	touchInactive        = 1 << 7
)

// Touchpad coordinate limits (12-bit fields).
const (
	TouchpadMaxX uint16 = 1919
	TouchpadMaxY uint16 = 941
)
