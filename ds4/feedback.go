package ds4

import (
	"fmt"
)

// Effects is the host-controlled feedback state: rumble motors, lightbar
// color and flash cadence. It lives beside the input State and is only ever
// written by the output consumer.
type Effects struct {
	RumbleRight uint8 // small motor
	RumbleLeft  uint8 // large motor
	LEDRed      uint8
	LEDGreen    uint8
	LEDBlue     uint8
	FlashOn     uint8 // units of 2.5ms
	FlashOff    uint8 // units of 2.5ms
}

// Feedback report field offsets.
const (
	fbOffsetFlags       = 1
	fbOffsetRumbleRight = 4
	fbOffsetRumbleLeft  = 5
	fbOffsetLED         = 6
	fbOffsetFlashOn     = 9
	fbOffsetFlashOff    = 10
)

// DecodeFeedbackReport parses a 32-byte host feedback report (report 0x05).
func DecodeFeedbackReport(b []byte) (Effects, error) {
	var e Effects
	if len(b) != FeedbackReportSize {
		return e, fmt.Errorf("ds4: feedback report must be %d bytes, got %d", FeedbackReportSize, len(b))
	}
	if b[0] != ReportIDFeedback {
		return e, fmt.Errorf("ds4: unexpected report ID 0x%02x", b[0])
	}
	e.RumbleRight = b[fbOffsetRumbleRight]
	e.RumbleLeft = b[fbOffsetRumbleLeft]
	e.LEDRed = b[fbOffsetLED]
	e.LEDGreen = b[fbOffsetLED+1]
	e.LEDBlue = b[fbOffsetLED+2]
	e.FlashOn = b[fbOffsetFlashOn]
	e.FlashOff = b[fbOffsetFlashOff]
	return e, nil
}

// EncodeFeedbackReport builds the wire form of an Effects value. The gadget
// itself never sends these; this is for tests and host-side tooling.
func EncodeFeedbackReport(e Effects) []byte {
	b := make([]byte, FeedbackReportSize)
	b[0] = ReportIDFeedback
	b[fbOffsetFlags] = 0xF7
	b[fbOffsetRumbleRight] = e.RumbleRight
	b[fbOffsetRumbleLeft] = e.RumbleLeft
	b[fbOffsetLED] = e.LEDRed
	b[fbOffsetLED+1] = e.LEDGreen
	b[fbOffsetLED+2] = e.LEDBlue
	b[fbOffsetFlashOn] = e.FlashOn
	b[fbOffsetFlashOff] = e.FlashOff
	return b
}
