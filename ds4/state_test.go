package ds4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeNeutralState(t *testing.T) {
	s := NewState()
	b := s.Encode(0, 0)

	require.Len(t, b, InputReportSize)
	assert.Equal(t, uint8(ReportIDInput), b[0])
	assert.Equal(t, StickNeutral, b[1])
	assert.Equal(t, StickNeutral, b[2])
	assert.Equal(t, StickNeutral, b[3])
	assert.Equal(t, StickNeutral, b[4])
	assert.Equal(t, uint8(DPadNeutral), b[5]&0x0F)
	assert.Equal(t, uint8(0), b[5]>>4, "no face buttons")
	assert.Equal(t, uint8(0), b[6], "no shoulder buttons")
	assert.Equal(t, uint8(0), b[8], "L2 released")
	assert.Equal(t, uint8(0), b[9], "R2 released")
	assert.Equal(t, BatteryFull, b[12])
	assert.Equal(t, uint8(0x08), b[30], "wired state")
	assert.Equal(t, uint8(1), b[33], "one touch frame")
	assert.Equal(t, uint8(touchInactive), b[35]&0x80, "touch 0 inactive")
	assert.Equal(t, uint8(touchInactive), b[39]&0x80, "touch 1 inactive")
}

func TestEncodeCounterAndButtons(t *testing.T) {
	cases := []struct {
		name    string
		buttons Buttons
		dpad    DPad
		counter uint8
		want5   uint8
		want6   uint8
		want7   uint8
	}{
		{"all released", 0, DPadNeutral, 0, 0x08, 0x00, 0x00},
		{"cross", ButtonCross, DPadNeutral, 0, 0x28, 0x00, 0x00},
		{"face buttons and north", ButtonSquare | ButtonTriangle, DPadN, 0, 0x90, 0x00, 0x00},
		{"shoulder byte", ButtonL1 | ButtonOptions, DPadNeutral, 0, 0x08, 0x21, 0x00},
		{"ps and touchpad", ButtonPS | ButtonTouchpad, DPadNeutral, 0, 0x08, 0x00, 0x03},
		{"counter packs above ps bits", ButtonPS, DPadNeutral, 0x3F, 0x08, 0x00, 0xFD},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewState()
			s.Buttons = tc.buttons
			s.DPad = tc.dpad
			b := s.Encode(tc.counter, 0)
			assert.Equal(t, tc.want5, b[5], "byte 5")
			assert.Equal(t, tc.want6, b[6], "byte 6")
			assert.Equal(t, tc.want7, b[7], "byte 7")
		})
	}
}

func TestInputReportRoundTrip(t *testing.T) {
	s := NewState()
	s.LX, s.LY, s.RX, s.RY = 0x00, 0xFF, 0x12, 0xCD
	s.DPad = DPadSW
	s.Buttons = ButtonCross | ButtonR2 | ButtonShare | ButtonTouchpad
	s.L2, s.R2 = 0x40, 0xFF
	s.SensorTimestamp = 0xBEEF
	s.Gyro = [3]int16{-100, 200, -32768}
	s.Accel = [3]int16{1, -1, 8192}
	s.Touch[0] = Touch{X: 1919, Y: 941, Active: true, ID: 0x55}
	s.Touch[1] = Touch{X: 10, Y: 20, Active: false, ID: 3}

	b := s.Encode(0x2A, 0x11)
	got, counter, touchSeq, err := DecodeInputReport(b)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, uint8(0x2A), counter)
	assert.Equal(t, uint8(0x11), touchSeq)
}

func TestDecodeInputReportErrors(t *testing.T) {
	_, _, _, err := DecodeInputReport(make([]byte, 10))
	assert.Error(t, err)

	st := NewState()
	b := st.Encode(0, 0)
	b[0] = 0x7F
	_, _, _, err = DecodeInputReport(b)
	assert.Error(t, err)
}

func TestTouchEncoding(t *testing.T) {
	v := encodeTouch(Touch{X: 1919, Y: 941, Active: true, ID: 0x7F})
	got := decodeTouch(v)
	assert.Equal(t, uint16(1919), got.X)
	assert.Equal(t, uint16(941), got.Y)
	assert.True(t, got.Active)
	assert.Equal(t, uint8(0x7F), got.ID)

	inactive := decodeTouch(encodeTouch(Touch{Active: false, ID: 5}))
	assert.False(t, inactive.Active)
	assert.Equal(t, uint8(5), inactive.ID)
}
