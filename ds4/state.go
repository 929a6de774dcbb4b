package ds4

import (
	"encoding/binary"
	"fmt"
)

// Touch is a single touchpad contact. ID is the 7-bit contact sequence
// number assigned when the contact begins.
type Touch struct {
	X, Y   uint16
	Active bool
	ID     uint8
}

// State is one consistent snapshot of the emulated controller. It is a
// plain value; the Tracker owns the live copy and hands out snapshots.
type State struct {
	LX, LY uint8
	RX, RY uint8

	DPad    DPad
	Buttons Buttons
	L2, R2  uint8

	SensorTimestamp uint16
	Battery         uint8
	Gyro            [3]int16
	Accel           [3]int16

	Touch [2]Touch
}

// NewState returns a snapshot with everything released: sticks centered,
// dpad neutral, battery full, no touches.
func NewState() State {
	return State{
		LX: StickNeutral, LY: StickNeutral,
		RX: StickNeutral, RY: StickNeutral,
		DPad:    DPadNeutral,
		Battery: BatteryFull,
	}
}

// Encode serializes the snapshot into a 64-byte input report. counter is the
// 6-bit rolling report index and touchSeq the touch frame sequence number;
// both come from the Tracker so that identical states still produce frames
// that differ only in those fields.
func (s *State) Encode(counter, touchSeq uint8) []byte {
	b := make([]byte, InputReportSize)

	b[0] = ReportIDInput
	b[1] = s.LX
	b[2] = s.LY
	b[3] = s.RX
	b[4] = s.RY

	b[5] = uint8(s.DPad)&0x0F | uint8(s.Buttons&0x0F)<<4
	b[6] = uint8(s.Buttons >> 4)
	b[7] = uint8(s.Buttons>>12)&0x03 | counter<<2

	b[8] = s.L2
	b[9] = s.R2

	binary.LittleEndian.PutUint16(b[10:12], s.SensorTimestamp)
	b[12] = s.Battery

	for i, v := range s.Gyro {
		binary.LittleEndian.PutUint16(b[13+i*2:], uint16(v))
	}
	for i, v := range s.Accel {
		binary.LittleEndian.PutUint16(b[19+i*2:], uint16(v))
	}

	b[30] = stateExtWired

	// One touch frame per report; unused frame slots stay invalidated.
	b[33] = 1
	b[34] = touchSeq
	binary.LittleEndian.PutUint32(b[35:39], encodeTouch(s.Touch[0]))
	binary.LittleEndian.PutUint32(b[39:43], encodeTouch(s.Touch[1]))
	binary.LittleEndian.PutUint32(b[44:48], touchInactive)
	binary.LittleEndian.PutUint32(b[48:52], touchInactive)
	binary.LittleEndian.PutUint32(b[53:57], touchInactive)
	binary.LittleEndian.PutUint32(b[57:61], touchInactive)

	return b
}

func encodeTouch(t Touch) uint32 {
	v := uint32(t.ID) & 0x7F
	if !t.Active {
		v |= touchInactive
	}
	v |= (uint32(t.X) & 0xFFF) << 8
	v |= (uint32(t.Y) & 0xFFF) << 20
	return v
}

func decodeTouch(v uint32) Touch {
	return Touch{
		ID:     uint8(v & 0x7F),
		Active: v&touchInactive == 0,
		X:      uint16(v>>8) & 0xFFF,
		Y:      uint16(v>>20) & 0xFFF,
	}
}

// DecodeInputReport parses a 64-byte input report back into a State plus the
// rolling counter and touch frame sequence. It is the inverse of Encode for
// every representable State.
func DecodeInputReport(b []byte) (State, uint8, uint8, error) {
	var s State
	if len(b) != InputReportSize {
		return s, 0, 0, fmt.Errorf("ds4: input report must be %d bytes, got %d", InputReportSize, len(b))
	}
	if b[0] != ReportIDInput {
		return s, 0, 0, fmt.Errorf("ds4: unexpected report ID 0x%02x", b[0])
	}

	s.LX, s.LY, s.RX, s.RY = b[1], b[2], b[3], b[4]
	s.DPad = DPad(b[5] & 0x0F)
	s.Buttons = Buttons(b[5]>>4) | Buttons(b[6])<<4 | Buttons(b[7]&0x03)<<12
	counter := b[7] >> 2
	s.L2, s.R2 = b[8], b[9]
	s.SensorTimestamp = binary.LittleEndian.Uint16(b[10:12])
	s.Battery = b[12]
	for i := range s.Gyro {
		s.Gyro[i] = int16(binary.LittleEndian.Uint16(b[13+i*2:]))
	}
	for i := range s.Accel {
		s.Accel[i] = int16(binary.LittleEndian.Uint16(b[19+i*2:]))
	}
	touchSeq := b[34]
	s.Touch[0] = decodeTouch(binary.LittleEndian.Uint32(b[35:39]))
	s.Touch[1] = decodeTouch(binary.LittleEndian.Uint32(b[39:43]))

	return s, counter, touchSeq, nil
}
