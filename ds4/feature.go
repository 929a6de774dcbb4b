package ds4

import (
	"encoding/binary"
)

// Feature flag bits reported in the capability configuration report.
const (
	featureAlwaysOn uint8 = 1 << 0
	featureMotion   uint8 = 1 << 1
	featureLED      uint8 = 1 << 2
	featureRumble   uint8 = 1 << 3
	featureTouchpad uint8 = 1 << 6
)

// FeatureConf describes which controller capabilities are advertised to the
// host via feature report 0x03.
type FeatureConf struct {
	Touchpad bool
	Motion   bool
	LED      bool
	Rumble   bool // implies LED on the wire
}

// DefaultFeatureConf advertises the full third-party controller feature set.
func DefaultFeatureConf() FeatureConf {
	return FeatureConf{Touchpad: true, Motion: true, LED: true, Rumble: true}
}

// Encode builds the 48-byte capability report. The unexplained constants
// match values observed on licensed third-party controllers.
func (c FeatureConf) Encode() []byte {
	b := make([]byte, FeatureConfSize)
	b[0] = ReportIDFeatureConf
	binary.LittleEndian.PutUint16(b[1:3], 0x2721) // HID usage
	b[3] = 0x04

	features := featureAlwaysOn
	if c.Touchpad {
		features |= featureTouchpad
		b[6] = 0x2C // touchpad parameters
		b[7] = 0x56
	}
	if c.Motion {
		features |= featureMotion
		binary.LittleEndian.PutUint16(b[8:10], 4000) // gyro range, deg/s
		binary.LittleEndian.PutUint16(b[10:12], 61)  // gyro resolution denominator
		binary.LittleEndian.PutUint16(b[12:14], 1000)
		binary.LittleEndian.PutUint16(b[14:16], 1) // accel range, g
		binary.LittleEndian.PutUint16(b[16:18], 8192)
	}
	if c.LED || c.Rumble {
		features |= featureLED
	}
	if c.Rumble {
		features |= featureRumble
	}
	b[4] = features
	b[5] = 0x00 // controller type: main controller

	binary.LittleEndian.PutUint16(b[18:20], 0x0D0D)
	return b
}
