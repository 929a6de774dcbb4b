// Package usb contains helpers for building USB descriptors and data.
package usb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// USB descriptor type constants
const (
	DeviceDescType    = 0x01
	ConfigDescType    = 0x02
	StringDescType    = 0x03
	InterfaceDescType = 0x04
	EndpointDescType  = 0x05
	HIDDescType       = 0x21
	ReportDescType    = 0x22
)

// Descriptor lengths in bytes (fixed values from USB spec)
const (
	DeviceDescLen    = 18
	ConfigDescLen    = 9
	InterfaceDescLen = 9
	EndpointDescLen  = 7
	HIDDescLen       = 9
)

// ErrMalformedDescriptor is returned when a computed descriptor length does
// not fit the protocol field that carries it.
var ErrMalformedDescriptor = errors.New("usb: malformed descriptor")

// Descriptor holds all static descriptor/config data for a device.
type Descriptor struct {
	Device     DeviceDescriptor
	Config     ConfigDescriptor
	Interfaces []InterfaceConfig
	Strings    []string // string descriptor table, index 1 = Strings[0]
}

// InterfaceConfig holds all descriptors for a single interface.
type InterfaceConfig struct {
	Descriptor InterfaceDescriptor
	HID        *HIDDescriptor
	HIDReport  []byte // HID report descriptor bytes (0x22)
	Endpoints  []EndpointDescriptor
}

// DeviceDescriptor represents the standard USB device descriptor.
// BLength is computed dynamically; BDescriptorType is implied DeviceDescType.
type DeviceDescriptor struct {
	BcdUSB             uint16 // LE
	BDeviceClass       uint8
	BDeviceSubClass    uint8
	BDeviceProtocol    uint8
	BMaxPacketSize0    uint8
	IDVendor           uint16 // LE
	IDProduct          uint16 // LE
	BcdDevice          uint16 // LE
	IManufacturer      uint8
	IProduct           uint8
	ISerialNumber      uint8
	BNumConfigurations uint8
}

func (d DeviceDescriptor) Bytes() []byte {
	var b bytes.Buffer
	b.WriteByte(DeviceDescLen)
	b.WriteByte(DeviceDescType)
	_ = binary.Write(&b, binary.LittleEndian, d.BcdUSB)
	b.WriteByte(d.BDeviceClass)
	b.WriteByte(d.BDeviceSubClass)
	b.WriteByte(d.BDeviceProtocol)
	b.WriteByte(d.BMaxPacketSize0)
	_ = binary.Write(&b, binary.LittleEndian, d.IDVendor)
	_ = binary.Write(&b, binary.LittleEndian, d.IDProduct)
	_ = binary.Write(&b, binary.LittleEndian, d.BcdDevice)
	b.WriteByte(d.IManufacturer)
	b.WriteByte(d.IProduct)
	b.WriteByte(d.ISerialNumber)
	b.WriteByte(d.BNumConfigurations)
	return b.Bytes()
}

// ConfigDescriptor represents the USB configuration descriptor header
// (9 bytes). WTotalLength is patched after the interface tree is built.
type ConfigDescriptor struct {
	BConfigurationValue uint8
	IConfiguration      uint8
	BMAttributes        uint8
	BMaxPower           uint8 // in units of 2mA
}

func (c ConfigDescriptor) write(b *bytes.Buffer, totalLength uint16, numInterfaces uint8) {
	b.WriteByte(ConfigDescLen)
	b.WriteByte(ConfigDescType)
	_ = binary.Write(b, binary.LittleEndian, totalLength)
	b.WriteByte(numInterfaces)
	b.WriteByte(c.BConfigurationValue)
	b.WriteByte(c.IConfiguration)
	b.WriteByte(c.BMAttributes)
	b.WriteByte(c.BMaxPower)
}

// InterfaceDescriptor (9 bytes) for each interface altsetting.
type InterfaceDescriptor struct {
	BInterfaceNumber   uint8
	BAlternateSetting  uint8
	BNumEndpoints      uint8
	BInterfaceClass    uint8
	BInterfaceSubClass uint8
	BInterfaceProtocol uint8
	IInterface         uint8
}

func (i InterfaceDescriptor) Write(b *bytes.Buffer) {
	b.WriteByte(InterfaceDescLen)
	b.WriteByte(InterfaceDescType)
	b.WriteByte(i.BInterfaceNumber)
	b.WriteByte(i.BAlternateSetting)
	b.WriteByte(i.BNumEndpoints)
	b.WriteByte(i.BInterfaceClass)
	b.WriteByte(i.BInterfaceSubClass)
	b.WriteByte(i.BInterfaceProtocol)
	b.WriteByte(i.IInterface)
}

// EndpointDescriptor (7 bytes) for each endpoint. BInterval applies to
// full-speed operation; BIntervalHS is the encoding used when the host
// enumerates the device at high speed (2^(n-1) microframes).
type EndpointDescriptor struct {
	BEndpointAddress uint8
	BMAttributes     uint8
	WMaxPacketSize   uint16 // LE
	BInterval        uint8
	BIntervalHS      uint8
}

// Speed selects which endpoint interval encoding a descriptor set is built
// with.
type Speed int

const (
	FullSpeed Speed = iota
	HighSpeed
)

func (e EndpointDescriptor) Write(b *bytes.Buffer, speed Speed) {
	interval := e.BInterval
	if speed == HighSpeed && e.BIntervalHS != 0 {
		interval = e.BIntervalHS
	}
	b.WriteByte(EndpointDescLen)
	b.WriteByte(EndpointDescType)
	b.WriteByte(e.BEndpointAddress)
	b.WriteByte(e.BMAttributes)
	_ = binary.Write(b, binary.LittleEndian, e.WMaxPacketSize)
	b.WriteByte(interval)
}

// HIDDescriptor (class descriptor, 0x21) with one subordinate report
// descriptor (0x22). WDescriptorLength is filled from the report bytes.
type HIDDescriptor struct {
	BcdHID       uint16 // LE
	BCountryCode uint8
}

func (h HIDDescriptor) Write(b *bytes.Buffer, reportLength uint16) {
	b.WriteByte(HIDDescLen)
	b.WriteByte(HIDDescType)
	_ = binary.Write(b, binary.LittleEndian, h.BcdHID)
	b.WriteByte(h.BCountryCode)
	b.WriteByte(0x01) // bNumDescriptors
	b.WriteByte(ReportDescType)
	_ = binary.Write(b, binary.LittleEndian, reportLength)
}

// DescriptorSet is the ready-to-transmit result of building a Descriptor.
// It never changes after Build returns; rebuilding from the same Descriptor
// yields identical bytes.
type DescriptorSet struct {
	Device        []byte
	Configuration []byte   // full configuration tree, wTotalLength patched
	Function      []byte   // interface + HID + endpoint descriptors only
	FunctionHS    []byte   // same, with high-speed endpoint intervals
	Report        []byte   // HID report descriptor
	Strings       [][]byte // encoded string descriptors, index 0 = langid table
}

// Build assembles all descriptor byte sequences. It is deterministic and has
// no side effects on d.
func (d *Descriptor) Build() (*DescriptorSet, error) {
	if len(d.Interfaces) == 0 {
		return nil, fmt.Errorf("%w: no interfaces", ErrMalformedDescriptor)
	}

	set := &DescriptorSet{Device: d.Device.Bytes()}

	fn, err := d.buildFunction(FullSpeed)
	if err != nil {
		return nil, err
	}
	fnHS, err := d.buildFunction(HighSpeed)
	if err != nil {
		return nil, err
	}
	set.Function = fn
	set.FunctionHS = fnHS
	set.Report = append([]byte(nil), d.Interfaces[0].HIDReport...)

	total := ConfigDescLen + len(fn)
	if total > 0xFFFF {
		return nil, fmt.Errorf("%w: configuration length %d", ErrMalformedDescriptor, total)
	}
	var cfg bytes.Buffer
	d.Config.write(&cfg, uint16(total), uint8(len(d.Interfaces)))
	cfg.Write(fn)
	set.Configuration = cfg.Bytes()

	set.Strings = make([][]byte, 0, len(d.Strings)+1)
	set.Strings = append(set.Strings, []byte{4, StringDescType, 0x09, 0x04}) // en-US langid table
	for _, s := range d.Strings {
		enc, err := EncodeStringDescriptor(s)
		if err != nil {
			return nil, err
		}
		set.Strings = append(set.Strings, enc)
	}
	return set, nil
}

func (d *Descriptor) buildFunction(speed Speed) ([]byte, error) {
	var b bytes.Buffer
	for _, intf := range d.Interfaces {
		if len(intf.Endpoints) > 30 {
			return nil, fmt.Errorf("%w: %d endpoints on interface %d",
				ErrMalformedDescriptor, len(intf.Endpoints), intf.Descriptor.BInterfaceNumber)
		}
		intf.Descriptor.Write(&b)
		if intf.HID != nil {
			if len(intf.HIDReport) > 0xFFFF {
				return nil, fmt.Errorf("%w: report descriptor length %d",
					ErrMalformedDescriptor, len(intf.HIDReport))
			}
			intf.HID.Write(&b, uint16(len(intf.HIDReport)))
		}
		for _, ep := range intf.Endpoints {
			ep.Write(&b, speed)
		}
	}
	return b.Bytes(), nil
}

// EncodeStringDescriptor converts a UTF-8 string to a USB string descriptor
// byte array:
//
//	Byte 0: bLength (total descriptor length)
//	Byte 1: bDescriptorType (0x03 for string)
//	Bytes 2+: UTF-16LE encoded string
func EncodeStringDescriptor(s string) ([]byte, error) {
	runes := []rune(s)
	if 2+len(runes)*2 > 0xFF {
		return nil, fmt.Errorf("%w: string %q too long", ErrMalformedDescriptor, s)
	}
	buf := make([]byte, 2+len(runes)*2)
	buf[0] = uint8(len(buf))
	buf[1] = StringDescType
	for i, r := range runes {
		buf[2+i*2] = uint8(r)
		buf[2+i*2+1] = uint8(r >> 8)
	}
	return buf, nil
}
