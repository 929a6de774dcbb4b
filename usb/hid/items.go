// Package hid provides a structured representation of HID report descriptors.
//
// A HID report descriptor is a byte-coded DSL. This package models it as a
// tree of Go structs (including nested collections) and encodes it to the
// exact descriptor byte stream.
package hid

import (
	"fmt"
)

// Data is a strongly-typed byte slice used for HID report descriptor payloads.
type Data []uint8

// ItemType is the HID short item "type" field.
// See HID 1.11 spec: Main=0, Global=1, Local=2, Reserved=3.
type ItemType uint8

const (
	ItemTypeMain     ItemType = 0
	ItemTypeGlobal   ItemType = 1
	ItemTypeLocal    ItemType = 2
	ItemTypeReserved ItemType = 3
)

// Item is one node in a HID report descriptor.
type Item interface {
	encode(e *encoder) error
}

// Report is a complete HID report descriptor (type 0x22).
type Report struct {
	Items []Item
}

// Bytes encodes the report descriptor.
func (r Report) Bytes() (Data, error) {
	e := &encoder{}
	for _, it := range r.Items {
		if it == nil {
			return nil, fmt.Errorf("hid: nil item")
		}
		if err := it.encode(e); err != nil {
			return nil, err
		}
	}
	return Data(e.buf), nil
}

type encoder struct {
	buf []byte
}

func (e *encoder) short(tag uint8, typ ItemType, data Data) error {
	n := len(data)
	var sizeCode uint8
	switch n {
	case 0:
		sizeCode = 0
	case 1:
		sizeCode = 1
	case 2:
		sizeCode = 2
	case 4:
		sizeCode = 3
	default:
		return fmt.Errorf("hid: short item data must be 0/1/2/4 bytes, got %d", n)
	}
	header := (tag << 4) | (uint8(typ) << 2) | sizeCode
	e.buf = append(e.buf, header)
	e.buf = append(e.buf, data...)
	return nil
}

func dataU32(v uint32) Data {
	if v <= 0xFF {
		return Data{uint8(v)}
	}
	if v <= 0xFFFF {
		return Data{uint8(v), uint8(v >> 8)}
	}
	return Data{uint8(v), uint8(v >> 8), uint8(v >> 16), uint8(v >> 24)}
}

func dataI32(v int32) Data {
	if v >= -128 && v <= 127 {
		return Data{uint8(v)}
	}
	if v >= -32768 && v <= 32767 {
		uv := uint16(int16(v))
		return Data{uint8(uv), uint8(uv >> 8)}
	}
	uv := uint32(v)
	return Data{uint8(uv), uint8(uv >> 8), uint8(uv >> 16), uint8(uv >> 24)}
}

// Well-known usage pages.
const (
	UsagePageGenericDesktop uint32 = 0x01
	UsagePageButton         uint32 = 0x09
	UsagePageVendor         uint32 = 0xFF00
)

// Generic desktop usages.
const (
	UsageGamePad uint32 = 0x05
	UsageX       uint32 = 0x30
	UsageY       uint32 = 0x31
	UsageZ       uint32 = 0x32
	UsageRx      uint32 = 0x33
	UsageRy      uint32 = 0x34
	UsageRz      uint32 = 0x35
	UsageHat     uint32 = 0x39
)

// Main item flag bits for Input/Output/Feature items.
const (
	MainData      uint32 = 0x00
	MainConst     uint32 = 0x01
	MainVar       uint32 = 0x02
	MainAbs       uint32 = 0x00
	MainRel       uint32 = 0x04
	MainNullState uint32 = 0x40
)

// Collection kinds.
const (
	CollectionPhysical    uint8 = 0x00
	CollectionApplication uint8 = 0x01
	CollectionLogical     uint8 = 0x02
)

// Global items.

type UsagePage struct{ Page uint32 }

func (i UsagePage) encode(e *encoder) error { return e.short(0x0, ItemTypeGlobal, dataU32(i.Page)) }

type LogicalMinimum struct{ Min int32 }

func (i LogicalMinimum) encode(e *encoder) error {
	return e.short(0x1, ItemTypeGlobal, dataI32(i.Min))
}

type LogicalMaximum struct{ Max int32 }

func (i LogicalMaximum) encode(e *encoder) error {
	return e.short(0x2, ItemTypeGlobal, dataI32(i.Max))
}

type PhysicalMinimum struct{ Min int32 }

func (i PhysicalMinimum) encode(e *encoder) error {
	return e.short(0x3, ItemTypeGlobal, dataI32(i.Min))
}

type PhysicalMaximum struct{ Max int32 }

func (i PhysicalMaximum) encode(e *encoder) error {
	return e.short(0x4, ItemTypeGlobal, dataI32(i.Max))
}

type UnitExponent struct{ Exp uint8 }

func (i UnitExponent) encode(e *encoder) error {
	return e.short(0x5, ItemTypeGlobal, Data{i.Exp})
}

type Unit struct{ Unit uint32 }

func (i Unit) encode(e *encoder) error { return e.short(0x6, ItemTypeGlobal, dataU32(i.Unit)) }

type ReportSize struct{ Bits uint32 }

func (i ReportSize) encode(e *encoder) error { return e.short(0x7, ItemTypeGlobal, dataU32(i.Bits)) }

type ReportID struct{ ID uint8 }

func (i ReportID) encode(e *encoder) error { return e.short(0x8, ItemTypeGlobal, Data{i.ID}) }

type ReportCount struct{ Count uint32 }

func (i ReportCount) encode(e *encoder) error {
	return e.short(0x9, ItemTypeGlobal, dataU32(i.Count))
}

// Local items.

type Usage struct{ Usage uint32 }

func (i Usage) encode(e *encoder) error { return e.short(0x0, ItemTypeLocal, dataU32(i.Usage)) }

type UsageMinimum struct{ Min uint32 }

func (i UsageMinimum) encode(e *encoder) error { return e.short(0x1, ItemTypeLocal, dataU32(i.Min)) }

type UsageMaximum struct{ Max uint32 }

func (i UsageMaximum) encode(e *encoder) error { return e.short(0x2, ItemTypeLocal, dataU32(i.Max)) }

// Main items.

type Input struct{ Flags uint32 }

func (i Input) encode(e *encoder) error { return e.short(0x8, ItemTypeMain, dataU32(i.Flags)) }

type Output struct{ Flags uint32 }

func (i Output) encode(e *encoder) error { return e.short(0x9, ItemTypeMain, dataU32(i.Flags)) }

type Feature struct{ Flags uint32 }

func (i Feature) encode(e *encoder) error { return e.short(0xB, ItemTypeMain, dataU32(i.Flags)) }

// Collection encodes a collection item, its children, and the matching end
// collection item.
type Collection struct {
	Kind  uint8
	Items []Item
}

func (c Collection) encode(e *encoder) error {
	if err := e.short(0xA, ItemTypeMain, Data{c.Kind}); err != nil {
		return err
	}
	for _, it := range c.Items {
		if it == nil {
			return fmt.Errorf("hid: nil item in collection")
		}
		if err := it.encode(e); err != nil {
			return err
		}
	}
	return e.short(0xC, ItemTypeMain, nil)
}

// AnyItem is an escape hatch for rarely used or vendor-defined items.
//
// For short items, Data must have length 0, 1, 2, or 4.
type AnyItem struct {
	Type ItemType
	Tag  uint8
	Data Data
}

func (a AnyItem) encode(e *encoder) error { return e.short(a.Tag, a.Type, a.Data) }
