package functionfs

import (
	"encoding/binary"
	"fmt"
)

// EventType enumerates the ep0 lifecycle notifications delivered by the
// kernel. Values match the usb_functionfs_event_type enum.
type EventType uint8

const (
	EventBind EventType = iota
	EventUnbind
	EventEnable
	EventDisable
	EventSetup
	EventSuspend
	EventResume
)

func (t EventType) String() string {
	switch t {
	case EventBind:
		return "bind"
	case EventUnbind:
		return "unbind"
	case EventEnable:
		return "enable"
	case EventDisable:
		return "disable"
	case EventSetup:
		return "setup"
	case EventSuspend:
		return "suspend"
	case EventResume:
		return "resume"
	}
	return fmt.Sprintf("event(%d)", uint8(t))
}

// Setup is a decoded USB control request header.
type Setup struct {
	BmRequestType uint8
	BRequest      uint8
	WValue        uint16
	WIndex        uint16
	WLength       uint16
}

// DirIn reports whether the data stage flows device-to-host.
func (s Setup) DirIn() bool { return s.BmRequestType&0x80 != 0 }

// Event is one decoded usb_functionfs_event. Setup is only meaningful for
// EventSetup.
type Event struct {
	Type  EventType
	Setup Setup
}

// EventSize is the wire size of usb_functionfs_event: an 8-byte setup
// packet, the type byte, and 3 bytes of padding.
const EventSize = 12

// DecodeEvent parses one kernel event record.
func DecodeEvent(b []byte) (Event, error) {
	if len(b) < EventSize {
		return Event{}, fmt.Errorf("functionfs: short event: %d bytes", len(b))
	}
	return Event{
		Type: EventType(b[8]),
		Setup: Setup{
			BmRequestType: b[0],
			BRequest:      b[1],
			WValue:        binary.LittleEndian.Uint16(b[2:4]),
			WIndex:        binary.LittleEndian.Uint16(b[4:6]),
			WLength:       binary.LittleEndian.Uint16(b[6:8]),
		},
	}, nil
}
