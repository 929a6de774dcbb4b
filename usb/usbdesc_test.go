package usb

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor() *Descriptor {
	return &Descriptor{
		Device: DeviceDescriptor{
			BcdUSB:             0x0200,
			BMaxPacketSize0:    64,
			IDVendor:           0x1234,
			IDProduct:          0x5678,
			BNumConfigurations: 1,
		},
		Config: ConfigDescriptor{BConfigurationValue: 1, BMAttributes: 0x80, BMaxPower: 250},
		Interfaces: []InterfaceConfig{
			{
				Descriptor: InterfaceDescriptor{BNumEndpoints: 2, BInterfaceClass: 0x03},
				HID:        &HIDDescriptor{BcdHID: 0x0111},
				HIDReport:  []byte{0x05, 0x01, 0x09, 0x05, 0xA1, 0x01, 0xC0},
				Endpoints: []EndpointDescriptor{
					{BEndpointAddress: 0x81, BMAttributes: 0x03, WMaxPacketSize: 64, BInterval: 4, BIntervalHS: 6},
					{BEndpointAddress: 0x02, BMAttributes: 0x03, WMaxPacketSize: 64, BInterval: 4, BIntervalHS: 6},
				},
			},
		},
		Strings: []string{"Maker", "Gadget"},
	}
}

func TestBuildPatchesTotalLength(t *testing.T) {
	set, err := testDescriptor().Build()
	require.NoError(t, err)

	total := binary.LittleEndian.Uint16(set.Configuration[2:4])
	assert.Equal(t, uint16(len(set.Configuration)), total)
	assert.Equal(t, ConfigDescLen+len(set.Function), len(set.Configuration))
}

func TestBuildFunctionLayout(t *testing.T) {
	set, err := testDescriptor().Build()
	require.NoError(t, err)

	// interface (9) + hid (9) + 2 endpoints (7 each)
	require.Len(t, set.Function, 9+9+7+7)
	assert.Equal(t, uint8(InterfaceDescType), set.Function[1])
	assert.Equal(t, uint8(HIDDescType), set.Function[10])

	// HID descriptor carries the report descriptor length.
	reportLen := binary.LittleEndian.Uint16(set.Function[16:18])
	assert.Equal(t, uint16(len(set.Report)), reportLen)
}

func TestBuildSpeedIntervals(t *testing.T) {
	set, err := testDescriptor().Build()
	require.NoError(t, err)

	// Full-speed and high-speed trees differ only in the endpoint interval.
	fsEp := set.Function[18:25]
	hsEp := set.FunctionHS[18:25]
	assert.Equal(t, uint8(4), fsEp[6])
	assert.Equal(t, uint8(6), hsEp[6])
	assert.Equal(t, fsEp[:6], hsEp[:6])
}

func TestBuildStrings(t *testing.T) {
	set, err := testDescriptor().Build()
	require.NoError(t, err)

	require.Len(t, set.Strings, 3)
	assert.Equal(t, []byte{4, StringDescType, 0x09, 0x04}, set.Strings[0], "langid table")

	maker := set.Strings[1]
	assert.Equal(t, uint8(len(maker)), maker[0])
	assert.Equal(t, uint8(StringDescType), maker[1])
	assert.Equal(t, byte('M'), maker[2])
	assert.Equal(t, byte(0), maker[3], "UTF-16LE")
}

func TestBuildDeterministic(t *testing.T) {
	a, err := testDescriptor().Build()
	require.NoError(t, err)
	b, err := testDescriptor().Build()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildErrors(t *testing.T) {
	t.Run("no interfaces", func(t *testing.T) {
		d := testDescriptor()
		d.Interfaces = nil
		_, err := d.Build()
		assert.ErrorIs(t, err, ErrMalformedDescriptor)
	})

	t.Run("string too long", func(t *testing.T) {
		d := testDescriptor()
		d.Strings = []string{strings.Repeat("x", 200)}
		_, err := d.Build()
		assert.ErrorIs(t, err, ErrMalformedDescriptor)
	})

	t.Run("too many endpoints", func(t *testing.T) {
		d := testDescriptor()
		d.Interfaces[0].Endpoints = make([]EndpointDescriptor, 31)
		_, err := d.Build()
		assert.ErrorIs(t, err, ErrMalformedDescriptor)
	})
}

func TestEncodeStringDescriptor(t *testing.T) {
	enc, err := EncodeStringDescriptor("AB")
	require.NoError(t, err)
	assert.Equal(t, []byte{6, StringDescType, 'A', 0, 'B', 0}, enc)

	_, err = EncodeStringDescriptor(strings.Repeat("y", 127))
	assert.ErrorIs(t, err, ErrMalformedDescriptor)
}
