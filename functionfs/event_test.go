package functionfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		want Event
	}{
		{
			"bind",
			[]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			Event{Type: EventBind},
		},
		{
			"enable",
			[]byte{0, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0},
			Event{Type: EventEnable},
		},
		{
			"setup get report descriptor",
			[]byte{0x81, 0x06, 0x00, 0x22, 0x00, 0x00, 0x00, 0x02, 4, 0, 0, 0},
			Event{Type: EventSetup, Setup: Setup{
				BmRequestType: 0x81, BRequest: 0x06,
				WValue: 0x2200, WIndex: 0, WLength: 0x200,
			}},
		},
		{
			"setup set report",
			[]byte{0x21, 0x09, 0xF0, 0x03, 0x00, 0x00, 0x40, 0x00, 4, 0, 0, 0},
			Event{Type: EventSetup, Setup: Setup{
				BmRequestType: 0x21, BRequest: 0x09,
				WValue: 0x03F0, WLength: 0x40,
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeEvent(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeEventShort(t *testing.T) {
	_, err := DecodeEvent(make([]byte, 11))
	assert.Error(t, err)
}

func TestSetupDirection(t *testing.T) {
	assert.True(t, Setup{BmRequestType: 0x81}.DirIn())
	assert.True(t, Setup{BmRequestType: 0xA1}.DirIn())
	assert.False(t, Setup{BmRequestType: 0x21}.DirIn())
	assert.False(t, Setup{BmRequestType: 0x00}.DirIn())
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "setup", EventSetup.String())
	assert.Equal(t, "disable", EventDisable.String())
	assert.Equal(t, "event(42)", EventType(42).String())
}

func TestCountDescriptors(t *testing.T) {
	// Three length-prefixed descriptors: 9 + 7 + 7 bytes.
	blob := append([]byte{9, 4, 0, 0, 2, 3, 0, 0, 0}, []byte{7, 5, 0x81, 3, 64, 0, 4}...)
	blob = append(blob, []byte{7, 5, 0x02, 3, 64, 0, 4}...)
	assert.Equal(t, uint32(3), countDescriptors(blob))

	assert.Equal(t, uint32(0), countDescriptors(nil))
	assert.Equal(t, uint32(1), countDescriptors([]byte{2, 0, 0}), "trailing garbage stops the walk")
	assert.Equal(t, uint32(0), countDescriptors([]byte{0, 1, 2}), "zero length stops the walk")
}
