package ds4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		fx   Effects
	}{
		{"all off", Effects{}},
		{"rumble only", Effects{RumbleLeft: 0xFF, RumbleRight: 0x01}},
		{"lightbar", Effects{LEDRed: 0x10, LEDGreen: 0x20, LEDBlue: 0x30}},
		{"flash cadence", Effects{FlashOn: 0x40, FlashOff: 0x80}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := EncodeFeedbackReport(tc.fx)
			require.Len(t, b, FeedbackReportSize)
			got, err := DecodeFeedbackReport(b)
			require.NoError(t, err)
			assert.Equal(t, tc.fx, got)
		})
	}
}

func TestDecodeFeedbackOffsets(t *testing.T) {
	b := make([]byte, FeedbackReportSize)
	b[0] = ReportIDFeedback
	b[4] = 0x11 // small motor
	b[5] = 0x22 // large motor
	b[6], b[7], b[8] = 0xAA, 0xBB, 0xCC
	b[9], b[10] = 0x05, 0x06

	fx, err := DecodeFeedbackReport(b)
	require.NoError(t, err)
	assert.Equal(t, Effects{
		RumbleRight: 0x11, RumbleLeft: 0x22,
		LEDRed: 0xAA, LEDGreen: 0xBB, LEDBlue: 0xCC,
		FlashOn: 0x05, FlashOff: 0x06,
	}, fx)
}

func TestDecodeFeedbackErrors(t *testing.T) {
	_, err := DecodeFeedbackReport(make([]byte, 5))
	assert.Error(t, err)

	b := make([]byte, FeedbackReportSize)
	b[0] = 0x01
	_, err = DecodeFeedbackReport(b)
	assert.Error(t, err)
}
