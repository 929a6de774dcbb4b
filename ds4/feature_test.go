package ds4

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureConfEncode(t *testing.T) {
	b := DefaultFeatureConf().Encode()
	require.Len(t, b, FeatureConfSize)

	assert.Equal(t, uint8(ReportIDFeatureConf), b[0])
	assert.Equal(t, uint16(0x2721), binary.LittleEndian.Uint16(b[1:3]))
	assert.Equal(t, uint8(0x04), b[3])
	assert.Equal(t, featureAlwaysOn|featureMotion|featureLED|featureRumble|featureTouchpad, b[4])
	assert.Equal(t, uint8(0x2C), b[6])
	assert.Equal(t, uint8(0x56), b[7])
	assert.Equal(t, uint16(0x0D0D), binary.LittleEndian.Uint16(b[18:20]))
}

func TestFeatureConfFlags(t *testing.T) {
	cases := []struct {
		name string
		conf FeatureConf
		want uint8
	}{
		{"bare", FeatureConf{}, featureAlwaysOn},
		{"motion only", FeatureConf{Motion: true}, featureAlwaysOn | featureMotion},
		{"rumble implies led", FeatureConf{Rumble: true}, featureAlwaysOn | featureLED | featureRumble},
		{"led only", FeatureConf{LED: true}, featureAlwaysOn | featureLED},
		{"touchpad", FeatureConf{Touchpad: true}, featureAlwaysOn | featureTouchpad},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.conf.Encode()[4])
		})
	}
}
