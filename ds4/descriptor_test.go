package ds4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorBuilds(t *testing.T) {
	desc, err := Descriptor(DefaultDescriptorConfig())
	require.NoError(t, err)

	set, err := desc.Build()
	require.NoError(t, err)

	assert.Len(t, set.Device, 18)
	assert.Equal(t, uint8(0x054C&0xFF), set.Device[8], "vendor ID low byte")
	assert.Equal(t, uint8(0x054C>>8), set.Device[9], "vendor ID high byte")
	assert.NotEmpty(t, set.Report)
	assert.Len(t, set.Strings, 3, "langid table plus two strings")
}

func TestDescriptorDeterministic(t *testing.T) {
	desc1, err := Descriptor(DefaultDescriptorConfig())
	require.NoError(t, err)
	desc2, err := Descriptor(DefaultDescriptorConfig())
	require.NoError(t, err)

	set1, err := desc1.Build()
	require.NoError(t, err)
	set2, err := desc2.Build()
	require.NoError(t, err)

	assert.Equal(t, set1, set2)
}

func TestDescriptorTurboInterval(t *testing.T) {
	stock, err := Descriptor(DefaultDescriptorConfig())
	require.NoError(t, err)

	turboCfg := DefaultDescriptorConfig()
	turboCfg.Turbo = true
	turbo, err := Descriptor(turboCfg)
	require.NoError(t, err)

	assert.Equal(t, uint8(4), stock.Interfaces[0].Endpoints[0].BInterval)
	assert.Equal(t, uint8(1), turbo.Interfaces[0].Endpoints[0].BInterval)
	assert.Equal(t, uint8(4), turbo.Interfaces[0].Endpoints[0].BIntervalHS)
}

func TestDescriptorEndpoints(t *testing.T) {
	desc, err := Descriptor(DefaultDescriptorConfig())
	require.NoError(t, err)

	eps := desc.Interfaces[0].Endpoints
	require.Len(t, eps, 2)
	assert.Equal(t, uint8(EndpointIn), eps[0].BEndpointAddress)
	assert.Equal(t, uint8(EndpointOut), eps[1].BEndpointAddress)
	assert.Equal(t, uint8(0x03), eps[0].BMAttributes, "interrupt transfer")
	assert.Equal(t, uint16(64), eps[0].WMaxPacketSize)
}
