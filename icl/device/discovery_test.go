package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceList_Structured(t *testing.T) {
	results := map[string]any{
		"devices": []any{
			map[string]any{"index": float64(0), "deviceType": "Synapse"},
			map[string]any{"index": float64(1), "deviceType": "iHR320"},
		},
	}

	descriptors, path, err := parseDeviceList(results)
	require.NoError(t, err)
	assert.Equal(t, "structured", path)
	require.Len(t, descriptors, 2)
	assert.Equal(t, 0, descriptors[0].index)
	assert.Equal(t, "Synapse", descriptors[0].deviceType)
	assert.Equal(t, 1, descriptors[1].index)
	assert.Equal(t, "iHR320", descriptors[1].deviceType)
}

func TestParseDeviceList_LegacyObjectOfStrings(t *testing.T) {
	results := map[string]any{
		"count":  float64(1),
		"index0": "deviceType: Synapse, serialNumber: 1234",
	}

	descriptors, path, err := parseDeviceList(results)
	require.NoError(t, err)
	assert.Equal(t, "legacy", path)
	require.Len(t, descriptors, 1)
	assert.Equal(t, 0, descriptors[0].index)
	assert.Equal(t, "Synapse", descriptors[0].deviceType)
}

func TestParseDeviceList_LegacyMissingDeviceType(t *testing.T) {
	results := map[string]any{
		"index0": "serialNumber: 1234",
	}

	_, _, err := parseDeviceList(results)
	assert.Error(t, err)
}
