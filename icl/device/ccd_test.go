package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horiba-icl/icl-go/icl/faketest"
)

func TestCCD_GetTemperature(t *testing.T) {
	ccd, server := newTestCCD(t)

	server.SetHandler(func(s *faketest.Server, raw map[string]any) {
		if raw["command"] == "ccd_getChipTemperature" {
			_ = s.SendJSON(map[string]any{
				"id":      raw["id"],
				"command": raw["command"],
				"results": map[string]any{"temperature": -70.5},
				"errors":  []string{},
			})
			return
		}
		emptyResults(s, raw)
	})

	temp, err := ccd.GetTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -70.5, temp)
}

// SetRegionOfInterest rejects an out-of-range index before ever touching
// the wire.
func TestCCD_SetRegionOfInterest_RejectsInvalidIndexLocally(t *testing.T) {
	ccd, server := newTestCCD(t)

	server.SetHandler(func(s *faketest.Server, raw map[string]any) {
		t.Errorf("unexpected wire command %v for a locally-rejected ROI", raw["command"])
		emptyResults(s, raw)
	})

	err := ccd.SetRegionOfInterest(context.Background(), RegionOfInterest{
		Index: 0, OriginX: 0, OriginY: 0, Width: 100, Height: 100, BinX: 1, BinY: 1,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocalValidation))
}

func TestCCD_SetRegionOfInterest_ValidSendsOverWire(t *testing.T) {
	ccd, server := newTestCCD(t)

	var gotROI map[string]any
	server.SetHandler(func(s *faketest.Server, raw map[string]any) {
		if raw["command"] == "ccd_setRegionOfInterest" {
			gotROI = raw["parameters"].(map[string]any)
		}
		emptyResults(s, raw)
	})

	err := ccd.SetRegionOfInterest(context.Background(), RegionOfInterest{
		Index: 1, OriginX: 0, OriginY: 0, Width: 512, Height: 512, BinX: 2, BinY: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, gotROI)
	assert.EqualValues(t, 512, gotROI["width"])
	assert.EqualValues(t, 2, gotROI["binX"])
}

// A disabled trigger is sent over the wire as address/event/signalType ==
// -1, regardless of the values supplied (spec §4.7).
func TestCCD_SetTriggerInput_DisabledSendsSentinelValues(t *testing.T) {
	ccd, server := newTestCCD(t)

	var gotParams map[string]any
	server.SetHandler(func(s *faketest.Server, raw map[string]any) {
		if raw["command"] == "ccd_setTriggerIn" {
			gotParams = raw["parameters"].(map[string]any)
		}
		emptyResults(s, raw)
	})

	err := ccd.SetTriggerInput(context.Background(), TriggerInput{
		Enabled: false, Address: 7, Event: 3, SignalType: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, gotParams)
	assert.EqualValues(t, -1, gotParams["address"])
	assert.EqualValues(t, -1, gotParams["event"])
	assert.EqualValues(t, -1, gotParams["signalType"])
}

func TestCCD_GetTriggerInput_ParsesFourTuple(t *testing.T) {
	ccd, server := newTestCCD(t)

	server.SetHandler(func(s *faketest.Server, raw map[string]any) {
		if raw["command"] == "ccd_getTriggerIn" {
			_ = s.SendJSON(map[string]any{
				"id":      raw["id"],
				"command": raw["command"],
				"results": map[string]any{"enabled": true, "address": 1, "event": 2, "signalType": 3},
				"errors":  []string{},
			})
			return
		}
		emptyResults(s, raw)
	})

	trig, err := ccd.GetTriggerInput(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TriggerInput{Enabled: true, Address: 1, Event: 2, SignalType: 3}, trig)
}
