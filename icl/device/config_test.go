package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfig() *CCDConfiguration {
	return &CCDConfiguration{
		ChipWidth:   1024,
		ChipHeight:  256,
		GainTokens:  []int{0, 1, 2},
		SpeedTokens: []int{0, 1},
		Triggers: []TriggerSignalDescriptor{
			{Token: 0, Events: []int{0, 1}, SignalTypes: []int{0}},
		},
		Signals: []TriggerSignalDescriptor{
			{Token: 0, Events: []int{0}, SignalTypes: []int{0, 1}},
		},
	}
}

// Invariant 9: setting a trigger with an address absent from the
// configuration fails locally, before dispatch.
func TestValidateTrigger_UnknownAddressFailsLocally(t *testing.T) {
	cfg := testConfig()
	err := cfg.ValidateTrigger(true, 99, 0, 0)
	assert.ErrorIs(t, err, ErrLocalValidation)
}

func TestValidateTrigger_KnownAddressPasses(t *testing.T) {
	cfg := testConfig()
	assert.NoError(t, cfg.ValidateTrigger(true, 0, 1, 0))
}

func TestValidateTrigger_DisabledAlwaysPasses(t *testing.T) {
	cfg := testConfig()
	assert.NoError(t, cfg.ValidateTrigger(false, 99, 99, 99))
}

func TestValidateTrigger_UnknownEventFails(t *testing.T) {
	cfg := testConfig()
	err := cfg.ValidateTrigger(true, 0, 5, 0)
	assert.ErrorIs(t, err, ErrLocalValidation)
}

func TestValidateGainToken(t *testing.T) {
	cfg := testConfig()
	assert.NoError(t, cfg.ValidateGainToken(1))
	assert.ErrorIs(t, cfg.ValidateGainToken(99), ErrLocalValidation)
}

func TestValidateSignal(t *testing.T) {
	cfg := testConfig()
	assert.NoError(t, cfg.ValidateSignal(true, 0, 0, 1))
	assert.ErrorIs(t, cfg.ValidateSignal(true, 0, 0, 99), ErrLocalValidation)
}
