package device

import "fmt"

// TriggerSignalDescriptor describes one entry in a CCD's static trigger-input
// or signal-output table: an opaque token plus the events and signal types
// it supports. Token values are sensor-specific and must never be
// interpreted, only checked for membership (spec §4.7).
type TriggerSignalDescriptor struct {
	Token       int
	Events      []int
	SignalTypes []int
}

// CCDConfiguration caches a CCD's static description, populated lazily on
// first Open (spec §3, §4.7 "Configuration cache"). It is a hint for local
// validation, not a source of truth: when absent, validation is deferred
// to the ICL.
type CCDConfiguration struct {
	ChipWidth  int
	ChipHeight int
	GainTokens []int
	SpeedTokens []int
	Triggers   []TriggerSignalDescriptor
	Signals    []TriggerSignalDescriptor
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ValidateGainToken checks that token appears in the configuration's gain
// table. It does not interpret the token's meaning.
func (c *CCDConfiguration) ValidateGainToken(token int) error {
	if !containsInt(c.GainTokens, token) {
		return fmt.Errorf("%w: gain token %d not in device configuration", ErrLocalValidation, token)
	}
	return nil
}

// ValidateSpeedToken checks that token appears in the configuration's
// speed table.
func (c *CCDConfiguration) ValidateSpeedToken(token int) error {
	if !containsInt(c.SpeedTokens, token) {
		return fmt.Errorf("%w: speed token %d not in device configuration", ErrLocalValidation, token)
	}
	return nil
}

// ValidateTrigger checks address/event/signalType against the trigger
// descriptor table. Disabled triggers (enabled=false) are always valid and
// never checked, per the wire contract of sending -1 for the other three
// fields.
func (c *CCDConfiguration) ValidateTrigger(enabled bool, address, event, signalType int) error {
	if !enabled {
		return nil
	}
	return validateAgainstDescriptors(c.Triggers, address, event, signalType)
}

// ValidateSignal checks address/event/signalType against the signal-output
// descriptor table, with the same disabled-is-always-valid rule.
func (c *CCDConfiguration) ValidateSignal(enabled bool, address, event, signalType int) error {
	if !enabled {
		return nil
	}
	return validateAgainstDescriptors(c.Signals, address, event, signalType)
}

func validateAgainstDescriptors(descriptors []TriggerSignalDescriptor, address, event, signalType int) error {
	for _, d := range descriptors {
		if d.Token != address {
			continue
		}
		if !containsInt(d.Events, event) {
			return fmt.Errorf("%w: event %d not valid for address %d", ErrLocalValidation, event, address)
		}
		if !containsInt(d.SignalTypes, signalType) {
			return fmt.Errorf("%w: signal type %d not valid for address %d", ErrLocalValidation, signalType, address)
		}
		return nil
	}
	return fmt.Errorf("%w: address %d not present in device configuration", ErrLocalValidation, address)
}
