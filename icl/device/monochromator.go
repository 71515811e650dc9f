package device

import (
	"context"
	"log/slog"

	"github.com/horiba-icl/icl-go/icl"
	"github.com/horiba-icl/icl-go/icl/iclerr"
)

// GratingPosition is a monochromator turret position.
type GratingPosition int

const (
	GratingFirst GratingPosition = iota
	GratingSecond
	GratingThird
)

// FilterWheel identifies one of the (optional) filter wheel modules.
type FilterWheel int

const (
	FilterWheelFirst FilterWheel = iota
	FilterWheelSecond
)

// FilterWheelPosition is one of the placeholder filter-wheel positions;
// real positions are site-specific (spec §9 open question).
type FilterWheelPosition int

const (
	FilterRed FilterWheelPosition = iota
	FilterGreen
	FilterBlue
	FilterYellow
)

// Mirror identifies one of the monochromator's mirrors.
type Mirror int

const (
	MirrorEntrance Mirror = iota
	MirrorExit
)

// MirrorPosition is a mirror's seated position.
type MirrorPosition int

const (
	MirrorAxial MirrorPosition = iota
	MirrorLateral
)

// Slit identifies one of the monochromator's four addressable slits.
type Slit int

const (
	SlitA Slit = iota
	SlitB
	SlitC
	SlitD
)

// Shutter identifies one of the two shutters.
type Shutter int

const (
	ShutterFirst Shutter = iota
	ShutterSecond
)

// ShutterPosition is a shutter's open/closed state.
type ShutterPosition int

const (
	ShutterOpened ShutterPosition = iota
	ShutterClosed
)

// Monochromator is a wavelength-selective device handle. Its state machine
// is Closed -> Open -> Homing -> Idle -> Moving -> Idle (spec §4.8); Homing
// is entered by Home and exited once IsBusy reports false.
type Monochromator struct {
	base
}

func newMonochromator(index int, deviceType string, transport *icl.Transport, catalogue *iclerr.Catalogue, logger *slog.Logger) *Monochromator {
	return &Monochromator{base: newBase("mono", index, transport, catalogue, logger, deviceType)}
}

// Home runs the homing motion, required before trusting grating, mirror or
// slit positions. It returns once the ICL accepts the command; completion
// is tracked by polling IsBusy, at a sensible interval of around 1s since
// homing may take tens of seconds.
func (m *Monochromator) Home(ctx context.Context) error {
	_, err := m.ExecuteCommand(ctx, "init", map[string]any{"index": m.index}, LongRunningCommandTimeout)
	return err
}

// GetCurrentWavelength returns the current wavelength in nanometers.
func (m *Monochromator) GetCurrentWavelength(ctx context.Context) (float64, error) {
	resp, err := m.ExecuteCommand(ctx, "getPosition", map[string]any{"index": m.index}, DefaultCommandTimeout)
	if err != nil {
		return 0, err
	}
	wavelength, _ := resp.Results["wavelength"].(float64)
	return wavelength, nil
}

// MoveToTargetWavelength is fire-and-forget: it returns once the ICL
// accepts the move, not once the hardware arrives. Callers poll IsBusy.
func (m *Monochromator) MoveToTargetWavelength(ctx context.Context, nm float64) error {
	_, err := m.ExecuteCommand(ctx, "moveToPosition", map[string]any{"index": m.index, "wavelength": nm}, LongRunningCommandTimeout)
	return err
}

// CalibrateWavelength rewrites the current position's label to nm. This
// can de-calibrate the instrument if used incorrectly; it is not a motion
// command.
func (m *Monochromator) CalibrateWavelength(ctx context.Context, nm float64) error {
	_, err := m.ExecuteCommand(ctx, "calibratePosition", map[string]any{"index": m.index, "wavelength": nm}, DefaultCommandTimeout)
	return err
}

// GetGratingPosition reads the turret position. Reads before Home are
// unreliable.
func (m *Monochromator) GetGratingPosition(ctx context.Context) (GratingPosition, error) {
	resp, err := m.ExecuteCommand(ctx, "getGratingPosition", map[string]any{"index": m.index}, DefaultCommandTimeout)
	if err != nil {
		return 0, err
	}
	n, _ := toInt(resp.Results["position"])
	return GratingPosition(n), nil
}

// SetGratingPosition selects the turret position.
func (m *Monochromator) SetGratingPosition(ctx context.Context, position GratingPosition) error {
	_, err := m.ExecuteCommand(ctx, "moveGrating", map[string]any{"index": m.index, "position": int(position)}, LongRunningCommandTimeout)
	return err
}

// GetFilterWheelPosition reads the position of an optional filter wheel
// module.
func (m *Monochromator) GetFilterWheelPosition(ctx context.Context, wheel FilterWheel) (FilterWheelPosition, error) {
	resp, err := m.ExecuteCommand(ctx, "getFilterWheelPosition", map[string]any{"index": m.index, "wheel": int(wheel)}, DefaultCommandTimeout)
	if err != nil {
		return 0, err
	}
	n, _ := toInt(resp.Results["position"])
	return FilterWheelPosition(n), nil
}

// SetFilterWheelPosition moves an optional filter wheel module.
func (m *Monochromator) SetFilterWheelPosition(ctx context.Context, wheel FilterWheel, position FilterWheelPosition) error {
	_, err := m.ExecuteCommand(ctx, "moveFilterWheel", map[string]any{
		"index": m.index, "wheel": int(wheel), "position": int(position),
	}, LongRunningCommandTimeout)
	return err
}

// GetMirrorPosition reads a mirror's seated position.
func (m *Monochromator) GetMirrorPosition(ctx context.Context, mirror Mirror) (MirrorPosition, error) {
	resp, err := m.ExecuteCommand(ctx, "getMirrorPosition", map[string]any{"index": m.index, "mirror": int(mirror)}, DefaultCommandTimeout)
	if err != nil {
		return 0, err
	}
	n, _ := toInt(resp.Results["position"])
	return MirrorPosition(n), nil
}

// SetMirrorPosition seats a mirror.
func (m *Monochromator) SetMirrorPosition(ctx context.Context, mirror Mirror, position MirrorPosition) error {
	_, err := m.ExecuteCommand(ctx, "moveMirror", map[string]any{
		"index": m.index, "mirror": int(mirror), "position": int(position),
	}, LongRunningCommandTimeout)
	return err
}

// GetSlitPositionMM reads a slit's width in millimeters.
func (m *Monochromator) GetSlitPositionMM(ctx context.Context, slit Slit) (float64, error) {
	resp, err := m.ExecuteCommand(ctx, "getSlitPositionInMM", map[string]any{"index": m.index, "slit": int(slit)}, DefaultCommandTimeout)
	if err != nil {
		return 0, err
	}
	mm, _ := resp.Results["position"].(float64)
	return mm, nil
}

// SetSlitPositionMM sets a slit's width in millimeters.
func (m *Monochromator) SetSlitPositionMM(ctx context.Context, slit Slit, mm float64) error {
	_, err := m.ExecuteCommand(ctx, "moveSlitMM", map[string]any{"index": m.index, "slit": int(slit), "position": mm}, LongRunningCommandTimeout)
	return err
}

// GetSlitStepPosition reads a slit's position in motor steps. Returns an
// integer (spec §9 open question: an enum form appears in some source
// revisions but is an accident of an unfinished refactor; integer is
// canonical here).
func (m *Monochromator) GetSlitStepPosition(ctx context.Context, slit Slit) (int, error) {
	resp, err := m.ExecuteCommand(ctx, "getSlitStepPosition", map[string]any{"index": m.index, "slit": int(slit)}, DefaultCommandTimeout)
	if err != nil {
		return 0, err
	}
	n, _ := toInt(resp.Results["position"])
	return n, nil
}

// SetSlitStepPosition sets a slit's position in motor steps.
func (m *Monochromator) SetSlitStepPosition(ctx context.Context, slit Slit, steps int) error {
	_, err := m.ExecuteCommand(ctx, "moveSlitStep", map[string]any{"index": m.index, "slit": int(slit), "position": steps}, LongRunningCommandTimeout)
	return err
}

// GetShutterPosition reads a shutter's open/closed state.
func (m *Monochromator) GetShutterPosition(ctx context.Context, shutter Shutter) (ShutterPosition, error) {
	resp, err := m.ExecuteCommand(ctx, "getShutterPosition", map[string]any{"index": m.index, "shutter": int(shutter)}, DefaultCommandTimeout)
	if err != nil {
		return 0, err
	}
	n, _ := toInt(resp.Results["position"])
	return ShutterPosition(n), nil
}

// SetShutterPosition opens or closes a shutter.
func (m *Monochromator) SetShutterPosition(ctx context.Context, shutter Shutter, position ShutterPosition) error {
	_, err := m.ExecuteCommand(ctx, "moveShutter", map[string]any{
		"index": m.index, "shutter": int(shutter), "position": int(position),
	}, DefaultCommandTimeout)
	return err
}
