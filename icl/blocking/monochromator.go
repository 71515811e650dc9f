package blocking

import (
	"context"

	"github.com/horiba-icl/icl-go/icl/device"
)

// Monochromator is a blocking wrapper around *device.Monochromator.
type Monochromator struct {
	inner *device.Monochromator
}

func (m *Monochromator) Open() error  { return m.inner.Open(context.Background()) }
func (m *Monochromator) Close() error { return m.inner.Close(context.Background()) }

func (m *Monochromator) IsOpen() (bool, error) { return m.inner.IsOpen(context.Background()) }
func (m *Monochromator) IsBusy() (bool, error) { return m.inner.IsBusy(context.Background()) }
func (m *Monochromator) Index() int            { return m.inner.Index() }

func (m *Monochromator) Home() error { return m.inner.Home(context.Background()) }

func (m *Monochromator) GetCurrentWavelength() (float64, error) {
	return m.inner.GetCurrentWavelength(context.Background())
}

func (m *Monochromator) MoveToTargetWavelength(nm float64) error {
	return m.inner.MoveToTargetWavelength(context.Background(), nm)
}

func (m *Monochromator) CalibrateWavelength(nm float64) error {
	return m.inner.CalibrateWavelength(context.Background(), nm)
}

func (m *Monochromator) GetGratingPosition() (device.GratingPosition, error) {
	return m.inner.GetGratingPosition(context.Background())
}

func (m *Monochromator) SetGratingPosition(position device.GratingPosition) error {
	return m.inner.SetGratingPosition(context.Background(), position)
}

func (m *Monochromator) GetFilterWheelPosition(wheel device.FilterWheel) (device.FilterWheelPosition, error) {
	return m.inner.GetFilterWheelPosition(context.Background(), wheel)
}

func (m *Monochromator) SetFilterWheelPosition(wheel device.FilterWheel, position device.FilterWheelPosition) error {
	return m.inner.SetFilterWheelPosition(context.Background(), wheel, position)
}

func (m *Monochromator) GetMirrorPosition(mirror device.Mirror) (device.MirrorPosition, error) {
	return m.inner.GetMirrorPosition(context.Background(), mirror)
}

func (m *Monochromator) SetMirrorPosition(mirror device.Mirror, position device.MirrorPosition) error {
	return m.inner.SetMirrorPosition(context.Background(), mirror, position)
}

func (m *Monochromator) GetSlitPositionMM(slit device.Slit) (float64, error) {
	return m.inner.GetSlitPositionMM(context.Background(), slit)
}

func (m *Monochromator) SetSlitPositionMM(slit device.Slit, mm float64) error {
	return m.inner.SetSlitPositionMM(context.Background(), slit, mm)
}

func (m *Monochromator) GetSlitStepPosition(slit device.Slit) (int, error) {
	return m.inner.GetSlitStepPosition(context.Background(), slit)
}

func (m *Monochromator) SetSlitStepPosition(slit device.Slit, steps int) error {
	return m.inner.SetSlitStepPosition(context.Background(), slit, steps)
}

func (m *Monochromator) GetShutterPosition(shutter device.Shutter) (device.ShutterPosition, error) {
	return m.inner.GetShutterPosition(context.Background(), shutter)
}

func (m *Monochromator) SetShutterPosition(shutter device.Shutter, position device.ShutterPosition) error {
	return m.inner.SetShutterPosition(context.Background(), shutter, position)
}

// Inner exposes the wrapped async handle.
func (m *Monochromator) Inner() *device.Monochromator { return m.inner }
