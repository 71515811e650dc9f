package blocking

import (
	"context"

	"github.com/horiba-icl/icl-go/icl/device"
)

// CCD is a blocking wrapper around *device.CCD.
type CCD struct {
	inner *device.CCD
}

func (c *CCD) Open() error  { return c.inner.Open(context.Background()) }
func (c *CCD) Close() error { return c.inner.Close(context.Background()) }

func (c *CCD) IsOpen() (bool, error) { return c.inner.IsOpen(context.Background()) }
func (c *CCD) Index() int           { return c.inner.Index() }

func (c *CCD) GetTemperature() (float64, error) { return c.inner.GetTemperature(context.Background()) }

func (c *CCD) ChipSize() (width, height int, err error) {
	return c.inner.ChipSize(context.Background())
}

func (c *CCD) SetGain(token int) error  { return c.inner.SetGain(context.Background(), token) }
func (c *CCD) SetSpeed(token int) error { return c.inner.SetSpeed(context.Background(), token) }

func (c *CCD) GetExposureTime() (int, error) { return c.inner.GetExposureTime(context.Background()) }
func (c *CCD) SetExposureTime(n int) error   { return c.inner.SetExposureTime(context.Background(), n) }

func (c *CCD) SetTimerResolution(microseconds int) error {
	return c.inner.SetTimerResolution(context.Background(), microseconds)
}

func (c *CCD) SetAcquisitionFormat(format device.AcquisitionFormat, roiCount int) error {
	return c.inner.SetAcquisitionFormat(context.Background(), format, roiCount)
}

func (c *CCD) SetRegionOfInterest(roi device.RegionOfInterest) error {
	return c.inner.SetRegionOfInterest(context.Background(), roi)
}

func (c *CCD) SetXAxisConversion(conversion device.XAxisConversion) error {
	return c.inner.SetXAxisConversion(context.Background(), conversion)
}

func (c *CCD) SetAcquisitionCount(count int) error {
	return c.inner.SetAcquisitionCount(context.Background(), count)
}

func (c *CCD) SetCleanCount(count int, mode device.CleanMode) error {
	return c.inner.SetCleanCount(context.Background(), count, mode)
}

func (c *CCD) SetTriggerInput(t device.TriggerInput) error {
	return c.inner.SetTriggerInput(context.Background(), t)
}

func (c *CCD) GetTriggerInput() (device.TriggerInput, error) {
	return c.inner.GetTriggerInput(context.Background())
}

func (c *CCD) SetSignalOutput(s device.SignalOutput) error {
	return c.inner.SetSignalOutput(context.Background(), s)
}

func (c *CCD) GetSignalOutput() (device.SignalOutput, error) {
	return c.inner.GetSignalOutput(context.Background())
}

func (c *CCD) GetAcquisitionReady() (bool, error) {
	return c.inner.GetAcquisitionReady(context.Background())
}

func (c *CCD) GetAcquisitionBusy() (bool, error) {
	return c.inner.GetAcquisitionBusy(context.Background())
}

func (c *CCD) SetAcquisitionStart(openShutter bool) error {
	return c.inner.SetAcquisitionStart(context.Background(), openShutter)
}

func (c *CCD) SetAcquisitionAbort(resetPort bool) error {
	return c.inner.SetAcquisitionAbort(context.Background(), resetPort)
}

func (c *CCD) GetAcquisitionData() ([]device.Acquisition, error) {
	return c.inner.GetAcquisitionData(context.Background())
}

func (c *CCD) Restart() error { return c.inner.Restart(context.Background()) }

// Inner exposes the wrapped async handle.
func (c *CCD) Inner() *device.CCD { return c.inner }
