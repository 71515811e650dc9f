package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/horiba-icl/icl-go/icl"
	"github.com/horiba-icl/icl-go/icl/iclerr"
)

// AcquisitionFormat selects the CCD readout layout (spec §4.7).
type AcquisitionFormat int

const (
	AcquisitionFormatSpectra AcquisitionFormat = iota
	AcquisitionFormatImage
	AcquisitionFormatCrop
	AcquisitionFormatFastKinetics
)

// XAxisConversion selects how acquisition data is labelled on return.
type XAxisConversion int

const (
	XAxisConversionNone XAxisConversion = iota
	XAxisConversionFromCCDFirmware
	XAxisConversionFromICLSettingsINI
)

// CleanMode selects when the CCD is cleaned between acquisitions.
type CleanMode int

const (
	CleanModeNever CleanMode = iota
	CleanModeFirstOnly
	CleanModeBetweenOnly
	CleanModeEach
	CleanModeUnknown
)

// RegionOfInterest is a single CCD ROI, indexed from 1. Origin is the only
// field allowed to be zero; size and binning must be strictly positive.
type RegionOfInterest struct {
	Index   int
	OriginX int
	OriginY int
	Width   int
	Height  int
	BinX    int
	BinY    int
}

// TriggerInput is the CCD's 4-tuple trigger description. When Enabled is
// false the other three fields are canonically -1 both on the wire and as
// returned by GetTriggerInput.
type TriggerInput struct {
	Enabled    bool
	Address    int
	Event      int
	SignalType int
}

// SignalOutput has the same shape as TriggerInput, for the output side.
type SignalOutput struct {
	Enabled    bool
	Address    int
	Event      int
	SignalType int
}

// CCD is a charge-coupled-device handle bound to the shared transport. Its
// state machine is Closed -> Open -> Configured -> Acquiring ->
// Configured, with Acquiring -> Aborted -> Configured also reachable
// (spec §4.7).
type CCD struct {
	base

	configMu sync.RWMutex
	config   *CCDConfiguration
}

func newCCD(index int, deviceType string, transport *icl.Transport, catalogue *iclerr.Catalogue, logger *slog.Logger) *CCD {
	return &CCD{base: newBase("ccd", index, transport, catalogue, logger, deviceType)}
}

// Open opens the device and, after every successful open, re-fetches and
// replaces the configuration cache (spec §4.7 "Configuration cache"). A
// failed fetch is logged and does not fail Open.
func (c *CCD) Open(ctx context.Context) error {
	if err := c.base.Open(ctx); err != nil {
		return err
	}
	if err := c.refreshConfiguration(ctx); err != nil {
		c.logger.Warn("icl: failed to populate CCD configuration cache", "index", c.index, "error", err)
	}
	return nil
}

// refreshConfiguration re-fetches geometry, gain and speed tokens, and the
// trigger/signal descriptor tables, replacing the cached configuration.
func (c *CCD) refreshConfiguration(ctx context.Context) error {
	width, height, err := c.ChipSize(ctx)
	if err != nil {
		return err
	}

	gainResp, err := c.ExecuteCommand(ctx, "getAvailableGains", nil, DefaultCommandTimeout)
	if err != nil {
		return err
	}
	speedResp, err := c.ExecuteCommand(ctx, "getAvailableSpeeds", nil, DefaultCommandTimeout)
	if err != nil {
		return err
	}
	triggerResp, err := c.ExecuteCommand(ctx, "getTriggerInputTable", nil, DefaultCommandTimeout)
	if err != nil {
		return err
	}
	signalResp, err := c.ExecuteCommand(ctx, "getSignalOutputTable", nil, DefaultCommandTimeout)
	if err != nil {
		return err
	}

	cfg := &CCDConfiguration{
		ChipWidth:   width,
		ChipHeight:  height,
		GainTokens:  intsFromResults(gainResp.Results["tokens"]),
		SpeedTokens: intsFromResults(speedResp.Results["tokens"]),
		Triggers:    descriptorsFromResults(triggerResp.Results["table"]),
		Signals:     descriptorsFromResults(signalResp.Results["table"]),
	}

	c.configMu.Lock()
	c.config = cfg
	c.configMu.Unlock()
	return nil
}

// Configuration returns the cached configuration, or nil if it has not
// been populated (e.g. Open failed to fetch it). Validation falls back to
// the ICL in that case.
func (c *CCD) Configuration() *CCDConfiguration {
	c.configMu.RLock()
	defer c.configMu.RUnlock()
	return c.config
}

func intsFromResults(v any) []int {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		if n, ok := toInt(item); ok {
			out = append(out, n)
		}
	}
	return out
}

func descriptorsFromResults(v any) []TriggerSignalDescriptor {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]TriggerSignalDescriptor, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		token, _ := toInt(m["token"])
		out = append(out, TriggerSignalDescriptor{
			Token:       token,
			Events:      intsFromResults(m["events"]),
			SignalTypes: intsFromResults(m["signalTypes"]),
		})
	}
	return out
}

// GetTemperature returns the chip temperature in degrees Celsius. Valid in
// any non-Closed state.
func (c *CCD) GetTemperature(ctx context.Context) (float64, error) {
	resp, err := c.ExecuteCommand(ctx, "getChipTemperature", map[string]any{"index": c.index}, DefaultCommandTimeout)
	if err != nil {
		return 0, err
	}
	temp, _ := resp.Results["temperature"].(float64)
	return temp, nil
}

// ChipSize returns the sensor's static width and height.
func (c *CCD) ChipSize(ctx context.Context) (width, height int, err error) {
	resp, err := c.ExecuteCommand(ctx, "getChipSize", map[string]any{"index": c.index}, DefaultCommandTimeout)
	if err != nil {
		return 0, 0, err
	}
	w, _ := toInt(resp.Results["width"])
	h, _ := toInt(resp.Results["height"])
	return w, h, nil
}

// SetGain sets the gain by opaque token. The token's value is never
// interpreted, only checked for configuration membership when a cached
// configuration is available.
func (c *CCD) SetGain(ctx context.Context, token int) error {
	if cfg := c.Configuration(); cfg != nil {
		if err := cfg.ValidateGainToken(token); err != nil {
			return err
		}
	}
	_, err := c.ExecuteCommand(ctx, "setGain", map[string]any{"index": c.index, "token": token}, DefaultCommandTimeout)
	return err
}

// SetSpeed sets the readout speed by opaque token, validated the same way
// as SetGain.
func (c *CCD) SetSpeed(ctx context.Context, token int) error {
	if cfg := c.Configuration(); cfg != nil {
		if err := cfg.ValidateSpeedToken(token); err != nil {
			return err
		}
	}
	_, err := c.ExecuteCommand(ctx, "setSpeed", map[string]any{"index": c.index, "token": token}, DefaultCommandTimeout)
	return err
}

// GetExposureTime returns the exposure time in units of the current timer
// resolution.
func (c *CCD) GetExposureTime(ctx context.Context) (int, error) {
	resp, err := c.ExecuteCommand(ctx, "getExposureTime", map[string]any{"index": c.index}, DefaultCommandTimeout)
	if err != nil {
		return 0, err
	}
	n, _ := toInt(resp.Results["time"])
	return n, nil
}

// SetExposureTime sets the exposure time in units of the current timer
// resolution.
func (c *CCD) SetExposureTime(ctx context.Context, n int) error {
	_, err := c.ExecuteCommand(ctx, "setExposureTime", map[string]any{"index": c.index, "time": n}, DefaultCommandTimeout)
	return err
}

// SetTimerResolution sets the exposure timer resolution in microseconds.
// Only 1 and 1000 are valid; some hardware rejects 1us, and that rejection
// surfaces as an ICL error rather than a local pre-check (spec §4.7).
func (c *CCD) SetTimerResolution(ctx context.Context, microseconds int) error {
	if microseconds != 1 && microseconds != 1000 {
		return fmt.Errorf("%w: timer resolution must be 1 or 1000us, got %d", ErrLocalValidation, microseconds)
	}
	_, err := c.ExecuteCommand(ctx, "setTimerResolution", map[string]any{"index": c.index, "resolution": microseconds}, DefaultCommandTimeout)
	return err
}

// SetAcquisitionFormat sets the readout layout and ROI count. Must precede
// SetRegionOfInterest.
func (c *CCD) SetAcquisitionFormat(ctx context.Context, format AcquisitionFormat, roiCount int) error {
	_, err := c.ExecuteCommand(ctx, "setAcquisitionFormat", map[string]any{
		"index":    c.index,
		"format":   int(format),
		"roiCount": roiCount,
	}, DefaultCommandTimeout)
	return err
}

// SetRegionOfInterest defines one ROI. roi.Index is 1-based.
func (c *CCD) SetRegionOfInterest(ctx context.Context, roi RegionOfInterest) error {
	if roi.Index < 1 {
		return fmt.Errorf("%w: ROI index must be >= 1, got %d", ErrLocalValidation, roi.Index)
	}
	if roi.Width <= 0 || roi.Height <= 0 || roi.BinX <= 0 || roi.BinY <= 0 {
		return fmt.Errorf("%w: ROI size and binning must be strictly positive", ErrLocalValidation)
	}
	if roi.OriginX < 0 || roi.OriginY < 0 {
		return fmt.Errorf("%w: ROI origin must be non-negative", ErrLocalValidation)
	}

	_, err := c.ExecuteCommand(ctx, "setRegionOfInterest", map[string]any{
		"index":   c.index,
		"roi":     roi.Index,
		"originX": roi.OriginX,
		"originY": roi.OriginY,
		"width":   roi.Width,
		"height":  roi.Height,
		"binX":    roi.BinX,
		"binY":    roi.BinY,
	}, DefaultCommandTimeout)
	return err
}

// SetXAxisConversion selects how acquisition data is labelled on return.
func (c *CCD) SetXAxisConversion(ctx context.Context, conversion XAxisConversion) error {
	_, err := c.ExecuteCommand(ctx, "setXAxisConversionType", map[string]any{
		"index": c.index, "conversionType": int(conversion),
	}, DefaultCommandTimeout)
	return err
}

// SetAcquisitionCount sets how many acquisitions a single start triggers.
// count > 1 is "multi-acquisition".
func (c *CCD) SetAcquisitionCount(ctx context.Context, count int) error {
	if count < 1 {
		return fmt.Errorf("%w: acquisition count must be positive, got %d", ErrLocalValidation, count)
	}
	_, err := c.ExecuteCommand(ctx, "setAcqCount", map[string]any{"index": c.index, "count": count}, DefaultCommandTimeout)
	return err
}

// SetCleanCount sets the sensor clean count and mode.
func (c *CCD) SetCleanCount(ctx context.Context, count int, mode CleanMode) error {
	_, err := c.ExecuteCommand(ctx, "setCleanCount", map[string]any{
		"index": c.index, "count": count, "mode": int(mode),
	}, DefaultCommandTimeout)
	return err
}

// SetTriggerInput configures the trigger input 4-tuple. When t.Enabled is
// false, address/event/signalType are sent as -1 regardless of their
// values. When enabled, the tuple is validated against the cached
// configuration before dispatch (spec §8 invariant 9); with no cached
// configuration, validation is deferred to the ICL.
func (c *CCD) SetTriggerInput(ctx context.Context, t TriggerInput) error {
	if cfg := c.Configuration(); cfg != nil {
		if err := cfg.ValidateTrigger(t.Enabled, t.Address, t.Event, t.SignalType); err != nil {
			return err
		}
	}

	address, event, signalType := t.Address, t.Event, t.SignalType
	if !t.Enabled {
		address, event, signalType = -1, -1, -1
	}

	_, err := c.ExecuteCommand(ctx, "setTriggerIn", map[string]any{
		"index": c.index, "enabled": t.Enabled, "address": address, "event": event, "signalType": signalType,
	}, DefaultCommandTimeout)
	return err
}

// GetTriggerInput returns the current trigger input 4-tuple. A disabled
// trigger is canonically reported with address/event/signalType all -1.
func (c *CCD) GetTriggerInput(ctx context.Context) (TriggerInput, error) {
	resp, err := c.ExecuteCommand(ctx, "getTriggerIn", map[string]any{"index": c.index}, DefaultCommandTimeout)
	if err != nil {
		return TriggerInput{}, err
	}
	enabled, _ := resp.Results["enabled"].(bool)
	address, _ := toInt(resp.Results["address"])
	event, _ := toInt(resp.Results["event"])
	signalType, _ := toInt(resp.Results["signalType"])
	return TriggerInput{Enabled: enabled, Address: address, Event: event, SignalType: signalType}, nil
}

// SetSignalOutput configures the signal output 4-tuple, with the same
// enabled/-1 and validation semantics as SetTriggerInput.
func (c *CCD) SetSignalOutput(ctx context.Context, s SignalOutput) error {
	if cfg := c.Configuration(); cfg != nil {
		if err := cfg.ValidateSignal(s.Enabled, s.Address, s.Event, s.SignalType); err != nil {
			return err
		}
	}

	address, event, signalType := s.Address, s.Event, s.SignalType
	if !s.Enabled {
		address, event, signalType = -1, -1, -1
	}

	_, err := c.ExecuteCommand(ctx, "setSignalOut", map[string]any{
		"index": c.index, "enabled": s.Enabled, "address": address, "event": event, "signalType": signalType,
	}, DefaultCommandTimeout)
	return err
}

// GetSignalOutput returns the current signal output 4-tuple.
func (c *CCD) GetSignalOutput(ctx context.Context) (SignalOutput, error) {
	resp, err := c.ExecuteCommand(ctx, "getSignalOut", map[string]any{"index": c.index}, DefaultCommandTimeout)
	if err != nil {
		return SignalOutput{}, err
	}
	enabled, _ := resp.Results["enabled"].(bool)
	address, _ := toInt(resp.Results["address"])
	event, _ := toInt(resp.Results["event"])
	signalType, _ := toInt(resp.Results["signalType"])
	return SignalOutput{Enabled: enabled, Address: address, Event: event, SignalType: signalType}, nil
}

// GetAcquisitionReady reports whether the device has everything needed to
// start an acquisition. SetAcquisitionStart's precondition.
func (c *CCD) GetAcquisitionReady(ctx context.Context) (bool, error) {
	resp, err := c.ExecuteCommand(ctx, "getAcquisitionReady", map[string]any{"index": c.index}, DefaultCommandTimeout)
	if err != nil {
		return false, err
	}
	ready, _ := resp.Results["ready"].(bool)
	return ready, nil
}

// GetAcquisitionBusy reports whether an acquisition is in progress. Callers
// poll this at >= 100ms spacing to detect completion.
func (c *CCD) GetAcquisitionBusy(ctx context.Context) (bool, error) {
	resp, err := c.ExecuteCommand(ctx, "getAcquisitionBusy", map[string]any{"index": c.index}, DefaultCommandTimeout)
	if err != nil {
		return false, err
	}
	busy, _ := resp.Results["busy"].(bool)
	return busy, nil
}

// SetAcquisitionStart transitions Configured -> Acquiring. Its precondition
// is GetAcquisitionReady() == true; this is not checked locally, matching
// the spec's wording that the precondition governs hardware behavior, not
// a client-side gate.
func (c *CCD) SetAcquisitionStart(ctx context.Context, openShutter bool) error {
	_, err := c.ExecuteCommand(ctx, "setAcquisitionStart", map[string]any{
		"index": c.index, "openShutter": openShutter,
	}, DefaultCommandTimeout)
	return err
}

// SetAcquisitionAbort transitions Acquiring -> Aborted. Allowed from any
// state; a no-op if not currently acquiring.
func (c *CCD) SetAcquisitionAbort(ctx context.Context, resetPort bool) error {
	_, err := c.ExecuteCommand(ctx, "setAcquisitionAbort", map[string]any{
		"index": c.index, "resetPort": resetPort,
	}, DefaultCommandTimeout)
	return err
}

// AcquisitionROI is one ROI's worth of completed acquisition data.
type AcquisitionROI struct {
	OriginX, OriginY int
	Width, Height    int
	BinX, BinY       int
	Timestamp        int64
	XYData           []float64
	XData            []float64
	YData            []float64
}

// Acquisition is one completed acquisition's set of ROI results.
type Acquisition struct {
	ROIs []AcquisitionROI
}

// GetAcquisitionData fetches the nested acquisition/ROI result structure.
// Valid only after GetAcquisitionBusy reports false.
func (c *CCD) GetAcquisitionData(ctx context.Context) ([]Acquisition, error) {
	resp, err := c.ExecuteCommand(ctx, "getAcquisitionData", map[string]any{"index": c.index}, DefaultCommandTimeout)
	if err != nil {
		return nil, err
	}

	rawAcqs, _ := resp.Results["acquisitions"].([]any)
	acquisitions := make([]Acquisition, 0, len(rawAcqs))
	for _, rawAcq := range rawAcqs {
		acqMap, ok := rawAcq.(map[string]any)
		if !ok {
			continue
		}
		rawROIs, _ := acqMap["rois"].([]any)
		rois := make([]AcquisitionROI, 0, len(rawROIs))
		for _, rawROI := range rawROIs {
			roiMap, ok := rawROI.(map[string]any)
			if !ok {
				continue
			}
			ox, _ := toInt(roiMap["originX"])
			oy, _ := toInt(roiMap["originY"])
			w, _ := toInt(roiMap["width"])
			h, _ := toInt(roiMap["height"])
			bx, _ := toInt(roiMap["binX"])
			by, _ := toInt(roiMap["binY"])
			ts, _ := toInt(roiMap["timestamp"])
			rois = append(rois, AcquisitionROI{
				OriginX: ox, OriginY: oy, Width: w, Height: h, BinX: bx, BinY: by,
				Timestamp: int64(ts),
				XYData:    floatsFromResults(roiMap["xyData"]),
				XData:     floatsFromResults(roiMap["xData"]),
				YData:     floatsFromResults(roiMap["yData"]),
			})
		}
		acquisitions = append(acquisitions, Acquisition{ROIs: rois})
	}
	return acquisitions, nil
}

func floatsFromResults(v any) []float64 {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(list))
	for _, item := range list {
		if f, ok := item.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}

// Restart power-cycles the hardware. The ICL connection remains open.
func (c *CCD) Restart(ctx context.Context) error {
	_, err := c.ExecuteCommand(ctx, "restart", map[string]any{"index": c.index}, DefaultCommandTimeout)
	return err
}
