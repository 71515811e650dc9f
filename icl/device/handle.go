// Package device implements the per-instrument state machines (CCD,
// monochromator) and the registry that discovers and owns them, built on
// top of the shared icl.Transport correlator.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/horiba-icl/icl-go/icl"
	"github.com/horiba-icl/icl-go/icl/iclerr"
)

// DefaultCommandTimeout bounds ordinary device commands. Motion commands
// that the ICL accepts but does not wait to complete (homing, wavelength
// moves) use LongRunningCommandTimeout instead.
const DefaultCommandTimeout = 5 * time.Second

// LongRunningCommandTimeout bounds commands the ICL may take longer to
// acknowledge, such as home() or move-to-target-wavelength. It bounds
// acceptance of the command, not completion of the resulting hardware
// motion, which callers track by polling IsBusy.
const LongRunningCommandTimeout = 180 * time.Second

// ErrDeviceError is wrapped by errors returned from ExecuteCommand when the
// ICL reports one or more errors at severity ERROR or CRITICAL.
var ErrDeviceError = errors.New("icl: device reported an error")

// Handle is the capability set every device (CCD, monochromator) exposes.
// Class-specific vocabularies live on the concrete types; this interface
// only captures the shared lifecycle operations (spec §4.6, §9
// "polymorphism across devices").
type Handle interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	IsOpen(ctx context.Context) (bool, error)
	Index() int
}

// base is embedded by every concrete device handle. It owns no socket of
// its own — all devices share the manager's Transport — and holds a
// non-owning reference to the error catalogue (spec §9, no back-reference
// to the manager).
type base struct {
	class      string
	index      int
	transport  *icl.Transport
	catalogue  *iclerr.Catalogue
	logger     *slog.Logger
	deviceType string
}

func newBase(class string, index int, transport *icl.Transport, catalogue *iclerr.Catalogue, logger *slog.Logger, deviceType string) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		class:      class,
		index:      index,
		transport:  transport,
		catalogue:  catalogue,
		logger:     logger,
		deviceType: deviceType,
	}
}

// Index returns the ICL-assigned device index, stable for the session.
func (b *base) Index() int { return b.index }

// DeviceType returns the descriptor string reported by discovery.
func (b *base) DeviceType() string { return b.deviceType }

// commandName builds the "<class>_<suffix>" wire command name, e.g.
// "ccd_setExposureTime".
func (b *base) commandName(suffix string) string {
	return b.class + "_" + suffix
}

// ExecuteCommand wraps name/parameters in an icl.Command, awaits the
// response under timeout, and if the response carries errors, hands them
// to handleErrors: every error is resolved and logged, and the call fails
// only if the highest-severity one is ERROR or CRITICAL. This is the single
// funnel every device command passes through (spec §4.6).
func (b *base) ExecuteCommand(ctx context.Context, suffix string, parameters map[string]any, timeout time.Duration) (*icl.Response, error) {
	cmd := icl.NewCommand(b.commandName(suffix), parameters)
	resp, err := b.transport.RequestWithResponse(ctx, cmd, timeout)
	if err != nil {
		return nil, fmt.Errorf("icl: %s: %w", cmd.Name, err)
	}

	if resp.OK() {
		return resp, nil
	}

	return resp, b.handleErrors(cmd.Name, resp.Errors)
}

// handleErrors resolves every wire error string through the catalogue,
// logs them all, and returns a wrapped error for the highest-severity one
// if any reach ERROR or CRITICAL. WARNING/INFO-only responses log but do
// not fail the call, per spec §7.
func (b *base) handleErrors(commandName string, wireErrors []string) error {
	var worst *iclerr.ICLError

	for _, raw := range wireErrors {
		parsed, parseErr := b.catalogue.ErrorFrom(raw)
		if parseErr != nil {
			b.logger.Error("icl: malformed error string from device", "command", commandName, "raw", raw, "error", parseErr)
			continue
		}

		b.logger.Log(context.Background(), severityLevel(parsed.Severity), parsed.Message,
			"command", commandName, "code", parsed.Code, "severity", parsed.Severity)

		if worst == nil || severityRank(parsed.Severity) > severityRank(worst.Severity) {
			worst = parsed
		}
	}

	if worst == nil {
		return nil
	}
	if severityRank(worst.Severity) < severityRank(iclerr.Error) {
		return nil
	}

	return fmt.Errorf("%w: %s (command %s): %w", ErrDeviceError, commandName, worst.Error(), worst)
}

func severityRank(s iclerr.Severity) int {
	switch s {
	case iclerr.Trace:
		return 0
	case iclerr.Debug:
		return 1
	case iclerr.Info:
		return 2
	case iclerr.Success:
		return 3
	case iclerr.Warning:
		return 4
	case iclerr.Error:
		return 5
	case iclerr.Critical:
		return 6
	default:
		return 2
	}
}

func severityLevel(s iclerr.Severity) slog.Level {
	switch s {
	case iclerr.Trace, iclerr.Debug:
		return slog.LevelDebug
	case iclerr.Warning:
		return slog.LevelWarn
	case iclerr.Error, iclerr.Critical:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Open sends "<class>_open {index}".
func (b *base) Open(ctx context.Context) error {
	_, err := b.ExecuteCommand(ctx, "open", map[string]any{"index": b.index}, DefaultCommandTimeout)
	return err
}

// Close sends "<class>_close {index}".
func (b *base) Close(ctx context.Context) error {
	_, err := b.ExecuteCommand(ctx, "close", map[string]any{"index": b.index}, DefaultCommandTimeout)
	return err
}

// IsOpen queries live device-side state via "<class>_isOpen"; it is never
// satisfied from a local cache.
func (b *base) IsOpen(ctx context.Context) (bool, error) {
	resp, err := b.ExecuteCommand(ctx, "isOpen", map[string]any{"index": b.index}, DefaultCommandTimeout)
	if err != nil {
		return false, err
	}
	open, _ := resp.Results["open"].(bool)
	return open, nil
}

// IsBusy queries "<class>_isBusy". Callers polling for motion or
// acquisition completion are expected to space calls at least 100ms apart
// (CCD) or around 1s apart (monochromator motion).
func (b *base) IsBusy(ctx context.Context) (bool, error) {
	resp, err := b.ExecuteCommand(ctx, "isBusy", map[string]any{"index": b.index}, DefaultCommandTimeout)
	if err != nil {
		return false, err
	}
	busy, _ := resp.Results["busy"].(bool)
	return busy, nil
}
