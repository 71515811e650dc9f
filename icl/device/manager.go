package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/davecgh/go-spew/spew"

	"github.com/horiba-icl/icl-go/icl"
	"github.com/horiba-icl/icl-go/icl/iclerr"
)

// ManagerOptions configures a Manager. Construction is through this
// explicit struct, not a loaded config file — configuration-file loading
// is out of scope for the core library.
type ManagerOptions struct {
	// WebsocketURI is the ICL's WebSocket endpoint. Defaults to
	// icl.DefaultURI.
	WebsocketURI string

	// StartICL, when true, has Start invoke the Supervisor before opening
	// the transport. When false, the caller is responsible for the ICL
	// being reachable (e.g. a fake server in tests, or a remote ICL
	// addressed by TEST_ICL_IP/TEST_ICL_PORT).
	StartICL bool

	// ICLPath overrides the installed ICL executable path.
	ICLPath string

	// EnableBinaryMessages, when true, has Start issue icl_binMode
	// {mode:"all"} after connecting.
	EnableBinaryMessages bool

	// ErrorOnNoDevices makes discovery fail when a class reports zero
	// devices, instead of returning an empty list.
	ErrorOnNoDevices bool

	// Catalogue overrides the embedded default error catalogue.
	Catalogue *iclerr.Catalogue

	Logger *slog.Logger
}

// Manager is the process-wide registry composing the Supervisor,
// Transport, error catalogue and discovered device handles into one
// lifecycle (spec §4.5, §9). It holds no hidden global state: the
// "singleton" property is enforced by the call site constructing exactly
// one Manager, not by package-level storage, which also means tests get a
// fresh instance for free.
type Manager struct {
	opts      ManagerOptions
	transport *icl.Transport
	supervisor *icl.Supervisor
	catalogue *iclerr.Catalogue
	logger    *slog.Logger

	mu      sync.Mutex
	started bool

	ccds  []*CCD
	monos []*Monochromator
}

// NewManager constructs a Manager. The transport and supervisor are
// created but not started until Start is called.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	catalogue := opts.Catalogue
	if catalogue == nil {
		var err error
		catalogue, err = iclerr.NewDefaultCatalogue()
		if err != nil {
			return nil, fmt.Errorf("icl: loading default error catalogue: %w", err)
		}
	}

	transport := icl.NewTransport(opts.WebsocketURI, opts.Logger)
	supervisor := icl.NewSupervisor(opts.ICLPath, transport, opts.Logger)

	return &Manager{
		opts:       opts,
		transport:  transport,
		supervisor: supervisor,
		catalogue:  catalogue,
		logger:     opts.Logger,
	}, nil
}

// Start connects to the ICL, optionally launching it first, verifies
// connectivity with icl_info, optionally enables binary telemetry, and
// runs discovery for both device classes. Start and Stop are mutually
// exclusive (guarded by mu); calling Start twice without an intervening
// Stop fails with ErrAlreadyStarted and leaves state unchanged (spec §8
// invariant 5).
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}

	if m.opts.StartICL {
		if err := m.supervisor.Start(ctx); err != nil {
			return fmt.Errorf("icl: starting ICL: %w", err)
		}
	}

	if err := m.transport.Open(ctx); err != nil {
		return fmt.Errorf("icl: opening transport: %w", err)
	}

	if err := m.transport.RegisterBinaryCallback(m.logBinaryFrame); err != nil {
		m.logger.Warn("icl: failed to register diagnostic binary callback", "error", err)
	}

	infoResp, err := m.transport.RequestWithResponse(ctx, icl.NewCommand("icl_info", nil), icl.DefaultRequestTimeout)
	if err != nil {
		_ = m.transport.Close()
		return fmt.Errorf("icl: icl_info: %w", err)
	}
	m.logger.Info("icl: connected", "info", infoResp.Results)

	if m.opts.EnableBinaryMessages {
		_, err := m.transport.RequestWithResponse(ctx, icl.NewCommand("icl_binMode", map[string]any{"mode": "all"}), icl.DefaultRequestTimeout)
		if err != nil {
			m.logger.Warn("icl: failed to enable binary telemetry", "error", err)
		}
	}

	if err := m.runDiscovery(ctx); err != nil {
		_ = m.transport.Close()
		return err
	}

	m.started = true
	return nil
}

// Stop issues a best-effort icl_shutdown, closes the transport and stops
// the supervisor. Timeout/Closed from the shutdown request are ignored, as
// the transport is being torn down regardless.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}

	if m.transport.Opened() {
		_, err := m.transport.RequestWithResponse(ctx, icl.NewCommand("icl_shutdown", nil), icl.DefaultRequestTimeout)
		if err != nil {
			m.logger.Debug("icl: best-effort icl_shutdown did not complete cleanly", "error", err)
		}
	}

	if err := m.transport.Close(); err != nil {
		m.logger.Debug("icl: transport close", "error", err)
	}

	var stopErr error
	if m.opts.StartICL {
		stopErr = m.supervisor.Stop(ctx)
	}

	m.started = false
	m.ccds = nil
	m.monos = nil

	return stopErr
}

// runDiscovery replaces the handle lists atomically; discovery is
// idempotent (spec §4.4).
func (m *Manager) runDiscovery(ctx context.Context) error {
	ccds, err := discoverCCDs(ctx, m.transport, m.catalogue, m.opts.ErrorOnNoDevices, m.logger)
	if err != nil {
		return fmt.Errorf("icl: discovering CCDs: %w", err)
	}

	monos, err := discoverMonochromators(ctx, m.transport, m.catalogue, m.opts.ErrorOnNoDevices, m.logger)
	if err != nil {
		return fmt.Errorf("icl: discovering monochromators: %w", err)
	}

	m.ccds = ccds
	m.monos = monos
	return nil
}

// ChargeCoupledDevices returns the CCDs found by the most recent
// discovery.
func (m *Manager) ChargeCoupledDevices() []*CCD {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*CCD(nil), m.ccds...)
}

// Monochromators returns the monochromators found by the most recent
// discovery.
func (m *Manager) Monochromators() []*Monochromator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Monochromator(nil), m.monos...)
}

// Transport exposes the shared transport for callers that need direct
// access, e.g. a blocking façade built on the same wire traffic.
func (m *Manager) Transport() *icl.Transport {
	return m.transport
}

// logBinaryFrame is the internal diagnostic binary callback installed by
// Start; it decodes and logs the header fields of every telemetry frame.
// Start installs it whatever EnableBinaryMessages says. A callback
// registered on Transport() before Start stays in place: Start's own
// registration then fails with ErrCallbackAlreadyRegistered and is logged.
func (m *Manager) logBinaryFrame(frame icl.BinaryFrame) {
	m.logger.Debug("icl: binary frame",
		"magic", frame.Magic,
		"messageType", frame.MessageType,
		"elementType", frame.ElementType,
		"elementCount", frame.ElementCount,
		"tags", frame.Tags,
		"payloadLength", len(frame.Payload),
	)
}

// String renders diagnostic manager state.
func (m *Manager) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return spew.Sprintf("device.Manager(started: %v, ccds: %v, monochromators: %v)", m.started, len(m.ccds), len(m.monos))
}
