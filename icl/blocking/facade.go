// Package blocking provides a synchronous façade over icl/device. It holds
// the same *device.Manager as the async surface and only omits
// context.Context from its public methods, substituting
// context.Background() internally, so a program written against this
// façade issues identical wire traffic to one written against the async
// core (spec §4.9, §9 "Async vs sync duality"). It does not run a second
// protocol stack.
package blocking

import (
	"context"

	"github.com/horiba-icl/icl-go/icl/device"
)

// Manager is a blocking wrapper around *device.Manager.
type Manager struct {
	inner *device.Manager
}

// NewManager constructs a Manager with the given options.
func NewManager(opts device.ManagerOptions) (*Manager, error) {
	inner, err := device.NewManager(opts)
	if err != nil {
		return nil, err
	}
	return &Manager{inner: inner}, nil
}

// Start blocks until the manager is connected and discovery has run.
func (m *Manager) Start() error {
	return m.inner.Start(context.Background())
}

// Stop blocks until the manager has shut down.
func (m *Manager) Stop() error {
	return m.inner.Stop(context.Background())
}

// ChargeCoupledDevices returns blocking wrappers around the discovered
// CCDs.
func (m *Manager) ChargeCoupledDevices() []*CCD {
	ccds := m.inner.ChargeCoupledDevices()
	out := make([]*CCD, 0, len(ccds))
	for _, c := range ccds {
		out = append(out, &CCD{inner: c})
	}
	return out
}

// Monochromators returns blocking wrappers around the discovered
// monochromators.
func (m *Manager) Monochromators() []*Monochromator {
	monos := m.inner.Monochromators()
	out := make([]*Monochromator, 0, len(monos))
	for _, mono := range monos {
		out = append(out, &Monochromator{inner: mono})
	}
	return out
}

// Inner exposes the wrapped async manager, for callers that need to mix
// blocking and async calls against the same session.
func (m *Manager) Inner() *device.Manager { return m.inner }
