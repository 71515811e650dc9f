package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horiba-icl/icl-go/icl/faketest"
)

func startFakeICLServer(t *testing.T) string {
	t.Helper()
	server, url := faketest.NewServer()
	t.Cleanup(server.Close)

	server.SetHandler(func(s *faketest.Server, raw map[string]any) {
		results := map[string]any{}
		switch raw["command"] {
		case "icl_info":
			results["version"] = "fake-1.0"
		case "ccd_discover", "mono_discover":
			results["count"] = float64(0)
		case "ccd_list", "mono_list":
			results["devices"] = []any{}
		}
		_ = s.SendJSON(map[string]any{
			"id":      raw["id"],
			"command": raw["command"],
			"results": results,
			"errors":  []string{},
		})
	})

	return url
}

// Invariant 5: idempotent start.
func TestManager_StartTwiceFails(t *testing.T) {
	url := startFakeICLServer(t)

	m, err := NewManager(ManagerOptions{WebsocketURI: url})
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop(context.Background()) })

	err = m.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestManager_StopWithoutStartFails(t *testing.T) {
	m, err := NewManager(ManagerOptions{})
	require.NoError(t, err)

	err = m.Stop(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestManager_StartThenStopThenStartAgain(t *testing.T) {
	url := startFakeICLServer(t)

	m, err := NewManager(ManagerOptions{WebsocketURI: url})
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, m.Start(ctx))
	_ = m.Stop(context.Background())
}
