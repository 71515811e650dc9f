package icl

import (
	"context"
	"encoding/binary"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horiba-icl/icl-go/icl/faketest"
)

func openTestTransport(t *testing.T) (*Transport, *faketest.Server) {
	t.Helper()
	server, url := faketest.NewServer()
	t.Cleanup(server.Close)

	transport := NewTransport(url, nil)
	require.NoError(t, transport.Open(context.Background()))
	t.Cleanup(func() { _ = transport.Close() })

	return transport, server
}

// S1-adjacent: identifier uniqueness (invariant 1).
func TestNewCommand_IdentifiersAreUniqueAndIncreasing(t *testing.T) {
	var prev int64
	for i := 0; i < 1000; i++ {
		cmd := NewCommand("ccd_noop", nil)
		assert.Greater(t, cmd.ID, prev)
		prev = cmd.ID
	}
}

// S1 (fake server, adapted to the transport layer): echo server replies
// with an empty-error response and RequestWithResponse returns it matched
// by id (invariant 2).
func TestRequestWithResponse_MatchesByID(t *testing.T) {
	transport, server := openTestTransport(t)

	server.SetHandler(func(s *faketest.Server, raw map[string]any) {
		_ = s.SendJSON(map[string]any{
			"id":      raw["id"],
			"command": raw["command"],
			"results": map[string]any{},
			"errors":  []string{},
		})
	})

	cmd := NewCommand("ccd_open", map[string]any{"index": 0})
	resp, err := transport.RequestWithResponse(context.Background(), cmd, time.Second)
	require.NoError(t, err)
	assert.Equal(t, cmd.ID, resp.ID)
}

// S2: timeout fires within 1.0-1.2s and the waiter is removed (invariant
// 3, orphan discard).
func TestRequestWithResponse_Timeout(t *testing.T) {
	transport, server := openTestTransport(t)
	server.SetHandler(func(*faketest.Server, map[string]any) {}) // never replies

	cmd := NewCommand("ccd_getChipTemperature", nil)

	start := time.Now()
	_, err := transport.RequestWithResponse(context.Background(), cmd, time.Second)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 1200*time.Millisecond)

	transport.pendingMu.Lock()
	_, stillPending := transport.pending[cmd.ID]
	transport.pendingMu.Unlock()
	assert.False(t, stillPending)
}

// S3: a burst of concurrent requests against a server replying out of
// order with jitter; every response matches its originating id.
func TestRequestWithResponse_CorrelatedBurst(t *testing.T) {
	transport, server := openTestTransport(t)

	server.SetHandler(func(s *faketest.Server, raw map[string]any) {
		go func() {
			time.Sleep(time.Duration(10+rand.Intn(40)) * time.Millisecond)
			_ = s.SendJSON(map[string]any{
				"id":      raw["id"],
				"command": raw["command"],
				"results": map[string]any{},
				"errors":  []string{},
			})
		}()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cmd := NewCommand("ccd_isOpen", nil)
			resp, err := transport.RequestWithResponse(context.Background(), cmd, 2*time.Second)
			assert.NoError(t, err)
			if resp != nil {
				assert.Equal(t, cmd.ID, resp.ID)
			}
		}()
	}
	wg.Wait()
}

// S4: binary interleave — two JSON responses and one binary frame are
// received in order, the binary callback sees exactly one 1KB frame and
// both JSON waiters complete.
func TestTransport_BinaryInterleave(t *testing.T) {
	transport, server := openTestTransport(t)

	frames := make(chan BinaryFrame, 4)
	require.NoError(t, transport.RegisterBinaryCallback(func(f BinaryFrame) { frames <- f }))

	cmd1 := NewCommand("ccd_setExposureTime", nil)
	cmd2 := NewCommand("ccd_setExposureTime", nil)

	payload := make([]byte, BinaryFrameHeaderSize+1024)
	binary.LittleEndian.PutUint16(payload[0:2], 0xBEEF)

	server.SetHandler(func(s *faketest.Server, raw map[string]any) {
		id := raw["id"]
		switch id {
		case float64(cmd1.ID):
			_ = s.SendJSON(map[string]any{"id": id, "command": raw["command"], "results": map[string]any{}, "errors": []string{}})
			_ = s.SendBinary(payload)
		case float64(cmd2.ID):
			_ = s.SendJSON(map[string]any{"id": id, "command": raw["command"], "results": map[string]any{}, "errors": []string{}})
		}
	})

	resp1, err := transport.RequestWithResponse(context.Background(), cmd1, time.Second)
	require.NoError(t, err)
	assert.Equal(t, cmd1.ID, resp1.ID)

	resp2, err := transport.RequestWithResponse(context.Background(), cmd2, time.Second)
	require.NoError(t, err)
	assert.Equal(t, cmd2.ID, resp2.ID)

	select {
	case f := <-frames:
		assert.Equal(t, 1024, len(f.Payload))
	case <-time.After(time.Second):
		t.Fatal("binary frame never delivered")
	}

	select {
	case <-frames:
		t.Fatal("unexpected second binary frame")
	default:
	}
}

// S6: a request in flight when Close is called fails with ErrClosed, not
// ErrTimeout, and the reader goroutine terminates.
func TestTransport_ShutdownRace(t *testing.T) {
	transport, server := openTestTransport(t)
	server.SetHandler(func(*faketest.Server, map[string]any) {}) // never replies

	cmd := NewCommand("ccd_getChipTemperature", nil)

	done := make(chan error, 1)
	go func() {
		_, err := transport.RequestWithResponse(context.Background(), cmd, 5*time.Second)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, transport.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("request never completed after close")
	}
}
