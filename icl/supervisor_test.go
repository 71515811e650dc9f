package icl

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Invariant 6 (idempotent supervisor) is only exercisable on Windows,
// where Start actually scans for and spawns the ICL process. On every
// other platform Start is specified as an inert no-op, which this test
// pins down instead.
func TestSupervisor_StartIsNoOpOffWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exercised against the real scan/spawn path on windows")
	}

	s := NewSupervisor("", nil, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	assert.Nil(t, proc)
}

func TestSupervisor_StopWithNoProcessIsNoOp(t *testing.T) {
	s := NewSupervisor("", nil, nil)
	err := s.Stop(context.Background())
	assert.NoError(t, err)
}
