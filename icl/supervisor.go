package icl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// iclProcessName is the process image name the supervisor scans for to
// decide whether the ICL is already running. Spawning is only ever
// attempted on Windows, the ICL's only supported platform.
const iclProcessName = "icl.exe"

// DefaultICLPath is the ICL installation path used when NewSupervisor is
// given an empty path.
const DefaultICLPath = `C:\Program Files\HORIBA Scientific\SDK\icl.exe`

// shutdownGracePeriod bounds how long Stop waits for the ICL to exit on its
// own after icl_shutdown before forcibly killing it.
const shutdownGracePeriod = 10 * time.Second

// ErrShutdownFailed is returned by Stop when the ICL process is still
// present after the grace period and a forced kill.
var ErrShutdownFailed = errors.New("icl: failed to shut down ICL software")

// Supervisor manages the lifecycle of the vendor ICL bridge process. Start
// is idempotent: if an ICL instance is already running, it is left alone.
// Start is a no-op on non-Windows platforms, since the ICL only ships for
// Windows.
type Supervisor struct {
	path      string
	transport *Transport
	logger    *slog.Logger

	mu   sync.Mutex
	proc *exec.Cmd
}

// NewSupervisor constructs a Supervisor that spawns path (or DefaultICLPath
// if empty) and issues icl_shutdown over transport when stopping.
func NewSupervisor(path string, transport *Transport, logger *slog.Logger) *Supervisor {
	if path == "" {
		path = DefaultICLPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{path: path, transport: transport, logger: logger}
}

// Start launches the ICL if it is not already running. On any platform
// other than Windows this is a no-op, matching the ICL's platform support.
func (s *Supervisor) Start(ctx context.Context) error {
	s.logger.Info("icl: starting ICL software")

	if runtime.GOOS != "windows" {
		s.logger.Debug("icl: skipping ICL spawn, not running on windows")
		return nil
	}

	running, err := s.isRunning()
	if err != nil {
		return fmt.Errorf("icl: scanning processes: %w", err)
	}
	if running {
		s.logger.Debug("icl: ICL already running, not spawning a new instance")
		return nil
	}

	s.logger.Info("icl: ICL not running, starting it", "path", s.path)
	cmd := exec.CommandContext(ctx, s.path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("icl: spawning ICL: %w", err)
	}

	s.mu.Lock()
	s.proc = cmd
	s.mu.Unlock()

	return nil
}

// Stop requests a graceful shutdown over transport (icl_shutdown), waits up
// to shutdownGracePeriod for the spawned process to exit, force-kills it if
// necessary, and confirms termination by re-scanning for iclProcessName.
// If Start never spawned a process on this Supervisor, the wait and kill
// are skipped, but icl_shutdown is still sent when the transport is open,
// and on Windows the re-scan still runs.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.logger.Info("icl: requesting shutdown of ICL")

	if s.transport != nil && s.transport.Opened() {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGracePeriod)
		defer cancel()
		_, err := s.transport.RequestWithResponse(shutdownCtx, NewCommand("icl_shutdown", nil), shutdownGracePeriod)
		if err != nil {
			s.logger.Debug("icl: icl_shutdown request did not complete cleanly", "error", err)
		}
	}

	s.mu.Lock()
	cmd := s.proc
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		waitDone := make(chan error, 1)
		go func() { waitDone <- cmd.Wait() }()

		select {
		case <-waitDone:
		case <-time.After(shutdownGracePeriod):
			s.logger.Warn("icl: ICL did not exit within grace period, killing")
			_ = cmd.Process.Kill()
			<-waitDone
		}
	}

	if runtime.GOOS != "windows" {
		return nil
	}

	running, err := s.isRunning()
	if err != nil {
		return fmt.Errorf("icl: scanning processes after shutdown: %w", err)
	}
	if running {
		return ErrShutdownFailed
	}

	s.logger.Info("icl: ICL software shut down")
	return nil
}

// isRunning scans the current process list for iclProcessName.
func (s *Supervisor) isRunning() (bool, error) {
	procs, err := process.Processes()
	if err != nil {
		return false, err
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		if name == iclProcessName {
			return true, nil
		}
	}
	return false, nil
}
