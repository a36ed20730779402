package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/manav03panchal/personalvault/internal/config"
	"github.com/manav03panchal/personalvault/internal/errors"
)

// Status describes the daemon as seen from another process.
type Status struct {
	Running    bool          `json:"running"`
	PID        int           `json:"pid,omitempty"`
	StartedAt  time.Time     `json:"started_at,omitzero"`
	Uptime     string        `json:"uptime,omitempty"`
	HealthAddr string        `json:"health_addr,omitempty"`
	Health     *HealthStatus `json:"health,omitempty"`
}

// Control starts, stops and inspects the daemon from the CLI.
type Control struct {
	paths   Paths
	cfg     config.DaemonConfig
	pidFile *PIDFile
	client  *http.Client
}

// NewControl returns a controller for the daemon whose files live in paths.
func NewControl(paths Paths, cfg config.DaemonConfig) *Control {
	if paths.Dir == "" {
		paths = DefaultPaths()
	}
	return &Control{
		paths:   paths,
		cfg:     cfg,
		pidFile: NewPIDFile(paths.PID()),
		client:  &http.Client{Timeout: 2 * time.Second},
	}
}

// IsRunning returns true if the daemon is running.
func (c *Control) IsRunning() bool {
	return c.pidFile.IsRunning()
}

// Status reports whether the daemon runs and, when it serves health, its
// health.
func (c *Control) Status(ctx context.Context) *Status {
	st := &Status{}
	pid := c.pidFile.RunningPID()
	if pid == 0 {
		return st
	}
	st.Running = true
	st.PID = pid

	state, err := readState(c.paths.State())
	if err != nil {
		return st
	}
	st.StartedAt = state.StartedAt
	st.Uptime = formatUptime(time.Since(state.StartedAt))
	st.HealthAddr = state.HealthAddr
	if state.HealthAddr != "" {
		if h, err := c.health(ctx, state.HealthAddr); err == nil {
			st.Health = h
		}
	}
	return st
}

func (c *Control) health(ctx context.Context, addr string) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var h HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Flush asks the running daemon to write out pending changes.
func (c *Control) Flush(ctx context.Context) error {
	state, err := readState(c.paths.State())
	if err != nil || state.HealthAddr == "" || !c.IsRunning() {
		return ErrNotRunning
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+state.HealthAddr+"/flush", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrRemoteUnavailable, "daemon flush returned %d", resp.StatusCode)
	}
	return nil
}

// StartBackground re-executes the binary as `daemon start --foreground`
// with extra appended, logging to the daemon log. It waits StartupWait and
// reports the child's PID once it has written its PID file.
func (c *Control) StartBackground(extra ...string) (int, error) {
	if pid := c.pidFile.RunningPID(); pid > 0 {
		return pid, ErrAlreadyRunning
	}

	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	args := append([]string{"daemon", "start", "--foreground"}, extra...)
	cmd := exec.Command(executable, args...)
	cmd.Stdin = nil

	logPath := c.paths.Log()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err == nil {
		_ = RotateLog(logPath, MaxLogSize)
		if logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			defer logFile.Close()
			cmd.Stdout = logFile
			cmd.Stderr = logFile
		}
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}
	go func() { _ = cmd.Wait() }()

	time.Sleep(c.cfg.StartupWait)

	if !c.pidFile.IsRunning() {
		if msg := LastLogError(logPath); msg != "" {
			return 0, fmt.Errorf("daemon failed to start: %s", msg)
		}
		return 0, fmt.Errorf("daemon failed to start (check logs: %s)", logPath)
	}
	return cmd.Process.Pid, nil
}

// Stop interrupts the daemon and waits up to KillTimeout for it to exit
// before killing it.
func (c *Control) Stop() error {
	pid := c.pidFile.RunningPID()
	if pid == 0 {
		return ErrNotRunning
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(os.Interrupt); err != nil {
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
	}

	// The daemon is not our child, so poll instead of Wait.
	deadline := time.Now().Add(c.cfg.KillTimeout)
	for IsProcessRunning(pid) && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if IsProcessRunning(pid) {
		_ = process.Kill()
	}

	_ = c.pidFile.Remove()
	removeState(c.paths.State())
	return nil
}
