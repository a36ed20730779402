package cmd

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/personalvault/internal/config"
	"github.com/manav03panchal/personalvault/internal/daemon"
	"github.com/manav03panchal/personalvault/internal/logging"
	"github.com/manav03panchal/personalvault/internal/output"
)

// Daemon command flags.
var (
	daemonStartFlagForeground bool
	daemonStartFlagAddr       string
	daemonStartFlagLogFile    string
	daemonLogsFlagTail        int
	daemonLogsFlagFollow      bool
	daemonInstallFlagForce    bool
)

// The daemon subcommands run without the runtime so they never hold the
// cache lock the daemon needs. start --foreground opens it itself.
var daemonCmd = &cobra.Command{
	Use:     "daemon [command]",
	Aliases: []string{"d", "service"},
	Short:   "Manage the background sync daemon",
	Long: `Manage the background daemon that keeps the local cache fresh, retries
pending writes and refreshes the sign-in session.

Examples:
  personalvault daemon start
  personalvault daemon status
  personalvault daemon flush
  personalvault daemon logs --tail 50`,
	Annotations: map[string]string{annotationNoRuntime: "true"},
	RunE:        runDaemonStatus,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the background daemon",
	Long: `Start the daemon in the background, or in the foreground with -F.

Examples:
  personalvault daemon start
  personalvault daemon start -F --addr 127.0.0.1:9400`,
	Args: cobra.NoArgs,
	RunE: runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and health",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

var daemonFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Ask the daemon to write pending changes now",
	Args:  cobra.NoArgs,
	RunE:  runDaemonFlush,
}

var daemonLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View daemon logs",
	Args:  cobra.NoArgs,
	RunE:  runDaemonLogs,
}

var daemonInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the daemon as a login service",
	Long: `Install the daemon as a service that starts on login.

On macOS this creates a launchd agent in ~/Library/LaunchAgents.
On Linux this creates a systemd user unit in ~/.config/systemd/user.`,
	Args: cobra.NoArgs,
	RunE: runDaemonInstall,
}

var daemonUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the login service",
	Args:  cobra.NoArgs,
	RunE:  runDaemonUninstall,
}

func init() {
	daemonStartCmd.Flags().BoolVarP(&daemonStartFlagForeground, "foreground", "F", false,
		"Run in the foreground")
	daemonStartCmd.Flags().StringVar(&daemonStartFlagAddr, "addr", "",
		`Health endpoint address ("-" disables it)`)
	daemonStartCmd.Flags().StringVar(&daemonStartFlagLogFile, "log-file", "",
		"Write JSON logs to this file instead of stderr")

	daemonLogsCmd.Flags().IntVarP(&daemonLogsFlagTail, "tail", "n", 20,
		"Number of lines to show")
	daemonLogsCmd.Flags().BoolVar(&daemonLogsFlagFollow, "follow", false,
		"Follow log output")

	daemonInstallCmd.Flags().BoolVar(&daemonInstallFlagForce, "force", false,
		"Reinstall if already installed")

	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd, daemonFlushCmd,
		daemonLogsCmd, daemonInstallCmd, daemonUninstallCmd)
	rootCmd.AddCommand(daemonCmd)
}

func newControl() *daemon.Control {
	return daemon.NewControl(daemon.DefaultPaths(), config.Global.Daemon)
}

// jsonOutput reports whether --format json was given, for commands that run
// without the runtime.
func jsonOutput() bool {
	f, err := parseFormat(flagFormat)
	return err == nil && f == output.FormatJSON
}

func printJSON(v any) error {
	f := output.NewFormatter()
	return f.JSON(v)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	if !daemonStartFlagForeground {
		var extra []string
		if daemonStartFlagAddr != "" {
			extra = append(extra, "--addr", daemonStartFlagAddr)
		}
		if flagConfig != "" {
			extra = append(extra, "--config", flagConfig)
		}
		if flagOffline {
			extra = append(extra, "--offline")
		}
		if flagDebug {
			extra = append(extra, "--debug")
		}

		pid, err := newControl().StartBackground(extra...)
		if stderrors.Is(err, daemon.ErrAlreadyRunning) {
			return fmt.Errorf("daemon is already running (PID: %d)", pid)
		}
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(map[string]any{"status": "started", "pid": pid})
		}
		fmt.Printf("Daemon started (PID: %d)\n", pid)
		return nil
	}

	if err := initDaemonLogging(); err != nil {
		return err
	}
	if err := openRuntime(cmd); err != nil {
		return err
	}
	if !ctx.IsJSON() {
		ctx.Formatter.Printf("Starting personalvault daemon (foreground)...\n")
	}
	d := daemon.New(ctx, daemon.Options{Version: Version, HealthAddr: daemonStartFlagAddr})
	return d.Run(cmd.Context())
}

// initDaemonLogging switches to JSON logs at info level so the log file
// can be scanned for the last error.
func initDaemonLogging() error {
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	if daemonStartFlagLogFile == "" {
		logging.Init(logging.Config{Level: level, JSON: true, Output: os.Stderr, AddSource: flagDebug})
		return nil
	}
	// The file stays open for the life of the process.
	_, err := logging.InitFile(daemonStartFlagLogFile, level)
	return err
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	c := newControl()
	st := c.Status(cmd.Context())
	if !st.Running {
		fmt.Println("Daemon is not running")
		return nil
	}

	if err := c.Stop(); err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(map[string]any{"status": "stopped", "pid": st.PID})
	}
	fmt.Printf("Daemon stopped (was PID: %d)\n", st.PID)
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	st := newControl().Status(cmd.Context())
	if jsonOutput() {
		return printJSON(st)
	}

	fmt.Println("personalvault daemon")
	fmt.Println()
	if !st.Running {
		fmt.Println("  Status:    stopped")
		fmt.Println()
		fmt.Println("Start with: personalvault daemon start")
		return nil
	}

	fmt.Println("  Status:    running")
	fmt.Printf("  PID:       %d\n", st.PID)
	fmt.Printf("  Uptime:    %s\n", st.Uptime)
	if st.HealthAddr != "" {
		fmt.Printf("  Health:    http://%s/health\n", st.HealthAddr)
	}
	if h := st.Health; h != nil {
		fmt.Printf("  State:     %s\n", h.Status)
		fmt.Printf("  Remote:    %s (breaker %s)\n", h.Remote, h.Breaker)
		if len(h.Pending) > 0 {
			fmt.Printf("  Pending:   %v\n", h.Pending)
		}
		for _, j := range h.Jobs {
			line := fmt.Sprintf("  Job %-12s runs %d", j.Name, j.Runs)
			if j.LastError != "" {
				line += "  last error: " + j.LastError
			}
			fmt.Println(line)
		}
	}
	return nil
}

func runDaemonFlush(cmd *cobra.Command, args []string) error {
	if err := newControl().Flush(cmd.Context()); err != nil {
		if stderrors.Is(err, daemon.ErrNotRunning) {
			return fmt.Errorf("daemon is not running: %w", err)
		}
		return err
	}
	if jsonOutput() {
		return printJSON(map[string]string{"status": "flushed"})
	}
	fmt.Println("Pending changes written")
	return nil
}

func runDaemonLogs(cmd *cobra.Command, args []string) error {
	logPath := daemon.DefaultPaths().Log()
	file, err := os.Open(logPath)
	if os.IsNotExist(err) {
		fmt.Println("No log file found.")
		fmt.Printf("Log path: %s\n", logPath)
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	lines, err := tailLines(file, daemonLogsFlagTail)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	if !daemonLogsFlagFollow {
		return nil
	}
	return followLog(cmd, file)
}

// tailLines returns the last n lines of r.
func tailLines(r io.Reader, n int) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}

// followLog prints lines appended to file until the command is cancelled.
func followLog(cmd *cobra.Command, file *os.File) error {
	reader := bufio.NewReader(file)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		for {
			line, err := reader.ReadString('\n')
			if len(line) > 0 {
				fmt.Print(line)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
		}
		select {
		case <-cmd.Context().Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runDaemonInstall(cmd *cobra.Command, args []string) error {
	mgr, err := daemon.NewServiceManager(daemon.DefaultPaths())
	if err != nil {
		return err
	}
	if mgr.IsInstalled() && !daemonInstallFlagForce {
		path, _ := mgr.Path()
		fmt.Printf("Service already installed at %s (use --force to reinstall)\n", path)
		return nil
	}
	if mgr.IsInstalled() {
		if err := mgr.Uninstall(); err != nil {
			return err
		}
	}
	if err := mgr.Install(); err != nil {
		return err
	}
	path, _ := mgr.Path()
	fmt.Printf("Service installed: %s\n", path)
	return nil
}

func runDaemonUninstall(cmd *cobra.Command, args []string) error {
	mgr, err := daemon.NewServiceManager(daemon.DefaultPaths())
	if err != nil {
		return err
	}
	if !mgr.IsInstalled() {
		fmt.Println("Service is not installed")
		return nil
	}
	if err := mgr.Uninstall(); err != nil {
		return err
	}
	fmt.Println("Service removed")
	return nil
}
