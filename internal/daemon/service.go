package daemon

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/adrg/xdg"
)

// ServiceLabel identifies the installed service to launchd and systemd.
const ServiceLabel = "dev.personalvault.daemon"

// ServiceManager installs the daemon as a per-user service: a launchd agent
// on macOS, a systemd user unit on Linux.
type ServiceManager struct {
	executable string
	logPath    string
	goos       string
	run        func(name string, args ...string) error
}

// NewServiceManager returns a manager for the running executable.
func NewServiceManager(paths Paths) (*ServiceManager, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	return &ServiceManager{
		executable: exe,
		logPath:    paths.Log(),
		goos:       runtime.GOOS,
		run: func(name string, args ...string) error {
			if out, err := exec.Command(name, args...).CombinedOutput(); err != nil {
				return fmt.Errorf("%s %v: %w: %s", name, args, err, out)
			}
			return nil
		},
	}, nil
}

type serviceKind struct {
	path      func() string
	template  string
	install   [][]string
	uninstall [][]string
}

func (m *ServiceManager) kind() (*serviceKind, error) {
	switch m.goos {
	case "darwin":
		path := filepath.Join(os.Getenv("HOME"), "Library", "LaunchAgents", ServiceLabel+".plist")
		return &serviceKind{
			path:      func() string { return path },
			template:  launchdPlist,
			install:   [][]string{{"launchctl", "load", path}},
			uninstall: [][]string{{"launchctl", "unload", path}},
		}, nil
	case "linux":
		unit := "personalvault.service"
		return &serviceKind{
			path:     func() string { return filepath.Join(xdg.ConfigHome, "systemd", "user", unit) },
			template: systemdUnit,
			install: [][]string{
				{"systemctl", "--user", "daemon-reload"},
				{"systemctl", "--user", "enable", "--now", unit},
			},
			uninstall: [][]string{
				{"systemctl", "--user", "disable", "--now", unit},
				{"systemctl", "--user", "daemon-reload"},
			},
		}, nil
	default:
		return nil, fmt.Errorf("service installation is not supported on %s", m.goos)
	}
}

// Render returns the service definition for this platform.
func (m *ServiceManager) Render() (string, error) {
	k, err := m.kind()
	if err != nil {
		return "", err
	}
	tmpl, err := template.New("service").Parse(k.template)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]string{
		"Label":      ServiceLabel,
		"Executable": m.executable,
		"LogPath":    m.logPath,
		"Home":       os.Getenv("HOME"),
		"StateHome":  xdg.StateHome,
		"ConfigHome": xdg.ConfigHome,
	})
	return buf.String(), err
}

// Path is where the service definition is written.
func (m *ServiceManager) Path() (string, error) {
	k, err := m.kind()
	if err != nil {
		return "", err
	}
	return k.path(), nil
}

// Install writes the service definition and starts it.
func (m *ServiceManager) Install() error {
	k, err := m.kind()
	if err != nil {
		return err
	}
	content, err := m.Render()
	if err != nil {
		return err
	}
	path := k.path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write service file: %w", err)
	}
	for _, c := range k.install {
		if err := m.run(c[0], c[1:]...); err != nil {
			return err
		}
	}
	return nil
}

// Uninstall stops the service and removes its definition. Stop failures
// are ignored since the service may not be loaded.
func (m *ServiceManager) Uninstall() error {
	k, err := m.kind()
	if err != nil {
		return err
	}
	for _, c := range k.uninstall {
		_ = m.run(c[0], c[1:]...)
	}
	if err := os.Remove(k.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove service file: %w", err)
	}
	return nil
}

// IsInstalled reports whether the service definition exists.
func (m *ServiceManager) IsInstalled() bool {
	path, err := m.Path()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

const launchdPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Executable}}</string>
        <string>daemon</string>
        <string>start</string>
        <string>--foreground</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>
    <key>StandardErrorPath</key>
    <string>{{.LogPath}}</string>
</dict>
</plist>
`

const systemdUnit = `[Unit]
Description=personalvault sync daemon
After=network-online.target

[Service]
Type=simple
ExecStart={{.Executable}} daemon start --foreground
Restart=on-failure
RestartSec=5
StandardOutput=append:{{.LogPath}}
StandardError=append:{{.LogPath}}
Environment="HOME={{.Home}}"
Environment="XDG_STATE_HOME={{.StateHome}}"
Environment="XDG_CONFIG_HOME={{.ConfigHome}}"

[Install]
WantedBy=default.target
`
