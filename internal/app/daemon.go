package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	daemonUnitName = "khobor-serve.service"
	systemdUnitDir = "/etc/systemd/system"
)

func runDaemon(args []string) int {
	if len(args) == 0 {
		printDaemonUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "help", "-h", "--help":
		printDaemonUsage()
		return 0
	case "install":
		return runDaemonInstall(args[1:])
	case "uninstall":
		return runDaemonUninstall(args[1:])
	case "start":
		return runDaemonServiceAction("start", args[1:], true)
	case "stop":
		return runDaemonServiceAction("stop", args[1:], true)
	case "restart":
		return runDaemonServiceAction("restart", args[1:], true)
	case "status":
		return runDaemonServiceAction("status", args[1:], false)
	default:
		fmt.Fprintf(os.Stderr, "unknown daemon action: %s\n\n", args[0])
		printDaemonUsage()
		return 2
	}
}

func runDaemonInstall(args []string) int {
	fs := flag.NewFlagSet("daemon install", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	defaultUser := strings.TrimSpace(os.Getenv("USER"))
	if defaultUser == "" {
		defaultUser = "root"
	}

	userName := fs.String("user", defaultUser, "Run the service as this Linux user")
	port := fs.Int("port", 8080, "Port for the API server")
	workDir := fs.String("workdir", "", "Working directory for the service (default: binary location)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon install does not accept positional args")
		return 2
	}
	if err := validatePort(*port, "--port"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if strings.TrimSpace(*userName) == "" {
		fmt.Fprintln(os.Stderr, "--user must not be empty")
		return 2
	}
	if err := requireRoot("install"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	binaryPath, err := resolveBinaryPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to locate the khobor binary: %v\n", err)
		return 1
	}
	resolvedWorkDir, err := resolveWorkDir(*workDir, binaryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve --workdir: %v\n", err)
		return 2
	}

	unit := buildServeUnitFile(strings.TrimSpace(*userName), resolvedWorkDir, binaryPath, *port)

	if err := writeUnitFile(daemonUnitName, unit); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", daemonUnitName, err)
		return 1
	}
	if err := runSystemctl("daemon-reload"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reload systemd units: %v\n", err)
		return 1
	}
	if err := runSystemctl("enable", daemonUnitName); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enable service: %v\n", err)
		return 1
	}

	fmt.Printf("Installed %s\n", daemonUnitName)
	fmt.Println("The service is enabled on boot. Run `khobor daemon start` to start it now.")
	return 0
}

func runDaemonUninstall(args []string) int {
	fs := flag.NewFlagSet("daemon uninstall", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon uninstall does not accept positional args")
		return 2
	}
	if err := requireRoot("uninstall"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := runSystemctl("stop", daemonUnitName); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to stop service: %v\n", err)
	}
	if err := runSystemctl("disable", daemonUnitName); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to disable service: %v\n", err)
	}

	unitPath := filepath.Join(systemdUnitDir, daemonUnitName)
	if err := os.Remove(unitPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to remove %s: %v\n", unitPath, err)
		return 1
	}

	if err := runSystemctl("daemon-reload"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reload systemd units: %v\n", err)
		return 1
	}

	fmt.Printf("Removed %s\n", daemonUnitName)
	return 0
}

func runDaemonServiceAction(action string, args []string, requireRootPrivileges bool) int {
	fs := flag.NewFlagSet("daemon "+action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "daemon %s does not accept positional args\n", action)
		return 2
	}
	if requireRootPrivileges {
		if err := requireRoot(action); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	systemctlArgs := make([]string, 0, 3)
	systemctlArgs = append(systemctlArgs, action)
	if action == "status" {
		systemctlArgs = append(systemctlArgs, "--no-pager")
	}
	systemctlArgs = append(systemctlArgs, daemonUnitName)

	if err := runSystemctl(systemctlArgs...); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to %s service: %v\n", action, err)
		return 1
	}
	return 0
}

func validatePort(port int, flagName string) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535", flagName)
	}
	return nil
}

func requireRoot(action string) error {
	if os.Geteuid() == 0 {
		return nil
	}
	return fmt.Errorf("daemon %s requires root privileges; run with sudo: sudo khobor daemon %s", action, action)
}

// resolveBinaryPath returns the absolute, symlink-resolved path of the
// running binary so the unit file survives PATH changes.
func resolveBinaryPath() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exePath); err == nil {
		exePath = resolved
	}
	return filepath.Abs(exePath)
}

func resolveWorkDir(raw, binaryPath string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = filepath.Dir(binaryPath)
	}

	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("normalize path %q: %w", trimmed, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", absPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", absPath)
	}
	return absPath, nil
}

func buildServeUnitFile(userName, workDir, binaryPath string, port int) string {
	lines := []string{
		"[Unit]",
		"Description=Khobor news API service",
		"After=network.target postgresql.service",
		"",
		"[Service]",
		"Type=simple",
		"User=" + userName,
		"WorkingDirectory=" + workDir,
		"ExecStart=" + binaryPath + " serve --host 0.0.0.0 --port " + strconv.Itoa(port),
		"Restart=on-failure",
		"RestartSec=5",
		"",
		"[Install]",
		"WantedBy=multi-user.target",
		"",
	}
	return strings.Join(lines, "\n")
}

func writeUnitFile(name, content string) error {
	unitPath := filepath.Join(systemdUnitDir, name)
	return os.WriteFile(unitPath, []byte(content), 0o644)
}

func runSystemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

func printDaemonUsage() {
	fmt.Fprintln(os.Stderr, "khobor daemon")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  khobor daemon <action> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Actions:")
	fmt.Fprintln(os.Stderr, "  install     Write the unit file, daemon-reload, and enable the service on boot")
	fmt.Fprintln(os.Stderr, "  uninstall   Stop, disable, and remove the unit file")
	fmt.Fprintln(os.Stderr, "  start       Start the service")
	fmt.Fprintln(os.Stderr, "  stop        Stop the service")
	fmt.Fprintln(os.Stderr, "  restart     Restart the service")
	fmt.Fprintln(os.Stderr, "  status      Show service status")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Install flags:")
	fmt.Fprintln(os.Stderr, "  --user <name>      Service user (default: $USER)")
	fmt.Fprintln(os.Stderr, "  --port <n>         API port (default: 8080)")
	fmt.Fprintln(os.Stderr, "  --workdir <path>   Working directory (default: binary location)")
}
