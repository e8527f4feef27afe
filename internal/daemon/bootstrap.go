package daemon

import (
	"os"
	"os/exec"
	"syscall"
)

// StartDetached spawns the daemon as a detached process by re-executing the
// current binary with the hidden daemon command. configPath may be empty.
func StartDetached(configPath string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}

	args := []string{"daemon"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	cmd := exec.Command(executable, args...)

	// Detach from parent process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	return cmd.Start()
}
