package main

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

func ExecuteCommand(command string) (string, error) {
	var cmd *exec.Cmd
	var shell string

	// Check for empty command
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("empty command")
	}

	fmt.Println(command)

	// Windows
	if runtime.GOOS == "windows" {
		shell = "cmd"
		// #nosec G204 - This is a build tool that executes planned commands by design
		cmd = exec.Command(shell, "/C", command)
	} else {
		// Linux && MacOsX
		shell = "/bin/bash"
		// #nosec G204 - This is a build tool that executes planned commands by design
		cmd = exec.Command(shell, "-c", command)
	}

	out, err := cmd.CombinedOutput()
	return string(out), err
}

func ExecuteCommandWithContext(command string, verbose, dryRun bool) (string, error) {
	if verbose {
		fmt.Printf("→ %s\n", command)
	}

	if dryRun {
		fmt.Printf("  [DRY RUN] Would execute: %s\n", command)
		return "", nil
	}

	return ExecuteCommand(command)
}
