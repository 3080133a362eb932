//go:build !windows

package main

import (
	"errors"
	"os"
	"os/exec"
	"runtime"

	"github.com/mattn/go-isatty"
)

// spawnedEnv marks a process we started ourselves, so it never re-spawns.
const spawnedEnv = "_DUPESORT_SPAWNED"

// isDoubleClick returns true if the program was launched by double-click
// On Unix, we check if stdin is a TTY - if not, likely double-clicked
func isDoubleClick() bool {
	if os.Getenv(spawnedEnv) == "1" {
		return false
	}
	return !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsTerminal(os.Stdout.Fd())
}

// spawnTerminal opens a terminal window running "dupesort tui"
func spawnTerminal() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	env := append(os.Environ(), spawnedEnv+"=1")

	if runtime.GOOS == "darwin" {
		cmd := exec.Command("open", "-a", "Terminal", exe, "--args", "tui")
		cmd.Env = env
		return cmd.Start()
	}

	// Try different terminals in order of preference
	terminals := []struct {
		name string
		args []string
	}{
		{"x-terminal-emulator", []string{"-e", exe, "tui"}},
		{"gnome-terminal", []string{"--", exe, "tui"}},
		{"konsole", []string{"-e", exe, "tui"}},
		{"xfce4-terminal", []string{"-e", exe + " tui"}},
		{"xterm", []string{"-e", exe, "tui"}},
	}

	for _, term := range terminals {
		if _, err := exec.LookPath(term.name); err != nil {
			continue
		}
		cmd := exec.Command(term.name, term.args...)
		cmd.Env = env
		if err := cmd.Start(); err == nil {
			return nil
		}
	}

	return errors.New("no terminal emulator found")
}
