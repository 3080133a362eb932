//go:build windows

package main

import (
	"os"
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32 = syscall.NewLazyDLL("kernel32.dll")

	procGetConsoleProcessList = kernel32.NewProc("GetConsoleProcessList")
)

// spawnedEnv marks a process we started ourselves, so it never re-spawns.
const spawnedEnv = "_DUPESORT_SPAWNED"

// isDoubleClick returns true if the program was launched by double-click
// On Windows, GetConsoleProcessList returns 1 when double-clicked (only our process)
// and > 1 when run from an existing terminal
func isDoubleClick() bool {
	if os.Getenv(spawnedEnv) == "1" {
		return false
	}
	var processes [2]uint32
	ret, _, _ := procGetConsoleProcessList.Call(
		uintptr(unsafe.Pointer(&processes[0])),
		uintptr(2),
	)
	return ret == 1
}

// spawnTerminal opens a new console running "dupesort tui"
func spawnTerminal() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command("cmd", "/c", "start", "", exe, "tui")
	cmd.Env = append(os.Environ(), spawnedEnv+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_CONSOLE,
	}
	return cmd.Start()
}
