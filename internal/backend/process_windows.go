//go:build windows

package backend

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// canShellLimit is always false on Windows; memory is enforced by polling.
func canShellLimit() bool {
	return false
}

func exitSignal(_ *os.ProcessState) (syscall.Signal, bool) {
	return 0, false
}

// residentMemoryKB samples working-set size via tasklist. Output is CSV:
// "name","pid","session","num","12,345 K".
func residentMemoryKB(pid int) (int64, error) {
	out, err := exec.Command("tasklist", "/FI", fmt.Sprintf("PID eq %d", pid), "/FO", "CSV", "/NH").Output()
	if err != nil {
		return 0, fmt.Errorf("sample working set for pid %d: %w", pid, err)
	}

	line := strings.TrimSpace(string(out))
	fields := strings.Split(line, "\",\"")
	if len(fields) < 5 {
		return 0, fmt.Errorf("unexpected tasklist output for pid %d: %q", pid, line)
	}

	mem := strings.Trim(fields[len(fields)-1], "\" \r\n")
	mem = strings.TrimSuffix(mem, " K")
	mem = strings.ReplaceAll(mem, ",", "")
	mem = strings.ReplaceAll(mem, ".", "")

	kb, err := strconv.ParseInt(mem, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse working set for pid %d: %w", pid, err)
	}

	return kb, nil
}
