//go:build unix

package backend

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// canShellLimit reports whether a POSIX shell is available for applying a
// ulimit ceiling before exec.
func canShellLimit() bool {
	_, err := exec.LookPath("bash")
	return err == nil
}

// exitSignal extracts the terminating signal from a wait status, if the
// child was signaled rather than exiting normally.
func exitSignal(ps *os.ProcessState) (syscall.Signal, bool) {
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}

	return ws.Signal(), true
}

// residentMemoryKB reads the resident set size of a process. Linux exposes
// it in /proc; elsewhere ps(1) is the portable fallback.
func residentMemoryKB(pid int) (int64, error) {
	if kb, err := procStatusRSS(pid); err == nil {
		return kb, nil
	}

	out, err := exec.Command("ps", "-o", "rss=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return 0, fmt.Errorf("sample rss for pid %d: %w", pid, err)
	}

	kb, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rss for pid %d: %w", pid, err)
	}

	return kb, nil
}

func procStatusRSS(pid int) (int64, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return 0, err
	}

	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}

		return strconv.ParseInt(fields[1], 10, 64)
	}

	return 0, fmt.Errorf("no VmRSS entry for pid %d", pid)
}
