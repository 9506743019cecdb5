package backend

import "fmt"

// signalNames maps POSIX signal numbers to short descriptions. A child
// killed by signal N conventionally surfaces exit code 128+N.
var signalNames = map[int]string{
	1:  "SIGHUP: hangup",
	2:  "SIGINT: interrupt",
	4:  "SIGILL: illegal instruction",
	6:  "SIGABRT: abort, often a failed assertion or C++ exception",
	7:  "SIGBUS: bus error, misaligned or unmapped access",
	8:  "SIGFPE: arithmetic exception, often division by zero",
	9:  "SIGKILL: killed",
	11: "SIGSEGV: segmentation fault",
	13: "SIGPIPE: broken pipe",
	15: "SIGTERM: terminated",
	24: "SIGXCPU: CPU time limit exceeded",
	25: "SIGXFSZ: file size limit exceeded",
}

// DescribeExit returns a human-readable description of an exit code,
// decoding the 128+N signal convention where it applies.
func DescribeExit(code int) string {
	if code > 128 {
		if name, ok := signalNames[code-128]; ok {
			return fmt.Sprintf("exit code %d, %s", code, name)
		}
	}

	return fmt.Sprintf("exit code %d", code)
}
