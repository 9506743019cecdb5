package registry

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// probeTimeout bounds each candidate invocation. A hung binary must not
// stall the whole scan.
const probeTimeout = 3 * time.Second

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// Probe invokes a candidate binary with its version flag and parses the
// output into a descriptor. An unrunnable or unrecognizable candidate
// returns an error; the scanner drops such candidates silently.
func Probe(ctx context.Context, path string, pathBonus int) (CompilerDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var cmd *exec.Cmd
	if isMSVCBinary(path) {
		// cl.exe prints its banner on stderr when run without arguments.
		cmd = exec.CommandContext(ctx, path)
	} else {
		cmd = exec.CommandContext(ctx, path, "--version")
	}

	out, err := cmd.CombinedOutput()
	if err != nil && len(out) == 0 {
		return CompilerDescriptor{}, fmt.Errorf("probe %s: %w", path, err)
	}

	banner := string(out)

	family, ok := classifyFamily(banner, path)
	if !ok {
		return CompilerDescriptor{}, fmt.Errorf("probe %s: unrecognized vendor string", path)
	}

	version, err := parseVersion(banner)
	if err != nil {
		return CompilerDescriptor{}, fmt.Errorf("probe %s: %w", path, err)
	}

	major := int(version.Major())

	return CompilerDescriptor{
		Path:               path,
		Family:             family,
		Version:            version.String(),
		MajorVersion:       major,
		SupportedStandards: standardsFor(family, major),
		Is64Bit:            detect64Bit(banner),
		PriorityScore:      Score(family, major, pathBonus),
	}, nil
}

// classifyFamily matches known vendor strings, preferring the more specific
// match first: "Apple clang" must win over generic "clang".
func classifyFamily(banner, path string) (Family, bool) {
	s := strings.ToLower(banner)

	switch {
	case strings.Contains(s, "apple clang") || strings.Contains(s, "apple llvm"):
		return FamilyAppleClang, true
	case strings.Contains(s, "clang"):
		return FamilyClang, true
	case strings.Contains(s, "free software foundation") ||
		strings.Contains(s, "gcc") ||
		strings.Contains(s, "g++"):
		return FamilyGCC, true
	case strings.Contains(s, "microsoft") && strings.Contains(s, "compiler"):
		return FamilyMSVC, true
	case isMSVCBinary(path) && strings.Contains(s, "microsoft"):
		return FamilyMSVC, true
	default:
		return "", false
	}
}

func parseVersion(banner string) (*semver.Version, error) {
	m := versionPattern.FindStringSubmatch(banner)
	if m == nil {
		return nil, fmt.Errorf("no version number in output")
	}

	raw := m[1] + "." + m[2]
	if m[3] != "" {
		raw += "." + m[3]
	}

	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", raw, err)
	}

	return v, nil
}

func detect64Bit(banner string) bool {
	s := strings.ToLower(banner)
	for _, marker := range []string{"x86_64", "amd64", "aarch64", "arm64", "64-bit", "for x64"} {
		if strings.Contains(s, marker) {
			return true
		}
	}

	return false
}

func isMSVCBinary(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return base == "cl.exe" || base == "cl"
}

// standardsFor returns the language standards a toolchain major version is
// known to accept, covering both C and C++ modes of the driver.
func standardsFor(family Family, major int) []string {
	stds := []string{"c89", "c99", "c11", "c++98", "c++03", "c++11"}

	switch family {
	case FamilyGCC:
		if major >= 5 {
			stds = append(stds, "c++14")
		}
		if major >= 7 {
			stds = append(stds, "c++17")
		}
		if major >= 8 {
			stds = append(stds, "c17")
		}
		if major >= 10 {
			stds = append(stds, "c++20")
		}
		if major >= 13 {
			stds = append(stds, "c++23")
		}
		if major >= 14 {
			stds = append(stds, "c23")
		}
	case FamilyClang:
		if major >= 4 {
			stds = append(stds, "c++14")
		}
		if major >= 6 {
			stds = append(stds, "c++17")
		}
		if major >= 7 {
			stds = append(stds, "c17")
		}
		if major >= 12 {
			stds = append(stds, "c++20")
		}
		if major >= 17 {
			stds = append(stds, "c++23")
		}
		if major >= 18 {
			stds = append(stds, "c23")
		}
	case FamilyAppleClang:
		// Apple's version numbers run ahead of upstream clang.
		if major >= 7 {
			stds = append(stds, "c++14")
		}
		if major >= 10 {
			stds = append(stds, "c++17", "c17")
		}
		if major >= 14 {
			stds = append(stds, "c++20")
		}
		if major >= 16 {
			stds = append(stds, "c++23")
		}
	case FamilyMSVC:
		stds = []string{"c11", "c17", "c++14", "c++17"}
		if major >= 19 {
			stds = append(stds, "c++20", "c++latest")
		}
	}

	return stds
}
