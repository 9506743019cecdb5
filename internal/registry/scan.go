package registry

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

// broadScanBudget bounds the last-resort filesystem walk.
const broadScanBudget = 10 * time.Second

func candidateNames() []string {
	names := []string{"gcc", "g++", "clang", "clang++", "cc", "c++"}

	if runtime.GOOS == "windows" {
		out := make([]string, 0, len(names)+1)
		for _, n := range names {
			out = append(out, n+".exe")
		}

		return append(out, "cl.exe")
	}

	return names
}

// conventionalDirs lists well-known install locations per OS, checked after
// PATH so PATH hits keep their higher bonus.
func conventionalDirs() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/usr/bin",
			"/usr/local/bin",
			"/opt/homebrew/bin",
			"/opt/local/bin",
			"/Library/Developer/CommandLineTools/usr/bin",
		}
	case "windows":
		return []string{
			`C:\MinGW\bin`,
			`C:\mingw64\bin`,
			`C:\msys64\mingw64\bin`,
			`C:\msys64\ucrt64\bin`,
			`C:\TDM-GCC-64\bin`,
			`C:\Program Files\LLVM\bin`,
		}
	default:
		return []string{
			"/usr/bin",
			"/usr/local/bin",
			"/opt/bin",
			"/snap/bin",
		}
	}
}

// broadScanRoots are walked only when PATH, conventional directories, and
// (on Windows) vswhere all come up empty.
func broadScanRoots() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{`C:\Program Files`, `C:\Program Files (x86)`, `C:\`}
	default:
		return []string{"/usr", "/opt"}
	}
}

type candidate struct {
	path  string
	bonus int
}

// collectCandidates gathers candidate binaries in priority order: PATH
// directories, conventional install directories, the Windows toolchain
// locator, and finally a time-bounded broad scan if nothing was found.
func (r *Registry) collectCandidates(ctx context.Context) ([]candidate, error) {
	seen := make(map[string]bool)
	var out []candidate

	add := func(path string, bonus int) {
		resolved := path
		if real, err := filepath.EvalSymlinks(path); err == nil {
			resolved = real
		}

		if seen[resolved] {
			return
		}

		seen[resolved] = true
		out = append(out, candidate{path: path, bonus: bonus})
	}

	names := candidateNames()

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}

		for _, name := range names {
			p := filepath.Join(dir, name)
			if isExecutableFile(p) {
				add(p, BonusPath)
			}
		}
	}

	for _, dir := range conventionalDirs() {
		for _, name := range names {
			p := filepath.Join(dir, name)
			if isExecutableFile(p) {
				add(p, BonusConventional)
			}
		}
	}

	if runtime.GOOS == "windows" {
		for _, p := range queryVSWhere(ctx) {
			add(p, BonusConventional)
		}
	}

	if len(out) == 0 {
		found, err := r.broadScan(ctx, names)
		if err != nil {
			return nil, err
		}

		for _, p := range found {
			add(p, BonusBroadScan)
		}
	}

	return out, nil
}

// broadScan walks the scan roots until the budget expires. Unreadable
// subtrees are skipped, but a root that cannot be opened at all is a real
// error surfaced to the caller.
func (r *Registry) broadScan(ctx context.Context, names []string) ([]string, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	deadline := time.Now().Add(broadScanBudget)
	var found []string

	for _, root := range broadScanRoots() {
		if _, err := os.Stat(root); err != nil {
			continue
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if time.Now().After(deadline) || ctx.Err() != nil {
				return filepath.SkipAll
			}

			if err != nil {
				if path == root {
					return err
				}

				return nil // unreadable subtree, keep going
			}

			if !d.IsDir() && wanted[d.Name()] && isExecutableFile(path) {
				found = append(found, path)
			}

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if r.logger != nil {
		r.logger.Debug("broad filesystem scan finished", zap.Int("found", len(found)))
	}

	return found, nil
}

// queryVSWhere asks the Visual Studio locator for an IDE-bundled cl.exe.
func queryVSWhere(ctx context.Context) []string {
	vswhere := filepath.Join(os.Getenv("ProgramFiles(x86)"),
		"Microsoft Visual Studio", "Installer", "vswhere.exe")

	if _, err := os.Stat(vswhere); err != nil {
		return nil
	}

	out, err := exec.CommandContext(ctx, vswhere,
		"-latest",
		"-products", "*",
		"-requires", "Microsoft.VisualStudio.Component.VC.Tools.x86.x64",
		"-find", `VC\Tools\MSVC\**\bin\Hostx64\x64\cl.exe`,
	).Output()
	if err != nil {
		return nil
	}

	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}

	return paths
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	if runtime.GOOS == "windows" {
		return true
	}

	return info.Mode()&0o111 != 0
}
