// Package installer performs best-effort automatic installation of a
// missing C/C++ toolchain. Every failure path degrades to the manual guide
// so the user is never left without next steps.
package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

// installTimeout bounds the silent installer invocation.
const installTimeout = 10 * time.Minute

// Outcome reports how an install attempt ended.
type Outcome struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	RestartRequired bool     `json:"restart_required"`
	NextSteps       []string `json:"next_steps,omitempty"`
}

// Installer drives the automatic installation flow. On Windows it downloads
// and verifies a release artifact; on Linux and macOS it delegates to the
// system's own tooling.
type Installer struct {
	Logger *zap.Logger
	Client *http.Client

	// Feed resolves the Windows toolchain release. Defaults to the MSYS2
	// installer releases.
	Feed Feed

	// DownloadDir receives the artifact. Defaults to the OS temp dir.
	DownloadDir string
}

// New constructs an installer with production defaults.
func New(logger *zap.Logger) *Installer {
	client := &http.Client{Timeout: 5 * time.Minute}

	return &Installer{
		Logger: logger,
		Client: client,
		Feed:   NewGitHubFeed(client, "msys2/msys2-installer", ".exe"),
	}
}

// ManualGuide returns the static platform instructions without attempting
// anything.
func (i *Installer) ManualGuide() Outcome {
	return Outcome{
		Success:   false,
		Message:   "Follow the manual installation steps for this platform.",
		NextSteps: manualSteps(),
	}
}

// Install runs the automatic path for the current platform.
func (i *Installer) Install(ctx context.Context) Outcome {
	switch runtime.GOOS {
	case "windows":
		return i.installWindows(ctx)
	case "darwin":
		return i.installDarwin(ctx)
	default:
		return i.installLinux(ctx)
	}
}

func (i *Installer) installWindows(ctx context.Context) Outcome {
	rel, err := i.Feed.Latest(ctx)
	if err != nil {
		return i.degrade("could not resolve the latest toolchain release", err)
	}

	if i.Logger != nil {
		i.Logger.Info("downloading toolchain installer",
			zap.String("version", rel.Version), zap.String("url", rel.AssetURL))
	}

	artifact, err := i.download(ctx, rel.AssetURL)
	if err != nil {
		return i.degrade("download failed", err)
	}
	defer os.Remove(artifact)

	wantSum, err := i.fetchChecksum(ctx, rel.ChecksumURL)
	if err != nil {
		return i.degrade("could not fetch the published checksum", err)
	}

	gotSum, err := hashFile(artifact)
	if err != nil {
		return i.degrade("could not hash the downloaded artifact", err)
	}

	if !strings.EqualFold(gotSum, wantSum) {
		// Integrity failure: the artifact is deleted, never executed.
		os.Remove(artifact)
		return i.degrade("checksum verification failed",
			fmt.Errorf("digest mismatch: got %s, want %s", gotSum, wantSum))
	}

	installCtx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	cmd := exec.CommandContext(installCtx, artifact,
		"install", "--root", `C:\msys64`, "--confirm-command", "--accept-messages")
	if err := cmd.Run(); err != nil {
		return i.degrade("silent installation failed", err)
	}

	return Outcome{
		Success:         true,
		Message:         fmt.Sprintf("Installed toolchain release %s.", rel.Version),
		RestartRequired: true,
		NextSteps: []string{
			"Open the MSYS2 UCRT64 shell and run: pacman -S mingw-w64-ucrt-x86_64-gcc",
			"Add C:\\msys64\\ucrt64\\bin to your PATH",
			"Restart your terminal so the new PATH takes effect",
		},
	}
}

func (i *Installer) installDarwin(ctx context.Context) Outcome {
	if err := exec.CommandContext(ctx, "xcode-select", "--install").Run(); err != nil {
		// Exit status 1 usually means the tools are already installed.
		return i.degrade("xcode-select did not start an installation", err)
	}

	return Outcome{
		Success: true,
		Message: "Started the Xcode command line tools installation.",
		NextSteps: []string{
			"Complete the dialog that appeared",
			"Verify with: clang++ --version",
		},
	}
}

func (i *Installer) installLinux(ctx context.Context) Outcome {
	installCtx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	type pm struct {
		bin  string
		args []string
	}

	managers := []pm{
		{"apt-get", []string{"install", "-y", "build-essential"}},
		{"dnf", []string{"install", "-y", "gcc-c++"}},
		{"pacman", []string{"-S", "--noconfirm", "gcc"}},
		{"zypper", []string{"install", "-y", "gcc-c++"}},
	}

	for _, m := range managers {
		if _, err := exec.LookPath(m.bin); err != nil {
			continue
		}

		if err := exec.CommandContext(installCtx, m.bin, m.args...).Run(); err != nil {
			return i.degrade(fmt.Sprintf("%s failed (root privileges may be required)", m.bin), err)
		}

		return Outcome{
			Success:   true,
			Message:   fmt.Sprintf("Installed GCC via %s.", m.bin),
			NextSteps: []string{"Verify with: g++ --version"},
		}
	}

	return i.degrade("no supported package manager found", nil)
}

// degrade turns any failure into a manual-guide outcome.
func (i *Installer) degrade(reason string, err error) Outcome {
	if err != nil && i.Logger != nil {
		i.Logger.Warn("automatic install failed", zap.String("reason", reason), zap.Error(err))
	}

	msg := "Automatic installation failed: " + reason + "."
	if err != nil {
		msg += " (" + err.Error() + ")"
	}

	return Outcome{
		Success:   false,
		Message:   msg,
		NextSteps: manualSteps(),
	}
}

func (i *Installer) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := i.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned %s", resp.Status)
	}

	dir := i.DownloadDir
	if dir == "" {
		dir = os.TempDir()
	}

	out, err := os.CreateTemp(dir, "refrun-toolchain-*"+filepath.Ext(url))
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(out.Name())
		return "", err
	}

	return out.Name(), nil
}

// fetchChecksum downloads a checksum file and returns its first hex field.
func (i *Installer) fetchChecksum(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := i.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("checksum download returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}

	fields := strings.Fields(string(body))
	if len(fields) == 0 {
		return "", fmt.Errorf("empty checksum file")
	}

	return fields[0], nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
