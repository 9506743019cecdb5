package installer

import "runtime"

// manualSteps returns the platform-specific manual installation guide. The
// installer falls back to these whenever the automatic path cannot finish.
func manualSteps() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			"Download the MSYS2 installer from https://www.msys2.org",
			"Run the installer and keep the default install location (C:\\msys64)",
			"Open the MSYS2 UCRT64 shell and run: pacman -S mingw-w64-ucrt-x86_64-gcc",
			"Add C:\\msys64\\ucrt64\\bin to your PATH",
			"Open a new terminal and verify with: g++ --version",
		}
	case "darwin":
		return []string{
			"Run: xcode-select --install",
			"Complete the dialog that appears and wait for the download to finish",
			"Verify with: clang++ --version",
		}
	default:
		return []string{
			"Debian/Ubuntu: sudo apt install build-essential",
			"Fedora: sudo dnf install gcc-c++",
			"Arch: sudo pacman -S gcc",
			"Verify with: g++ --version",
		}
	}
}
