package pipeline

import (
	"strings"

	"github.com/refrun/refrun/internal/registry"
)

// Standards in ascending age order per language mode. Downgrade resolution
// walks left from the requested entry.
var (
	cppStandards = []string{"c++98", "c++03", "c++11", "c++14", "c++17", "c++20", "c++23"}
	cStandards   = []string{"c89", "c99", "c11", "c17", "c23"}
)

// ResolveStandard picks the standard to pass to the toolchain. When the
// requested standard is not in the descriptor's supported set, the nearest
// older supported standard is substituted. This is a narrow exception for
// known toolchain/standard incompatibilities, not general auto-correction:
// a standard the table does not know is passed through untouched and left
// for the compiler to reject.
func ResolveStandard(desc *registry.CompilerDescriptor, requested string) (string, bool) {
	if desc == nil || requested == "" || desc.Supports(requested) {
		return requested, false
	}

	order := cStandards
	if strings.HasPrefix(requested, "c++") {
		order = cppStandards
	}

	idx := -1
	for i, s := range order {
		if s == requested {
			idx = i
			break
		}
	}

	if idx < 0 {
		return requested, false
	}

	for i := idx - 1; i >= 0; i-- {
		if desc.Supports(order[i]) {
			return order[i], true
		}
	}

	return requested, false
}
