// Package registry discovers, probes, and ranks C/C++ toolchains on the
// host. Scan results are cached in memory and persisted with a TTL so the
// expensive probing work runs at most once a day unless a rescan is forced.
package registry

import (
	"sort"
	"time"
)

// Family classifies a toolchain by vendor behavior. It is a closed set:
// flag syntax and standard support tables key off it.
type Family string

const (
	FamilyGCC        Family = "gcc"
	FamilyClang      Family = "clang"
	FamilyAppleClang Family = "apple-clang"
	FamilyMSVC       Family = "msvc"
)

// Install-path bonuses. A compiler found on PATH outranks one found in a
// conventional install directory, which outranks a broad-scan hit.
const (
	BonusPath         = 5
	BonusConventional = 3
	BonusBroadScan    = 0
)

var familyWeights = map[Family]int{
	FamilyGCC:        3,
	FamilyClang:      2,
	FamilyAppleClang: 2,
	FamilyMSVC:       1,
}

// CompilerDescriptor is the immutable record of one probed toolchain.
// Descriptors are never edited after a scan; a rescan supersedes them
// wholesale.
type CompilerDescriptor struct {
	Path               string   `json:"path"`
	Family             Family   `json:"family"`
	Version            string   `json:"version"`
	MajorVersion       int      `json:"major_version"`
	SupportedStandards []string `json:"supported_standards"`
	Is64Bit            bool     `json:"is_64bit"`
	PriorityScore      int      `json:"priority_score"`
}

// Score computes the ranking value for a probed compiler.
func Score(family Family, major, pathBonus int) int {
	return familyWeights[family]*100 + major*10 + pathBonus
}

// Supports reports whether the descriptor accepts the given language
// standard.
func (d CompilerDescriptor) Supports(standard string) bool {
	for _, s := range d.SupportedStandards {
		if s == standard {
			return true
		}
	}

	return false
}

// DetectionResult is the outcome of one scan. Recommended, when present,
// always points at the element of Compilers with the highest priority score.
type DetectionResult struct {
	Success     bool                 `json:"success"`
	Compilers   []CompilerDescriptor `json:"compilers"`
	Recommended *CompilerDescriptor  `json:"recommended,omitempty"`
	Suggestions []string             `json:"suggestions,omitempty"`
	CachedAt    time.Time            `json:"cached_at"`
}

// Clone returns a deep copy. Registry readers only ever see copies so a
// concurrent rescan cannot mutate a result mid-read.
func (r *DetectionResult) Clone() *DetectionResult {
	if r == nil {
		return nil
	}

	out := &DetectionResult{
		Success:     r.Success,
		CachedAt:    r.CachedAt,
		Compilers:   make([]CompilerDescriptor, len(r.Compilers)),
		Suggestions: append([]string(nil), r.Suggestions...),
	}

	for i, c := range r.Compilers {
		out.Compilers[i] = c
		out.Compilers[i].SupportedStandards = append([]string(nil), c.SupportedStandards...)
	}

	if r.Recommended != nil {
		rec := *r.Recommended
		rec.SupportedStandards = append([]string(nil), r.Recommended.SupportedStandards...)
		out.Recommended = &rec
	}

	return out
}

// finalize sorts compilers by score descending (path as tie-break for a
// stable order) and fills in the recommendation.
func finalize(compilers []CompilerDescriptor, suggestions []string) *DetectionResult {
	sort.Slice(compilers, func(i, j int) bool {
		if compilers[i].PriorityScore != compilers[j].PriorityScore {
			return compilers[i].PriorityScore > compilers[j].PriorityScore
		}

		return compilers[i].Path < compilers[j].Path
	})

	res := &DetectionResult{
		Success:     true,
		Compilers:   compilers,
		Suggestions: suggestions,
		CachedAt:    time.Now(),
	}

	if len(compilers) > 0 {
		rec := compilers[0]
		res.Recommended = &rec
	}

	return res
}
