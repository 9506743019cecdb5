package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		family   Family
		major    int
		bonus    int
		expected int
	}{
		{"gcc 13 on path", FamilyGCC, 13, BonusPath, 435},
		{"clang 17 on path", FamilyClang, 17, BonusPath, 375},
		{"apple clang 15 conventional", FamilyAppleClang, 15, BonusConventional, 353},
		{"msvc 19 broad scan", FamilyMSVC, 19, BonusBroadScan, 290},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Score(test.family, test.major, test.bonus))
		})
	}

	// An older GCC still outranks a newer Clang unless the version gap closes
	// the family weight difference.
	assert.Greater(t, Score(FamilyGCC, 9, BonusPath), Score(FamilyClang, 17, BonusPath))
	assert.Less(t, Score(FamilyGCC, 9, BonusPath), Score(FamilyClang, 20, BonusPath))
}

func TestFinalizeRecommendsHighestScore(t *testing.T) {
	compilers := []CompilerDescriptor{
		{Path: "/usr/bin/clang++", Family: FamilyClang, MajorVersion: 17, PriorityScore: Score(FamilyClang, 17, BonusPath)},
		{Path: "/usr/bin/g++", Family: FamilyGCC, MajorVersion: 13, PriorityScore: Score(FamilyGCC, 13, BonusPath)},
		{Path: "/opt/gcc/bin/g++", Family: FamilyGCC, MajorVersion: 11, PriorityScore: Score(FamilyGCC, 11, BonusConventional)},
	}

	res := finalize(compilers, nil)

	require.True(t, res.Success)
	require.NotNil(t, res.Recommended)
	assert.Equal(t, "/usr/bin/g++", res.Recommended.Path)

	for i := 1; i < len(res.Compilers); i++ {
		assert.GreaterOrEqual(t, res.Compilers[i-1].PriorityScore, res.Compilers[i].PriorityScore)
	}

	// The recommendation is always the maximum-score descriptor.
	for _, c := range res.Compilers {
		assert.LessOrEqual(t, c.PriorityScore, res.Recommended.PriorityScore)
	}
}

func TestFinalizeEmpty(t *testing.T) {
	res := finalize(nil, []string{"install gcc"})

	assert.True(t, res.Success)
	assert.Nil(t, res.Recommended)
	assert.Empty(t, res.Compilers)
	assert.Equal(t, []string{"install gcc"}, res.Suggestions)
}

func TestCloneIsDeep(t *testing.T) {
	orig := finalize([]CompilerDescriptor{{
		Path:               "/usr/bin/g++",
		Family:             FamilyGCC,
		MajorVersion:       13,
		SupportedStandards: []string{"c++17", "c++20"},
		PriorityScore:      Score(FamilyGCC, 13, BonusPath),
	}}, nil)

	clone := orig.Clone()
	clone.Compilers[0].Path = "/mutated"
	clone.Compilers[0].SupportedStandards[0] = "mutated"
	clone.Recommended.Path = "/mutated"

	assert.Equal(t, "/usr/bin/g++", orig.Compilers[0].Path)
	assert.Equal(t, "c++17", orig.Compilers[0].SupportedStandards[0])
	assert.Equal(t, "/usr/bin/g++", orig.Recommended.Path)

	var nilResult *DetectionResult
	assert.Nil(t, nilResult.Clone())
}

func TestSupports(t *testing.T) {
	d := CompilerDescriptor{SupportedStandards: []string{"c++14", "c++17"}}

	assert.True(t, d.Supports("c++17"))
	assert.False(t, d.Supports("c++20"))
}
