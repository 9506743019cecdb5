package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateArg(t *testing.T) {
	tests := []struct {
		arg     string
		wantErr bool
	}{
		{"/work/prog", false},
		{"-O2", false},
		{"-std=c++17", false},
		{"/src/main.cpp", false},
		{"gcc:13", false},
		{"", true},
		{"a b", true},
		{"$(rm -rf /)", true},
		{"`id`", true},
		{"a;b", true},
		{"a|b", true},
		{"a>b", true},
		{"a'b", true},
		{`a"b`, true},
	}

	for _, test := range tests {
		err := ValidateArg(test.arg)
		if test.wantErr {
			assert.Error(t, err, "ValidateArg(%q)", test.arg)
		} else {
			assert.NoError(t, err, "ValidateArg(%q)", test.arg)
		}
	}
}

func TestShellCommand(t *testing.T) {
	cmd, err := ShellCommand("g++", []string{"-O2", "-std=c++17", "-o", "/work/prog", "/src/main.cpp"})
	require.NoError(t, err)
	assert.Equal(t, "'g++' '-O2' '-std=c++17' '-o' '/work/prog' '/src/main.cpp'", cmd)

	_, err = ShellCommand("g++", []string{"; rm -rf /"})
	assert.Error(t, err)
}

func TestParseExtraFlags(t *testing.T) {
	flags, err := ParseExtraFlags("-Wall -DNDEBUG -fno-exceptions")
	require.NoError(t, err)
	assert.Equal(t, []string{"-Wall", "-DNDEBUG", "-fno-exceptions"}, flags)

	flags, err = ParseExtraFlags("   ")
	require.NoError(t, err)
	assert.Nil(t, flags)

	_, err = ParseExtraFlags("-Wall; id")
	assert.Error(t, err)

	_, err = ParseExtraFlags("notaflag")
	assert.Error(t, err)
}
