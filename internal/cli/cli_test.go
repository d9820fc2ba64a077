package cli_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/rejig/internal/cli"
)

func TestParseSourceAndOptions(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := cli.Parse([]string{"-o", "out.js", "-log-level", "debug", "main.rj"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "main.rj", cfg.SourcePath)
	assert.Equal(t, "out.js", cfg.OutputPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestParseNoArgsPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := cli.Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseRejectsExtraPositionals(t *testing.T) {
	var out bytes.Buffer
	_, _, err := cli.Parse([]string{"a.rj", "b.rj"}, &out)
	require.Error(t, err)
	exitErr, ok := err.(*cli.ExitError)
	require.True(t, ok)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParseValidatesLogOptions(t *testing.T) {
	var out bytes.Buffer
	_, _, err := cli.Parse([]string{"-log-format", "xml", "main.rj"}, &out)
	require.Error(t, err)

	_, _, err = cli.Parse([]string{"-log-level", "loud", "main.rj"}, &out)
	require.Error(t, err)
}
