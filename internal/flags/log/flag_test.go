package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommand(args ...string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{Use: "test"}
	RegisterLoggingFlags(cmd.Flags())
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	_ = cmd.Flags().Parse(args)
	return cmd, &stdout, &stderr
}

func TestGetBaseLogger_Defaults(t *testing.T) {
	cmd, stdout, stderr := newCommand()
	logger, err := GetBaseLogger(cmd)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown", "key", "value")
	assert.Empty(t, stdout.String())
	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "msg=shown key=value")
}

func TestGetBaseLogger_JSONToStdout(t *testing.T) {
	cmd, stdout, stderr := newCommand("--logformat", "json", "--logoutput", "stdout", "--loglevel", "debug")
	logger, err := GetBaseLogger(cmd)
	require.NoError(t, err)

	logger.Debug("visible", "path", "app.tgz")
	assert.Empty(t, stderr.String())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "app.tgz", entry["path"])
}

func TestGetBaseLogger_Levels(t *testing.T) {
	for _, level := range []string{LevelWarn, LevelError} {
		t.Run(level, func(t *testing.T) {
			cmd, _, stderr := newCommand("--loglevel", level)
			logger, err := GetBaseLogger(cmd)
			require.NoError(t, err)
			logger.Info("info")
			assert.Empty(t, stderr.String())
		})
	}
}

func TestGetBaseLogger_MissingFlags(t *testing.T) {
	_, err := GetBaseLogger(&cobra.Command{Use: "bare"})
	assert.Error(t, err)
}
