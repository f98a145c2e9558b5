package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/signupd/internal/config"
)

func TestInitializeConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	// No config file anywhere in the temp dir: defaults must carry the day.
	t.Chdir(t.TempDir())
	cfgFile = ""

	require.NoError(t, initializeConfig())

	var c config.Config
	require.NoError(t, viper.Unmarshal(&c))
	require.NoError(t, c.Validate())

	assert.Equal(t, 2, c.Engine.WorkerConcurrency)
	assert.Equal(t, "msedge", c.Browser.Channel)
	assert.Equal(t, 80*time.Millisecond, c.Browser.TypingDelay)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "https://signup.live.com", c.Signup.StartURL)
}

func TestInitializeConfigRejectsBrokenFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	t.Chdir(dir)
	cfgFile = ""
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  addr: [not: valid\n"), 0o644))

	assert.Error(t, initializeConfig())
}
