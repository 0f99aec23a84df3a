package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/roomwatch/internal/config"
	"github.com/ppiankov/roomwatch/internal/listing"
	"github.com/ppiankov/roomwatch/internal/logging"
	"github.com/ppiankov/roomwatch/internal/notify"
)

func TestWriteDefaultConfig_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomwatch", "config.yaml")
	require.NoError(t, writeDefaultConfig(path, false))

	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, exampleConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteDefaultConfig_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site: x\n"), 0o600))

	err := writeDefaultConfig(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, writeDefaultConfig(path, true))
}

func TestQueries(t *testing.T) {
	cfg := config.Default()
	cfg.Areas = append(cfg.Areas, config.Area{Name: "est"})

	got := queries(cfg)
	assert.Equal(t, []listing.Query{
		{Area: "see", Limit: 20, Sort: "newest", Geotagged: true, MinPrice: 400, MaxPrice: 800},
		{Area: "est", Limit: 20, Sort: "newest", Geotagged: true},
	}, got)
}

func TestNewSender(t *testing.T) {
	cfg := config.Default()
	var buf bytes.Buffer

	s, err := newSender(cfg, false, &buf, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &notify.Writer{}, s)

	cfg.Slack.Token = "xoxb-test"
	s, err = newSender(cfg, false, &buf, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &notify.Slack{}, s)

	s, err = newSender(cfg, true, &buf, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &notify.Writer{}, s)
}

func TestBuildApp_MemoryStore(t *testing.T) {
	cfg := config.Default()
	cfg.Geocode.CacheDir = t.TempDir()

	a, err := buildApp(context.Background(), cfg, true, &bytes.Buffer{}, logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.pipeline)
	assert.NotNil(t, a.registry)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "roomwatch "+Version+"\n", buf.String())
}
