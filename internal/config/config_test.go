package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadIni(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "s4browse.ini", `
[settings]
concurrency = 8
preview_bytes = 1024
presign_ttl = 10m
viewer = mpv
tick = 100ms

[local]
url = http://localhost:9000
access_key = minioadmin
secret_key = minioadmin
backend = minio

[aws]
access_key = AK
secret_key = SK
region = eu-west-1
`)

	cfg, err := Load(Paths{Ini: []string{path}})
	require.NoError(t, err)

	assert.Equal(t, []string{"aws", "local"}, cfg.Aliases())
	assert.Equal(t, 8, cfg.Settings.Concurrency)
	assert.Equal(t, int64(1024), cfg.Settings.PreviewBytes)
	assert.Equal(t, 10*time.Minute, cfg.Settings.PresignTTL)
	assert.Equal(t, "mpv", cfg.Settings.Viewer)
	assert.Equal(t, 100*time.Millisecond, cfg.Settings.Tick)
	assert.Equal(t, "info", cfg.Settings.LogLevel)

	local, ok := cfg.Remote("local")
	require.True(t, ok)
	assert.Equal(t, BackendMinio, local.Backend)
	assert.Equal(t, "http://localhost:9000", local.URL)
	assert.Equal(t, DefaultRegion, local.RegionOrDefault())

	aws, ok := cfg.Remote("aws")
	require.True(t, ok)
	assert.Equal(t, BackendS3, aws.Backend)
	assert.Equal(t, "eu-west-1", aws.RegionOrDefault())
	assert.Equal(t, path, aws.Source)
}

func TestLoadIniRejectsBadRemotes(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing keys", "[r]\nurl = http://x\n"},
		{"unknown backend", "[r]\naccess_key = a\nsecret_key = b\nbackend = ftp\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "s4browse.ini", tt.content)
			_, err := Load(Paths{Ini: []string{path}})
			assert.Error(t, err)
		})
	}
}

func TestLoadMergesSources(t *testing.T) {
	dir := t.TempDir()
	mc := writeFile(t, dir, "mc/config.json", `{
  "version": "10",
  "aliases": {
    "play": {"url": "https://play.min.io", "accessKey": "Q3", "secretKey": "zu", "api": "S3v4", "path": "auto"},
    "shared": {"url": "https://from-mc", "accessKey": "a", "secretKey": "b"},
    "empty": {"url": ""}
  }
}`)
	ini := writeFile(t, dir, "s4browse.ini", "[shared]\nurl = https://from-ini\naccess_key = a\nsecret_key = b\n")
	s3cfg := writeFile(t, dir, ".s3cfg", "[default]\naccess_key = x\nsecret_key = y\nhost_base = s3.example.com\nuse_https = False\n")

	cfg, err := Load(Paths{
		Ini:   []string{filepath.Join(dir, "missing.ini"), ini},
		Mc:    []string{mc},
		S3cfg: []string{s3cfg},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"play", "s3cfg", "shared"}, cfg.Aliases())

	shared, _ := cfg.Remote("shared")
	assert.Equal(t, "https://from-ini", shared.URL, "ini wins over mc")

	s3, _ := cfg.Remote("s3cfg")
	assert.Equal(t, "http://s3.example.com", s3.URL)
	assert.Equal(t, DefaultRegion, s3.Region)

	play, _ := cfg.Remote("play")
	assert.Equal(t, "Q3", play.AccessKey)
	assert.Equal(t, BackendS3, play.Backend)
}

func TestLoadNoRemotes(t *testing.T) {
	cfg, err := Load(Paths{Ini: []string{filepath.Join(t.TempDir(), "nope.ini")}})
	assert.True(t, errors.Is(err, ErrNoRemotes))
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultSettings().Concurrency, cfg.Settings.Concurrency)
}

func TestLoadBadMcJSON(t *testing.T) {
	mc := writeFile(t, t.TempDir(), "config.json", "{not json")
	_, err := Load(Paths{Mc: []string{mc}})
	assert.Error(t, err)
}

func TestSaveRemoteKeepsOtherSections(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "s4browse.ini", "[settings]\nconcurrency = 2\n\n[old]\naccess_key = a\nsecret_key = b\n")

	require.NoError(t, SaveRemote(path, Remote{
		Alias:     "new",
		URL:       "http://localhost:9000",
		AccessKey: "k",
		SecretKey: "s",
	}))
	require.NoError(t, SaveRemote(path, Remote{
		Alias:     "old",
		AccessKey: "a2",
		SecretKey: "b2",
		Backend:   BackendMinio,
		URL:       "http://minio:9000",
	}))

	cfg, err := Load(Paths{Ini: []string{path}})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Settings.Concurrency)
	assert.Equal(t, []string{"new", "old"}, cfg.Aliases())

	old, _ := cfg.Remote("old")
	assert.Equal(t, "a2", old.AccessKey)
	assert.Equal(t, BackendMinio, old.Backend)

	fresh, _ := cfg.Remote("new")
	assert.Equal(t, DefaultRegion, fresh.Region)
}

func TestSaveRemoteCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "s4browse.ini")
	require.NoError(t, SaveRemote(path, Remote{Alias: "r", AccessKey: "a", SecretKey: "b"}))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
