// Package config loads remotes and settings from s4browse.ini, the MinIO
// client config and s3cmd's .s3cfg.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

const (
	BackendS3    = "s3"
	BackendMinio = "minio"

	DefaultRegion = "us-east-1"

	// SettingsSection holds non-remote options in s4browse.ini.
	SettingsSection = "settings"

	// S3cfgAlias is the remote name given to a .s3cfg profile.
	S3cfgAlias = "s3cfg"
)

// Remote is a named connection profile to one storage service.
type Remote struct {
	Alias     string
	URL       string
	AccessKey string
	SecretKey string
	Region    string
	Backend   string
	// Source is the file the remote was read from.
	Source string
}

// RegionOrDefault returns the configured region or us-east-1.
func (r Remote) RegionOrDefault() string {
	if r.Region == "" {
		return DefaultRegion
	}
	return r.Region
}

// Settings holds tunables for the session and its background tasks.
type Settings struct {
	Concurrency  int
	PreviewBytes int64
	PresignTTL   time.Duration
	Viewer       string
	LogFile      string
	LogLevel     string
	Tick         time.Duration
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Concurrency:  4,
		PreviewBytes: 512 * 1024,
		PresignTTL:   time.Hour,
		Viewer:       "ffplay",
		LogFile:      filepath.Join(os.TempDir(), "s4browse.log"),
		LogLevel:     "info",
		Tick:         50 * time.Millisecond,
	}
}

// Config is the merged, read-only result of Load.
type Config struct {
	Remotes  map[string]Remote
	Settings Settings
}

// Aliases returns remote names in sorted order.
func (c *Config) Aliases() []string {
	aliases := make([]string, 0, len(c.Remotes))
	for a := range c.Remotes {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	return aliases
}

// Remote looks up a remote by alias.
func (c *Config) Remote(alias string) (Remote, bool) {
	r, ok := c.Remotes[alias]
	return r, ok
}

// Paths lists candidate files per source; the first existing file of each
// source is used.
type Paths struct {
	Ini   []string
	Mc    []string
	S3cfg []string
}

// DefaultPaths returns the standard search locations.
func DefaultPaths() Paths {
	home := os.Getenv("HOME")
	return Paths{
		Ini: []string{
			"s4browse.ini",
			filepath.Join(home, ".s4browse.ini"),
			"/etc/s4browse.ini",
		},
		Mc: []string{
			filepath.Join(home, ".mc", "config.json"),
			filepath.Join(home, ".mcli", "config.json"),
		},
		S3cfg: []string{
			".s3cfg",
			filepath.Join(home, ".s3cfg"),
			"/etc/s3cfg",
		},
	}
}

// ErrNoRemotes is returned by Load when no source defines a remote.
var ErrNoRemotes = errors.New("no remotes configured")

// Load merges every source found in paths. Precedence for duplicate aliases:
// s4browse.ini, then the MinIO client config, then .s3cfg.
func Load(paths Paths) (*Config, error) {
	cfg := &Config{
		Remotes:  make(map[string]Remote),
		Settings: DefaultSettings(),
	}

	if path := firstExisting(paths.S3cfg); path != "" {
		remote, err := loadS3cfg(path)
		if err != nil {
			return nil, err
		}
		cfg.Remotes[remote.Alias] = remote
	}

	if path := firstExisting(paths.Mc); path != "" {
		remotes, err := loadMcConfig(path)
		if err != nil {
			return nil, err
		}
		for _, r := range remotes {
			cfg.Remotes[r.Alias] = r
		}
	}

	if path := firstExisting(paths.Ini); path != "" {
		if err := loadIni(path, cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.Remotes) == 0 {
		return cfg, ErrNoRemotes
	}
	return cfg, nil
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadIni reads [settings] and one section per remote.
func loadIni(path string, cfg *Config) error {
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	for _, section := range file.Sections() {
		name := section.Name()
		switch name {
		case ini.DefaultSection:
			continue
		case SettingsSection:
			applySettings(section, &cfg.Settings)
			continue
		}

		remote := Remote{
			Alias:     name,
			URL:       section.Key("url").String(),
			AccessKey: section.Key("access_key").String(),
			SecretKey: section.Key("secret_key").String(),
			Region:    section.Key("region").String(),
			Backend:   strings.ToLower(section.Key("backend").MustString(BackendS3)),
			Source:    path,
		}
		if remote.AccessKey == "" || remote.SecretKey == "" {
			return fmt.Errorf("remote %q in %s: access_key and secret_key must be specified", name, path)
		}
		if remote.Backend != BackendS3 && remote.Backend != BackendMinio {
			return fmt.Errorf("remote %q in %s: unknown backend %q", name, path, remote.Backend)
		}
		cfg.Remotes[name] = remote
	}
	return nil
}

func applySettings(section *ini.Section, s *Settings) {
	s.Concurrency = section.Key("concurrency").MustInt(s.Concurrency)
	if s.Concurrency < 1 {
		s.Concurrency = 1
	}
	s.PreviewBytes = section.Key("preview_bytes").MustInt64(s.PreviewBytes)
	s.PresignTTL = section.Key("presign_ttl").MustDuration(s.PresignTTL)
	s.Viewer = section.Key("viewer").MustString(s.Viewer)
	s.LogFile = section.Key("log_file").MustString(s.LogFile)
	s.LogLevel = section.Key("log_level").MustString(s.LogLevel)
	s.Tick = section.Key("tick").MustDuration(s.Tick)
}

type mcConfig struct {
	Version string             `json:"version"`
	Aliases map[string]mcAlias `json:"aliases"`
}

type mcAlias struct {
	URL       string `json:"url"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	API       string `json:"api"`
	Path      string `json:"path"`
}

// loadMcConfig reads aliases from a MinIO client config.json.
func loadMcConfig(path string) ([]Remote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var mc mcConfig
	if err := json.Unmarshal(data, &mc); err != nil {
		return nil, fmt.Errorf("failed to parse mc config %s: %w", path, err)
	}

	remotes := make([]Remote, 0, len(mc.Aliases))
	for alias, a := range mc.Aliases {
		if a.URL == "" {
			continue
		}
		remotes = append(remotes, Remote{
			Alias:     alias,
			URL:       a.URL,
			AccessKey: a.AccessKey,
			SecretKey: a.SecretKey,
			Backend:   BackendS3,
			Source:    path,
		})
	}
	return remotes, nil
}

// loadS3cfg loads the [default] profile of an s3cmd .s3cfg file.
func loadS3cfg(path string) (Remote, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return Remote{}, fmt.Errorf("failed to load .s3cfg: %w", err)
	}

	section := cfg.Section("default")

	accessKey := section.Key("access_key").String()
	secretKey := section.Key("secret_key").String()
	if accessKey == "" || secretKey == "" {
		return Remote{}, fmt.Errorf("access_key and secret_key must be specified in %s", path)
	}

	protocol := "https"
	if !section.Key("use_https").MustBool(true) {
		protocol = "http"
	}

	return Remote{
		Alias:     S3cfgAlias,
		URL:       fmt.Sprintf("%s://%s", protocol, section.Key("host_base").MustString("s3.amazonaws.com")),
		AccessKey: accessKey,
		SecretKey: secretKey,
		Region:    section.Key("bucket_location").MustString(DefaultRegion),
		Backend:   BackendS3,
		Source:    path,
	}, nil
}

// SaveRemote adds or replaces one remote section in an s4browse.ini file,
// keeping every other section intact.
func SaveRemote(path string, remote Remote) error {
	file := ini.Empty()
	if _, err := os.Stat(path); err == nil {
		loaded, err := ini.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		file = loaded
	}

	file.DeleteSection(remote.Alias)
	section, err := file.NewSection(remote.Alias)
	if err != nil {
		return fmt.Errorf("invalid remote name %q: %w", remote.Alias, err)
	}

	section.Key("url").SetValue(remote.URL)
	section.Key("access_key").SetValue(remote.AccessKey)
	section.Key("secret_key").SetValue(remote.SecretKey)
	section.Key("region").SetValue(remote.RegionOrDefault())
	backend := remote.Backend
	if backend == "" {
		backend = BackendS3
	}
	section.Key("backend").SetValue(backend)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return file.SaveTo(path)
}
