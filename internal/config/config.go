package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
)

// Config represents the main application configuration
type Config struct {
	General   GeneralConfig   `toml:"general"`
	UI        UIConfig        `toml:"ui"`
	BuddyList BuddyListConfig `toml:"buddylist"`
	Logging   LoggingConfig   `toml:"logging"`
	Storage   StorageConfig   `toml:"storage"`
	Plugins   PluginsConfig   `toml:"plugins"`
}

// PluginsConfig lists the plugin executables to start. Names are file
// names inside PluginDir.
type PluginsConfig struct {
	Enabled   []string `toml:"enabled"`
	PluginDir string   `toml:"plugin_dir"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	DataDir string `toml:"data_dir"`
}

// UIConfig contains UI-related settings
type UIConfig struct {
	Theme       string `toml:"theme"`
	ListWidth   int    `toml:"list_width"`
	ShowCounts  bool   `toml:"show_counts"`
	ShowStatus  bool   `toml:"show_status_messages"`
}

// BuddyListConfig contains the buddy list preferences
type BuddyListConfig struct {
	// Sort is one of none, alphabetical, status, log_size
	Sort string `toml:"sort"`

	ShowOfflineBuddies bool `toml:"show_offline_buddies"`
	ShowEmptyGroups    bool `toml:"show_empty_groups"`

	// RecentSignOnSeconds is how long a sign-on or sign-off sorts apart
	RecentSignOnSeconds int `toml:"recent_signon_seconds"`

	// StrictInvariants panics on internal inconsistencies instead of
	// logging them
	StrictInvariants bool `toml:"strict_invariants"`

	// CollationLanguage is a BCP 47 tag used to compare names
	CollationLanguage string `toml:"collation_language"`

	// RosterFile is the TOML roster loaded at startup
	RosterFile string `toml:"roster_file"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level   string `toml:"level"`
	File    string `toml:"file"`
	Console bool   `toml:"console"`
}

// StorageConfig contains storage settings
type StorageConfig struct {
	// SaveMessages enables/disables conversation logging
	SaveMessages bool `toml:"save_messages"`

	// MessageRetentionDays is the number of days to keep messages (0 = forever)
	MessageRetentionDays int `toml:"message_retention_days"`

	// SaveExpansion persists which contacts are expanded
	SaveExpansion bool `toml:"save_expansion"`

	// VacuumOnStartup runs database vacuum on startup
	VacuumOnStartup bool `toml:"vacuum_on_startup"`
}

// Paths holds the XDG-compliant paths for the application
type Paths struct {
	ConfigDir string
	DataDir   string
	CacheDir  string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		UI: UIConfig{
			Theme:      "rainbow",
			ListWidth:  40,
			ShowCounts: true,
			ShowStatus: true,
		},
		BuddyList: BuddyListConfig{
			Sort:                "status",
			RecentSignOnSeconds: 10,
			CollationLanguage:   "en",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			SaveMessages:  true,
			SaveExpansion: true,
		},
	}
}

// RecentWindow returns the sign-on window as a duration. It is negative
// when the window is disabled.
func (b BuddyListConfig) RecentWindow() time.Duration {
	if b.RecentSignOnSeconds <= 0 {
		return -1
	}
	return time.Duration(b.RecentSignOnSeconds) * time.Second
}

// Language parses the collation language, falling back to English
func (b BuddyListConfig) Language() language.Tag {
	if b.CollationLanguage == "" {
		return language.English
	}
	tag, err := language.Parse(b.CollationLanguage)
	if err != nil {
		return language.English
	}
	return tag
}

// GetPaths returns XDG-compliant paths for the application
func GetPaths() (*Paths, error) {
	dir := func(env string, fallback ...string) (string, error) {
		base := os.Getenv(env)
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(append([]string{home}, fallback...)...)
		}
		return filepath.Join(base, "buddylist"), nil
	}

	configDir, err := dir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return nil, err
	}
	dataDir, err := dir("XDG_DATA_HOME", ".local", "share")
	if err != nil {
		return nil, err
	}
	cacheDir, err := dir("XDG_CACHE_HOME", ".cache")
	if err != nil {
		return nil, err
	}

	return &Paths{
		ConfigDir: configDir,
		DataDir:   dataDir,
		CacheDir:  cacheDir,
	}, nil
}

// EnsureDirectories creates the necessary directories
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ConfigDir, p.DataDir, p.CacheDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ConfigFile returns the path of config.toml
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.toml")
}

// Load loads the configuration from the default config file
func Load() (*Config, error) {
	paths, err := GetPaths()
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}
	return LoadFile(paths.ConfigFile(), paths.DataDir)
}

// LoadFile loads the configuration from path. A missing file yields the
// defaults. Relative locations are resolved against dataDir.
func LoadFile(path, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if cfg.General.DataDir == "" {
		cfg.General.DataDir = dataDir
	} else {
		cfg.General.DataDir = expandPath(cfg.General.DataDir)
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.General.DataDir, "buddylist.log")
	} else {
		cfg.Logging.File = expandPath(cfg.Logging.File)
	}

	if cfg.Plugins.PluginDir == "" {
		cfg.Plugins.PluginDir = filepath.Join(cfg.General.DataDir, "plugins")
	} else {
		cfg.Plugins.PluginDir = expandPath(cfg.Plugins.PluginDir)
	}

	if cfg.BuddyList.RosterFile == "" {
		cfg.BuddyList.RosterFile = filepath.Join(filepath.Dir(path), "roster.toml")
	} else {
		cfg.BuddyList.RosterFile = expandPath(cfg.BuddyList.RosterFile)
	}

	return cfg, nil
}

// Save saves the configuration to the default config file
func Save(cfg *Config) error {
	paths, err := GetPaths()
	if err != nil {
		return err
	}
	return SaveFile(paths.ConfigFile(), cfg)
}

// SaveFile writes the configuration to path
func SaveFile(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
