package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	apperrors "storagekit/internal/errors"
	"storagekit/internal/logging"
)

// EnvPrefix is the prefix of environment overrides, e.g. STORAGEKIT_PICKER_PROVIDER.
const EnvPrefix = "STORAGEKIT"

// Provider choices for PickerConfig.Provider.
const (
	ProviderAuto    = "auto"
	ProviderPortal  = "portal"
	ProviderNative  = "native"
	ProviderManaged = "managed"
)

// Bookmark store backends.
const (
	BackendKeyring = "keyring"
	BackendMemory  = "memory"
)

// Config represents the application configuration
type Config struct {
	Picker    PickerConfig    `json:"picker" envconfig:"PICKER"`
	Portal    PortalConfig    `json:"portal" envconfig:"PORTAL"`
	Bookmarks BookmarksConfig `json:"bookmarks" envconfig:"BOOKMARKS"`
	SMB       SMBConfig       `json:"smb" envconfig:"SMB"`
	Logging   LoggingConfig   `json:"logging" envconfig:"LOG"`
	Window    WindowConfig    `json:"window" envconfig:"WINDOW"`
	Theme     ThemeConfig     `json:"theme" envconfig:"THEME"`
	Recent    RecentConfig    `json:"recentFolders" ignored:"true"`
}

// PickerConfig selects and tunes the file picker.
type PickerConfig struct {
	Provider        string `json:"provider" envconfig:"PROVIDER"` // "auto", "portal", "native", "managed"
	ShowHiddenFiles bool   `json:"showHiddenFiles" envconfig:"SHOW_HIDDEN"`
	BrowseArchives  bool   `json:"browseArchives" envconfig:"BROWSE_ARCHIVES"`
	StartDir        string `json:"startDir" envconfig:"START_DIR"`
}

// PortalConfig controls the desktop portal provider.
type PortalConfig struct {
	Disabled     bool   `json:"disabled" envconfig:"DISABLED"`
	ParentWindow string `json:"parentWindow" envconfig:"PARENT_WINDOW"`
}

// BookmarksConfig selects where named bookmarks are kept.
type BookmarksConfig struct {
	Backend string `json:"backend" envconfig:"BACKEND"` // "keyring", "memory"
	Service string `json:"service" envconfig:"SERVICE"`
}

// SMBConfig configures SMB share access.
type SMBConfig struct {
	KeyringService string `json:"keyringService" envconfig:"KEYRING_SERVICE"`
	DialTimeoutSec int    `json:"dialTimeoutSec" envconfig:"DIAL_TIMEOUT"`
}

// LoggingConfig represents logger settings
type LoggingConfig struct {
	Level       string `json:"level" envconfig:"LEVEL"`
	Development bool   `json:"development" envconfig:"DEV"`
}

// WindowConfig represents demo window settings
type WindowConfig struct {
	Width            int `json:"width" envconfig:"WIDTH"`
	Height           int `json:"height" envconfig:"HEIGHT"`
	WatchIntervalSec int `json:"watchIntervalSec" envconfig:"WATCH_INTERVAL"` // folder refresh poll
}

// ThemeConfig represents theme settings
type ThemeConfig struct {
	Dark     bool    `json:"dark" envconfig:"DARK"`
	FontSize float32 `json:"fontSize" envconfig:"FONT_SIZE"`
	FontPath string  `json:"fontPath" envconfig:"FONT_PATH"`
}

// RecentConfig remembers recently picked folders. The newest one is the
// suggested start location of the next picker.
type RecentConfig struct {
	MaxEntries int                  `json:"maxEntries"`
	Entries    []string             `json:"entries"`  // newest first
	LastUsed   map[string]time.Time `json:"lastUsed"` // LRU management
}

// LoggerConfig converts the logging section for the logging package.
func (c *Config) LoggerConfig() logging.Config {
	lc := logging.DefaultConfig()
	if c.Logging.Level != "" {
		lc.Level = c.Logging.Level
	}
	lc.Development = c.Logging.Development
	return lc
}

// DialTimeout is the SMB dial timeout.
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.SMB.DialTimeoutSec) * time.Second
}

// WatchInterval is how often the demo window re-lists the shown folder.
func (c *Config) WatchInterval() time.Duration {
	return time.Duration(c.Window.WatchIntervalSec) * time.Second
}

// Manager provides configuration management functionality
type Manager struct {
	configPath string
	logger     *zap.Logger
}

// NewManager creates a manager for the default config path.
func NewManager(logger *zap.Logger) *Manager {
	return NewManagerWithPath(getConfigPath(), logger)
}

// NewManagerWithPath creates a manager for an explicit config file.
func NewManagerWithPath(path string, logger *zap.Logger) *Manager {
	return &Manager{configPath: path, logger: logging.OrNop(logger)}
}

// Path returns the config file location.
func (m *Manager) Path() string { return m.configPath }

// Load loads configuration from file, merges it with defaults and applies
// environment overrides.
func (m *Manager) Load() (*Config, error) {
	config := getDefaultConfig()

	data, err := os.ReadFile(m.configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		m.logger.Debug("config file not found, using defaults", zap.String("path", m.configPath))
	case err != nil:
		return nil, apperrors.NewConfigError("load", "cannot read "+m.configPath, err)
	default:
		var fileConfig Config
		if err := json.Unmarshal(data, &fileConfig); err != nil {
			return nil, apperrors.NewConfigError("load", "error parsing config file", err)
		}
		mergeConfigs(config, &fileConfig)
	}

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, apperrors.NewConfigError("load", "invalid environment override", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves configuration to file
func (m *Manager) Save(config *Config) error {
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return apperrors.NewConfigError("save", "error creating config directory", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return apperrors.NewConfigError("save", "error marshaling config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return apperrors.NewConfigError("save", "error writing config file", err)
	}
	return nil
}

// Validate rejects unknown provider and backend names.
func (c *Config) Validate() error {
	switch c.Picker.Provider {
	case ProviderAuto, ProviderPortal, ProviderNative, ProviderManaged:
	default:
		return apperrors.NewConfigError("validate", "unknown picker provider "+c.Picker.Provider, nil)
	}
	switch c.Bookmarks.Backend {
	case BackendKeyring, BackendMemory:
	default:
		return apperrors.NewConfigError("validate", "unknown bookmark backend "+c.Bookmarks.Backend, nil)
	}
	return nil
}

// getDefaultConfig returns the default configuration
func getDefaultConfig() *Config {
	return &Config{
		Picker: PickerConfig{
			Provider: ProviderAuto,
		},
		Bookmarks: BookmarksConfig{
			Backend: BackendKeyring,
			Service: "storagekit.bookmarks",
		},
		SMB: SMBConfig{
			KeyringService: "storagekit.smb",
			DialTimeoutSec: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Window: WindowConfig{
			Width:            800,
			Height:           600,
			WatchIntervalSec: 2,
		},
		Theme: ThemeConfig{
			Dark:     true,
			FontSize: 14,
		},
		Recent: RecentConfig{
			MaxEntries: 20,
			Entries:    make([]string, 0),
			LastUsed:   make(map[string]time.Time),
		},
	}
}

// getConfigPath returns the path to the configuration file following OS conventions
func getConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\storagekit\config.json
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "config.json"
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "storagekit")

	case "darwin":
		// macOS: ~/Library/Application Support/storagekit/config.json
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.json"
		}
		configDir = filepath.Join(home, "Library", "Application Support", "storagekit")

	default:
		// Linux/Unix: $XDG_CONFIG_HOME/storagekit/config.json or ~/.config/storagekit/config.json
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "config.json"
			}
			xdgConfigHome = filepath.Join(home, ".config")
		}
		configDir = filepath.Join(xdgConfigHome, "storagekit")
	}

	return filepath.Join(configDir, "config.json")
}

// mergeConfigs merges file config values into default config
func mergeConfigs(defaultConfig *Config, fileConfig *Config) {
	if fileConfig.Picker.Provider != "" {
		defaultConfig.Picker.Provider = fileConfig.Picker.Provider
	}
	// Note: for bool values, we can't distinguish between false and unset, so we always use file value
	defaultConfig.Picker.ShowHiddenFiles = fileConfig.Picker.ShowHiddenFiles
	defaultConfig.Picker.BrowseArchives = fileConfig.Picker.BrowseArchives
	if fileConfig.Picker.StartDir != "" {
		defaultConfig.Picker.StartDir = fileConfig.Picker.StartDir
	}

	defaultConfig.Portal.Disabled = fileConfig.Portal.Disabled
	if fileConfig.Portal.ParentWindow != "" {
		defaultConfig.Portal.ParentWindow = fileConfig.Portal.ParentWindow
	}

	if fileConfig.Bookmarks.Backend != "" {
		defaultConfig.Bookmarks.Backend = fileConfig.Bookmarks.Backend
	}
	if fileConfig.Bookmarks.Service != "" {
		defaultConfig.Bookmarks.Service = fileConfig.Bookmarks.Service
	}

	if fileConfig.SMB.KeyringService != "" {
		defaultConfig.SMB.KeyringService = fileConfig.SMB.KeyringService
	}
	if fileConfig.SMB.DialTimeoutSec != 0 {
		defaultConfig.SMB.DialTimeoutSec = fileConfig.SMB.DialTimeoutSec
	}

	if fileConfig.Logging.Level != "" {
		defaultConfig.Logging.Level = fileConfig.Logging.Level
	}
	defaultConfig.Logging.Development = fileConfig.Logging.Development

	if fileConfig.Window.Width != 0 {
		defaultConfig.Window.Width = fileConfig.Window.Width
	}
	if fileConfig.Window.Height != 0 {
		defaultConfig.Window.Height = fileConfig.Window.Height
	}

	if fileConfig.Window.WatchIntervalSec != 0 {
		defaultConfig.Window.WatchIntervalSec = fileConfig.Window.WatchIntervalSec
	}

	defaultConfig.Theme.Dark = fileConfig.Theme.Dark
	if fileConfig.Theme.FontSize != 0 {
		defaultConfig.Theme.FontSize = fileConfig.Theme.FontSize
	}
	if fileConfig.Theme.FontPath != "" {
		defaultConfig.Theme.FontPath = fileConfig.Theme.FontPath
	}

	if fileConfig.Recent.MaxEntries != 0 {
		defaultConfig.Recent.MaxEntries = fileConfig.Recent.MaxEntries
	}
	if fileConfig.Recent.Entries != nil {
		defaultConfig.Recent.Entries = fileConfig.Recent.Entries
	}
	if fileConfig.Recent.LastUsed != nil {
		defaultConfig.Recent.LastUsed = fileConfig.Recent.LastUsed
	}
}

// AddRecentFolder records path as the most recently used folder
func (c *Config) AddRecentFolder(path string) {
	if path == "" {
		return
	}
	if c.Recent.LastUsed == nil {
		c.Recent.LastUsed = make(map[string]time.Time)
	}

	for i, entry := range c.Recent.Entries {
		if entry == path {
			c.Recent.Entries = append(c.Recent.Entries[:i], c.Recent.Entries[i+1:]...)
			break
		}
	}

	c.Recent.Entries = append([]string{path}, c.Recent.Entries...)
	c.Recent.LastUsed[path] = time.Now()

	if c.Recent.MaxEntries > 0 && len(c.Recent.Entries) > c.Recent.MaxEntries {
		for _, old := range c.Recent.Entries[c.Recent.MaxEntries:] {
			delete(c.Recent.LastUsed, old)
		}
		c.Recent.Entries = c.Recent.Entries[:c.Recent.MaxEntries]
	}
}

// RecentFolders returns the recent folders sorted by last use (newest first)
func (c *Config) RecentFolders() []string {
	sorted := make([]string, len(c.Recent.Entries))
	copy(sorted, c.Recent.Entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return c.Recent.LastUsed[sorted[i]].After(c.Recent.LastUsed[sorted[j]])
	})
	return sorted
}

// SuggestedStart returns the newest recent folder that still exists, or
// the configured start directory.
func (c *Config) SuggestedStart() string {
	for _, p := range c.RecentFolders() {
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			return p
		}
	}
	return c.Picker.StartDir
}

// FilterRecentFolders filters recent folders by query (case-insensitive partial match)
func (c *Config) FilterRecentFolders(query string) []string {
	if query == "" {
		return c.Recent.Entries
	}

	query = strings.ToLower(query)
	var filtered []string
	for _, path := range c.Recent.Entries {
		if strings.Contains(strings.ToLower(path), query) {
			filtered = append(filtered, path)
		}
	}
	return filtered
}
