// Package config loads picker settings from defaults, an optional TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. EMPICKER_PICKER_BOX_SIZE=64.
const EnvPrefix = "EMPICKER"

// Config holds application configuration.
type Config struct {
	Picker  Picker  `mapstructure:"picker"`
	Store   Store   `mapstructure:"store"`
	Display Display `mapstructure:"display"`
}

// Picker holds the initial state of a picking session.
type Picker struct {
	BoxSize    int     `mapstructure:"box_size"`
	Shape      string  `mapstructure:"shape"` // RECT, CIRCLE, CENTER or SEGMENT
	Mode       string  `mapstructure:"mode"`  // default or filament
	Label      string  `mapstructure:"label"`
	EraseSize  float64 `mapstructure:"erase_size"`
	HandleSize float64 `mapstructure:"handle_size"`
	RemoveROIs bool    `mapstructure:"remove_rois"`
	Labels     []Label `mapstructure:"labels"`
}

// Label is an extra user label.
type Label struct {
	Name  string `mapstructure:"name"`
	Color string `mapstructure:"color"`
}

// Store holds sqlite settings.
type Store struct {
	Path string `mapstructure:"path"`
}

// Display holds micrograph display settings.
type Display struct {
	// Lowpass is the gaussian sigma applied before display; 0 disables it.
	Lowpass float64 `mapstructure:"lowpass"`
}

// Default returns the built-in configuration.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	_ = v.Unmarshal(&c)
	return c
}

// Load reads configuration from file and env. An explicit path wins over
// EMPICKER_CONFIG, which wins over ~/.config/em-picker/config.toml.
func Load(path string) (Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (Config, error) {
	setDefaults(v)

	v.SetConfigType("toml")
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "em-picker"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("picker.box_size", 100)
	v.SetDefault("picker.shape", "RECT")
	v.SetDefault("picker.mode", "default")
	v.SetDefault("picker.label", "Manual")
	v.SetDefault("picker.erase_size", 300.0)
	v.SetDefault("picker.handle_size", 8.0)
	v.SetDefault("picker.remove_rois", true)
	v.SetDefault("picker.labels", []map[string]any{})
	v.SetDefault("display.lowpass", 0.0)

	storePath := "em-picker.db"
	if dir, err := os.UserConfigDir(); err == nil {
		storePath = filepath.Join(dir, "em-picker", "sessions.db")
	}
	v.SetDefault("store.path", storePath)
}

// UserPath returns the per-user config file, ~/.config/em-picker/config.toml on Linux.
func UserPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "em-picker", "config.toml"), nil
}

// Save writes cfg as TOML to path, creating the directory if needed.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("picker.box_size", cfg.Picker.BoxSize)
	v.Set("picker.shape", cfg.Picker.Shape)
	v.Set("picker.mode", cfg.Picker.Mode)
	v.Set("picker.label", cfg.Picker.Label)
	v.Set("picker.erase_size", cfg.Picker.EraseSize)
	v.Set("picker.handle_size", cfg.Picker.HandleSize)
	v.Set("picker.remove_rois", cfg.Picker.RemoveROIs)
	labels := make([]map[string]any, 0, len(cfg.Picker.Labels))
	for _, l := range cfg.Picker.Labels {
		labels = append(labels, map[string]any{"name": l.Name, "color": l.Color})
	}
	v.Set("picker.labels", labels)
	v.Set("store.path", cfg.Store.Path)
	v.Set("display.lowpass", cfg.Display.Lowpass)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
