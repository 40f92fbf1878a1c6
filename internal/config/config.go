package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Dataset DatasetConfig `yaml:"dataset"`
	Display DisplayConfig `yaml:"display"`
	Editor  EditorConfig  `yaml:"editor"`
	Session SessionConfig `yaml:"session"`
	Assist  AssistConfig  `yaml:"assist"`
	Log     LogConfig     `yaml:"log"`
}

// DatasetConfig describes the on-disk collection layout
type DatasetConfig struct {
	Root      string   `yaml:"root"`
	LabelExt  string   `yaml:"label_ext"`
	ImageExts []string `yaml:"image_exts"`
}

// DisplayConfig is the area the subject image is fitted into
type DisplayConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// EditorConfig holds configuration for the annotation editor
type EditorConfig struct {
	MinGestureSize int  `yaml:"min_gesture_size"` // 0 means the editor default
	MaxHistory     int  `yaml:"max_history"`
	StrictEdit     bool `yaml:"strict_edit"`
}

// SessionConfig holds configuration for collection navigation
type SessionConfig struct {
	AutoSave bool `yaml:"auto_save"`
}

// AssistConfig holds configuration for model-proposed boxes
type AssistConfig struct {
	Enabled       bool    `yaml:"enabled"`
	URL           string  `yaml:"url"`
	Model         string  `yaml:"model"`
	SendSize      int     `yaml:"send_size"`
	SendQuality   int     `yaml:"send_quality"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Root:      "dataset",
			LabelExt:  ".txt",
			ImageExts: []string{".jpg", ".jpeg", ".png"},
		},
		Display: DisplayConfig{
			Width:  600,
			Height: 400,
		},
		Editor: EditorConfig{
			MinGestureSize: 10,
			MaxHistory:     0,
			StrictEdit:     false,
		},
		Session: SessionConfig{
			AutoSave: false,
		},
		Assist: AssistConfig{
			Enabled:       false,
			URL:           "http://localhost:11434",
			Model:         "openbmb/minicpm-v4.5",
			SendSize:      1024,
			SendQuality:   85,
			MinConfidence: 0.3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.normalize()

	return cfg, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// normalize fixes up extension spelling so ".PNG", "png" and ".png" agree
func (c *Config) normalize() {
	c.Dataset.LabelExt = dotted(c.Dataset.LabelExt)
	for i, ext := range c.Dataset.ImageExts {
		c.Dataset.ImageExts[i] = strings.ToLower(dotted(ext))
	}
}

func dotted(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Dataset.Root == "" {
		return fmt.Errorf("dataset.root cannot be empty")
	}

	if c.Dataset.LabelExt == "" {
		return fmt.Errorf("dataset.label_ext cannot be empty")
	}

	if len(c.Dataset.ImageExts) == 0 {
		return fmt.Errorf("dataset.image_exts cannot be empty")
	}

	for _, ext := range c.Dataset.ImageExts {
		if strings.EqualFold(dotted(ext), c.Dataset.LabelExt) {
			return fmt.Errorf("dataset.label_ext %q collides with an image extension", c.Dataset.LabelExt)
		}
	}

	if c.Display.Width < 1 || c.Display.Height < 1 {
		return fmt.Errorf("display width and height must be positive")
	}

	if c.Editor.MinGestureSize < 0 {
		return fmt.Errorf("editor.min_gesture_size cannot be negative")
	}

	if c.Editor.MaxHistory < 0 {
		return fmt.Errorf("editor.max_history cannot be negative")
	}

	if c.Assist.Enabled && c.Assist.URL == "" {
		return fmt.Errorf("assist.url is required when assist is enabled")
	}

	if c.Assist.SendQuality < 1 || c.Assist.SendQuality > 100 {
		return fmt.Errorf("assist.send_quality must be between 1 and 100")
	}

	if c.Assist.MinConfidence < 0 || c.Assist.MinConfidence > 1 {
		return fmt.Errorf("assist.min_confidence must be between 0 and 1")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "image-labeler", "config.yaml")
}
