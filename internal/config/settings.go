package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings are the knobs of a single run. They come from command line flags
// bound into viper, so every one can also be set as PARKER_<FLAG>.
type Settings struct {
	ConfigPath        string        `mapstructure:"config"`
	Output            string        `mapstructure:"output"`
	Viewport          string        `mapstructure:"viewport"`
	Wait              int           `mapstructure:"wait"`
	WaitFor           string        `mapstructure:"wait-for"`
	FullPage          bool          `mapstructure:"full-page"`
	Manifest          bool          `mapstructure:"manifest"`
	HTML              bool          `mapstructure:"html"`
	CSV               bool          `mapstructure:"csv"`
	Headless          bool          `mapstructure:"headless"`
	SelectorTimeout   time.Duration `mapstructure:"selector-timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation-timeout"`
	Logger            LoggerConfig  `mapstructure:"logger"`

	// Size is the parsed form of Viewport.
	Size Viewport `mapstructure:"-"`
}

// LoggerConfig holds the logging setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// Viewport is a width and height in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// ParseViewport parses WIDTHxHEIGHT, e.g. "1280x720".
func ParseViewport(s string) (Viewport, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return Viewport{}, fmt.Errorf("%w: invalid viewport format '%s'", ErrInvalid, s)
	}
	width, werr := strconv.Atoi(parts[0])
	height, herr := strconv.Atoi(parts[1])
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return Viewport{}, fmt.Errorf("%w: invalid viewport format '%s'", ErrInvalid, s)
	}
	return Viewport{Width: width, Height: height}, nil
}

// SetDefaults registers the defaults for keys that have no flag.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.service_name", "parker")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
}

// NewSettingsFromViper decodes and validates the settings held by v.
func NewSettingsFromViper(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the settings and fills Size.
func (s *Settings) Validate() error {
	if s.ConfigPath == "" {
		return fmt.Errorf("%w: a config file is required (-c)", ErrInvalid)
	}
	size, err := ParseViewport(s.Viewport)
	if err != nil {
		return err
	}
	s.Size = size
	if s.Output == "" {
		return fmt.Errorf("%w: output directory must not be empty", ErrInvalid)
	}
	if s.Wait < 0 {
		return fmt.Errorf("%w: wait must not be negative", ErrInvalid)
	}
	if s.SelectorTimeout < 0 || s.NavigationTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalid)
	}
	return nil
}
