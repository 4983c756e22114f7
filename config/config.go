// SPDX-License-Identifier: EPL-2.0

// Package config loads the engine settings from a file, the environment and
// built in defaults, in decreasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GAMESND_LOG_LEVEL.
const EnvPrefix = "GAMESND"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Sound    SoundConfig    `mapstructure:"sound"`
	Device   DeviceConfig   `mapstructure:"device"`
	Listener ListenerConfig `mapstructure:"listener"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type SoundConfig struct {
	// Root is the sound directory, relative to GameDir.
	Root    string `mapstructure:"root"`
	GameDir string `mapstructure:"game_dir"`
}

type DeviceConfig struct {
	// Name selects the output device; empty means the default one.
	Name       string        `mapstructure:"name"`
	SampleRate int           `mapstructure:"sample_rate"`
	BufferSize time.Duration `mapstructure:"buffer_size"`
}

type ListenerConfig struct {
	SpeedOfSound  float32 `mapstructure:"speed_of_sound"`
	MetersPerUnit float32 `mapstructure:"meters_per_unit"`
}

type WorkerConfig struct {
	IdleSleep time.Duration `mapstructure:"idle_sleep"`
}

type StreamConfig struct {
	Buffers      int `mapstructure:"buffers"`
	BufferFrames int `mapstructure:"buffer_frames"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	// Addr is where the CLI serves /metrics; empty disables it.
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sound.root", "sound")
	v.SetDefault("sound.game_dir", ".")
	v.SetDefault("device.name", "")
	v.SetDefault("device.sample_rate", 44100)
	v.SetDefault("device.buffer_size", 20*time.Millisecond)
	v.SetDefault("listener.speed_of_sound", 343.3)
	v.SetDefault("listener.meters_per_unit", 0.0254)
	v.SetDefault("worker.idle_sleep", time.Millisecond)
	v.SetDefault("stream.buffers", 4)
	v.SetDefault("stream.buffer_frames", 4096)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", "")
}

// Default returns the built in settings, ignoring files and environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("config: defaults are invalid: %v", err))
	}

	return cfg
}

// Load reads path when it is not empty, otherwise looks for gamesnd.yaml in
// the working directory. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("gamesnd")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports the first setting that cannot drive the engine.
func (c *Config) Validate() error {
	switch {
	case c.Device.SampleRate <= 0:
		return fmt.Errorf("%w: device.sample_rate must be positive, got %d", ErrInvalid, c.Device.SampleRate)
	case c.Device.BufferSize <= 0:
		return fmt.Errorf("%w: device.buffer_size must be positive, got %s", ErrInvalid, c.Device.BufferSize)
	case c.Listener.SpeedOfSound <= 0:
		return fmt.Errorf("%w: listener.speed_of_sound must be positive, got %g", ErrInvalid, c.Listener.SpeedOfSound)
	case c.Listener.MetersPerUnit <= 0:
		return fmt.Errorf("%w: listener.meters_per_unit must be positive, got %g", ErrInvalid, c.Listener.MetersPerUnit)
	case c.Worker.IdleSleep < 0:
		return fmt.Errorf("%w: worker.idle_sleep cannot be negative", ErrInvalid)
	case c.Stream.Buffers < 2:
		return fmt.Errorf("%w: stream.buffers must be at least 2, got %d", ErrInvalid, c.Stream.Buffers)
	case c.Stream.BufferFrames <= 0:
		return fmt.Errorf("%w: stream.buffer_frames must be positive, got %d", ErrInvalid, c.Stream.BufferFrames)
	}

	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}

	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Log.Level))

	return level, err
}
