package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Media topologies. A deployment runs one, not both: relay accepts binary
// audio chunks, p2p accepts explicit speaking updates alongside signaling.
const (
	MediaModeRelay = "relay"
	MediaModeP2P   = "p2p"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	Secret     string        `mapstructure:"secret"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`

	MediaMode      string        `mapstructure:"media_mode"`
	SpeakingWindow time.Duration `mapstructure:"speaking_window"`

	ChatHistoryLimit  int           `mapstructure:"chat_history_limit"`
	ChatClearInterval time.Duration `mapstructure:"chat_clear_interval"`
	ChatRate          float64       `mapstructure:"chat_rate"`
	ChatBurst         int           `mapstructure:"chat_burst"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("media_mode", MediaModeRelay)
	v.SetDefault("speaking_window", "500ms")
	v.SetDefault("chat_history_limit", 500)
	v.SetDefault("chat_clear_interval", "12h")
	v.SetDefault("chat_rate", 5.0)
	v.SetDefault("chat_burst", 10)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.MediaMode != MediaModeRelay && cfg.MediaMode != MediaModeP2P {
		return nil, fmt.Errorf("invalid media_mode %q", cfg.MediaMode)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Media: %s\n", cfg.Mode, cfg.Port, cfg.MediaMode)
	return &cfg, nil
}
