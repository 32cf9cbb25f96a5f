package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppCfg struct {
	Env         string `mapstructure:"env"`
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type DatabaseCfg struct {
	DSN string `mapstructure:"dsn"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaCfg struct {
	Brokers    []string `mapstructure:"brokers"`
	EventTopic string   `mapstructure:"event_topic"`
}

type S3Cfg struct {
	Region     string `mapstructure:"region"`
	Bucket     string `mapstructure:"bucket"`
	Endpoint   string `mapstructure:"endpoint"`
	PublicRead bool   `mapstructure:"public_read"`
}

type JWTCfg struct {
	Secret string `mapstructure:"secret"`
}

type ChatCfg struct {
	// Hide TTLs are deliberately separate knobs. The direct-chat value is
	// far shorter than the group one; product has not confirmed whether
	// that asymmetry is intended, so neither is derived from the other.
	HideChatTTLSeconds  int `mapstructure:"hide_chat_ttl_seconds"`
	HideGroupTTLSeconds int `mapstructure:"hide_group_ttl_seconds"`
	SweepIntervalSecs   int `mapstructure:"sweep_interval_seconds"`
	DefaultPageLimit    int `mapstructure:"default_page_limit"`
}

type WSCfg struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageSize       int64 `mapstructure:"max_message_size"`
}

type Config struct {
	App      AppCfg      `mapstructure:"app"`
	Database DatabaseCfg `mapstructure:"database"`
	Redis    RedisCfg    `mapstructure:"redis"`
	Kafka    KafkaCfg    `mapstructure:"kafka"`
	S3       S3Cfg       `mapstructure:"s3"`
	JWT      JWTCfg      `mapstructure:"jwt"`
	Chat     ChatCfg     `mapstructure:"chat"`
	WS       WSCfg       `mapstructure:"ws"`

	// Derived
	HideChatTTL   time.Duration
	HideGroupTTL  time.Duration
	SweepInterval time.Duration
	PingInterval  time.Duration
	WriteDeadline time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.App.MetricsPort == 0 {
		cfg.App.MetricsPort = 9100
	}
	if cfg.Chat.HideChatTTLSeconds == 0 {
		cfg.Chat.HideChatTTLSeconds = 30
	}
	if cfg.Chat.HideGroupTTLSeconds == 0 {
		cfg.Chat.HideGroupTTLSeconds = 48 * 3600
	}
	if cfg.Chat.SweepIntervalSecs == 0 {
		cfg.Chat.SweepIntervalSecs = 60
	}
	if cfg.Chat.DefaultPageLimit == 0 {
		cfg.Chat.DefaultPageLimit = 10
	}
	if cfg.WS.PingIntervalSeconds == 0 {
		cfg.WS.PingIntervalSeconds = 30
	}
	if cfg.WS.WriteDeadlineSeconds == 0 {
		cfg.WS.WriteDeadlineSeconds = 10
	}
	if cfg.WS.MaxMessageSize == 0 {
		cfg.WS.MaxMessageSize = 64 * 1024
	}

	cfg.HideChatTTL = time.Duration(cfg.Chat.HideChatTTLSeconds) * time.Second
	cfg.HideGroupTTL = time.Duration(cfg.Chat.HideGroupTTLSeconds) * time.Second
	cfg.SweepInterval = time.Duration(cfg.Chat.SweepIntervalSecs) * time.Second
	cfg.PingInterval = time.Duration(cfg.WS.PingIntervalSeconds) * time.Second
	cfg.WriteDeadline = time.Duration(cfg.WS.WriteDeadlineSeconds) * time.Second
}

// Default returns a config with defaults applied and no file read. Used by
// tests and tooling that only need the chat constants.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
