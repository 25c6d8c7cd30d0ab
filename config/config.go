package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/brutella/hc"
	"github.com/spf13/viper"
)

// Config is the primary daemon configuration...
type Config struct {
	ConfigDir        string     `mapstructure:"-"`                  // passed in from CLI
	ConfigFile       string     `mapstructure:"-"`                  // server.json
	HTTPAddress      string     `mapstructure:"http_address"`       // net.Dial address format, :port is good enough
	Name             string     `mapstructure:"name"`               // what this bridge shows as
	ID               string     `mapstructure:"id"`                 // displayed serial number -- if you run multiple instances, make sure each has a distinct ID
	HCConfig         hc.Config  `mapstructure:"homekit"`            // base HomeControl configuration
	Discover         bool       `mapstructure:"discover"`           // browse mDNS for Tailwind controllers
	TailwindPullRate int        `mapstructure:"tailwind_pull_rate"` // (seconds) how frequently to poll Tailwind devices -- 0 to disable
	TailwindTimeout  int        `mapstructure:"tailwind_timeout"`   // (seconds) per-request timeout for the local API
	TailwindToken    string     `mapstructure:"tailwind_token"`     // local control key used for discovered devices
	MQTT             MQTTConfig `mapstructure:"mqtt"`
	LogLevel         string     `mapstructure:"log_level"`  // debug, info, warn, error
	LogFormat        string     `mapstructure:"log_format"` // text or json
}

// MQTTConfig controls the Home Assistant MQTT discovery surface; an empty Broker disables it
type MQTTConfig struct {
	Broker          string `mapstructure:"broker"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	ClientID        string `mapstructure:"client_id"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix"`
	TopicPrefix     string `mapstructure:"topic_prefix"`
	PublishRate     int    `mapstructure:"publish_rate"` // seconds between full state republishes
}

var (
	runningConfig *Config
	mu            sync.RWMutex
)

// Get a pointer to the global config
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return runningConfig
}

// Set should only be called by the bootstrap (and tests)
func Set(c *Config) {
	mu.Lock()
	runningConfig = c
	mu.Unlock()
}

// Load reads file from dir, applies defaults and TOOFAR_ environment overrides
func Load(dir, file string) (*Config, error) {
	fulldir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to get config directory %s: %w", dir, err)
	}
	cfd := filepath.Join(fulldir, file)

	v := viper.New()
	v.SetConfigFile(cfd)
	setDefaults(v)

	v.SetEnvPrefix("toofar")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", cfd, err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	c.ConfigDir = fulldir
	c.ConfigFile = cfd

	if c.HCConfig.StoragePath == "" {
		c.HCConfig.StoragePath = filepath.Join(fulldir, "hc")
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_address", ":8080")
	v.SetDefault("name", "TooFar")
	v.SetDefault("id", "TooFar-1")
	v.SetDefault("tailwind_pull_rate", 30)
	v.SetDefault("tailwind_timeout", 10)
	v.SetDefault("mqtt.client_id", "toofar")
	v.SetDefault("mqtt.discovery_prefix", "homeassistant")
	v.SetDefault("mqtt.topic_prefix", "toofar")
	v.SetDefault("mqtt.publish_rate", 60)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}
