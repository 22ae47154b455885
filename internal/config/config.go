// Package config holds the runtime profile of the bot server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	// Embedded zoneinfo keeps the display zone loadable on images without /usr/share/zoneinfo.
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SPLATBOT_PORT.
const EnvPrefix = "splatbot"

// Profile is the configuration to start the server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string `mapstructure:"mode"`
	Addr string `mapstructure:"addr"`
	Port int    `mapstructure:"port"`

	// ChannelAccessToken authenticates replies to the Messaging API.
	ChannelAccessToken string `mapstructure:"channel_access_token"`

	// Driver is the cache store driver (memory or sqlite)
	Driver string `mapstructure:"driver"`
	// DSN is the sqlite database path; derived from Data when empty.
	DSN  string `mapstructure:"dsn"`
	Data string `mapstructure:"data"`

	// KeywordsFile optionally overrides the built-in keyword tables and is watched for changes.
	KeywordsFile string `mapstructure:"keywords_file"`

	// Timezone is used to display schedule times.
	Timezone string `mapstructure:"timezone"`
	// CacheTimezone decides which hour of day a cache entry belongs to. "Local" uses the host zone.
	CacheTimezone string `mapstructure:"cache_timezone"`

	MaxNext          int           `mapstructure:"max_next"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
	EventConcurrency int           `mapstructure:"event_concurrency"`

	SchedulesURL string `mapstructure:"schedules_url"`
	LocaleURL    string `mapstructure:"locale_url"`
	FestivalsURL string `mapstructure:"festivals_url"`
	CoopURL      string `mapstructure:"coop_url"`
	ReplyURL     string `mapstructure:"reply_url"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8050)
	v.SetDefault("channel_access_token", "")
	v.SetDefault("driver", "memory")
	v.SetDefault("dsn", "")
	v.SetDefault("data", "")
	v.SetDefault("keywords_file", "")
	v.SetDefault("timezone", "Asia/Tokyo")
	v.SetDefault("cache_timezone", "Local")
	v.SetDefault("max_next", 5)
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("event_concurrency", 0)
	v.SetDefault("schedules_url", "https://splatoon3.ink/data/schedules.json")
	v.SetDefault("locale_url", "https://splatoon3.ink/data/locale/ja-JP.json")
	v.SetDefault("festivals_url", "https://splatoon3.ink/data/festivals.json")
	v.SetDefault("coop_url", "https://splatoon3.ink/data/coop.json")
	v.SetDefault("reply_url", "https://api.line.me/v2/bot/message/reply")
}

// NewViper returns a viper instance with defaults and SPLATBOT_* environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and decodes v into a validated Profile.
func Load(v *viper.Viper, configFile string) (*Profile, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Validate normalizes the profile and rejects settings the server cannot start with.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.MaxNext < 0 {
		return errors.Errorf("max_next must not be negative, got %d", p.MaxNext)
	}

	switch p.Driver {
	case "memory":
	case "sqlite":
		if p.DSN == "" {
			dataDir, err := checkDataDir(p.Data)
			if err != nil {
				return err
			}
			p.Data = dataDir
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("splatbot_%s.db", p.Mode))
		}
	default:
		return errors.Errorf("unknown driver %q: only 'memory' and 'sqlite' are supported", p.Driver)
	}

	if _, err := p.Location(); err != nil {
		return err
	}
	if _, err := p.CacheLocation(); err != nil {
		return err
	}
	return nil
}

func checkDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		dataDir = "."
	}
	absDir, err := filepath.Abs(dataDir)
	if err != nil {
		return "", err
	}
	absDir = strings.TrimRight(absDir, "\\/")
	if _, err := os.Stat(absDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", absDir)
	}
	return absDir, nil
}

// Location is the display time zone.
func (p *Profile) Location() (*time.Location, error) {
	return loadLocation(p.Timezone)
}

// CacheLocation is the zone the cache reads hours of day in.
func (p *Profile) CacheLocation() (*time.Location, error) {
	return loadLocation(p.CacheTimezone)
}

func loadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid timezone %q", name)
	}
	return loc, nil
}

// ListenAddr is the address echo binds to.
func (p *Profile) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}
