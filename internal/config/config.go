// Package config provides application configuration loaded from the zbx-rc
// configuration file with defaults and validation. It centralizes the
// Rocket.Chat connection settings, the Zabbix web frontend settings, and the
// location of the reply store.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultPath is the config file location provisioned by `zbx-rc install`.
const DefaultPath = "/etc/zbx-rc/zbx-rc.toml"

// RocketChatConfig defines how to reach and authenticate against the
// Rocket.Chat REST API.
type RocketChatConfig struct {
	Protocol string // http|https
	Server   string // host name or address
	Port     int    // API port, usually 3000
	UID      string // user id obtained via `zbx-rc auth`
	Token    string // auth token obtained via `zbx-rc auth`
}

// ZabbixConfig defines how to reach the Zabbix web frontend used for
// rendering item graphs.
type ZabbixConfig struct {
	Server   string // base URL of the web UI, e.g. "https://zbx.example.com/zabbix"
	Username string // frontend user
	Password string // frontend password
	TmpDir   string // directory for downloaded graph images
	Period   int    // graph time window in seconds
	Width    int    // graph width in pixels
	Height   int    // graph height in pixels
	Version  int    // major frontend version; >= 4 switches the chart time syntax
}

// Config holds all configuration values for one invocation.
type Config struct {
	RocketChat RocketChatConfig
	Zabbix     ZabbixConfig

	// StorePath is the sqlite file holding trigger/event -> message mappings.
	// Defaults to zbx-rc.db next to the config file.
	StorePath string

	// Debug enables verbose logging. Threaded explicitly instead of being a
	// process-wide flag so components never consult ambient state.
	Debug bool
}

// APIBase returns the Rocket.Chat REST base URL with a trailing slash,
// e.g. "https://chat.example.com:3000/api/v1/".
func (c Config) APIBase() string {
	return fmt.Sprintf("%s://%s:%d/api/v1/", c.RocketChat.Protocol, c.RocketChat.Server, c.RocketChat.Port)
}

// Load reads the configuration file at path, applies defaults, and validates
// the result. A missing or unreadable file is a fatal configuration error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v, path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrapf(err, "cannot read config file %q", path)
	}

	cfg := fromViper(v, path)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RequireChatAuth verifies the stored Rocket.Chat credentials are present.
// The send path needs them; the auth path obtains them.
func (c Config) RequireChatAuth() error {
	if strings.TrimSpace(c.RocketChat.UID) == "" {
		return errors.New(`config file is missing "rocketchat.uid" (run "zbx-rc auth --update")`)
	}
	if strings.TrimSpace(c.RocketChat.Token) == "" {
		return errors.New(`config file is missing "rocketchat.token" (run "zbx-rc auth --update")`)
	}
	return nil
}

// SaveAuth rewrites the config file at path with new Rocket.Chat credentials,
// preserving every other setting.
func SaveAuth(path, uid, token string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v, path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "cannot read config file %q", path)
	}
	v.Set("rocketchat.uid", uid)
	v.Set("rocketchat.token", token)
	if err := v.WriteConfigAs(path); err != nil {
		return errors.Wrapf(err, "cannot update config file %q", path)
	}
	return nil
}

func setDefaults(v *viper.Viper, path string) {
	v.SetDefault("rocketchat.protocol", "http")
	v.SetDefault("rocketchat.server", "localhost")
	v.SetDefault("rocketchat.port", 3000)
	v.SetDefault("rocketchat.uid", "")
	v.SetDefault("rocketchat.token", "")

	v.SetDefault("zabbix.server", "")
	v.SetDefault("zabbix.username", "")
	v.SetDefault("zabbix.password", "")
	v.SetDefault("zabbix.tmp_dir", os.TempDir())
	v.SetDefault("zabbix.period", 14400)
	v.SetDefault("zabbix.width", 900)
	v.SetDefault("zabbix.height", 200)
	v.SetDefault("zabbix.version", 3)

	v.SetDefault("store.path", filepath.Join(filepath.Dir(path), "zbx-rc.db"))
}

func fromViper(v *viper.Viper, path string) Config {
	storePath := strings.TrimSpace(v.GetString("store.path"))
	if storePath == "" {
		// An explicit empty value in the file means "use the default".
		storePath = filepath.Join(filepath.Dir(path), "zbx-rc.db")
	}
	return Config{
		RocketChat: RocketChatConfig{
			Protocol: strings.ToLower(v.GetString("rocketchat.protocol")),
			Server:   v.GetString("rocketchat.server"),
			Port:     v.GetInt("rocketchat.port"),
			UID:      v.GetString("rocketchat.uid"),
			Token:    v.GetString("rocketchat.token"),
		},
		Zabbix: ZabbixConfig{
			Server:   strings.TrimRight(v.GetString("zabbix.server"), "/"),
			Username: v.GetString("zabbix.username"),
			Password: v.GetString("zabbix.password"),
			TmpDir:   v.GetString("zabbix.tmp_dir"),
			Period:   v.GetInt("zabbix.period"),
			Width:    v.GetInt("zabbix.width"),
			Height:   v.GetInt("zabbix.height"),
			Version:  v.GetInt("zabbix.version"),
		},
		StorePath: storePath,
	}
}

func validate(cfg Config) error {
	switch cfg.RocketChat.Protocol {
	case "http", "https":
	default:
		return errors.New(`"rocketchat.protocol" must be "http" or "https"`)
	}
	if strings.TrimSpace(cfg.RocketChat.Server) == "" {
		return errors.New(`"rocketchat.server" must not be empty`)
	}
	if cfg.RocketChat.Port <= 0 || cfg.RocketChat.Port > 65535 {
		return errors.New(`"rocketchat.port" must be a valid TCP port`)
	}
	if cfg.Zabbix.Period <= 0 {
		return errors.New(`"zabbix.period" must be a positive number of seconds`)
	}
	if cfg.Zabbix.Width <= 0 || cfg.Zabbix.Height <= 0 {
		return errors.New(`"zabbix.width" and "zabbix.height" must be > 0`)
	}
	return nil
}
