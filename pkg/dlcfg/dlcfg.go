// Package dlcfg loads the devlog YAML configuration.
package dlcfg

import (
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/devlog/pkg/dlchannels"
	"gopkg.in/yaml.v2"
)

// Defaults
const (
	DefaultAddr         = "127.0.0.1:8000"
	DefaultServerURL    = "http://127.0.0.1:8000"
	DefaultHistorySize  = 1000
	DefaultMaxEntries   = 1000
	DefaultRetryDelay   = 5 * time.Second
	DefaultPollInterval = time.Second
	DefaultSaveDelay    = 500 * time.Millisecond
)

// Duration is a time.Duration written as a Go duration string ("5s")
type Duration time.Duration

// UnmarshalYAML parses "1m30s" style strings
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", s)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Server configures `devlog serve`
type Server struct {
	Addr        string   `yaml:"addr"`
	HistorySize int      `yaml:"historySize"`
	Heartbeat   Duration `yaml:"heartbeat"`
	StateFile   string   `yaml:"stateFile"`
	SaveDelay   Duration `yaml:"saveDelay"`
}

// Stream configures `devlog tail`
type Stream struct {
	URL          string   `yaml:"url"`
	RetryDelay   Duration `yaml:"retryDelay"`
	PollInterval Duration `yaml:"pollInterval"`
	MaxEntries   int      `yaml:"maxEntries"`
	Debug        bool     `yaml:"debug"`
}

// Config is the whole configuration file
type Config struct {
	Server   Server               `yaml:"server"`
	Stream   Stream               `yaml:"stream"`
	Channels []dlchannels.Channel `yaml:"channels"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:        DefaultAddr,
			HistorySize: DefaultHistorySize,
			SaveDelay:   Duration(DefaultSaveDelay),
		},
		Stream: Stream{
			URL:          DefaultServerURL,
			RetryDelay:   Duration(DefaultRetryDelay),
			PollInterval: Duration(DefaultPollInterval),
			MaxEntries:   DefaultMaxEntries,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	conf := Default()
	if path == "" {
		return conf, nil
	}

	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(dat, conf); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	conf.applyDefaults()

	if err := conf.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	log.Debugf("Loaded config %s with %d channels", path, len(conf.Channels))
	return conf, nil
}

// applyDefaults fills zero values a file left out or set to zero
func (c *Config) applyDefaults() {
	d := Default()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.HistorySize <= 0 {
		c.Server.HistorySize = d.Server.HistorySize
	}
	if c.Server.SaveDelay <= 0 {
		c.Server.SaveDelay = d.Server.SaveDelay
	}
	if c.Stream.URL == "" {
		c.Stream.URL = d.Stream.URL
	}
	if c.Stream.RetryDelay <= 0 {
		c.Stream.RetryDelay = d.Stream.RetryDelay
	}
	if c.Stream.PollInterval <= 0 {
		c.Stream.PollInterval = d.Stream.PollInterval
	}
	if c.Stream.MaxEntries <= 0 {
		c.Stream.MaxEntries = d.Stream.MaxEntries
	}
}

// Validate rejects channel lists the store would refuse
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.ID == "" {
			return errors.Errorf("channel %d has no id", i)
		}
		if seen[ch.ID] {
			return errors.Errorf("duplicate channel id %s", ch.ID)
		}
		seen[ch.ID] = true
	}
	if c.Server.Heartbeat < 0 {
		return errors.New("server heartbeat must not be negative")
	}
	return nil
}
