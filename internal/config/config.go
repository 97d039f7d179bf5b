// Package config loads client and relay settings from defaults, an optional
// config file and IBGW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/chronologos/ibgw/internal/auth"
	"github.com/chronologos/ibgw/pkg/protocol"
	"github.com/chronologos/ibgw/pkg/session"
	"github.com/chronologos/ibgw/pkg/transport"
)

const envPrefix = "IBGW"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Host                 string        `mapstructure:"host"`
	Port                 int           `mapstructure:"port"`
	ClientID             int64         `mapstructure:"client_id"`
	ConnectionOptions    string        `mapstructure:"connection_options"`
	OptionalCapabilities string        `mapstructure:"optional_capabilities"`
	Asynchronous         bool          `mapstructure:"asynchronous"`
	NonBlocking          bool          `mapstructure:"non_blocking"`
	QueueCapacity        int           `mapstructure:"queue_capacity"`
	MaxFrameSize         int           `mapstructure:"max_frame_size"`
	HandshakeTimeout     time.Duration `mapstructure:"handshake_timeout"`
	HeartbeatMax         time.Duration `mapstructure:"heartbeat_max"`
	SubscriptionBuffer   int           `mapstructure:"subscription_buffer"`
	UnsolicitedCapacity  int           `mapstructure:"unsolicited_capacity"`
	CancelGrace          time.Duration `mapstructure:"cancel_grace"`
	MaxRedirects         int           `mapstructure:"max_redirects"`
	// Dial is "tcp" or "quic".
	Dial string `mapstructure:"dial"`
	// Passkey is the hex relay passkey.
	Passkey  string `mapstructure:"passkey"`
	LogLevel string `mapstructure:"log_level"`
	Relay    Relay  `mapstructure:"relay"`
}

// Relay configures `ibgw relay`.
type Relay struct {
	Port       int    `mapstructure:"port"`
	Target     string `mapstructure:"target"`
	MaxStreams int64  `mapstructure:"max_streams"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 4001)
	v.SetDefault("client_id", 0)
	v.SetDefault("connection_options", "")
	v.SetDefault("optional_capabilities", "")
	v.SetDefault("asynchronous", false)
	v.SetDefault("non_blocking", false)
	v.SetDefault("queue_capacity", session.DefaultQueueCapacity)
	v.SetDefault("max_frame_size", protocol.DefaultMaxFrameSize)
	v.SetDefault("handshake_timeout", session.DefaultHandshakeTimeout)
	v.SetDefault("heartbeat_max", session.DefaultHeartbeatMax)
	v.SetDefault("subscription_buffer", 64)
	v.SetDefault("unsolicited_capacity", 256)
	v.SetDefault("cancel_grace", 5*time.Second)
	v.SetDefault("max_redirects", session.DefaultMaxRedirects)
	v.SetDefault("dial", "tcp")
	v.SetDefault("passkey", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("relay.port", 4443)
	v.SetDefault("relay.target", "127.0.0.1:4001")
	v.SetDefault("relay.max_streams", 16)
}

// Load reads path (YAML, TOML or JSON by extension) over the defaults and
// applies environment overrides such as IBGW_PORT or IBGW_RELAY_TARGET.
// An empty path skips the file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host is empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.ClientID < 0 {
		errs = append(errs, fmt.Errorf("client_id %d is negative", c.ClientID))
	}
	for name, n := range map[string]int{
		"queue_capacity":       c.QueueCapacity,
		"max_frame_size":       c.MaxFrameSize,
		"subscription_buffer":  c.SubscriptionBuffer,
		"unsolicited_capacity": c.UnsolicitedCapacity,
	} {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, n))
		}
	}
	if c.HandshakeTimeout <= 0 || c.HeartbeatMax <= 0 || c.CancelGrace <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.MaxRedirects < 0 {
		errs = append(errs, fmt.Errorf("max_redirects %d is negative", c.MaxRedirects))
	}
	mode, err := transport.ParseDialMode(c.Dial)
	if err != nil {
		errs = append(errs, err)
	}
	if c.Passkey != "" {
		if _, err := auth.ParsePasskey(c.Passkey); err != nil {
			errs = append(errs, fmt.Errorf("passkey: %w", err))
		}
	} else if mode == transport.DialQUIC {
		errs = append(errs, errors.New("dial quic requires a passkey"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Relay.Port < 0 || c.Relay.Port > 65535 {
		errs = append(errs, fmt.Errorf("relay.port %d out of range", c.Relay.Port))
	}
	if c.Relay.MaxStreams <= 0 {
		errs = append(errs, fmt.Errorf("relay.max_streams must be positive, got %d", c.Relay.MaxStreams))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ToSession converts c into a session configuration. Logger and Registerer
// are left for the caller.
func (c Config) ToSession() (session.Config, error) {
	mode, err := transport.ParseDialMode(c.Dial)
	if err != nil {
		return session.Config{}, err
	}
	var passkey []byte
	if c.Passkey != "" {
		if passkey, err = auth.ParsePasskey(c.Passkey); err != nil {
			return session.Config{}, err
		}
	}
	// Zero means no redirects here; in session.Config it selects the default.
	redirects := c.MaxRedirects
	if redirects == 0 {
		redirects = -1
	}
	return session.Config{
		Host:                 c.Host,
		Port:                 c.Port,
		ClientID:             c.ClientID,
		ConnectionOptions:    c.ConnectionOptions,
		OptionalCapabilities: c.OptionalCapabilities,
		Asynchronous:         c.Asynchronous,
		NonBlocking:          c.NonBlocking,
		QueueCapacity:        c.QueueCapacity,
		MaxFrameSize:         c.MaxFrameSize,
		HandshakeTimeout:     c.HandshakeTimeout,
		HeartbeatMax:         c.HeartbeatMax,
		SubscriptionBuffer:   c.SubscriptionBuffer,
		UnsolicitedCapacity:  c.UnsolicitedCapacity,
		CancelGrace:          c.CancelGrace,
		MaxRedirects:         redirects,
		DialMode:             mode,
		Passkey:              passkey,
	}, nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", s, err)
	}
	return l, nil
}
