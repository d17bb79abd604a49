package config

import (
	"bytes"
	stdErrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/MuntasirSZN/fetchttp/internal/errdef"
	"github.com/MuntasirSZN/fetchttp/internal/httpclient"
	"github.com/MuntasirSZN/fetchttp/internal/telemetry"
)

type RateLimit struct {
	PerSecond float64 `toml:"per_second" yaml:"per_second"`
	Burst     int     `toml:"burst" yaml:"burst"`
}

func (r RateLimit) Enabled() bool { return r.PerSecond > 0 }

type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Config is the resolved client configuration: defaults, then the file,
// then FETCHTTP_* environment variables.
type Config struct {
	Timeout     time.Duration
	Insecure    bool
	Proxy       string
	HTTPVersion string
	RootCAs     []string
	RootMode    httpclient.RootMode
	ClientCert  string
	ClientKey   string
	UserAgent   string
	// BaseDir anchors relative certificate paths; it is the directory of the
	// loaded file.
	BaseDir   string
	RateLimit RateLimit
	Log       Log
	Telemetry telemetry.Config
	// Source is the file the config was read from, empty when none was.
	Source string
}

type fileConfig struct {
	Timeout     string        `toml:"timeout" yaml:"timeout"`
	Insecure    bool          `toml:"insecure" yaml:"insecure"`
	Proxy       string        `toml:"proxy" yaml:"proxy"`
	HTTPVersion string        `toml:"http_version" yaml:"http_version"`
	RootCAs     []string      `toml:"root_cas" yaml:"root_cas"`
	RootMode    string        `toml:"root_mode" yaml:"root_mode"`
	ClientCert  string        `toml:"client_cert" yaml:"client_cert"`
	ClientKey   string        `toml:"client_key" yaml:"client_key"`
	UserAgent   string        `toml:"user_agent" yaml:"user_agent"`
	RateLimit   *RateLimit    `toml:"rate_limit" yaml:"rate_limit"`
	Log         *Log          `toml:"log" yaml:"log"`
	Telemetry   fileTelemetry `toml:"telemetry" yaml:"telemetry"`
}

type fileTelemetry struct {
	Endpoint    string            `toml:"endpoint" yaml:"endpoint"`
	Insecure    bool              `toml:"insecure" yaml:"insecure"`
	Headers     map[string]string `toml:"headers" yaml:"headers"`
	ServiceName string            `toml:"service_name" yaml:"service_name"`
	DialTimeout string            `toml:"dial_timeout" yaml:"dial_timeout"`
}

func Default() Config {
	return Config{
		Timeout:   30 * time.Second,
		RootMode:  httpclient.RootModeReplace,
		Log:       Log{Level: "warn", Format: "text"},
		Telemetry: telemetry.Default(),
	}
}

// Load resolves the configuration. An empty path reads DefaultPath and
// tolerates its absence; an explicit path must exist. Files ending in .yaml
// or .yml are YAML, everything else TOML.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, &cfg); err != nil {
			return Config{}, err
		}
		cfg.Source = path
		cfg.BaseDir = filepath.Dir(path)
	case !explicit && stdErrors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, errdef.Wrap(errdef.CodeFilesystem, err, "read config %s", path)
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !stdErrors.Is(err, io.EOF) {
			return errdef.Wrap(errdef.CodeConfig, err, "parse yaml config %s", path)
		}
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			return errdef.Wrap(errdef.CodeConfig, err, "parse toml config %s", path)
		}
	}
	return fc.apply(cfg)
}

func (fc fileConfig) apply(cfg *Config) error {
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return errdef.Wrap(errdef.CodeConfig, err, "timeout")
		}
		cfg.Timeout = d
	}
	cfg.Insecure = fc.Insecure
	setString(&cfg.Proxy, fc.Proxy)
	setString(&cfg.HTTPVersion, fc.HTTPVersion)
	setString(&cfg.ClientCert, fc.ClientCert)
	setString(&cfg.ClientKey, fc.ClientKey)
	setString(&cfg.UserAgent, fc.UserAgent)
	if fc.RootMode != "" {
		cfg.RootMode = httpclient.RootMode(strings.ToLower(fc.RootMode))
	}
	if len(fc.RootCAs) > 0 {
		cfg.RootCAs = append([]string(nil), fc.RootCAs...)
	}
	if fc.RateLimit != nil {
		cfg.RateLimit = *fc.RateLimit
	}
	if fc.Log != nil {
		setString(&cfg.Log.Level, fc.Log.Level)
		setString(&cfg.Log.Format, fc.Log.Format)
	}

	t := fc.Telemetry
	setString(&cfg.Telemetry.Endpoint, t.Endpoint)
	setString(&cfg.Telemetry.ServiceName, t.ServiceName)
	cfg.Telemetry.Insecure = t.Insecure
	if len(t.Headers) > 0 {
		cfg.Telemetry.Headers = t.Headers
	}
	if t.DialTimeout != "" {
		d, err := time.ParseDuration(t.DialTimeout)
		if err != nil {
			return errdef.Wrap(errdef.CodeConfig, err, "telemetry dial_timeout")
		}
		cfg.Telemetry.DialTimeout = d
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	env := func(name string) string { return strings.TrimSpace(getenv("FETCHTTP_" + name)) }

	if v := env("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errdef.Wrap(errdef.CodeConfig, err, "FETCHTTP_TIMEOUT")
		}
		cfg.Timeout = d
	}
	if v := env("INSECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errdef.Wrap(errdef.CodeConfig, err, "FETCHTTP_INSECURE")
		}
		cfg.Insecure = b
	}
	setString(&cfg.Proxy, env("PROXY"))
	setString(&cfg.HTTPVersion, env("HTTP_VERSION"))
	setString(&cfg.UserAgent, env("USER_AGENT"))
	setString(&cfg.Log.Level, env("LOG_LEVEL"))
	cfg.Telemetry = telemetry.Overlay(cfg.Telemetry, getenv)
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Timeout < 0 {
		result = multierror.Append(result, errdef.New(errdef.CodeConfig, "timeout must not be negative"))
	}
	if _, ok := httpclient.ParseVersion(c.HTTPVersion); !ok {
		result = multierror.Append(result, errdef.New(errdef.CodeConfig, "unsupported http_version %q", c.HTTPVersion))
	}
	switch c.RootMode {
	case "", httpclient.RootModeReplace, httpclient.RootModeAppend:
	default:
		result = multierror.Append(result, errdef.New(errdef.CodeConfig, "root_mode must be replace or append, got %q", c.RootMode))
	}
	if (c.ClientCert == "") != (c.ClientKey == "") {
		result = multierror.Append(result, errdef.New(errdef.CodeConfig, "client_cert and client_key must be set together"))
	}
	if c.RateLimit.PerSecond < 0 {
		result = multierror.Append(result, errdef.New(errdef.CodeConfig, "rate_limit.per_second must not be negative"))
	}
	if c.RateLimit.Enabled() && c.RateLimit.Burst < 1 {
		result = multierror.Append(result, errdef.New(errdef.CodeConfig, "rate_limit.burst must be at least 1"))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, errdef.Wrap(errdef.CodeConfig, err, "log.level"))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		result = multierror.Append(result, errdef.New(errdef.CodeConfig, "log.format must be text or json, got %q", c.Log.Format))
	}
	if err := result.ErrorOrNil(); err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "invalid config")
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
