package telemetry

import (
	"maps"
	"strings"
	"time"
)

const (
	envPrefix      = "FETCHTTP_TRACE_OTEL_"
	envEndpoint    = envPrefix + "ENDPOINT"
	envInsecure    = envPrefix + "INSECURE"
	envHeaders     = envPrefix + "HEADERS"
	envService     = envPrefix + "SERVICE"
	envDialTimeout = envPrefix + "TIMEOUT"
)

// Config selects where fetch spans are exported. An empty Endpoint disables
// export.
type Config struct {
	Endpoint    string
	Insecure    bool
	Headers     map[string]string
	ServiceName string
	Version     string
	DialTimeout time.Duration
}

func Default() Config {
	return Config{
		ServiceName: "fetchttp",
		DialTimeout: 5 * time.Second,
	}
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// Overlay applies FETCHTTP_TRACE_OTEL_* variables on top of base. Malformed
// values are ignored; headers from the environment are merged over the ones
// already in base.
func Overlay(base Config, getenv func(string) string) Config {
	if getenv == nil {
		return base
	}
	cfg := base
	if val := strings.TrimSpace(getenv(envEndpoint)); val != "" {
		cfg.Endpoint = val
	}
	if val := strings.TrimSpace(getenv(envInsecure)); val != "" {
		if parsed, ok := ParseBool(val); ok {
			cfg.Insecure = parsed
		}
	}
	if val := strings.TrimSpace(getenv(envService)); val != "" {
		cfg.ServiceName = val
	}
	if val := strings.TrimSpace(getenv(envDialTimeout)); val != "" {
		if dur, err := time.ParseDuration(val); err == nil && dur > 0 {
			cfg.DialTimeout = dur
		}
	}
	if raw := strings.TrimSpace(getenv(envHeaders)); raw != "" {
		cfg.Headers = mergeHeaders(base.Headers, ParseHeaders(raw))
	}
	return cfg
}

// ParseHeaders reads "key=value,key2=value2". Entries without a key are
// dropped; nil means nothing usable was found.
func ParseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for entry := range strings.SplitSeq(raw, ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(entry), "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func mergeHeaders(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}

// ParseBool accepts the usual on/off spellings and reports whether value
// was one of them.
func ParseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
