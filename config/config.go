// Package config loads layered YAML + environment configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const defaultPath = "."

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port     int `json:"port" yaml:"port"`
		Timeouts struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	// Planner configuration for the waypoint sequencer
	Planner *PlannerConfig `json:"planner" yaml:"planner"`

	// Directions configuration for the external directions provider
	Directions *DirectionsConfig `json:"directions" yaml:"directions"`

	// Cache configuration for the route-segment cache
	Cache *CacheConfig `json:"cache" yaml:"cache"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// PlannerConfig defines waypoint sequencer configuration
type PlannerConfig struct {
	// Number of 2-opt improvement passes over the candidate ordering
	ImprovementPasses int `json:"improvementPasses" yaml:"improvementPasses"`

	// Deadline for a single plan or commit operation
	PlanTimeout time.Duration `json:"planTimeout" yaml:"planTimeout"`

	// Assumed walking speed used for straight-line duration estimates
	WalkingSpeedKmh float64 `json:"walkingSpeedKmh" yaml:"walkingSpeedKmh"`
}

// DirectionsConfig defines external directions provider configuration
type DirectionsConfig struct {
	// Provider base URL, e.g. https://router.project-osrm.org
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`

	// Routing profile appended to the request path
	Profile string `json:"profile" yaml:"profile"`

	// Per-request HTTP timeout
	RequestTimeout time.Duration `json:"requestTimeout" yaml:"requestTimeout"`

	// Minimum spacing between the starts of outbound requests
	PaceInterval time.Duration `json:"paceInterval" yaml:"paceInterval"`

	// Maximum number of in-flight requests
	MaxInFlight int `json:"maxInFlight" yaml:"maxInFlight"`

	// Backoff before the single per-segment retry
	RetryBackoff time.Duration `json:"retryBackoff" yaml:"retryBackoff"`

	// Spacing multiplier applied during the sequential fallback pass
	FallbackSpacingFactor int `json:"fallbackSpacingFactor" yaml:"fallbackSpacingFactor"`
}

// CacheConfig defines route-segment cache configuration
type CacheConfig struct {
	// Fractional-degree rounding precision for cache keys (decimal places)
	KeyPrecision int `json:"keyPrecision" yaml:"keyPrecision"`

	// Entry lifetime; street geometry is stable so this is days, not minutes
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// Maximum number of in-memory entries before LRU eviction
	Capacity int `json:"capacity" yaml:"capacity"`

	// Interval between eager expiry sweeps
	SweepInterval time.Duration `json:"sweepInterval" yaml:"sweepInterval"`

	// Redis second tier, optional
	Redis *RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig defines the optional Redis cache tier
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: DIRECTIONS_BASEURL -> directions.baseUrl (not directions.baseurl)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Planner == nil {
		cfg.Planner = &PlannerConfig{}
	}
	if cfg.Planner.ImprovementPasses <= 0 {
		cfg.Planner.ImprovementPasses = 3
	}
	if cfg.Planner.PlanTimeout <= 0 {
		cfg.Planner.PlanTimeout = 20 * time.Second
	}
	if cfg.Planner.WalkingSpeedKmh <= 0 {
		cfg.Planner.WalkingSpeedKmh = 4.5
	}

	if cfg.Directions == nil {
		cfg.Directions = &DirectionsConfig{}
	}
	if cfg.Directions.Profile == "" {
		cfg.Directions.Profile = "foot"
	}
	if cfg.Directions.RequestTimeout <= 0 {
		cfg.Directions.RequestTimeout = 10 * time.Second
	}
	if cfg.Directions.PaceInterval <= 0 {
		cfg.Directions.PaceInterval = 300 * time.Millisecond
	}
	if cfg.Directions.MaxInFlight <= 0 {
		cfg.Directions.MaxInFlight = 3
	}
	if cfg.Directions.RetryBackoff <= 0 {
		cfg.Directions.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Directions.FallbackSpacingFactor <= 0 {
		cfg.Directions.FallbackSpacingFactor = 2
	}

	if cfg.Cache == nil {
		cfg.Cache = &CacheConfig{}
	}
	if cfg.Cache.KeyPrecision <= 0 {
		cfg.Cache.KeyPrecision = 4
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = 7 * 24 * time.Hour
	}
	if cfg.Cache.Capacity <= 0 {
		cfg.Cache.Capacity = 4096
	}
	if cfg.Cache.SweepInterval <= 0 {
		cfg.Cache.SweepInterval = time.Hour
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
