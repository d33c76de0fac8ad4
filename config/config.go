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

const (
	defaultPath           = "."
	defaultBackendTimeout = 30 * time.Second
	defaultTokenPath      = ".merchant-console/tokens.json"
)

// Auth transport schemes supported against the merchant backend.
const (
	AuthSchemeBearer = "bearer"
	AuthSchemeCookie = "cookie"
)

// Update request shapes supported by observed backend revisions.
const (
	UpdateModeReplace = "replace" // PUT with the full record
	UpdateModePatch   = "patch"   // PATCH with changed fields only
)

// Mutation policies for folding local edits into the product cache.
const (
	PolicyOptimistic  = "optimistic"
	PolicyPessimistic = "pessimistic"
)

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

	// Backend describes how to reach the remote merchant backend.
	Backend BackendConfig `json:"backend" yaml:"backend"`

	// Mutation selects how local edits are folded into the product cache.
	Mutation MutationConfig `json:"mutation" yaml:"mutation"`

	// Storage configures durable client-side state (persisted tokens).
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// BackendConfig defines the remote merchant backend connection.
type BackendConfig struct {
	// BaseURL is the deployment-time backend root, e.g. "https://api.example.com/api".
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`

	// AuthScheme selects the credential transport: "bearer" or "cookie".
	AuthScheme string `json:"authScheme" yaml:"authScheme"`

	// UpdateMode selects the product update request shape: "replace" or "patch".
	UpdateMode string `json:"updateMode" yaml:"updateMode"`

	// Timeout bounds each round-trip to the backend.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// MutationConfig defines per-mutation-type cache policies.
type MutationConfig struct {
	CreatePolicy string `json:"createPolicy" yaml:"createPolicy"`
	UpdatePolicy string `json:"updatePolicy" yaml:"updatePolicy"`
}

// StorageConfig defines where durable client state lives.
type StorageConfig struct {
	// TokenPath is the file holding persisted access/refresh tokens.
	TokenPath string `json:"tokenPath" yaml:"tokenPath"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
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
			// Example: BACKEND_BASEURL -> backend.baseUrl (not backend.baseurl)
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

	if strings.TrimSpace(cfg.Backend.BaseURL) == "" {
		return nil, errors.New("backend.baseUrl is required")
	}
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills unset knobs and rejects unknown enum values.
func applyDefaults(cfg *Config) error {
	if cfg.Backend.AuthScheme == "" {
		cfg.Backend.AuthScheme = AuthSchemeBearer
	}
	if cfg.Backend.AuthScheme != AuthSchemeBearer && cfg.Backend.AuthScheme != AuthSchemeCookie {
		return errors.Errorf("unknown backend.authScheme: %s", cfg.Backend.AuthScheme)
	}

	if cfg.Backend.UpdateMode == "" {
		cfg.Backend.UpdateMode = UpdateModeReplace
	}
	if cfg.Backend.UpdateMode != UpdateModeReplace && cfg.Backend.UpdateMode != UpdateModePatch {
		return errors.Errorf("unknown backend.updateMode: %s", cfg.Backend.UpdateMode)
	}

	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = defaultBackendTimeout
	}

	if cfg.Mutation.CreatePolicy == "" {
		cfg.Mutation.CreatePolicy = PolicyPessimistic
	}
	if cfg.Mutation.UpdatePolicy == "" {
		cfg.Mutation.UpdatePolicy = PolicyPessimistic
	}
	for _, policy := range []string{cfg.Mutation.CreatePolicy, cfg.Mutation.UpdatePolicy} {
		if policy != PolicyOptimistic && policy != PolicyPessimistic {
			return errors.Errorf("unknown mutation policy: %s", policy)
		}
	}

	if cfg.Storage.TokenPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "resolve home directory for token storage")
		}
		cfg.Storage.TokenPath = filepath.Join(home, defaultTokenPath)
	}

	return nil
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
