package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	defaultPath        = "."
	defaultAPITimeout  = 10 * time.Second
	defaultPushProject = "farmlink"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	// API is the farm platform backend consumed by this client.
	API struct {
		BaseURL string        `json:"baseUrl" yaml:"baseUrl" validate:"required,url"`
		Timeout time.Duration `json:"timeout" yaml:"timeout"`
	} `json:"api" yaml:"api"`

	// Storage holds the local key/value blobs (credentials, preferences,
	// notification journal) and the downloads area for export artifacts.
	Storage struct {
		DataDir      string `json:"dataDir" yaml:"dataDir" validate:"required"`
		DownloadsDir string `json:"downloadsDir" yaml:"downloadsDir"`
	} `json:"storage" yaml:"storage"`

	// Push configuration for the notification transport.
	Push *PushConfig `json:"push" yaml:"push"`

	// Firebase configuration for local notification delivery through FCM.
	Firebase *FirebaseConfig `json:"firebase" yaml:"firebase"`

	// Export configuration for CSV/PDF report generation.
	Export *ExportConfig `json:"export" yaml:"export"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// PushConfig selects and parameterizes the push transport.
type PushConfig struct {
	// Provider type: "local" for the development HTTP receiver or "google"
	// for a Google Pub/Sub subscription.
	Provider string `json:"provider" yaml:"provider" validate:"omitempty,oneof=local google"`

	// Google Cloud project ID (for google provider).
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub subscription ID delivering pushes to this installation.
	SubscriptionID string `json:"subscriptionId" yaml:"subscriptionId"`

	// Local HTTP receiver port (for local provider).
	LocalPort int `json:"localPort" yaml:"localPort"`

	// VerifyPushAuth enables OIDC token verification on inbound push requests.
	VerifyPushAuth bool `json:"verifyPushAuth" yaml:"verifyPushAuth"`

	// Simulator forces synthetic device tokens, matching simulator builds.
	Simulator bool `json:"simulator" yaml:"simulator"`
}

// FirebaseConfig defines Firebase credentials for FCM delivery.
type FirebaseConfig struct {
	ProjectID       string `json:"projectId" yaml:"projectId"`
	CredentialsPath string `json:"credentialsPath" yaml:"credentialsPath"`
}

// ExportConfig defines report generation configuration.
type ExportConfig struct {
	// DashboardBaseURL is embedded as a QR deep link in PDF reports.
	DashboardBaseURL string `json:"dashboardBaseUrl" yaml:"dashboardBaseUrl"`

	// ChartWidth is the minimum chart raster width in pixels.
	ChartWidth int `json:"chartWidth" yaml:"chartWidth"`
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
			// Example: API_BASEURL -> api.baseUrl (not api.baseurl)
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

	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = defaultAPITimeout
	}
	if cfg.Storage.DownloadsDir == "" {
		cfg.Storage.DownloadsDir = filepath.Join(cfg.Storage.DataDir, "downloads")
	}
	if cfg.Push != nil && cfg.Push.ProjectID == "" {
		cfg.Push.ProjectID = defaultPushProject
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return cfg, nil
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
