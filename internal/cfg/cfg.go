// Package cfg loads simulator configuration from a YAML file or environment
// variables, with env values overriding file values.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Lamikins/branch-prediction/internal/common"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	HistoryLength int
	Variant       string
	Eta           float64
	Lambda        float64
	BatchSize     int
	Seed          int64

	TracePath   string
	TraceURL    string
	TraceFormat string
	DataPath    string
	OutputPath  string

	MetricsPort    int
	DashboardPort  int
	RecordEvents   bool
	StreamInterval time.Duration
}

// ConfigFile is the YAML layout.
type ConfigFile struct {
	Predictor struct {
		HistoryLength int     `yaml:"historyLength"`
		Variant       string  `yaml:"variant"`
		Eta           float64 `yaml:"eta"`
		Lambda        float64 `yaml:"lambda"`
		BatchSize     int     `yaml:"batchSize"`
		Seed          int64   `yaml:"seed"`
	} `yaml:"predictor"`

	Trace struct {
		Path   string `yaml:"path"`
		URL    string `yaml:"url"`
		Format string `yaml:"format"`
	} `yaml:"trace"`

	System struct {
		DataPath       string `yaml:"dataPath"`
		OutputPath     string `yaml:"outputPath"`
		MetricsPort    int    `yaml:"metricsPort"`
		DashboardPort  int    `yaml:"dashboardPort"`
		RecordEvents   bool   `yaml:"recordEvents"`
		StreamInterval string `yaml:"streamInterval"`
	} `yaml:"system"`
}

// Load resolves settings from CONFIG_FILE when set, falling back to
// environment variables with defaults.
func Load() (Settings, error) {
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		HistoryLength:  getIntFromEnvOrConfig(common.EnvHistoryLength, config.Predictor.HistoryLength, common.DefaultHistoryLength),
		Variant:        getEnvOrDefault(common.EnvVariant, orDefault(config.Predictor.Variant, common.DefaultVariant)),
		Eta:            getFloatFromEnvOrConfig(common.EnvLearningRate, config.Predictor.Eta, 0),
		Lambda:         getFloatFromEnvOrConfig(common.EnvLambda, config.Predictor.Lambda, common.DefaultLambda),
		BatchSize:      getIntFromEnvOrConfig(common.EnvBatchSize, config.Predictor.BatchSize, common.DefaultBatchSize),
		Seed:           getInt64OrDefault(common.EnvSeed, config.Predictor.Seed),
		TracePath:      getEnvOrDefault(common.EnvTracePath, config.Trace.Path),
		TraceURL:       getEnvOrDefault(common.EnvTraceURL, config.Trace.URL),
		TraceFormat:    getEnvOrDefault(common.EnvTraceFormat, orDefault(config.Trace.Format, "auto")),
		DataPath:       getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		OutputPath:     getEnvOrDefault(common.EnvOutputPath, orDefault(config.System.OutputPath, common.DefaultOutputPath)),
		MetricsPort:    getIntFromEnvOrConfig(common.EnvMetricsPort, config.System.MetricsPort, common.DefaultMetricsPort),
		DashboardPort:  getIntFromEnvOrConfig(common.EnvDashboardPort, config.System.DashboardPort, common.DefaultDashboardPort),
		RecordEvents:   getBoolFromEnvOrConfig(common.EnvRecordEvents, config.System.RecordEvents),
		StreamInterval: getDurationOrDefault(common.EnvStreamInterval, orDefault(config.System.StreamInterval, common.DefaultStreamInterval)),
	}
	applyEtaDefault(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		HistoryLength:  getIntOrDefault(common.EnvHistoryLength, common.DefaultHistoryLength),
		Variant:        getEnvOrDefault(common.EnvVariant, common.DefaultVariant),
		Eta:            getFloatOrDefault(common.EnvLearningRate, 0),
		Lambda:         getFloatOrDefault(common.EnvLambda, common.DefaultLambda),
		BatchSize:      getIntOrDefault(common.EnvBatchSize, common.DefaultBatchSize),
		Seed:           getInt64OrDefault(common.EnvSeed, 0),
		TracePath:      os.Getenv(common.EnvTracePath),
		TraceURL:       os.Getenv(common.EnvTraceURL),
		TraceFormat:    getEnvOrDefault(common.EnvTraceFormat, "auto"),
		DataPath:       os.Getenv(common.EnvDataPath), // optional
		OutputPath:     getEnvOrDefault(common.EnvOutputPath, common.DefaultOutputPath),
		MetricsPort:    getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		DashboardPort:  getIntOrDefault(common.EnvDashboardPort, common.DefaultDashboardPort),
		RecordEvents:   getBoolOrDefault(common.EnvRecordEvents, false),
		StreamInterval: getDurationOrDefault(common.EnvStreamInterval, common.DefaultStreamInterval),
	}
	applyEtaDefault(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// applyEtaDefault picks the variant's conventional learning rate when none
// was configured: 1.0 for the classical rule, 1e-3 for the gradient-trained
// variants.
func applyEtaDefault(s *Settings) {
	if s.Eta != 0 {
		return
	}
	if s.Variant == common.VariantSign {
		s.Eta = common.DefaultSignEta
	} else {
		s.Eta = common.DefaultLearningRate
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	v := getEnvOrDefault(key, defaultValue)
	d, err := time.ParseDuration(v)
	if err != nil {
		d, _ = time.ParseDuration(common.DefaultStreamInterval)
	}
	return d
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// validateSettings performs range validation of configuration values.
func validateSettings(settings *Settings) error {
	if settings.HistoryLength <= 0 || settings.HistoryLength > common.MaxHistoryLength {
		return fmt.Errorf("history length must be between 1 and %d, got %d", common.MaxHistoryLength, settings.HistoryLength)
	}

	switch settings.Variant {
	case common.VariantLinear, common.VariantMargin, common.VariantSign:
	default:
		return fmt.Errorf("%s: %q", common.ErrMsgUnknownVariant, settings.Variant)
	}

	if settings.Eta <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", settings.Eta)
	}
	if settings.Lambda < 0 {
		return fmt.Errorf("lambda must be non-negative, got %g", settings.Lambda)
	}
	if settings.BatchSize <= 0 || settings.BatchSize > common.MaxBatchSize {
		return fmt.Errorf("batch size must be between 1 and %d, got %d", common.MaxBatchSize, settings.BatchSize)
	}

	if settings.MetricsPort < common.MinMetricsPort || settings.MetricsPort > common.MaxMetricsPort {
		return fmt.Errorf("metrics port must be between %d and %d, got %d", common.MinMetricsPort, common.MaxMetricsPort, settings.MetricsPort)
	}
	if settings.DashboardPort < common.MinMetricsPort || settings.DashboardPort > common.MaxMetricsPort {
		return fmt.Errorf("dashboard port must be between %d and %d, got %d", common.MinMetricsPort, common.MaxMetricsPort, settings.DashboardPort)
	}

	switch settings.TraceFormat {
	case "auto", "csv", "json", "boltdb":
	default:
		return fmt.Errorf("unknown trace format %q", settings.TraceFormat)
	}

	if settings.StreamInterval <= 0 {
		return fmt.Errorf("stream interval must be positive, got %s", settings.StreamInterval)
	}

	if settings.RecordEvents && settings.DataPath == "" {
		return fmt.Errorf("event recording requires a data path")
	}

	return nil
}
