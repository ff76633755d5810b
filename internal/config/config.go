package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
)

type Config struct {
	// Camera
	CameraIndex     int    `yaml:"camera_index"`
	CameraReplayDir string `yaml:"camera_replay_dir"` // replay JPEGs from a directory instead of a device

	// Light monitor
	LightThreshold            float64 `yaml:"light_threshold"` // 0-255 grayscale mean
	StabilizationSeconds      int     `yaml:"stabilization_seconds"`
	MinCaptureIntervalSeconds int     `yaml:"min_capture_interval_seconds"`
	SampleIntervalMillis      int     `yaml:"sample_interval_ms"`
	LightLogIntervalSeconds   int     `yaml:"light_log_interval_seconds"`
	FrameRetryDelayMillis     int     `yaml:"frame_retry_delay_ms"`

	// Capture and inference retries
	CaptureAttempts      int `yaml:"capture_attempts"`
	CaptureBackoffMillis int `yaml:"capture_backoff_ms"`
	InferenceAttempts    int `yaml:"inference_attempts"`
	InferenceBackoffMs   int `yaml:"inference_backoff_ms"`

	// Inference service
	LLMProvider     string  `yaml:"llm_provider"`
	LLMModel        string  `yaml:"llm_model"`
	LLMMaxTokens    int     `yaml:"llm_max_tokens"`
	LLMTemperature  float64 `yaml:"llm_temperature"`
	OpenAIAPIKey    string  `yaml:"openai_api_key"`
	OpenAIBaseURL   string  `yaml:"openai_base_url"`
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`

	// Storage
	DBPath         string `yaml:"db_path"`
	ImageDirectory string `yaml:"image_dir"`
	SnapshotPath   string `yaml:"snapshot_path"`

	// Logging
	LogDirectory string `yaml:"log_dir"`
	LogDebug     bool   `yaml:"log_debug"`

	// Control panel
	Port            int    `yaml:"port"`
	Password        string `yaml:"password"`
	LiveFeedEnabled bool   `yaml:"live_feed_enabled"`
	LiveFeedFPS     int    `yaml:"live_feed_fps"`

	// Optional detection publishing
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTTopic    string `yaml:"mqtt_topic"`
	MQTTClientID string `yaml:"mqtt_client_id"`
}

// Load starts from the defaults, then applies the YAML file at CONFIG_PATH
// (default config.yaml, skipped when missing) and environment overrides,
// .env included. Explicit zero values are kept.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_PATH", "config.yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	normalize(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(envOverrideInt(&cfg.CameraIndex, "CAMERA_INDEX"))
	envOverride(&cfg.CameraReplayDir, "CAMERA_REPLAY_DIR")

	collect(envOverrideFloat(&cfg.LightThreshold, "LIGHT_THRESHOLD"))
	collect(envOverrideInt(&cfg.StabilizationSeconds, "STABILIZATION_SECONDS"))
	collect(envOverrideInt(&cfg.MinCaptureIntervalSeconds, "MIN_CAPTURE_INTERVAL_SECONDS"))
	collect(envOverrideInt(&cfg.SampleIntervalMillis, "SAMPLE_INTERVAL_MS"))
	collect(envOverrideInt(&cfg.LightLogIntervalSeconds, "LIGHT_LOG_INTERVAL_SECONDS"))
	collect(envOverrideInt(&cfg.FrameRetryDelayMillis, "FRAME_RETRY_DELAY_MS"))

	collect(envOverrideInt(&cfg.CaptureAttempts, "CAPTURE_ATTEMPTS"))
	collect(envOverrideInt(&cfg.CaptureBackoffMillis, "CAPTURE_BACKOFF_MS"))
	collect(envOverrideInt(&cfg.InferenceAttempts, "INFERENCE_ATTEMPTS"))
	collect(envOverrideInt(&cfg.InferenceBackoffMs, "INFERENCE_BACKOFF_MS"))

	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	collect(envOverrideInt(&cfg.LLMMaxTokens, "LLM_MAX_TOKENS"))
	collect(envOverrideFloat(&cfg.LLMTemperature, "LLM_TEMPERATURE"))
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")

	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ImageDirectory, "IMAGE_DIR")
	envOverride(&cfg.SnapshotPath, "SNAPSHOT_PATH")

	envOverride(&cfg.LogDirectory, "LOG_DIR")
	collect(envOverrideBool(&cfg.LogDebug, "LOG_DEBUG"))

	collect(envOverrideInt(&cfg.Port, "PORT"))
	envOverride(&cfg.Password, "PASSWORD")
	collect(envOverrideBool(&cfg.LiveFeedEnabled, "LIVE_FEED_ENABLED"))
	collect(envOverrideInt(&cfg.LiveFeedFPS, "LIVE_FEED_FPS"))

	envOverride(&cfg.MQTTBroker, "MQTT_BROKER")
	envOverride(&cfg.MQTTTopic, "MQTT_TOPIC")
	envOverride(&cfg.MQTTClientID, "MQTT_CLIENT_ID")

	return errors.Join(errs...)
}

func defaultConfig() *Config {
	return &Config{
		LightThreshold:            50,
		StabilizationSeconds:      2,
		MinCaptureIntervalSeconds: 300,
		SampleIntervalMillis:      500,
		LightLogIntervalSeconds:   30,
		FrameRetryDelayMillis:     1000,

		CaptureAttempts:      3,
		CaptureBackoffMillis: 1000,
		InferenceAttempts:    3,
		InferenceBackoffMs:   2000,

		LLMProvider:    ProviderOpenAI,
		LLMMaxTokens:   300,
		LLMTemperature: 0.3,
		OpenAIBaseURL:  "https://api.openai.com/v1",

		DBPath:         "fridge_state.db",
		ImageDirectory: "imgs",
		SnapshotPath:   "detected_objects.json",
		LogDirectory:   filepath.Join(".", "logs"),

		Port:        8000,
		LiveFeedFPS: 5,

		MQTTTopic:    "fridgesight/detections",
		MQTTClientID: "fridgesight",
	}
}

// normalize fills values that depend on other settings.
func normalize(cfg *Config) {
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if cfg.LLMModel == "" {
		if cfg.LLMProvider == ProviderAnthropic {
			cfg.LLMModel = DefaultAnthropicModel
		} else {
			cfg.LLMModel = DefaultOpenAIModel
		}
	}
}

// Validate checks ranges that would otherwise break the monitor at runtime.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("llm_provider must be '%s' or '%s', got '%s'", ProviderOpenAI, ProviderAnthropic, c.LLMProvider)
	}
	if c.LightThreshold < 0 || c.LightThreshold > 255 {
		return fmt.Errorf("invalid light_threshold '%v': must be between 0 and 255", c.LightThreshold)
	}
	if c.CaptureAttempts < 1 {
		return fmt.Errorf("invalid capture_attempts '%d': must be >= 1", c.CaptureAttempts)
	}
	if c.InferenceAttempts < 1 {
		return fmt.Errorf("invalid inference_attempts '%d': must be >= 1", c.InferenceAttempts)
	}
	for _, d := range []struct {
		name  string
		value int
	}{
		{"stabilization_seconds", c.StabilizationSeconds},
		{"min_capture_interval_seconds", c.MinCaptureIntervalSeconds},
		{"light_log_interval_seconds", c.LightLogIntervalSeconds},
		{"frame_retry_delay_ms", c.FrameRetryDelayMillis},
		{"capture_backoff_ms", c.CaptureBackoffMillis},
		{"inference_backoff_ms", c.InferenceBackoffMs},
	} {
		if d.value < 0 {
			return fmt.Errorf("invalid %s '%d': must be >= 0", d.name, d.value)
		}
	}
	if c.SampleIntervalMillis < 1 {
		return fmt.Errorf("invalid sample_interval_ms '%d': must be >= 1", c.SampleIntervalMillis)
	}
	if c.LLMMaxTokens < 1 {
		return fmt.Errorf("invalid llm_max_tokens '%d': must be >= 1", c.LLMMaxTokens)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("invalid llm_temperature '%v': must be between 0 and 2", c.LLMTemperature)
	}
	if c.LiveFeedFPS < 1 || c.LiveFeedFPS > 30 {
		return fmt.Errorf("invalid live_feed_fps '%d': must be between 1 and 30", c.LiveFeedFPS)
	}
	return nil
}

// RequireInference fails when the configured provider has no credentials.
// Processes that call the vision service treat this as fatal at startup.
func (c *Config) RequireInference() error {
	switch c.LLMProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required when llm_provider=anthropic")
		}
	default:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required when llm_provider=openai")
		}
	}
	return nil
}

func (c *Config) StabilizationTime() time.Duration {
	return time.Duration(c.StabilizationSeconds) * time.Second
}

func (c *Config) MinCaptureInterval() time.Duration {
	return time.Duration(c.MinCaptureIntervalSeconds) * time.Second
}

func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMillis) * time.Millisecond
}

func (c *Config) LightLogInterval() time.Duration {
	return time.Duration(c.LightLogIntervalSeconds) * time.Second
}

func (c *Config) FrameRetryDelay() time.Duration {
	return time.Duration(c.FrameRetryDelayMillis) * time.Millisecond
}

func (c *Config) CaptureBackoff() time.Duration {
	return time.Duration(c.CaptureBackoffMillis) * time.Millisecond
}

func (c *Config) InferenceBackoff() time.Duration {
	return time.Duration(c.InferenceBackoffMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideBool(field *bool, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
