package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port       string `yaml:"port"`
	PublicHost string `yaml:"public_host"`
	TLS        bool   `yaml:"tls"`

	Log       Log       `yaml:"log"`
	Assistant Assistant `yaml:"assistant"`
	Backend   Backend   `yaml:"backend"`
	LLM       LLM       `yaml:"llm"`
	MQTT      MQTT      `yaml:"mqtt"`
}

type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Console    bool   `yaml:"console"`
}

type Assistant struct {
	Locale            string        `yaml:"locale"`
	SystemInstruction string        `yaml:"system_instruction"`
	FallbackText      string        `yaml:"fallback_text"`
	EmptyPromptText   string        `yaml:"empty_prompt_text"`
	ReservedPrefixes  []string      `yaml:"reserved_prefixes"`
	ResponsePrefix    string        `yaml:"response_prefix"`
	PreviewDebounce   time.Duration `yaml:"preview_debounce"`
	FrameInterval     time.Duration `yaml:"frame_interval"`
	AutoRestart       bool          `yaml:"auto_restart"`
	Music             bool          `yaml:"music"`
	GeneratingStyle   string        `yaml:"generating_style"`
}

type Backend struct {
	GenerateURL  string        `yaml:"generate_url"`
	CommandURL   string        `yaml:"command_url"`
	GoogleSearch bool          `yaml:"google_search"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay"`
	Jitter       time.Duration `yaml:"jitter"`
}

type LLM struct {
	Provider      string `yaml:"provider"`
	GeminiAPIKey  string `yaml:"gemini_api_key"`
	GeminiModel   string `yaml:"gemini_model"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`
}

type MQTT struct {
	URL      string `yaml:"url"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func Default() Config {
	return Config{
		Port: "8080",
		Log: Log{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Console:    true,
		},
		Assistant: Assistant{
			Locale:           "ja-JP",
			EmptyPromptText:  "すみません、何も聞こえませんでした。もう一度話しかけてください。",
			ReservedPrefixes: []string{"話しかけてください", "AI応答:"},
			ResponsePrefix:   "AI応答:",
			PreviewDebounce:  time.Second,
			FrameInterval:    33 * time.Millisecond,
			AutoRestart:      true,
			GeneratingStyle:  "handoff",
		},
		Backend: Backend{
			GoogleSearch: true,
			Timeout:      30 * time.Second,
			MaxAttempts:  3,
			BaseDelay:    time.Second,
			Jitter:       500 * time.Millisecond,
		},
		LLM: LLM{
			GeminiModel: "gemini-2.5-flash",
			OpenAIModel: "gpt-4o-mini",
		},
		MQTT: MQTT{
			Topic:    "imavoice/light/set",
			ClientID: "imavoice",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// any) and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	cfg.fillDerived()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Port = getenv("PORT", c.Port)
	c.PublicHost = getenv("PUBLIC_HOST", c.PublicHost)
	c.TLS = getbool("TLS", c.TLS)

	c.Log.Level = getenv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getenv("LOG_FILE", c.Log.File)

	c.Assistant.Locale = getenv("ASSISTANT_LOCALE", c.Assistant.Locale)
	c.Assistant.SystemInstruction = getenv("SYSTEM_INSTRUCTION", c.Assistant.SystemInstruction)
	c.Assistant.FallbackText = getenv("FALLBACK_TEXT", c.Assistant.FallbackText)
	c.Assistant.AutoRestart = getbool("AUTO_RESTART", c.Assistant.AutoRestart)
	c.Assistant.Music = getbool("MUSIC", c.Assistant.Music)

	c.Backend.GenerateURL = getenv("GENERATE_URL", c.Backend.GenerateURL)
	c.Backend.CommandURL = getenv("COMMAND_URL", c.Backend.CommandURL)
	c.Backend.BaseDelay = getduration("RETRY_BASE_DELAY", c.Backend.BaseDelay)

	c.LLM.Provider = getenv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.GeminiAPIKey = getenv("GEMINI_API_KEY", c.LLM.GeminiAPIKey)
	c.LLM.GeminiModel = getenv("GEMINI_MODEL", c.LLM.GeminiModel)
	c.LLM.OpenAIAPIKey = getenv("OPENAI_API_KEY", c.LLM.OpenAIAPIKey)
	c.LLM.OpenAIBaseURL = getenv("OPENAI_BASE_URL", c.LLM.OpenAIBaseURL)
	c.LLM.OpenAIModel = getenv("OPENAI_MODEL", c.LLM.OpenAIModel)

	c.MQTT.URL = getenv("MQTT_URL", c.MQTT.URL)
	c.MQTT.Topic = getenv("MQTT_TOPIC", c.MQTT.Topic)
	c.MQTT.Username = getenv("MQTT_USERNAME", c.MQTT.Username)
	c.MQTT.Password = getenv("MQTT_PASSWORD", c.MQTT.Password)
}

// fillDerived points the pipeline at this server's own gateway when no
// remote endpoints are configured, and picks an LLM provider from the keys.
func (c *Config) fillDerived() {
	self := "http://localhost:" + c.Port
	if c.Backend.GenerateURL == "" {
		c.Backend.GenerateURL = self + "/llm/generate"
	}
	if c.Backend.CommandURL == "" {
		c.Backend.CommandURL = self + "/iot/control"
	}
	if c.LLM.Provider == "" {
		switch {
		case c.LLM.GeminiAPIKey != "":
			c.LLM.Provider = "gemini"
		case c.LLM.OpenAIAPIKey != "":
			c.LLM.Provider = "openai"
		default:
			c.LLM.Provider = "none"
		}
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.Assistant.Locale == "" {
		errs = append(errs, errors.New("assistant.locale is required"))
	}
	if c.Assistant.FrameInterval <= 0 {
		errs = append(errs, errors.New("assistant.frame_interval must be positive"))
	}
	if c.Assistant.PreviewDebounce < 0 {
		errs = append(errs, errors.New("assistant.preview_debounce must not be negative"))
	}
	switch c.Assistant.GeneratingStyle {
	case "handoff", "palette":
	default:
		errs = append(errs, fmt.Errorf("assistant.generating_style %q is not handoff or palette", c.Assistant.GeneratingStyle))
	}
	if c.Backend.MaxAttempts < 1 {
		errs = append(errs, errors.New("backend.max_attempts must be at least 1"))
	}
	switch c.LLM.Provider {
	case "gemini", "openai", "none":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not gemini, openai or none", c.LLM.Provider))
	}
	return errors.Join(errs...)
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getbool(k string, d bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(k)); err == nil {
		return v
	}
	return d
}

func getduration(k string, d time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return v
	}
	return d
}
