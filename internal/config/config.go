package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string
	LogLevel string

	MaxUploadBytes int64

	HFToken        string
	HFURL          string
	HFModel        string
	HFTimeout      time.Duration
	HFRateLimitRPS float64

	APIRateLimitRPS      float64
	APIRateLimitBurst    int
	APIMaxInFlight       int
	APIBackpressureQueue time.Duration

	PostgresDSN string

	NATSURL     string
	NATSSubject string

	AnalyzerURL           string
	AnalyzerClientTimeout time.Duration

	Classification Classification
}

// Classification holds the labels, keywords and canned replies. It is usually supplied by CONFIG_FILE.
type Classification struct {
	ProductiveLabel   string            `yaml:"productive_label"`
	UnproductiveLabel string            `yaml:"unproductive_label"`
	Keywords          []string          `yaml:"keywords"`
	Replies           map[string]string `yaml:"replies"`
}

func (c Classification) Labels() []string {
	return []string{c.ProductiveLabel, c.UnproductiveLabel}
}

// fileConfig mirrors the optional YAML file. Environment variables override it.
type fileConfig struct {
	APIPort        string         `yaml:"api_port"`
	LogLevel       string         `yaml:"log_level"`
	MaxUploadBytes int64          `yaml:"max_upload_bytes"`
	HFURL          string         `yaml:"hf_url"`
	HFModel        string         `yaml:"hf_model"`
	AnalyzerURL    string         `yaml:"analyzer_url"`
	Classification Classification `yaml:"classification"`
}

func DefaultClassification() Classification {
	return Classification{
		ProductiveLabel:   "Productive",
		UnproductiveLabel: "Unproductive",
		Keywords:          []string{"request", "update", "error", "problem", "question", "order"},
		Replies: map[string]string{
			"Productive":   "Thank you for reaching out. We will review your request and get back to you shortly.",
			"Unproductive": "Thank you for your message! No further action is needed.",
		},
	}
}

// Load reads CONFIG_FILE (when set) and then the environment. A broken config file is fatal.
func Load() Config {
	cfg, err := LoadWithFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}
	return cfg
}

func LoadWithFile(path string) (Config, error) {
	var file fileConfig
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cls := mergeClassification(DefaultClassification(), file.Classification)
	if kw := mustEnv("CLASSIFIER_KEYWORDS", ""); kw != "" {
		cls.Keywords = splitList(kw)
	}

	return Config{
		APIPort:  mustEnv("API_PORT", orDefault(file.APIPort, "8080")),
		LogLevel: mustEnv("LOG_LEVEL", orDefault(file.LogLevel, "info")),

		MaxUploadBytes: mustEnvInt64("MAX_UPLOAD_BYTES", orDefaultInt64(file.MaxUploadBytes, 5<<20)),

		HFToken:        mustEnv("HF_TOKEN", ""),
		HFURL:          mustEnv("HF_URL", orDefault(file.HFURL, "https://api-inference.huggingface.co")),
		HFModel:        mustEnv("HF_MODEL", orDefault(file.HFModel, "facebook/bart-large-mnli")),
		HFTimeout:      mustEnvDuration("HF_TIMEOUT", 60*time.Second),
		HFRateLimitRPS: mustEnvFloat("HF_RATE_LIMIT_RPS", 5),

		APIRateLimitRPS:      mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst:    mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIMaxInFlight:       mustEnvInt("API_MAX_IN_FLIGHT", 32),
		APIBackpressureQueue: mustEnvDuration("API_BACKPRESSURE_WAIT", 250*time.Millisecond),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "analysis.completed"),

		AnalyzerURL:           mustEnv("ANALYZER_URL", orDefault(file.AnalyzerURL, "http://localhost:8080")),
		AnalyzerClientTimeout: mustEnvDuration("ANALYZER_CLIENT_TIMEOUT", 0),

		Classification: cls,
	}, nil
}

func mergeClassification(base, override Classification) Classification {
	out := base
	if override.ProductiveLabel != "" {
		out.ProductiveLabel = override.ProductiveLabel
	}
	if override.UnproductiveLabel != "" {
		out.UnproductiveLabel = override.UnproductiveLabel
	}
	if len(override.Keywords) > 0 {
		out.Keywords = override.Keywords
	}
	if len(override.Replies) > 0 {
		out.Replies = override.Replies
	}
	return out
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orDefaultInt64(v, fallback int64) int64 {
	if v <= 0 {
		return fallback
	}
	return v
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
