package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// SensitiveString holds a secret that must never leak through logs or JSON.
// String and MarshalJSON redact; Value returns the secret.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SensitiveString) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SensitiveString(raw)
	return nil
}

// Config is the complete runtime configuration, loaded from defaults and
// PHARMACHAT_-prefixed environment variables.
type Config struct {
	Runtime   RuntimeConfig   `koanf:"runtime"   validate:"required"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Session   SessionConfig   `koanf:"session"   validate:"required"`
	LLM       LLMConfig       `koanf:"llm"       validate:"required"`
	Retrieval RetrievalConfig `koanf:"retrieval" validate:"required"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment     string `koanf:"environment"      validate:"oneof=development staging production"`
	LogLevel        string `koanf:"log_level"        validate:"oneof=debug info warn error"`
	DefaultLanguage string `koanf:"default_language" validate:"oneof=ar fr en"`
}

// DatabaseConfig contains the evidence store connection. An empty ConnString
// with an empty Host selects the in-memory backend.
type DatabaseConfig struct {
	ConnString string          `koanf:"conn_string"`
	Host       string          `koanf:"host"`
	Port       string          `koanf:"port"`
	User       string          `koanf:"user"`
	Password   SensitiveString `koanf:"password"    sensitive:"true"`
	Name       string          `koanf:"name"`
	SSLMode    string          `koanf:"ssl_mode"`
}

// DSN returns the connection string, assembling one from the discrete fields
// when ConnString is not set.
func (d *DatabaseConfig) DSN() string {
	if d.ConnString != "" {
		return d.ConnString
	}
	if d.Host == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password.Value(), d.Host, d.Port, d.Name, d.SSLMode)
}

// RedisConfig backs the session store. An empty Addr selects the in-memory
// session backend.
type RedisConfig struct {
	Addr     string          `koanf:"addr"`
	Password SensitiveString `koanf:"password" sensitive:"true"`
	DB       int             `koanf:"db"       validate:"min=0"`
}

// SessionConfig tunes conversation session behavior.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl" validate:"required,min=1m"`
}

// LLMConfig configures the model tiers. The secondary model also serves
// intent classification.
type LLMConfig struct {
	Provider       string          `koanf:"provider"        validate:"oneof=openai anthropic groq ollama"`
	APIKey         SensitiveString `koanf:"api_key"         sensitive:"true"`
	BaseURL        string          `koanf:"base_url"`
	PrimaryModel   string          `koanf:"primary_model"   validate:"required"`
	SecondaryModel string          `koanf:"secondary_model" validate:"required"`
	EmbeddingModel string          `koanf:"embedding_model"`
	Temperature    float64         `koanf:"temperature"     validate:"min=0,max=2"`
	MaxTokens      int             `koanf:"max_tokens"      validate:"min=1"`
	CallTimeout    time.Duration   `koanf:"call_timeout"    validate:"min=1s"`
	MaxRetries     int             `koanf:"max_retries"     validate:"min=0,max=5"`
}

// RetrievalConfig tunes the hybrid retriever.
type RetrievalConfig struct {
	TopK int `koanf:"top_k" validate:"min=1,max=20"`
}

// Default returns the development defaults. Every field the validator marks
// required has a value here, so a bare environment still boots against the
// in-memory backends.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Environment:     "development",
			LogLevel:        "info",
			DefaultLanguage: "en",
		},
		Database: DatabaseConfig{
			Port:    "5432",
			User:    "postgres",
			Name:    "pharmachat",
			SSLMode: "disable",
		},
		Redis: RedisConfig{},
		Session: SessionConfig{
			TTL: 30 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:       "openai",
			PrimaryModel:   "gpt-4o",
			SecondaryModel: "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.2,
			MaxTokens:      512,
			CallTimeout:    30 * time.Second,
			MaxRetries:     1,
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
	}
}
