// Package config loads the application configuration: a JSON file layered
// over defaults, then environment variables layered over both.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Agent     AgentConfig     `json:"agent"`
	Providers ProvidersConfig `json:"providers"`
	Memory    MemoryConfig    `json:"memory"`
	News      NewsConfig      `json:"news"`
}

type AgentConfig struct {
	Provider            string `json:"provider" env:"CHATMIND_AGENT_PROVIDER"`
	Model               string `json:"model" env:"CHATMIND_AGENT_MODEL"`
	ImageModel          string `json:"image_model" env:"CHATMIND_AGENT_IMAGE_MODEL"`
	Domain              string `json:"domain" env:"CHATMIND_AGENT_DOMAIN"`
	InstructionTemplate string `json:"instruction_template" env:"CHATMIND_AGENT_INSTRUCTION_TEMPLATE"`
	Verbose             bool   `json:"verbose" env:"CHATMIND_AGENT_VERBOSE"`
}

type ProvidersConfig struct {
	Gemini ProviderConfig `json:"gemini" envPrefix:"CHATMIND_PROVIDERS_GEMINI_"`
	OpenAI ProviderConfig `json:"openai" envPrefix:"CHATMIND_PROVIDERS_OPENAI_"`
}

type ProviderConfig struct {
	APIKey string `json:"api_key" env:"API_KEY"`
}

type MemoryConfig struct {
	DatabasePath      string `json:"database_path" env:"CHATMIND_MEMORY_DATABASE_PATH"`
	SessionTTLSeconds int    `json:"session_ttl_seconds" env:"CHATMIND_MEMORY_SESSION_TTL_SECONDS"`
	RetentionSchedule string `json:"retention_schedule" env:"CHATMIND_MEMORY_RETENTION_SCHEDULE"`
}

type NewsConfig struct {
	BraveAPIKey string `json:"brave_api_key" env:"CHATMIND_NEWS_BRAVE_API_KEY"`
}

func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Provider: "gemini",
			Domain:   "programming",
			InstructionTemplate: "Você é um tutor pessoal paciente. Responda em português, " +
				"com exemplos práticos adequados ao nível do aluno.",
		},
		Providers: ProvidersConfig{},
		Memory: MemoryConfig{
			DatabasePath:      "~/.chatmind/memory.db",
			RetentionSchedule: "0 * * * *",
		},
		News: NewsConfig{},
	}
}

// LoadConfig merges defaults, the JSON file at path (if any), and the
// environment, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// DatabasePath expands a leading ~ in the configured path.
func (c *Config) DatabasePath() string {
	return expandHome(c.Memory.DatabasePath)
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
