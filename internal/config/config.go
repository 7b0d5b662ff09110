package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Survey struct {
		SessionTTL     string   `yaml:"session_ttl"`
		QuestionTTL    string   `yaml:"question_ttl"`
		RewardType     string   `yaml:"reward_type"`
		RewardAmount   int      `yaml:"reward_amount"`
		APIKey         string   `yaml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"survey"`
	Speech struct {
		APIKey        string `yaml:"api_key"`
		VoiceID       string `yaml:"voice_id"`
		ModelID       string `yaml:"model_id"`
		BaseURL       string `yaml:"base_url"`
		Timeout       string `yaml:"timeout"`
		AudioDir      string `yaml:"audio_dir"`
		AudioMaxAge   string `yaml:"audio_max_age"`
		AudioMaxFiles int    `yaml:"audio_max_files"`
	} `yaml:"speech"`
}

// Load reads YAML config from path and applies environment overrides for
// secrets so credentials never need to live in the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		cfg.Speech.APIKey = v
	}
	if v := os.Getenv("ELEVENLABS_VOICE_ID"); v != "" {
		cfg.Speech.VoiceID = v
	}
	if v := os.Getenv("SURVEY_API_KEY"); v != "" {
		cfg.Survey.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
