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
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL         string `yaml:"ttl"`
		DefaultBank string `yaml:"default_bank"`
	} `yaml:"questions"`
	Game struct {
		TimeDecay         string `yaml:"time_decay"` // linear or exponential
		QuestionTimeLimit int    `yaml:"question_time_limit"`
		MaxPlayers        int    `yaml:"max_players"`
		AllowLateJoin     bool   `yaml:"allow_late_join"`
		ShowCorrectAnswer *bool  `yaml:"show_correct_answer"`
		CountdownSeconds  int    `yaml:"countdown_seconds"`
		ResultsDelay      string `yaml:"results_delay"`
	} `yaml:"game"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
