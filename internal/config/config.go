package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Type string `yaml:"type"` // sqlite or postgres
		DSN  string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		CacheTTL string `yaml:"cache_ttl"`
		LockTTL  string `yaml:"lock_ttl"`
	} `yaml:"redis"`
	Telegram struct {
		Token         string `yaml:"token"`
		MinImportance string `yaml:"min_importance"`
	} `yaml:"telegram"`
	Log struct {
		Mode string `yaml:"mode"` // dev or prod
	} `yaml:"log"`
	Learning struct {
		SessionSize             int   `yaml:"session_size"`
		ExperiencePerDifficulty int   `yaml:"experience_per_difficulty"`
		LevelThresholds         []int `yaml:"level_thresholds"`
		StreakMinimum           int   `yaml:"streak_minimum"`
		GroupSize               int   `yaml:"group_size"`
	} `yaml:"learning"`
	Schedule struct {
		Timezone       string `yaml:"timezone"`
		LeagueRotation string `yaml:"league_rotation"`
		Streaks        string `yaml:"streaks"`
		LessonReview   string `yaml:"lesson_review"`
	} `yaml:"schedule"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.Database.Type = "sqlite"
	cfg.Database.DSN = "data/lingoleague.db"
	cfg.Redis.CacheTTL = "10m"
	cfg.Redis.LockTTL = "30m"
	cfg.Telegram.MinImportance = "medium"
	cfg.Log.Mode = "dev"
	cfg.Learning.SessionSize = 10
	cfg.Learning.ExperiencePerDifficulty = 10
	cfg.Learning.LevelThresholds = []int{0, 100, 250, 500, 1000}
	cfg.Learning.StreakMinimum = 100
	cfg.Learning.GroupSize = 10
	cfg.Schedule.Timezone = "UTC"
	cfg.Schedule.LeagueRotation = "0 0 * * 1"
	cfg.Schedule.Streaks = "5 0 * * *"
	cfg.Schedule.LessonReview = "10 0 * * *"
	return cfg
}

// Load reads .env (if present), then the YAML file at path on top of the
// defaults, then environment overrides. A missing file keeps the defaults.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	for env, dst := range map[string]*string{
		"DB_TYPE":            &cfg.Database.Type,
		"DATABASE_DSN":       &cfg.Database.DSN,
		"REDIS_ADDR":         &cfg.Redis.Addr,
		"REDIS_PASSWORD":     &cfg.Redis.Password,
		"TELEGRAM_BOT_TOKEN": &cfg.Telegram.Token,
		"LOG_MODE":           &cfg.Log.Mode,
		"TIMEZONE":           &cfg.Schedule.Timezone,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
	if v, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		cfg.Redis.DB = v
	}
}

func (c Config) Validate() error {
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	if c.Learning.SessionSize <= 0 {
		return errors.New("learning.session_size must be positive")
	}
	if c.Learning.GroupSize <= 0 {
		return errors.New("learning.group_size must be positive")
	}
	for i := 1; i < len(c.Learning.LevelThresholds); i++ {
		if c.Learning.LevelThresholds[i] <= c.Learning.LevelThresholds[i-1] {
			return errors.New("learning.level_thresholds must be strictly increasing")
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the schedule timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Schedule.Timezone, err)
	}
	return loc, nil
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
