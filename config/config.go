package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	Env     string `mapstructure:"ENV"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	JWTSecret string `mapstructure:"JWT_SECRET"`

	MaxRequestsPerMin int `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB  int    `mapstructure:"REDIS_SESSION_DB"`
	RedisLockDB     int    `mapstructure:"REDIS_LOCK_DB"`
	RedisReminderDB int    `mapstructure:"REDIS_REMINDER_DB"`

	// Mongo configuration.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Google integrations.
	GeminiAPIKey             string `mapstructure:"GEMINI_API_KEY"`
	GoogleServiceAccountFile string `mapstructure:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	CalendarID               string `mapstructure:"CALENDAR_ID"`

	// Scheduling behaviour. All times of day are minutes from midnight in
	// the configured timezone; the engine never converts between zones.
	Timezone            string  `mapstructure:"TIMEZONE"`
	WorkDayStartMin     int     `mapstructure:"WORK_DAY_START_MIN"`
	WorkDayEndMin       int     `mapstructure:"WORK_DAY_END_MIN"`
	CandidateCount      int     `mapstructure:"CANDIDATE_COUNT"`
	SearchHorizonDays   int     `mapstructure:"SEARCH_HORIZON_DAYS"`
	ConfidenceThreshold float64 `mapstructure:"CONFIDENCE_THRESHOLD"`

	DefaultBufferMin  int `mapstructure:"DEFAULT_BUFFER_MIN"`
	CallBufferMin     int `mapstructure:"CALL_BUFFER_MIN"`
	InPersonBufferMin int `mapstructure:"IN_PERSON_BUFFER_MIN"`

	SessionIdleTimeout time.Duration `mapstructure:"SESSION_IDLE_TIMEOUT"`
	CalendarTimeout    time.Duration `mapstructure:"CALENDAR_TIMEOUT"`
	MaxTurnRetries     int           `mapstructure:"MAX_TURN_RETRIES"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_LOCK_DB", 1)
	viper.SetDefault("REDIS_REMINDER_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "meetsync")
	viper.SetDefault("CALENDAR_ID", "primary")
	viper.SetDefault("TIMEZONE", "America/New_York")
	viper.SetDefault("WORK_DAY_START_MIN", 9*60)
	viper.SetDefault("WORK_DAY_END_MIN", 18*60)
	viper.SetDefault("CANDIDATE_COUNT", 3)
	viper.SetDefault("SEARCH_HORIZON_DAYS", 7)
	viper.SetDefault("CONFIDENCE_THRESHOLD", 0.6)
	viper.SetDefault("DEFAULT_BUFFER_MIN", 15)
	viper.SetDefault("CALL_BUFFER_MIN", 10)
	viper.SetDefault("IN_PERSON_BUFFER_MIN", 30)
	viper.SetDefault("SESSION_IDLE_TIMEOUT", "30m")
	viper.SetDefault("CALENDAR_TIMEOUT", "10s")
	viper.SetDefault("MAX_TURN_RETRIES", 3)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// Location returns the configured timezone, falling back to UTC on a bad name.
func Location() *time.Location {
	loc, err := time.LoadLocation(AppConfig.Timezone)
	if err != nil {
		log.Printf("Invalid TIMEZONE %q, falling back to UTC", AppConfig.Timezone)
		return time.UTC
	}
	return loc
}
