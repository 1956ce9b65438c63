/*
config.go - Environment-driven server configuration

PURPOSE:
  Loads server configuration from the environment, with a .env file
  picked up when present. Command-line flags in cmd/server override
  the basics (port, db path).

VARIABLES:
  PORT                    HTTP port (default 8080)
  DB_PATH                 SQLite database path (default brokerage.db)
  SMS_PRIMARY_URL         Primary SMS gateway endpoint
  SMS_PRIMARY_KEY         Primary SMS gateway API key
  SMS_FALLBACK_URL        Fallback SMS gateway endpoint
  SMS_FALLBACK_KEY        Fallback SMS gateway API key
  SMS_SENDER              Sender id for outbound SMS
  SMTP_HOST               SMTP server host (empty disables email)
  SMTP_PORT               SMTP server port (default 587)
  SMTP_USERNAME           SMTP username
  SMTP_PASSWORD           SMTP password
  SMTP_FROM               From address for outbound mail
  RENEWAL_LEAD_DAYS       Reminder window before due date (default 30)
  RENEWAL_GRACE_DAYS      Grace period after due date (default 15)
  SCHEDULER_INTERVAL      Renewal check interval (default 1h)
  SCHEDULER_ENABLED       Background renewal processing (default true)

SEE ALSO:
  - cmd/server/main.go: Startup wiring
*/
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings.
type Config struct {
	Port   int
	DBPath string

	SMSPrimaryURL  string
	SMSPrimaryKey  string
	SMSFallbackURL string
	SMSFallbackKey string
	SMSSender      string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	RenewalLeadDays   int
	RenewalGraceDays  int
	SchedulerInterval time.Duration
	SchedulerEnabled  bool
}

// Load reads the environment (and .env when present) into a Config.
func Load() Config {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	return Config{
		Port:   envInt("PORT", 8080),
		DBPath: envString("DB_PATH", "brokerage.db"),

		SMSPrimaryURL:  os.Getenv("SMS_PRIMARY_URL"),
		SMSPrimaryKey:  os.Getenv("SMS_PRIMARY_KEY"),
		SMSFallbackURL: os.Getenv("SMS_FALLBACK_URL"),
		SMSFallbackKey: os.Getenv("SMS_FALLBACK_KEY"),
		SMSSender:      envString("SMS_SENDER", "COVERA"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     envInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		RenewalLeadDays:   envInt("RENEWAL_LEAD_DAYS", 30),
		RenewalGraceDays:  envInt("RENEWAL_GRACE_DAYS", 15),
		SchedulerInterval: envDuration("SCHEDULER_INTERVAL", 1*time.Hour),
		SchedulerEnabled:  envBool("SCHEDULER_ENABLED", true),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
