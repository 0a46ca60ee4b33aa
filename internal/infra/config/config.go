package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"attendance_poll_bot/internal/domain/calendar"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken      string
	ChatID             int64
	DatabaseURL        string // optional; empty selects the JSON file stores
	HolidaysFile       string
	ResponsesFile      string
	Weekdays           []int // 0=Monday … 6=Sunday
	SendBeforeHolidays bool
	SendTime           calendar.Clock
	SummaryTime        calendar.Clock
	Location           *time.Location
	SessionTimeout     time.Duration
	TickCronSpec       string
	HealthAddr         string // empty disables the HTTP endpoint
	LogLevel           string
	Environment        string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	chatIDStr := os.Getenv("CHAT_ID")
	if chatIDStr == "" {
		return nil, fmt.Errorf("CHAT_ID is not set")
	}
	cfg.ChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAT_ID: %w", err)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.HolidaysFile = getEnv("HOLIDAYS_FILE", "data/holidays.json")
	cfg.ResponsesFile = getEnv("RESPONSES_FILE", "data/responses.json")

	cfg.Weekdays, err = parseWeekdays(getEnv("WEEKDAYS", "[4,5]"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEEKDAYS: %w", err)
	}

	cfg.SendBeforeHolidays, err = strconv.ParseBool(getEnv("SEND_BEFORE_HOLIDAYS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEND_BEFORE_HOLIDAYS: %w", err)
	}

	cfg.SendTime, err = calendar.ParseClock(getEnv("SEND_TIME", "20:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEND_TIME: %w", err)
	}
	cfg.SummaryTime, err = calendar.ParseClock(getEnv("SUMMARY_TIME", "22:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUMMARY_TIME: %w", err)
	}

	cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "Asia/Tokyo"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg.SessionTimeout, err = time.ParseDuration(getEnv("SESSION_TIMEOUT", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
	}

	cfg.TickCronSpec = getEnv("TICK_CRON_SPEC", "* * * * *") // Default: every minute
	cfg.HealthAddr = getEnv("HEALTH_ADDR", ":8080")

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// parseWeekdays accepts a JSON array ("[4,5]") or a comma list ("4,5").
func parseWeekdays(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	var days []int
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &days); err != nil {
			return nil, err
		}
	} else if raw != "" {
		for _, part := range strings.Split(raw, ",") {
			d, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			days = append(days, d)
		}
	}
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("weekday %d out of range 0-6", d)
		}
	}
	return days, nil
}
