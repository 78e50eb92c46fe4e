package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Shop      ShopConfig
	Billing   BillingConfig
	Sync      SyncConfig
	Printer   PrinterConfig
	Log       LogConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

type DatabaseConfig struct {
	Driver   string // postgres or memory
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Timezone string
}

type RedisConfig struct {
	Addr     string // empty disables the shared change feed
	Password string
	DB       int
	Channel  string
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

// ShopConfig is printed in the receipt header and footer
type ShopConfig struct {
	Name    string
	Address string
	Phone   string
	Footer  string
}

type BillingConfig struct {
	Timezone   string
	WindowDays int
}

// Location resolves the shop timezone that invoice days are counted in.
func (c BillingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BILLING_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type SyncConfig struct {
	PollInterval time.Duration
	LoadTimeout  time.Duration
	LoadAttempts int
	LoadBackoff  time.Duration
}

type PrinterConfig struct {
	Type         string // serial, usb, network or none
	Device       string
	BaudRate     int
	ChunkSize    int
	ChunkDelay   time.Duration
	HostCommand  string
	HostQueue    string
	CloseDelay   time.Duration
	PaperWidthMM float64
	CharWidth    int
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Debug().Err(err).Msg(".env file not found, using environment variables")
	}

	viper.SetDefault("APP_NAME", "tillpoint")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "tillpoint")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "UTC")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_CHANNEL", "tillpoint:changes")
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24*30)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS")
	viper.SetDefault("CORS_ALLOWED_HEADERS", "")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 300)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("SHOP_NAME", "Tillpoint")
	viper.SetDefault("SHOP_FOOTER", "Thank you!")
	viper.SetDefault("BILLING_TIMEZONE", "Africa/Nairobi")
	viper.SetDefault("BILLING_WINDOW_DAYS", 7)
	viper.SetDefault("SYNC_POLL_INTERVAL", "30s")
	viper.SetDefault("SYNC_LOAD_TIMEOUT", "15s")
	viper.SetDefault("SYNC_LOAD_ATTEMPTS", 3)
	viper.SetDefault("SYNC_LOAD_BACKOFF", "1s")
	viper.SetDefault("PRINTER_TYPE", "none")
	viper.SetDefault("PRINTER_BAUD_RATE", 9600)
	viper.SetDefault("PRINTER_CHUNK_SIZE", 512)
	viper.SetDefault("PRINTER_CHUNK_DELAY_MS", 20)
	viper.SetDefault("PRINTER_HOST_COMMAND", "lp")
	viper.SetDefault("PRINTER_CLOSE_DELAY_MS", 1000)
	viper.SetDefault("PRINTER_PAPER_WIDTH_MM", 58)
	viper.SetDefault("PRINTER_CHAR_WIDTH", 32)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
	viper.SetDefault("LOG_OUTPUT", "stdout")

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(viper.GetString("DB_DRIVER")),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			Channel:  viper.GetString("REDIS_CHANNEL"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
			Expiry: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods: splitList(viper.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders: splitList(viper.GetString("CORS_ALLOWED_HEADERS")),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Shop: ShopConfig{
			Name:    viper.GetString("SHOP_NAME"),
			Address: viper.GetString("SHOP_ADDRESS"),
			Phone:   viper.GetString("SHOP_PHONE"),
			Footer:  viper.GetString("SHOP_FOOTER"),
		},
		Billing: BillingConfig{
			Timezone:   viper.GetString("BILLING_TIMEZONE"),
			WindowDays: viper.GetInt("BILLING_WINDOW_DAYS"),
		},
		Sync: SyncConfig{
			PollInterval: viper.GetDuration("SYNC_POLL_INTERVAL"),
			LoadTimeout:  viper.GetDuration("SYNC_LOAD_TIMEOUT"),
			LoadAttempts: viper.GetInt("SYNC_LOAD_ATTEMPTS"),
			LoadBackoff:  viper.GetDuration("SYNC_LOAD_BACKOFF"),
		},
		Printer: PrinterConfig{
			Type:         strings.ToLower(viper.GetString("PRINTER_TYPE")),
			Device:       viper.GetString("PRINTER_DEVICE"),
			BaudRate:     viper.GetInt("PRINTER_BAUD_RATE"),
			ChunkSize:    viper.GetInt("PRINTER_CHUNK_SIZE"),
			ChunkDelay:   time.Duration(viper.GetInt("PRINTER_CHUNK_DELAY_MS")) * time.Millisecond,
			HostCommand:  viper.GetString("PRINTER_HOST_COMMAND"),
			HostQueue:    viper.GetString("PRINTER_HOST_QUEUE"),
			CloseDelay:   time.Duration(viper.GetInt("PRINTER_CLOSE_DELAY_MS")) * time.Millisecond,
			PaperWidthMM: viper.GetFloat64("PRINTER_PAPER_WIDTH_MM"),
			CharWidth:    viper.GetInt("PRINTER_CHAR_WIDTH"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
