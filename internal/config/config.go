package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/logger"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var icaoPattern = regexp.MustCompile(`^[A-Z]{4}$`)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redemet  RedemetConfig
	Poller   PollerConfig
	MQTT     MQTTConfig
	Notify   NotifyConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxHeaderBytes  int
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	SQLitePath      string
	AutoMigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedemetConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type PollerConfig struct {
	Enabled        bool
	ICAOs          []string
	PollInterval   time.Duration
	SweepInterval  time.Duration
	ArchiveAfter   time.Duration
	RequestTimeout time.Duration
}

type MQTTConfig struct {
	Enabled        bool
	Broker         string
	Port           int
	ClientID       string
	Username       string
	Password       string
	AlertTopic     string
	QoS            byte
	RetainMessages bool
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	AutoReconnect  bool
}

type NotifyConfig struct {
	SlackToken     string
	SlackChannel   string
	SMTPHost       string
	SMTPPort       int
	EmailFrom      string
	EmailPassword  string
	EmailReceivers []string
	DiscordWebhook string
	MinSeverity    string
	Timeout        time.Duration
}

type SecurityConfig struct {
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	RateLimitPerMinute int
	EnableRateLimit    bool
}

type LoggingConfig struct {
	Level     logger.Level
	Mode      logger.Mode
	FilePath  string
	UseColors bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Redemet:  loadRedemetConfig(),
		Poller:   loadPollerConfig(),
		MQTT:     loadMQTTConfig(),
		Notify:   loadNotifyConfig(),
		Security: loadSecurityConfig(),
		Logging:  loadLoggingConfig(),
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Port:            getEnvAsInt("SERVER_PORT", 8080),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", "15s"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", "10s"),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", "30s"),
		MaxHeaderBytes:  getEnvAsInt("MAX_HEADER_BYTES", 1048576),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "adwrng"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "adwrng"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		SQLitePath:      getEnv("DB_SQLITE_PATH", "data/adwrng.db"),
		AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", "5m"),
	}
}

func loadRedemetConfig() RedemetConfig {
	return RedemetConfig{
		BaseURL: strings.TrimRight(getEnv("REDEMET_API_URL", "https://api-redemet.decea.mil.br"), "/"),
		APIKey:  getEnv("REDEMET_API_KEY", ""),
		Timeout: getEnvAsDuration("REDEMET_TIMEOUT", "15s"),
	}
}

func loadPollerConfig() PollerConfig {
	return PollerConfig{
		Enabled:        getEnvAsBool("POLL_ENABLED", true),
		ICAOs:          normalizeICAOs(getEnvAsList("POLL_ICAOS", "")),
		PollInterval:   getEnvAsDuration("POLL_INTERVAL", "60s"),
		SweepInterval:  getEnvAsDuration("SWEEP_INTERVAL", "60s"),
		ArchiveAfter:   getEnvAsDuration("ARCHIVE_AFTER", "720h"),
		RequestTimeout: getEnvAsDuration("POLL_REQUEST_TIMEOUT", "30s"),
	}
}

func loadMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Enabled:        getEnvAsBool("MQTT_ENABLED", false),
		Broker:         getEnv("MQTT_BROKER", "localhost"),
		Port:           getEnvAsInt("MQTT_PORT", 1883),
		ClientID:       getEnv("MQTT_CLIENT_ID", "adwrng-backend"),
		Username:       getEnv("MQTT_USERNAME", ""),
		Password:       getEnv("MQTT_PASSWORD", ""),
		AlertTopic:     getEnv("MQTT_ALERT_TOPIC", "adwrng/alerts"),
		QoS:            byte(getEnvAsInt("MQTT_QOS", 1)),
		RetainMessages: getEnvAsBool("MQTT_RETAIN", false),
		KeepAlive:      getEnvAsDuration("MQTT_KEEP_ALIVE", "60s"),
		ConnectTimeout: getEnvAsDuration("MQTT_CONNECT_TIMEOUT", "10s"),
		AutoReconnect:  getEnvAsBool("MQTT_AUTO_RECONNECT", true),
	}
}

func loadNotifyConfig() NotifyConfig {
	return NotifyConfig{
		SlackToken:     getEnv("SLACK_TOKEN", ""),
		SlackChannel:   getEnv("SLACK_CHANNEL", ""),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnvAsInt("SMTP_PORT", 587),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailPassword:  getEnv("EMAIL_PASSWORD", ""),
		EmailReceivers: getEnvAsList("EMAIL_RECEIVERS", ""),
		DiscordWebhook: getEnv("DISCORD_WEBHOOK_URL", ""),
		MinSeverity:    strings.ToLower(getEnv("NOTIFY_MIN_SEVERITY", "medium")),
		Timeout:        getEnvAsDuration("NOTIFY_TIMEOUT", "15s"),
	}
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),
		CORSAllowedMethods: getEnvAsList("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		EnableRateLimit:    getEnvAsBool("ENABLE_RATE_LIMIT", true),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:     logger.ParseLevel(getEnv("LOG_LEVEL", "info")),
		Mode:      logger.ParseMode(getEnv("LOG_MODE", "normal")),
		FilePath:  getEnv("LOG_FILE_PATH", ""),
		UseColors: getEnvAsBool("LOG_USE_COLORS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeICAOs(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]bool)
	for _, c := range codes {
		c = strings.ToUpper(c)
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// ValidICAO reports whether code is a 4-letter uppercase aerodrome identifier.
func ValidICAO(code string) bool {
	return icaoPattern.MatchString(code)
}

// DSN is the lib/pq connection string for the Postgres store.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Database,
		d.SSLMode,
	)
}

func (m MQTTConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", m.Broker, m.Port)
}

func (c *Config) Validate() error {
	var errors []string

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			errors = append(errors, "DB_PASSWORD cannot be empty")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			errors = append(errors, "DB_PORT must be between 1 and 65535")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			errors = append(errors, "DB_SQLITE_PATH cannot be empty")
		}
	default:
		errors = append(errors, fmt.Sprintf("DB_DRIVER %q is not supported (postgres, sqlite)", c.Database.Driver))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	if c.MQTT.Enabled && (c.MQTT.Port < 1 || c.MQTT.Port > 65535) {
		errors = append(errors, "MQTT_PORT must be between 1 and 65535")
	}

	for _, code := range c.Poller.ICAOs {
		if !ValidICAO(code) {
			errors = append(errors, fmt.Sprintf("POLL_ICAOS entry %q is not a 4-letter ICAO code", code))
		}
	}

	if c.Poller.Enabled && c.Poller.PollInterval <= 0 {
		errors = append(errors, "POLL_INTERVAL must be positive")
	}

	if c.Poller.Enabled && c.Poller.SweepInterval <= 0 {
		errors = append(errors, "SWEEP_INTERVAL must be positive")
	}

	switch c.Notify.MinSeverity {
	case "low", "medium", "high", "critical":
	default:
		errors = append(errors, fmt.Sprintf("NOTIFY_MIN_SEVERITY %q must be low, medium, high or critical", c.Notify.MinSeverity))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func (c *Config) Print() {
	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║           AD WRNG Monitor - Configuration                ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Printf("Environment:     %s\n", c.Server.Environment)
	fmt.Printf("Server:          %s:%d\n", c.Server.Host, c.Server.Port)
	if c.Database.Driver == DriverSQLite {
		fmt.Printf("Database:        sqlite %s\n", c.Database.SQLitePath)
	} else {
		fmt.Printf("Database:        %s:%d/%s\n", c.Database.Host, c.Database.Port, c.Database.Database)
	}
	fmt.Printf("REDEMET:         %s (key set: %v)\n", c.Redemet.BaseURL, c.Redemet.APIKey != "")
	fmt.Printf("Watching:        %s every %s\n", strings.Join(c.Poller.ICAOs, ","), c.Poller.PollInterval)
	if c.MQTT.Enabled {
		fmt.Printf("MQTT Broker:     %s:%d\n", c.MQTT.Broker, c.MQTT.Port)
	}
	fmt.Println("──────────────────────────────────────────────────────────")
}
