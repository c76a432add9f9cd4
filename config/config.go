package config

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Access modes supported by the record gateway
const (
	AccessModePosition = "position"
	AccessModeName     = "name"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds all configuration for the application
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Store      StoreConfig      `mapstructure:"store"`
	Statistics StatisticsConfig `mapstructure:"statistics"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Log        LogConfig        `mapstructure:"log"`
}

// DatabaseConfig holds Postgres connection configuration
type DatabaseConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"dbname"`
	SSLMode        string        `mapstructure:"sslmode"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
}

// StoreConfig describes the record table and how rows are addressed
type StoreConfig struct {
	Table      string `mapstructure:"table"`
	AccessMode string `mapstructure:"access_mode"`
}

// StatisticsConfig holds the defaults for temperature statistics
type StatisticsConfig struct {
	Window      time.Duration `mapstructure:"window"`
	IncludeMode bool          `mapstructure:"include_mode"`
}

// HTTPConfig holds the query API listener configuration
type HTTPConfig struct {
	Addr               string        `mapstructure:"addr"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
}

// MQTTConfig holds MQTT connection configuration for the ingest bridge
type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	Port        int    `mapstructure:"port"`
	ClientID    string `mapstructure:"client_id"`
	Topic       string `mapstructure:"topic"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps configuration keys to their environment variables.
var envBindings = map[string]string{
	"database.host":            "DATABASE_HOST",
	"database.port":            "DATABASE_PORT",
	"database.user":            "DATABASE_USER",
	"database.password":        "DATABASE_PASSWORD",
	"database.dbname":          "DATABASE_DBNAME",
	"database.sslmode":         "DATABASE_SSLMODE",
	"database.connect_timeout": "DATABASE_CONNECT_TIMEOUT",
	"database.query_timeout":   "DATABASE_QUERY_TIMEOUT",

	"store.table":       "STORE_TABLE",
	"store.access_mode": "STORE_ACCESS_MODE",

	"statistics.window":       "STATISTICS_WINDOW",
	"statistics.include_mode": "STATISTICS_INCLUDE_MODE",

	"http.addr":                 "HTTP_ADDR",
	"http.cors_allowed_origins": "HTTP_CORS_ALLOWED_ORIGINS",
	"http.read_timeout":         "HTTP_READ_TIMEOUT",
	"http.write_timeout":        "HTTP_WRITE_TIMEOUT",

	"mqtt.broker":       "MQTT_BROKER",
	"mqtt.port":         "MQTT_PORT",
	"mqtt.client_id":    "MQTT_CLIENT_ID",
	"mqtt.topic":        "MQTT_TOPIC",
	"mqtt.username":     "MQTT_USERNAME",
	"mqtt.password":     "MQTT_PASSWORD",
	"mqtt.metrics_addr": "MQTT_METRICS_ADDR",

	"log.level":  "LOG_LEVEL",
	"log.format": "LOG_FORMAT",
}

// LoadConfig loads configuration from file and/or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values first (lowest precedence)
	d := GetDefaultConfig()
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.dbname", d.Database.DBName)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.connect_timeout", d.Database.ConnectTimeout)
	v.SetDefault("database.query_timeout", d.Database.QueryTimeout)

	v.SetDefault("store.table", d.Store.Table)
	v.SetDefault("store.access_mode", d.Store.AccessMode)

	v.SetDefault("statistics.window", d.Statistics.Window)
	v.SetDefault("statistics.include_mode", d.Statistics.IncludeMode)

	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.cors_allowed_origins", d.HTTP.CORSAllowedOrigins)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)

	v.SetDefault("mqtt.broker", d.MQTT.Broker)
	v.SetDefault("mqtt.port", d.MQTT.Port)
	v.SetDefault("mqtt.client_id", d.MQTT.ClientID)
	v.SetDefault("mqtt.topic", d.MQTT.Topic)
	v.SetDefault("mqtt.username", d.MQTT.Username)
	v.SetDefault("mqtt.password", d.MQTT.Password)
	v.SetDefault("mqtt.metrics_addr", d.MQTT.MetricsAddr)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	// Try to load from config file (medium precedence)
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Environment variables (highest precedence)
	// Example: database.host -> DATABASE_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keep backward compatibility with MQTT_BROKER_URL
	_ = v.BindEnv("mqtt.broker", "MQTT_BROKER", "MQTT_BROKER_URL")
	for key, env := range envBindings {
		if key == "mqtt.broker" {
			continue
		}
		_ = v.BindEnv(key, env)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		slog.Debug("no config file found, using environment variables and defaults", "path", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Password:       "postgres",
			DBName:         "iot_data",
			SSLMode:        "disable",
			ConnectTimeout: 5 * time.Second,
			QueryTimeout:   10 * time.Second,
		},
		Store: StoreConfig{
			Table:      "record",
			AccessMode: AccessModeName,
		},
		Statistics: StatisticsConfig{
			Window:      7 * 24 * time.Hour,
			IncludeMode: true,
		},
		HTTP: HTTPConfig{
			Addr:               ":5000",
			CORSAllowedOrigins: []string{"*"},
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       30 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost",
			Port:        1883,
			ClientID:    "go-records-ingest",
			Topic:       "sensor/#",
			MetricsAddr: ":2112",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate rejects settings the gateway and statistics engine cannot work with
func (c *Config) Validate() error {
	if c.Statistics.Window <= 0 {
		return fmt.Errorf("statistics.window must be positive, got %s", c.Statistics.Window)
	}
	switch c.Store.AccessMode {
	case AccessModePosition, AccessModeName:
	default:
		return fmt.Errorf("store.access_mode must be %q or %q, got %q",
			AccessModePosition, AccessModeName, c.Store.AccessMode)
	}
	if !identifierPattern.MatchString(c.Store.Table) {
		return fmt.Errorf("store.table %q is not a valid identifier", c.Store.Table)
	}
	return nil
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	slog.Debug("database connection target",
		"host", c.Database.Host,
		"port", c.Database.Port,
		"user", c.Database.User,
		"dbname", c.Database.DBName,
		"sslmode", c.Database.SSLMode,
	)
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
	if secs := int(c.Database.ConnectTimeout / time.Second); secs > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", secs)
	}
	return dsn
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *Config) GetMQTTBrokerURL() string {
	brokerURL := c.MQTT.Broker

	for _, scheme := range []string{"tcp://", "ssl://", "ws://", "wss://"} {
		if strings.HasPrefix(brokerURL, scheme) {
			if !strings.Contains(brokerURL[len(scheme):], ":") {
				brokerURL = fmt.Sprintf("%s:%d", brokerURL, c.MQTT.Port)
			}
			return brokerURL
		}
	}

	// Handle http:// and https:// by converting to mqtt schemes
	if host, ok := strings.CutPrefix(brokerURL, "http://"); ok {
		if !strings.Contains(host, ":") {
			host = fmt.Sprintf("%s:%d", host, c.MQTT.Port)
		}
		return "tcp://" + host
	}
	if host, ok := strings.CutPrefix(brokerURL, "https://"); ok {
		if !strings.Contains(host, ":") {
			host = fmt.Sprintf("%s:%d", host, c.MQTT.Port)
		}
		return "ssl://" + host
	}

	slog.Warn("no protocol specified in broker URL, defaulting to tcp://", "broker", brokerURL)
	return fmt.Sprintf("tcp://%s:%d", brokerURL, c.MQTT.Port)
}
