package config

import (
	"errors"  // Validation errors
	"fmt"     // Error formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list parsing

	"github.com/joho/godotenv" // For loading .env files
	"gopkg.in/yaml.v3"         // For the optional config file
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application configuration
type Config struct {
	AppPort       string   `yaml:"app_port"`        // Application port
	DBDriver      string   `yaml:"db_driver"`       // Database driver: mysql, postgres or sqlite
	DBUser        string   `yaml:"db_user"`         // Database user
	DBPassword    string   `yaml:"db_password"`     // Database password
	DBHost        string   `yaml:"db_host"`         // Database host
	DBPort        string   `yaml:"db_port"`         // Database port
	DBName        string   `yaml:"db_name"`         // Database name
	DBPath        string   `yaml:"db_path"`         // SQLite file path
	JWTSecret     string   `yaml:"jwt_secret"`      // JWT secret key
	RedisAddr     string   `yaml:"redis_addr"`      // Redis server address or redis:// URL
	RedisPass     string   `yaml:"redis_pass"`      // Redis password
	RedisDB       int      `yaml:"redis_db"`        // Redis database number
	IsProd        bool     `yaml:"is_prod"`         // Is production environment
	LogLevel      string   `yaml:"log_level"`       // Logrus level name
	CORSOrigins   []string `yaml:"cors_origins"`    // Allowed CORS origins
	UploadDir     string   `yaml:"upload_dir"`      // Local directory for uploaded images
	PublicBaseURL string   `yaml:"public_base_url"` // Prefix for local image URLs
	S3Bucket      string   `yaml:"s3_bucket"`       // S3 bucket; enables the S3 blob store
	S3Region      string   `yaml:"s3_region"`       // S3 region
	S3Endpoint    string   `yaml:"s3_endpoint"`     // Custom endpoint (MinIO)
	S3AccessKey   string   `yaml:"s3_access_key"`   // Static access key
	S3SecretKey   string   `yaml:"s3_secret_key"`   // Static secret key
	S3PublicURL   string   `yaml:"s3_public_url"`   // Public URL prefix for stored objects
	KafkaBrokers  []string `yaml:"kafka_brokers"`   // Kafka brokers; enables the Kafka sink
	KafkaTopic    string   `yaml:"kafka_topic"`     // Kafka topic for listing events
	EventsChannel string   `yaml:"events_channel"`  // Redis pub/sub channel for listing events
	SMTPHost      string   `yaml:"smtp_host"`       // SMTP host; enables email delivery
	SMTPPort      int      `yaml:"smtp_port"`       // SMTP port
	SMTPUser      string   `yaml:"smtp_user"`       // SMTP user
	SMTPPass      string   `yaml:"smtp_pass"`       // SMTP password
	SMTPFrom      string   `yaml:"smtp_from"`       // Sender address
}

// LoadConfig loads configuration from an optional YAML file then environment variables
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	cfg := Defaults()   // Start from defaults
	// Apply the config file first so the environment can override it
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.Getenv) // Environment wins over file values
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		AppPort:       "5000",
		DBDriver:      DriverMySQL,
		DBHost:        "127.0.0.1",
		DBPort:        "3306",
		DBPath:        "art_market.db",
		RedisAddr:     "127.0.0.1:6379",
		LogLevel:      "info",
		CORSOrigins:   []string{"http://localhost:3000"},
		UploadDir:     "uploads",
		S3Region:      "us-east-1",
		KafkaTopic:    "listings",
		EventsChannel: "listings:events",
		SMTPPort:      587,
	}
}

// LoadFile overlays values from a YAML file
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path) // Read the whole file
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields with every non-empty variable returned by getenv
func (c *Config) ApplyEnv(getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v, err := strconv.Atoi(getenv(key)); err == nil {
			*dst = v
		}
	}
	setList := func(dst *[]string, key string) {
		if v := getenv(key); v != "" {
			*dst = splitList(v)
		}
	}
	setString(&c.AppPort, "APP_PORT")
	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBPort, "DB_PORT")
	setString(&c.DBName, "DB_NAME")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPass, "REDIS_PASS")
	setInt(&c.RedisDB, "REDIS_DB")
	if v := getenv("IS_PROD"); v != "" {
		c.IsProd = v == "true" // Is production environment
	}
	setString(&c.LogLevel, "LOG_LEVEL")
	setList(&c.CORSOrigins, "CORS_ORIGINS")
	setString(&c.UploadDir, "UPLOAD_DIR")
	setString(&c.PublicBaseURL, "PUBLIC_BASE_URL")
	setString(&c.S3Bucket, "S3_BUCKET")
	setString(&c.S3Region, "S3_REGION")
	setString(&c.S3Endpoint, "S3_ENDPOINT")
	setString(&c.S3AccessKey, "S3_ACCESS_KEY")
	setString(&c.S3SecretKey, "S3_SECRET_KEY")
	setString(&c.S3PublicURL, "S3_PUBLIC_URL")
	setList(&c.KafkaBrokers, "KAFKA_BROKERS")
	setString(&c.KafkaTopic, "KAFKA_TOPIC")
	setString(&c.EventsChannel, "EVENTS_REDIS_CHANNEL")
	setString(&c.SMTPHost, "SMTP_HOST")
	setInt(&c.SMTPPort, "SMTP_PORT")
	setString(&c.SMTPUser, "SMTP_USER")
	setString(&c.SMTPPass, "SMTP_PASS")
	setString(&c.SMTPFrom, "SMTP_FROM")
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres:
		if c.DBName == "" {
			return errors.New("DB_NAME is required for " + c.DBDriver)
		}
	case DriverSQLite:
		if c.DBPath == "" {
			return errors.New("DB_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

// splitList splits a comma separated value, dropping empty entries
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
