package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
)

var (
	DB        *gorm.DB
	AppConfig Config
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"-"`
	From     string `json:"from"`
}

type ProviderConfig struct {
	GatewayURL string `json:"gateway_url"`
	APIKey     string `json:"-"`
	From       string `json:"from"`
}

// DispatchConfig holds the engine tuning knobs
type DispatchConfig struct {
	WorkerCount      int           `json:"worker_count"`
	DefaultBatchSize int           `json:"default_batch_size"`
	SendTimeout      time.Duration `json:"send_timeout"`
	SenderRetryMax   int           `json:"sender_retry_max"`
	RetryBackoff     time.Duration `json:"retry_backoff"`
	SweepInterval    time.Duration `json:"sweep_interval"`
}

type Config struct {
	Environment    string         `json:"environment"`
	ServerPort     string         `json:"server_port"`
	DBHost         string         `json:"db_host"`
	DBPort         string         `json:"db_port"`
	DBUser         string         `json:"db_user"`
	DBPassword     string         `json:"-"`
	DBName         string         `json:"db_name"`
	DBSSLMode      string         `json:"db_ssl_mode"`
	DBMaxIdleConns int            `json:"db_max_idle_conns"`
	DBMaxOpenConns int            `json:"db_max_open_conns"`
	SMTP           SMTPConfig     `json:"smtp"`
	SMS            ProviderConfig `json:"sms"`
	WhatsApp       ProviderConfig `json:"whatsapp"`
	AMQPURL        string         `json:"amqp_url"`
	Redis          RedisConfig    `json:"redis"`
	TrackingBase   string         `json:"tracking_base"`
	TrackingSecret string         `json:"-"`
	RateLimitTrack int            `json:"rate_limit_track"`
	Dispatch       DispatchConfig `json:"dispatch"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "osop_messaging"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("FROM_EMAIL", "no-reply@example.com"),
		},
		SMS: ProviderConfig{
			GatewayURL: getEnv("SMS_GATEWAY_URL", ""),
			APIKey:     getEnv("SMS_API_KEY", ""),
			From:       getEnv("SMS_FROM", ""),
		},
		WhatsApp: ProviderConfig{
			GatewayURL: getEnv("WHATSAPP_GATEWAY_URL", ""),
			APIKey:     getEnv("WHATSAPP_API_KEY", ""),
			From:       getEnv("WHATSAPP_FROM", ""),
		},
		AMQPURL: getEnv("AMQP_URL", ""),
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		TrackingBase:   getEnv("TRACKING_BASE_URL", "http://localhost:5000"),
		TrackingSecret: getEnv("TRACKING_SECRET", ""),
		RateLimitTrack: getEnvAsInt("RATE_LIMIT_TRACKING", 120),
		Dispatch: DispatchConfig{
			WorkerCount:      getEnvAsInt("DISPATCH_WORKERS", 5),
			DefaultBatchSize: getEnvAsInt("DISPATCH_BATCH_SIZE", 100),
			SendTimeout:      getEnvAsDuration("DISPATCH_SEND_TIMEOUT", 30*time.Second),
			SenderRetryMax:   getEnvAsInt("DISPATCH_SENDER_RETRIES", 2),
			RetryBackoff:     getEnvAsDuration("DISPATCH_RETRY_BACKOFF", 500*time.Millisecond),
			SweepInterval:    getEnvAsDuration("SCHEDULER_SWEEP_INTERVAL", 30*time.Second),
		},
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.TrackingSecret == "" {
		return fmt.Errorf("TRACKING_SECRET is required for engagement tracking")
	}
	if AppConfig.Environment == "production" {
		if AppConfig.SMTP.Username == "" || AppConfig.SMTP.Password == "" {
			return fmt.Errorf("SMTP credentials are required in production")
		}
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting database migration...")
	if err := models.Migrate(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Dispatch: %d workers, batch %d, sweep %s",
		AppConfig.Dispatch.WorkerCount,
		AppConfig.Dispatch.DefaultBatchSize,
		AppConfig.Dispatch.SweepInterval)
}
