package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	DatabasePath string
	AppEnv       string
	LogLevel     string
	CORSOrigins  []string

	JWTSecret string
	JWTTTL    time.Duration

	PointsTablePath      string
	PointsPerCoin        int // Points needed to earn one coin
	StreakBonusCoins     int
	StreakMilestoneDays  int
	DonationCoinsDivisor int // Currency units per coin awarded to donors
	LeaderboardInterval  time.Duration
	LeaderboardSize      int

	BackupPath string
	BackupKeep int // Nightly backups retained

	Storage StorageConfig
}

// StorageConfig configures the S3-compatible media store. An empty Endpoint
// disables media uploads.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether a media store is configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != ""
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	// .env is optional; the environment may be provided by the container.
	_ = godotenv.Load()

	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return nil, err
	}
	jwtTTL, err := getEnvDuration("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	pointsPerCoin, err := getEnvInt("COINS_PER_POINTS", 10)
	if err != nil {
		return nil, err
	}
	streakBonus, err := getEnvInt("STREAK_BONUS_COINS", 20)
	if err != nil {
		return nil, err
	}
	streakDays, err := getEnvInt("STREAK_MILESTONE_DAYS", 7)
	if err != nil {
		return nil, err
	}
	donationDivisor, err := getEnvInt("DONATION_COINS_DIVISOR", 10)
	if err != nil {
		return nil, err
	}
	lbInterval, err := getEnvDuration("LEADERBOARD_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	lbSize, err := getEnvInt("LEADERBOARD_SIZE", 10)
	if err != nil {
		return nil, err
	}
	backupKeep, err := getEnvInt("BACKUP_KEEP", 7)
	if err != nil {
		return nil, err
	}
	useSSL, err := strconv.ParseBool(getEnv("MINIO_USE_SSL", "false"))
	if err != nil {
		return nil, fmt.Errorf("config: MINIO_USE_SSL: %w", err)
	}

	cfg := &Config{
		ServerPort:           port,
		DatabasePath:         getEnv("DATABASE_PATH", "./impact.db"),
		AppEnv:               getEnv("APP_ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		CORSOrigins:          splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		JWTTTL:               jwtTTL,
		PointsTablePath:      os.Getenv("POINTS_TABLE_PATH"),
		PointsPerCoin:        pointsPerCoin,
		StreakBonusCoins:     streakBonus,
		StreakMilestoneDays:  streakDays,
		DonationCoinsDivisor: donationDivisor,
		LeaderboardInterval:  lbInterval,
		LeaderboardSize:      lbSize,
		BackupPath:           getEnv("BACKUP_PATH", "./backups"),
		BackupKeep:           backupKeep,
		Storage: StorageConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "impact-media"),
			UseSSL:    useSSL,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("config: PORT %d is out of range", c.ServerPort)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		if c.IsProduction() {
			return fmt.Errorf("config: JWT_SECRET is required in production")
		}
		c.JWTSecret = "impact-dev-secret"
	}
	if c.PointsPerCoin <= 0 {
		return fmt.Errorf("config: COINS_PER_POINTS must be positive")
	}
	if c.StreakMilestoneDays <= 0 {
		return fmt.Errorf("config: STREAK_MILESTONE_DAYS must be positive")
	}
	if c.DonationCoinsDivisor <= 0 {
		return fmt.Errorf("config: DONATION_COINS_DIVISOR must be positive")
	}
	if c.LeaderboardInterval <= 0 || c.LeaderboardSize <= 0 {
		return fmt.Errorf("config: leaderboard interval and size must be positive")
	}
	if c.BackupKeep < 1 {
		return fmt.Errorf("config: BACKUP_KEEP must be at least 1")
	}
	if c.Storage.Enabled() && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return fmt.Errorf("config: MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required with MINIO_ENDPOINT")
	}
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
