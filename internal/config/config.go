package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries server settings plus every tunable parameter of the
// consensus and reputation engine. Amounts are integers in the smallest
// accounting unit; percentages are basis points.
type Config struct {
	Port           string
	AppEnv         string
	MongoURI       string
	MongoDB        string
	JWTSecret      string
	JWTExpireHours int
	AdminAPIKey    string
	FrontendURL    string

	// Report consensus engine
	ReportStake             int64
	VotingStake             int64
	ReporterReward          int64
	ValidatorReward         int64
	MinValidators           int
	VotingPeriod            time.Duration
	DisputeWindow           time.Duration
	RateLimitWindow         time.Duration
	MaxSubmissionsPerWindow int
	ReportFloor             int64
	StakeFloor              int64

	// Evidence quorum engine
	MinValidationReputation int64
	MinValidationsRequired  int
	ValidationTimeout       time.Duration
	MaxFileSize             int64

	// Ledger
	StakeLockPeriod         time.Duration
	EarlyWithdrawPenaltyBps int64
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		AppEnv:         getEnv("APP_ENV", "development"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "phishguard"),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		AdminAPIKey:    getEnv("ADMIN_API_KEY", ""),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),

		ReportStake:             getEnvInt64("REPORT_STAKE", 10),
		VotingStake:             getEnvInt64("VOTING_STAKE", 5),
		ReporterReward:          getEnvInt64("REPORTER_REWARD", 4),
		ValidatorReward:         getEnvInt64("VALIDATOR_REWARD", 2),
		MinValidators:           getEnvInt("MIN_VALIDATORS", 3),
		VotingPeriod:            getEnvDuration("VOTING_PERIOD", 72*time.Hour),
		DisputeWindow:           getEnvDuration("DISPUTE_WINDOW", 24*time.Hour),
		RateLimitWindow:         getEnvDuration("RATE_LIMIT_WINDOW", time.Hour),
		MaxSubmissionsPerWindow: getEnvInt("MAX_SUBMISSIONS_PER_WINDOW", 5),
		ReportFloor:             getEnvInt64("REPORT_REPUTATION_FLOOR", 10),
		StakeFloor:              getEnvInt64("STAKE_REPUTATION_FLOOR", 1),

		MinValidationReputation: getEnvInt64("MIN_VALIDATION_REPUTATION", 50),
		MinValidationsRequired:  getEnvInt("MIN_VALIDATIONS_REQUIRED", 3),
		ValidationTimeout:       getEnvDuration("VALIDATION_TIMEOUT", 48*time.Hour),
		MaxFileSize:             getEnvInt64("MAX_FILE_SIZE", 10*1024*1024),

		StakeLockPeriod:         getEnvDuration("STAKE_LOCK_PERIOD", 7*24*time.Hour),
		EarlyWithdrawPenaltyBps: getEnvInt64("EARLY_WITHDRAW_PENALTY_BPS", 1000),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
