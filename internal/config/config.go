package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Access and refresh tokens are signed with
// independent secrets so that compromise of one class never allows forging
// the other.
type Config struct {
	Env              string // application environment (e.g. "dev", "prod")
	Port             string // HTTP port to listen on
	DBUser           string // database username
	DBPass           string // database password (optional)
	DBHost           string // database host address
	DBPort           string // database port number
	DBName           string // database name
	DBMaxOpenConns   int    // connection pool: max open connections
	DBMaxIdleConns   int    // connection pool: max idle connections
	DBConnMaxLifeMin int    // connection pool: max connection lifetime in minutes
	AccessSecret     string // secret used to sign access tokens
	RefreshSecret    string // secret used to sign refresh tokens
	AccessTTLMin     int    // access token time-to-live in minutes
	RefreshTTLDays   int    // refresh token time-to-live in days
	SessionTTLDays   int    // rolling TTL applied to a user's session map
	BcryptCost       int    // bcrypt cost for password hashing
	LockoutAttempts  int    // failed logins allowed before the account locks
	LockoutWindowMin int    // rolling lockout window in minutes
	RefreshGrace     bool   // accept just-expired refresh tokens on refresh only
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Lockout and session
// knobs have defaults matching the original deployment.
func Load() Config {
	return Config{
		Env:              must("APP_ENV"),
		Port:             must("APP_PORT"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"), // empty allowed
		DBHost:           must("DB_HOST"),
		DBPort:           must("DB_PORT"),
		DBName:           must("DB_NAME"),
		DBMaxOpenConns:   envInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:   envInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifeMin: envInt("DB_CONN_MAX_LIFE_MIN", 30),
		AccessSecret:     must("JWT_SECRET_AT"),
		RefreshSecret:    must("JWT_SECRET_RT"),
		AccessTTLMin:     mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:   mustInt("REFRESH_TOKEN_TTL_DAYS"),
		SessionTTLDays:   envInt("SESSION_TTL_DAYS", 30),
		BcryptCost:       mustInt("BCRYPT_COST"),
		LockoutAttempts:  envInt("LOGIN_LOCKOUT_ATTEMPTS", 5),
		LockoutWindowMin: envInt("LOGIN_LOCKOUT_WINDOW_MIN", 15),
		RefreshGrace:     envBool("REFRESH_TOKEN_GRACE", false),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
