package kanban

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ConfigPath string
	Verbose    bool
	ApiGinMode string

	Port           string
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string

	// database
	DBDriver    string
	DBAddress   string
	DBUser      string
	DBPassword  string `secret:"true"`
	DBName      string
	InitSQLPath string
	SQLitePath  string

	// auth
	AuthMode        string
	JWTSecret       string `secret:"true"`
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AdminEmails     []string

	// kc
	AuthAddress  string
	Realm        string
	Audience     string
	ClientID     string
	ClientSecret string `secret:"true"`

	// smtp
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string `secret:"true"`
	SMTPFrom     string
}

func LoadConfig(path string) Config {
	if err := godotenv.Load(path); err != nil {
		log.Printf("failed to load the config file at %s, using default ones...", path)
	}

	s := strings.Split(path, "/")
	config := Config{
		ConfigPath: s[len(s)-1],
		Verbose:    getBoolEnv("VERBOSE", "true"),
		ApiGinMode: getEnv("GIN_MODE", "debug"),

		Port:           getEnv("PORT", "5050"),
		AllowedOrigins: getEnvFields("ALLOW_ORIGINS", []string{"*"}),
		AllowedMethods: getEnvFields("ALLOW_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		AllowedHeaders: getEnvFields("ALLOW_HEADERS", []string{"Origin", "Content-Type", "Authorization"}),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBAddress:   getEnv("DB_ADDRESS", "localhost:5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "kanban"),
		InitSQLPath: getEnv("INIT_SQL_PATH", "./internal/store/postgres/init.sql"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/kanban.db"),

		AuthMode:        strings.ToLower(getEnv("AUTH_MODE", "local")),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "kanban"),
		JWTAudience:     getEnv("JWT_AUDIENCE", "kanban-api"),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		AdminEmails:     getEnvFields("ADMIN_EMAILS", nil),

		AuthAddress:  getEnv("AUTH_ADDRESS", "localhost:8080"),
		Realm:        getEnv("KC_REALM", "kanban"),
		Audience:     getEnv("KC_AUDIENCE", "kanban-api"),
		ClientID:     getEnv("KC_CLIENT", "kanban"),
		ClientSecret: getEnv("KC_CLIENT_SECRET", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
	}

	log.Print(config.toString())

	return config
}

func getEnv(env, fallback string) string {
	if value, exists := os.LookupEnv(env); exists {
		return value
	}

	return fallback
}

func getEnvFields(env string, fallback []string) []string {
	if value, exists := os.LookupEnv(env); exists {
		var fields []string
		for _, f := range strings.Split(strings.TrimSpace(value), ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}

		return fields
	}

	return fallback
}

func getBoolEnv(env, fallback string) bool {
	if value, exists := os.LookupEnv(env); exists {
		return strings.ToLower(value) == "true"
	}

	return strings.ToLower(fallback) == "true"
}

func getIntEnv(env string, fallback int) int {
	if value, exists := os.LookupEnv(env); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}

	return fallback
}

// getDurationEnv accepts Go durations ("15m") or a plain number of seconds.
func getDurationEnv(env string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(env); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs := getIntEnv(env, -1); secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}

	return fallback
}

func (cfg *Config) toString() string {
	var strBuilder strings.Builder

	reflectedValues := reflect.ValueOf(cfg).Elem()
	reflectedTypes := reflect.TypeOf(cfg).Elem()

	strBuilder.WriteString(fmt.Sprintf("[CFG]CONFIGURATION: %s\n", cfg.ConfigPath))

	for i := range reflectedValues.NumField() {
		field := reflectedTypes.Field(i)
		fieldValue := reflectedValues.Field(i).Interface()

		if field.Tag.Get("secret") == "true" && fieldValue != "" {
			fieldValue = "********"
		}

		strBuilder.WriteString(fmt.Sprintf("[CFG]%2d. %-16s -> %v\n", i+1, field.Name, fieldValue))
	}

	return strBuilder.String()
}
