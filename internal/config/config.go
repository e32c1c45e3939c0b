package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	FrontendBaseURL     string // absolute base for links in outbound emails
	NotifyChannel       string // redis pub/sub channel for lifecycle events
	DefaultGroupName    string // lazily created public group when none exist
	BrevoAPIKey         string
	MailFrom            string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if env == "test" && viper.GetString("DATABASE_URL_TEST") != "" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}

	channel := viper.GetString("NOTIFY_CHANNEL")
	if channel == "" {
		channel = "learnhub:events"
	}

	defaultGroup := viper.GetString("DEFAULT_GROUP_NAME")
	if defaultGroup == "" {
		defaultGroup = "General"
	}

	return &Config{
		Env:                 env,
		Port:                port,
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		FrontendBaseURL:     viper.GetString("FRONTEND_BASE_URL"),
		NotifyChannel:       channel,
		DefaultGroupName:    defaultGroup,
		BrevoAPIKey:         viper.GetString("BREVO_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
	}, nil
}
