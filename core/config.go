package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
		MaxIdleConns  int
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	}

	EmailConfig struct {
		Provider       string // console | sendgrid | ses
		SendgridAPIKey string
		AWSRegion      string
		From           string
	}

	StorageConfig struct {
		Provider      string // local | s3
		LocalDir      string
		PublicBaseURL string
		S3Bucket      string
		S3Region      string
	}

	Config struct {
		Env             string
		Build           string
		Debug           bool
		TestMode        bool
		AppName         string
		SecretKey       string
		FounderEmail    string
		FrontendBaseURL string
		RollbarToken    string
		LogFormat       string
		LogLevel        string
		Server          ServerConfig
		Database        DatabaseConfig
		Redis           RedisConfig
		Email           EmailConfig
		Storage         StorageConfig
	}
)

// NewConfig reads the configuration from the environment (and `config/.env.<env>` if it exists).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "MUN")
	v.SetDefault("secretKey", "j7#vq2m!x9r$k4p@w1z&n8c^t5b*h3f(")
	v.SetDefault("founderEmail", "speed_777_speed@mail.ru")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("logFormat", "console")
	v.SetDefault("logLevel", "info")

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "mun")
	v.SetDefault("database.user", "mun")
	v.SetDefault("database.password", "mun")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("email.provider", "console")
	v.SetDefault("email.sendgridAPIKey", "")
	v.SetDefault("email.awsRegion", "eu-central-1")
	v.SetDefault("email.from", "MUN <noreply@localhost>")

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.localDir", "media")
	v.SetDefault("storage.publicBaseURL", "http://localhost:8000/media")
	v.SetDefault("storage.s3Bucket", "")
	v.SetDefault("storage.s3Region", "eu-central-1")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		FounderEmail:    CleanString(v.GetString("founderEmail"), true /* lower */),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		RollbarToken:    v.GetString("rollbarToken"),
		LogFormat:       v.GetString("logFormat"),
		LogLevel:        v.GetString("logLevel"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			MaxOpenConns:  v.GetInt("database.maxOpenConns"),
			MaxIdleConns:  v.GetInt("database.maxIdleConns"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Email: EmailConfig{
			Provider:       strings.ToLower(v.GetString("email.provider")),
			SendgridAPIKey: v.GetString("email.sendgridAPIKey"),
			AWSRegion:      v.GetString("email.awsRegion"),
			From:           v.GetString("email.from"),
		},
		Storage: StorageConfig{
			Provider:      strings.ToLower(v.GetString("storage.provider")),
			LocalDir:      v.GetString("storage.localDir"),
			PublicBaseURL: strings.TrimRight(v.GetString("storage.publicBaseURL"), "/"),
			S3Bucket:      v.GetString("storage.s3Bucket"),
			S3Region:      v.GetString("storage.s3Region"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests; it never touches the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:             "TEST",
		Build:           "test",
		TestMode:        true,
		AppName:         "MUN",
		SecretKey:       "test-secret-key",
		FounderEmail:    "founder@test.kz",
		FrontendBaseURL: "http://localhost:3000",
		LogFormat:       "console",
		LogLevel:        "debug",
		Server: ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Redis:   RedisConfig{TTL: time.Minute},
		Email:   EmailConfig{Provider: "console", From: "MUN <noreply@test.kz>"},
		Storage: StorageConfig{Provider: "local", PublicBaseURL: "http://localhost/media"},
	}
}

// Address returns the `host:port` of the database server.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.Email.From); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
}
