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

// Conf is the configuration loaded at start-up.
var Conf = NewConfig()

type (
	Config struct {
		AppName         string
		Env             string // DEV (local; default), TEST, QA, PROD
		Build           string
		Debug           bool
		TestMode        bool
		SecretKey       string
		FrontendBaseURL string
		WorkDir         string
		RollbarToken    string

		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Email    EmailConfig
		Admin    AdminConfig
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		MaxUploadSize             int64 // bytes
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

	StorageConfig struct {
		UploadDir string
		URLPrefix string
	}

	EmailConfig struct {
		DefaultFromName    string
		DefaultFromAddress string
		SendgridApiKey     string
	}

	// AdminConfig holds the account created on start-up when missing. Empty Password disables it.
	AdminConfig struct {
		ID       string
		Name     string
		Email    string
		Password string
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.Email.DefaultFromName, Address: c.Email.DefaultFromAddress}
}

func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	workDir := Getwd()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Evalink")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("secretKey", "j7@x0)qv^8nd$w2=kz3&r+e!5m#t(b9hc_6yu*l4pg1sfa")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("serverHost", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("maxUploadSize", int64(5<<20))

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "evalink")
	v.SetDefault("dbUser", "evalink")
	v.SetDefault("dbPassword", "evalink")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", env == "DEV" || env == "TEST")
	v.SetDefault("dbMaxOpenConns", 10)
	v.SetDefault("dbMaxIdleConns", 5)

	v.SetDefault("uploadDir", filepath.Join(workDir, "public", "uploads"))
	v.SetDefault("uploadURLPrefix", "/uploads")

	v.SetDefault("defaultFromName", "Evalink")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("adminID", "admin")
	v.SetDefault("adminName", "Administrator")
	v.SetDefault("adminEmail", "admin@localhost")
	v.SetDefault("adminPassword", "")

	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:                   v.GetString("appName"),
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		WorkDir:                   workDir,
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			MaxUploadSize:             v.GetInt64("maxUploadSize"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
			MaxOpenConns:  v.GetInt("dbMaxOpenConns"),
			MaxIdleConns:  v.GetInt("dbMaxIdleConns"),
		},
		Storage: StorageConfig{
			UploadDir: v.GetString("uploadDir"),
			URLPrefix: v.GetString("uploadURLPrefix"),
		},
		Email: EmailConfig{
			DefaultFromName:    v.GetString("defaultFromName"),
			DefaultFromAddress: v.GetString("defaultFromEmail"),
			SendgridApiKey:     v.GetString("sendgridApiKey"),
		},
		Admin: AdminConfig{
			ID:       v.GetString("adminID"),
			Name:     v.GetString("adminName"),
			Email:    v.GetString("adminEmail"),
			Password: v.GetString("adminPassword"),
		},
	}
}
