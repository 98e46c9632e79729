package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string
		LogLevel     string

		Server   ServerConfig
		Database DatabaseConfig
		Cache    CacheConfig
		Auth     AuthConfig
		Email    EmailConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | inmem
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		QueryTimeout  time.Duration
	}

	CacheConfig struct {
		RedisURL string
		PlanTTL  time.Duration
	}

	AuthConfig struct {
		// AllowPINOnlyLogin lets a workspace PIN alone open an owner session (legacy single-tenant login).
		AllowPINOnlyLogin    bool
		PasswordMinLength    int
		PasswordResetTimeout time.Duration
	}

	EmailConfig struct {
		FrontendBaseURL  string
		DefaultFromName  string
		DefaultFromEmail string
		SendgridAPIKey   string // empty: messages are written to the log
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

func (c EmailConfig) DefaultFrom() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromEmail}
}

func (c *Config) IsTest() bool {
	return c.TestMode
}

// NewConfig reads the configuration from defaults, `config/.env.<env>` (if present) and the environment.
// Environment variables are prefixed with the upper-cased env name, e.g. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Inclusiva")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "k3d9-p0m)wq7$+2a=vn&zt1c8(l!y)#*h4(#ex6^$ruj5gss")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("logLevel", "debug")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "inclusiva")
	v.SetDefault("database.user", "inclusiva")
	v.SetDefault("database.password", "inclusiva")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.queryTimeout", 15*time.Second)

	v.SetDefault("cache.redisURL", "")
	v.SetDefault("cache.planTTL", 5*time.Minute)

	v.SetDefault("auth.allowPINOnlyLogin", true)
	v.SetDefault("auth.passwordMinLength", 4)
	v.SetDefault("auth.passwordResetTimeout", 3*24*time.Hour)

	v.SetDefault("email.frontendBaseURL", "http://localhost:3000")
	v.SetDefault("email.defaultFromName", "Inclusiva")
	v.SetDefault("email.defaultFromEmail", "no-reply@inclusiva.app")
	v.SetDefault("email.sendgridAPIKey", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "PROD":
		v.SetDefault("debug", false)
		v.SetDefault("logLevel", "info")
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if root, err := projectRoot(); err == nil {
		dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		LogLevel:     v.GetString("logLevel"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
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
			QueryTimeout:  v.GetDuration("database.queryTimeout"),
		},
		Cache: CacheConfig{
			RedisURL: v.GetString("cache.redisURL"),
			PlanTTL:  v.GetDuration("cache.planTTL"),
		},
		Auth: AuthConfig{
			AllowPINOnlyLogin:    v.GetBool("auth.allowPINOnlyLogin"),
			PasswordMinLength:    v.GetInt("auth.passwordMinLength"),
			PasswordResetTimeout: v.GetDuration("auth.passwordResetTimeout"),
		},
		Email: EmailConfig{
			FrontendBaseURL:  v.GetString("email.frontendBaseURL"),
			DefaultFromName:  v.GetString("email.defaultFromName"),
			DefaultFromEmail: v.GetString("email.defaultFromEmail"),
			SendgridAPIKey:   v.GetString("email.sendgridAPIKey"),
		},
	}
}

// NewTestConfig returns a Config suited for unit tests; nothing is read from the environment.
func NewTestConfig() *Config {
	return &Config{
		AppName:   "Inclusiva",
		Env:       "TEST",
		Build:     "test",
		Debug:     false,
		TestMode:  true,
		SecretKey: "secret",
		LogLevel:  "error",
		Server: ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: DatabaseConfig{Engine: "inmem", QueryTimeout: 10 * time.Second},
		Cache:    CacheConfig{PlanTTL: 5 * time.Minute},
		Auth:     AuthConfig{AllowPINOnlyLogin: true, PasswordMinLength: 4, PasswordResetTimeout: 3 * 24 * time.Hour},
		Email: EmailConfig{
			FrontendBaseURL:  "http://frontend.test",
			DefaultFromName:  "Inclusiva",
			DefaultFromEmail: "no-reply@inclusiva.test",
		},
	}
}

// projectRoot walks up from the working directory until it finds go.mod.
// go test changes the working directory to the package being tested.
func projectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir, nil
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return "", os.ErrNotExist
		}
		currDir = newDir
	}
}
